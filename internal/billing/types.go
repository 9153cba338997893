// Package billing defines billing records and the rules that keep their
// calculated amount authoritative.
//
// A record is billed either by the hour or by a count metric. The two shapes
// are modelled as the [Terms] sum type: [Hourly] or [CountBased]. Code that
// needs the variant uses a type switch; there is no flag to keep in sync.
package billing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO calendar date format used for record dates.
const DateLayout = "2006-01-02"

// Status is the payment state of a billing record.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusPending, StatusPaid, StatusOverdue}

// ParseStatus matches s case-insensitively against the status enum and
// returns the lower-cased value.
func ParseStatus(s string) (Status, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, st := range Statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// StatusNames returns the status values as strings, for messages.
func StatusNames() []string {
	names := make([]string, len(Statuses))
	for i, st := range Statuses {
		names[i] = string(st)
	}
	return names
}

// BillingType is how a project bills its work.
type BillingType string

const (
	BillingHourly     BillingType = "hourly"
	BillingCountBased BillingType = "count_based"
)

// Project is reference data. Hourly projects carry RatePerHour; count-based
// projects carry the metric label and the divisor/multiplier pair.
type Project struct {
	ID               string          `json:"id" yaml:"id"`
	Name             string          `json:"name" yaml:"name"`
	BillingType      BillingType     `json:"billingType" yaml:"billing_type"`
	RatePerHour      decimal.Decimal `json:"ratePerHour,omitzero" yaml:"rate_per_hour"`
	CountMetricLabel string          `json:"countMetricLabel,omitempty" yaml:"count_metric_label"`
	CountDivisor     decimal.Decimal `json:"countDivisor,omitzero" yaml:"count_divisor"`
	CountMultiplier  decimal.Decimal `json:"countMultiplier,omitzero" yaml:"count_multiplier"`
}

// IsHourly reports whether the project bills by the hour.
func (p Project) IsHourly() bool { return p.BillingType == BillingHourly }

// User is the subset of an employee profile needed for billing.
type User struct {
	ID        string `json:"id" yaml:"id"`
	Username  string `json:"username" yaml:"username"`
	FirstName string `json:"firstName" yaml:"first_name"`
	LastName  string `json:"lastName" yaml:"last_name"`
	Email     string `json:"email,omitempty" yaml:"email"`
	Role      string `json:"role,omitempty" yaml:"role"`
}

// FullName returns "First Last".
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Terms is the billing-type specific part of a record.
// The only implementations are Hourly and CountBased.
type Terms interface {
	billingType() BillingType
}

// Hourly terms: amount is HoursBilled * RateApplied.
// A zero RateApplied means no rate has been applied yet.
type Hourly struct {
	HoursBilled decimal.Decimal
	RateApplied decimal.Decimal
}

func (Hourly) billingType() BillingType { return BillingHourly }

// CountBased terms: the amount is computed elsewhere and supplied as is.
type CountBased struct {
	AchievedCountTotal   *decimal.Decimal
	CountMetricLabelUsed string
}

func (CountBased) billingType() BillingType { return BillingCountBased }

// AttendanceSummary is the attendance snapshot attached to a period record.
type AttendanceSummary struct {
	DaysPresent int `json:"daysPresent"`
	DaysOnLeave int `json:"daysOnLeave"`
}

// ProjectDetail is one line of a per-project breakdown.
type ProjectDetail struct {
	ProjectID        string           `json:"projectId"`
	ProjectName      string           `json:"projectName"`
	BillingType      BillingType      `json:"billingType"`
	HoursWorked      *decimal.Decimal `json:"hoursWorked,omitempty"`
	RateApplied      *decimal.Decimal `json:"rateApplied,omitempty"`
	AchievedCount    *decimal.Decimal `json:"achievedCount,omitempty"`
	CountMetricLabel string           `json:"countMetricLabel,omitempty"`
	Amount           decimal.Decimal  `json:"amount"`
}

// Record is a persisted billing record.
type Record struct {
	ID                     string
	UserID                 string
	ProjectID              string
	ProjectName            string
	ClientName             string
	Date                   string
	Status                 Status
	Terms                  Terms
	CalculatedAmount       decimal.Decimal
	Notes                  string
	BillingPeriodStartDate string
	BillingPeriodEndDate   string
	AttendanceSummary      *AttendanceSummary
	Details                []ProjectDetail
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// IsCountBased reports whether the record carries count-based terms.
func (r Record) IsCountBased() bool {
	_, ok := r.Terms.(CountBased)
	return ok
}

// Hourly returns the hourly terms, if that is the record's variant.
func (r Record) Hourly() (Hourly, bool) {
	h, ok := r.Terms.(Hourly)
	return h, ok
}

// CountBased returns the count-based terms, if that is the record's variant.
func (r Record) CountBased() (CountBased, bool) {
	c, ok := r.Terms.(CountBased)
	return c, ok
}

// NewRecord is a creation payload. For count-based terms, Amount is the
// pre-computed total; it is ignored for hourly terms.
type NewRecord struct {
	UserID                 string
	ProjectID              string
	ProjectName            string
	ClientName             string
	Date                   string
	Status                 Status
	Terms                  Terms
	Amount                 decimal.Decimal
	Notes                  string
	BillingPeriodStartDate string
	BillingPeriodEndDate   string
	AttendanceSummary      *AttendanceSummary
	Details                []ProjectDetail
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	UserID      *string
	ProjectID   *string
	ClientName  *string
	Date        *string
	Status      *Status
	Notes       *string
	HoursBilled *decimal.Decimal
	RateApplied *decimal.Decimal
}

// TouchesCalculatedFields reports whether the patch changes hours or rate.
func (p Patch) TouchesCalculatedFields() bool {
	return p.HoursBilled != nil || p.RateApplied != nil
}

// Filter narrows a record listing. Empty fields match everything; dates
// are inclusive ISO bounds.
type Filter struct {
	UserID    string
	ProjectID string
	Status    Status
	StartDate string
	EndDate   string
}

// Match reports whether r satisfies the filter.
func (f Filter) Match(r Record) bool {
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if f.ProjectID != "" && r.ProjectID != f.ProjectID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.StartDate != "" && r.Date < f.StartDate {
		return false
	}
	if f.EndDate != "" && r.Date > f.EndDate {
		return false
	}
	return true
}
