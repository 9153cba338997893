package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/billing/internal/billing"
)

// flatRecord is a billing.Record laid out as table columns. The terms
// union becomes a billing_type discriminator plus nullable columns.
type flatRecord struct {
	ID          string
	UserID      string
	ProjectID   string
	ProjectName string
	ClientName  string
	Date        string
	Status      string
	BillingType string

	HoursBilled   *decimal.Decimal
	RateApplied   *decimal.Decimal
	AchievedCount *decimal.Decimal
	MetricLabel   string

	Amount      decimal.Decimal
	Notes       string
	PeriodStart string
	PeriodEnd   string

	Attendance []byte // JSON, nil when absent
	Details    []byte // JSON, nil when absent

	CreatedAt time.Time
	UpdatedAt time.Time
}

func flatten(r billing.Record) (flatRecord, error) {
	f := flatRecord{
		ID:          r.ID,
		UserID:      r.UserID,
		ProjectID:   r.ProjectID,
		ProjectName: r.ProjectName,
		ClientName:  r.ClientName,
		Date:        r.Date,
		Status:      string(r.Status),
		Amount:      r.CalculatedAmount,
		Notes:       r.Notes,
		PeriodStart: r.BillingPeriodStartDate,
		PeriodEnd:   r.BillingPeriodEndDate,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}

	switch t := r.Terms.(type) {
	case billing.Hourly:
		f.BillingType = string(billing.BillingHourly)
		hours, rate := t.HoursBilled, t.RateApplied
		f.HoursBilled = &hours
		if !rate.IsZero() {
			f.RateApplied = &rate
		}
	case billing.CountBased:
		f.BillingType = string(billing.BillingCountBased)
		f.AchievedCount = t.AchievedCountTotal
		f.MetricLabel = t.CountMetricLabelUsed
	default:
		return f, fmt.Errorf("record %s: unknown terms %T", r.ID, r.Terms)
	}

	var err error
	if r.AttendanceSummary != nil {
		if f.Attendance, err = json.Marshal(r.AttendanceSummary); err != nil {
			return f, fmt.Errorf("encode attendance: %w", err)
		}
	}
	if len(r.Details) > 0 {
		if f.Details, err = json.Marshal(r.Details); err != nil {
			return f, fmt.Errorf("encode details: %w", err)
		}
	}
	return f, nil
}

func (f flatRecord) record() (billing.Record, error) {
	r := billing.Record{
		ID:                     f.ID,
		UserID:                 f.UserID,
		ProjectID:              f.ProjectID,
		ProjectName:            f.ProjectName,
		ClientName:             f.ClientName,
		Date:                   f.Date,
		Status:                 billing.Status(f.Status),
		CalculatedAmount:       f.Amount,
		Notes:                  f.Notes,
		BillingPeriodStartDate: f.PeriodStart,
		BillingPeriodEndDate:   f.PeriodEnd,
		CreatedAt:              f.CreatedAt,
		UpdatedAt:              f.UpdatedAt,
	}

	switch billing.BillingType(f.BillingType) {
	case billing.BillingHourly:
		var h billing.Hourly
		if f.HoursBilled != nil {
			h.HoursBilled = *f.HoursBilled
		}
		if f.RateApplied != nil {
			h.RateApplied = *f.RateApplied
		}
		r.Terms = h
	case billing.BillingCountBased:
		r.Terms = billing.CountBased{AchievedCountTotal: f.AchievedCount, CountMetricLabelUsed: f.MetricLabel}
	default:
		return r, fmt.Errorf("record %s: unknown billing type %q", f.ID, f.BillingType)
	}

	if len(f.Attendance) > 0 {
		r.AttendanceSummary = &billing.AttendanceSummary{}
		if err := json.Unmarshal(f.Attendance, r.AttendanceSummary); err != nil {
			return r, fmt.Errorf("decode attendance: %w", err)
		}
	}
	if len(f.Details) > 0 {
		if err := json.Unmarshal(f.Details, &r.Details); err != nil {
			return r, fmt.Errorf("decode details: %w", err)
		}
	}
	return r, nil
}
