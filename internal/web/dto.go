package web

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/billing/internal/billing"
)

// recordResponse is the JSON form of a record. Terms are flattened; fields
// that do not apply to the record's billing type are omitted.
type recordResponse struct {
	ID                     string                     `json:"id"`
	UserID                 string                     `json:"userId"`
	ProjectID              string                     `json:"projectId"`
	ProjectName            string                     `json:"projectName,omitempty"`
	ClientName             string                     `json:"clientName"`
	Date                   string                     `json:"date"`
	Status                 billing.Status             `json:"status"`
	IsCountBased           bool                       `json:"isCountBased"`
	HoursBilled            *decimal.Decimal           `json:"hoursBilled,omitempty"`
	RateApplied            *decimal.Decimal           `json:"rateApplied,omitempty"`
	AchievedCountTotal     *decimal.Decimal           `json:"achievedCountTotal,omitempty"`
	CountMetricLabelUsed   string                     `json:"countMetricLabelUsed,omitempty"`
	CalculatedAmount       decimal.Decimal            `json:"calculatedAmount"`
	Notes                  string                     `json:"notes,omitempty"`
	BillingPeriodStartDate string                     `json:"billingPeriodStartDate,omitempty"`
	BillingPeriodEndDate   string                     `json:"billingPeriodEndDate,omitempty"`
	AttendanceSummary      *billing.AttendanceSummary `json:"attendanceSummary,omitempty"`
	Details                []billing.ProjectDetail    `json:"details,omitempty"`
	CreatedAt              time.Time                  `json:"createdAt"`
	UpdatedAt              time.Time                  `json:"updatedAt"`
}

func toRecordResponse(r billing.Record) recordResponse {
	out := recordResponse{
		ID:                     r.ID,
		UserID:                 r.UserID,
		ProjectID:              r.ProjectID,
		ProjectName:            r.ProjectName,
		ClientName:             r.ClientName,
		Date:                   r.Date,
		Status:                 r.Status,
		CalculatedAmount:       r.CalculatedAmount,
		Notes:                  r.Notes,
		BillingPeriodStartDate: r.BillingPeriodStartDate,
		BillingPeriodEndDate:   r.BillingPeriodEndDate,
		AttendanceSummary:      r.AttendanceSummary,
		Details:                r.Details,
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
	}
	switch t := r.Terms.(type) {
	case billing.Hourly:
		out.HoursBilled = &t.HoursBilled
		out.RateApplied = &t.RateApplied
	case billing.CountBased:
		out.IsCountBased = true
		out.AchievedCountTotal = t.AchievedCountTotal
		out.CountMetricLabelUsed = t.CountMetricLabelUsed
	}
	return out
}

func toRecordResponses(recs []billing.Record) []recordResponse {
	out := make([]recordResponse, len(recs))
	for i, r := range recs {
		out[i] = toRecordResponse(r)
	}
	return out
}

// createRequest is a manual, hourly-only entry.
type createRequest struct {
	UserID      string          `json:"userId"`
	ProjectID   string          `json:"projectId"`
	ClientName  string          `json:"clientName"`
	Date        string          `json:"date"`
	Status      string          `json:"status"`
	HoursBilled decimal.Decimal `json:"hoursBilled"`
	RateApplied decimal.Decimal `json:"rateApplied"`
	Notes       string          `json:"notes"`
}

func (req createRequest) toNewRecord() (billing.NewRecord, error) {
	status := billing.StatusPending
	if req.Status != "" {
		st, ok := billing.ParseStatus(req.Status)
		if !ok {
			return billing.NewRecord{}, invalidStatus(req.Status)
		}
		status = st
	}
	return billing.NewRecord{
		UserID:     req.UserID,
		ProjectID:  req.ProjectID,
		ClientName: req.ClientName,
		Date:       req.Date,
		Status:     status,
		Terms:      billing.Hourly{HoursBilled: req.HoursBilled, RateApplied: req.RateApplied},
		Notes:      req.Notes,
	}, nil
}

// patchRequest mirrors billing.Patch; absent fields stay unchanged.
type patchRequest struct {
	UserID      *string          `json:"userId"`
	ProjectID   *string          `json:"projectId"`
	ClientName  *string          `json:"clientName"`
	Date        *string          `json:"date"`
	Status      *string          `json:"status"`
	Notes       *string          `json:"notes"`
	HoursBilled *decimal.Decimal `json:"hoursBilled"`
	RateApplied *decimal.Decimal `json:"rateApplied"`
}

func (req patchRequest) toPatch() (billing.Patch, error) {
	p := billing.Patch{
		UserID:      req.UserID,
		ProjectID:   req.ProjectID,
		ClientName:  req.ClientName,
		Date:        req.Date,
		Notes:       req.Notes,
		HoursBilled: req.HoursBilled,
		RateApplied: req.RateApplied,
	}
	if req.Status != nil {
		st, ok := billing.ParseStatus(*req.Status)
		if !ok {
			return billing.Patch{}, invalidStatus(*req.Status)
		}
		p.Status = &st
	}
	return p, nil
}

func invalidStatus(s string) error {
	return &billing.ValidationError{Field: "status", Value: s, Message: "invalid status"}
}
