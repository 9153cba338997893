package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Calculate turns a creation payload into a record with its calculated
// amount set. Hourly terms are priced at hours * rate and both must be
// positive. Count-based terms keep the supplied amount untouched.
func Calculate(in NewRecord, id string, now time.Time) (Record, error) {
	if err := validateHeader(in); err != nil {
		return Record{}, err
	}

	var amount decimal.Decimal
	switch t := in.Terms.(type) {
	case Hourly:
		if !t.HoursBilled.IsPositive() {
			return Record{}, &ValidationError{Field: "hoursBilled", Value: t.HoursBilled.String(), Message: "must be a positive number"}
		}
		if !t.RateApplied.IsPositive() {
			return Record{}, &ValidationError{Field: "rateApplied", Value: t.RateApplied.String(), Message: "must be a positive number"}
		}
		amount = t.HoursBilled.Mul(t.RateApplied)
	case CountBased:
		amount = in.Amount
	default:
		return Record{}, &ValidationError{Field: "terms", Message: "billing terms are required"}
	}

	return Record{
		ID:                     id,
		UserID:                 in.UserID,
		ProjectID:              in.ProjectID,
		ProjectName:            in.ProjectName,
		ClientName:             in.ClientName,
		Date:                   in.Date,
		Status:                 in.Status,
		Terms:                  in.Terms,
		CalculatedAmount:       amount,
		Notes:                  in.Notes,
		BillingPeriodStartDate: in.BillingPeriodStartDate,
		BillingPeriodEndDate:   in.BillingPeriodEndDate,
		AttendanceSummary:      in.AttendanceSummary,
		Details:                in.Details,
		CreatedAt:              now,
		UpdatedAt:              now,
	}, nil
}

// ValidateManualEntry checks a payload entered by hand. Unlike imports,
// manual entries never fall back to the project rate: the project must be
// hourly and both hours and rate must be given explicitly.
func ValidateManualEntry(in NewRecord, project Project) error {
	if !project.IsHourly() {
		return &ValidationError{Field: "projectId", Value: project.ID, Message: "manual entry only supports hourly projects"}
	}
	h, ok := in.Terms.(Hourly)
	if !ok {
		return &ValidationError{Field: "terms", Message: "manual entry only supports hourly records"}
	}
	if !h.HoursBilled.IsPositive() {
		return &ValidationError{Field: "hoursBilled", Value: h.HoursBilled.String(), Message: "valid positive hours billed are required"}
	}
	if !h.RateApplied.IsPositive() {
		return &ValidationError{Field: "rateApplied", Value: h.RateApplied.String(), Message: "valid positive rate applied is required"}
	}
	return nil
}

// ApplyPatch merges p into rec and reconciles the calculated amount.
//
// For hourly records a change to hours or rate re-prices the record with
// rate = merged rate, else project rate, else 0 and hours = merged hours.
// The resolved rate is stored back on the record. Count-based records are
// never re-priced here; a patch touching hours or rate is rejected.
// project may be nil when the project no longer exists.
func ApplyPatch(rec Record, p Patch, project *Project, now time.Time) (Record, error) {
	if _, ok := rec.Terms.(CountBased); ok && p.TouchesCalculatedFields() {
		return rec, ErrCountBasedLocked
	}

	if p.UserID != nil {
		rec.UserID = *p.UserID
	}
	if p.ProjectID != nil {
		rec.ProjectID = *p.ProjectID
		if project != nil && project.ID == rec.ProjectID {
			rec.ProjectName = project.Name
		}
	}
	if p.ClientName != nil {
		rec.ClientName = *p.ClientName
	}
	if p.Date != nil {
		rec.Date = *p.Date
	}
	if p.Status != nil {
		rec.Status = *p.Status
	}
	if p.Notes != nil {
		rec.Notes = *p.Notes
	}

	if h, ok := rec.Terms.(Hourly); ok && p.TouchesCalculatedFields() {
		if p.HoursBilled != nil {
			h.HoursBilled = *p.HoursBilled
		}
		if p.RateApplied != nil {
			h.RateApplied = *p.RateApplied
		}
		h.RateApplied = effectiveRate(h.RateApplied, project)
		rec.Terms = h
		rec.CalculatedAmount = h.HoursBilled.Mul(h.RateApplied)
	}

	if err := validateRecord(rec); err != nil {
		return rec, err
	}
	rec.UpdatedAt = now
	return rec, nil
}

func effectiveRate(rate decimal.Decimal, project *Project) decimal.Decimal {
	if !rate.IsZero() {
		return rate
	}
	if project != nil && !project.RatePerHour.IsZero() {
		return project.RatePerHour
	}
	return decimal.Zero
}

func validateHeader(in NewRecord) error {
	return validateFields(in.UserID, in.ProjectID, in.ClientName, in.Date, in.Status)
}

func validateRecord(r Record) error {
	return validateFields(r.UserID, r.ProjectID, r.ClientName, r.Date, r.Status)
}

func validateFields(userID, projectID, clientName, date string, status Status) error {
	switch {
	case userID == "":
		return &ValidationError{Field: "userId", Message: "is required"}
	case projectID == "":
		return &ValidationError{Field: "projectId", Message: "is required"}
	case clientName == "":
		return &ValidationError{Field: "clientName", Message: "is required"}
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return &ValidationError{Field: "date", Value: date, Message: "must be a YYYY-MM-DD date"}
	}
	if st, ok := ParseStatus(string(status)); !ok || st != status {
		return &ValidationError{Field: "status", Value: string(status), Message: "must be one of pending, paid, overdue"}
	}
	return nil
}
