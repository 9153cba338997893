package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }

func baseNew(terms Terms) NewRecord {
	return NewRecord{
		UserID:      "2",
		ProjectID:   "proj1",
		ProjectName: "Website Redesign",
		ClientName:  "Client Alpha",
		Date:        "2023-10-25",
		Status:      StatusPending,
		Terms:       terms,
	}
}

func TestCalculate_Hourly(t *testing.T) {
	tests := []struct {
		name  string
		hours string
		rate  string
		want  string
	}{
		{"whole numbers", "8", "75", "600"},
		{"fractional hours", "7.5", "90", "675"},
		{"fractional rate", "3", "33.33", "99.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Calculate(baseNew(Hourly{HoursBilled: dec(tt.hours), RateApplied: dec(tt.rate)}), "id-1", testNow)
			if err != nil {
				t.Fatalf("Calculate() error = %v", err)
			}
			if !rec.CalculatedAmount.Equal(dec(tt.want)) {
				t.Errorf("CalculatedAmount = %s, want %s", rec.CalculatedAmount, tt.want)
			}
			if rec.IsCountBased() {
				t.Error("IsCountBased() = true, want false")
			}
			if rec.ID != "id-1" || !rec.CreatedAt.Equal(testNow) {
				t.Errorf("ID/CreatedAt not set: %q %v", rec.ID, rec.CreatedAt)
			}
		})
	}
}

func TestCalculate_HourlyRejectsNonPositive(t *testing.T) {
	tests := []struct {
		name      string
		hours     string
		rate      string
		wantField string
	}{
		{"zero hours", "0", "75", "hoursBilled"},
		{"negative hours", "-2", "75", "hoursBilled"},
		{"zero rate", "8", "0", "rateApplied"},
		{"negative rate", "8", "-1", "rateApplied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Calculate(baseNew(Hourly{HoursBilled: dec(tt.hours), RateApplied: dec(tt.rate)}), "id", testNow)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
}

func TestCalculate_CountBasedKeepsSuppliedAmount(t *testing.T) {
	in := baseNew(CountBased{AchievedCountTotal: decPtr("250"), CountMetricLabelUsed: "Records Processed"})
	in.Amount = dec("125")

	rec, err := Calculate(in, "id", testNow)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if !rec.CalculatedAmount.Equal(dec("125")) {
		t.Errorf("CalculatedAmount = %s, want 125", rec.CalculatedAmount)
	}
	if !rec.IsCountBased() {
		t.Error("IsCountBased() = false, want true")
	}
}

func TestCalculate_RequiresHeaderFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*NewRecord)
		field  string
	}{
		{"missing user", func(n *NewRecord) { n.UserID = "" }, "userId"},
		{"missing client", func(n *NewRecord) { n.ClientName = "" }, "clientName"},
		{"bad date", func(n *NewRecord) { n.Date = "10/25/2023" }, "date"},
		{"bad status", func(n *NewRecord) { n.Status = "PAID" }, "status"},
		{"no terms", func(n *NewRecord) { n.Terms = nil }, "terms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseNew(Hourly{HoursBilled: dec("1"), RateApplied: dec("1")})
			tt.mutate(&in)
			_, err := Calculate(in, "id", testNow)
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Errorf("error = %v, want ValidationError on %q", err, tt.field)
			}
		})
	}
}

func TestValidateManualEntry(t *testing.T) {
	hourlyProject := Project{ID: "proj1", Name: "Website Redesign", BillingType: BillingHourly, RatePerHour: dec("75")}
	countProject := Project{ID: "proj3", Name: "Data Entry Batch A", BillingType: BillingCountBased}

	tests := []struct {
		name    string
		terms   Terms
		project Project
		wantErr bool
	}{
		{"explicit hours and rate", Hourly{HoursBilled: dec("8"), RateApplied: dec("75")}, hourlyProject, false},
		{"missing rate does not fall back", Hourly{HoursBilled: dec("8")}, hourlyProject, true},
		{"missing hours", Hourly{RateApplied: dec("75")}, hourlyProject, true},
		{"count-based project", Hourly{HoursBilled: dec("8"), RateApplied: dec("75")}, countProject, true},
		{"count-based terms", CountBased{}, hourlyProject, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateManualEntry(baseNew(tt.terms), tt.project)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateManualEntry() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyPatch_HourlyRecalculates(t *testing.T) {
	project := &Project{ID: "proj1", Name: "Website Redesign", BillingType: BillingHourly, RatePerHour: dec("75")}

	tests := []struct {
		name     string
		terms    Hourly
		patch    Patch
		wantRate string
		wantAmt  string
	}{
		{
			name:     "hours change keeps previous rate",
			terms:    Hourly{HoursBilled: dec("8"), RateApplied: dec("80")},
			patch:    Patch{HoursBilled: decPtr("10")},
			wantRate: "80",
			wantAmt:  "800",
		},
		{
			name:     "hours change without prior rate uses project rate",
			terms:    Hourly{HoursBilled: dec("8")},
			patch:    Patch{HoursBilled: decPtr("10")},
			wantRate: "75",
			wantAmt:  "750",
		},
		{
			name:     "rate change",
			terms:    Hourly{HoursBilled: dec("8"), RateApplied: dec("75")},
			patch:    Patch{RateApplied: decPtr("100")},
			wantRate: "100",
			wantAmt:  "800",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Calculate(baseNew(Hourly{HoursBilled: dec("1"), RateApplied: dec("1")}), "id", testNow)
			if err != nil {
				t.Fatalf("Calculate() error = %v", err)
			}
			rec.Terms = tt.terms

			later := testNow.Add(time.Hour)
			got, err := ApplyPatch(rec, tt.patch, project, later)
			if err != nil {
				t.Fatalf("ApplyPatch() error = %v", err)
			}
			h, ok := got.Hourly()
			if !ok {
				t.Fatal("record is no longer hourly")
			}
			if !h.RateApplied.Equal(dec(tt.wantRate)) {
				t.Errorf("RateApplied = %s, want %s", h.RateApplied, tt.wantRate)
			}
			if !got.CalculatedAmount.Equal(dec(tt.wantAmt)) {
				t.Errorf("CalculatedAmount = %s, want %s", got.CalculatedAmount, tt.wantAmt)
			}
			if !got.UpdatedAt.Equal(later) {
				t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, later)
			}
		})
	}
}

func TestApplyPatch_NoProjectFallsBackToZero(t *testing.T) {
	rec := Record{
		ID: "id", UserID: "2", ProjectID: "gone", ClientName: "c", Date: "2024-01-01", Status: StatusPending,
		Terms: Hourly{HoursBilled: dec("4")},
	}
	got, err := ApplyPatch(rec, Patch{HoursBilled: decPtr("5")}, nil, testNow)
	if err != nil {
		t.Fatalf("ApplyPatch() error = %v", err)
	}
	if !got.CalculatedAmount.IsZero() {
		t.Errorf("CalculatedAmount = %s, want 0", got.CalculatedAmount)
	}
}

func TestApplyPatch_StatusOnlyLeavesAmount(t *testing.T) {
	rec := Record{
		ID: "id", UserID: "2", ProjectID: "proj1", ClientName: "c", Date: "2024-01-01", Status: StatusPending,
		Terms: Hourly{HoursBilled: dec("4"), RateApplied: dec("10")}, CalculatedAmount: dec("40"),
	}
	paid := StatusPaid
	got, err := ApplyPatch(rec, Patch{Status: &paid, Notes: strPtr("settled")}, nil, testNow)
	if err != nil {
		t.Fatalf("ApplyPatch() error = %v", err)
	}
	if got.Status != StatusPaid || got.Notes != "settled" {
		t.Errorf("status/notes = %q/%q", got.Status, got.Notes)
	}
	if !got.CalculatedAmount.Equal(dec("40")) {
		t.Errorf("CalculatedAmount = %s, want 40", got.CalculatedAmount)
	}
}

func TestApplyPatch_CountBased(t *testing.T) {
	rec := Record{
		ID: "id", UserID: "3", ProjectID: "proj3", ClientName: "c", Date: "2024-01-01", Status: StatusPending,
		Terms: CountBased{CountMetricLabelUsed: "Records Processed"}, CalculatedAmount: dec("125"),
	}

	t.Run("status and notes are editable", func(t *testing.T) {
		overdue := StatusOverdue
		got, err := ApplyPatch(rec, Patch{Status: &overdue, Notes: strPtr("late")}, nil, testNow)
		if err != nil {
			t.Fatalf("ApplyPatch() error = %v", err)
		}
		if got.Status != StatusOverdue || !got.CalculatedAmount.Equal(dec("125")) {
			t.Errorf("got status %q amount %s", got.Status, got.CalculatedAmount)
		}
	})

	t.Run("hours are rejected", func(t *testing.T) {
		_, err := ApplyPatch(rec, Patch{HoursBilled: decPtr("3")}, nil, testNow)
		if !errors.Is(err, ErrCountBasedLocked) {
			t.Errorf("error = %v, want ErrCountBasedLocked", err)
		}
		if !IsValidation(err) {
			t.Error("IsValidation() = false, want true")
		}
	})
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in     string
		want   Status
		wantOK bool
	}{
		{"pending", StatusPending, true},
		{"PAID", StatusPaid, true},
		{" Overdue ", StatusOverdue, true},
		{"cancelled", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseStatus(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseStatus(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFilter_Match(t *testing.T) {
	rec := Record{UserID: "2", ProjectID: "proj1", Status: StatusPaid, Date: "2024-02-15"}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter", Filter{}, true},
		{"user match", Filter{UserID: "2"}, true},
		{"user mismatch", Filter{UserID: "3"}, false},
		{"status mismatch", Filter{Status: StatusPending}, false},
		{"inclusive start", Filter{StartDate: "2024-02-15"}, true},
		{"inclusive end", Filter{EndDate: "2024-02-15"}, true},
		{"after end", Filter{EndDate: "2024-02-14"}, false},
		{"before start", Filter{StartDate: "2024-02-16"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(rec); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}
