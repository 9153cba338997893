package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Notice renders the plain-text message sent to an employee about one of
// their billing records.
func Notice(r Record, employee User) string {
	var b strings.Builder

	first := employee.FirstName
	if first == "" {
		first = employee.Username
	}
	fmt.Fprintf(&b, "Hello %s,\n\nHere is an update on one of your billing records:\n\n", first)

	if r.BillingPeriodStartDate != "" {
		end := r.BillingPeriodEndDate
		if end == "" {
			end = r.Date
		}
		fmt.Fprintf(&b, "*Date/Period:* %s to %s\n", DisplayDate(r.BillingPeriodStartDate), DisplayDate(end))
	} else {
		fmt.Fprintf(&b, "*Date/Period:* %s\n", DisplayDate(r.Date))
	}
	projectName := r.ProjectName
	if projectName == "" {
		projectName = "N/A"
	}
	fmt.Fprintf(&b, "*Project:* %s\n", projectName)
	fmt.Fprintf(&b, "*Client:* %s\n", r.ClientName)
	fmt.Fprintf(&b, "*Amount:* %s\n", FormatUSD(r.CalculatedAmount))
	fmt.Fprintf(&b, "*Status:* %s\n", capitalize(string(r.Status)))

	switch t := r.Terms.(type) {
	case CountBased:
		b.WriteString("*Type:* Count-Based\n")
		if t.AchievedCountTotal != nil {
			fmt.Fprintf(&b, "*Total Achieved:* %s %s\n", t.AchievedCountTotal.String(), t.CountMetricLabelUsed)
		}
	case Hourly:
		b.WriteString("*Type:* Hourly\n")
		fmt.Fprintf(&b, "*Hours Billed:* %s\n", t.HoursBilled.StringFixed(2))
		if !t.RateApplied.IsZero() {
			fmt.Fprintf(&b, "*Rate:* %s/hr\n", FormatUSD(t.RateApplied))
		}
	}

	if a := r.AttendanceSummary; a != nil {
		fmt.Fprintf(&b, "\n*Attendance Summary for Period:*\n- Days Present: %d\n- Days on Leave (Approved): %d", a.DaysPresent, a.DaysOnLeave)
	}
	if r.Notes != "" {
		fmt.Fprintf(&b, "\n\n*Notes from Admin:*\n%s\n", r.Notes)
	}
	if len(r.Details) > 0 {
		b.WriteString("\n\nA detailed project breakdown is available in the \"My Billing\" section on your dashboard.")
	}
	b.WriteString("\n\nYou can view full details in the \"My Billing\" section.")
	return b.String()
}

// DisplayDate formats an ISO date as "Jan 2, 2006". Unparseable input is
// returned as is.
func DisplayDate(iso string) string {
	t, err := time.Parse(DateLayout, iso)
	if err != nil {
		return iso
	}
	return t.Format("Jan 2, 2006")
}

// FormatUSD formats an amount as US dollars with thousands separators.
func FormatUSD(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	s := d.StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + "$" + b.String() + "." + frac
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
