package core

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/JonMunkholm/billing/internal/billing"
	"github.com/JonMunkholm/billing/internal/csvio"
	"github.com/JonMunkholm/billing/internal/importer"
)

// TemplateFileName is the download name of the import template.
const TemplateFileName = "billing_import_template.csv"

const notApplicable = "N/A"

// ErrNoRecords is returned by Export when nothing matches.
var ErrNoRecords = errors.New("no data to export")

// ExportFileName is the download name for an export made at now.
func ExportFileName(now time.Time) string {
	return "billing_records_" + now.Format(billing.DateLayout) + ".csv"
}

// ExportFileName names an export made now.
func (s *Service) ExportFileName() string { return ExportFileName(s.now()) }

// Export writes the matching records as CSV and returns how many rows it
// wrote.
func (s *Service) Export(ctx context.Context, opts ListOptions, w io.Writer) (int, error) {
	objs, err := s.ExportObjects(ctx, opts)
	if err != nil {
		return 0, err
	}
	if err := csvio.Export(w, objs); err != nil {
		return 0, err
	}
	return len(objs), nil
}

// ExportObjects returns the export rows for the matching records, newest
// first. It returns ErrNoRecords when nothing matches.
func (s *Service) ExportObjects(ctx context.Context, opts ListOptions) ([]csvio.Object, error) {
	recs, err := s.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNoRecords
	}

	objs := make([]csvio.Object, len(recs))
	for i, r := range recs {
		objs[i] = s.exportObject(r)
	}
	return objs, nil
}

func (s *Service) exportObject(r billing.Record) csvio.Object {
	typ, hours, rate := "Hourly", notApplicable, notApplicable
	achieved, label := notApplicable, notApplicable

	switch t := r.Terms.(type) {
	case billing.Hourly:
		hours = t.HoursBilled.StringFixed(2)
		rate = t.RateApplied.StringFixed(2)
	case billing.CountBased:
		typ = "Count-Based"
		if t.AchievedCountTotal != nil {
			achieved = t.AchievedCountTotal.String()
		}
		if t.CountMetricLabelUsed != "" {
			label = t.CountMetricLabelUsed
		}
	}

	project := s.projectName(r)
	if project == "" {
		project = notApplicable
	}

	return csvio.Object{
		{Key: "Date", Value: billing.DisplayDate(r.Date)},
		{Key: "Employee Name", Value: s.employeeName(r.UserID)},
		{Key: "Project Name", Value: project},
		{Key: "Client Name", Value: r.ClientName},
		{Key: "Amount", Value: r.CalculatedAmount.String()},
		{Key: "Status", Value: string(r.Status)},
		{Key: "Type", Value: typ},
		{Key: "Hours Billed", Value: hours},
		{Key: "Rate Applied", Value: rate},
		{Key: "Achieved Count", Value: achieved},
		{Key: "Metric Label", Value: label},
		{Key: "Billing Period Start", Value: displayOrNA(r.BillingPeriodStartDate)},
		{Key: "Billing Period End", Value: displayOrNA(r.BillingPeriodEndDate)},
		{Key: "Notes", Value: r.Notes},
	}
}

func displayOrNA(iso string) string {
	if iso == "" {
		return notApplicable
	}
	return billing.DisplayDate(iso)
}

// templateRows are the example rows of the import template, one hourly
// and one count-based.
var templateRows = []map[string]string{
	{
		importer.ColEmployee: "employee1", importer.ColProject: "proj1", importer.ColClient: "Client Alpha",
		importer.ColDate: "2023-10-25", importer.ColStatus: "pending", importer.ColIsCountBased: "false",
		importer.ColHoursBilled: "8", importer.ColRateApplied: "75", importer.ColNotes: "Hourly work example",
	},
	{
		importer.ColEmployee: "employee2", importer.ColProject: "proj3", importer.ColClient: "Client Beta",
		importer.ColDate: "2023-10-26", importer.ColStatus: "pending", importer.ColIsCountBased: "true",
		importer.ColAmount: "125", importer.ColAchievedCount: "250", importer.ColNotes: "Count-based work example",
	},
}

// WriteTemplate writes an import file with every column and two example
// rows.
func WriteTemplate(w io.Writer) error {
	objs := make([]csvio.Object, len(templateRows))
	for i, row := range templateRows {
		obj := make(csvio.Object, len(importer.Columns))
		for j, col := range importer.Columns {
			obj[j] = csvio.Field{Key: col, Value: row[col]}
		}
		objs[i] = obj
	}
	return csvio.Export(w, objs)
}
