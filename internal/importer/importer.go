// Package importer validates parsed CSV rows against the directory and turns
// them into billing records.
//
// Validation is pure and runs on a bounded pool of goroutines. Records are
// then created one at a time in file order, so the report reads top to
// bottom like the file. A failing row never stops the rows after it.
package importer

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/billing/internal/billing"
	"github.com/JonMunkholm/billing/internal/csvio"
)

// Column names of the import file. Lookup ignores case.
const (
	ColEmployee        = "employeeIdentifier"
	ColProject         = "projectIdentifier"
	ColClient          = "clientName"
	ColDate            = "date"
	ColStatus          = "status"
	ColIsCountBased    = "isCountBased"
	ColHoursBilled     = "hoursBilled"
	ColRateApplied     = "rateApplied"
	ColAmount          = "calculatedAmount"
	ColAchievedCount   = "achievedCountTotal"
	ColMetricLabelUsed = "countMetricLabelUsed"
	ColNotes           = "notes"
)

// RequiredColumns must all be present in the header row.
var RequiredColumns = []string{ColEmployee, ColProject, ColClient, ColDate, ColStatus, ColIsCountBased}

// Columns is the full import layout in template order.
var Columns = []string{
	ColEmployee, ColProject, ColClient, ColDate, ColStatus, ColIsCountBased,
	ColHoursBilled, ColRateApplied, ColAmount, ColAchievedCount, ColMetricLabelUsed, ColNotes,
}

// Resolver looks up the people and projects rows refer to.
type Resolver interface {
	ResolveUser(ident string) (billing.User, bool)
	ResolveProject(ident string) (billing.Project, bool)
}

// Creator persists a validated record.
type Creator interface {
	Create(ctx context.Context, in billing.NewRecord) (billing.Record, error)
}

// CreatorFunc adapts a function to Creator.
type CreatorFunc func(ctx context.Context, in billing.NewRecord) (billing.Record, error)

func (f CreatorFunc) Create(ctx context.Context, in billing.NewRecord) (billing.Record, error) {
	return f(ctx, in)
}

// Report is the outcome of one import. Errors lists skipped rows first,
// then row failures in file order.
type Report struct {
	Successes []string `json:"successes"`
	Errors    []string `json:"errors"`

	Imported  []billing.Record `json:"-"`
	RowErrors []*RowError      `json:"-"`
}

func (r *Report) fail(e *RowError) {
	r.RowErrors = append(r.RowErrors, e)
	r.Errors = append(r.Errors, e.Error())
}

// Count returns the number of row errors of the given kind.
func (r *Report) Count(kind Kind) int {
	n := 0
	for _, e := range r.RowErrors {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Importer maps parsed rows to records.
type Importer struct {
	resolver Resolver
	creator  Creator
	workers  int
}

// Option configures an Importer.
type Option func(*Importer)

// WithWorkers bounds the number of rows validated concurrently.
func WithWorkers(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.workers = n
		}
	}
}

// New creates an Importer.
func New(resolver Resolver, creator Creator, opts ...Option) *Importer {
	im := &Importer{
		resolver: resolver,
		creator:  creator,
		workers:  runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// prepared is the validation outcome of one row.
type prepared struct {
	row     int
	payload billing.NewRecord
	user    billing.User
	project billing.Project
	err     *RowError
}

// Import validates every row of parsed and creates the valid ones.
// A *MissingHeaderError is returned, with nothing created, when the header
// row lacks a required column. Any other failure is recorded in the report.
func (im *Importer) Import(ctx context.Context, parsed *csvio.Result) (*Report, error) {
	var missing []string
	for _, col := range RequiredColumns {
		if !parsed.HasHeader(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingHeaderError{Missing: missing}
	}

	report := &Report{Successes: []string{}, Errors: []string{}}
	for _, s := range parsed.Skipped {
		report.fail(rowError(s.RowNumber, KindSkipped, "Skipped - %s (Content: \"%s...\")", s.Reason, s.RowContent))
	}

	results := make([]prepared, len(parsed.Rows))
	g := new(errgroup.Group)
	g.SetLimit(im.workers)
	for i, row := range parsed.Rows {
		g.Go(func() error {
			results[i] = im.prepare(row)
			return nil
		})
	}
	_ = g.Wait()

	for _, p := range results {
		if p.err != nil {
			report.fail(p.err)
			continue
		}
		rec, err := im.creator.Create(ctx, p.payload)
		if err != nil {
			report.fail(rowError(p.row, KindPersistence, "API Error - %w", err))
			continue
		}
		report.Imported = append(report.Imported, rec)
		report.Successes = append(report.Successes,
			fmt.Sprintf("Row %d: Record for %s / %s imported.", p.row, p.user.Username, p.project.Name))
	}

	return report, nil
}

func (im *Importer) prepare(row csvio.Row) prepared {
	p := prepared{row: row.Number}
	get := func(col string) string {
		v, _ := row.Get(col)
		return strings.TrimSpace(v)
	}
	invalid := func(format string, args ...any) prepared {
		p.err = rowError(row.Number, KindValidation, format, args...)
		return p
	}

	employee, projectIdent, client := get(ColEmployee), get(ColProject), get(ColClient)
	date, statusStr, countBased := get(ColDate), get(ColStatus), get(ColIsCountBased)
	if employee == "" || projectIdent == "" || client == "" || date == "" || statusStr == "" || countBased == "" {
		return invalid("Missing required fields (%s).", strings.Join(RequiredColumns, ", "))
	}

	user, ok := im.resolver.ResolveUser(employee)
	if !ok {
		return invalid("Employee \"%s\" not found.", employee)
	}
	project, ok := im.resolver.ResolveProject(projectIdent)
	if !ok {
		return invalid("Project \"%s\" not found.", projectIdent)
	}
	status, ok := billing.ParseStatus(statusStr)
	if !ok {
		return invalid("Invalid status \"%s\". Must be one of: %s.", statusStr, strings.Join(billing.StatusNames(), ", "))
	}
	isoDate, ok := parseDate(date)
	if !ok {
		return invalid("Invalid date \"%s\". Use YYYY-MM-DD.", date)
	}

	p.user, p.project = user, project
	p.payload = billing.NewRecord{
		UserID:      user.ID,
		ProjectID:   project.ID,
		ProjectName: project.Name,
		ClientName:  client,
		Date:        isoDate,
		Status:      status,
		Notes:       get(ColNotes),
	}

	if strings.EqualFold(countBased, "true") {
		amount, ok := parseNumber(get(ColAmount))
		if !ok {
			return invalid("'%s' is required and must be a number for count-based records.", ColAmount)
		}
		terms := billing.CountBased{CountMetricLabelUsed: get(ColMetricLabelUsed)}
		if terms.CountMetricLabelUsed == "" {
			terms.CountMetricLabelUsed = project.CountMetricLabel
		}
		if raw := get(ColAchievedCount); raw != "" {
			n, ok := parseNumber(raw)
			if !ok {
				return invalid("'%s' must be a number when provided.", ColAchievedCount)
			}
			terms.AchievedCountTotal = &n
		}
		p.payload.Terms = terms
		p.payload.Amount = amount
		return p
	}

	hours, ok := parsePositive(get(ColHoursBilled))
	if !ok {
		return invalid("'%s' is required and must be a positive number for hourly records.", ColHoursBilled)
	}
	rate := project.RatePerHour
	if raw := get(ColRateApplied); raw != "" {
		rate, ok = parsePositive(raw)
	} else {
		ok = rate.IsPositive()
	}
	if !ok {
		return invalid("'%s' is required and must be a positive number (or project default rate) for hourly records.", ColRateApplied)
	}
	p.payload.Terms = billing.Hourly{HoursBilled: hours, RateApplied: rate}
	return p
}
