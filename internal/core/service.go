package core

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/billing/internal/billing"
	"github.com/JonMunkholm/billing/internal/config"
	"github.com/JonMunkholm/billing/internal/directory"
	"github.com/JonMunkholm/billing/internal/logging"
	"github.com/JonMunkholm/billing/internal/metrics"
	"github.com/JonMunkholm/billing/internal/store"
)

// Service is the entry point for every billing operation. The HTTP
// handlers and the CLI both drive it.
type Service struct {
	repo    store.Repository
	dir     *directory.Directory
	limiter *ImportLimiter
	metrics *metrics.Metrics
	cfg     config.ImportConfig

	now   func() time.Time
	newID func() string
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records imports and mutations on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock replaces time.Now for record timestamps and export names.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo store.Repository, dir *directory.Directory, cfg config.ImportConfig, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		dir:     dir,
		limiter: NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		cfg:     cfg,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Directory returns the users and projects records refer to.
func (s *Service) Directory() *directory.Directory { return s.dir }

// Ping checks the repository.
func (s *Service) Ping(ctx context.Context) error { return s.repo.Ping(ctx) }

// Create prices and stores a record. It satisfies importer.Creator.
func (s *Service) Create(ctx context.Context, in billing.NewRecord) (billing.Record, error) {
	rec, err := billing.Calculate(in, s.newID(), s.now().UTC())
	if err != nil {
		return billing.Record{}, err
	}
	rec, err = s.repo.Create(ctx, rec)
	if err != nil {
		return billing.Record{}, fmt.Errorf("create billing record: %w", err)
	}
	s.metrics.Mutation(metrics.OpCreate)
	return rec, nil
}

// CreateManual stores a hand-entered record. Only hourly projects are
// accepted and the rate must be given; the project rate is not used.
func (s *Service) CreateManual(ctx context.Context, in billing.NewRecord) (billing.Record, error) {
	if _, ok := s.dir.User(in.UserID); !ok {
		return billing.Record{}, &billing.ValidationError{Field: "userId", Value: in.UserID, Message: fmt.Sprintf("employee \"%s\" does not exist", in.UserID)}
	}
	project, ok := s.dir.Project(in.ProjectID)
	if !ok {
		return billing.Record{}, &billing.ValidationError{Field: "projectId", Value: in.ProjectID, Message: fmt.Sprintf("project \"%s\" does not exist", in.ProjectID)}
	}
	if err := billing.ValidateManualEntry(in, project); err != nil {
		return billing.Record{}, err
	}
	in.ProjectName = project.Name

	rec, err := s.Create(ctx, in)
	if err != nil {
		return billing.Record{}, err
	}
	logging.FromContext(ctx).Info("billing record created", "id", rec.ID, "user_id", rec.UserID, "amount", rec.CalculatedAmount.String())
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id string) (billing.Record, error) {
	return s.repo.Get(ctx, id)
}

// Update applies p to the record and re-prices hourly records whose hours
// or rate changed.
func (s *Service) Update(ctx context.Context, id string, p billing.Patch) (billing.Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return billing.Record{}, err
	}

	if p.UserID != nil {
		if _, ok := s.dir.User(*p.UserID); !ok {
			return billing.Record{}, &billing.ValidationError{Field: "userId", Value: *p.UserID, Message: fmt.Sprintf("employee \"%s\" does not exist", *p.UserID)}
		}
	}
	projectID := rec.ProjectID
	if p.ProjectID != nil {
		if _, ok := s.dir.Project(*p.ProjectID); !ok {
			return billing.Record{}, &billing.ValidationError{Field: "projectId", Value: *p.ProjectID, Message: fmt.Sprintf("project \"%s\" does not exist", *p.ProjectID)}
		}
		projectID = *p.ProjectID
	}
	if p.HoursBilled != nil && !p.HoursBilled.IsPositive() {
		return billing.Record{}, &billing.ValidationError{Field: "hoursBilled", Value: p.HoursBilled.String(), Message: "must be a positive number"}
	}
	if p.RateApplied != nil && !p.RateApplied.IsPositive() {
		return billing.Record{}, &billing.ValidationError{Field: "rateApplied", Value: p.RateApplied.String(), Message: "must be a positive number"}
	}

	var project *billing.Project
	if pr, ok := s.dir.Project(projectID); ok {
		project = &pr
	}

	updated, err := billing.ApplyPatch(rec, p, project, s.now().UTC())
	if err != nil {
		return billing.Record{}, err
	}
	updated, err = s.repo.Update(ctx, updated)
	if err != nil {
		return billing.Record{}, fmt.Errorf("update billing record: %w", err)
	}
	s.metrics.Mutation(metrics.OpUpdate)

	if !updated.CalculatedAmount.Equal(rec.CalculatedAmount) {
		logging.FromContext(ctx).Info("billing record repriced", "id", id,
			"old_amount", rec.CalculatedAmount.String(), "new_amount", updated.CalculatedAmount.String())
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.metrics.Mutation(metrics.OpDelete)
	logging.FromContext(ctx).Info("billing record deleted", "id", id)
	return nil
}

// ListOptions narrows List and Export. Search matches employee name,
// project name or client name, ignoring case.
type ListOptions struct {
	Filter billing.Filter
	Search string
}

// List returns matching records, newest date first.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]billing.Record, error) {
	recs, err := s.repo.List(ctx, opts.Filter)
	if err != nil {
		return nil, err
	}

	if q := strings.ToLower(strings.TrimSpace(opts.Search)); q != "" {
		kept := recs[:0]
		for _, r := range recs {
			if strings.Contains(strings.ToLower(s.employeeName(r.UserID)), q) ||
				strings.Contains(strings.ToLower(s.projectName(r)), q) ||
				strings.Contains(strings.ToLower(r.ClientName), q) {
				kept = append(kept, r)
			}
		}
		recs = kept
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Date > recs[j].Date })
	return recs, nil
}

// Notice renders the message sent to the record's employee.
func (s *Service) Notice(ctx context.Context, id string) (string, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	user, ok := s.dir.User(rec.UserID)
	if !ok {
		slog.Warn("notice for record with unknown employee", "id", id, "user_id", rec.UserID)
		user = billing.User{ID: rec.UserID, Username: rec.UserID}
	}
	if rec.ProjectName == "" {
		rec.ProjectName = s.projectName(rec)
	}
	return billing.Notice(rec, user), nil
}

// LimiterStatus reports import slot usage.
func (s *Service) LimiterStatus() LimiterStatus { return s.limiter.Status() }

// WaitForImports blocks until running imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) employeeName(userID string) string {
	if u, ok := s.dir.User(userID); ok {
		return u.FullName()
	}
	return "Unknown User"
}

func (s *Service) projectName(r billing.Record) string {
	if r.ProjectName != "" {
		return r.ProjectName
	}
	if p, ok := s.dir.Project(r.ProjectID); ok {
		return p.Name
	}
	return ""
}
