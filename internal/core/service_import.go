package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/billing/internal/csvio"
	"github.com/JonMunkholm/billing/internal/importer"
	"github.com/JonMunkholm/billing/internal/logging"
	"github.com/JonMunkholm/billing/internal/metrics"
)

// ErrFileTooLarge is returned when an import exceeds ImportConfig.MaxFileSize.
var ErrFileTooLarge = errors.New("file too large")

// Import parses a CSV file and creates one record per valid row.
//
// The call waits for an import slot first. Once it holds one, the run is
// detached from ctx cancellation and bounded only by the import timeout,
// so a client disconnect never leaves a file half imported. The returned
// error is non-nil only when nothing could be imported: a busy limiter,
// an oversized or unparseable file, or missing header columns.
func (s *Service) Import(ctx context.Context, fileName string, r io.Reader) (*importer.Report, error) {
	log := logging.WithFields(ctx, "file", fileName, "client_ip", ClientIPFromContext(ctx))

	if err := s.limiter.Acquire(ctx); err != nil {
		log.Warn("import rejected", "error", err)
		s.observe(metrics.OutcomeRejected, 0, nil)
		return nil, err
	}
	defer s.limiter.Release()
	if s.metrics != nil {
		s.metrics.ImportsActive.Inc()
		defer s.metrics.ImportsActive.Dec()
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	log.Info("import started")

	report, err := s.runImport(runCtx, r)
	elapsed := time.Since(start)
	if err != nil {
		log.Warn("import failed", "error", err, "duration", elapsed)
		s.observe(metrics.OutcomeFailed, elapsed, nil)
		return nil, err
	}

	skipped := report.Count(importer.KindSkipped)
	invalid := report.Count(importer.KindValidation)
	failed := report.Count(importer.KindPersistence)
	outcome := metrics.OutcomeSuccess
	switch {
	case len(report.Errors) > 0 && len(report.Successes) == 0:
		outcome = metrics.OutcomeFailed
	case len(report.Errors) > 0:
		outcome = metrics.OutcomePartial
	}
	s.observe(outcome, elapsed, map[string]int{
		metrics.RowImported:   len(report.Successes),
		metrics.RowSkipped:    skipped,
		metrics.RowValidation: invalid,
		metrics.RowPersist:    failed,
	})

	log.Info("import finished",
		"outcome", outcome,
		"imported", len(report.Successes),
		"skipped", skipped,
		"invalid", invalid,
		"failed", failed,
		"duration", elapsed,
	)
	return report, nil
}

func (s *Service) runImport(ctx context.Context, r io.Reader) (*importer.Report, error) {
	limit := s.cfg.MaxFileSize
	if limit <= 0 {
		limit = 10 << 20
	}
	counter := &csvio.CountingReader{R: io.LimitReader(r, limit+1)}

	parsed, err := csvio.ParseReader(counter)
	if counter.BytesRead > limit {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, limit)
	}
	if err != nil {
		return nil, err
	}

	im := importer.New(s.dir, s, importer.WithWorkers(s.cfg.ValidationWorkers))
	return im.Import(ctx, parsed)
}

func (s *Service) observe(outcome string, elapsed time.Duration, rows map[string]int) {
	s.metrics.ObserveImport(outcome, elapsed, rows)
}
