// Package store persists billing records.
//
// Three backends implement Repository: an in-memory slice for tests and
// demos, PostgreSQL through pgxpool, and SQLite through database/sql. Each
// creates its own table on open. Unknown ids are reported as
// billing.ErrNotFound by every backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JonMunkholm/billing/internal/billing"
	"github.com/JonMunkholm/billing/internal/config"
)

// ErrConflict is returned when a record id already exists.
var ErrConflict = errors.New("billing record already exists")

// Repository stores billing records. Implementations are safe for
// concurrent use.
type Repository interface {
	Create(ctx context.Context, rec billing.Record) (billing.Record, error)
	Get(ctx context.Context, id string) (billing.Record, error)
	Update(ctx context.Context, rec billing.Record) (billing.Record, error)
	Delete(ctx context.Context, id string) error
	// List returns matching records, newest date first.
	List(ctx context.Context, f billing.Filter) ([]billing.Record, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Repository, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		slog.Info("using in-memory store")
		return NewMemory(), nil

	case config.DriverPostgres:
		repo, err := OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if u, err := url.Parse(cfg.URL); err == nil {
			slog.Info("connected to database", "driver", cfg.Driver, "name", strings.TrimPrefix(u.Path, "/"))
		}
		return repo, nil

	case config.DriverSQLite:
		repo, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("connected to database", "driver", cfg.Driver, "path", cfg.SQLitePath)
		return repo, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
