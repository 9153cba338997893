package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/billing/internal/billing"
)

// Decimals are stored as TEXT so no precision is lost to REAL.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS billing_records (
	id                      TEXT PRIMARY KEY,
	user_id                 TEXT NOT NULL,
	project_id              TEXT NOT NULL,
	project_name            TEXT NOT NULL DEFAULT '',
	client_name             TEXT NOT NULL,
	date                    TEXT NOT NULL,
	status                  TEXT NOT NULL CHECK (status IN ('pending', 'paid', 'overdue')),
	billing_type            TEXT NOT NULL CHECK (billing_type IN ('hourly', 'count_based')),
	hours_billed            TEXT,
	rate_applied            TEXT,
	achieved_count_total    TEXT,
	count_metric_label_used TEXT NOT NULL DEFAULT '',
	calculated_amount       TEXT NOT NULL,
	notes                   TEXT NOT NULL DEFAULT '',
	billing_period_start    TEXT NOT NULL DEFAULT '',
	billing_period_end      TEXT NOT NULL DEFAULT '',
	attendance_summary      TEXT,
	details                 TEXT,
	created_at              TEXT NOT NULL,
	updated_at              TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_billing_records_date ON billing_records(date DESC, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_billing_records_user ON billing_records(user_id);
`

const sqliteColumns = `id, user_id, project_id, project_name, client_name, date, status, billing_type,
	hours_billed, rate_applied, achieved_count_total, count_metric_label_used,
	calculated_amount, notes, billing_period_start, billing_period_end,
	attendance_summary, details, created_at, updated_at`

// SQLite stores records in a SQLite database file.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path and its schema.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	inMemory := path == ":memory:"

	dsn := ":memory:"
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if inMemory {
		// Each connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLite{db: db, path: path}, nil
}

func (s *SQLite) Create(ctx context.Context, rec billing.Record) (billing.Record, error) {
	f, err := flatten(rec)
	if err != nil {
		return billing.Record{}, err
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO billing_records (`+sqliteColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, sqliteArgs(f)...)
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return billing.Record{}, ErrConflict
		}
		return billing.Record{}, fmt.Errorf("insert billing record: %w", err)
	}
	return rec, nil
}

func (s *SQLite) Get(ctx context.Context, id string) (billing.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM billing_records WHERE id = ?`, id)
	rec, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return billing.Record{}, billing.ErrNotFound
	}
	if err != nil {
		return billing.Record{}, fmt.Errorf("get billing record %s: %w", id, err)
	}
	return rec, nil
}

func (s *SQLite) Update(ctx context.Context, rec billing.Record) (billing.Record, error) {
	f, err := flatten(rec)
	if err != nil {
		return billing.Record{}, err
	}

	args := sqliteArgs(f)
	// Shift id to the end for the WHERE clause and drop created_at.
	params := append(append([]any{}, args[1:18]...), args[19], args[0])
	res, err := s.db.ExecContext(ctx, `UPDATE billing_records SET
			user_id = ?, project_id = ?, project_name = ?, client_name = ?, date = ?,
			status = ?, billing_type = ?, hours_billed = ?, rate_applied = ?,
			achieved_count_total = ?, count_metric_label_used = ?, calculated_amount = ?,
			notes = ?, billing_period_start = ?, billing_period_end = ?,
			attendance_summary = ?, details = ?, updated_at = ?
		WHERE id = ?`, params...)
	if err != nil {
		return billing.Record{}, fmt.Errorf("update billing record %s: %w", rec.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return billing.Record{}, billing.ErrNotFound
	}
	return s.Get(ctx, rec.ID)
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM billing_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete billing record %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return billing.ErrNotFound
	}
	return nil
}

func (s *SQLite) List(ctx context.Context, f billing.Filter) ([]billing.Record, error) {
	var (
		conds []string
		args  []any
	)
	for _, c := range []struct {
		cond  string
		value string
	}{
		{"user_id = ?", f.UserID},
		{"project_id = ?", f.ProjectID},
		{"status = ?", string(f.Status)},
		{"date >= ?", f.StartDate},
		{"date <= ?", f.EndDate},
	} {
		if c.value != "" {
			conds = append(conds, c.cond)
			args = append(args, c.value)
		}
	}

	query := `SELECT ` + sqliteColumns + ` FROM billing_records`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY date DESC, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list billing records: %w", err)
	}
	defer rows.Close()

	out := []billing.Record{}
	for rows.Next() {
		rec, err := scanSQLite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan billing record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) Close() error { return s.db.Close() }

// timestampLayout is fixed-width UTC so created_at sorts correctly as text.
// RFC3339Nano trims trailing zeros, and "…00.1Z" would sort above "…00.12Z".
// Reads use RFC3339Nano, which accepts both forms.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func sqliteArgs(f flatRecord) []any {
	return []any{
		f.ID, f.UserID, f.ProjectID, f.ProjectName, f.ClientName,
		f.Date, f.Status, f.BillingType,
		nullDecimal(f.HoursBilled), nullDecimal(f.RateApplied), nullDecimal(f.AchievedCount),
		f.MetricLabel, f.Amount, f.Notes, f.PeriodStart, f.PeriodEnd,
		nullJSON(f.Attendance), nullJSON(f.Details),
		f.CreatedAt.UTC().Format(timestampLayout), f.UpdatedAt.UTC().Format(timestampLayout),
	}
}

func scanSQLite(row interface{ Scan(...any) error }) (billing.Record, error) {
	var (
		f                     flatRecord
		hours, rate, achieved decimal.NullDecimal
		attendance, details   sql.NullString
		createdAt, updatedAt  string
	)
	err := row.Scan(
		&f.ID, &f.UserID, &f.ProjectID, &f.ProjectName, &f.ClientName,
		&f.Date, &f.Status, &f.BillingType,
		&hours, &rate, &achieved, &f.MetricLabel,
		&f.Amount, &f.Notes, &f.PeriodStart, &f.PeriodEnd,
		&attendance, &details,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return billing.Record{}, err
	}

	f.HoursBilled = fromNullDecimal(hours)
	f.RateApplied = fromNullDecimal(rate)
	f.AchievedCount = fromNullDecimal(achieved)
	if attendance.Valid {
		f.Attendance = []byte(attendance.String)
	}
	if details.Valid {
		f.Details = []byte(details.String)
	}
	if f.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return billing.Record{}, fmt.Errorf("parse created_at: %w", err)
	}
	if f.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return billing.Record{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return f.record()
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func fromNullDecimal(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}

func nullJSON(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
