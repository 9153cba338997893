package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/billing/internal/billing"
	"github.com/JonMunkholm/billing/internal/config"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS billing_records (
	id                      TEXT PRIMARY KEY,
	user_id                 TEXT NOT NULL,
	project_id              TEXT NOT NULL,
	project_name            TEXT NOT NULL DEFAULT '',
	client_name             TEXT NOT NULL,
	date                    DATE NOT NULL,
	status                  TEXT NOT NULL CHECK (status IN ('pending', 'paid', 'overdue')),
	billing_type            TEXT NOT NULL CHECK (billing_type IN ('hourly', 'count_based')),
	hours_billed            NUMERIC,
	rate_applied            NUMERIC,
	achieved_count_total    NUMERIC,
	count_metric_label_used TEXT,
	calculated_amount       NUMERIC NOT NULL,
	notes                   TEXT,
	billing_period_start    DATE,
	billing_period_end      DATE,
	attendance_summary      JSONB,
	details                 JSONB,
	created_at              TIMESTAMPTZ NOT NULL,
	updated_at              TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS billing_records_user_date_idx ON billing_records (user_id, date DESC);
CREATE INDEX IF NOT EXISTS billing_records_date_idx ON billing_records (date DESC, created_at DESC);
`

const pgColumns = `id, user_id, project_id, project_name, client_name, date, status, billing_type,
	hours_billed, rate_applied, achieved_count_total, count_metric_label_used,
	calculated_amount, notes, billing_period_start, billing_period_end,
	attendance_summary, details, created_at, updated_at`

// pgUniqueViolation is the SQLSTATE for a duplicate key.
const pgUniqueViolation = "23505"

// Postgres stores records in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool with the configured limits and creates the
// schema.
func OpenPostgres(ctx context.Context, cfg config.StoreConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := NewPostgres(pool)
	if err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgres wraps an existing pool. Call Migrate before first use.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the table and indexes if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (p *Postgres) Create(ctx context.Context, rec billing.Record) (billing.Record, error) {
	f, err := flatten(rec)
	if err != nil {
		return billing.Record{}, err
	}

	_, err = p.pool.Exec(ctx, `INSERT INTO billing_records (`+pgColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		pgArgs(f)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return billing.Record{}, ErrConflict
		}
		return billing.Record{}, fmt.Errorf("insert billing record: %w", err)
	}
	return rec, nil
}

func (p *Postgres) Get(ctx context.Context, id string) (billing.Record, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+pgColumns+` FROM billing_records WHERE id = $1`, id)
	rec, err := scanPg(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return billing.Record{}, billing.ErrNotFound
	}
	if err != nil {
		return billing.Record{}, fmt.Errorf("get billing record %s: %w", id, err)
	}
	return rec, nil
}

func (p *Postgres) Update(ctx context.Context, rec billing.Record) (billing.Record, error) {
	f, err := flatten(rec)
	if err != nil {
		return billing.Record{}, err
	}

	args := pgArgs(f)
	// Same placeholders as insert minus created_at.
	tag, err := p.pool.Exec(ctx, `UPDATE billing_records SET
			user_id = $2, project_id = $3, project_name = $4, client_name = $5, date = $6,
			status = $7, billing_type = $8, hours_billed = $9, rate_applied = $10,
			achieved_count_total = $11, count_metric_label_used = $12, calculated_amount = $13,
			notes = $14, billing_period_start = $15, billing_period_end = $16,
			attendance_summary = $17, details = $18, updated_at = $19
		WHERE id = $1`,
		append(args[:18:18], args[19])...)
	if err != nil {
		return billing.Record{}, fmt.Errorf("update billing record %s: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return billing.Record{}, billing.ErrNotFound
	}
	return p.Get(ctx, rec.ID)
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM billing_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete billing record %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrNotFound
	}
	return nil
}

func (p *Postgres) List(ctx context.Context, f billing.Filter) ([]billing.Record, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if f.UserID != "" {
		add("user_id = ?", f.UserID)
	}
	if f.ProjectID != "" {
		add("project_id = ?", f.ProjectID)
	}
	if f.Status != "" {
		add("status = ?", string(f.Status))
	}
	if f.StartDate != "" {
		add("date >= ?", toPgDate(f.StartDate))
	}
	if f.EndDate != "" {
		add("date <= ?", toPgDate(f.EndDate))
	}

	query := `SELECT ` + pgColumns + ` FROM billing_records`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY date DESC, created_at DESC`

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list billing records: %w", err)
	}
	defer rows.Close()

	out := []billing.Record{}
	for rows.Next() {
		rec, err := scanPg(rows)
		if err != nil {
			return nil, fmt.Errorf("scan billing record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func pgArgs(f flatRecord) []any {
	return []any{
		f.ID, f.UserID, f.ProjectID, f.ProjectName, f.ClientName,
		toPgDate(f.Date), f.Status, f.BillingType,
		toPgNumeric(f.HoursBilled), toPgNumeric(f.RateApplied), toPgNumeric(f.AchievedCount),
		toPgText(f.MetricLabel),
		toPgNumeric(&f.Amount), toPgText(f.Notes),
		toPgDate(f.PeriodStart), toPgDate(f.PeriodEnd),
		f.Attendance, f.Details,
		f.CreatedAt, f.UpdatedAt,
	}
}

func scanPg(row pgx.Row) (billing.Record, error) {
	var (
		f                             flatRecord
		date, periodStart, periodEnd  pgtype.Date
		hours, rate, achieved, amount pgtype.Numeric
		metricLabel, notes            pgtype.Text
	)
	err := row.Scan(
		&f.ID, &f.UserID, &f.ProjectID, &f.ProjectName, &f.ClientName,
		&date, &f.Status, &f.BillingType,
		&hours, &rate, &achieved, &metricLabel,
		&amount, &notes, &periodStart, &periodEnd,
		&f.Attendance, &f.Details,
		&f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return billing.Record{}, err
	}

	f.Date = fromPgDate(date)
	f.PeriodStart = fromPgDate(periodStart)
	f.PeriodEnd = fromPgDate(periodEnd)
	f.MetricLabel = metricLabel.String
	f.Notes = notes.String

	if f.HoursBilled, err = fromPgNumeric(hours); err != nil {
		return billing.Record{}, err
	}
	if f.RateApplied, err = fromPgNumeric(rate); err != nil {
		return billing.Record{}, err
	}
	if f.AchievedCount, err = fromPgNumeric(achieved); err != nil {
		return billing.Record{}, err
	}
	total, err := fromPgNumeric(amount)
	if err != nil {
		return billing.Record{}, err
	}
	if total != nil {
		f.Amount = *total
	}
	return f.record()
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgDate(s string) pgtype.Date {
	t, err := time.Parse(billing.DateLayout, s)
	if err != nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: t, Valid: true}
}

func fromPgDate(d pgtype.Date) string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(billing.DateLayout)
}

func toPgNumeric(d *decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	if d == nil {
		return n
	}
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}
	}
	return n
}

func fromPgNumeric(n pgtype.Numeric) (*decimal.Decimal, error) {
	if !n.Valid {
		return nil, nil
	}
	v, err := n.Value()
	if err != nil {
		return nil, fmt.Errorf("read numeric: %w", err)
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("read numeric: unexpected %T", v)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("read numeric %q: %w", s, err)
	}
	return &d, nil
}
