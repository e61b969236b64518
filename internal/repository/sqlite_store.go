package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"PillarCast/internal/domain/models"
	domrepo "PillarCast/internal/domain/repository"
	pkgsqlite "PillarCast/pkg/sqlite"
	applogger "PillarCast/pkg/logger"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS predictions (
		ts_ms          INTEGER PRIMARY KEY,
		id             TEXT NOT NULL UNIQUE,
		composite      REAL NOT NULL,
		move_pct       REAL NOT NULL,
		category       TEXT NOT NULL,
		weights_source TEXT NOT NULL,
		payload        TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS metric_samples (
		metric TEXT NOT NULL,
		ts_ms  INTEGER NOT NULL,
		value  REAL NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_metric_samples_metric_ts ON metric_samples (metric, ts_ms)`,
}

// SQLitePredictionStore is the single-node append-only record log.
type SQLitePredictionStore struct {
	client *pkgsqlite.Client
	db     *sql.DB
	l      *applogger.Logger
}

func NewSQLitePredictionStore(c *pkgsqlite.Client, l *applogger.Logger) *SQLitePredictionStore {
	return &SQLitePredictionStore{client: c, db: c.DB(), l: l}
}

func (s *SQLitePredictionStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, sqliteSchema)
}

// Persist inserts rec; an existing timestamp key is a conflict, never an update.
func (s *SQLitePredictionStore) Persist(ctx context.Context, rec models.PredictionRecord) (string, error) {
	payload, err := encodeRecord(&rec)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO predictions (ts_ms, id, composite, move_pct, category, weights_source, payload) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.UnixMilli(), rec.ID, rec.CompositeScore, rec.PredictedMove, string(rec.Category), string(rec.WeightsSource), string(payload),
	)
	if err != nil {
		s.l.Error("sqlite persist prediction failed", applogger.String("id", rec.ID), applogger.Error(err))
		return "", fmt.Errorf("insert prediction: %w", err)
	}
	return rec.ID, nil
}

func (s *SQLitePredictionStore) Latest(ctx context.Context) (*models.PredictionRecord, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM predictions ORDER BY ts_ms DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest prediction: %w", err)
	}
	rec, err := decodeRecord([]byte(payload))
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Range returns records with from <= ts <= to, oldest first.
func (s *SQLitePredictionStore) Range(ctx context.Context, from, to time.Time, limit int) ([]models.PredictionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM predictions WHERE ts_ms >= ? AND ts_ms <= ? ORDER BY ts_ms ASC LIMIT ?`,
		from.UnixMilli(), to.UnixMilli(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("range predictions: %w", err)
	}
	defer rows.Close()

	var out []models.PredictionRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		rec, err := decodeRecord([]byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close is a no-op; the client owns the connection.
func (s *SQLitePredictionStore) Close() error { return nil }

// SQLiteSampleStore keeps raw metric history for bound fitting.
type SQLiteSampleStore struct {
	client *pkgsqlite.Client
	db     *sql.DB
}

func NewSQLiteSampleStore(c *pkgsqlite.Client) *SQLiteSampleStore {
	return &SQLiteSampleStore{client: c, db: c.DB()}
}

func (s *SQLiteSampleStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, sqliteSchema)
}

func (s *SQLiteSampleStore) AppendSamples(ctx context.Context, samples []models.MetricSample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin samples tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO metric_samples (metric, ts_ms, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare samples: %w", err)
	}
	defer stmt.Close()
	for _, m := range samples {
		if _, err := stmt.ExecContext(ctx, m.MetricName, m.Timestamp.UnixMilli(), m.RawValue); err != nil {
			return fmt.Errorf("insert sample %s: %w", m.MetricName, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteSampleStore) Values(ctx context.Context, metric string, since time.Time) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT value FROM metric_samples WHERE metric = ? AND ts_ms >= ? ORDER BY ts_ms ASC`,
		metric, since.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Close is a no-op; the client owns the connection.
func (s *SQLiteSampleStore) Close() error { return nil }

var (
	_ domrepo.PredictionStore = (*SQLitePredictionStore)(nil)
	_ domrepo.SampleStore     = (*SQLiteSampleStore)(nil)
)
