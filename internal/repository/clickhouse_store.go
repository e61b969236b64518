package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"PillarCast/internal/domain/models"
	domrepo "PillarCast/internal/domain/repository"
	pkgch "PillarCast/pkg/clickhouse"
	applogger "PillarCast/pkg/logger"
)

// ClickHouseSchema returns the DDL for the prediction log and sample history.
func ClickHouseSchema(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.predictions (
			ts             DateTime64(3, 'UTC'),
			id             String,
			composite      Float64,
			move_pct       Float64,
			category       LowCardinality(String),
			weights_source LowCardinality(String),
			payload        String
		) ENGINE = MergeTree ORDER BY ts`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.metric_samples (
			metric LowCardinality(String),
			ts     DateTime64(3, 'UTC'),
			value  Float64
		) ENGINE = MergeTree ORDER BY (metric, ts)`, database),
	}
}

// CHPredictionStore implements PredictionStore backed by ClickHouse.
type CHPredictionStore struct {
	client   *pkgch.Client
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHPredictionStore(ch *pkgch.Client, database string, l *applogger.Logger) *CHPredictionStore {
	return &CHPredictionStore{client: ch, db: ch.DB(), database: database, l: l}
}

func (s *CHPredictionStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, ClickHouseSchema(s.database))
}

func (s *CHPredictionStore) Persist(ctx context.Context, rec models.PredictionRecord) (string, error) {
	start := time.Now()
	payload, err := encodeRecord(&rec)
	if err != nil {
		return "", err
	}
	q := fmt.Sprintf(`INSERT INTO %s.predictions (ts, id, composite, move_pct, category, weights_source, payload) VALUES (?, ?, ?, ?, ?, ?, ?)`, s.database)
	_, err = s.db.ExecContext(ctx, q,
		rec.Timestamp.UTC(), rec.ID, rec.CompositeScore, rec.PredictedMove, string(rec.Category), string(rec.WeightsSource), string(payload),
	)
	if err != nil {
		s.l.Error("clickhouse persist prediction error", applogger.String("id", rec.ID), applogger.Error(err))
		return "", fmt.Errorf("insert prediction: %w", err)
	}
	s.l.Debug("clickhouse persist prediction ok", applogger.String("id", rec.ID), applogger.Duration("duration_ms", time.Since(start)))
	return rec.ID, nil
}

func (s *CHPredictionStore) Latest(ctx context.Context) (*models.PredictionRecord, error) {
	q := fmt.Sprintf(`SELECT payload FROM %s.predictions ORDER BY ts DESC LIMIT 1`, s.database)
	var payload string
	err := s.db.QueryRowContext(ctx, q).Scan(&payload)
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

func (s *CHPredictionStore) Range(ctx context.Context, from, to time.Time, limit int) ([]models.PredictionRecord, error) {
	q := fmt.Sprintf(`
        SELECT payload
        FROM %s.predictions
        WHERE ts >= ? AND ts <= ?
        ORDER BY ts ASC
        LIMIT ?
    `, s.database)
	rows, err := s.db.QueryContext(ctx, q, from.UTC(), to.UTC(), limit)
	if err != nil {
		s.l.Error("clickhouse range predictions query error", applogger.Error(err))
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

// Close is a no-op; the client owns the pool.
func (s *CHPredictionStore) Close() error { return nil }

// CHSampleStore implements SampleStore backed by ClickHouse.
type CHSampleStore struct {
	client   *pkgch.Client
	db       *sql.DB
	database string
}

func NewCHSampleStore(ch *pkgch.Client, database string) *CHSampleStore {
	return &CHSampleStore{client: ch, db: ch.DB(), database: database}
}

func (s *CHSampleStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, ClickHouseSchema(s.database))
}

// AppendSamples writes one batch per call.
func (s *CHSampleStore) AppendSamples(ctx context.Context, samples []models.MetricSample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s.metric_samples (metric, ts, value)`, s.database))
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()
	for _, m := range samples {
		if _, err := stmt.ExecContext(ctx, m.MetricName, m.Timestamp.UTC(), m.RawValue); err != nil {
			return fmt.Errorf("append sample %s: %w", m.MetricName, err)
		}
	}
	return tx.Commit()
}

func (s *CHSampleStore) Values(ctx context.Context, metric string, since time.Time) ([]float64, error) {
	q := fmt.Sprintf(`SELECT value FROM %s.metric_samples WHERE metric = ? AND ts >= ? ORDER BY ts ASC`, s.database)
	rows, err := s.db.QueryContext(ctx, q, metric, since.UTC())
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

// Close is a no-op; the client owns the pool.
func (s *CHSampleStore) Close() error { return nil }

var (
	_ domrepo.PredictionStore = (*CHPredictionStore)(nil)
	_ domrepo.SampleStore     = (*CHSampleStore)(nil)
)
