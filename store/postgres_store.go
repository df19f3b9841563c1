package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store backed by PostgreSQL. Schema is managed
// by the migrations under migrations/.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects to the database and verifies the connection.
func OpenPostgres(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Record inserts one outcome.
func (s *PostgresStore) Record(ctx context.Context, e *Entry) error {
	if e == nil {
		return fmt.Errorf("entry is nil")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO predictions (id, created_at, mode, reason, prediction, probability, latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.CreatedAt, e.Mode, e.Reason, e.Prediction, nullableFloat(e.Probability), e.LatencyMS)

	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}
	return nil
}

// Recent returns the most recent outcomes, newest first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, mode, reason, prediction, probability, latency_ms
		FROM predictions
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var probability sql.NullFloat64
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Mode, &e.Reason,
			&e.Prediction, &probability, &e.LatencyMS); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		if probability.Valid {
			p := probability.Float64
			e.Probability = &p
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}

	return entries, nil
}

// Close closes the database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
