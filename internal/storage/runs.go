package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"gedcom2csv/internal/domain"
)

// RunStore implements domain.RunStore on SQLite.
type RunStore struct {
	db *DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// CreateRun inserts a run, assigning a fresh id.
func (s *RunStore) CreateRun(r *domain.ConversionRun) error {
	r.ID = uuid.New().String()
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = r.StartedAt
	}

	_, err := s.db.conn.Exec(
		`INSERT INTO conversion_runs (id, input, source_type, output, dialect, trigger_type, status,
		 nodes_read, individuals, families, other, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Input, r.SourceType, r.Output, r.Dialect, string(r.Trigger), string(r.Status),
		r.NodesRead, r.Individuals, r.Families, r.Other, r.Error,
		r.StartedAt.UTC(), r.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 means 20.
func (s *RunStore) ListRuns(limit int) ([]domain.ConversionRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.conn.Query(
		`SELECT id, input, source_type, output, dialect, trigger_type, status,
		 nodes_read, individuals, families, other, error, started_at, finished_at
		 FROM conversion_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.ConversionRun
	for rows.Next() {
		var r domain.ConversionRun
		var trigger, status string
		if err := rows.Scan(
			&r.ID, &r.Input, &r.SourceType, &r.Output, &r.Dialect, &trigger, &status,
			&r.NodesRead, &r.Individuals, &r.Families, &r.Other, &r.Error,
			&r.StartedAt, &r.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Trigger = domain.RunTrigger(trigger)
		r.Status = domain.RunStatus(status)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
