// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/opportunity-engine/pkg/types"
)

// CreateRun records the start of a collection run for platform and
// returns it in running state with a fresh ID.
func (s *Store) CreateRun(ctx context.Context, platform string, filters types.FetchFilters) (*types.CollectionRun, error) {
	run := &types.CollectionRun{
		ID:             uuid.NewString(),
		Platform:       platform,
		Status:         types.RunRunning,
		FiltersApplied: filters,
		StartedAt:      time.Now().UTC(),
	}

	filtersJSON, _ := json.Marshal(filters)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collection_runs (id, platform, status, filters_applied, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Platform, string(run.Status),
		string(filtersJSON), run.StartedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("creating collection run: %w", err)
	}
	return run, nil
}

// FinishRun persists the run's counters and terminal state. CompletedAt
// and ProcessingSeconds are filled in here.
func (s *Store) FinishRun(ctx context.Context, run *types.CollectionRun) error {
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.ProcessingSeconds = now.Sub(run.StartedAt).Seconds()

	messagesJSON, _ := json.Marshal(run.ErrorMessages)

	_, err := s.db.ExecContext(ctx,
		`UPDATE collection_runs
		 SET status = ?, total_fetched = ?, new_records = ?, updated_records = ?,
		     duplicates_found = ?, errors_count = ?, error_messages = ?,
		     completed_at = ?, processing_seconds = ?
		 WHERE id = ?`,
		string(run.Status), run.TotalFetched, run.NewRecords, run.UpdatedRecords,
		run.DuplicatesFound, run.ErrorsCount, string(messagesJSON),
		now.Format(time.RFC3339), run.ProcessingSeconds,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("finishing collection run %s: %w", run.ID, err)
	}
	return nil
}

// LastRun returns the most recently started run for platform, or nil if
// the platform has never been collected.
func (s *Store) LastRun(ctx context.Context, platform string) (*types.CollectionRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, platform, status, total_fetched, new_records, updated_records,
			duplicates_found, errors_count, error_messages, filters_applied,
			started_at, completed_at, processing_seconds
		 FROM collection_runs
		 WHERE platform = ?
		 ORDER BY started_at DESC
		 LIMIT 1`, platform)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// RecentRuns returns up to limit runs across all platforms, newest-first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]types.CollectionRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, platform, status, total_fetched, new_records, updated_records,
			duplicates_found, errors_count, error_messages, filters_applied,
			started_at, completed_at, processing_seconds
		 FROM collection_runs
		 ORDER BY started_at DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying collection runs: %w", err)
	}
	defer rows.Close()

	var out []types.CollectionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

func scanRun(row rowScanner) (*types.CollectionRun, error) {
	var run types.CollectionRun
	var (
		status                    string
		messagesJSON, filtersJSON sql.NullString
		startedAt                 string
		completedAt               sql.NullString
		processingSeconds         sql.NullFloat64
	)

	err := row.Scan(
		&run.ID, &run.Platform, &status,
		&run.TotalFetched, &run.NewRecords, &run.UpdatedRecords,
		&run.DuplicatesFound, &run.ErrorsCount,
		&messagesJSON, &filtersJSON,
		&startedAt, &completedAt, &processingSeconds,
	)
	if err != nil {
		return nil, err
	}

	run.Status = types.RunStatus(status)
	run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	run.CompletedAt = parseTimePtr(completedAt)
	run.ProcessingSeconds = processingSeconds.Float64

	if messagesJSON.Valid && messagesJSON.String != "" {
		_ = json.Unmarshal([]byte(messagesJSON.String), &run.ErrorMessages)
	}
	if filtersJSON.Valid && filtersJSON.String != "" {
		_ = json.Unmarshal([]byte(filtersJSON.String), &run.FiltersApplied)
	}

	return &run, nil
}
