// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RunStatus tracks the lifecycle of a collection run. Runs move from
// running to exactly one of the terminal states and are never deleted.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// CollectionRun records one collection invocation against one source
// platform. It is created when the orchestrator starts a connector and
// mutated only by the owning orchestration call.
type CollectionRun struct {
	// ID is assigned at creation time.
	ID string `json:"id" yaml:"id"`

	// Platform identifies the source connector (e.g. "SAM", "DIBBS", "GSA_EBUY").
	Platform string `json:"platform" yaml:"platform"`

	Status RunStatus `json:"status" yaml:"status"`

	// Counters accumulated while processing fetched postings.
	TotalFetched    int `json:"total_fetched" yaml:"total_fetched"`
	NewRecords      int `json:"new_records" yaml:"new_records"`
	UpdatedRecords  int `json:"updated_records" yaml:"updated_records"`
	DuplicatesFound int `json:"duplicates_found" yaml:"duplicates_found"`
	ErrorsCount     int `json:"errors_count" yaml:"errors_count"`

	// ErrorMessages lists item- and connector-level errors in the order
	// they occurred. Item errors never abort the run.
	ErrorMessages []string `json:"error_messages,omitempty" yaml:"error_messages,omitempty"`

	// FiltersApplied snapshots the fetch filters used for this run.
	FiltersApplied FetchFilters `json:"filters_applied" yaml:"filters_applied"`

	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`

	// ProcessingSeconds is the wall-clock duration of the run.
	ProcessingSeconds float64 `json:"processing_seconds,omitempty" yaml:"processing_seconds,omitempty"`
}

// RecordError appends an error message and bumps the error counter.
func (r *CollectionRun) RecordError(msg string) {
	r.ErrorMessages = append(r.ErrorMessages, msg)
	r.ErrorsCount = len(r.ErrorMessages)
}
