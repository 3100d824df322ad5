// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package trigger serializes named pipeline jobs so external schedulers
// cannot stack invocations of the same job.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrJobRunning reports that the named job already has an invocation in
// flight. Callers treat it as "skip this tick", not a failure.
var ErrJobRunning = errors.New("job is already running")

// Registry tracks in-flight jobs by name. Distinct jobs interleave
// freely; the same job runs at most once at a time.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*sync.Mutex
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*sync.Mutex)}
}

// Run executes fn under the named job's lock. When the job is already in
// flight it returns ErrJobRunning without waiting.
func (r *Registry) Run(ctx context.Context, name string, fn func(context.Context) error) error {
	lock := r.lock(name)
	if !lock.TryLock() {
		return fmt.Errorf("%s: %w", name, ErrJobRunning)
	}
	defer lock.Unlock()

	return fn(ctx)
}

func (r *Registry) lock(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.jobs[name]
	if !ok {
		lock = &sync.Mutex{}
		r.jobs[name] = lock
	}
	return lock
}
