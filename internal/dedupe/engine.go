// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedupe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/pdiddy/opportunity-engine/pkg/types"
)

// Store is the persistence surface the engine needs. The opportunity
// store satisfies it.
type Store interface {
	// RecentNonDuplicates returns up to limit non-duplicate active
	// records created after cutoff, newest-first.
	RecentNonDuplicates(ctx context.Context, limit int, cutoff time.Time) ([]types.Opportunity, error)

	// CandidatesInWindow returns non-duplicate active records near the
	// target's posted date, pre-filtered by agency substring or matching
	// classification code, capped at cap rows.
	CandidatesInWindow(ctx context.Context, target *types.Opportunity, windowDays, cap int) ([]types.Opportunity, error)

	// MarkDuplicate atomically links dup to master. It fails with
	// ErrAlreadyDuplicate, ErrMasterIsDuplicate, or ErrRecordIsMaster
	// instead of creating double markings or duplicate chains.
	MarkDuplicate(ctx context.Context, dupID, masterID int64, score float64, masterKey string) error
}

// Sentinel errors the store reports from MarkDuplicate. The engine treats
// all three as "another pass got here first" and skips the pair.
var (
	ErrAlreadyDuplicate  = errors.New("record is already marked duplicate")
	ErrMasterIsDuplicate = errors.New("elected master is itself a duplicate")
	ErrRecordIsMaster    = errors.New("record is the master of other duplicates")
)

// Match pairs a candidate with its similarity score.
type Match struct {
	Candidate types.Opportunity
	Score     float64
}

// BatchResult holds the outcome of a deduplication batch run.
type BatchResult struct {
	DuplicatesFound  int
	PairsChecked     int
	RecordsProcessed int
}

// Engine scores candidate windows, elects master records, and writes
// duplicate links.
type Engine struct {
	store     Store
	scorer    *Scorer
	threshold float64
	window    int
	cap       int
	batch     int
	recency   time.Duration
	authority map[string]int
}

// NewEngine builds an Engine over store with cfg, applying defaults for
// zero values (threshold 0.85, window 14 days, cap 50, batch 100,
// recency 7 days, authority SAM > GSA_EBUY > DIBBS).
func NewEngine(store Store, cfg types.DedupeConfig) *Engine {
	threshold := cfg.SimilarityThreshold
	if threshold <= 0 {
		threshold = 0.85
	}
	window := cfg.DateWindowDays
	if window <= 0 {
		window = 14
	}
	capN := cfg.CandidateCap
	if capN <= 0 {
		capN = 50
	}
	batch := cfg.BatchLimit
	if batch <= 0 {
		batch = 100
	}
	recencyDays := cfg.RecencyWindowDays
	if recencyDays <= 0 {
		recencyDays = 7
	}
	order := cfg.PlatformAuthority
	if len(order) == 0 {
		order = []string{"SAM", "GSA_EBUY", "DIBBS"}
	}
	authority := make(map[string]int, len(order))
	for i, p := range order {
		authority[p] = len(order) - i
	}

	return &Engine{
		store:     store,
		scorer:    NewScorer(cfg),
		threshold: threshold,
		window:    window,
		cap:       capN,
		batch:     batch,
		recency:   time.Duration(recencyDays) * 24 * time.Hour,
		authority: authority,
	}
}

// FindCandidates returns candidates scoring at or above the threshold,
// ordered by descending score, along with the number of pairs scored.
// The store query already excludes the target itself, duplicates, and
// inactive records.
func (e *Engine) FindCandidates(ctx context.Context, target *types.Opportunity) ([]Match, int, error) {
	candidates, err := e.store.CandidatesInWindow(ctx, target, e.window, e.cap)
	if err != nil {
		return nil, 0, fmt.Errorf("querying candidates for %s: %w", target.SolicitationNumber, err)
	}

	var matches []Match
	for i := range candidates {
		score := e.scorer.Similarity(target, &candidates[i])
		if score >= e.threshold {
			matches = append(matches, Match{Candidate: candidates[i], Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches, len(candidates), nil
}

// ElectMaster picks the surviving record of a duplicate pair. The
// tie-break order is fixed: most-authoritative source platform first,
// then earlier posted date, then higher field completeness. The first
// argument wins remaining ties.
func (e *Engine) ElectMaster(a, b *types.Opportunity) (master, duplicate *types.Opportunity) {
	ra, rb := e.authority[a.SourcePlatform], e.authority[b.SourcePlatform]
	if ra != rb {
		if ra > rb {
			return a, b
		}
		return b, a
	}

	if a.PostedDate != nil && b.PostedDate != nil && !a.PostedDate.Equal(*b.PostedDate) {
		if a.PostedDate.Before(*b.PostedDate) {
			return a, b
		}
		return b, a
	}

	if completeness(a) >= completeness(b) {
		return a, b
	}
	return b, a
}

// completeness counts the fixed checklist of optional fields weighing
// into master election.
func completeness(op *types.Opportunity) int {
	score := 0
	for _, populated := range []bool{
		op.Description != "",
		op.Agency != "",
		op.Office != "",
		op.PSCCode != "",
		op.NAICSCode != "",
		op.ResponseDeadline != nil,
		op.ContactEmail != "",
		op.SetAside != "",
	} {
		if populated {
			score++
		}
	}
	return score
}

// Run executes one deduplication batch: up to limit recent non-duplicate
// active records, newest-first, each checked against its candidate
// window. A record marked duplicate earlier in the batch is skipped as a
// target, a record elected master earlier in the batch is never demoted,
// and once the current target loses a master election the rest of its
// candidates are left for a later pass. Together these keep duplicate
// links pointing only at non-duplicate masters. Cancelled contexts stop
// the batch between targets; work already committed stays committed.
func (e *Engine) Run(ctx context.Context, limit int, w io.Writer) (BatchResult, error) {
	if limit <= 0 {
		limit = e.batch
	}

	cutoff := time.Now().UTC().Add(-e.recency)
	targets, err := e.store.RecentNonDuplicates(ctx, limit, cutoff)
	if err != nil {
		return BatchResult{}, fmt.Errorf("loading deduplication targets: %w", err)
	}

	var result BatchResult
	result.RecordsProcessed = len(targets)
	markedInBatch := make(map[int64]bool)
	electedMaster := make(map[int64]bool)

	for i := range targets {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		target := &targets[i]
		if markedInBatch[target.ID] {
			continue
		}

		matches, scored, err := e.FindCandidates(ctx, target)
		if err != nil {
			fmt.Fprintf(w, "warning: %v\n", err)
			continue
		}
		result.PairsChecked += scored

		for _, m := range matches {
			candidate := m.Candidate
			if markedInBatch[candidate.ID] {
				continue
			}

			master, dup := e.ElectMaster(target, &candidate)
			if electedMaster[dup.ID] {
				// Demoting an elected master would chain its duplicates
				// through a duplicate record.
				continue
			}

			err := e.store.MarkDuplicate(ctx, dup.ID, master.ID, m.Score, master.SolicitationNumber)
			switch {
			case errors.Is(err, ErrAlreadyDuplicate),
				errors.Is(err, ErrMasterIsDuplicate),
				errors.Is(err, ErrRecordIsMaster):
				continue
			case err != nil:
				fmt.Fprintf(w, "warning: marking %s duplicate of %s: %v\n",
					dup.SolicitationNumber, master.SolicitationNumber, err)
				continue
			}

			markedInBatch[dup.ID] = true
			electedMaster[master.ID] = true
			result.DuplicatesFound++
			fmt.Fprintf(w, "duplicate: %s -> %s (%.3f)\n",
				dup.SolicitationNumber, master.SolicitationNumber, m.Score)

			if dup.ID == target.ID {
				// The target lost the election; it can no longer master
				// its remaining candidates.
				break
			}
		}
	}

	fmt.Fprintf(w, "\nDeduplication summary: %d duplicates from %d pairs across %d records\n",
		result.DuplicatesFound, result.PairsChecked, result.RecordsProcessed)
	return result, nil
}
