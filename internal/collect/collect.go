// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package collect fetches procurement postings from government source
// platforms and lands them in the opportunity store.
// Implements: prd001-collection (R1-R5);
//
//	docs/ARCHITECTURE § Collection.
package collect

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pdiddy/opportunity-engine/internal/classify"
	"github.com/pdiddy/opportunity-engine/pkg/types"
)

// Connector fetches raw postings from a single source platform. Each
// platform (SAM.gov, GSA eBuy, DIBBS) implements this interface per the
// Strategy pattern (R2.4). Fetch handles its own pagination and returns
// the full window in one call.
type Connector interface {
	Platform() string
	Fetch(ctx context.Context, filters types.FetchFilters) ([]types.RawPosting, error)
}

// Store is the persistence surface the orchestrator needs.
type Store interface {
	Upsert(ctx context.Context, op *types.Opportunity) (bool, error)
	CreateRun(ctx context.Context, platform string, filters types.FetchFilters) (*types.CollectionRun, error)
	FinishRun(ctx context.Context, run *types.CollectionRun) error
}

// CollectionSummary aggregates the outcome of one collection pass across
// all connectors.
type CollectionSummary struct {
	Runs       []types.CollectionRun
	NewRecords int
	Updated    int
	Errors     []string
}

// Total returns the number of postings fetched across all platforms.
func (s CollectionSummary) Total() int {
	total := 0
	for _, run := range s.Runs {
		total += run.TotalFetched
	}
	return total
}

// HasFailures reports whether every run ended in the failed state. A
// partially degraded pass (some items skipped, some connectors down) is
// not a failure.
func (s CollectionSummary) HasFailures() bool {
	if len(s.Runs) == 0 {
		return true
	}
	for _, run := range s.Runs {
		if run.Status != types.RunFailed {
			return false
		}
	}
	return true
}

// Orchestrator drives connectors and lands their postings in the store.
type Orchestrator struct {
	store       Store
	classifier  *classify.Classifier
	windowDays  int
	pageSize    int
	noticeTypes []string
}

// NewOrchestrator builds an Orchestrator with cfg, applying defaults for
// zero values (window 30 days, page size 1000, notice types "o" and "k").
func NewOrchestrator(store Store, classifier *classify.Classifier, cfg types.CollectConfig) *Orchestrator {
	windowDays := cfg.WindowDays
	if windowDays <= 0 {
		windowDays = 30
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}
	noticeTypes := cfg.NoticeTypes
	if len(noticeTypes) == 0 {
		noticeTypes = []string{"o", "k"}
	}
	return &Orchestrator{
		store:       store,
		classifier:  classifier,
		windowDays:  windowDays,
		pageSize:    pageSize,
		noticeTypes: noticeTypes,
	}
}

// Filters returns the fetch window for a collection pass starting now.
func (o *Orchestrator) Filters() types.FetchFilters {
	now := time.Now().UTC()
	return types.FetchFilters{
		DateFrom:    now.AddDate(0, 0, -o.windowDays),
		DateTo:      now,
		NoticeTypes: o.noticeTypes,
		PageSize:    o.pageSize,
	}
}

// RunCollection fans out to all connectors concurrently and processes
// their postings. Each connector gets its own CollectionRun: a connector
// fetch error fails only that run, and item-level errors are recorded on
// the run and skipped (R3.1-R3.4). The summary itself never fails once
// runs could be created.
func (o *Orchestrator) RunCollection(ctx context.Context, connectors []Connector, w io.Writer) (CollectionSummary, error) {
	if len(connectors) == 0 {
		return CollectionSummary{}, fmt.Errorf("no source connectors configured")
	}

	filters := o.Filters()

	ch := make(chan types.CollectionRun, len(connectors))
	var wg sync.WaitGroup

	for _, c := range connectors {
		wg.Add(1)
		go func(c Connector) {
			defer wg.Done()
			ch <- o.collectPlatform(ctx, c, filters, w)
		}(c)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	var summary CollectionSummary
	for run := range ch {
		summary.Runs = append(summary.Runs, run)
		summary.NewRecords += run.NewRecords
		summary.Updated += run.UpdatedRecords
		summary.Errors = append(summary.Errors, run.ErrorMessages...)
	}

	fmt.Fprintf(w, "\nCollection summary: %d fetched, %d new, %d updated, %d errors\n",
		summary.Total(), summary.NewRecords, summary.Updated, len(summary.Errors))

	return summary, nil
}

// collectPlatform runs one connector end to end and always returns a
// finalized run, even when run persistence itself is unavailable.
func (o *Orchestrator) collectPlatform(ctx context.Context, c Connector, filters types.FetchFilters, w io.Writer) types.CollectionRun {
	platform := c.Platform()

	run, err := o.store.CreateRun(ctx, platform, filters)
	if err != nil {
		fmt.Fprintf(w, "warning: %s: creating run record: %v\n", platform, err)
		run = &types.CollectionRun{Platform: platform, Status: types.RunRunning, StartedAt: time.Now().UTC()}
	}

	postings, err := c.Fetch(ctx, filters)
	if err != nil {
		run.Status = types.RunFailed
		run.RecordError(fmt.Sprintf("%s: %v", classifyError(err), err))
		fmt.Fprintf(w, "failed  %s: %v\n", platform, err)
		o.finishRun(ctx, run, w)
		return *run
	}

	run.TotalFetched = len(postings)

	for i := range postings {
		select {
		case <-ctx.Done():
			run.Status = types.RunFailed
			run.RecordError(fmt.Sprintf("transport: %v", ctx.Err()))
			o.finishRun(ctx, run, w)
			return *run
		default:
		}

		op, err := o.buildOpportunity(platform, &postings[i])
		if err != nil {
			run.RecordError(fmt.Sprintf("%s: item %d: %v", classifyError(err), i, err))
			continue
		}

		wasNew, err := o.store.Upsert(ctx, op)
		if err != nil {
			run.RecordError(fmt.Sprintf("storage: %s: %v", op.SolicitationNumber, err))
			continue
		}
		if wasNew {
			run.NewRecords++
		} else {
			run.UpdatedRecords++
		}
	}

	run.Status = types.RunCompleted
	o.finishRun(ctx, run, w)

	fmt.Fprintf(w, "collected %s: %d fetched, %d new, %d updated, %d errors\n",
		platform, run.TotalFetched, run.NewRecords, run.UpdatedRecords, run.ErrorsCount)

	return *run
}

func (o *Orchestrator) finishRun(ctx context.Context, run *types.CollectionRun, w io.Writer) {
	if run.ID == "" {
		now := time.Now().UTC()
		run.CompletedAt = &now
		run.ProcessingSeconds = now.Sub(run.StartedAt).Seconds()
		return
	}
	if err := o.store.FinishRun(ctx, run); err != nil {
		fmt.Fprintf(w, "warning: %s: finalizing run record: %v\n", run.Platform, err)
	}
}

// buildOpportunity validates and normalizes a raw posting into an
// Opportunity, running classification on the way. A missing solicitation
// number rejects the item; unparseable dates drop the field but keep the
// record (R3.2).
func (o *Orchestrator) buildOpportunity(platform string, raw *types.RawPosting) (*types.Opportunity, error) {
	if raw.SolicitationNumber == "" {
		return nil, &ValidationError{Field: "solicitation_number", Reason: "missing"}
	}
	if raw.Title == "" {
		return nil, &ValidationError{Field: "title", Reason: "missing"}
	}

	op := &types.Opportunity{
		SolicitationNumber: raw.SolicitationNumber,
		Title:              raw.Title,
		Description:        raw.Description,
		Agency:             raw.Agency,
		Office:             raw.Office,
		ContactName:        raw.ContactName,
		ContactEmail:       raw.ContactEmail,
		ContactPhone:       raw.ContactPhone,
		PSCCode:            raw.ClassificationCode,
		NAICSCode:          raw.NAICSCode,
		NSN:                raw.NSN,
		FSC:                raw.FSC,
		SIN:                raw.SIN,
		OpportunityType:    raw.NoticeType,
		SetAside:           raw.SetAside,
		SourcePlatform:     platform,
		SourceURL:          raw.SourceURL,
		SourceID:           raw.SourceID,
		Status:             types.StatusActive,
	}

	op.PostedDate = parseSourceDate(raw.PostedDate)
	op.ResponseDeadline = parseSourceDate(raw.ResponseDeadline)
	op.AwardDate = parseSourceDate(raw.AwardDate)

	if o.classifier != nil {
		op.IsProductRelated, op.MatchedKeywords = o.classifier.Classify(*raw)
	}

	return op, nil
}
