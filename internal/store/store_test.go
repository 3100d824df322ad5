// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/opportunity-engine/internal/dedupe"
	"github.com/pdiddy/opportunity-engine/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testOpportunity(key, platform string, posted time.Time) *types.Opportunity {
	return &types.Opportunity{
		SolicitationNumber: key,
		Title:              "Office Supplies Procurement",
		Agency:             "General Services Administration",
		PSCCode:            "7510",
		SourcePlatform:     platform,
		PostedDate:         &posted,
	}
}

func mustUpsert(t *testing.T, s *Store, op *types.Opportunity) {
	t.Helper()
	if _, err := s.Upsert(context.Background(), op); err != nil {
		t.Fatal(err)
	}
}

// --- upsert ---

func TestUpsertNewAndExisting(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	posted := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	op := testOpportunity("SPE4A7-26-Q-0001", "SAM", posted)
	wasNew, err := s.Upsert(ctx, op)
	if err != nil {
		t.Fatal(err)
	}
	if !wasNew {
		t.Error("first upsert should report a new record")
	}
	if op.ID == 0 {
		t.Error("upsert should backfill the row ID")
	}

	// Re-observing the same solicitation refreshes the sync time only.
	again := testOpportunity("SPE4A7-26-Q-0001", "SAM", posted)
	again.Title = "Completely Different Title"
	wasNew, err = s.Upsert(ctx, again)
	if err != nil {
		t.Fatal(err)
	}
	if wasNew {
		t.Error("second upsert should not report a new record")
	}
	if again.ID != op.ID {
		t.Errorf("second upsert got ID %d, want %d", again.ID, op.ID)
	}

	stored, err := s.GetByKey(ctx, "SPE4A7-26-Q-0001")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Title != "Office Supplies Procurement" {
		t.Errorf("re-upsert overwrote title: %q", stored.Title)
	}
	if stored.LastSyncAt == nil {
		t.Error("re-upsert should set last_sync_at")
	}
}

func TestUpsertRoundTripsFields(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	posted := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	deadline := time.Date(2026, 3, 15, 17, 0, 0, 0, time.UTC)

	op := testOpportunity("SPE4A7-26-Q-0002", "SAM", posted)
	op.Description = "Bulk purchase of office supplies"
	op.ResponseDeadline = &deadline
	op.Office = "Region 5"
	op.ContactEmail = "buyer@gsa.gov"
	op.NAICSCode = "339940"
	op.SetAside = "SBA"
	op.IsProductRelated = true
	op.MatchedKeywords = []string{"supplies", "products"}
	mustUpsert(t, s, op)

	stored, err := s.Get(ctx, op.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Description != op.Description {
		t.Errorf("description = %q, want %q", stored.Description, op.Description)
	}
	if stored.ResponseDeadline == nil || !stored.ResponseDeadline.Equal(deadline) {
		t.Errorf("response deadline = %v, want %v", stored.ResponseDeadline, deadline)
	}
	if stored.Status != types.StatusActive {
		t.Errorf("status = %q, want active", stored.Status)
	}
	if !stored.IsProductRelated {
		t.Error("is_product_related not persisted")
	}
	if len(stored.MatchedKeywords) != 2 || stored.MatchedKeywords[0] != "supplies" {
		t.Errorf("matched keywords = %v", stored.MatchedKeywords)
	}
	if stored.PostedDate == nil || !stored.PostedDate.Equal(posted) {
		t.Errorf("posted date = %v, want %v", stored.PostedDate, posted)
	}
}

func TestUpsertConcurrentSameKey(t *testing.T) {
	s := testStore(t)
	posted := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// SAM and GSA eBuy surface the same posting, so concurrent collectors
	// race on one solicitation number. Exactly one upsert may win the
	// insert; every loser must be reported as a refresh, never an error.
	const workers = 8
	newCount := make(chan bool, workers)
	errs := make(chan error, workers)
	start := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			op := testOpportunity("RACE-0001", "SAM", posted)
			wasNew, err := s.Upsert(context.Background(), op)
			if err != nil {
				errs <- err
				return
			}
			newCount <- wasNew
		}()
	}
	close(start)
	wg.Wait()
	close(newCount)
	close(errs)

	for err := range errs {
		t.Errorf("concurrent upsert failed: %v", err)
	}
	inserts := 0
	for wasNew := range newCount {
		if wasNew {
			inserts++
		}
	}
	if inserts != 1 {
		t.Errorf("got %d inserts, want exactly 1", inserts)
	}

	stored, err := s.GetByKey(context.Background(), "RACE-0001")
	if err != nil {
		t.Fatal(err)
	}
	if stored.LastSyncAt == nil {
		t.Error("racing upserts should leave last_sync_at set")
	}
}

func TestGetByKeyNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.GetByKey(context.Background(), "NO-SUCH-KEY")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

// --- deduplication queries ---

func TestCandidatesInWindow(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	posted := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	target := testOpportunity("TARGET-0001", "SAM", posted)
	inWindow := testOpportunity("NEAR-0001", "GSA_EBUY", posted.AddDate(0, 0, 3))
	outOfWindow := testOpportunity("FAR-0001", "GSA_EBUY", posted.AddDate(0, 0, 30))
	otherAgency := testOpportunity("OTHER-0001", "DIBBS", posted.AddDate(0, 0, 1))
	otherAgency.Agency = "Defense Logistics Agency"
	otherAgency.PSCCode = "1560"

	for _, op := range []*types.Opportunity{target, inWindow, outOfWindow, otherAgency} {
		mustUpsert(t, s, op)
	}

	candidates, err := s.CandidatesInWindow(ctx, target, 14, 50)
	if err != nil {
		t.Fatal(err)
	}

	keys := make(map[string]bool)
	for _, c := range candidates {
		keys[c.SolicitationNumber] = true
		if c.ID == target.ID {
			t.Error("candidate set contains the target itself")
		}
	}
	if !keys["NEAR-0001"] {
		t.Error("record inside the date window with matching agency missing")
	}
	if keys["FAR-0001"] {
		t.Error("record outside the date window included")
	}
	if keys["OTHER-0001"] {
		t.Error("record with unrelated agency and code included")
	}
}

func TestCandidatesInWindowCap(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	posted := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	target := testOpportunity("TARGET-0002", "SAM", posted)
	mustUpsert(t, s, target)
	for i := 0; i < 10; i++ {
		op := testOpportunity(
			"CAND-"+string(rune('A'+i))+"-0002", "GSA_EBUY", posted.AddDate(0, 0, 1))
		mustUpsert(t, s, op)
	}

	candidates, err := s.CandidatesInWindow(ctx, target, 14, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 5 {
		t.Errorf("got %d candidates, want cap of 5", len(candidates))
	}
}

func TestMarkDuplicate(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	posted := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	master := testOpportunity("MASTER-0001", "SAM", posted)
	dup := testOpportunity("DUP-0001", "GSA_EBUY", posted.AddDate(0, 0, 2))
	mustUpsert(t, s, master)
	mustUpsert(t, s, dup)

	if err := s.MarkDuplicate(ctx, dup.ID, master.ID, 0.91, master.SolicitationNumber); err != nil {
		t.Fatal(err)
	}

	stored, err := s.Get(ctx, dup.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.IsDuplicate {
		t.Error("record not marked duplicate")
	}
	if stored.MasterID == nil || *stored.MasterID != master.ID {
		t.Errorf("master_id = %v, want %d", stored.MasterID, master.ID)
	}
	if stored.DuplicateInfo == nil {
		t.Fatal("duplicate info not persisted")
	}
	if stored.DuplicateInfo.SimilarityScore != 0.91 {
		t.Errorf("similarity score = %v, want 0.91", stored.DuplicateInfo.SimilarityScore)
	}
	if stored.DuplicateInfo.MasterSolicitationNumber != "MASTER-0001" {
		t.Errorf("master key = %q", stored.DuplicateInfo.MasterSolicitationNumber)
	}

	// Double-marking is rejected.
	err = s.MarkDuplicate(ctx, dup.ID, master.ID, 0.95, master.SolicitationNumber)
	if !errors.Is(err, dedupe.ErrAlreadyDuplicate) {
		t.Errorf("got %v, want ErrAlreadyDuplicate", err)
	}
}

func TestMarkDuplicateRejectsChain(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	posted := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	a := testOpportunity("CHAIN-A", "SAM", posted)
	b := testOpportunity("CHAIN-B", "GSA_EBUY", posted)
	c := testOpportunity("CHAIN-C", "DIBBS", posted)
	for _, op := range []*types.Opportunity{a, b, c} {
		mustUpsert(t, s, op)
	}

	if err := s.MarkDuplicate(ctx, b.ID, a.ID, 0.9, a.SolicitationNumber); err != nil {
		t.Fatal(err)
	}

	// c -> b would chain through a duplicate.
	err := s.MarkDuplicate(ctx, c.ID, b.ID, 0.9, b.SolicitationNumber)
	if !errors.Is(err, dedupe.ErrMasterIsDuplicate) {
		t.Errorf("got %v, want ErrMasterIsDuplicate", err)
	}
}

func TestMarkDuplicateRejectsDemotingMaster(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	posted := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	a := testOpportunity("DEMOTE-A", "SAM", posted)
	b := testOpportunity("DEMOTE-B", "GSA_EBUY", posted)
	c := testOpportunity("DEMOTE-C", "DIBBS", posted)
	for _, op := range []*types.Opportunity{a, b, c} {
		mustUpsert(t, s, op)
	}

	if err := s.MarkDuplicate(ctx, c.ID, b.ID, 0.9, b.SolicitationNumber); err != nil {
		t.Fatal(err)
	}

	// b -> a would leave c pointing at a duplicate master.
	err := s.MarkDuplicate(ctx, b.ID, a.ID, 0.9, a.SolicitationNumber)
	if !errors.Is(err, dedupe.ErrRecordIsMaster) {
		t.Errorf("got %v, want ErrRecordIsMaster", err)
	}

	stored, getErr := s.Get(ctx, b.ID)
	if getErr != nil {
		t.Fatal(getErr)
	}
	if stored.IsDuplicate {
		t.Error("referenced master was demoted to duplicate")
	}
}

func TestRecentNonDuplicates(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	posted := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	a := testOpportunity("RECENT-A", "SAM", posted)
	b := testOpportunity("RECENT-B", "GSA_EBUY", posted)
	mustUpsert(t, s, a)
	mustUpsert(t, s, b)
	if err := s.MarkDuplicate(ctx, b.ID, a.ID, 0.9, a.SolicitationNumber); err != nil {
		t.Fatal(err)
	}

	cutoff := time.Now().UTC().Add(-time.Hour)
	targets, err := s.RecentNonDuplicates(ctx, 100, cutoff)
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 1 {
		t.Fatalf("got %d targets, want 1", len(targets))
	}
	if targets[0].SolicitationNumber != "RECENT-A" {
		t.Errorf("target = %q, want RECENT-A", targets[0].SolicitationNumber)
	}
}

// --- runs ---

func TestCollectionRunLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	filters := types.FetchFilters{
		DateFrom: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DateTo:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}

	run, err := s.CreateRun(ctx, "SAM", filters)
	if err != nil {
		t.Fatal(err)
	}
	if run.ID == "" {
		t.Fatal("run ID not assigned")
	}
	if run.Status != types.RunRunning {
		t.Errorf("status = %q, want running", run.Status)
	}

	run.TotalFetched = 42
	run.NewRecords = 40
	run.UpdatedRecords = 2
	run.RecordError("item 7: missing solicitation number")
	run.Status = types.RunCompleted
	if err := s.FinishRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	if run.CompletedAt == nil {
		t.Error("FinishRun should set CompletedAt")
	}

	last, err := s.LastRun(ctx, "SAM")
	if err != nil {
		t.Fatal(err)
	}
	if last == nil {
		t.Fatal("LastRun returned nil for collected platform")
	}
	if last.TotalFetched != 42 || last.NewRecords != 40 {
		t.Errorf("counters = %d/%d, want 42/40", last.TotalFetched, last.NewRecords)
	}
	if last.ErrorsCount != 1 || len(last.ErrorMessages) != 1 {
		t.Errorf("errors = %d/%d messages", last.ErrorsCount, len(last.ErrorMessages))
	}
	if last.Status != types.RunCompleted {
		t.Errorf("status = %q, want completed", last.Status)
	}

	none, err := s.LastRun(ctx, "DIBBS")
	if err != nil {
		t.Fatal(err)
	}
	if none != nil {
		t.Error("LastRun for never-collected platform should be nil")
	}
}

func TestRecentRuns(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, p := range []string{"SAM", "GSA_EBUY", "DIBBS"} {
		run, err := s.CreateRun(ctx, p, types.FetchFilters{})
		if err != nil {
			t.Fatal(err)
		}
		run.Status = types.RunCompleted
		if err := s.FinishRun(ctx, run); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("got %d runs, want limit of 2", len(runs))
	}

	runs, err = s.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	platforms := make(map[string]bool)
	for _, run := range runs {
		platforms[run.Platform] = true
	}
	for _, p := range []string{"SAM", "GSA_EBUY", "DIBBS"} {
		if !platforms[p] {
			t.Errorf("run history missing platform %s", p)
		}
	}
}

// --- maintenance ---

func TestDeleteInactiveBeforeKeepsMasters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	posted := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	master := testOpportunity("OLD-MASTER", "SAM", posted)
	dup := testOpportunity("OLD-DUP", "GSA_EBUY", posted)
	stale := testOpportunity("OLD-STALE", "SAM", posted)
	for _, op := range []*types.Opportunity{master, dup, stale} {
		mustUpsert(t, s, op)
	}
	if err := s.MarkDuplicate(ctx, dup.ID, master.ID, 0.9, master.SolicitationNumber); err != nil {
		t.Fatal(err)
	}

	// Age all three out of the active set.
	_, err := s.db.ExecContext(ctx,
		`UPDATE opportunities SET status = 'closed', updated_at = '2025-07-01T00:00:00Z'`)
	if err != nil {
		t.Fatal(err)
	}

	deleted, err := s.DeleteInactiveBefore(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 2 {
		t.Errorf("deleted %d records, want 2", deleted)
	}

	if _, err := s.Get(ctx, master.ID); err != nil {
		t.Errorf("referenced master was deleted: %v", err)
	}
	if _, err := s.Get(ctx, stale.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("stale record survived cleanup: %v", err)
	}
}

func TestStats(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	posted := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	a := testOpportunity("STAT-A", "SAM", posted)
	a.IsProductRelated = true
	b := testOpportunity("STAT-B", "GSA_EBUY", posted)
	mustUpsert(t, s, a)
	mustUpsert(t, s, b)
	if err := s.MarkDuplicate(ctx, b.ID, a.ID, 0.9, a.SolicitationNumber); err != nil {
		t.Fatal(err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 2 || stats.Duplicates != 1 || stats.ProductRelated != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.ByPlatform["SAM"] != 1 || stats.ByPlatform["GSA_EBUY"] != 1 {
		t.Errorf("by platform = %v", stats.ByPlatform)
	}
}

// --- PSC seeding ---

func TestSeedPSCCodes(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	codes := []types.PSCCode{
		{Code: "7510", Name: "Office Supplies", IsProductCode: true, Keywords: []string{"supplies"}},
		{Code: "R425", Name: "Engineering Support", IsProductCode: false},
	}
	data, err := yaml.Marshal(codes)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "psc.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := s.SeedPSCCodes(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("seeded %d codes, want 2", n)
	}

	entry, err := s.LookupPSC(ctx, "7510")
	if err != nil {
		t.Fatal(err)
	}
	if entry == nil || entry.Name != "Office Supplies" || !entry.IsProductCode {
		t.Errorf("lookup 7510 = %+v", entry)
	}

	products, err := s.ProductPSCCodes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 1 || products[0].Code != "7510" {
		t.Errorf("product codes = %+v", products)
	}

	// Re-seeding updates in place.
	codes[0].Name = "Office Supplies and Devices"
	data, _ = yaml.Marshal(codes)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SeedPSCCodes(ctx, path); err != nil {
		t.Fatal(err)
	}
	entry, err = s.LookupPSC(ctx, "7510")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Name != "Office Supplies and Devices" {
		t.Errorf("re-seed did not update name: %q", entry.Name)
	}
}
