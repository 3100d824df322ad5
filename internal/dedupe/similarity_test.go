// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedupe

import (
	"testing"
	"time"

	"github.com/pdiddy/opportunity-engine/pkg/types"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase and collapse", "Office   SUPPLIES\tProcurement", "office supplies procurement"},
		{"strips rfq prefix", "RFQ - Office Chairs", "office chairs"},
		{"strips request for quote", "Request for Quote: Desktop Computers", "desktop computers"},
		{"strips solicitation numbers", "office chairs SPE4A7-24-Q-1234", "office chairs"},
		{"keeps long plain words", "furniture delivery procurement", "furniture delivery procurement"},
		{"strips digit-bearing tokens only", "industrial w912dy26r0042 equipment", "industrial equipment"},
		{"strips gov tokens", "dept of defense federal order", "of defense order"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeText(tt.in); got != tt.want {
				t.Errorf("normalizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTextSimilarity(t *testing.T) {
	if got := textSimilarity("", ""); got != 1.0 {
		t.Errorf("empty strings = %f, want 1.0", got)
	}
	if got := textSimilarity("office chairs", "office chairs"); got != 1.0 {
		t.Errorf("identical = %f, want 1.0", got)
	}
	if got := textSimilarity("abcd", "wxyz"); got != 0.0 {
		t.Errorf("disjoint = %f, want 0.0", got)
	}
	ab := textSimilarity("office chairs", "office chair")
	ba := textSimilarity("office chair", "office chairs")
	if ab != ba {
		t.Errorf("not commutative: %f vs %f", ab, ba)
	}
	if ab <= 0.8 {
		t.Errorf("near-identical strings = %f, want > 0.8", ab)
	}
}

func TestSimilarityCommutativeAndReflexive(t *testing.T) {
	s := NewScorer(types.DedupeConfig{})

	a := &types.Opportunity{
		Title:       "Office Supplies Procurement",
		Description: "Pens, paper, and toner cartridges.",
		Agency:      "General Services Administration",
		PostedDate:  date("2026-03-01"),
	}
	b := &types.Opportunity{
		Title:       "RFQ Office Supply Purchase",
		Description: "Toner and paper for regional office.",
		Agency:      "Department of Defense",
		PostedDate:  date("2026-03-05"),
	}

	if got := s.Similarity(a, a); got != 1.0 {
		t.Errorf("Similarity(a, a) = %f, want 1.0", got)
	}
	ab, ba := s.Similarity(a, b), s.Similarity(b, a)
	if ab != ba {
		t.Errorf("not commutative: %f vs %f", ab, ba)
	}
	if ab < 0 || ab > 1 {
		t.Errorf("score %f outside [0,1]", ab)
	}
}

func TestSimilarityCrossPlatformScenario(t *testing.T) {
	s := NewScorer(types.DedupeConfig{})

	// Same posting surfaced by two platforms: identical title, same
	// agency, posted two days apart, different natural keys.
	a := &types.Opportunity{
		SolicitationNumber: "SPE4A7-26-Q-0001",
		Title:              "Office Supplies Procurement",
		Agency:             "General Services Administration",
		SourcePlatform:     "SAM",
		PostedDate:         date("2026-03-01"),
	}
	b := &types.Opportunity{
		SolicitationNumber: "GSA-EBUY-99881",
		Title:              "Office Supplies Procurement",
		Agency:             "General Services Administration",
		SourcePlatform:     "GSA_EBUY",
		PostedDate:         date("2026-03-03"),
	}

	if got := s.Similarity(a, b); got < 0.85 {
		t.Errorf("Similarity = %f, want >= 0.85", got)
	}
}

func TestSimilarityUnrelatedTitlesBelowThreshold(t *testing.T) {
	s := NewScorer(types.DedupeConfig{})

	// Long everyday words must survive normalization; otherwise unrelated
	// postings from the same agency collapse onto the same text and score
	// as duplicates.
	a := &types.Opportunity{
		Title:      "Office Supplies Procurement",
		Agency:     "General Services Administration",
		PostedDate: date("2026-03-01"),
	}
	b := &types.Opportunity{
		Title:      "Office Furniture Delivery",
		Agency:     "General Services Administration",
		PostedDate: date("2026-03-01"),
	}

	if got := s.Similarity(a, b); got >= 0.85 {
		t.Errorf("Similarity = %f, want < 0.85 for unrelated titles", got)
	}
}

func TestSimilarityMissingDates(t *testing.T) {
	s := NewScorer(types.DedupeConfig{})

	a := &types.Opportunity{Title: "Widgets", Agency: "DLA", PostedDate: date("2026-03-01")}
	b := &types.Opportunity{Title: "Widgets", Agency: "DLA"}

	// Date sub-score is zero when either date is missing, so the total is
	// bounded by the other three weights.
	bound := titleWeight + descriptionWeight + agencyWeight
	if got := s.Similarity(a, b); got > bound {
		t.Errorf("Similarity = %f, want <= %f with missing date", got, bound)
	}
}

func TestSimilarityDateDecay(t *testing.T) {
	s := NewScorer(types.DedupeConfig{})

	base := &types.Opportunity{Title: "Widgets", Agency: "DLA", PostedDate: date("2026-03-01")}
	near := &types.Opportunity{Title: "Widgets", Agency: "DLA", PostedDate: date("2026-03-02")}
	far := &types.Opportunity{Title: "Widgets", Agency: "DLA", PostedDate: date("2026-03-20")}

	if s.Similarity(base, near) <= s.Similarity(base, far) {
		t.Error("closer posted dates should score higher")
	}
}

func TestSimilarityDescriptionPrefix(t *testing.T) {
	s := NewScorer(types.DedupeConfig{DescriptionPrefix: 10})

	var long string
	for i := 0; i < 100; i++ {
		long += "alpha beta "
	}

	a := &types.Opportunity{Title: "Widgets", Description: long, PostedDate: date("2026-03-01")}
	b := &types.Opportunity{Title: "Widgets", Description: long + " tail words", PostedDate: date("2026-03-01")}
	same := &types.Opportunity{Title: "Widgets", Description: long, PostedDate: date("2026-03-01")}

	// Differences past the prefix are invisible to the scorer.
	if got, ref := s.Similarity(a, b), s.Similarity(a, same); got != ref {
		t.Errorf("Similarity = %f, want %f when differing only past prefix", got, ref)
	}
}
