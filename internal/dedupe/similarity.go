// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedupe finds opportunities that describe the same real-world
// posting across source platforms and links them to a single master record.
// Implements: prd004-deduplication (R1-R5).
package dedupe

import (
	"math"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/pdiddy/opportunity-engine/pkg/types"
)

// Scoring weights. The four sub-scores always sum to at most 1.0.
const (
	titleWeight       = 0.4
	descriptionWeight = 0.3
	agencyWeight      = 0.2
	dateWeight        = 0.1

	// dateDecayDays is the window over which posted-date proximity decays
	// linearly to zero.
	dateDecayDays = 7.0
)

// boilerplatePhrases are procurement-type prefixes stripped before
// comparison; they carry no identity.
var boilerplatePhrases = []string{
	"request for quotation", "request for quote", "request for proposal",
	"rfq", "rfp", "solicitation", "notice", "announcement",
}

// govTokens are generic government words stripped before comparison.
var govTokens = []string{
	"dept", "department", "gov", "federal", "agency", "administration",
}

var (
	phrasePatterns []*regexp.Regexp
	tokenPatterns  []*regexp.Regexp

	// solicitationToken matches long tokens of letters, digits, and
	// hyphens; only those containing a digit are treated as solicitation
	// numbers, so ordinary long words survive normalization.
	solicitationToken = regexp.MustCompile(`\b[a-z0-9-]{8,}\b`)
)

func init() {
	for _, p := range boilerplatePhrases {
		phrasePatterns = append(phrasePatterns,
			regexp.MustCompile(`\b`+regexp.QuoteMeta(p)+`\b\s*[-:]*\s*`))
	}
	for _, tok := range govTokens {
		tokenPatterns = append(tokenPatterns,
			regexp.MustCompile(`\b`+regexp.QuoteMeta(tok)+`\b`))
	}
}

// normalizeText lowercases, collapses whitespace, and strips boilerplate
// phrases, solicitation-number tokens, and generic government words.
func normalizeText(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ToLower(text)
	text = strings.Join(strings.Fields(text), " ")

	for _, re := range phrasePatterns {
		text = re.ReplaceAllString(text, "")
	}
	text = solicitationToken.ReplaceAllStringFunc(text, func(tok string) string {
		if strings.ContainsAny(tok, "0123456789") {
			return ""
		}
		return tok
	})
	for _, re := range tokenPatterns {
		text = re.ReplaceAllString(text, "")
	}

	return strings.Join(strings.Fields(text), " ")
}

// textSimilarity is a normalized edit-distance similarity in [0, 1].
// Two empty strings are identical.
func textSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

// Scorer computes pairwise similarity between opportunities.
type Scorer struct {
	descPrefix int
}

// NewScorer builds a Scorer. A zero DescriptionPrefix falls back to 500
// characters; descriptions are truncated after normalization to bound the
// edit-distance cost.
func NewScorer(cfg types.DedupeConfig) *Scorer {
	prefix := cfg.DescriptionPrefix
	if prefix <= 0 {
		prefix = 500
	}
	return &Scorer{descPrefix: prefix}
}

// Similarity returns the weighted similarity of two opportunities in
// [0, 1]. It is commutative: Similarity(a, b) == Similarity(b, a), and
// Similarity(a, a) == 1.0.
func (s *Scorer) Similarity(a, b *types.Opportunity) float64 {
	titleSim := textSimilarity(normalizeText(a.Title), normalizeText(b.Title))
	descSim := textSimilarity(s.truncate(normalizeText(a.Description)), s.truncate(normalizeText(b.Description)))

	agencySim := 0.0
	if normalizeText(a.Agency) == normalizeText(b.Agency) {
		agencySim = 1.0
	}

	// Posted-date proximity, zero when either date is missing.
	dateSim := 0.0
	if a.PostedDate != nil && b.PostedDate != nil {
		days := math.Abs(a.PostedDate.Sub(*b.PostedDate).Hours()) / 24.0
		dateSim = math.Max(0, 1.0-days/dateDecayDays)
	}

	score := titleSim*titleWeight +
		descSim*descriptionWeight +
		agencySim*agencyWeight +
		dateSim*dateWeight
	// The weight constants sum to 1 only up to float rounding; clamp so
	// identical records score exactly 1.0.
	return math.Min(1.0, score)
}

func (s *Scorer) truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= s.descPrefix {
		return text
	}
	return string(runes[:s.descPrefix])
}
