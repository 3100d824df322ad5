// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package standardize normalizes agency names, titles, and classification
// codes across source platforms.
// Implements: prd003-standardization (R1-R4).
//
// All transforms are pure and idempotent: applying one twice yields the
// same output as applying it once.
package standardize

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/opportunity-engine/pkg/types"
)

// defaultAliases maps lowercased agency name variants to canonical names.
var defaultAliases = map[string]string{
	"dept of defense":          "Department of Defense",
	"dod":                      "Department of Defense",
	"department of the army":   "Department of Defense - Army",
	"us army":                  "Department of Defense - Army",
	"dept of navy":             "Department of Defense - Navy",
	"us navy":                  "Department of Defense - Navy",
	"air force":                "Department of Defense - Air Force",
	"usaf":                     "Department of Defense - Air Force",
	"gsa":                      "General Services Administration",
	"gen svc admin":            "General Services Administration",
	"dla":                      "Defense Logistics Agency",
	"defense logistics agency": "Defense Logistics Agency",
	"va":                       "Department of Veterans Affairs",
	"veterans admin":           "Department of Veterans Affairs",
	"dept veterans affairs":    "Department of Veterans Affairs",
}

// titleAbbreviations fix casing the title-case pass mangles. Applied as a
// post-pass in order.
var titleAbbreviations = [][2]string{
	{"Rfq", "RFQ"},
	{"Rfp", "RFP"},
	{"Ifb", "IFB"},
	{"Usa", "USA"},
	{"Us ", "US "},
	{"Dod", "DoD"},
	{"Gsa", "GSA"},
	{"Dla", "DLA"},
	{"Nsn", "NSN"},
}

// Standardizer holds the agency alias table. Construct once and pass
// explicitly.
type Standardizer struct {
	aliases map[string]string
}

// New returns a Standardizer with the built-in alias table.
func New() *Standardizer {
	return &Standardizer{aliases: defaultAliases}
}

// NewFromFile loads an agency alias table from a YAML file mapping
// lowercased variants to canonical names, merged over the built-in table.
func NewFromFile(path string) (*Standardizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading alias file %s: %w", path, err)
	}

	var loaded map[string]string
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parsing alias file %s: %w", path, err)
	}

	aliases := make(map[string]string, len(defaultAliases)+len(loaded))
	for k, v := range defaultAliases {
		aliases[k] = v
	}
	for k, v := range loaded {
		aliases[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &Standardizer{aliases: aliases}, nil
}

// Agency maps an agency name variant to its canonical form. Unmapped
// names pass through unchanged. Total: never fails, always returns a string.
func (s *Standardizer) Agency(name string) string {
	if name == "" {
		return ""
	}
	if canonical, ok := s.aliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return canonical
	}
	return name
}

// Title collapses whitespace, title-cases the text, and then restores
// well-known procurement abbreviations.
func Title(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	title = titleCase(title)
	for _, ab := range titleAbbreviations {
		title = strings.ReplaceAll(title, ab[0], ab[1])
	}
	return title
}

// titleCase capitalizes the first letter of each space-separated word and
// lowercases the rest.
func titleCase(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// Code trims and upper-cases a classification code and right-pads numeric
// codes shorter than four characters with trailing zeros, so the
// two-character PSC category "53" becomes "5300". Codes already four or
// more characters long pass through unchanged.
func Code(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	switch len(code) {
	case 2:
		return code + "00"
	case 3:
		return code + "0"
	default:
		return code
	}
}

// Apply standardizes an opportunity in place and reports whether any
// field changed, so callers persist (and touch updatedAt) only on real
// changes.
func (s *Standardizer) Apply(op *types.Opportunity) bool {
	changed := false

	if op.Agency != "" {
		if v := s.Agency(op.Agency); v != op.Agency {
			op.Agency = v
			changed = true
		}
	}
	if op.Title != "" {
		if v := Title(op.Title); v != op.Title {
			op.Title = v
			changed = true
		}
	}
	if op.PSCCode != "" {
		if v := Code(op.PSCCode); v != op.PSCCode {
			op.PSCCode = v
			changed = true
		}
	}
	if op.FSC != "" {
		if v := Code(op.FSC); v != op.FSC {
			op.FSC = v
			changed = true
		}
	}

	return changed
}
