// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify decides whether a posting describes products rather
// than services.
// Implements: prd002-classification (R1-R3).
package classify

import (
	"strings"

	"github.com/pdiddy/opportunity-engine/pkg/types"
)

// defaultKeywords mark a posting as product-related when they appear in
// the title or description.
var defaultKeywords = []string{
	"equipment", "supplies", "hardware", "parts", "components", "materials",
	"products", "goods", "items", "tools", "devices", "instruments",
	"machinery", "computers", "furniture", "vehicles", "uniforms",
}

// PSC prefix ranges. Codes 10-69 cover supplies and equipment; 70-99 are
// service categories.
const (
	defaultProductLow  = 10
	defaultProductHigh = 69
)

// Classifier applies the product-relatedness heuristics. It is pure and
// deterministic; build one at process start and pass it explicitly.
type Classifier struct {
	low      int
	high     int
	keywords []string
}

// New builds a Classifier from cfg, falling back to the built-in PSC
// range and keyword list for zero values.
func New(cfg types.ClassifyConfig) *Classifier {
	c := &Classifier{
		low:      cfg.ProductCodeLow,
		high:     cfg.ProductCodeHigh,
		keywords: cfg.Keywords,
	}
	if c.low == 0 && c.high == 0 {
		c.low, c.high = defaultProductLow, defaultProductHigh
	}
	if len(c.keywords) == 0 {
		c.keywords = defaultKeywords
	}
	return c
}

// Classify reports whether the posting is product-related and which
// keywords matched. The PSC code-range rule is checked first and
// short-circuits the keyword scan: a posting whose classification code
// prefix falls in the product range is product-related regardless of its
// text.
func (c *Classifier) Classify(raw types.RawPosting) (bool, []string) {
	if c.codeInProductRange(raw.ClassificationCode) {
		return true, nil
	}

	text := strings.ToLower(raw.Title + " " + raw.Description)
	var matched []string
	for _, kw := range c.keywords {
		if strings.Contains(text, kw) {
			matched = append(matched, kw)
		}
	}
	return len(matched) > 0, matched
}

// codeInProductRange checks whether the first two characters of code are
// numeric and inside the configured product range.
func (c *Classifier) codeInProductRange(code string) bool {
	if len(code) < 2 {
		return false
	}
	d1, d2 := code[0], code[1]
	if d1 < '0' || d1 > '9' || d2 < '0' || d2 > '9' {
		return false
	}
	n := int(d1-'0')*10 + int(d2-'0')
	return n >= c.low && n <= c.high
}
