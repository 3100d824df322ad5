// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collect

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ValidationError reports a raw posting that cannot become an
// Opportunity. Validation failures skip the item, never the run.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid posting: %s %s", e.Field, e.Reason)
}

// classifyError buckets an error for run bookkeeping: transport,
// validation, parse, or storage.
func classifyError(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return "validation"
	case isTransportError(err):
		return "transport"
	default:
		return "parse"
	}
}

func isTransportError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "HTTP ") || strings.Contains(msg, "connection")
}

// sourceDateFormats lists the date layouts seen across source platforms:
// SAM.gov posted dates (MM/DD/YYYY and ISO), SAM.gov deadline strings
// like "Dec 31, 2026 11:59 pm EST", and DIBBS listing dates.
var sourceDateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-07:00",
	"2006-01-02",
	"01/02/2006",
	"Jan 2, 2006 3:04 pm MST",
	"Jan 2, 2006 15:04 MST",
	"Jan 2, 2006",
	"01-02-2006",
}

// parseSourceDate tries each known layout and returns nil when none
// matches. Callers keep the record and drop the field.
func parseSourceDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range sourceDateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
