package record

import (
	"net/mail"
	"strings"
	"time"
)

// ParseTimestamp parses an RFC 5322 mail date, falling back to RFC 3339.
// It returns nil instead of failing.
func ParseTimestamp(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if t, err := mail.ParseDate(raw); err == nil {
		return &t
	}

	// Enron style dates carry a trailing zone comment such as "(PDT)"
	if idx := strings.LastIndex(raw, "("); idx > 0 && strings.HasSuffix(raw, ")") {
		if t, err := mail.ParseDate(strings.TrimSpace(raw[:idx])); err == nil {
			return &t
		}
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}

	return nil
}
