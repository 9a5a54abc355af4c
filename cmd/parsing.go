// Package cmd implements the command-line interface for hl.
package cmd

import (
	"log"
	"time"
)

// parseTimeBound parses a --since/--until value. Accepts RFC-3339
// (with or without fractional seconds) or the plain "YYYY-MM-DD
// HH:MM:SS" form also accepted by the timestamp resolver. Returns the
// zero time for an empty string.
func parseTimeBound(flagName, s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	log.Fatalf("[ERROR] Invalid %s value %q: expected RFC-3339 or \"YYYY-MM-DD HH:MM:SS\"", flagName, s)
	return time.Time{}
}
