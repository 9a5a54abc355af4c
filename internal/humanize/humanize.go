// Package humanize converts between human-readable size/byte strings and
// their numeric values. It consolidates two copies of the same formatBytes
// helper the teacher kept separately in cmd/execute.go and
// output/formatter.go into a single shared implementation.
package humanize

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	kb = 1024
	mb = 1024 * kb
	gb = 1024 * mb
	tb = 1024 * gb
)

// Bytes renders a byte count as a human-readable string (B, KB, MB, GB, TB).
func Bytes(n int64) string {
	switch {
	case n >= tb:
		return fmt.Sprintf("%.2fTB", float64(n)/float64(tb))
	case n >= gb:
		return fmt.Sprintf("%.2fGB", float64(n)/float64(gb))
	case n >= mb:
		return fmt.Sprintf("%.2fMB", float64(n)/float64(mb))
	case n >= kb:
		return fmt.Sprintf("%.2fKB", float64(n)/float64(kb))
	default:
		return fmt.Sprintf("%dB", n)
	}
}

// ParseBytes parses a human-readable size string such as "64k", "16MB",
// "2Gi", or a bare integer (bytes). Units are case-insensitive; the
// trailing "b"/"ib" is optional ("16M" and "16MiB" both parse as 16
// mebibytes in binary, 1024-based, units throughout).
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
		i++
	}
	numPart := s[:i]
	unitPart := strings.ToLower(strings.TrimSpace(s[i:]))

	if numPart == "" {
		return 0, fmt.Errorf("invalid size %q: missing numeric part", s)
	}

	value, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}

	var multiplier float64 = 1
	switch strings.TrimSuffix(strings.TrimSuffix(unitPart, "b"), "i") {
	case "", "byte", "bytes":
		multiplier = 1
	case "k":
		multiplier = kb
	case "m":
		multiplier = mb
	case "g":
		multiplier = gb
	case "t":
		multiplier = tb
	default:
		return 0, fmt.Errorf("invalid size %q: unknown unit %q", s, unitPart)
	}

	return int64(value * multiplier), nil
}
