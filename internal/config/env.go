package config

import (
	"os"
	"strconv"
	"strings"
)

// ApplyEnv layers HL_* environment variables over s (spec.md §6: "the
// uppercase HL_* counterpart of each CLI option... environment
// overrides config layers"). Only scalar settings with a direct env
// analog are covered; list-valued settings are CLI/file-only.
func ApplyEnv(s Settings) Settings {
	if v, ok := lookupEnv("HL_TIME_FORMAT"); ok {
		s.TimeFormat = v
	}
	if v, ok := lookupEnv("HL_TIME_ZONE"); ok {
		s.TimeZone = v
	}
	if v, ok := lookupEnv("HL_THEME"); ok {
		s.Theme = v
	}
	if v, ok := lookupEnv("HL_CONCURRENCY"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			s.Concurrency = n
		}
	}
	if v, ok := lookupEnv("HL_BUFFER_SIZE"); ok {
		s.BufferSize = v
	}
	if v, ok := lookupEnv("HL_MAX_MESSAGE_SIZE"); ok {
		s.MaxMessageSize = v
	}
	if v, ok := lookupEnv("HL_INTERRUPT_IGNORE_COUNT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			s.InterruptIgnoreCount = n
		}
	}
	if v, ok := lookupEnv("HL_FLATTEN"); ok {
		s.Formatting.Flatten = v
	}
	if v, ok := lookupEnv("HL_EXPANSION"); ok {
		s.Formatting.Expansion = v
	}
	return s
}

// Pager resolves the pager command: HL_PAGER, falling back to PAGER,
// falling back to "" (caller decides the ultimate default).
func Pager() string {
	if v, ok := lookupEnv("HL_PAGER"); ok {
		return v
	}
	if v, ok := lookupEnv("PAGER"); ok {
		return v
	}
	return ""
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}
