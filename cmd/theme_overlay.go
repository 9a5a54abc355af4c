package cmd

import (
	"strings"

	"github.com/dalibo/hl/internal/theme"
)

// ansiColors maps the small set of color names --theme-overlay accepts
// to their escape sequences.
var ansiColors = map[string]string{
	"red":    "\033[31m",
	"yellow": "\033[33m",
	"blue":   "\033[34m",
	"cyan":   "\033[36m",
	"gray":   "\033[90m",
	"bold":   "\033[1m",
	"faint":  "\033[2m",
	"none":   "",
}

var themeTokenNames = map[string]theme.SemanticToken{
	"punctuation":  theme.TokenPunctuation,
	"time":         theme.TokenTime,
	"logger":       theme.TokenLogger,
	"caller":       theme.TokenCaller,
	"message":      theme.TokenMessage,
	"key":          theme.TokenKey,
	"value-string": theme.TokenValueString,
	"value-number": theme.TokenValueNumber,
	"value-bool":   theme.TokenValueBool,
	"value-null":   theme.TokenValueNull,
}

// parseThemeOverlays turns "token=color" entries from --theme-overlay
// into the map Overlay expects, skipping anything unrecognized.
func parseThemeOverlays(entries []string) map[theme.SemanticToken]string {
	if len(entries) == 0 {
		return nil
	}
	out := make(map[theme.SemanticToken]string)
	for _, e := range entries {
		name, color, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		tok, ok := themeTokenNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		if seq, ok := ansiColors[strings.ToLower(strings.TrimSpace(color))]; ok {
			out[tok] = seq
		} else {
			out[tok] = color
		}
	}
	return out
}
