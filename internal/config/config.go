// Package config loads and layers hl's effective settings: embedded
// defaults, system config, user config, HL_* environment variables, and
// finally CLI flags, in that increasing-priority order (spec.md §6).
package config

import "github.com/dalibo/hl/internal/format"

// LevelVariant names one family of level-token spellings, e.g. Python's
// numeric levels vs. a "warn"/"warning" textual convention.
type LevelVariant struct {
	Name   string              `toml:"name" yaml:"name" json:"name"`
	Values map[string][]string `toml:"values" yaml:"values" json:"values"` // canonical level -> tokens
}

// RoleConfig is one predefined-field role's configuration: its ordered
// alias list, and whether an absent/unrecognized value still renders a
// placeholder.
type RoleConfig struct {
	Names []string `toml:"names" yaml:"names" json:"names"`
	Show  string   `toml:"show" yaml:"show" json:"show"` // never|auto|always
}

// PredefinedFields configures role resolution (spec.md §4.D).
type PredefinedFields struct {
	Time       RoleConfig     `toml:"time" yaml:"time" json:"time"`
	Level      RoleConfig     `toml:"level" yaml:"level" json:"level"`
	Message    RoleConfig     `toml:"message" yaml:"message" json:"message"`
	Logger     RoleConfig     `toml:"logger" yaml:"logger" json:"logger"`
	Caller     RoleConfig     `toml:"caller" yaml:"caller" json:"caller"`
	CallerFile RoleConfig     `toml:"caller-file" yaml:"caller-file" json:"caller-file"`
	CallerLine RoleConfig     `toml:"caller-line" yaml:"caller-line" json:"caller-line"`
	Variants   []LevelVariant `toml:"variants" yaml:"variants" json:"variants"`
}

// Fields groups predefined-field resolution with the hide/ignore lists.
type Fields struct {
	Predefined PredefinedFields `toml:"predefined" yaml:"predefined" json:"predefined"`
	Hide       []string         `toml:"hide" yaml:"hide" json:"hide"`
	Ignore     []string         `toml:"ignore" yaml:"ignore" json:"ignore"`
}

// MessageStyle configures message-field emphasis, keyed by level.
type MessageStyle struct {
	Style string `toml:"style" yaml:"style" json:"style"`
}

// Formatting groups the Formatter's Options (spec.md §4.F).
type Formatting struct {
	Flatten           string            `toml:"flatten" yaml:"flatten" json:"flatten"` // never|always
	Expansion         string            `toml:"expansion" yaml:"expansion" json:"expansion"`
	PrettifyFieldKeys *bool             `toml:"prettify-field-keys" yaml:"prettify-field-keys" json:"prettify-field-keys"`
	Message           MessageStyle      `toml:"message" yaml:"message" json:"message"`
	Punctuation       map[string]string `toml:"punctuation" yaml:"punctuation" json:"punctuation"`
}

// Settings is the fully merged, effective configuration for one run.
type Settings struct {
	TimeFormat    string   `toml:"time-format" yaml:"time-format" json:"time-format"`
	TimeZone      string   `toml:"time-zone" yaml:"time-zone" json:"time-zone"`
	Theme         string   `toml:"theme" yaml:"theme" json:"theme"`
	ThemeOverlays []string `toml:"theme-overlays" yaml:"theme-overlays" json:"theme-overlays"`

	Fields     Fields     `toml:"fields" yaml:"fields" json:"fields"`
	Formatting Formatting `toml:"formatting" yaml:"formatting" json:"formatting"`

	Concurrency    int    `toml:"concurrency" yaml:"concurrency" json:"concurrency"`
	BufferSize     string `toml:"buffer-size" yaml:"buffer-size" json:"buffer-size"`
	MaxMessageSize string `toml:"max-message-size" yaml:"max-message-size" json:"max-message-size"`

	InterruptIgnoreCount int `toml:"interrupt-ignore-count" yaml:"interrupt-ignore-count" json:"interrupt-ignore-count"`
}

// Default returns hl's embedded defaults, the lowest-priority layer.
func Default() Settings {
	return Settings{
		TimeFormat: "%Y-%m-%dT%H:%M:%S%.3f%z",
		Theme:      "default",
		Fields: Fields{
			Predefined: PredefinedFields{
				Time:       RoleConfig{Names: []string{"time", "ts", "timestamp", "@timestamp"}, Show: "auto"},
				Level:      RoleConfig{Names: []string{"level", "lvl", "severity"}, Show: "auto"},
				Message:    RoleConfig{Names: []string{"msg", "message"}, Show: "auto"},
				Logger:     RoleConfig{Names: []string{"logger", "log.logger", "name"}, Show: "auto"},
				Caller:     RoleConfig{Names: []string{"caller", "func"}, Show: "auto"},
				CallerFile: RoleConfig{Names: []string{"file", "caller_file"}, Show: "auto"},
				CallerLine: RoleConfig{Names: []string{"line", "caller_line"}, Show: "auto"},
			},
		},
		Formatting: Formatting{
			Flatten:           "never",
			Expansion:         "auto",
			PrettifyFieldKeys: boolPtr(true),
		},
		Concurrency:          0, // 0 means "use CPU count" (resolved at startup)
		BufferSize:           "2MiB",
		MaxMessageSize:       "1MiB",
		InterruptIgnoreCount: 3,
	}
}

// Punctuation converts the configured punctuation overrides (if any)
// onto the base table, falling back to ASCII entries for keys in
// asciiMode.
func (s Settings) Punctuation(asciiMode bool) format.Punctuation {
	p := format.DefaultPunctuation()
	if asciiMode {
		p = format.ASCIIPunctuation()
	}
	for k, v := range s.Formatting.Punctuation {
		applyPunctuationOverride(&p, k, v)
	}
	return p
}

func boolPtr(b bool) *bool { return &b }

// Prettify reports whether field keys should be prettified, defaulting
// to true when unset.
func (f Formatting) Prettify() bool {
	return f.PrettifyFieldKeys == nil || *f.PrettifyFieldKeys
}

func applyPunctuationOverride(p *format.Punctuation, key, value string) {
	switch key {
	case "key-value-sep":
		p.KeyValueSep = value
	case "field-sep":
		p.FieldSep = value
	case "array-sep":
		p.ArraySep = value
	case "logger-open":
		p.LoggerOpen = value
	case "logger-close":
		p.LoggerClose = value
	case "caller-open":
		p.CallerOpen = value
	case "caller-close":
		p.CallerClose = value
	case "message-quote":
		p.MessageQuote = value
	case "object-open":
		p.ObjectOpen = value
	case "object-close":
		p.ObjectClose = value
	case "ellipsis":
		p.EllipsisMarker = value
	}
}
