package record

import (
	"strconv"
	"strings"
	"time"
)

// ShowMode controls whether a missing or unrecognized predefined-role
// value renders a placeholder.
type ShowMode int

const (
	ShowAuto ShowMode = iota
	ShowNever
	ShowAlways
)

// TimestampUnit overrides auto-detection of numeric timestamp magnitude.
type TimestampUnit int

const (
	UnitAuto TimestampUnit = iota
	UnitSeconds
	UnitMillis
	UnitMicros
	UnitNanos
)

// Resolver maps raw field names to canonical roles and normalizes
// timestamp/level values, per spec.md §4.D.
type Resolver struct {
	RoleNames map[Role][]string
	RoleShow  map[Role]ShowMode

	// levelTokens maps a lowercased token to its canonical level. Built
	// from one or more configured level variants merged together.
	levelTokens map[string]Level
	levelInts   map[int64]Level

	UnixUnit TimestampUnit
}

// NewDefaultResolver returns a resolver configured with the common field
// aliases used across structured logging libraries in the ecosystem
// (logrus/zap/bunyan/zerolog-style names), matching the breadth the
// teacher's own extractLogEntry/parseTimestampValue apply across
// PostgreSQL JSON log variants (CNPG, Cloud SQL, plain jsonlog).
func NewDefaultResolver() *Resolver {
	r := &Resolver{
		RoleNames: map[Role][]string{
			RoleTime:       {"time", "ts", "timestamp", "@timestamp"},
			RoleLevel:      {"level", "lvl", "severity", "loglevel"},
			RoleMessage:    {"message", "msg", "text"},
			RoleLogger:     {"logger", "logger_name", "name"},
			RoleCaller:     {"caller", "source"},
			RoleCallerFile: {"caller_file", "file"},
			RoleCallerLine: {"caller_line", "line"},
		},
		RoleShow: map[Role]ShowMode{
			RoleTime:  ShowAuto,
			RoleLevel: ShowAuto,
		},
		UnixUnit: UnitAuto,
	}
	r.SetLevelVariant(DefaultLevelVariant())
	return r
}

// LevelVariant groups the tokens/integers recognized for each canonical
// level, matching the config schema's
// fields.predefined.level.variants[].values.{error,warning,info,debug,trace}.
type LevelVariant struct {
	Name   string
	Values map[Level][]string
}

// DefaultLevelVariant returns the built-in token mapping.
func DefaultLevelVariant() LevelVariant {
	return LevelVariant{
		Name: "default",
		Values: map[Level][]string{
			LevelTrace:   {"trace", "trc", "0"},
			LevelDebug:   {"debug", "dbg", "1"},
			LevelInfo:    {"info", "inf", "information", "2"},
			LevelWarning: {"warning", "warn", "wrn", "3"},
			LevelError:   {"error", "err", "fatal", "panic", "critical", "4", "5", "6"},
		},
	}
}

// SetLevelVariant installs variant as the resolver's active level
// mapping, replacing any previously set variant(s). Multiple variants can
// be merged by calling AddLevelVariant repeatedly after this.
func (r *Resolver) SetLevelVariant(variant LevelVariant) {
	r.levelTokens = map[string]Level{}
	r.levelInts = map[int64]Level{}
	r.AddLevelVariant(variant)
}

// AddLevelVariant merges an additional variant's tokens into the active
// mapping without clearing previously installed ones, so multiple logging
// conventions can coexist in a single run (e.g. mixed-source merges).
func (r *Resolver) AddLevelVariant(variant LevelVariant) {
	if r.levelTokens == nil {
		r.levelTokens = map[string]Level{}
	}
	if r.levelInts == nil {
		r.levelInts = map[int64]Level{}
	}
	for level, tokens := range variant.Values {
		for _, tok := range tokens {
			r.levelTokens[strings.ToLower(tok)] = level
			if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
				r.levelInts[n] = level
			}
		}
	}
}

// Resolve walks rawFields in insertion order, assigning the first field
// matching each role's name list to that role; later fields with the same
// role name remain ordinary custom fields (spec.md §4.D).
func (r *Resolver) Resolve(rawFields []Field, rawSpan, prefixSpan []byte) Record {
	rec := Record{
		RawSpan:    rawSpan,
		PrefixSpan: prefixSpan,
	}

	assigned := map[Role]bool{}
	roleFor := func(key string) Role {
		for role, names := range r.RoleNames {
			if assigned[role] {
				continue
			}
			for _, n := range names {
				if n == key {
					return role
				}
			}
		}
		return RoleNone
	}

	fields := make([]Field, 0, len(rawFields))
	for _, f := range rawFields {
		role := roleFor(f.Key)
		if role != RoleNone {
			assigned[role] = true
			f.Role = role
			rec.Roles.Set(role)
		}
		fields = append(fields, f)
	}
	rec.Fields = fields

	if f, ok := rec.FieldByRole(RoleTime); ok {
		rec.Time = r.normalizeTimestamp(f.Value)
	}
	if f, ok := rec.FieldByRole(RoleLevel); ok {
		rec.Level = r.normalizeLevel(f.Value)
	}
	if f, ok := rec.FieldByRole(RoleMessage); ok {
		rec.Message = f.Value.String()
	}
	if f, ok := rec.FieldByRole(RoleLogger); ok {
		rec.Logger = f.Value.String()
	}
	if f, ok := rec.FieldByRole(RoleCaller); ok {
		rec.CallerFunc = f.Value.String()
	}
	if f, ok := rec.FieldByRole(RoleCallerFile); ok {
		rec.CallerFile = f.Value.String()
	}
	if f, ok := rec.FieldByRole(RoleCallerLine); ok {
		if n, err := strconv.Atoi(f.Value.String()); err == nil {
			rec.CallerLine = n
		}
	}

	return rec
}

// isoLayouts are tried in order for string timestamp values that are not
// RFC-3339.
var isoLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func (r *Resolver) normalizeTimestamp(v Value) Timestamp {
	switch v.Kind {
	case KindString:
		s := v.String()
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return Timestamp{Instant: t, Valid: true}
		}
		for _, layout := range isoLayouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return Timestamp{Instant: t, Valid: true}
			}
		}
		return Timestamp{Opaque: s}
	case KindNumber:
		s := v.String()
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Timestamp{Instant: r.numericToTime(f), Valid: true}
		}
		return Timestamp{Opaque: s}
	default:
		return Timestamp{Opaque: v.String()}
	}
}

// numericToTime converts a numeric timestamp value to a time.Time,
// auto-detecting seconds/ms/us/ns by magnitude unless UnixUnit overrides
// it (spec.md §4.D).
func (r *Resolver) numericToTime(v float64) time.Time {
	unit := r.UnixUnit
	if unit == UnitAuto {
		switch {
		case v >= 1e18:
			unit = UnitNanos
		case v >= 1e15:
			unit = UnitMicros
		case v >= 1e12:
			unit = UnitMillis
		default:
			unit = UnitSeconds
		}
	}
	switch unit {
	case UnitNanos:
		return time.Unix(0, int64(v))
	case UnitMicros:
		return time.Unix(0, int64(v)*int64(time.Microsecond))
	case UnitMillis:
		return time.Unix(0, int64(v)*int64(time.Millisecond))
	default:
		sec := int64(v)
		frac := v - float64(sec)
		return time.Unix(sec, int64(frac*float64(time.Second)))
	}
}

func (r *Resolver) normalizeLevel(v Value) Level {
	switch v.Kind {
	case KindString:
		if lvl, ok := r.levelTokens[strings.ToLower(v.String())]; ok {
			return lvl
		}
		return LevelUnrecognized
	case KindNumber:
		s := v.String()
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			if lvl, ok := r.levelInts[n]; ok {
				return lvl
			}
		}
		return LevelUnrecognized
	default:
		return LevelUnrecognized
	}
}
