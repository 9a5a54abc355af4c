// Package format renders resolved records into the on-screen byte
// sequence described in spec.md §4.F:
// `[input-info] time level logger message key=value...`
package format

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/dalibo/hl/internal/record"
	"github.com/dalibo/hl/internal/theme"
)

// ExpansionMode controls when a field's value is broken onto its own
// line (spec.md §4.F).
type ExpansionMode int

const (
	ExpandNever ExpansionMode = iota
	ExpandInline
	ExpandAuto
	ExpandAlways
)

// complexityThreshold is the value length past which ExpandAuto breaks a
// field onto its own line even without an embedded newline.
const complexityThreshold = 80

// Options configures one Formatter instance. A worker owns one Options
// value shared read-only with every other worker in the pool.
type Options struct {
	Punct       Punctuation
	Visibility  *Visibility
	Flatten     bool
	Expansion   ExpansionMode
	Prettify    bool // underscores -> hyphens in key names
	Raw         bool // copy block bytes verbatim, no field work
	RawFields   bool // render string field values unquoted/unescaped
	HideEmpty   bool // drop fields whose value is empty
	Color       bool
	Theme       theme.Theme
	ShowInputID bool
	TimeLayout  string
	// Location renders every valid timestamp converted into this zone
	// before formatting. Nil keeps a timestamp's own parsed offset.
	Location *time.Location
}

// Formatter writes formatted records into a growable byte buffer shared
// by every record a worker processes, and reports (start,end) ranges
// into that buffer so downstream reordering can slice instead of copy
// (spec.md §4.F, last paragraph).
type Formatter struct {
	opts Options
	buf  *bytes.Buffer
}

// New creates a Formatter writing into buf, which the caller owns for
// the lifetime of one block.
func New(opts Options, buf *bytes.Buffer) *Formatter {
	return &Formatter{opts: opts, buf: buf}
}

// Range is a (start,end) slice into the Formatter's buffer.
type Range struct {
	Start, End int
}

// Format appends rec's rendering to the buffer and returns its range.
func (f *Formatter) Format(rec *record.Record, inputName string) Range {
	start := f.buf.Len()

	if f.opts.Raw {
		f.buf.Write(rec.RawSpan)
		f.buf.WriteByte('\n')
		return Range{Start: start, End: f.buf.Len()}
	}

	if f.opts.ShowInputID && inputName != "" {
		f.colorWrite(theme.TokenPunctuation, "[")
		f.buf.WriteString(inputName)
		f.colorWrite(theme.TokenPunctuation, "]")
		f.buf.WriteByte(' ')
	}

	if !rec.Time.IsZero() {
		f.writeTime(rec.Time)
		f.buf.WriteByte(' ')
	}

	if rec.Level != record.LevelUnset {
		f.colorWrite(theme.TokenPunctuation, "|")
		f.buf.WriteString(levelLabel(rec.Level))
		f.colorWrite(theme.TokenPunctuation, "|")
		f.buf.WriteByte(' ')
	}

	if rec.Logger != "" {
		f.colorWrite(theme.TokenPunctuation, f.opts.Punct.LoggerOpen)
		f.colorWrite(theme.TokenLogger, rec.Logger)
		f.colorWrite(theme.TokenPunctuation, f.opts.Punct.LoggerClose)
		f.buf.WriteByte(' ')
	}

	if rec.CallerFunc != "" || rec.CallerFile != "" {
		f.writeCaller(rec)
	}

	if rec.Message != "" {
		f.colorWrite(theme.TokenMessage, rec.Message)
		f.buf.WriteByte(' ')
	}

	f.writeFields(rec, int(rec.Level))

	// trim a single trailing separator before the newline
	if f.buf.Len() > start {
		b := f.buf.Bytes()
		if b[len(b)-1] == ' ' {
			f.buf.Truncate(len(b) - 1)
		}
	}
	f.buf.WriteByte('\n')
	return Range{Start: start, End: f.buf.Len()}
}

func (f *Formatter) colorWrite(tok theme.SemanticToken, s string) {
	if f.opts.Color {
		if seq := f.opts.Theme.Render(tok, 0); seq != "" {
			f.buf.WriteString(seq)
			f.buf.WriteString(s)
			f.buf.WriteString(theme.Reset)
			return
		}
	}
	f.buf.WriteString(s)
}

func (f *Formatter) writeTime(ts record.Timestamp) {
	if ts.Valid {
		layout := f.opts.TimeLayout
		if layout == "" {
			layout = "2006-01-02T15:04:05.000Z07:00"
		}
		instant := ts.Instant
		if f.opts.Location != nil {
			instant = instant.In(f.opts.Location)
		}
		f.colorWrite(theme.TokenTime, instant.Format(layout))
		return
	}
	f.colorWrite(theme.TokenTime, ts.Opaque)
}

func levelLabel(l record.Level) string {
	switch l {
	case record.LevelUnrecognized:
		return "(?)"
	default:
		return strings.ToUpper(l.String())
	}
}

func (f *Formatter) writeCaller(rec *record.Record) {
	f.colorWrite(theme.TokenPunctuation, f.opts.Punct.CallerOpen)
	switch {
	case rec.CallerFile != "" && rec.CallerLine > 0:
		f.colorWrite(theme.TokenCaller, rec.CallerFile+":"+strconv.Itoa(rec.CallerLine))
	case rec.CallerFunc != "":
		f.colorWrite(theme.TokenCaller, rec.CallerFunc)
	}
	f.colorWrite(theme.TokenPunctuation, f.opts.Punct.CallerClose)
	f.buf.WriteByte(' ')
}

func (f *Formatter) writeFields(rec *record.Record, level int) {
	for _, fld := range rec.Fields {
		if fld.Role != record.RoleNone {
			continue // already rendered as a predefined role above
		}
		f.writeField(prettify(fld.Key, f.opts.Prettify), fld.Value, level)
	}
}

func (f *Formatter) writeField(key string, v record.Value, level int) {
	if f.opts.Visibility != nil && !f.opts.Visibility.Visible(key) {
		return
	}
	if f.opts.HideEmpty && isEmptyValue(v) {
		return
	}

	if f.opts.Flatten && v.Kind == record.KindObject {
		for _, sub := range v.Object {
			childKey := key + "." + prettify(sub.Key, f.opts.Prettify)
			f.writeField(childKey, sub.Value, level)
		}
		return
	}

	f.colorWrite(theme.TokenKey, key)
	f.colorWrite(theme.TokenPunctuation, f.opts.Punct.KeyValueSep)
	f.writeValue(v, level)
	f.buf.WriteByte(' ')
}

func (f *Formatter) writeValue(v record.Value, level int) {
	switch v.Kind {
	case record.KindString:
		if f.opts.RawFields {
			f.colorWrite(theme.TokenValueString, v.String())
			return
		}
		f.writeStringValue(v.String())
	case record.KindNumber:
		f.colorWrite(theme.TokenValueNumber, v.String())
	case record.KindBool:
		f.colorWrite(theme.TokenValueBool, v.String())
	case record.KindNull:
		f.colorWrite(theme.TokenValueNull, "null")
	case record.KindArray:
		f.colorWrite(theme.TokenPunctuation, "[")
		for i, elem := range v.Array {
			if i > 0 {
				f.buf.WriteString(f.opts.Punct.ArraySep)
			}
			f.writeValue(elem, level)
		}
		f.colorWrite(theme.TokenPunctuation, "]")
	case record.KindObject:
		f.colorWrite(theme.TokenPunctuation, f.opts.Punct.ObjectOpen)
		for i, sub := range v.Object {
			if i > 0 {
				f.buf.WriteString(f.opts.Punct.ArraySep)
			}
			f.colorWrite(theme.TokenKey, prettify(sub.Key, f.opts.Prettify))
			f.colorWrite(theme.TokenPunctuation, f.opts.Punct.KeyValueSep)
			f.writeValue(sub.Value, level)
		}
		f.colorWrite(theme.TokenPunctuation, f.opts.Punct.ObjectClose)
	}
}

func (f *Formatter) writeStringValue(s string) {
	needsQuote := strings.ContainsAny(s, " \t")
	expanded := f.shouldExpand(s)

	if needsQuote && !expanded {
		f.colorWrite(theme.TokenPunctuation, f.opts.Punct.MessageQuote)
	}

	switch f.opts.Expansion {
	case ExpandNever:
		f.colorWrite(theme.TokenValueString, escapeNewlines(s))
	case ExpandInline:
		f.colorWrite(theme.TokenValueString, s)
	case ExpandAuto, ExpandAlways:
		if expanded {
			f.buf.WriteByte('\n')
			for _, line := range strings.Split(s, "\n") {
				f.buf.WriteString("    ")
				f.colorWrite(theme.TokenValueString, line)
				f.buf.WriteByte('\n')
			}
		} else {
			f.colorWrite(theme.TokenValueString, s)
		}
	}

	if needsQuote && !expanded {
		f.colorWrite(theme.TokenPunctuation, f.opts.Punct.MessageQuote)
	}
}

func (f *Formatter) shouldExpand(s string) bool {
	switch f.opts.Expansion {
	case ExpandAlways:
		return true
	case ExpandAuto:
		return strings.Contains(s, "\n") || len(s) > complexityThreshold
	default:
		return false
	}
}

func escapeNewlines(s string) string {
	if !strings.ContainsAny(s, "\n\t") {
		return s
	}
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}

func prettify(key string, enabled bool) string {
	if !enabled {
		return key
	}
	return strings.ReplaceAll(key, "_", "-")
}

// isEmptyValue reports whether v holds no information worth displaying:
// an empty string, an empty array, or an empty object. Numbers, bools,
// and null are never considered empty; a null is an explicit value, not
// an absence of one.
func isEmptyValue(v record.Value) bool {
	switch v.Kind {
	case record.KindString:
		return len(v.Raw) == 0
	case record.KindArray:
		return len(v.Array) == 0
	case record.KindObject:
		return len(v.Object) == 0
	default:
		return false
	}
}

// Slice returns the bytes of r within buf.
func Slice(buf []byte, r Range) []byte {
	if r.Start < 0 || r.End > len(buf) || r.Start > r.End {
		return nil
	}
	return buf[r.Start:r.End]
}
