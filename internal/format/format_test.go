package format

import (
	"bytes"
	"testing"
	"time"

	"github.com/dalibo/hl/internal/record"
)

func rec() *record.Record {
	return &record.Record{
		Message: "listening",
		Level:   record.LevelInfo,
		Logger:  "server",
		Fields: []record.Field{
			{Key: "logger", Role: record.RoleLogger},
			{Key: "port", Value: record.Value{Kind: record.KindNumber, Raw: []byte("8080")}},
			{Key: "request_id", Value: record.Value{Kind: record.KindString, Raw: []byte("abc")}},
		},
	}
}

func TestFormatBasicFields(t *testing.T) {
	buf := &bytes.Buffer{}
	f := New(Options{Punct: DefaultPunctuation()}, buf)
	r := f.Format(rec(), "")
	out := string(Slice(buf.Bytes(), r))
	if !bytes.Contains([]byte(out), []byte("listening")) {
		t.Fatalf("message missing: %q", out)
	}
	if !bytes.Contains([]byte(out), []byte("port=8080")) {
		t.Fatalf("field missing: %q", out)
	}
}

func TestFormatPrettifyKeys(t *testing.T) {
	buf := &bytes.Buffer{}
	f := New(Options{Punct: DefaultPunctuation(), Prettify: true}, buf)
	r := f.Format(rec(), "")
	out := string(Slice(buf.Bytes(), r))
	if !bytes.Contains([]byte(out), []byte("request-id=abc")) {
		t.Fatalf("expected prettified key, got %q", out)
	}
}

func TestFormatHidesFieldsPastVisibility(t *testing.T) {
	vis, err := NewVisibility([]string{"request_id"})
	if err != nil {
		t.Fatalf("NewVisibility: %v", err)
	}
	buf := &bytes.Buffer{}
	f := New(Options{Punct: DefaultPunctuation(), Visibility: vis}, buf)
	r := f.Format(rec(), "")
	out := string(Slice(buf.Bytes(), r))
	if bytes.Contains([]byte(out), []byte("request_id")) {
		t.Fatalf("expected request_id hidden, got %q", out)
	}
	if !bytes.Contains([]byte(out), []byte("port=8080")) {
		t.Fatalf("port should still be visible: %q", out)
	}
}

func TestFormatRawModeCopiesVerbatim(t *testing.T) {
	r := &record.Record{RawSpan: []byte(`{"raw":true}`)}
	buf := &bytes.Buffer{}
	f := New(Options{Raw: true}, buf)
	rng := f.Format(r, "")
	out := string(Slice(buf.Bytes(), rng))
	if out != "{\"raw\":true}\n" {
		t.Fatalf("unexpected raw output: %q", out)
	}
}

func TestFormatHideEmptyFieldsDropsOnlyEmptyValues(t *testing.T) {
	r := &record.Record{
		Fields: []record.Field{
			{Key: "trace_id", Value: record.Value{Kind: record.KindString, Raw: []byte("")}},
			{Key: "port", Value: record.Value{Kind: record.KindNumber, Raw: []byte("0")}},
			{Key: "tags", Value: record.Value{Kind: record.KindArray}},
		},
	}
	buf := &bytes.Buffer{}
	f := New(Options{Punct: DefaultPunctuation(), HideEmpty: true}, buf)
	rng := f.Format(r, "")
	out := string(Slice(buf.Bytes(), rng))
	if bytes.Contains([]byte(out), []byte("trace_id")) || bytes.Contains([]byte(out), []byte("tags")) {
		t.Fatalf("expected empty fields hidden, got %q", out)
	}
	if !bytes.Contains([]byte(out), []byte("port=0")) {
		t.Fatalf("a zero number is not empty, expected it kept: %q", out)
	}
}

func TestFormatRawFieldsRendersStringsUnescaped(t *testing.T) {
	r := &record.Record{
		Fields: []record.Field{
			{Key: "path", Value: record.Value{Kind: record.KindString, Raw: []byte(`a\nb`)}},
		},
	}
	buf := &bytes.Buffer{}
	f := New(Options{Punct: DefaultPunctuation(), RawFields: true}, buf)
	rng := f.Format(r, "")
	out := string(Slice(buf.Bytes(), rng))
	if !bytes.Contains([]byte(out), []byte(`path=a\nb`)) {
		t.Fatalf("expected unescaped raw rendering, got %q", out)
	}
}

func TestFormatTimeConvertsToConfiguredLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	ts := record.Timestamp{Valid: true, Instant: time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)}
	r := &record.Record{Time: ts}
	buf := &bytes.Buffer{}
	f := New(Options{Punct: DefaultPunctuation(), Location: loc, TimeLayout: "15:04"}, buf)
	rng := f.Format(r, "")
	out := string(Slice(buf.Bytes(), rng))
	want := ts.Instant.In(loc).Format("15:04")
	if !bytes.Contains([]byte(out), []byte(want)) {
		t.Fatalf("expected converted time %q, got %q", want, out)
	}
}

func TestFormatMultipleRecordsProduceDisjointRanges(t *testing.T) {
	buf := &bytes.Buffer{}
	f := New(Options{Punct: DefaultPunctuation()}, buf)
	r1 := f.Format(rec(), "")
	r2 := f.Format(rec(), "")
	if r1.End != r2.Start {
		t.Fatalf("expected adjacent ranges, got %+v %+v", r1, r2)
	}
}
