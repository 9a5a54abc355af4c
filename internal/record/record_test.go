package record

import (
	"bytes"
	"testing"
)

func TestAutoParserDispatch(t *testing.T) {
	p := &AutoParser{}

	fields, err := p.Parse([]byte(`{"msg":"hi","n":1}`))
	if err != nil {
		t.Fatalf("json parse failed: %v", err)
	}
	if len(fields) != 2 || fields[0].Key != "msg" || fields[1].Key != "n" {
		t.Fatalf("unexpected fields: %+v", fields)
	}

	fields, err = p.Parse([]byte(`time=2024-01-15T10:30:45Z level=info msg="hi" user_id=42`))
	if err != nil {
		t.Fatalf("logfmt parse failed: %v", err)
	}
	if len(fields) != 4 {
		t.Fatalf("expected 4 fields, got %d: %+v", len(fields), fields)
	}
}

func TestResolverFirstMatchWins(t *testing.T) {
	r := NewDefaultResolver()
	fields, err := (&LogfmtParser{}).Parse([]byte(`level=info level=ignored-duplicate msg=hi`))
	if err != nil {
		t.Fatal(err)
	}
	rec := r.Resolve(fields, nil, nil)
	if rec.Level != LevelInfo {
		t.Fatalf("expected info level, got %v", rec.Level)
	}
	// the second "level" field keeps its raw key but is not re-assigned
	// the role (spec.md §4.D: "later fields with the same role name
	// become ordinary custom fields").
	var customLevels int
	for _, f := range rec.Fields {
		if f.Key == "level" && f.Role == RoleNone {
			customLevels++
		}
	}
	if customLevels != 1 {
		t.Fatalf("expected exactly one unassigned duplicate level field, got %d", customLevels)
	}
}

func TestReparseIsDeterministic(t *testing.T) {
	raw := []byte(`{"time":"2024-01-15T10:30:45Z","level":"info","msg":"hi","user_id":42}`)
	p := &JSONParser{}
	r := NewDefaultResolver()

	fields1, err := p.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	rec1 := r.Resolve(fields1, raw, nil)

	fields2, err := p.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	rec2 := r.Resolve(fields2, raw, nil)

	if rec1.Message != rec2.Message || rec1.Level != rec2.Level || !rec1.Time.Instant.Equal(rec2.Time.Instant) {
		t.Fatalf("round trip diverged: %+v vs %+v", rec1, rec2)
	}
	if !bytes.Equal(rec1.RawSpan, rec2.RawSpan) {
		t.Fatalf("raw span diverged")
	}
}

func TestNumericTimestampAutoMagnitude(t *testing.T) {
	r := NewDefaultResolver()
	fields, err := (&JSONParser{}).Parse([]byte(`{"ts":1705315845123,"level":"warn","msg":"retry"}`))
	if err != nil {
		t.Fatal(err)
	}
	rec := r.Resolve(fields, nil, nil)
	if !rec.Time.Valid {
		t.Fatalf("expected valid timestamp")
	}
	if rec.Time.Instant.UnixMilli() != 1705315845123 {
		t.Fatalf("expected ms-precision timestamp, got %v", rec.Time.Instant)
	}
	if rec.Level != LevelWarning {
		t.Fatalf("expected warning level, got %v", rec.Level)
	}
}

func TestUnrecognizedLevelNeverMatchesBit(t *testing.T) {
	r := NewDefaultResolver()
	fields, _ := (&LogfmtParser{}).Parse([]byte(`level=bogus msg=hi`))
	rec := r.Resolve(fields, nil, nil)
	if rec.Level != LevelUnrecognized {
		t.Fatalf("expected unrecognized, got %v", rec.Level)
	}
	if rec.Level.Bit() != 0 {
		t.Fatalf("unrecognized level must carry no bitmap bit")
	}
}
