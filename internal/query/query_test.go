package query

import (
	"testing"
	"time"

	"github.com/dalibo/hl/internal/record"
)

func rec(fields ...record.Field) *record.Record {
	return &record.Record{Fields: fields}
}

func strField(key, val string) record.Field {
	return record.Field{Key: key, Value: record.Value{Kind: record.KindString, Raw: []byte(val)}}
}

func TestCompileSimpleComparison(t *testing.T) {
	n, err := Compile(`status = 500`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	r := rec(strField("status", "500"))
	if !n.matches(r) {
		t.Fatalf("expected match")
	}
	r2 := rec(strField("status", "200"))
	if n.matches(r2) {
		t.Fatalf("expected no match")
	}
}

func TestCompileAndOrNot(t *testing.T) {
	n, err := Compile(`status = 500 and (region = "us" or region = "eu")`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	ok := rec(strField("status", "500"), strField("region", "eu"))
	if !n.matches(ok) {
		t.Fatalf("expected match")
	}
	bad := rec(strField("status", "500"), strField("region", "ap"))
	if n.matches(bad) {
		t.Fatalf("expected no match")
	}

	neg, err := Compile(`not status = 500`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if neg.matches(ok) {
		t.Fatalf("not should have excluded a 500")
	}
}

func TestCompileSetAndExists(t *testing.T) {
	n, err := Compile(`status in (500, 502, 504) and exists(request-id)`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	ok := rec(strField("status", "502"), strField("request-id", "abc"))
	if !n.matches(ok) {
		t.Fatalf("expected match")
	}
	missingID := rec(strField("status", "502"))
	if n.matches(missingID) {
		t.Fatalf("expected no match when request-id absent")
	}
}

func TestCompileAbsentModifier(t *testing.T) {
	n, err := Compile(`region? = "us"`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !n.matches(rec()) {
		t.Fatalf("absent field should count as match with the ? modifier")
	}
}

func TestCompileLikeGlob(t *testing.T) {
	n, err := Compile(`path like "/api/*"`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !n.matches(rec(strField("path", "/api/users"))) {
		t.Fatalf("expected glob match")
	}
	if n.matches(rec(strField("path", "/health"))) {
		t.Fatalf("expected no glob match")
	}
}

func TestCompileRegex(t *testing.T) {
	n, err := Compile(`msg ~~= "^boot.*done$"`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !n.matches(rec(strField("msg", "boot sequence done"))) {
		t.Fatalf("expected regex match")
	}
}

func TestLevelTermCompiles(t *testing.T) {
	n, err := Compile(`level >= warning`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	r := &record.Record{Level: record.LevelError}
	if !n.matches(r) {
		t.Fatalf("error should satisfy >= warning")
	}
	r2 := &record.Record{Level: record.LevelInfo}
	if n.matches(r2) {
		t.Fatalf("info should not satisfy >= warning")
	}
}

func TestQueryCombinesLevelAndTimeBounds(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q, err := New(nil, record.Level(0).Bit()|record.LevelError.Bit()|record.LevelWarning.Bit(), since, time.Time{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	inRange := &record.Record{Level: record.LevelError, Time: record.Timestamp{Valid: true, Instant: since.Add(time.Hour)}}
	if !q.Matches(inRange) {
		t.Fatalf("expected match within bounds")
	}
	tooEarly := &record.Record{Level: record.LevelError, Time: record.Timestamp{Valid: true, Instant: since.Add(-time.Hour)}}
	if q.Matches(tooEarly) {
		t.Fatalf("expected no match before since")
	}
	wrongLevel := &record.Record{Level: record.LevelInfo, Time: record.Timestamp{Valid: true, Instant: since.Add(time.Hour)}}
	if q.Matches(wrongLevel) {
		t.Fatalf("expected no match for excluded level")
	}
}

func TestCanBlockContainSkipsOutOfRangeBlocks(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	q, err := New(nil, record.AllLevelsMask, since, until)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if q.CanBlockContain(record.AllLevelsMask, since.Add(-48*time.Hour), since.Add(-24*time.Hour)) {
		t.Fatalf("block entirely before 'since' should be skippable")
	}
	if !q.CanBlockContain(record.AllLevelsMask, since.Add(time.Hour), since.Add(2*time.Hour)) {
		t.Fatalf("block within range should not be skipped")
	}
}

func TestCompileFieldSetOperandReadsAndCachesFromFirstRecord(t *testing.T) {
	n, err := Compile(`status in @allowed_statuses`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	allowed := record.Value{Kind: record.KindArray, Array: []record.Value{
		{Kind: record.KindString, Raw: []byte("200")},
		{Kind: record.KindString, Raw: []byte("202")},
	}}
	first := rec(strField("status", "202"), record.Field{Key: "allowed_statuses", Value: allowed})
	if !n.matches(first) {
		t.Fatalf("expected 202 to be in the first record's own allowed_statuses set")
	}

	// the set is cached from the first record; a later record lacking
	// (or disagreeing with) allowed_statuses still matches against it.
	later := rec(strField("status", "200"))
	if !n.matches(later) {
		t.Fatalf("expected 200 to match the cached set from the first record")
	}
	excluded := rec(strField("status", "500"))
	if n.matches(excluded) {
		t.Fatalf("expected 500 to be excluded by the cached set")
	}
}

func TestCompileFieldSetOperandNotIn(t *testing.T) {
	n, err := Compile(`status not in @denied`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	first := rec(strField("status", "500"), record.Field{Key: "denied", Value: record.Value{
		Kind: record.KindArray, Array: []record.Value{{Kind: record.KindString, Raw: []byte("500")}},
	}})
	if n.matches(first) {
		t.Fatalf("expected 500 to be excluded by 'not in' against the cached denied set")
	}
}
