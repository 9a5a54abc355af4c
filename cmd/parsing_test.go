package cmd

import (
	"testing"
	"time"

	"github.com/dalibo/hl/internal/pipeline"
	"github.com/dalibo/hl/internal/record"
)

func TestParseTimeBoundAcceptsRFC3339AndPlainForm(t *testing.T) {
	if got := parseTimeBound("--since", ""); !got.IsZero() {
		t.Fatalf("expected zero time for empty input, got %v", got)
	}
	got := parseTimeBound("--since", "2024-01-02T03:04:05Z")
	want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("RFC3339 parse: got %v, want %v", got, want)
	}
	got = parseTimeBound("--since", "2024-01-02 03:04:05")
	if !got.Equal(want) {
		t.Fatalf("plain-form parse: got %v, want %v", got, want)
	}
}

func TestParseLevelMaskDefaultsToEverything(t *testing.T) {
	mask, err := parseLevelMask(nil)
	if err != nil {
		t.Fatalf("parseLevelMask: %v", err)
	}
	if mask != record.AllLevelsMask {
		t.Fatalf("expected all-levels mask, got %08b", mask)
	}
}

func TestParseLevelMaskIsAMinimumThreshold(t *testing.T) {
	mask, err := parseLevelMask([]string{"warning"})
	if err != nil {
		t.Fatalf("parseLevelMask: %v", err)
	}
	want := record.LevelWarning.Bit() | record.LevelError.Bit()
	if mask != want {
		t.Fatalf("got %08b, want %08b", mask, want)
	}
}

func TestParseLevelMaskRejectsUnknownValue(t *testing.T) {
	if _, err := parseLevelMask([]string{"critical"}); err == nil {
		t.Fatalf("expected an error for an unrecognized level")
	}
}

func TestParseInputFormat(t *testing.T) {
	cases := map[string]record.Format{
		"json":   record.FormatJSON,
		"logfmt": record.FormatLogfmt,
		"auto":   record.FormatAuto,
		"bogus":  record.FormatAuto,
		"":       record.FormatAuto,
	}
	for in, want := range cases {
		if got := parseInputFormat(in); got != want {
			t.Fatalf("parseInputFormat(%q): got %v, want %v", in, got, want)
		}
	}
}

func TestStrftimeToGoConvertsCommonDirectives(t *testing.T) {
	got := strftimeToGo("%Y-%m-%dT%H:%M:%S%.3f%z")
	want := "2006-01-02T15:04:05.000Z07:00"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParseThemeOverlaysResolvesNamedColorsAndPassesThroughRaw(t *testing.T) {
	overrides := parseThemeOverlays([]string{"message=red", "key=\x1b[35m", "bogus-token=red", "no-equals-sign"})
	if len(overrides) != 2 {
		t.Fatalf("expected 2 resolved overlays, got %d: %v", len(overrides), overrides)
	}
	if overrides[themeTokenNames["message"]] != ansiColors["red"] {
		t.Fatalf("expected named color to resolve to its escape sequence")
	}
	if overrides[themeTokenNames["key"]] != "\x1b[35m" {
		t.Fatalf("expected an unrecognized color name to pass through verbatim")
	}
}

func TestResolveTimeLocationPrefersExplicitZoneOverLocal(t *testing.T) {
	loc, err := resolveTimeLocation("UTC", true)
	if err != nil {
		t.Fatalf("resolveTimeLocation: %v", err)
	}
	if loc != time.UTC {
		t.Fatalf("expected the named zone to win over --local, got %v", loc)
	}
}

func TestResolveTimeLocationFallsBackToLocal(t *testing.T) {
	loc, err := resolveTimeLocation("", true)
	if err != nil {
		t.Fatalf("resolveTimeLocation: %v", err)
	}
	if loc != time.Local {
		t.Fatalf("expected time.Local, got %v", loc)
	}
}

func TestResolveTimeLocationNilWhenNeitherFlagSet(t *testing.T) {
	loc, err := resolveTimeLocation("", false)
	if err != nil {
		t.Fatalf("resolveTimeLocation: %v", err)
	}
	if loc != nil {
		t.Fatalf("expected nil location, got %v", loc)
	}
}

func TestResolveTimeLocationRejectsUnknownZone(t *testing.T) {
	if _, err := resolveTimeLocation("Not/AZone", false); err == nil {
		t.Fatalf("expected an error for an unrecognized zone name")
	}
}

func TestTailLimitKeepsOnlyTheLastNRecords(t *testing.T) {
	in := make(chan pipeline.Result)
	go func() {
		for i := uint64(0); i < 5; i++ {
			in <- pipeline.Result{Records: []pipeline.FormattedRecord{{SourceSeq: i}}}
		}
		close(in)
	}()

	out := tailLimit(in, 2)
	var got []uint64
	for res := range out {
		for _, fr := range res.Records {
			got = append(got, fr.SourceSeq)
		}
	}
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Fatalf("expected the last 2 sequence numbers [3 4], got %v", got)
	}
}
