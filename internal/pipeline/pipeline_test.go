package pipeline

import (
	"runtime"
	"testing"
	"time"

	"github.com/dalibo/hl/internal/block"
	"github.com/dalibo/hl/internal/blockindex"
	"github.com/dalibo/hl/internal/format"
	"github.com/dalibo/hl/internal/query"
	"github.com/dalibo/hl/internal/record"
)

func TestResolveConcurrency(t *testing.T) {
	if got := ResolveConcurrency(0, 1); got != runtime.NumCPU() {
		t.Fatalf("default concurrency should resolve to the CPU count %d, got %d", runtime.NumCPU(), got)
	}
	if got := ResolveConcurrency(8, 1); got != 8 {
		t.Fatalf("explicit concurrency should always win, got %d", got)
	}
}

func TestProcessBlockParsesAndFormats(t *testing.T) {
	blk := block.Block{Bytes: []byte(`{"level":"info","msg":"hi"}` + "\n"), Seq: 0}
	opts := WorkerOptions{
		DelimMode: block.ModeLF,
		Parser:    record.New(record.FormatAuto, 32),
		Resolver:  record.NewDefaultResolver(),
		Format:    format.Options{Punct: format.DefaultPunctuation()},
		InputName: "test",
	}
	res := ProcessBlock(blk, opts)
	if len(res.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(res.Records))
	}
	if res.InvalidLines != 0 {
		t.Fatalf("expected no invalid lines, got %d", res.InvalidLines)
	}
}

func TestProcessBlockBuildsIndexWhenRequested(t *testing.T) {
	blk := block.Block{Bytes: []byte(`{"level":"error","msg":"boom"}` + "\n"), Seq: 0}
	opts := WorkerOptions{
		DelimMode:  block.ModeLF,
		Parser:     record.New(record.FormatAuto, 32),
		Resolver:   record.NewDefaultResolver(),
		Format:     format.Options{Punct: format.DefaultPunctuation()},
		BuildIndex: true,
	}
	res := ProcessBlock(blk, opts)
	if res.Index == nil {
		t.Fatalf("expected an index to be built")
	}
	if res.Index.LevelBitmap&record.LevelError.Bit() == 0 {
		t.Fatalf("expected error bit set in level bitmap")
	}
}

func TestSequentialReorderDrainsInOrder(t *testing.T) {
	r := NewSequentialReorder()
	r.Push(Result{InputID: 0, BlockSeq: 1})
	r.Push(Result{InputID: 0, BlockSeq: 0})

	var order []uint64
	r.Drain(func(res Result) { order = append(order, res.BlockSeq) })
	if len(order) != 2 || order[0] != 0 || order[1] != 1 {
		t.Fatalf("unexpected drain order: %v", order)
	}
}

func TestSequentialReorderWithholdsGap(t *testing.T) {
	r := NewSequentialReorder()
	r.Push(Result{InputID: 0, BlockSeq: 1}) // block 0 hasn't arrived yet

	var order []uint64
	r.Drain(func(res Result) { order = append(order, res.BlockSeq) })
	if len(order) != 0 {
		t.Fatalf("expected nothing drained while block 0 is missing, got %v", order)
	}
}

func TestChronoMergerOrdersAcrossStreams(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	streamA := []FormattedRecord{
		{Rec: record.Record{Time: record.Timestamp{Valid: true, Instant: t0.Add(2 * time.Second)}}},
	}
	streamB := []FormattedRecord{
		{Rec: record.Record{Time: record.Timestamp{Valid: true, Instant: t0.Add(1 * time.Second)}}},
	}
	m := NewChronoMerger([]StreamSource{
		{InputID: 0, Next: blockSource(streamA)},
		{InputID: 1, Next: blockSource(streamB)},
	}, nil)

	first, ok := m.Next()
	if !ok || !first.Rec.Time.Instant.Equal(t0.Add(time.Second)) {
		t.Fatalf("expected stream B's earlier record first, got %+v", first)
	}
	second, ok := m.Next()
	if !ok || !second.Rec.Time.Instant.Equal(t0.Add(2*time.Second)) {
		t.Fatalf("expected stream A's record second, got %+v", second)
	}
	if _, ok := m.Next(); ok {
		t.Fatalf("expected merger exhausted")
	}
}

// blockSource hands out recs as a single block, then reports exhausted.
func blockSource(recs []FormattedRecord) func() (Result, bool) {
	done := false
	return func() (Result, bool) {
		if done {
			return Result{}, false
		}
		done = true
		return Result{Records: recs}, true
	}
}

func resultSource(results ...Result) func() (Result, bool) {
	i := 0
	return func() (Result, bool) {
		if i >= len(results) {
			return Result{}, false
		}
		r := results[i]
		i++
		return r, true
	}
}

func TestChronoMergerSkipsBlockByIndexAlone(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q, err := query.New(nil, record.LevelError.Bit(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}

	// streamA's only block is entirely info-level; its Index says so, so
	// the merger should discard it without ever looking at its record.
	streamA := resultSource(Result{
		Records: []FormattedRecord{{Rec: record.Record{Level: record.LevelInfo, Time: record.Timestamp{Valid: true, Instant: t0}}}},
		Index:   &blockindex.Index{MinTS: t0, MaxTS: t0, LevelBitmap: record.LevelInfo.Bit()},
	})
	streamB := resultSource(Result{
		Records: []FormattedRecord{{Rec: record.Record{Level: record.LevelError, Time: record.Timestamp{Valid: true, Instant: t0.Add(time.Second)}}}},
		Index:   &blockindex.Index{MinTS: t0.Add(time.Second), MaxTS: t0.Add(time.Second), LevelBitmap: record.LevelError.Bit()},
	})

	m := NewChronoMerger([]StreamSource{
		{InputID: 0, Next: streamA},
		{InputID: 1, Next: streamB},
	}, q)

	first, ok := m.Next()
	if !ok || first.Rec.Level != record.LevelError {
		t.Fatalf("expected streamA's block skipped by index, got %+v (ok=%v)", first, ok)
	}
	if _, ok := m.Next(); ok {
		t.Fatalf("expected merger exhausted once the skipped block and the single error record are consumed")
	}
}

func TestChronoMergerBulkDrainsMonotonicBlock(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(1 * time.Second)
	t2 := t0.Add(2 * time.Second)
	t3 := t0.Add(3 * time.Second)
	t4 := t0.Add(10 * time.Second)

	monotonicBlock := Result{
		Records: []FormattedRecord{
			{Rec: record.Record{StreamSeq: 1, Time: record.Timestamp{Valid: true, Instant: t1}}},
			{Rec: record.Record{StreamSeq: 2, Time: record.Timestamp{Valid: true, Instant: t2}}},
			{Rec: record.Record{StreamSeq: 3, Time: record.Timestamp{Valid: true, Instant: t3}}},
		},
		Index: &blockindex.Index{MinTS: t1, MaxTS: t3, LevelBitmap: record.AllLevelsMask},
	}
	laterBlock := Result{
		Records: []FormattedRecord{{Rec: record.Record{StreamSeq: 1, Time: record.Timestamp{Valid: true, Instant: t4}}}},
	}

	m := NewChronoMerger([]StreamSource{
		{InputID: 0, Next: resultSource(monotonicBlock)},
		{InputID: 1, Next: resultSource(laterBlock)},
	}, nil)

	var order []uint64
	for {
		fr, ok := m.Next()
		if !ok {
			break
		}
		order = append(order, fr.Rec.StreamSeq)
	}
	want := []uint64{1, 2, 3, 1}
	if len(order) != len(want) {
		t.Fatalf("expected %d records, got %d: %v", len(want), len(order), order)
	}
	for i, seq := range want {
		if order[i] != seq {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestSyncWindowBufferBoundsDelay(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewSyncWindowBuffer(100 * time.Millisecond)
	b.Observe(FormattedRecord{Rec: record.Record{Time: record.Timestamp{Valid: true, Instant: t0}}})

	var emitted []FormattedRecord
	b.Drain(func(r FormattedRecord) { emitted = append(emitted, r) })
	if len(emitted) != 0 {
		t.Fatalf("should not emit before watermark advances past the window")
	}

	b.Observe(FormattedRecord{Rec: record.Record{Time: record.Timestamp{Valid: true, Instant: t0.Add(time.Second)}}})
	b.Drain(func(r FormattedRecord) { emitted = append(emitted, r) })
	if len(emitted) != 1 {
		t.Fatalf("expected the stale record to drain once the watermark passed it, got %d", len(emitted))
	}
}
