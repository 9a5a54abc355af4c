package blockindex

import (
	"testing"
	"time"
)

func TestBuilderTracksBoundsAndBitmap(t *testing.T) {
	b := NewBuilder()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.Observe(t0, 1<<2, 0)
	b.Observe(t0.Add(time.Second), 1<<4, 10)
	b.ObserveInvalid()

	ix := b.Build()
	if !ix.MinTS.Equal(t0) {
		t.Fatalf("unexpected min ts: %v", ix.MinTS)
	}
	if !ix.MaxTS.Equal(t0.Add(time.Second)) {
		t.Fatalf("unexpected max ts: %v", ix.MaxTS)
	}
	if ix.LevelBitmap != (1<<2 | 1<<4) {
		t.Fatalf("unexpected level bitmap: %b", ix.LevelBitmap)
	}
	if ix.ValidLines != 2 || ix.InvalidLines != 1 {
		t.Fatalf("unexpected line counts: %+v", ix)
	}
}

func TestBuilderFlagsOutOfOrderLines(t *testing.T) {
	b := NewBuilder()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.Observe(t0.Add(time.Minute), 0, 0)
	b.Observe(t0, 0, 20) // earlier than previous: out of order

	ix := b.Build()
	if ix.IsOutOfOrder(0) {
		t.Fatalf("first line should never be flagged out of order")
	}
	if !ix.IsOutOfOrder(1) {
		t.Fatalf("second line should be flagged out of order")
	}
	if len(ix.Jumps) != 1 || ix.Jumps[0] != 20 {
		t.Fatalf("unexpected jumps: %v", ix.Jumps)
	}
}

func TestSidecarRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/app.log"
	size := int64(123)
	modTime := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	sc := Sidecar{
		Hash:     ContentHash(path, size, modTime),
		Size:     size,
		ModTime:  modTime,
		Sequence: []uint64{0},
		Indexes:  []Index{{ValidLines: 5}},
	}
	if err := Save(path, sc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, ok := Load(path, size, modTime)
	if !ok {
		t.Fatalf("expected sidecar to load")
	}
	if len(loaded.Indexes) != 1 || loaded.Indexes[0].ValidLines != 5 {
		t.Fatalf("unexpected loaded sidecar: %+v", loaded)
	}

	if _, ok := Load(path, size+1, modTime); ok {
		t.Fatalf("size mismatch should invalidate the sidecar")
	}
}
