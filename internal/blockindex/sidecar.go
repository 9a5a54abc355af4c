package blockindex

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"time"

	"github.com/dalibo/hl/internal/hlerr"
)

// sidecarVersion is bumped whenever the encoded Sidecar layout changes,
// so a stale on-disk index is rejected instead of misread.
const sidecarVersion = 1

// Sidecar is the on-disk, gob-encoded form of every block index built
// for one source file, keyed by a content hash of (path, size, mtime) so
// a changed file invalidates automatically (spec.md §4.I).
type Sidecar struct {
	Version  int
	Hash     uint64
	Size     int64
	ModTime  time.Time
	Sequence []uint64 // block sequence numbers, aligned with Indexes
	Indexes  []Index
}

// ContentHash computes the cache key for a file's current (path, size,
// mtime) triple. The index is purely a performance feature (spec.md
// §4.I); any collision only costs an extra rebuild, never correctness.
func ContentHash(path string, size int64, modTime time.Time) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d|%d", path, size, modTime.UnixNano())
	return h.Sum64()
}

// SidecarPath returns where the sidecar for path would live, alongside
// the source file with a dotted suffix.
func SidecarPath(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	return filepath.Join(dir, "."+base+".hlidx")
}

// Load reads and validates a sidecar for a file with the given current
// size/modTime. A hash mismatch, version mismatch, or read error all
// simply mean "rebuild" (ok=false), never a fatal error.
func Load(path string, size int64, modTime time.Time) (Sidecar, bool) {
	data, err := os.ReadFile(SidecarPath(path))
	if err != nil {
		return Sidecar{}, false
	}
	var sc Sidecar
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&sc); err != nil {
		return Sidecar{}, false
	}
	want := ContentHash(path, size, modTime)
	if sc.Version != sidecarVersion || sc.Hash != want || sc.Size != size || !sc.ModTime.Equal(modTime) {
		return Sidecar{}, false
	}
	return sc, true
}

// Save persists sc next to path. Failure to write a sidecar is never
// fatal to the run; callers should log and continue.
func Save(path string, sc Sidecar) error {
	sc.Version = sidecarVersion
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(sc); err != nil {
		return hlerr.New(hlerr.KindIndex, fmt.Errorf("encoding sidecar for %s: %w", path, err))
	}
	if err := os.WriteFile(SidecarPath(path), buf.Bytes(), 0o644); err != nil {
		return hlerr.New(hlerr.KindIndex, fmt.Errorf("writing sidecar for %s: %w", path, err))
	}
	return nil
}
