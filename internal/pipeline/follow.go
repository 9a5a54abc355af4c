package pipeline

import "time"

// SyncWindowBuffer bounds the reordering delay of follow mode (spec.md
// §4.H): records coming out of the ChronoMerger are held until their
// timestamp is at least sync-window older than the newest timestamp
// observed across every stream, satisfying invariant 6 in spec.md §8.
type SyncWindowBuffer struct {
	window  time.Duration
	pending []FormattedRecord
	latest  time.Time
}

// NewSyncWindowBuffer creates a buffer with the given sync window
// (default 100ms per spec.md §4.H).
func NewSyncWindowBuffer(window time.Duration) *SyncWindowBuffer {
	return &SyncWindowBuffer{window: window}
}

// Observe appends a chronologically-merged record to the pending queue
// and advances the watermark if it carries the newest timestamp seen so
// far.
func (b *SyncWindowBuffer) Observe(rec FormattedRecord) {
	b.pending = append(b.pending, rec)
	if rec.Rec.Time.Valid && rec.Rec.Time.Instant.After(b.latest) {
		b.latest = rec.Rec.Time.Instant
	}
}

// Drain emits, in order, every pending record old enough to fall
// outside the sync window.
func (b *SyncWindowBuffer) Drain(emit func(FormattedRecord)) {
	cutoff := b.latest.Add(-b.window)
	i := 0
	for ; i < len(b.pending); i++ {
		rec := b.pending[i]
		if rec.Rec.Time.Valid && rec.Rec.Time.Instant.After(cutoff) {
			break
		}
		emit(rec)
	}
	b.pending = b.pending[i:]
}

// Flush emits every remaining pending record regardless of the sync
// window, used when a stream is known to be permanently idle/closed.
func (b *SyncWindowBuffer) Flush(emit func(FormattedRecord)) {
	for _, rec := range b.pending {
		emit(rec)
	}
	b.pending = nil
}
