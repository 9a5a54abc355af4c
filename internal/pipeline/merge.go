package pipeline

import (
	"container/heap"

	"github.com/dalibo/hl/internal/query"
)

// StreamSource supplies the chronologically-next block (Result) for one
// input stream on demand. Next returns ok=false once the stream is
// exhausted. Operating at block granularity, rather than one record at
// a time, is what lets the merge stage consult a block's Index before
// it ever looks at an individual record (spec.md §4.H, §5: "only block
// metadata lives in memory across the whole run").
type StreamSource struct {
	InputID int
	Next    func() (Result, bool)
}

// blockCursor tracks one stream's block currently being drained.
type blockCursor struct {
	res Result
	pos int

	// monotonic is true when the block's own Chronology bitmap recorded
	// no Jumps: every record in the block is already time-ordered, so
	// the whole remainder can be drained without a single per-record
	// heap comparison once its bound against competing streams holds
	// (see ChronoMerger.tryBulkDrain).
	monotonic bool
}

// candidate is one stream's current head in the merge heap.
type candidate struct {
	rec      FormattedRecord
	inputID  int
	streamIx int
}

// ChronoMerger performs the k-way chronological merge of spec.md §4.H,
// grounded on the pack's kubetail mergeLogStreams: a min-heap holding one
// "next candidate" record per stream, replacing the head with that
// stream's following record every time it is popped.
//
// Two things set it apart from a plain record-level merge. First,
// fillFrom consults a block's Index (LevelBitmap/MinTS/MaxTS) through
// query.CanBlockContain before a single one of its records becomes a
// heap candidate, so a block the query rules out never participates in
// a comparison at all. Second, tryBulkDrain exploits the Chronology
// bitmap: when the heap root's block is internally monotonic (no
// Jumps) and provably bounded below every other stream's current
// candidate, the binary-heap invariant that the second-smallest
// element is always one of the root's two children lets the whole rest
// of that block be drained in block order with no further Less calls,
// instead of one heap.Push/Fix per record.
type ChronoMerger struct {
	streams []StreamSource
	query   *query.Query
	cursors []*blockCursor
	h       candidateHeap
	pending []FormattedRecord
}

// NewChronoMerger primes the heap with the first usable block from
// every stream. q may be nil, in which case no block is ever skipped
// by index alone.
func NewChronoMerger(streams []StreamSource, q *query.Query) *ChronoMerger {
	m := &ChronoMerger{
		streams: streams,
		query:   q,
		cursors: make([]*blockCursor, len(streams)),
	}
	for i := range streams {
		m.fillFrom(i)
	}
	heap.Init(&m.h)
	return m
}

// fillFrom advances stream i until it has a usable record to offer the
// heap, skipping any block whose Index proves the query can't match
// anything in it, and any block that is simply empty (every record
// already filtered out by the worker itself). It pushes exactly one
// new candidate, or none if the stream is exhausted.
func (m *ChronoMerger) fillFrom(i int) {
	for {
		cur := m.cursors[i]
		if cur == nil || cur.pos >= len(cur.res.Records) {
			res, ok := m.streams[i].Next()
			if !ok {
				m.cursors[i] = nil
				return
			}
			if m.query != nil && res.Index != nil &&
				!m.query.CanBlockContain(res.Index.LevelBitmap, res.Index.MinTS, res.Index.MaxTS) {
				continue
			}
			if len(res.Records) == 0 {
				continue
			}
			cur = &blockCursor{res: res, monotonic: res.Index == nil || len(res.Index.Jumps) == 0}
			m.cursors[i] = cur
		}
		rec := cur.res.Records[cur.pos]
		heap.Push(&m.h, candidate{rec: rec, inputID: m.streams[i].InputID, streamIx: i})
		return
	}
}

// advance moves stream i's cursor past the record the heap just gave
// up, then refills the heap from that stream.
func (m *ChronoMerger) advance(streamIx int) {
	m.cursors[streamIx].pos++
	m.fillFrom(streamIx)
}

// Next pops the chronologically-earliest record across every live
// stream and refills from the stream it came from.
func (m *ChronoMerger) Next() (FormattedRecord, bool) {
	if len(m.pending) > 0 {
		rec := m.pending[0]
		m.pending = m.pending[1:]
		return rec, true
	}
	if m.h.Len() == 0 {
		return FormattedRecord{}, false
	}
	if recs, ok := m.tryBulkDrain(); ok {
		m.pending = recs[1:]
		return recs[0], true
	}
	top := heap.Pop(&m.h).(candidate)
	m.advance(top.streamIx)
	return top.rec, true
}

// tryBulkDrain attempts the fast path: the heap root's current block is
// monotonic and its MaxTS falls strictly before every other live
// stream's candidate, so the rest of the block is guaranteed to sort
// ahead of anything else in the heap. Every remaining record in the
// block can then be returned in block order without re-deriving order
// from a per-record time comparison, and without the O(log n)
// heap.Push/Fix pair per record that the ordinary path pays.
func (m *ChronoMerger) tryBulkDrain() ([]FormattedRecord, bool) {
	root := m.h[0]
	cur := m.cursors[root.streamIx]
	if cur == nil || !cur.monotonic || cur.res.Index == nil {
		return nil, false
	}
	if !cur.res.Records[cur.pos].Rec.Time.Valid {
		return nil, false
	}
	maxTS := cur.res.Index.MaxTS
	if second, ok := m.h.secondMin(); ok {
		if !second.rec.Rec.Time.Valid || !maxTS.Before(second.rec.Rec.Time.Instant) {
			return nil, false
		}
	}

	recs := append([]FormattedRecord(nil), cur.res.Records[cur.pos:]...)
	cur.pos = len(cur.res.Records)
	heap.Pop(&m.h)
	m.fillFrom(root.streamIx)
	return recs, true
}

// Len reports how many records are still reachable, whether buffered
// or live in the heap.
func (m *ChronoMerger) Len() int { return m.h.Len() + len(m.pending) }

type candidateHeap []candidate

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	av, bv := a.rec.Rec.Time.Valid, b.rec.Rec.Time.Valid
	switch {
	case av && bv:
		at, bt := a.rec.Rec.Time.Instant, b.rec.Rec.Time.Instant
		if !at.Equal(bt) {
			return at.Before(bt)
		}
		if a.inputID != b.inputID {
			return a.inputID < b.inputID
		}
		return a.rec.Rec.StreamSeq < b.rec.Rec.StreamSeq
	case av != bv:
		// an opaque/missing timestamp never participates in
		// cross-stream chronological comparison (spec.md §3); fall
		// back to keeping each stream's own relative emission order.
		return av
	default:
		if a.inputID != b.inputID {
			return a.inputID < b.inputID
		}
		return a.rec.Rec.StreamSeq < b.rec.Rec.StreamSeq
	}
}

// secondMin returns the heap's second-smallest candidate without a
// full pop: in a binary min-heap the second-smallest element is always
// one of the root's two children, so this is an O(1) comparison
// instead of an O(log n) Pop/Push round trip.
func (h candidateHeap) secondMin() (candidate, bool) {
	switch len(h) {
	case 0, 1:
		return candidate{}, false
	case 2:
		return h[1], true
	default:
		if h.Less(1, 2) {
			return h[1], true
		}
		return h[2], true
	}
}

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(candidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
