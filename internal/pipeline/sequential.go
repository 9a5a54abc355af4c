package pipeline

import "container/heap"

// SequentialReorder restores block-sequence order when workers publish
// their Results out of order (spec.md §4.H, "Sequential (concatenation)"
// mode): a bounded priority queue keyed on block sequence number,
// draining in order as the next expected sequence number arrives.
type SequentialReorder struct {
	pq       resultHeap
	next     uint64
	byInput  map[int]uint64 // next expected sequence number, per input-id
}

// NewSequentialReorder creates an empty reorder buffer.
func NewSequentialReorder() *SequentialReorder {
	return &SequentialReorder{byInput: make(map[int]uint64)}
}

// Push enqueues a worker Result.
func (s *SequentialReorder) Push(r Result) {
	heap.Push(&s.pq, r)
}

// Drain pops every Result whose sequence number is next-in-order for its
// input, in ascending sequence order, calling emit for each.
func (s *SequentialReorder) Drain(emit func(Result)) {
	for s.pq.Len() > 0 {
		top := s.pq[0]
		want := s.byInput[top.InputID]
		if top.BlockSeq != want {
			break
		}
		emit(heap.Pop(&s.pq).(Result))
		s.byInput[top.InputID] = want + 1
	}
}

// Len reports how many blocks are currently buffered awaiting their turn.
func (s *SequentialReorder) Len() int { return s.pq.Len() }

type resultHeap []Result

func (h resultHeap) Len() int { return len(h) }
func (h resultHeap) Less(i, j int) bool {
	if h[i].InputID != h[j].InputID {
		return h[i].InputID < h[j].InputID
	}
	return h[i].BlockSeq < h[j].BlockSeq
}
func (h resultHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *resultHeap) Push(x any) { *h = append(*h, x.(Result)) }

func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
