// Package blockindex builds and persists the per-block metadata that the
// chronological merge and block-level query skip rely on (spec.md §3,
// §4.I): timestamp bounds, a level bitmap, and a chronology bitmap with
// its jump table.
package blockindex

import "time"

// groupSize is the number of lines per chronology-bitmap word and the
// granularity of the byte-offset table (spec.md §3: "per-64-lines").
const groupSize = 64

// Index is one block's metadata. Built once per fresh input block and
// either kept in memory or persisted to a sidecar (see sidecar.go).
type Index struct {
	MinTS time.Time
	MaxTS time.Time

	ValidLines   int
	InvalidLines int

	// LevelBitmap is the OR of every record's level bit in the block.
	LevelBitmap uint8

	// Chronology holds one bit per line packed into groupSize-line
	// words: 0 = line is chronologically >= the previous line, 1 = the
	// line breaks order and has an entry in Jumps.
	Chronology []uint64

	// Jumps holds the byte offsets of out-of-order lines, indexed by
	// GroupOffsets[g].JumpIndex .. next group's JumpIndex.
	Jumps []int64

	// GroupOffsets has one entry per groupSize lines: the byte offset
	// of the group's first line, and the index into Jumps where that
	// group's jump entries begin.
	GroupOffsets []GroupOffset
}

// GroupOffset is one entry of the per-64-line offset table.
type GroupOffset struct {
	ByteOffset int64
	JumpIndex  int
}

// Builder scans a block's records once, in order, and accumulates an
// Index. Feed every record with Observe, then call Build.
type Builder struct {
	minTS, maxTS time.Time
	haveTS       bool

	validLines   int
	invalidLines int
	levelBitmap  uint8

	chronology   []uint64
	jumps        []int64
	groupOffsets []GroupOffset

	lineInGroup int
	prevTS      time.Time
	havePrevTS  bool
}

// NewBuilder returns a fresh, empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// ObserveInvalid records a line that failed to parse.
func (b *Builder) ObserveInvalid() { b.invalidLines++ }

// Observe records one successfully parsed line's timestamp (zero Time if
// absent/opaque), level bit (0 if absent/unrecognized), and byte offset
// within the block.
func (b *Builder) Observe(ts time.Time, levelBit uint8, byteOffset int64) {
	b.validLines++
	b.levelBitmap |= levelBit

	if b.lineInGroup == 0 {
		b.groupOffsets = append(b.groupOffsets, GroupOffset{
			ByteOffset: byteOffset,
			JumpIndex:  len(b.jumps),
		})
	}

	outOfOrder := false
	if !ts.IsZero() {
		if !b.haveTS || ts.Before(b.minTS) {
			b.minTS = ts
		}
		if !b.haveTS || ts.After(b.maxTS) {
			b.maxTS = ts
		}
		b.haveTS = true

		if b.havePrevTS && ts.Before(b.prevTS) {
			outOfOrder = true
		}
		b.prevTS = ts
		b.havePrevTS = true
	}

	bitIdx := b.lineInGroup
	if bitIdx == 0 {
		b.chronology = append(b.chronology, 0)
	}
	wordIdx := len(b.chronology) - 1
	if outOfOrder {
		b.chronology[wordIdx] |= 1 << uint(bitIdx)
		b.jumps = append(b.jumps, byteOffset)
	}

	b.lineInGroup++
	if b.lineInGroup == groupSize {
		b.lineInGroup = 0
	}
}

// Build finalizes the Index.
func (b *Builder) Build() Index {
	return Index{
		MinTS:        b.minTS,
		MaxTS:        b.maxTS,
		ValidLines:   b.validLines,
		InvalidLines: b.invalidLines,
		LevelBitmap:  b.levelBitmap,
		Chronology:   b.chronology,
		Jumps:        b.jumps,
		GroupOffsets: b.groupOffsets,
	}
}

// IsOutOfOrder reports whether the line at position idx (0-based, across
// the whole block) was flagged out-of-order.
func (ix Index) IsOutOfOrder(idx int) bool {
	word := idx / groupSize
	bit := idx % groupSize
	if word >= len(ix.Chronology) {
		return false
	}
	return ix.Chronology[word]&(1<<uint(bit)) != 0
}
