package block

// Block is a contiguous byte range of an input containing a whole number
// of entries (spec.md §3). Bytes is a view into a buffer owned by the
// worker currently processing the block.
type Block struct {
	Bytes   []byte
	Offset  int64 // origin-relative byte offset of Bytes[0]
	Seq     uint64
	InputID int
}

// Entry is one self-contained record span located within a block.
type Entry struct {
	Bytes     []byte
	Truncated bool
}

// Splitter carves a growing read buffer into Blocks, never splitting an
// entry (spec.md §4.B).
type Splitter struct {
	Mode Mode
}

// Cut scans buf for the last complete entry boundary. It returns the
// length of the prefix that forms a self-contained block (blockLen) and
// leaves the remainder (buf[blockLen:]) for the caller to prepend to the
// next read. When eof is true and no further boundary is found, any
// trailing bytes are still emitted as the final (possibly delimiter-less)
// block.
func (s *Splitter) Cut(buf []byte, eof bool) (blockLen int) {
	pos := 0
	last := 0
	for {
		idx, dlen, ok := NextBoundary(buf, pos, s.Mode, eof)
		if !ok {
			break
		}
		last = idx + dlen
		pos = last
	}
	if eof {
		return len(buf)
	}
	return last
}

// EachEntry iterates the self-contained entries of a block (already cut
// by Cut, or any fully-buffered byte range), applying maxSize truncation.
// It is used both to re-derive entries inside a Block Worker (spec.md
// §4.G step 1) and by the Index Builder. The block is always treated as
// EOF-bounded: its last entry is emitted even without a trailing
// delimiter, since a Block by definition ends one.
func EachEntry(buf []byte, mode Mode, maxSize int, fn func(e Entry)) {
	pos := 0
	for pos < len(buf) {
		idx, dlen, ok := NextBoundary(buf, pos, mode, true)
		var entry []byte
		var next int
		if !ok {
			entry = buf[pos:]
			next = len(buf)
		} else {
			entry = buf[pos:idx]
			next = idx + dlen
		}

		truncated := false
		if maxSize > 0 && len(entry) > maxSize {
			entry = entry[:maxSize]
			truncated = true
		}
		fn(Entry{Bytes: entry, Truncated: truncated})
		pos = next
	}
}

// CountEntries returns the number of entries EachEntry would yield,
// without allocating a slice of them.
func CountEntries(buf []byte, mode Mode) int {
	n := 0
	EachEntry(buf, mode, 0, func(Entry) { n++ })
	return n
}
