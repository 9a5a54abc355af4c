// Package pipeline wires the Block Worker and the two Reorder/Merge
// strategies (spec.md §4.G, §4.H) together: a worker claims a block,
// parses/resolves/filters/formats each line, and optionally builds a
// Block Index, while the reorder stage restores either block-sequence
// or chronological order across a run's streams.
package pipeline

import (
	"bytes"
	"time"

	"github.com/dalibo/hl/internal/block"
	"github.com/dalibo/hl/internal/blockindex"
	"github.com/dalibo/hl/internal/format"
	"github.com/dalibo/hl/internal/query"
	"github.com/dalibo/hl/internal/record"
)

// WorkerOptions configures one worker invocation; every field is
// immutable and safely shared read-only across the whole pool (spec.md
// §9: "the compiled query, the theme lookup table, and the resolver
// tables are immutable and freely shared").
type WorkerOptions struct {
	DelimMode      block.Mode
	MaxMessageSize int
	AllowPrefix    bool
	StrictMode     bool // drop unparseable lines instead of passing them through raw

	Parser   record.Parser
	Resolver *record.Resolver
	Query    *query.Query

	Format     format.Options
	InputName  string
	BuildIndex bool
}

// FormattedRecord pairs a resolved record with its formatted byte range. Buf is
// the block's formatted byte buffer that Range indexes into; every
// FormattedRecord produced by the same ProcessBlock call shares the
// same underlying Buf slice.
type FormattedRecord struct {
	Rec       record.Record
	Range     format.Range
	Buf       []byte
	SourceSeq uint64 // block sequence number, for sequential-mode ordering
}

// Result is everything a worker produces for one block.
type Result struct {
	Buf          []byte
	Records      []FormattedRecord
	InvalidLines int
	Index        *blockindex.Index
	BlockSeq     uint64
	InputID      int
}

// keptLine is one successfully-parsed entry waiting on the block-level
// predicate before it's worth formatting.
type keptLine struct {
	rec   record.Record
	match bool
	raw   bool // unparseable line, emitted as its original bytes
}

// ProcessBlock implements the five steps of spec.md §4.G for one block,
// split into a parse/resolve pass that always runs and a format pass
// that the block-level predicate (spec.md §4.E, §4.H) can skip outright.
// The Index is built from every line regardless of the query, since its
// time/level bounds have to describe the whole block to be a sound
// skip decision; only the subsequent formatting step — by far the more
// expensive of the two for a block the query rules out — is withheld
// when `query.CanBlockContain` says none of the block's records could
// possibly match.
func ProcessBlock(blk block.Block, opts WorkerOptions) Result {
	res := Result{BlockSeq: blk.Seq, InputID: blk.InputID}

	needIndex := opts.BuildIndex || opts.Query != nil
	var builder *blockindex.Builder
	if needIndex {
		builder = blockindex.NewBuilder()
	}

	var lines []keptLine
	lineIdx := 0

	block.EachEntry(blk.Bytes, opts.DelimMode, opts.MaxMessageSize, func(e block.Entry) {
		// e.Bytes is a subslice of blk.Bytes, so the capacity difference
		// is the entry's start offset, delimiters included.
		entryOffset := int64(cap(blk.Bytes) - cap(e.Bytes))
		lineIdx++

		if e.Truncated {
			res.InvalidLines++
			if builder != nil {
				builder.ObserveInvalid()
			}
			if opts.StrictMode {
				return
			}
		}

		prefix, body := record.SplitPrefix(e.Bytes, opts.AllowPrefix)

		fields, err := opts.Parser.Parse(body)
		if err != nil {
			res.InvalidLines++
			if builder != nil {
				builder.ObserveInvalid()
			}
			if opts.StrictMode {
				return
			}
			rec := record.Record{RawSpan: e.Bytes, StreamSeq: uint64(lineIdx)}
			match := opts.Query == nil || opts.Query.Matches(&rec)
			lines = append(lines, keptLine{rec: rec, match: match, raw: true})
			return
		}

		rec := opts.Resolver.Resolve(fields, e.Bytes, prefix)
		rec.StreamSeq = uint64(lineIdx)
		if builder != nil {
			builder.Observe(timeOf(rec), rec.Level.Bit(), entryOffset)
		}

		match := opts.Query == nil || opts.Query.Matches(&rec)
		lines = append(lines, keptLine{rec: rec, match: match})
	})

	var ix blockindex.Index
	if builder != nil {
		ix = builder.Build()
		if opts.BuildIndex {
			res.Index = &ix
		}
	}

	if opts.Query != nil && !opts.Query.CanBlockContain(ix.LevelBitmap, ix.MinTS, ix.MaxTS) {
		return res
	}

	buf := &bytes.Buffer{}
	formatter := format.New(opts.Format, buf)
	rawOpts := opts.Format
	rawOpts.Raw = true
	rawFormatter := format.New(rawOpts, buf)
	for _, l := range lines {
		if !l.match {
			continue
		}
		f := formatter
		if l.raw {
			f = rawFormatter
		}
		r := f.Format(&l.rec, opts.InputName)
		res.Records = append(res.Records, FormattedRecord{Rec: l.rec, Range: r, SourceSeq: blk.Seq})
	}
	res.Buf = buf.Bytes()
	for i := range res.Records {
		res.Records[i].Buf = res.Buf
	}
	return res
}

func timeOf(rec record.Record) time.Time {
	if rec.Time.Valid {
		return rec.Time.Instant
	}
	return time.Time{}
}
