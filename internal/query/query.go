package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalibo/hl/internal/record"
)

// Query bundles the compiled filter-expression tree with the CLI-level
// time and level bounds (spec.md §6.1's --since/--until/--level are not
// part of the grammar in §4.E, but combine with it via logical AND).
type Query struct {
	root      Node // nil means "match everything"
	levelMask uint8
	since     time.Time
	until     time.Time
	hasSince  bool
	hasUntil  bool
}

// New compiles exprs (the repeatable -f/--filter values, ANDed together,
// plus an optional -q/--query) and combines them with the level mask and
// time bounds into one Query.
func New(exprs []string, levelMask uint8, since, until time.Time) (*Query, error) {
	q := &Query{levelMask: levelMask}
	if levelMask == 0 {
		q.levelMask = record.AllLevelsMask
	}
	if !since.IsZero() {
		q.since, q.hasSince = since, true
	}
	if !until.IsZero() {
		q.until, q.hasUntil = until, true
	}

	var nodes []Node
	for _, e := range exprs {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		n, err := Compile(e)
		if err != nil {
			return nil, fmt.Errorf("compiling filter %q: %w", e, err)
		}
		nodes = append(nodes, n)
	}
	switch len(nodes) {
	case 0:
		q.root = nil
	case 1:
		q.root = nodes[0]
	default:
		q.root = &And{Children: nodes}
	}
	return q, nil
}

// Matches answers the record-level predicate.
func (q *Query) Matches(rec *record.Record) bool {
	if rec.Level != record.LevelUnset && rec.Level.Bit() != 0 && q.levelMask&rec.Level.Bit() == 0 {
		return false
	}
	if rec.Level == record.LevelUnrecognized && q.levelMask != record.AllLevelsMask {
		return false
	}
	if q.hasSince && rec.Time.Valid && rec.Time.Instant.Before(q.since) {
		return false
	}
	if q.hasUntil && rec.Time.Valid && rec.Time.Instant.After(q.until) {
		return false
	}
	if q.root == nil {
		return true
	}
	return q.root.matches(rec)
}

// CanBlockContain is the block-level skip predicate (spec.md §4.E): it
// returns false only when no record in a block with the given level
// bitmap and timestamp range could possibly satisfy the query, letting
// the merge stage skip the block without parsing any of its entries.
func (q *Query) CanBlockContain(levelBitmap uint8, minTS, maxTS time.Time) bool {
	if levelBitmap&q.levelMask == 0 && levelBitmap != 0 {
		return false
	}
	if q.hasSince && !maxTS.IsZero() && maxTS.Before(q.since) {
		return false
	}
	if q.hasUntil && !minTS.IsZero() && minTS.After(q.until) {
		return false
	}
	return true
}
