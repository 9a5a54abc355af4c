// Package query compiles the filter grammar (spec.md §4.E) into an
// immutable predicate tree shared read-only across block workers.
package query

import (
	"regexp"
	"sync"

	"github.com/gobwas/glob"

	"github.com/dalibo/hl/internal/record"
)

// Op identifies a comparison operator in the compiled tree.
type Op int

const (
	OpEQ Op = iota
	OpNE
	OpLT
	OpLE
	OpGT
	OpGE
	OpSubstr
	OpNotSubstr
	OpRegex
	OpNotRegex
	OpGlob
	OpNotGlob
	OpIn
	OpNotIn
	OpExists
	OpLevelCmp
)

// Node is one node of the compiled, immutable query tree.
type Node interface {
	matches(rec *record.Record) bool
}

// And is the conjunction of its children.
type And struct{ Children []Node }

func (n *And) matches(rec *record.Record) bool {
	for _, c := range n.Children {
		if !c.matches(rec) {
			return false
		}
	}
	return true
}

// Or is the disjunction of its children.
type Or struct{ Children []Node }

func (n *Or) matches(rec *record.Record) bool {
	for _, c := range n.Children {
		if c.matches(rec) {
			return true
		}
	}
	return false
}

// Not negates its single child.
type Not struct{ Child Node }

func (n *Not) matches(rec *record.Record) bool { return !n.Child.matches(rec) }

// LevelTerm compares the record's level role against a literal level.
type LevelTerm struct {
	Op    Op
	Level record.Level
}

func (n *LevelTerm) matches(rec *record.Record) bool {
	if rec.Level == record.LevelUnrecognized {
		return false
	}
	cmp := int(rec.Level) - int(n.Level)
	switch n.Op {
	case OpEQ:
		return cmp == 0
	case OpNE:
		return cmp != 0
	case OpLT:
		return cmp < 0
	case OpLE:
		return cmp <= 0
	case OpGT:
		return cmp > 0
	case OpGE:
		return cmp >= 0
	}
	return false
}

// FieldTerm compares a named field's value against a literal, set, or
// existence check. AbsentMatches implements the `?` field modifier.
//
// SetPath holds the `@path` form of a set operand (`in @allowed_ids`):
// rather than a literal list compiled ahead of time, the set is read
// from the first matched record's own field at SetPath and cached for
// every subsequent record (spec.md §4.E: "`@path` read once and
// cached"). setOnce/setCache hold that lazily-built state; they're the
// one piece of a compiled query tree that mutates after Compile, so
// every access goes through setOperand to stay safe across the worker
// pool's concurrent matches.
type FieldTerm struct {
	Path          []string
	Op            Op
	NumOperand    float64
	HasNum        bool
	StrOperand    string
	Regex         *regexp.Regexp
	Glob          glob.Glob
	Set           map[string]struct{}
	SetPath       []string
	AbsentMatches bool

	setOnce  sync.Once
	setCache map[string]struct{}
}

func (n *FieldTerm) matches(rec *record.Record) bool {
	v, ok := lookupPath(rec, n.Path)
	if !ok {
		if n.Op == OpExists {
			return false
		}
		return n.AbsentMatches
	}
	if n.Op == OpExists {
		return true
	}

	s := v.String()
	switch n.Op {
	case OpEQ, OpNE, OpLT, OpLE, OpGT, OpGE:
		return compareNumOrString(n, s)
	case OpSubstr:
		return containsFold(s, n.StrOperand)
	case OpNotSubstr:
		return !containsFold(s, n.StrOperand)
	case OpRegex:
		return n.Regex != nil && n.Regex.MatchString(s)
	case OpNotRegex:
		return n.Regex == nil || !n.Regex.MatchString(s)
	case OpGlob:
		return n.Glob != nil && n.Glob.Match(s)
	case OpNotGlob:
		return n.Glob == nil || !n.Glob.Match(s)
	case OpIn:
		_, found := n.setOperand(rec)[s]
		return found
	case OpNotIn:
		_, found := n.setOperand(rec)[s]
		return !found
	}
	return false
}

// setOperand returns the set this term's `in`/`not in` test checks
// membership against: the literal set compiled from the grammar's
// `'(' list ')'` form, or the cached `@path` set lazily read from the
// first record that reaches it.
func (n *FieldTerm) setOperand(rec *record.Record) map[string]struct{} {
	if n.SetPath == nil {
		return n.Set
	}
	n.setOnce.Do(func() {
		v, ok := lookupPath(rec, n.SetPath)
		if !ok {
			n.setCache = map[string]struct{}{}
			return
		}
		n.setCache = valueToSet(v)
	})
	return n.setCache
}

// valueToSet turns a field value into the set an `@path` set operand
// tests membership against: each element's string form for an array,
// or a one-element set for anything else.
func valueToSet(v record.Value) map[string]struct{} {
	if v.Kind == record.KindArray {
		set := make(map[string]struct{}, len(v.Array))
		for _, e := range v.Array {
			set[e.String()] = struct{}{}
		}
		return set
	}
	return map[string]struct{}{v.String(): {}}
}

func lookupPath(rec *record.Record, path []string) (record.Value, bool) {
	if len(path) == 0 {
		return record.Value{}, false
	}
	for _, f := range rec.Fields {
		if f.Key == path[0] {
			return descend(f.Value, path[1:])
		}
	}
	return record.Value{}, false
}

func descend(v record.Value, path []string) (record.Value, bool) {
	if len(path) == 0 {
		return v, true
	}
	if v.Kind != record.KindObject {
		return record.Value{}, false
	}
	for _, f := range v.Object {
		if f.Key == path[0] {
			return descend(f.Value, path[1:])
		}
	}
	return record.Value{}, false
}
