package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gobwas/glob"

	"github.com/dalibo/hl/internal/record"
)

// Compile parses src against the grammar in spec.md §4.E and returns an
// immutable query tree. The returned Node is safe to share read-only
// across every block worker.
func Compile(src string) (Node, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected trailing input near %q", p.tok.text)
	}
	return n, nil
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) expectIdent(kw string) bool {
	return p.tok.kind == tokIdent && strings.EqualFold(p.tok.text, kw)
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	children := []Node{left}
	for p.expectIdent("or") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return &Or{Children: children}, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	children := []Node{left}
	for p.expectIdent("and") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return &And{Children: children}, nil
}

func (p *parser) parseNot() (Node, error) {
	if p.expectIdent("not") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		child, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Not{Child: child}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	if p.tok.kind == tokLParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, fmt.Errorf("expected ')' near %q", p.tok.text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return n, nil
	}
	return p.parseTerm()
}

func (p *parser) parseTerm() (Node, error) {
	if p.tok.kind != tokIdent {
		return nil, fmt.Errorf("expected field name or 'level', got %q", p.tok.text)
	}

	if strings.EqualFold(p.tok.text, "exists") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokLParen {
			return nil, fmt.Errorf("expected '(' after exists")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokIdent {
			return nil, fmt.Errorf("expected field name inside exists()")
		}
		path := strings.Split(p.tok.text, ".")
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, fmt.Errorf("expected ')' to close exists()")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &FieldTerm{Path: path, Op: OpExists}, nil
	}

	if strings.EqualFold(p.tok.text, "level") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseLevelTerm()
	}

	name := p.tok.text
	absentMatches := false
	if strings.HasSuffix(name, "?") {
		name = strings.TrimSuffix(name, "?")
		absentMatches = true
	}
	path := strings.Split(name, ".")
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parseFieldTerm(path, absentMatches)
}

func (p *parser) parseLevelTerm() (Node, error) {
	op, err := p.readCmpOp()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokIdent {
		return nil, fmt.Errorf("expected level name, got %q", p.tok.text)
	}
	lvl := parseLevelLiteral(p.tok.text)
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &LevelTerm{Op: op, Level: lvl}, nil
}

func parseLevelLiteral(s string) record.Level {
	switch strings.ToLower(s) {
	case "trace":
		return record.LevelTrace
	case "debug":
		return record.LevelDebug
	case "info":
		return record.LevelInfo
	case "warning", "warn":
		return record.LevelWarning
	case "error":
		return record.LevelError
	default:
		return record.LevelUnrecognized
	}
}

func (p *parser) readCmpOp() (Op, error) {
	if p.tok.kind != tokOp {
		return 0, fmt.Errorf("expected comparison operator, got %q", p.tok.text)
	}
	op, ok := cmpOps[p.tok.text]
	if !ok {
		return 0, fmt.Errorf("unknown operator %q", p.tok.text)
	}
	if err := p.advance(); err != nil {
		return 0, err
	}
	return op, nil
}

var cmpOps = map[string]Op{
	"=":   OpEQ,
	"!=":  OpNE,
	"<":   OpLT,
	"<=":  OpLE,
	">":   OpGT,
	">=":  OpGE,
	"~=":  OpSubstr,
	"!~=": OpNotSubstr,
	"~~=": OpRegex,
	"!~~=": OpNotRegex,
}

func (p *parser) parseFieldTerm(path []string, absentMatches bool) (Node, error) {
	switch {
	case p.tok.kind == tokOp:
		op, err := p.readCmpOp()
		if err != nil {
			return nil, err
		}
		return p.parseComparisonOperand(path, op, absentMatches)

	case p.expectIdent("like"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseGlobOperand(path, OpGlob, absentMatches)

	case p.expectIdent("not"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.expectIdent("like") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			return p.parseGlobOperand(path, OpNotGlob, absentMatches)
		}
		if p.expectIdent("in") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			return p.parseSetOperand(path, OpNotIn, absentMatches)
		}
		return nil, fmt.Errorf("expected 'like' or 'in' after 'not'")

	case p.expectIdent("in"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseSetOperand(path, OpIn, absentMatches)
	}
	return nil, fmt.Errorf("expected operator after field %q, got %q", strings.Join(path, "."), p.tok.text)
}

func (p *parser) parseComparisonOperand(path []string, op Op, absentMatches bool) (Node, error) {
	term := &FieldTerm{Path: path, Op: op, AbsentMatches: absentMatches}
	switch p.tok.kind {
	case tokNumber:
		f, err := strconv.ParseFloat(p.tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("bad numeric literal %q: %w", p.tok.text, err)
		}
		term.HasNum = true
		term.NumOperand = f
		term.StrOperand = p.tok.text
	case tokString, tokIdent:
		term.StrOperand = p.tok.text
		if f, err := strconv.ParseFloat(p.tok.text, 64); err == nil {
			term.HasNum = true
			term.NumOperand = f
		}
	default:
		return nil, fmt.Errorf("expected literal operand, got %q", p.tok.text)
	}

	if op == OpRegex || op == OpNotRegex {
		re, err := regexp.Compile(term.StrOperand)
		if err != nil {
			return nil, fmt.Errorf("bad regex %q: %w", term.StrOperand, err)
		}
		term.Regex = re
	}

	if err := p.advance(); err != nil {
		return nil, err
	}
	return term, nil
}

func (p *parser) parseGlobOperand(path []string, op Op, absentMatches bool) (Node, error) {
	if p.tok.kind != tokString && p.tok.kind != tokIdent {
		return nil, fmt.Errorf("expected glob pattern, got %q", p.tok.text)
	}
	pattern := p.tok.text
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad glob pattern %q: %w", pattern, err)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &FieldTerm{Path: path, Op: op, Glob: g, StrOperand: pattern, AbsentMatches: absentMatches}, nil
}

func (p *parser) parseSetOperand(path []string, op Op, absentMatches bool) (Node, error) {
	if p.tok.kind == tokAt {
		return p.parseFieldSetOperand(path, op, absentMatches)
	}
	if p.tok.kind != tokLParen {
		return nil, fmt.Errorf("expected '(' or '@' to start a set operand")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	set := make(map[string]struct{})
	for {
		if p.tok.kind != tokNumber && p.tok.kind != tokString && p.tok.kind != tokIdent {
			return nil, fmt.Errorf("expected set member, got %q", p.tok.text)
		}
		set[p.tok.text] = struct{}{}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind == tokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if p.tok.kind != tokRParen {
		return nil, fmt.Errorf("expected ')' to close set literal")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &FieldTerm{Path: path, Op: op, Set: set, AbsentMatches: absentMatches}, nil
}

// parseFieldSetOperand handles the `set-op '@' path` grammar
// alternative (spec.md §4.E): the set is sourced from a field instead
// of a literal list, read once and cached the first time the compiled
// term is matched.
func (p *parser) parseFieldSetOperand(path []string, op Op, absentMatches bool) (Node, error) {
	if err := p.advance(); err != nil { // consume '@'
		return nil, err
	}
	if p.tok.kind != tokIdent {
		return nil, fmt.Errorf("expected field path after '@', got %q", p.tok.text)
	}
	setPath := strings.Split(p.tok.text, ".")
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &FieldTerm{Path: path, Op: op, SetPath: setPath, AbsentMatches: absentMatches}, nil
}
