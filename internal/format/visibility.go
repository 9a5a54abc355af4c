package format

import "github.com/gobwas/glob"

// visibilityRule is one `--hide pattern` or `--hide '!pattern'` entry.
// Reveal is true for a `!`-prefixed pattern.
type visibilityRule struct {
	pattern glob.Glob
	reveal  bool
}

// Visibility evaluates the include/exclude rule set built from --hide
// flags. Rules are applied in declaration order; the last matching rule
// decides visibility (spec.md §4.F), which in practice means later
// `--hide` flags override earlier ones for keys they also match.
type Visibility struct {
	rules []visibilityRule
}

// NewVisibility compiles patterns in order. A pattern beginning with '!'
// is a reveal rule; anything else is a hide rule.
func NewVisibility(patterns []string) (*Visibility, error) {
	v := &Visibility{}
	for _, p := range patterns {
		reveal := false
		pat := p
		if len(pat) > 0 && pat[0] == '!' {
			reveal = true
			pat = pat[1:]
		}
		g, err := glob.Compile(pat)
		if err != nil {
			return nil, err
		}
		v.rules = append(v.rules, visibilityRule{pattern: g, reveal: reveal})
	}
	return v, nil
}

// Visible reports whether key (dot-joined path when flattening is on)
// should be emitted. With no rules, everything is visible.
func (v *Visibility) Visible(key string) bool {
	visible := true
	for _, r := range v.rules {
		if r.pattern.Match(key) {
			visible = r.reveal
		}
	}
	return visible
}
