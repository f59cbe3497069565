// Package match finds custom entities by running token-sequence
// pattern rules over an annotated document. Rules cover vocabulary the
// pretrained models do not label on their own, such as energy sources
// or research concepts.
package match

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ai-mindset/ner-playground/internal/annotate"
	"github.com/ai-mindset/ner-playground/internal/entity"
)

// customDescription is attached to every pattern match.
const customDescription = "Custom entity"

// Constraint restricts a single token. Set at most one field: Lower
// compares the lowercased token text, In checks lowercased set
// membership, Regex runs against the raw token text. An empty
// constraint matches any token.
type Constraint struct {
	Lower string   `yaml:"lower,omitempty" json:"lower,omitempty"`
	In    []string `yaml:"in,omitempty" json:"in,omitempty"`
	Regex string   `yaml:"regex,omitempty" json:"regex,omitempty"`
}

// Rule labels every token run that satisfies one of its patterns. A
// pattern is a sequence of per-token constraints matched contiguously.
type Rule struct {
	Label    string         `yaml:"label" json:"label"`
	Patterns [][]Constraint `yaml:"patterns" json:"patterns"`
}

type compiledConstraint struct {
	lower string
	in    map[string]struct{}
	re    *regexp.Regexp
}

type compiledPattern []compiledConstraint

type compiledRule struct {
	label    string
	patterns []compiledPattern
}

// Matcher is a compiled rule table ready to scan documents.
type Matcher struct {
	rules []compiledRule
}

// Compile validates the rule table and compiles its regular
// expressions.
func Compile(rules []Rule) (*Matcher, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("rule table is empty")
	}
	m := &Matcher{rules: make([]compiledRule, 0, len(rules))}
	for _, rule := range rules {
		if rule.Label == "" {
			return nil, fmt.Errorf("rule without a label")
		}
		if len(rule.Patterns) == 0 {
			return nil, fmt.Errorf("rule %s has no patterns", rule.Label)
		}
		cr := compiledRule{label: rule.Label}
		for pi, pattern := range rule.Patterns {
			if len(pattern) == 0 {
				return nil, fmt.Errorf("rule %s pattern %d is empty", rule.Label, pi)
			}
			cp := make(compiledPattern, 0, len(pattern))
			for _, c := range pattern {
				cc := compiledConstraint{lower: strings.ToLower(c.Lower)}
				if len(c.In) > 0 {
					cc.in = make(map[string]struct{}, len(c.In))
					for _, item := range c.In {
						cc.in[strings.ToLower(item)] = struct{}{}
					}
				}
				if c.Regex != "" {
					re, err := regexp.Compile(c.Regex)
					if err != nil {
						return nil, fmt.Errorf("rule %s: compile regex %q: %w", rule.Label, c.Regex, err)
					}
					cc.re = re
				}
				cp = append(cp, cc)
			}
			cr.patterns = append(cr.patterns, cp)
		}
		m.rules = append(m.rules, cr)
	}
	return m, nil
}

// Match scans the document tokens and returns one entity per pattern
// hit, in ascending start order. Overlapping hits and hits that
// duplicate a native entity are all kept.
func (m *Matcher) Match(doc *annotate.Document) []entity.Entity {
	var out []entity.Entity
	for i := range doc.Tokens {
		for _, rule := range m.rules {
			for _, pattern := range rule.patterns {
				if i+len(pattern) > len(doc.Tokens) {
					continue
				}
				if !matchAt(doc.Tokens, i, pattern) {
					continue
				}
				start := doc.Tokens[i].Start
				end := doc.Tokens[i+len(pattern)-1].End
				out = append(out, entity.Entity{
					Text:        doc.Text[start:end],
					Start:       start,
					End:         end,
					Label:       rule.label,
					Description: customDescription,
					Source:      entity.SourcePattern,
				})
			}
		}
	}
	return out
}

func matchAt(tokens []annotate.Token, at int, pattern compiledPattern) bool {
	for j, c := range pattern {
		if !c.match(tokens[at+j]) {
			return false
		}
	}
	return true
}

func (c compiledConstraint) match(tok annotate.Token) bool {
	lower := strings.ToLower(tok.Text)
	if c.lower != "" && lower != c.lower {
		return false
	}
	if c.in != nil {
		if _, ok := c.in[lower]; !ok {
			return false
		}
	}
	if c.re != nil && !c.re.MatchString(tok.Text) {
		return false
	}
	return true
}
