// Package caption turns a free-text caption into validated effect commands.
package caption

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/roach88/polybot/internal/ir"
)

// maxSuggestDistance bounds the edit distance for "did you mean" hints.
const maxSuggestDistance = 2

// Grammar is the subset of grammar.Table the parser needs.
type Grammar interface {
	Lookup(name string) (ir.EffectRule, bool)
	Names() []string
}

// Entry is the result for one comma-separated segment: either a command
// (possibly carrying argument problems) or a command-level problem.
type Entry struct {
	Command *ir.ParsedCommand `json:"command,omitempty"`
	Problem *ir.Problem       `json:"problem,omitempty"`
}

// Parser resolves captions against a grammar.
type Parser struct {
	grammar Grammar
}

// NewParser creates a parser over the given grammar.
func NewParser(g Grammar) *Parser {
	return &Parser{grammar: g}
}

// Parse splits caption into commands. It never fails fast: every segment
// yields an Entry so all problems can be reported in one reply. An empty
// caption yields a single ProblemNoCaption entry.
func (p *Parser) Parse(caption string) []Entry {
	caption = Normalize(caption)
	if caption == "" {
		return []Entry{{Problem: &ir.Problem{Kind: ir.ProblemNoCaption}}}
	}

	segments := strings.Split(caption, ",")
	entries := make([]Entry, 0, len(segments))
	for _, seg := range segments {
		entries = append(entries, p.parseSegment(strings.TrimSpace(seg)))
	}
	return entries
}

func (p *Parser) parseSegment(raw string) Entry {
	tokens := strings.Fields(raw)
	var input string
	if len(tokens) > 0 {
		input, tokens = tokens[0], tokens[1:]
	}
	name := strings.ReplaceAll(input, "-", "_")

	rule, ok := p.grammar.Lookup(name)
	if !ok {
		return Entry{Problem: &ir.Problem{
			Kind:       ir.ProblemEffectNotFound,
			Command:    raw,
			Token:      input,
			Suggestion: p.Suggest(name),
		}}
	}

	if !rule.AcceptsArity(len(tokens)) {
		return Entry{Problem: &ir.Problem{
			Kind:    ir.ProblemArgAmount,
			Command: raw,
			Count:   len(tokens),
			Lower:   float64(rule.MinArgs),
			Upper:   float64(rule.MaxArgs),
		}}
	}

	cmd := &ir.ParsedCommand{
		Effect:     rule.Name,
		Kind:       rule.Kind,
		Raw:        raw,
		MultiImage: rule.MultiImage,
	}
	for i := 0; i < len(tokens) && i < len(rule.Rules); i++ {
		v, prob := rule.Rules[i].Validate(tokens[i], raw)
		cmd.Args = append(cmd.Args, ir.ArgResult{Raw: tokens[i], Value: v, Problem: prob})
	}
	return Entry{Command: cmd}
}

// Suggest returns the closest effect name within a small edit distance,
// or "" if none is close enough. Ties go to the earlier declaration.
func (p *Parser) Suggest(name string) string {
	if name == "" {
		return ""
	}
	best, bestDist := "", maxSuggestDistance+1
	for _, candidate := range p.grammar.Names() {
		if d := levenshtein.ComputeDistance(name, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}
