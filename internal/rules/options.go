package rules

import (
	"strings"

	"github.com/roach88/polybot/internal/ir"
)

// Options accepts one value out of a fixed set.
type Options struct {
	Values []ir.Value
	Coerce Coerce
}

// Validate implements ir.ArgRule.
func (o Options) Validate(raw, context string) (ir.Value, *ir.Problem) {
	v, _, ok := o.Coerce.apply(raw)
	if !ok {
		return nil, &ir.Problem{Kind: ir.ProblemWrongType, Command: context, Token: raw}
	}
	for _, allowed := range o.Values {
		if allowed == v {
			return v, nil
		}
	}
	return nil, &ir.Problem{
		Kind:    ir.ProblemNotInOptions,
		Command: context,
		Token:   v.String(),
		Options: o.Values,
	}
}

// Describe implements ir.ArgRule.
func (o Options) Describe() string {
	parts := make([]string, len(o.Values))
	for i, v := range o.Values {
		parts[i] = v.String()
	}
	return "one of " + strings.Join(parts, ", ")
}
