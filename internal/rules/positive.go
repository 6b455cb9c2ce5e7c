package rules

import (
	"strconv"

	"github.com/roach88/polybot/internal/ir"
)

// PositiveInt accepts any integer that is not negative. Zero is allowed.
type PositiveInt struct{}

// Validate implements ir.ArgRule.
func (PositiveInt) Validate(raw, context string) (ir.Value, *ir.Problem) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return nil, &ir.Problem{Kind: ir.ProblemNotPositiveInt, Command: context, Token: raw}
	}
	return ir.Int(n), nil
}

// Describe implements ir.ArgRule.
func (PositiveInt) Describe() string { return "positive integer" }
