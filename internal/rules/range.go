package rules

import (
	"fmt"

	"github.com/roach88/polybot/internal/ir"
)

// Range accepts a number within [Lower, Upper]. A range whose bounds are
// equal admits exactly one value and reports ProblemFixedValue instead of
// ProblemOutOfRange.
type Range struct {
	Lower  float64
	Upper  float64
	Coerce Coerce
}

// NewRange returns an integer range.
func NewRange(lower, upper float64) Range {
	return Range{Lower: lower, Upper: upper, Coerce: CoerceInt}
}

// NewFloatRange returns a fractional range.
func NewFloatRange(lower, upper float64) Range {
	return Range{Lower: lower, Upper: upper, Coerce: CoerceFloat}
}

func (r Range) coerce() Coerce {
	if r.Coerce == CoerceNone {
		return CoerceInt
	}
	return r.Coerce
}

// Validate implements ir.ArgRule.
func (r Range) Validate(raw, context string) (ir.Value, *ir.Problem) {
	v, n, ok := r.coerce().apply(raw)
	if !ok {
		return nil, &ir.Problem{Kind: ir.ProblemWrongType, Command: context, Token: raw}
	}
	if r.Lower <= n && n <= r.Upper {
		return v, nil
	}
	kind := ir.ProblemOutOfRange
	if r.Lower == r.Upper {
		kind = ir.ProblemFixedValue
	}
	return nil, &ir.Problem{
		Kind:    kind,
		Command: context,
		Token:   v.String(),
		Lower:   r.Lower,
		Upper:   r.Upper,
	}
}

// Describe implements ir.ArgRule.
func (r Range) Describe() string {
	if r.Lower == r.Upper {
		return fmt.Sprintf("exactly %s", ir.FormatNumber(r.Lower))
	}
	return fmt.Sprintf("%s..%s (%s)", ir.FormatNumber(r.Lower), ir.FormatNumber(r.Upper), r.coerce())
}
