package rules

import (
	"fmt"
	"strconv"

	"github.com/roach88/polybot/internal/ir"
)

// Coerce selects how a raw token is converted before range or option checks.
type Coerce int

const (
	CoerceNone Coerce = iota
	CoerceInt
	CoerceFloat
)

// ParseCoerce maps the grammar spelling of a coercion to its value.
// An empty string means no coercion.
func ParseCoerce(s string) (Coerce, error) {
	switch s {
	case "", "none":
		return CoerceNone, nil
	case "int":
		return CoerceInt, nil
	case "float":
		return CoerceFloat, nil
	default:
		return CoerceNone, fmt.Errorf("unknown coercion %q", s)
	}
}

func (c Coerce) String() string {
	switch c {
	case CoerceInt:
		return "int"
	case CoerceFloat:
		return "float"
	default:
		return "none"
	}
}

// apply converts raw. The float result mirrors the returned value for
// numeric comparisons.
func (c Coerce) apply(raw string) (ir.Value, float64, bool) {
	switch c {
	case CoerceInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, 0, false
		}
		return ir.Int(n), float64(n), true
	case CoerceFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, 0, false
		}
		return ir.Float(f), f, true
	default:
		return ir.Text(raw), 0, true
	}
}
