package grammar

import (
	"fmt"

	"github.com/roach88/polybot/internal/ir"
	"github.com/roach88/polybot/internal/rules"
)

// Validation error codes (E100-E199)
const (
	ErrUnknownEffect   = "E101" // effect name has no kernel
	ErrArityBounds     = "E102" // min_args greater than max_args, or negative
	ErrMissingRules    = "E103" // fewer rules than max_args
	ErrUnknownRuleKind = "E104" // missing or unsupported rule kind
	ErrRangeBounds     = "E105" // range without bounds or lower > upper
	ErrEmptyOptions    = "E106" // options rule with no options
	ErrUnknownCoercion = "E107" // coerce is not int or float
	ErrOptionType      = "E108" // option value does not match coercion
	ErrMissingEffect   = "E109" // kernel without grammar entry
	ErrDuplicateEffect = "E110" // effect declared twice
)

// ValidationError represents a grammar validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks compiled effect definitions.
// Returns all errors found (does not fail-fast).
func Validate(defs []EffectDef) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)

	for i, def := range defs {
		path := fmt.Sprintf("effects[%d]", i)

		if seen[def.Name] {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("duplicate effect %q", def.Name),
				Code:    ErrDuplicateEffect,
			})
		}
		seen[def.Name] = true

		if _, ok := ir.ParseEffectKind(def.Name); !ok {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("effect %q has no kernel", def.Name),
				Code:    ErrUnknownEffect,
			})
		}

		if def.MinArgs < 0 || def.MinArgs > def.MaxArgs {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("arity %d..%d is not a valid range", def.MinArgs, def.MaxArgs),
				Code:    ErrArityBounds,
			})
		}

		if len(def.Rules) < def.MaxArgs {
			errs = append(errs, ValidationError{
				Field:   path + ".rules",
				Message: fmt.Sprintf("%d rules for up to %d arguments", len(def.Rules), def.MaxArgs),
				Code:    ErrMissingRules,
			})
		}

		for j, rule := range def.Rules {
			errs = append(errs, validateRule(fmt.Sprintf("%s.rules[%d]", path, j), rule)...)
		}
	}

	for _, kind := range ir.AllEffectKinds() {
		if !seen[kind.String()] {
			errs = append(errs, ValidationError{
				Field:   "effects",
				Message: fmt.Sprintf("effect %q is not declared", kind),
				Code:    ErrMissingEffect,
			})
		}
	}

	return errs
}

func validateRule(path string, rule RuleDef) []ValidationError {
	var errs []ValidationError

	coerce, err := rules.ParseCoerce(rule.Coerce)
	if err != nil {
		errs = append(errs, ValidationError{Field: path + ".coerce", Message: err.Error(), Code: ErrUnknownCoercion})
	}

	switch rule.Kind {
	case "range":
		if rule.Lower == nil || rule.Upper == nil {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: "range requires lower and upper",
				Code:    ErrRangeBounds,
			})
		} else if *rule.Lower > *rule.Upper {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("lower %s exceeds upper %s", ir.FormatNumber(*rule.Lower), ir.FormatNumber(*rule.Upper)),
				Code:    ErrRangeBounds,
			})
		}
	case "options":
		if len(rule.Options) == 0 {
			errs = append(errs, ValidationError{
				Field:   path + ".options",
				Message: "options must not be empty",
				Code:    ErrEmptyOptions,
			})
		}
		for k, opt := range rule.Options {
			if _, err := optionToValue(opt, coerce); err != nil {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.options[%d]", path, k),
					Message: err.Error(),
					Code:    ErrOptionType,
				})
			}
		}
	case "positive_int", "color":
	case "":
		errs = append(errs, ValidationError{Field: path + ".kind", Message: "kind is required", Code: ErrUnknownRuleKind})
	default:
		errs = append(errs, ValidationError{
			Field:   path + ".kind",
			Message: fmt.Sprintf("unknown rule kind %q", rule.Kind),
			Code:    ErrUnknownRuleKind,
		})
	}

	return errs
}

// optionToValue converts a compiled option into the value the coerced token
// will be compared against.
func optionToValue(opt any, coerce rules.Coerce) (ir.Value, error) {
	switch coerce {
	case rules.CoerceInt:
		switch n := opt.(type) {
		case int64:
			return ir.Int(n), nil
		case int:
			return ir.Int(n), nil
		}
	case rules.CoerceFloat:
		switch n := opt.(type) {
		case int64:
			return ir.Float(n), nil
		case int:
			return ir.Float(n), nil
		case float64:
			return ir.Float(n), nil
		}
	default:
		if s, ok := opt.(string); ok {
			return ir.Text(s), nil
		}
	}
	return nil, fmt.Errorf("option %v does not match %s coercion", opt, coerce)
}
