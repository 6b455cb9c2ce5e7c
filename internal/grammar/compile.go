package grammar

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// RuleDef is the compiled form of one argument rule before validation.
type RuleDef struct {
	Kind    string   `json:"kind"`
	Lower   *float64 `json:"lower,omitempty"`
	Upper   *float64 `json:"upper,omitempty"`
	Coerce  string   `json:"coerce,omitempty"`
	Options []any    `json:"options,omitempty"`
}

// EffectDef is the compiled form of one grammar entry.
type EffectDef struct {
	Name       string    `json:"name"`
	MinArgs    int       `json:"min_args"`
	MaxArgs    int       `json:"max_args"`
	MultiImage bool      `json:"multi_image"`
	Rules      []RuleDef `json:"rules"`
}

// Compile reads the effects struct of a grammar CUE value.
// Effects are returned in declaration order.
func Compile(v cue.Value) ([]EffectDef, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(); err != nil {
		return nil, formatCUEError(err)
	}

	effectsVal := v.LookupPath(cue.ParsePath("effects"))
	if !effectsVal.Exists() {
		return nil, &CompileError{
			Field:   "effects",
			Message: "effects is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := effectsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var defs []EffectDef
	for iter.Next() {
		def, err := compileEffect(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func compileEffect(name string, v cue.Value) (EffectDef, error) {
	def := EffectDef{Name: name}
	field := func(f string) string { return fmt.Sprintf("effects.%s.%s", name, f) }

	minVal, ok := lookupConcrete(v, "min_args")
	if !ok {
		return def, &CompileError{Field: field("min_args"), Message: "min_args is required", Pos: v.Pos()}
	}
	n, err := minVal.Int64()
	if err != nil {
		return def, formatCUEError(err)
	}
	def.MinArgs = int(n)

	maxVal, ok := lookupConcrete(v, "max_args")
	if !ok {
		return def, &CompileError{Field: field("max_args"), Message: "max_args is required", Pos: v.Pos()}
	}
	n, err = maxVal.Int64()
	if err != nil {
		return def, formatCUEError(err)
	}
	def.MaxArgs = int(n)

	if multiVal, ok := lookupConcrete(v, "multi_image"); ok {
		def.MultiImage, err = multiVal.Bool()
		if err != nil {
			return def, formatCUEError(err)
		}
	}

	rulesVal, ok := lookupConcrete(v, "rules")
	if !ok {
		return def, nil
	}
	list, err := rulesVal.List()
	if err != nil {
		return def, formatCUEError(err)
	}
	for i := 0; list.Next(); i++ {
		rule, err := compileRule(fmt.Sprintf("%s[%d]", field("rules"), i), list.Value())
		if err != nil {
			return def, err
		}
		def.Rules = append(def.Rules, rule)
	}
	return def, nil
}

func compileRule(path string, v cue.Value) (RuleDef, error) {
	var rule RuleDef

	kindVal, ok := lookupConcrete(v, "kind")
	if !ok {
		return rule, &CompileError{Field: path + ".kind", Message: "kind is required", Pos: v.Pos()}
	}
	kind, err := kindVal.String()
	if err != nil {
		return rule, formatCUEError(err)
	}
	rule.Kind = kind

	for _, bound := range []struct {
		name string
		dst  **float64
	}{{"lower", &rule.Lower}, {"upper", &rule.Upper}} {
		bv, ok := lookupConcrete(v, bound.name)
		if !ok {
			continue
		}
		f, err := bv.Float64()
		if err != nil {
			return rule, formatCUEError(err)
		}
		*bound.dst = &f
	}

	if cv, ok := lookupConcrete(v, "coerce"); ok {
		if rule.Coerce, err = cv.String(); err != nil {
			return rule, formatCUEError(err)
		}
	}

	if ov, ok := lookupConcrete(v, "options"); ok {
		list, err := ov.List()
		if err != nil {
			return rule, formatCUEError(err)
		}
		for list.Next() {
			opt, err := optionValue(path, list.Value())
			if err != nil {
				return rule, err
			}
			rule.Options = append(rule.Options, opt)
		}
		if rule.Options == nil {
			rule.Options = []any{}
		}
	}

	return rule, nil
}

func optionValue(path string, v cue.Value) (any, error) {
	switch v.IncompleteKind() {
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return n, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return s, nil
	default:
		return nil, &CompileError{
			Field:   path + ".options",
			Message: fmt.Sprintf("unsupported option kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// lookupConcrete returns the field's default value if it is present and
// concrete. Optional fields left unset report false.
func lookupConcrete(v cue.Value, name string) (cue.Value, bool) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return f, false
	}
	f, _ = f.Default()
	if !f.IsConcrete() {
		return f, false
	}
	return f, true
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
