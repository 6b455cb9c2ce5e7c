package ir

import (
	"strconv"
	"strings"
)

// ProblemKind tags a user-facing validation problem. The values double as
// reply template keys.
type ProblemKind string

const (
	ProblemNoCaption          ProblemKind = "no-caption"
	ProblemEffectNotFound     ProblemKind = "effect-not-found"
	ProblemArgAmount          ProblemKind = "arg-amount"
	ProblemWrongType          ProblemKind = "arg-wrong-type"
	ProblemOutOfRange         ProblemKind = "arg-out-of-range"
	ProblemFixedValue         ProblemKind = "arg-set-to"
	ProblemNotInOptions       ProblemKind = "arg-not-in-option"
	ProblemNotAColor          ProblemKind = "arg-not-color"
	ProblemNotPositiveInt     ProblemKind = "arg-not-positive-int"
	ProblemTooManyMultiImage  ProblemKind = "too-many-multi-image"
	ProblemMissingSecondImage ProblemKind = "no-2nd-image"
)

// CommandLevel reports whether the problem disqualifies a whole command
// rather than one of its arguments.
func (k ProblemKind) CommandLevel() bool {
	switch k {
	case ProblemNoCaption, ProblemEffectNotFound, ProblemArgAmount:
		return true
	}
	return false
}

// Problem carries everything needed to render a message without going back
// to the grammar. Only the fields relevant to Kind are set.
type Problem struct {
	Kind       ProblemKind `json:"kind"`
	Command    string      `json:"command,omitempty"`
	Token      string      `json:"token,omitempty"`
	Lower      float64     `json:"lower,omitempty"`
	Upper      float64     `json:"upper,omitempty"`
	Count      int         `json:"count,omitempty"`
	Options    []Value     `json:"-"`
	Effects    []string    `json:"effects,omitempty"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// Args returns the template substitution values in the order the reply
// template for Kind expects them.
func (p *Problem) Args() []string {
	switch p.Kind {
	case ProblemEffectNotFound:
		return []string{p.Token}
	case ProblemArgAmount:
		return []string{p.Command, strconv.Itoa(p.Count), FormatNumber(p.Lower), FormatNumber(p.Upper)}
	case ProblemOutOfRange, ProblemFixedValue:
		return []string{p.Command, FormatNumber(p.Lower), FormatNumber(p.Upper), p.Token}
	case ProblemNotInOptions:
		return []string{p.Command, p.OptionList(), p.Token}
	case ProblemWrongType, ProblemNotAColor, ProblemNotPositiveInt:
		return []string{p.Command, p.Token}
	case ProblemTooManyMultiImage:
		return []string{strings.Join(p.Effects, "\n")}
	case ProblemMissingSecondImage:
		if len(p.Effects) == 0 {
			return []string{""}
		}
		return []string{p.Effects[0]}
	default:
		return nil
	}
}

// OptionList renders Options as "a, b, c".
func (p *Problem) OptionList() string {
	parts := make([]string, len(p.Options))
	for i, o := range p.Options {
		parts[i] = o.String()
	}
	return strings.Join(parts, ", ")
}
