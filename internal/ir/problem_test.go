package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProblemArgs(t *testing.T) {
	tests := []struct {
		name string
		p    Problem
		want []string
	}{
		{
			name: "no caption has no args",
			p:    Problem{Kind: ProblemNoCaption},
			want: nil,
		},
		{
			name: "effect not found",
			p:    Problem{Kind: ProblemEffectNotFound, Token: "sharpen"},
			want: []string{"sharpen"},
		},
		{
			name: "arg amount",
			p:    Problem{Kind: ProblemArgAmount, Command: "canvas_resize 1", Count: 1, Lower: 2, Upper: 3},
			want: []string{"canvas_resize 1", "1", "2", "3"},
		},
		{
			name: "out of range",
			p:    Problem{Kind: ProblemOutOfRange, Command: "blur 40", Token: "40", Lower: 1, Upper: 32},
			want: []string{"blur 40", "1", "32", "40"},
		},
		{
			name: "fixed value",
			p:    Problem{Kind: ProblemFixedValue, Command: "x 2", Token: "2", Lower: 1, Upper: 1},
			want: []string{"x 2", "1", "1", "2"},
		},
		{
			name: "not in options",
			p: Problem{
				Kind: ProblemNotInOptions, Command: "rotate 45", Token: "45",
				Options: []Value{Int(90), Int(-90), Int(180), Int(270)},
			},
			want: []string{"rotate 45", "90, -90, 180, 270", "45"},
		},
		{
			name: "not a color",
			p:    Problem{Kind: ProblemNotAColor, Command: "segment 1 nope", Token: "nope"},
			want: []string{"segment 1 nope", "nope"},
		},
		{
			name: "too many multi image",
			p:    Problem{Kind: ProblemTooManyMultiImage, Effects: []string{"concat", "concat"}},
			want: []string{"concat\nconcat"},
		},
		{
			name: "missing second image",
			p:    Problem{Kind: ProblemMissingSecondImage, Effects: []string{"multiply"}},
			want: []string{"multiply"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Args())
		})
	}
}

func TestProblemKindCommandLevel(t *testing.T) {
	assert.True(t, ProblemEffectNotFound.CommandLevel())
	assert.True(t, ProblemArgAmount.CommandLevel())
	assert.False(t, ProblemOutOfRange.CommandLevel())
	assert.False(t, ProblemTooManyMultiImage.CommandLevel())
}

func TestParsedCommandArg(t *testing.T) {
	cmd := ParsedCommand{
		Effect: "segment",
		Args: []ArgResult{
			{Raw: "10", Value: Int(10)},
			{Raw: "nope", Problem: &Problem{Kind: ProblemNotAColor}},
		},
	}

	v, ok := cmd.Arg(0)
	assert.True(t, ok)
	assert.Equal(t, Int(10), v)

	_, ok = cmd.Arg(1)
	assert.False(t, ok, "failed argument is not usable")

	_, ok = cmd.Arg(2)
	assert.False(t, ok, "omitted argument falls back to default")

	assert.False(t, cmd.Valid())
	assert.Len(t, cmd.Problems(), 1)
}
