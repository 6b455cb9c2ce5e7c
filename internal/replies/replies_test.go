package replies

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/polybot/internal/caption"
	"github.com/roach88/polybot/internal/grammar"
	"github.com/roach88/polybot/internal/ir"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a.b", `a\.b`},
		{"(1, 2, 3)", `\(1, 2, 3\)`},
		{`already\.escaped`, `already\.escaped`},
		{"-0.5!", `\-0\.5\!`},
		{"snake_case", `snake\_case`},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Escape(tt.in))
		})
	}
}

func TestPlain(t *testing.T) {
	assert.Equal(t, "Effect blur was not found.", Plain(`Effect *blur* was not found\.`))
	assert.Equal(t, `a\b`, Plain(`a\\b`))
	assert.Equal(t, "1.5 * 2", Plain(`1\.5 \* 2`))
}

func TestLoad_JSONC(t *testing.T) {
	s, err := Load([]byte(`{
		// comment
		"photo": {"send": "done\\.",},
	}`))
	require.NoError(t, err)

	tmpl, ok := s.Lookup(Photo, KeySend)
	require.True(t, ok)
	assert.Equal(t, `done\.`, tmpl)
}

func TestLoad_Malformed(t *testing.T) {
	_, err := Load([]byte(`{"photo": [1, 2]}`))
	assert.Error(t, err)
}

func TestDefault_HasEveryKey(t *testing.T) {
	problemKeys := []string{
		string(ir.ProblemNoCaption),
		string(ir.ProblemEffectNotFound),
		string(ir.ProblemArgAmount),
		string(ir.ProblemWrongType),
		string(ir.ProblemOutOfRange),
		string(ir.ProblemFixedValue),
		string(ir.ProblemNotInOptions),
		string(ir.ProblemNotAColor),
		string(ir.ProblemNotPositiveInt),
		string(ir.ProblemTooManyMultiImage),
		string(ir.ProblemMissingSecondImage),
	}
	helpKeys := append([]string{KeyHelp, KeyUnknown}, grammar.Default().Names()...)

	missing := Default().Missing(map[string][]string{
		General: {KeyErrorEnding},
		Text:    {KeyUnknown},
		Photo: append(problemKeys,
			KeyProcessing, KeySend, KeyDocument, KeyProcessingFailed, KeyEmptyResult, KeyDidYouMean, KeyArgError),
		Help: helpKeys,
	})
	assert.Empty(t, missing)
}

func TestRender(t *testing.T) {
	s := Default()

	assert.Equal(t, `Effect *a\.b* was not found\.`, s.Render(Photo, string(ir.ProblemEffectNotFound), "a.b"))
	assert.Equal(t, `Processing your image\.\.\.`, s.Render(Photo, KeyProcessing))
}

func TestRender_MarkdownArgIsVerbatim(t *testing.T) {
	s, err := Load([]byte(`{"photo": {"wrap": "> {}"}}`))
	require.NoError(t, err)

	assert.Equal(t, `> *x*`, s.Render(Photo, "wrap", Markdown("*x*")))
	assert.Equal(t, `> \*x\*`, s.Render(Photo, "wrap", "*x*"))
}

func TestRender_MissingTemplate(t *testing.T) {
	assert.Equal(t, `photo/nope`, Default().Render(Photo, "nope"))
	assert.Equal(t, `nope/x\-y`, Default().Render("nope", "x-y"))
}

func TestErrorText(t *testing.T) {
	s := Default()
	ending := s.Render(General, KeyErrorEnding)
	assert.Equal(t, "body\n"+ending, s.ErrorText("body"))
}

func TestProblem_Suggestion(t *testing.T) {
	s := Default()
	p := &ir.Problem{Kind: ir.ProblemEffectNotFound, Token: "blurr", Suggestion: "blur"}

	assert.Equal(t, "Effect *blurr* was not found\\.\nDid you mean *blur*?", s.Problem(p))

	p.Suggestion = ""
	assert.Equal(t, "Effect *blurr* was not found\\.", s.Problem(p))
}

func check(t *testing.T, text string, grouped bool) caption.Verdict {
	t.Helper()
	return caption.Check(caption.NewParser(grammar.Default()).Parse(text), grouped)
}

func TestVerdict_Arguments(t *testing.T) {
	s := Default()
	v := check(t, "blur 40", false)
	require.Equal(t, caption.StageArguments, v.Stage)

	want := "Errors in *blur 40*:\n40: *blur 40*: must be between 1 and 32, got 40\\."
	assert.Equal(t, want, s.Verdict(v))
}

func TestVerdict_ArgumentsAcrossCommands(t *testing.T) {
	s := Default()
	v := check(t, "blur x, rotate 45", false)
	require.Equal(t, caption.StageArguments, v.Stage)
	require.Len(t, v.Arguments, 2)

	got := s.Verdict(v)
	assert.Contains(t, got, "Errors in *blur x*:\nx: *blur x*: x has the wrong type\\.")
	assert.Contains(t, got, "\n\nErrors in *rotate 45*:")
}

func TestVerdict_CommandProblemsJoined(t *testing.T) {
	s := Default()
	v := check(t, "foo, bar", false)
	require.Equal(t, caption.StageCommand, v.Stage)

	assert.Equal(t, "Effect *foo* was not found\\.\nEffect *bar* was not found\\.", s.Verdict(v))
}

func TestVerdict_NoCaption(t *testing.T) {
	s := Default()
	assert.Equal(t, s.Render(Photo, string(ir.ProblemNoCaption)), s.Verdict(check(t, "  ", false)))
}

func TestVerdict_OK(t *testing.T) {
	assert.Empty(t, Default().Verdict(check(t, "grayscale", false)))
}

func TestHelp(t *testing.T) {
	s := Default()

	tmpl, _ := s.Lookup(Help, KeyHelp)
	assert.Equal(t, tmpl, s.Help(""))

	blur, _ := s.Lookup(Help, "salt_n_pepper")
	assert.Equal(t, blur, s.Help("Salt-N-Pepper"))

	assert.Equal(t, "There is no help for *sharpen*\\.", s.Help("sharpen"))
	assert.Equal(t, "There is no help for *unknown*\\.", s.Help("unknown"))
}

func TestText(t *testing.T) {
	s := Default()

	hi, _ := s.Lookup(Text, "hi")
	assert.Equal(t, hi, s.Text("  Hi "))

	unknown, _ := s.Lookup(Text, KeyUnknown)
	assert.Equal(t, unknown, s.Text("what is this"))
}
