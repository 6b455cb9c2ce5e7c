package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/polybot/internal/grammar"
	"github.com/roach88/polybot/internal/replies"
)

func TestCheck_Accepted(t *testing.T) {
	out, err := execute(t, "check", "Blur 8, rotate 180")
	require.NoError(t, err)
	assert.Equal(t, "✓ caption accepted (2 commands)\n  blur 8\n  rotate 180\n", out)
}

func TestCheck_Rejected(t *testing.T) {
	out, err := execute(t, "check", "blur 40")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ caption rejected (arguments)")
	assert.Contains(t, out, "40: blur 40: must be between 1 and 32, got 40.")
}

func TestCheck_AlbumWaitsForPartner(t *testing.T) {
	out, err := execute(t, "check", "concat", "--album")
	require.NoError(t, err)
	assert.Contains(t, out, "concat  [multi-image]")
	assert.Contains(t, out, "waits for the second photo of the album")

	_, err = execute(t, "check", "concat")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestCheck_JSON(t *testing.T) {
	out, err := execute(t, "check", "segment 100 red", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   CheckResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.OK)
	require.Len(t, resp.Data.Commands, 1)
	assert.Equal(t, "segment", resp.Data.Commands[0].Effect)
	assert.Equal(t, []string{"100", "(255, 0, 0)"}, resp.Data.Commands[0].Args)
}

func TestCheck_JSONRejected(t *testing.T) {
	out, err := execute(t, "check", "sharpen", "--format", "json")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCaption, resp.Error.Code)
}

func TestCheck_MissingGrammar(t *testing.T) {
	_, err := execute(t, "check", "blur", "--grammar", "does-not-exist.cue")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCheckCaption(t *testing.T) {
	r := CheckCaption(grammar.Default(), replies.Default(), "  GRAYSCALE  ", false)
	assert.True(t, r.OK)
	assert.Equal(t, "ok", r.Stage)
	assert.Equal(t, "grayscale", r.Normalized)
	assert.Empty(t, r.Message)

	r = CheckCaption(grammar.Default(), replies.Default(), "", false)
	assert.False(t, r.OK)
	assert.Equal(t, "no-caption", r.Stage)
	assert.NotEmpty(t, r.Message)
}
