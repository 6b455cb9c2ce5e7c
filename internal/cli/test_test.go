package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../harness/testdata"

func TestTest_Scenarios(t *testing.T) {
	out, err := execute(t, "test", scenariosDir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ single_photo\n")
	assert.Contains(t, out, "✓ album_concat\n")
	assert.Contains(t, out, "Test Summary: 5 passed, 0 failed, 5 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTest_Filter(t *testing.T) {
	out, err := execute(t, "test", scenariosDir, "--filter", "album_*", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "album_concat", resp.Data.Scenarios[0].Name)
}

func TestTest_UpdateWritesGolden(t *testing.T) {
	dir := t.TempDir()
	src, err := os.ReadFile(filepath.Join(scenariosDir, "single_photo.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "single_photo.yaml"), src, 0o600))

	out, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ single_photo (golden updated)")

	got, err := os.ReadFile(filepath.Join(dir, "golden", "single_photo.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(scenariosDir, "golden", "single_photo.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	_, err = execute(t, "test", dir)
	require.NoError(t, err)
}

func TestTest_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	src, err := os.ReadFile(filepath.Join(scenariosDir, "single_photo.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "single_photo.yaml"), src, 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "single_photo.golden"), []byte("stale\n"), 0o600))

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ single_photo")
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTest_Empty(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}

func TestTest_MissingDir(t *testing.T) {
	_, err := execute(t, "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
