package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reference runs a command against the reference engine rooted at dir.
func reference(t *testing.T, dir string, args ...string) (CLIResponse, error) {
	t.Helper()
	full := append([]string{"--engine", "reference", "--data-dir", dir, "--format", "json"}, args...)
	out, _, err := execute(t, full...)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp, err
}

func TestRecordFlow(t *testing.T) {
	dir := t.TempDir()

	resp, err := reference(t, dir, "create", "users", "user:1", `{"name":"ada","age":36}`)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)

	resp, err = reference(t, dir, "get", "users", "user:1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "ada", "age": float64(36)}, resp.Data)

	resp, err = reference(t, dir, "merge", "users", "user:1", `{"age":37}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "ada", "age": float64(37)}, resp.Data)

	resp, err = reference(t, dir, "exists", "users", "user:1")
	require.NoError(t, err)
	assert.Equal(t, true, resp.Data)

	_, err = reference(t, dir, "put", "users", "user:2", `{"name":"grace"}`)
	require.NoError(t, err)

	resp, err = reference(t, dir, "keys", "users")
	require.NoError(t, err)
	assert.Equal(t, []any{"user:1", "user:2"}, resp.Data)

	resp, err = reference(t, dir, "delete", "users", "user:1")
	require.NoError(t, err)
	assert.Equal(t, true, resp.Data)

	resp, err = reference(t, dir, "exists", "users", "user:1")
	require.NoError(t, err)
	assert.Equal(t, false, resp.Data)

	resp, err = reference(t, dir, "clear", "users")
	require.NoError(t, err)
	assert.Equal(t, true, resp.Data)

	resp, err = reference(t, dir, "dump", "users")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, resp.Data)
}

func TestGetMissingKey(t *testing.T) {
	resp, err := reference(t, t.TempDir(), "get", "users", "nobody")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestCreateExistingKey(t *testing.T) {
	dir := t.TempDir()
	_, err := reference(t, dir, "create", "users", "k", `{"v":1}`)
	require.NoError(t, err)

	resp, err := reference(t, dir, "create", "users", "k", `{"v":2}`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "VALIDATION", resp.Error.Code)
}

func TestCreateRejectsNonObject(t *testing.T) {
	resp, err := reference(t, t.TempDir(), "create", "users", "k", `[1,2]`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "VALIDATION", resp.Error.Code)
}

func TestRecordTextOutput(t *testing.T) {
	dir := t.TempDir()
	base := []string{"--engine", "reference", "--data-dir", dir}

	_, _, err := execute(t, append(base, "put", "users", "b", `{"v":1}`)...)
	require.NoError(t, err)
	_, _, err = execute(t, append(base, "put", "users", "a", `{"v":2}`)...)
	require.NoError(t, err)

	out, _, err := execute(t, append(base, "keys", "users")...)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", out)

	out, _, err = execute(t, append(base, "exists", "users", "a")...)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, _, err = execute(t, append(base, "get", "users", "a")...)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"v\": 2\n}\n", out)
}

func TestStatsReportsEntries(t *testing.T) {
	dir := t.TempDir()
	_, err := reference(t, dir, "put", "users", "k", `{"v":1}`)
	require.NoError(t, err)

	resp, err := reference(t, dir, "stats", "users")
	require.NoError(t, err)
	stats, ok := resp.Data.(map[string]any)
	require.True(t, ok, "stats should be an object: %v", resp.Data)
	assert.Equal(t, float64(1), stats["entries"])
	assert.Equal(t, "reference", stats["engine"])
}

func TestPathCommand(t *testing.T) {
	dir := t.TempDir()

	out, _, err := execute(t, "--data-dir", dir, "path", "cache")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lmdbkv", "cache.lmdb"), strings.TrimSpace(out))

	_, _, err = execute(t, "--data-dir", dir, "path", "../escape")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInvalidEngineFlag(t *testing.T) {
	_, _, err := execute(t, "--engine", "bogus", "path", "cache")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestProbeNothingLoadable(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "liblmdbkv-missing.so")
	out, _, err := execute(t, "--format", "json", "--library", missing, "probe")

	// The host may carry a real engine; only assert when nothing loaded.
	if err == nil {
		return
	}
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "NATIVE_INTEROP", resp.Error.Code)
	assert.Contains(t, out, missing)
}
