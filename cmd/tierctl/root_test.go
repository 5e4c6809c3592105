package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	return writeSQLiteConfig(t, "table_name: cache")
}

// writeSQLiteConfig writes an array over sqlite stack; extra is appended to
// the sqlite adapter options.
func writeSQLiteConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	opts := fmt.Sprintf("path: %q", filepath.Join(dir, "tiers.db"))
	if extra != "" {
		opts += ", " + extra
	}
	cfg := fmt.Sprintf(`
namespace: cli
layers:
  - adapter_name: array
    adapter_options: {}
  - adapter_name: sqlite
    adapter_options: {%s}
`, opts)
	path := filepath.Join(dir, "tiers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func run(t *testing.T, config string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(env{Config: config, LogLevel: "error"}, &out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSetGetRoundTrip(t *testing.T) {
	cfg := writeConfig(t)

	_, err := run(t, cfg, "set", "u1", `{"name":"Ada","age":36}`)
	require.NoError(t, err)
	_, err = run(t, cfg, "set", "u2", "plain text")
	require.NoError(t, err)

	out, err := run(t, cfg, "get", "u1")
	require.NoError(t, err)
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, map[string]any{"name": "Ada", "age": float64(36)}, v)

	out, err = run(t, cfg, "mget", "u1", "u2", "nope")
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Len(t, m, 2)
	assert.Equal(t, "plain text", m["u2"])

	out, err = run(t, cfg, "contains", "u2")
	require.NoError(t, err)
	assert.JSONEq(t, "true", out)
}

func TestGetMissing(t *testing.T) {
	cfg := writeConfig(t)
	_, err := run(t, cfg, "get", "ghost")
	assert.True(t, errors.Is(err, errNotFound), "err=%v", err)
}

func TestDeleteAndFlush(t *testing.T) {
	cfg := writeConfig(t)
	for _, k := range []string{"a", "b", "c"} {
		_, err := run(t, cfg, "set", k, "1")
		require.NoError(t, err)
	}

	_, err := run(t, cfg, "del", "a", "b")
	require.NoError(t, err)
	out, _ := run(t, cfg, "contains", "a")
	assert.JSONEq(t, "false", out)
	out, _ = run(t, cfg, "contains", "c")
	assert.JSONEq(t, "true", out)

	_, err = run(t, cfg, "flush")
	require.NoError(t, err)
	out, _ = run(t, cfg, "contains", "c")
	assert.JSONEq(t, "false", out)
}

func TestNamespaceFlag(t *testing.T) {
	cfg := writeConfig(t)
	_, err := run(t, cfg, "--namespace", "other", "set", "k", "1")
	require.NoError(t, err)

	out, _ := run(t, cfg, "contains", "k")
	assert.JSONEq(t, "false", out)
	out, _ = run(t, cfg, "--namespace", "other", "contains", "k")
	assert.JSONEq(t, "true", out)
}

func TestLayers(t *testing.T) {
	cfg := writeConfig(t)
	out, err := run(t, cfg, "layers")
	require.NoError(t, err)

	var ls []layerInfo
	require.NoError(t, json.Unmarshal([]byte(out), &ls))
	require.Len(t, ls, 2)
	assert.Equal(t, "array", ls[0].Adapter)
	assert.Equal(t, "sqlite", ls[1].Adapter)
	assert.Equal(t, "cli", ls[1].Namespace)
}

func TestBadConfig(t *testing.T) {
	_, err := run(t, filepath.Join(t.TempDir(), "missing.yaml"), "flush")
	assert.Error(t, err)
}

func TestMissingTableName(t *testing.T) {
	_, err := run(t, writeSQLiteConfig(t, ""), "flush")
	require.Error(t, err)
	assert.ErrorContains(t, err, "table_name")
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, float64(3), parseValue("3"))
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, []any{"a"}, parseValue(`["a"]`))
	assert.Equal(t, "hello", parseValue("hello"))
	assert.Nil(t, parseValue("null"))
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("TIERCTL_CONFIG", "/etc/tiers.yaml")
	t.Setenv("TIERCTL_LOG_LEVEL", "debug")
	e, err := loadEnv()
	require.NoError(t, err)
	assert.Equal(t, "/etc/tiers.yaml", e.Config)
	assert.Equal(t, "debug", e.LogLevel)
	assert.Equal(t, "", e.Namespace)
}
