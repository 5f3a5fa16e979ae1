package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"single segment", "telephony", []string{"telephony"}, false},
		{"two segments", "rateLimit.maxRequests", []string{"rateLimit", "maxRequests"}, false},
		{"three segments", "rateLimit.redis.addr", []string{"rateLimit", "redis", "addr"}, false},
		{"empty", "", nil, true},
		{"empty segment", "gateway..port", nil, true},
		{"leading dot", ".gateway", nil, true},
		{"trailing dot", "gateway.", nil, true},
		{"blocked __proto__", "foo.__proto__.bar", nil, true},
		{"blocked prototype", "prototype.x", nil, true},
		{"blocked constructor", "constructor", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfigPath(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				var ce *ConfigError
				assert.ErrorAs(t, err, &ce)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestGetValueAtPath(t *testing.T) {
	root := map[string]any{
		"rateLimit": map[string]any{
			"maxRequests": 10,
			"redis": map[string]any{
				"addr": "localhost:6379",
			},
		},
		"simple": "value",
	}

	tests := []struct {
		name string
		path []string
		want any
		ok   bool
	}{
		{"nested value", []string{"rateLimit", "maxRequests"}, 10, true},
		{"deeply nested", []string{"rateLimit", "redis", "addr"}, "localhost:6379", true},
		{"top level", []string{"simple"}, "value", true},
		{"missing key", []string{"nonexistent"}, nil, false},
		{"missing nested", []string{"rateLimit", "nonexistent"}, nil, false},
		{"non-map intermediate", []string{"simple", "sub"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, ok := GetValueAtPath(root, tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, val)
			}
		})
	}
}

func TestSetValueAtPath_CreatesIntermediates(t *testing.T) {
	root := map[string]any{}

	SetValueAtPath(root, []string{"telephony", "salesNumber"}, "+15550001111")
	val, ok := GetValueAtPath(root, []string{"telephony", "salesNumber"})
	assert.True(t, ok)
	assert.Equal(t, "+15550001111", val)
}

func TestSetValueAtPath_OverwritesNonMap(t *testing.T) {
	root := map[string]any{
		"gateway": "string-not-map",
	}

	SetValueAtPath(root, []string{"gateway", "port"}, 8080)
	val, ok := GetValueAtPath(root, []string{"gateway", "port"})
	assert.True(t, ok)
	assert.Equal(t, 8080, val)
}

func TestUnsetValueAtPath(t *testing.T) {
	root := map[string]any{
		"ivr": map[string]any{
			"maxRetries":           1,
			"gatherTimeoutSeconds": 5,
		},
	}

	assert.True(t, UnsetValueAtPath(root, []string{"ivr", "maxRetries"}))
	_, found := GetValueAtPath(root, []string{"ivr", "maxRetries"})
	assert.False(t, found)

	val, found := GetValueAtPath(root, []string{"ivr", "gatherTimeoutSeconds"})
	assert.True(t, found)
	assert.Equal(t, 5, val)

	assert.False(t, UnsetValueAtPath(root, []string{"ivr", "nonexistent"}))
	assert.False(t, UnsetValueAtPath(root, []string{"a", "b", "c"}))
}

func TestResolvePaths_Default(t *testing.T) {
	t.Setenv("SWITCHBOARD_HOME", "")

	paths, err := ResolvePaths()
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".switchboard"), paths.Base)
	assert.Equal(t, filepath.Join(home, ".switchboard", "config.yaml"), paths.Config)
	assert.Equal(t, filepath.Join(home, ".switchboard", "data"), paths.Data)
	assert.Equal(t, filepath.Join(home, ".switchboard", "logs"), paths.Logs)
}

func TestResolvePaths_CustomHome(t *testing.T) {
	t.Setenv("SWITCHBOARD_HOME", "/tmp/sbtest")

	paths, err := ResolvePaths()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/sbtest", paths.Base)
	assert.Equal(t, "/tmp/sbtest/config.yaml", paths.Config)
	assert.Equal(t, "/tmp/sbtest/data/switchboard.db", paths.DatabasePath())
}

func TestEnsureDirs(t *testing.T) {
	tmpDir := t.TempDir()
	paths := Paths{
		Base: tmpDir,
		Data: filepath.Join(tmpDir, "data"),
		Logs: filepath.Join(tmpDir, "logs"),
	}

	require.NoError(t, paths.EnsureDirs())
	require.NoError(t, paths.EnsureDirs())

	for _, dir := range []string{paths.Base, paths.Data, paths.Logs} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestBlockedKeys(t *testing.T) {
	assert.True(t, blockedKeys["__proto__"])
	assert.True(t, blockedKeys["prototype"])
	assert.True(t, blockedKeys["constructor"])
	assert.False(t, blockedKeys["gateway"])
}
