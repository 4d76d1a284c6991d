package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads so the host environment does
// not leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range settings {
		t.Setenv(s.env, "")
		os.Unsetenv(s.env)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	fs := NewFlagSet("test")
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load(fs)
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, DefaultRoot), cfg.Root)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, ":3100", cfg.Addr())
	assert.Equal(t, "/lichtblick", cfg.ViewerURL)
	assert.Equal(t, ".mcap", cfg.Extension)
	assert.Equal(t, filepath.Join(wd, "uploads"), cfg.UploadDir)
	assert.False(t, cfg.StrictSymlinks)
	assert.False(t, cfg.Watch)
	assert.False(t, cfg.Write)
	assert.Empty(t, cfg.StateDB)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	t.Setenv("MCAP_ROOT", root)
	t.Setenv("PORT", "8123")
	t.Setenv("LICHTBLICK_URL", "https://viewer.example.com/")
	t.Setenv("MCAP_STRICT_SYMLINKS", "true")
	t.Setenv("MCAP_EXTENSION", "BAG")

	fs := NewFlagSet("test")
	require.NoError(t, fs.Parse(nil))
	cfg, err := Load(fs)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, 8123, cfg.Port)
	assert.Equal(t, "https://viewer.example.com/", cfg.ViewerURL)
	assert.True(t, cfg.StrictSymlinks)
	assert.Equal(t, ".bag", cfg.Extension)
}

func TestFlagsOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8123")
	root := t.TempDir()

	fs := NewFlagSet("test")
	require.NoError(t, fs.Parse([]string{"--port", "9000", "--root", root, "--watch"}))
	cfg, err := Load(fs)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, root, cfg.Root)
	assert.True(t, cfg.Watch)
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "navigator.yaml")
	require.NoError(t, os.WriteFile(path, []byte("root: "+dir+"\nport: 4000\nstate_db: "+filepath.Join(dir, "state.db")+"\n"), 0644))

	fs := NewFlagSet("test")
	require.NoError(t, fs.Parse([]string{"--config", path}))
	cfg, err := Load(fs)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Root)
	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, filepath.Join(dir, "state.db"), cfg.StateDB)
}

func TestLoadRejectsBadPort(t *testing.T) {
	clearEnv(t)
	fs := NewFlagSet("test")
	require.NoError(t, fs.Parse([]string{"--port", "70000"}))

	_, err := Load(fs)

	assert.ErrorIs(t, err, ErrInvalidPort)
}

func TestLoadRejectsEmptyRoot(t *testing.T) {
	clearEnv(t)
	fs := NewFlagSet("test")
	require.NoError(t, fs.Parse([]string{"--root", " "}))

	_, err := Load(fs)

	assert.ErrorIs(t, err, ErrEmptyRoot)
}

func TestNormalizeExtension(t *testing.T) {
	assert.Equal(t, ".mcap", normalizeExtension(""))
	assert.Equal(t, ".mcap", normalizeExtension("MCAP"))
	assert.Equal(t, ".bag", normalizeExtension(".Bag"))
}
