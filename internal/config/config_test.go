package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/linever/internal/config"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	configDir := filepath.Join(dir, "linever")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(content), 0o644))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Nil(t, cfg.Defaults.Algorithm)
	assert.Nil(t, cfg.Defaults.Store)
	assert.Nil(t, cfg.Report.Color)
	assert.Nil(t, cfg.Watch.Debounce)
	assert.Nil(t, cfg.Theme.Green)
}

func TestLoad_FullConfig(t *testing.T) {
	writeConfig(t, `
[defaults]
algorithm = "sha256"
store = "/var/lib/linever/rev.db"
format = "json"
show_unchanged = false
strict = true
read_only = true

[report]
color = false

[watch]
debounce = "500ms"

[theme]
green = "#00ff00"
red = "#ff0000"
`)

	cfg, err := config.Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.Defaults.Algorithm)
	assert.Equal(t, "sha256", *cfg.Defaults.Algorithm)

	require.NotNil(t, cfg.Defaults.Store)
	assert.Equal(t, "/var/lib/linever/rev.db", *cfg.Defaults.Store)

	require.NotNil(t, cfg.Defaults.Format)
	assert.Equal(t, "json", *cfg.Defaults.Format)

	require.NotNil(t, cfg.Defaults.ShowUnchanged)
	assert.False(t, *cfg.Defaults.ShowUnchanged)

	require.NotNil(t, cfg.Defaults.Strict)
	assert.True(t, *cfg.Defaults.Strict)

	require.NotNil(t, cfg.Defaults.ReadOnly)
	assert.True(t, *cfg.Defaults.ReadOnly)

	require.NotNil(t, cfg.Report.Color)
	assert.False(t, *cfg.Report.Color)

	require.NotNil(t, cfg.Watch.Debounce)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce.Duration)

	require.NotNil(t, cfg.Theme.Green)
	assert.Equal(t, "#00ff00", *cfg.Theme.Green)
	require.NotNil(t, cfg.Theme.Red)
	assert.Equal(t, "#ff0000", *cfg.Theme.Red)

	// Unset fields should remain nil.
	assert.Nil(t, cfg.Theme.Blue)
	assert.Nil(t, cfg.Theme.Muted)
}

func TestLoad_PartialConfig(t *testing.T) {
	writeConfig(t, `
[theme]
muted = "#888888"
`)

	cfg, err := config.Load()
	require.NoError(t, err)

	// Defaults section entirely absent.
	assert.Nil(t, cfg.Defaults.Algorithm)
	assert.Nil(t, cfg.Defaults.Strict)

	require.NotNil(t, cfg.Theme.Muted)
	assert.Equal(t, "#888888", *cfg.Theme.Muted)
}

func TestLoad_InvalidTOML(t *testing.T) {
	writeConfig(t, "invalid [[[")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_InvalidDuration(t *testing.T) {
	writeConfig(t, `
[watch]
debounce = "soon"
`)

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoadFile_Missing(t *testing.T) {
	cfg, err := config.LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.Config{}, cfg)
}

func TestConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/linever/config.toml", config.Path())
}
