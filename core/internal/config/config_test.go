package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v, err := New("")
	require.NoError(t, err)
	c, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "console", c.Log.Format)
	assert.Equal(t, "html", c.Report.Format)
	assert.Equal(t, "Doctor Feedback report", c.Report.Title)
	assert.True(t, c.Report.IncludeArtifacts)
	assert.Equal(t, 4, c.Workers)
	assert.Equal(t, `(\d+)x\d+ @`, c.Display.Pattern)
	assert.Equal(t, float64(1024), c.Display.MinWidth)
	assert.Equal(t, "app", c.StructLog.ComponentKey)
	assert.Equal(t, 20*time.Second, c.Manifest.Timeout)
	assert.Equal(t, 2, c.Manifest.Retries)
	assert.Empty(t, c.Manifest.URL)
	assert.Empty(t, c.Manifest.Exclude)
	assert.Equal(t, ":9000", c.Server.Addr)

	n, err := c.Server.MaxBundleBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(64<<20), n)
}

func TestConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drfeedback.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
report:
  format: markdown
  include_artifacts: false
manifest:
  url: https://updates.example.com/packages.gz
  timeout: 5s
  exclude:
    - kano-internal-*
    - debug-tools
server:
  max_bundle_size: 2MB
`), 0o600))

	t.Setenv("DRFEEDBACK_WORKERS", "9")
	t.Setenv("DRFEEDBACK_LOG_LEVEL", "debug")

	v, err := New(path)
	require.NoError(t, err)
	c, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "markdown", c.Report.Format)
	assert.False(t, c.Report.IncludeArtifacts)
	assert.Equal(t, "https://updates.example.com/packages.gz", c.Manifest.URL)
	assert.Equal(t, 5*time.Second, c.Manifest.Timeout)
	assert.Equal(t, []string{"kano-internal-*", "debug-tools"}, c.Manifest.Exclude)
	assert.Equal(t, 9, c.Workers)
	assert.Equal(t, "debug", c.Log.Level)

	n, err := c.Server.MaxBundleBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(2<<20), n)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func(t *testing.T) Config {
		v, err := New("")
		require.NoError(t, err)
		c, err := Load(v)
		require.NoError(t, err)
		return c
	}

	tests := map[string]func(*Config){
		"format":   func(c *Config) { c.Report.Format = "pdf" },
		"workers":  func(c *Config) { c.Workers = 0 },
		"timeout":  func(c *Config) { c.Manifest.Timeout = 0 },
		"retries":  func(c *Config) { c.Manifest.Retries = -1 },
		"size":     func(c *Config) { c.Server.MaxBundleSize = "lots" },
		"zerosize": func(c *Config) { c.Server.MaxBundleSize = "0MB" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := base(t)
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
