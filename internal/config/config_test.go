package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abigegg/go-hatch/pkg/session"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hatch.yaml", `
database: content.db
templates: theme
globals:
  site_name: Example
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "content.db", cfg.Database)
	assert.Equal(t, filepath.Join(dir, "content.db"), cfg.Resolve(cfg.Database))
	assert.Equal(t, filepath.Join(dir, "theme"), cfg.Resolve(cfg.Templates))
	assert.Equal(t, ".html", cfg.Extension)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "Example", cfg.Globals["site_name"])
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":memory:", cfg.Resolve(":memory:"))
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hatch.yaml", "database: content.db\naddr: \":8080\"\n")
	t.Setenv("HATCH_DATABASE", "/var/lib/hatch.db")
	t.Setenv("HATCH_ADDR", ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/hatch.db", cfg.Resolve(cfg.Database))
	assert.Equal(t, ":9090", cfg.Addr)
}

func TestLoad_DotEnvDoesNotOverrideProcessEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hatch.yaml", "templates: theme\n")
	writeFile(t, dir, ".env", "HATCH_UPLOADS_URL=https://cdn.test/u\nHATCH_SITE_URL=https://from-dotenv.test\n")
	t.Setenv("HATCH_SITE_URL", "https://from-process.test")
	t.Cleanup(func() { _ = os.Unsetenv("HATCH_UPLOADS_URL") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/u", cfg.UploadsURL)
	assert.Equal(t, "https://from-process.test", cfg.SiteURL)
}

func TestLoad_MissingFiles(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err, "an explicit path must exist")
}

func TestParse_RejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"unknown key": "theme: dark\n",
		"bad level":   "log:\n  level: loud\n",
		"bad format":  "log:\n  format: xml\n",
		"bad ext":     "extension: html\n",
		"empty db":    "database: \"\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, session.ErrConfig), "got %v", err)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Forms = "forms.yaml"
	path := filepath.Join(t.TempDir(), "hatch.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "forms.yaml", loaded.Forms)
	assert.Equal(t, cfg.Database, loaded.Database)
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.Log = LogConfig{Level: "warn", Format: "json"}

	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"), "json handler expected, got %q", out)
	assert.Contains(t, out, `"k":"v"`)
}
