// Package config loads the hatch CLI configuration: hatch.yaml, an optional
// .env file and HATCH_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/abigegg/go-hatch/pkg/session"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "hatch.yaml"

// Config is the CLI configuration.
type Config struct {
	Database   string         `yaml:"database"`
	Seed       string         `yaml:"seed,omitempty"`
	Templates  string         `yaml:"templates"`
	Extension  string         `yaml:"extension,omitempty"`
	Forms      string         `yaml:"forms,omitempty"`
	UploadsURL string         `yaml:"uploads_url"`
	UploadsDir string         `yaml:"uploads_dir"`
	SiteURL    string         `yaml:"site_url"`
	Addr       string         `yaml:"addr"`
	Globals    map[string]any `yaml:"globals,omitempty"`
	Log        LogConfig      `yaml:"log"`

	// dir is the directory relative paths are resolved against.
	dir string
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Database:   "hatch.db",
		Templates:  "templates",
		Extension:  ".html",
		UploadsURL: "/uploads",
		UploadsDir: "uploads",
		SiteURL:    "http://localhost:8080",
		Addr:       ":8080",
		Log:        LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path (DefaultFile when empty), loads .env files next to it and
// applies environment overrides. A missing default file is not an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	dir := filepath.Dir(path)
	if err := loadEnvFiles(dir); err != nil {
		return nil, err
	}

	cfg := Default()
	cfg.dir = dir

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a configuration document without touching the environment.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	cfg.dir = "."
	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode: %w: %w", err, session.ErrConfig)
	}
	return nil
}

// Validate reports configuration values the CLI cannot work with.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Database) == "" {
		problems = append(problems, "database must not be empty")
	}
	if strings.TrimSpace(c.Templates) == "" {
		problems = append(problems, "templates must not be empty")
	}
	if c.Extension != "" && !strings.HasPrefix(c.Extension, ".") {
		problems = append(problems, fmt.Sprintf("extension %q must start with a dot", c.Extension))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, err.Error())
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %s: %w", strings.Join(problems, "; "), session.ErrConfig)
	}
	return nil
}

// Resolve turns a configured path into one relative to the working directory.
func (c *Config) Resolve(path string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) || c.dir == "" {
		return path
	}
	return filepath.Join(c.dir, path)
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	overrides := []struct {
		key    string
		target *string
	}{
		{"HATCH_DATABASE", &c.Database},
		{"HATCH_SEED", &c.Seed},
		{"HATCH_TEMPLATES", &c.Templates},
		{"HATCH_EXTENSION", &c.Extension},
		{"HATCH_FORMS", &c.Forms},
		{"HATCH_UPLOADS_URL", &c.UploadsURL},
		{"HATCH_UPLOADS_DIR", &c.UploadsDir},
		{"HATCH_SITE_URL", &c.SiteURL},
		{"HATCH_ADDR", &c.Addr},
		{"HATCH_LOG_LEVEL", &c.Log.Level},
		{"HATCH_LOG_FORMAT", &c.Log.Format},
	}
	for _, o := range overrides {
		if v, ok := lookup(o.key); ok && strings.TrimSpace(v) != "" {
			*o.target = strings.TrimSpace(v)
		}
	}
}

// loadEnvFiles loads .env then .env.local from dir. Existing process
// variables win.
func loadEnvFiles(dir string) error {
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	return nil
}
