package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/razvandimescu/peekwiki/internal/tree"
	"github.com/razvandimescu/peekwiki/internal/viewstate"
)

// Config is the on-disk configuration. Flags override file values.
type Config struct {
	Listen         string           `yaml:"listen"`
	ContentDir     string           `yaml:"content_dir"`
	AttachmentsDir string           `yaml:"attachments_dir"`
	HomePage       string           `yaml:"home_page"`
	Log            LogConfig        `yaml:"log"`
	Navigation     NavigationConfig `yaml:"navigation"`
	State          StateConfig      `yaml:"state"`
}

// LogConfig selects the zap level and encoder.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NavigationConfig controls the sidebar widget.
type NavigationConfig struct {
	GroupBy string `yaml:"group_by"` // directory | category
	Layout  string `yaml:"layout"`   // nested | flat
}

// StateConfig selects the view-state backend.
type StateConfig struct {
	Backend    string        `yaml:"backend"`
	TTL        time.Duration `yaml:"ttl"`
	RedisURL   string        `yaml:"redis_url"`
	SQLitePath string        `yaml:"sqlite_path"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Listen:         "localhost:6420",
		ContentDir:     "./pages",
		AttachmentsDir: "./attachments",
		HomePage:       "index",
		Log:            LogConfig{Level: "info", Format: "console"},
		Navigation:     NavigationConfig{GroupBy: "directory", Layout: "nested"},
		State: StateConfig{
			Backend:    "memory",
			TTL:        viewstate.DefaultTTL,
			RedisURL:   "redis://localhost:6379/0",
			SQLitePath: "./peekwiki-state.db",
		},
	}
}

// LoadConfig overlays the YAML file at path on the defaults. An empty path
// returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	if c.ContentDir == "" {
		return errors.New("content_dir is required")
	}
	if c.AttachmentsDir == "" {
		return errors.New("attachments_dir is required")
	}
	if c.HomePage == "" {
		return errors.New("home_page is required")
	}

	switch c.Navigation.GroupBy {
	case "directory", "category":
	default:
		return fmt.Errorf("navigation.group_by: unknown grouping %q", c.Navigation.GroupBy)
	}
	if _, err := c.navigationMode(); err != nil {
		return fmt.Errorf("navigation.layout: %w", err)
	}

	if c.State.TTL < 0 {
		return errors.New("state.ttl must not be negative")
	}
	switch c.State.Backend {
	case "memory":
	case "redis":
		if c.State.RedisURL == "" {
			return errors.New("state.redis_url is required for the redis backend")
		}
	case "sqlite":
		if c.State.SQLitePath == "" {
			return errors.New("state.sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("state.backend: %w: %q", viewstate.ErrUnknownBackend, c.State.Backend)
	}
	return nil
}

func (c Config) navigationMode() (tree.Mode, error) {
	var m tree.Mode
	err := m.UnmarshalText([]byte(c.Navigation.Layout))
	return m, err
}

func (c Config) stateOptions() viewstate.Options {
	return viewstate.Options{
		Backend:    c.State.Backend,
		TTL:        c.State.TTL,
		RedisURL:   c.State.RedisURL,
		SQLitePath: c.State.SQLitePath,
	}
}
