// Package config loads novella settings.
//
// Settings are layered: built-in defaults, then a TOML file
// ($XDG_CONFIG_HOME/novella/config.toml unless a path is given), then
// NOVELLA_* environment variables. Command-line flags are applied last by
// the CLI.
//
//	project = "lighthouse"
//	store   = "sqlite:///home/me/.local/share/novella/novella.db"
//
//	[canvas]
//	width  = 1600
//	height = 1000
//
//	[server]
//	addr            = ":8080"
//	allowed_origins = ["http://localhost:5173"]
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/novella/pkg/errors"
	"github.com/matzehuels/novella/pkg/render/artifact"
	"github.com/matzehuels/novella/pkg/storage"
	"github.com/matzehuels/novella/pkg/story"
)

const (
	appName   = "novella"
	envPrefix = "NOVELLA_"
	fileName  = "config.toml"
)

// Config is the merged configuration.
type Config struct {
	Project  string `toml:"project" env:"PROJECT"`
	Store    string `toml:"store" env:"STORE"`
	CacheDir string `toml:"cache_dir" env:"CACHE_DIR"`

	Canvas Canvas `toml:"canvas" envPrefix:"CANVAS_"`
	Export Export `toml:"export" envPrefix:"EXPORT_"`
	Server Server `toml:"server" envPrefix:"SERVER_"`
	Log    Log    `toml:"log" envPrefix:"LOG_"`

	// Path is the file the config was read from, if any.
	Path string `toml:"-"`
}

// Canvas is the editor canvas size used to clamp loose layers.
type Canvas struct {
	Width  float64 `toml:"width" env:"WIDTH"`
	Height float64 `toml:"height" env:"HEIGHT"`
}

// Export holds HTML export defaults.
type Export struct {
	Title string `toml:"title" env:"TITLE"`
	Lang  string `toml:"lang" env:"LANG"`
}

// Server configures `novella serve`.
type Server struct {
	Addr           string   `toml:"addr" env:"ADDR"`
	AllowedOrigins []string `toml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	// RedisCache, when set, caches rendered exports in Redis instead of
	// the file cache.
	RedisCache string `toml:"redis_cache" env:"REDIS_CACHE"`
}

// Log configures the logger.
type Log struct {
	Level string `toml:"level" env:"LEVEL"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Project:  storage.DefaultProject,
		Store:    filepath.Join(DataDir(), "projects"),
		CacheDir: CacheDir(),
		Canvas:   Canvas{Width: story.DefaultCanvasWidth, Height: story.DefaultCanvasHeight},
		Export:   Export{Title: artifact.DefaultTitle, Lang: artifact.DefaultLang},
		Server:   Server{Addr: "127.0.0.1:8080"},
		Log:      Log{Level: "info"},
	}
}

// Load reads the config file at path (or the default location when path
// is empty) and applies environment overrides. A missing default file is
// not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := cfg.decodeFile(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			path = ""
		} else {
			return nil, err
		}
	}
	cfg.Path = path

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "parse environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	meta, err := toml.DecodeFile(path, c)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return errs.Wrap(errs.ErrCodeParse, err, "read config %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return errs.New(errs.ErrCodeInvalidInput, "unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// Validate checks the merged values.
func (c *Config) Validate() error {
	if err := errs.ValidateProjectName(c.Project); err != nil {
		return err
	}
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return errs.New(errs.ErrCodeInvalidInput, "canvas size must be positive, got %vx%v", c.Canvas.Width, c.Canvas.Height)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errs.New(errs.ErrCodeInvalidInput, "invalid log level %q", c.Log.Level)
	}
	return nil
}

// LogLevel returns the configured level, defaulting to info.
func (c *Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// StoreOptions returns the story store options implied by the config.
func (c *Config) StoreOptions() []story.Option {
	return []story.Option{story.WithCanvas(c.Canvas.Width, c.Canvas.Height)}
}

// =============================================================================
// Paths
// =============================================================================

// DefaultPath returns $XDG_CONFIG_HOME/novella/config.toml.
func DefaultPath() string {
	return filepath.Join(xdg("XDG_CONFIG_HOME", ".config"), appName, fileName)
}

// DataDir returns $XDG_DATA_HOME/novella.
func DataDir() string {
	return filepath.Join(xdg("XDG_DATA_HOME", filepath.Join(".local", "share")), appName)
}

// CacheDir returns $XDG_CACHE_HOME/novella.
func CacheDir() string {
	return filepath.Join(xdg("XDG_CACHE_HOME", ".cache"), appName)
}

func xdg(envVar, fallback string) string {
	if dir := os.Getenv(envVar); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), fallback)
	}
	return filepath.Join(home, fallback)
}

// String renders the config as TOML.
func (c *Config) String() string {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return b.String()
}
