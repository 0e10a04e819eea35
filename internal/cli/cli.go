// Package cli implements the novella command-line interface.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/novella/internal/config"
	"github.com/matzehuels/novella/pkg/cache"
	"github.com/matzehuels/novella/pkg/editor"
	"github.com/matzehuels/novella/pkg/pipeline"
	"github.com/matzehuels/novella/pkg/storage"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "novella"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is loaded before any subcommand runs.
	Config *config.Config

	// Global flags. Empty values leave the config untouched.
	configPath string
	project    string
	store      string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// loadConfig merges defaults, file, environment and flags, in that order.
func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.project != "" {
		cfg.Project = c.project
	}
	if c.store != "" {
		cfg.Store = c.store
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.Config = cfg

	level := cfg.LogLevel()
	if c.verbose {
		level = LogDebug
	}
	c.SetLogLevel(level)
	if cfg.Path != "" {
		c.Logger.Debug("loaded config", "path", cfg.Path)
	}
	return nil
}

// =============================================================================
// Session and Runner Factories
// =============================================================================

// openSession opens the configured project. The returned close function
// releases the storage backend.
func (c *CLI) openSession(ctx context.Context) (*editor.Session, func(), error) {
	backend, err := storage.Open(ctx, c.Config.Store)
	if err != nil {
		return nil, nil, err
	}
	sess, err := editor.Open(ctx, backend, c.Config.Project,
		editor.WithLogger(c.Logger),
		editor.WithStoreOptions(c.Config.StoreOptions()...))
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}
	closeFn := func() {
		if err := backend.Close(); err != nil {
			c.Logger.Warn("close storage", "err", err)
		}
	}
	return sess, closeFn, nil
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	ec, err := c.newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(ec, cache.NewProjectKeyer(c.Config.Project), c.Logger), nil
}

func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache || c.Config.CacheDir == "" {
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(c.Config.CacheDir)
	if err != nil {
		c.Logger.Warn("export cache disabled", "dir", c.Config.CacheDir, "err", err)
		return cache.NewNullCache(), nil
	}
	return fc, nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// exportOptions returns pipeline options seeded from the config.
func (c *CLI) exportOptions() pipeline.Options {
	return pipeline.Options{
		Title:  c.Config.Export.Title,
		Lang:   c.Config.Export.Lang,
		Logger: c.Logger,
	}
}
