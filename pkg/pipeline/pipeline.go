// Package pipeline turns a story project into export artifacts.
//
// One [Runner] serves the CLI (`novella export`, `novella map`) and the HTTP
// server (`/export.html`, `/export.json`, `/map.svg`). Rendering is pure, so
// every artifact is cached under a key derived from the hash of the
// serialized project and the options that affect that format.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, project, pipeline.Options{
//	    Formats: []string{pipeline.FormatHTML, pipeline.FormatSVG},
//	    Title:   "The Lighthouse",
//	})
//	if err != nil {
//	    return err
//	}
//	html := result.Artifacts["html"]
//
// Render a single format:
//
//	svg, hit, err := runner.Render(ctx, project, pipeline.FormatSVG, opts)
package pipeline

import (
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/novella/pkg/cache"
	errs "github.com/matzehuels/novella/pkg/errors"
	"github.com/matzehuels/novella/pkg/render/artifact"
)

// =============================================================================
// Default Values
// =============================================================================

// DefaultTTL is how long rendered artifacts stay cached.
const DefaultTTL = 24 * time.Hour

// Format constants for output formats.
const (
	FormatHTML = "html"
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatHTML: true,
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
}

// =============================================================================
// Options
// =============================================================================

// Options configures an export run. It supports JSON for API requests.
type Options struct {
	Formats []string `json:"formats,omitempty"`

	// HTML options
	Title string `json:"title,omitempty"`
	Lang  string `json:"lang,omitempty"`
	Start string `json:"start,omitempty"`

	// Story map options
	Detailed bool `json:"detailed,omitempty"`

	// Refresh skips cache reads; results are still written.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`
}

// Result contains the outputs of a run.
type Result struct {
	// ProjectHash is the content hash of the serialized project.
	ProjectHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats describes the exported project and how long rendering took.
type Stats struct {
	Scenes     int
	Choices    int
	Layers     int
	RenderTime time.Duration
}

// CacheInfo reports which formats were served from the cache.
type CacheInfo struct {
	Hits map[string]bool
}

// AllHit reports whether every artifact came from the cache.
func (c CacheInfo) AllHit() bool {
	if len(c.Hits) == 0 {
		return false
	}
	for _, hit := range c.Hits {
		if !hit {
			return false
		}
	}
	return true
}

// =============================================================================
// Validation
// =============================================================================

// ValidateFormat checks that a format is supported.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errs.New(errs.ErrCodeInvalidFormat, "invalid format: %q (must be one of: html, json, dot, svg)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are supported.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAndSetDefaults checks formats and fills defaults. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatHTML}
	}
	for i, f := range o.Formats {
		o.Formats[i] = strings.ToLower(strings.TrimSpace(f))
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Lang == "" {
		o.Lang = artifact.DefaultLang
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// ArtifactOptions returns the HTML export options.
func (o *Options) ArtifactOptions() []artifact.Option {
	opts := []artifact.Option{artifact.WithLang(o.Lang), artifact.WithStart(o.Start)}
	if o.Title != "" {
		opts = append(opts, artifact.WithTitle(o.Title))
	}
	return opts
}

// cacheKey returns the cache key of one format, or "" for formats that are
// cheaper to produce than to look up.
func (o *Options) cacheKey(k cache.Keyer, projectHash, format string) string {
	switch format {
	case FormatHTML:
		return k.ArtifactKey(projectHash, cache.ArtifactKeyOpts{Title: o.Title, Lang: o.Lang, Start: o.Start})
	case FormatDOT, FormatSVG:
		return k.MapKey(projectHash, cache.MapKeyOpts{Format: format, Detailed: o.Detailed})
	}
	return ""
}
