package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/novella/pkg/cache"
	novellaio "github.com/matzehuels/novella/pkg/io"
	"github.com/matzehuels/novella/pkg/observability"
	"github.com/matzehuels/novella/pkg/render/artifact"
	"github.com/matzehuels/novella/pkg/render/storymap"
	"github.com/matzehuels/novella/pkg/story"
)

// Runner renders export artifacts with caching.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options, as long
// as each passes a project nobody mutates during the call (a snapshot).
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	TTL    time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		TTL:    DefaultTTL,
	}
}

// Execute renders every requested format.
func (r *Runner) Execute(ctx context.Context, p *story.Project, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if p == nil {
		p = story.NewProject()
	}
	doc, err := novellaio.Marshal(p)
	if err != nil {
		return nil, err
	}

	result := &Result{
		ProjectHash: cache.Hash(doc),
		Artifacts:   make(map[string][]byte, len(opts.Formats)),
		CacheInfo:   CacheInfo{Hits: make(map[string]bool, len(opts.Formats))},
	}
	result.Stats.Scenes = len(p.Scenes)
	for _, sc := range p.Scenes {
		result.Stats.Choices += len(sc.Choices)
		result.Stats.Layers += len(sc.Layers)
	}
	result.Stats.Layers += len(p.LooseLayers)

	start := time.Now()
	for _, format := range opts.Formats {
		if _, done := result.Artifacts[format]; done {
			continue
		}
		data, hit, err := r.render(ctx, p, doc, result.ProjectHash, format, &opts)
		if err != nil {
			return nil, err
		}
		result.Artifacts[format] = data
		result.CacheInfo.Hits[format] = hit
	}
	result.Stats.RenderTime = time.Since(start)

	r.Logger.Info("rendered exports",
		"formats", opts.Formats,
		"scenes", result.Stats.Scenes,
		"cached", result.CacheInfo.AllHit(),
		"duration", result.Stats.RenderTime)
	return result, nil
}

// Render produces one format and reports whether it came from the cache.
func (r *Runner) Render(ctx context.Context, p *story.Project, format string, opts Options) ([]byte, bool, error) {
	opts.Formats = []string{format}
	res, err := r.Execute(ctx, p, opts)
	if err != nil {
		return nil, false, err
	}
	return res.Artifacts[opts.Formats[0]], res.CacheInfo.Hits[opts.Formats[0]], nil
}

func (r *Runner) render(ctx context.Context, p *story.Project, doc []byte, hash, format string, opts *Options) ([]byte, bool, error) {
	observability.Export().OnExportStart(ctx, format)
	start := time.Now()

	compute := func() ([]byte, error) { return r.produce(ctx, p, doc, format, opts) }

	var (
		data []byte
		hit  bool
		err  error
	)
	key := opts.cacheKey(r.Keyer, hash, format)
	switch {
	case key == "":
		data, err = compute()
	case opts.Refresh:
		data, err = compute()
		if err == nil {
			_ = r.Cache.Set(ctx, key, data, r.TTL)
		}
	default:
		data, hit, err = cache.Fetch(ctx, r.Cache, key, r.TTL, compute)
	}

	observability.Export().OnExportComplete(ctx, format, len(data), time.Since(start), err)
	if err != nil {
		return nil, false, err
	}
	opts.Logger.Debug("rendered", "format", format, "bytes", len(data), "cached", hit)
	return data, hit, nil
}

func (r *Runner) produce(ctx context.Context, p *story.Project, doc []byte, format string, opts *Options) ([]byte, error) {
	switch format {
	case FormatJSON:
		return doc, nil
	case FormatHTML:
		return artifact.RenderHTML(p, opts.ArtifactOptions()...)
	case FormatDOT:
		return []byte(storymap.ToDOT(p, opts.mapOptions())), nil
	case FormatSVG:
		return storymap.RenderSVG(ctx, storymap.ToDOT(p, opts.mapOptions()))
	}
	return nil, ValidateFormat(format)
}

func (o *Options) mapOptions() storymap.Options {
	return storymap.Options{Detailed: o.Detailed}
}
