package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	errs "github.com/matzehuels/novella/pkg/errors"
	"github.com/matzehuels/novella/pkg/pipeline"
	"github.com/matzehuels/novella/pkg/storage"
	"github.com/matzehuels/novella/pkg/story"
)

// watchDebounce coalesces the burst of events a single save produces.
const watchDebounce = 200 * time.Millisecond

type exportOpts struct {
	formats []string
	output  string
	title   string
	lang    string
	start   string
	noCache bool
	refresh bool
	watch   bool
}

// exportCommand creates the "export" command.
func (c *CLI) exportCommand() *cobra.Command {
	opts := exportOpts{formats: []string{pipeline.FormatHTML}}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the project as a standalone HTML player or other formats",
		Long: `Export the project. "html" is a single self-contained page that plays the
story in any browser, "json" is the project document, "svg" and "dot" are the
story map.

Files are named after the project and written to --output (default: the
current directory). With --watch the export is repeated whenever the stored
project changes; this needs the file store.`,
		Example: `  novella export
  novella export -f html,svg -o dist --title "The Lighthouse"
  novella export --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			if opts.watch {
				return c.watchExport(cmd.Context(), &opts)
			}
			p, err := c.loadProject(cmd.Context())
			if err != nil {
				return err
			}
			return c.runExport(cmd.Context(), p, &opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.formats, "format", "f", opts.formats, "output formats: html, json, svg, dot (comma-separated)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", ".", "output directory")
	cmd.Flags().StringVar(&opts.title, "title", "", "page title (default from config)")
	cmd.Flags().StringVar(&opts.lang, "lang", "", "page language (default from config)")
	cmd.Flags().StringVar(&opts.start, "start", "", "scene to start the exported player at")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the export cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-render even when cached")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "re-export when the project changes")
	return cmd
}

// loadProject opens the configured project and returns a snapshot of it.
func (c *CLI) loadProject(ctx context.Context) (*story.Project, error) {
	sess, closeFn, err := c.openSession(ctx)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return sess.Snapshot(), nil
}

func (c *CLI) runExport(ctx context.Context, p *story.Project, opts *exportOpts) error {
	if p.Empty() {
		printWarning("Project %s has no scenes; the export will be empty", c.Config.Project)
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	popts := c.exportOptions()
	popts.Formats = opts.formats
	popts.Start = opts.start
	popts.Refresh = opts.refresh
	if opts.title != "" {
		popts.Title = opts.title
	}
	if opts.lang != "" {
		popts.Lang = opts.lang
	}

	prog := newProgress(c.Logger)
	result, err := runner.Execute(ctx, p, popts)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(opts.output, 0o755); err != nil {
		return errs.Wrap(errs.ErrCodeStorage, err, "create output directory")
	}
	paths := make([]string, 0, len(result.Artifacts))
	for format, data := range result.Artifacts {
		path := filepath.Join(opts.output, c.Config.Project+"."+format)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return errs.Wrap(errs.ErrCodeStorage, err, "write %s", path)
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	prog.done(fmt.Sprintf("Exported %d files", len(paths)))

	printSuccess("Exported %s", StyleHighlight.Render(c.Config.Project))
	for _, path := range paths {
		printFile(path)
	}
	cached := result.CacheInfo.AllHit()
	printStats(result.Stats.Scenes, result.Stats.Choices, result.Stats.Layers, &cached)
	return nil
}

// watchExport exports once, then again after every change to the stored
// project file, until ctx is cancelled.
func (c *CLI) watchExport(ctx context.Context, opts *exportOpts) error {
	backend, err := storage.Open(ctx, c.Config.Store)
	if err != nil {
		return err
	}
	defer backend.Close()

	fs, ok := backend.(*storage.FileStore)
	if !ok {
		return errs.New(errs.ErrCodeUnsupported, "--watch needs the file store, not %s", backend.Backend())
	}
	target, err := fs.ProjectPath(c.Config.Project)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "start file watcher")
	}
	defer watcher.Close()
	// The store replaces files by rename, so the directory is watched.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return errs.Wrap(errs.ErrCodeStorage, err, "watch %s", filepath.Dir(target))
	}

	export := func() {
		p, err := c.loadProject(ctx)
		if err == nil {
			err = c.runExport(ctx, p, opts)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			printError("%s", userError(err))
		}
	}

	export()
	printInfo("Watching %s (Ctrl+C to stop)", target)

	var (
		timer   *time.Timer
		trigger <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			c.Logger.Debug("project changed", "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			trigger = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.Logger.Warn("watch error", "err", err)
		case <-trigger:
			trigger = nil
			export()
		}
	}
}

// mapCommand creates the "map" command.
func (c *CLI) mapCommand() *cobra.Command {
	var (
		format   string
		output   string
		detailed bool
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Draw the story map: scenes as nodes, choices as edges",
		Long: `Render the scene graph with Graphviz. Choices that lead nowhere are not
drawn as edges; --detailed lists them under their scene.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != pipeline.FormatSVG && format != pipeline.FormatDOT {
				return errs.New(errs.ErrCodeInvalidFormat, "invalid format: %q (must be svg or dot)", format)
			}
			p, err := c.loadProject(cmd.Context())
			if err != nil {
				return err
			}
			runner, err := c.newRunner(noCache)
			if err != nil {
				return err
			}
			opts := c.exportOptions()
			opts.Detailed = detailed

			spinner := newSpinnerWithContext(cmd.Context(), "Drawing story map...")
			spinner.Start()
			data, hit, err := runner.Render(cmd.Context(), p, format, opts)
			spinner.Stop()
			if spinner.Cancelled() {
				return context.Canceled
			}
			if err != nil {
				return err
			}

			if output == "" {
				output = c.Config.Project + "-map." + format
			}
			if output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return errs.Wrap(errs.ErrCodeStorage, err, "write %s", output)
			}
			printSuccess("Story map written")
			printFile(output)
			printStats(counts(p))
			c.Logger.Debug("map rendered", "format", format, "cached", hit, "bytes", len(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", pipeline.FormatSVG, "svg or dot")
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file ("-" for stdout)`)
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include scene summaries")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the export cache")
	return cmd
}
