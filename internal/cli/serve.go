package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/novella/internal/mcp"
	"github.com/matzehuels/novella/internal/server"
	"github.com/matzehuels/novella/pkg/cache"
	"github.com/matzehuels/novella/pkg/pipeline"
)

// serveCommand creates the "serve" command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		origins []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the editing API, live exports and metrics over HTTP",
		Long: `Run an HTTP server over the configured project. Every change made through
the API is saved to the store right away. Exports are cached in Redis when
server.redis_cache is configured, otherwise in the file cache.`,
		Example: `  novella serve
  novella serve --addr :9000 --origin http://localhost:5173`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if cmd.Flags().Changed("addr") {
				c.Config.Server.Addr = addr
			}
			if cmd.Flags().Changed("origin") {
				c.Config.Server.AllowedOrigins = origins
			}

			metrics := server.NewMetrics()
			metrics.Install()

			sess, closeFn, err := c.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			exportCache, closeCache, err := c.serverCache(ctx)
			if err != nil {
				return err
			}
			defer closeCache()

			srv := server.New(sess, pipeline.NewRunner(exportCache, cache.NewProjectKeyer(sess.Name()), c.Logger), c.Logger, server.Options{
				AllowedOrigins: c.Config.Server.AllowedOrigins,
				Export:         c.exportOptions(),
				Metrics:        metrics,
			})

			printSuccess("Serving %s on %s", StyleHighlight.Render(sess.Name()), StyleValue.Render("http://"+c.Config.Server.Addr))
			printDetail("Storage: %s", sess.Backend().Backend())
			return srv.ListenAndServe(ctx, c.Config.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringSliceVar(&origins, "origin", nil, "allowed CORS origin (repeatable)")
	return cmd
}

// serverCache returns the export cache for long-running servers.
func (c *CLI) serverCache(ctx context.Context) (cache.Cache, func(), error) {
	url := c.Config.Server.RedisCache
	if url == "" {
		fc, err := c.newCache(false)
		return fc, func() {}, err
	}
	rc, err := cache.NewRedisCache(ctx, url, "")
	if err != nil {
		return nil, nil, err
	}
	c.Logger.Info("export cache", "backend", "redis")
	return rc, func() {
		if err := rc.Close(); err != nil {
			c.Logger.Warn("close redis cache", "err", err)
		}
	}, nil
}

// mcpCommand creates the "mcp" command.
func (c *CLI) mcpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Expose the project to an assistant as MCP tools over stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout. Assistants can read
the project, edit scenes, choices and layers, play through the story and
export it. Logs go to stderr; stdout carries only protocol messages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, closeFn, err := c.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			runner, err := c.newRunner(false)
			if err != nil {
				return err
			}
			c.Logger.Info("mcp server ready", "project", sess.Name(), "storage", sess.Backend().Backend())
			return mcp.Serve(ctx, mcp.New(sess, runner, c.Logger))
		},
	}
}
