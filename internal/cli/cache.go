package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/novella/pkg/cache"
	errs "github.com/matzehuels/novella/pkg/errors"
)

// cacheCommand creates the export cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the export cache",
		Long: `Rendered exports (HTML players, story maps) are cached by project content
and options, so repeated exports of an unchanged project are instant.`,
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var projectOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached exports",
		Long: `Remove cached exports from the file cache. With --project-only, only the
current project's entries are removed, and the Redis cache configured in
server.redis_cache is cleared for that project as well.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := c.Config.CacheDir
			if projectOnly {
				return c.clearProjectCache(cmd.Context())
			}
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				printInfo("Cache is empty")
				return nil
			}

			fc, err := cache.NewFileCache(dir)
			if err != nil {
				return err
			}
			count, err := fc.Clear()
			if err != nil {
				return err
			}

			printSuccess("Cleared %d cached entries", count)
			printDetail("Directory: %s", dir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&projectOnly, "project-only", false, "only clear entries of the current project")
	return cmd
}

// clearProjectCache drops the current project's scope from every cache it
// may live in.
func (c *CLI) clearProjectCache(ctx context.Context) error {
	scope := cache.ProjectScope(c.Config.Project)
	total := 0

	if _, err := os.Stat(c.Config.CacheDir); err == nil {
		fc, err := cache.NewFileCache(c.Config.CacheDir)
		if err != nil {
			return err
		}
		n, err := fc.ClearPrefix(ctx, scope)
		if err != nil {
			return errs.Wrap(errs.ErrCodeStorage, err, "clear file cache")
		}
		total += n
	}
	if url := c.Config.Server.RedisCache; url != "" {
		rc, err := cache.NewRedisCache(ctx, url, "")
		if err != nil {
			return errs.Wrap(errs.ErrCodeStorage, err, "connect redis cache")
		}
		defer rc.Close()
		n, err := rc.ClearPrefix(ctx, scope)
		if err != nil {
			return errs.Wrap(errs.ErrCodeStorage, err, "clear redis cache")
		}
		total += n
	}

	printSuccess("Cleared %d cached entries for %s", total, StyleHighlight.Render(c.Config.Project))
	return nil
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), c.Config.CacheDir)
			return nil
		},
	}
}
