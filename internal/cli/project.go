package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/novella/pkg/errors"
	novellaio "github.com/matzehuels/novella/pkg/io"
	"github.com/matzehuels/novella/pkg/storage"
	"github.com/matzehuels/novella/pkg/story"
)

// initCommand creates the "init" command.
func (c *CLI) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the project with a first scene",
		Long: `Open the configured project and, when it has no scenes yet, create one so
there is something to edit and play. An existing project is left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, closeFn, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			created, err := sess.Bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			if !created {
				var n int
				sess.Read(func(st *story.Store) { n = len(st.Scenes()) })
				printInfo("Project %s already has %d scenes", StyleHighlight.Render(sess.Name()), n)
				return nil
			}
			printSuccess("Created project %s", StyleHighlight.Render(sess.Name()))
			printDetail("Storage: %s", sess.Backend().Backend())
			printNextStep("Play it", appName+" play")
			return nil
		},
	}
}

// projectsCommand creates the "projects" command.
func (c *CLI) projectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "projects",
		Aliases: []string{"ls"},
		Short:   "List the projects in the configured store",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := storage.Open(cmd.Context(), c.Config.Store)
			if err != nil {
				return err
			}
			defer backend.Close()

			entries, err := backend.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				printInfo("No projects in %s storage", backend.Backend())
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				name := e.Name
				if name == c.Config.Project {
					name += " *"
				}
				rows = append(rows, []string{name, formatSize(e.Size), formatRelativeTime(e.UpdatedAt)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Project", "Size", "Updated"}, rows))
			return nil
		},
	}
}

// importCommand creates the "import" command.
func (c *CLI) importCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the project with a JSON document",
		Long: `Read a project document (current or legacy shape) and make it the content
of the configured project. Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			p, err := novellaio.Unmarshal(data)
			if err != nil {
				return err
			}

			sess, closeFn, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if !force && !sess.Snapshot().Empty() {
				return errs.New(errs.ErrCodeInvalidInput,
					"project %q is not empty; use --force to replace it", sess.Name())
			}
			if err := sess.Replace(cmd.Context(), p); err != nil {
				return err
			}

			version := novellaio.DetectVersion(data)
			if version != novellaio.VersionCurrent {
				printWarning("Converted from the %s layout", version)
			}
			printSuccess("Imported %s into %s", args[0], StyleHighlight.Render(sess.Name()))
			printStats(counts(p))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace a project that already has scenes")
	return cmd
}

// inspectCommand creates the "inspect" command.
func (c *CLI) inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [FILE]",
		Short: "Describe a project document without changing anything",
		Long: `Report the document layout and counts of a project file, or of the
configured project when no file is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data   []byte
				source string
				err    error
			)
			if len(args) == 1 {
				source = args[0]
				data, err = readInput(cmd, source)
			} else {
				source = c.Config.Project
				data, err = c.loadStored(cmd)
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			version := novellaio.DetectVersion(data)
			printKeyValue(w, "Source", source)
			printKeyValue(w, "Layout", version.String())
			printKeyValue(w, "Size", formatSize(len(data)))
			if version == novellaio.VersionInvalid {
				_, err := novellaio.Unmarshal(data)
				return err
			}

			p, err := novellaio.Unmarshal(data)
			if err != nil {
				return err
			}
			scenes, choices, layers, _ := counts(p)
			printKeyValue(w, "Scenes", strconv.Itoa(scenes))
			printKeyValue(w, "Choices", strconv.Itoa(choices))
			printKeyValue(w, "Layers", strconv.Itoa(layers))
			printKeyValue(w, "Loose layers", strconv.Itoa(len(p.LooseLayers)))
			printKeyValue(w, "Dead choices", strconv.Itoa(deadChoices(p)))
			return nil
		},
	}
}

// configCommand creates the "config" command.
func (c *CLI) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.Config.Path != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", c.Config.Path)
			}
			fmt.Fprint(cmd.OutOrStdout(), c.Config.String())
			return nil
		},
	}
}

// =============================================================================
// Helpers
// =============================================================================

// readInput reads a file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.New(errs.ErrCodeFileNotFound, "file not found: %s", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// loadStored returns the raw stored document of the configured project.
func (c *CLI) loadStored(cmd *cobra.Command) ([]byte, error) {
	backend, err := storage.Open(cmd.Context(), c.Config.Store)
	if err != nil {
		return nil, err
	}
	defer backend.Close()
	return backend.Load(cmd.Context(), c.Config.Project)
}

// counts returns scene, choice and layer totals in the shape printStats takes.
func counts(p *story.Project) (scenes, choices, layers int, cached *bool) {
	scenes = len(p.Scenes)
	for _, sc := range p.Scenes {
		choices += len(sc.Choices)
		layers += len(sc.Layers)
	}
	layers += len(p.LooseLayers)
	return scenes, choices, layers, nil
}

func deadChoices(p *story.Project) int {
	n := 0
	for _, sc := range p.Scenes {
		for _, ch := range sc.Choices {
			if !ch.HasTarget() || p.Scene(ch.Target) == nil {
				n++
			}
		}
	}
	return n
}

func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
