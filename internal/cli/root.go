package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/novella/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
//
// Configuration is loaded in PersistentPreRunE, so every subcommand sees the
// merged result of defaults, config file, NOVELLA_* variables and the global
// flags below.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Novella edits and plays branching visual stories",
		Long: `Novella is a workbench for branching visual stories: scenes connected by
choices, decorated with text and image layers. Projects are stored as JSON
documents and can be played in the terminal, served to a browser editor,
edited by an assistant over MCP, or exported as a standalone HTML player.`,
		Version:      buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/novella/config.toml)")
	flags.StringVarP(&c.project, "project", "p", "", "project name")
	flags.StringVar(&c.store, "store", "", "storage location: a directory, file://, sqlite://, redis:// or mongodb:// URL")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddGroup(
		&cobra.Group{ID: "project", Title: "Projects:"},
		&cobra.Group{ID: "edit", Title: "Editing:"},
		&cobra.Group{ID: "output", Title: "Playback and output:"},
	)

	for _, cmd := range []*cobra.Command{
		c.initCommand(), c.projectsCommand(), c.importCommand(), c.inspectCommand(), c.configCommand(),
	} {
		cmd.GroupID = "project"
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{
		c.sceneCommand(), c.choiceCommand(), c.layerCommand(), c.imageCommand(), c.geometryCommand(),
	} {
		cmd.GroupID = "edit"
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{
		c.playCommand(), c.exportCommand(), c.mapCommand(), c.serveCommand(), c.mcpCommand(),
	} {
		cmd.GroupID = "output"
		root.AddCommand(cmd)
	}
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
