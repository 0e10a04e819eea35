package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/novella/pkg/editor"
	errs "github.com/matzehuels/novella/pkg/errors"
	"github.com/matzehuels/novella/pkg/render/storymap"
	"github.com/matzehuels/novella/pkg/richtext"
	"github.com/matzehuels/novella/pkg/story"
)

// summaryWidth bounds the body preview in scene listings.
const summaryWidth = 48

// changed returns &v when the flag was set on the command line.
func changed[T any](cmd *cobra.Command, name string, v T) *T {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

// edit opens the session, runs fn and closes the session again.
func (c *CLI) edit(cmd *cobra.Command, fn func(sess *editor.Session) error) error {
	sess, closeFn, err := c.openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(sess)
}

// printID writes a new entity id to stdout so scripts can capture it.
func printID(cmd *cobra.Command, id string) {
	fmt.Fprintln(cmd.OutOrStdout(), id)
}

// =============================================================================
// Scenes
// =============================================================================

func (c *CLI) sceneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scene",
		Short: "List, create, change and delete scenes",
	}
	cmd.AddCommand(c.sceneListCommand())
	cmd.AddCommand(c.sceneAddCommand())
	cmd.AddCommand(c.sceneSetCommand())
	cmd.AddCommand(c.sceneRemoveCommand())
	return cmd
}

func (c *CLI) sceneListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List scenes with their choices",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.edit(cmd, func(sess *editor.Session) error {
				p := sess.Snapshot()
				if p.Empty() {
					printInfo("No scenes yet")
					printNextStep("Create one", appName+" init")
					return nil
				}
				rows := make([][]string, 0, len(p.Scenes))
				for _, sc := range p.Scenes {
					rows = append(rows, []string{
						sc.ID,
						storymap.SceneTitle(sc),
						richtext.Summary(sc.Body, summaryWidth),
						choiceTargets(p, sc),
						strconv.Itoa(len(sc.Layers)),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Body", "Choices", "Layers"}, rows))
				return nil
			})
		},
	}
}

// choiceTargets summarizes where a scene's choices lead.
func choiceTargets(p *story.Project, sc *story.Scene) string {
	if len(sc.Choices) == 0 {
		return "(ending)"
	}
	parts := make([]string, 0, len(sc.Choices))
	for _, ch := range sc.Choices {
		target := p.Scene(ch.Target)
		if target == nil {
			parts = append(parts, styleDead.Render(ch.Text+" "+iconArrow+" ✗"))
			continue
		}
		parts = append(parts, ch.Text+" "+iconArrow+" "+storymap.SceneTitle(target))
	}
	return strings.Join(parts, "\n")
}

func (c *CLI) sceneAddCommand() *cobra.Command {
	var title, body, background string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a scene and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.edit(cmd, func(sess *editor.Session) error {
				id, err := sess.CreateScene(cmd.Context())
				if err != nil {
					return err
				}
				u := editor.SceneUpdate{
					Title:      changed(cmd, "title", title),
					Body:       changed(cmd, "body", body),
					Background: changed(cmd, "background", background),
				}
				if u.Title != nil || u.Body != nil || u.Background != nil {
					if err := sess.UpdateScene(cmd.Context(), id, u); err != nil {
						return err
					}
				}
				printID(cmd, id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "scene title")
	cmd.Flags().StringVar(&body, "body", "", "scene body (simple HTML)")
	cmd.Flags().StringVar(&background, "background", "", "background color")
	return cmd
}

func (c *CLI) sceneSetCommand() *cobra.Command {
	var title, body, background string

	cmd := &cobra.Command{
		Use:   "set ID",
		Short: "Change the title, body or background of a scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.edit(cmd, func(sess *editor.Session) error {
				return sess.UpdateScene(cmd.Context(), args[0], editor.SceneUpdate{
					Title:      changed(cmd, "title", title),
					Body:       changed(cmd, "body", body),
					Background: changed(cmd, "background", background),
				})
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "scene title")
	cmd.Flags().StringVar(&body, "body", "", "scene body (simple HTML)")
	cmd.Flags().StringVar(&background, "background", "", "background color")
	return cmd
}

func (c *CLI) sceneRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a scene with its layers and choices",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.edit(cmd, func(sess *editor.Session) error {
				if err := sess.DeleteScene(cmd.Context(), args[0]); err != nil {
					return err
				}
				printSuccess("Deleted scene %s", args[0])
				return nil
			})
		},
	}
}

// =============================================================================
// Choices
// =============================================================================

func (c *CLI) choiceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "choice",
		Short: "Create, change and delete choices",
	}
	cmd.AddCommand(c.choiceAddCommand())
	cmd.AddCommand(c.choiceSetCommand())
	cmd.AddCommand(c.choiceRemoveCommand())
	return cmd
}

func (c *CLI) choiceAddCommand() *cobra.Command {
	var text, target string

	cmd := &cobra.Command{
		Use:   "add SCENE",
		Short: "Add a choice to a scene and print its id",
		Long: `Add a choice to a scene. A new choice leads to the first scene of the
project unless --target says otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.edit(cmd, func(sess *editor.Session) error {
				id, err := sess.AddChoice(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				u := editor.ChoiceUpdate{
					Text:   changed(cmd, "text", text),
					Target: changed(cmd, "target", target),
				}
				if u.Text != nil || u.Target != nil {
					if err := sess.UpdateChoice(cmd.Context(), id, u); err != nil {
						return err
					}
				}
				printID(cmd, id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "button text")
	cmd.Flags().StringVar(&target, "target", "", "id of the scene the choice leads to")
	return cmd
}

func (c *CLI) choiceSetCommand() *cobra.Command {
	var (
		text, target, group string
		background, color   string
		fontSize, radius    float64
		bold                bool
	)

	cmd := &cobra.Command{
		Use:   "set ID",
		Short: "Change the text, target, group or style of a choice",
		Long: `Change a choice. An empty --target turns the choice into a dead end;
an unknown target is rejected and nothing changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.edit(cmd, func(sess *editor.Session) error {
				u := editor.ChoiceUpdate{
					Text:   changed(cmd, "text", text),
					Target: changed(cmd, "target", target),
					Group:  changed(cmd, "group", group),
				}
				if styled(cmd, "background", "color", "font-size", "radius", "bold") {
					var style story.ChoiceStyle
					sess.Read(func(st *story.Store) {
						if ch, _ := st.Choice(args[0]); ch != nil {
							style = ch.Style
						}
					})
					if cmd.Flags().Changed("background") {
						style.Background = background
					}
					if cmd.Flags().Changed("color") {
						style.Color = color
					}
					if cmd.Flags().Changed("font-size") {
						style.FontSize = fontSize
					}
					if cmd.Flags().Changed("radius") {
						style.BorderRadius = radius
					}
					if cmd.Flags().Changed("bold") {
						style.Bold = bold
					}
					u.Style = &style
				}
				return sess.UpdateChoice(cmd.Context(), args[0], u)
			})
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "button text")
	cmd.Flags().StringVar(&target, "target", "", "target scene id (empty for a dead end)")
	cmd.Flags().StringVar(&group, "group", "", "group label")
	cmd.Flags().StringVar(&background, "background", "", "button background color")
	cmd.Flags().StringVar(&color, "color", "", "button text color")
	cmd.Flags().Float64Var(&fontSize, "font-size", 0, "button font size")
	cmd.Flags().Float64Var(&radius, "radius", 0, "button border radius")
	cmd.Flags().BoolVar(&bold, "bold", false, "bold button text")
	return cmd
}

func (c *CLI) choiceRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a choice",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.edit(cmd, func(sess *editor.Session) error {
				return sess.DeleteChoice(cmd.Context(), args[0])
			})
		},
	}
}

func styled(cmd *cobra.Command, names ...string) bool {
	for _, n := range names {
		if cmd.Flags().Changed(n) {
			return true
		}
	}
	return false
}

// =============================================================================
// Layers
// =============================================================================

func (c *CLI) layerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layer",
		Short: "Create, style, reorder and delete text and image layers",
	}
	cmd.AddCommand(c.layerAddCommand())
	cmd.AddCommand(c.layerSetCommand())
	cmd.AddCommand(c.layerStyleCommand())
	cmd.AddCommand(c.layerReorderCommand("forward", 1))
	cmd.AddCommand(c.layerReorderCommand("backward", -1))
	cmd.AddCommand(c.layerRemoveCommand())
	return cmd
}

func (c *CLI) layerAddCommand() *cobra.Command {
	var scene, content, src string

	cmd := &cobra.Command{
		Use:       "add text|image",
		Short:     "Add a layer to a scene, or loose on the canvas, and print its id",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(story.LayerText), string(story.LayerImage)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.edit(cmd, func(sess *editor.Session) error {
				id, err := sess.AddLayer(cmd.Context(), story.LayerKind(args[0]), scene)
				if err != nil {
					return err
				}
				u := editor.LayerUpdate{
					Content: changed(cmd, "content", content),
					Src:     changed(cmd, "src", src),
				}
				if u.Content != nil || u.Src != nil {
					if err := sess.UpdateLayer(cmd.Context(), id, u); err != nil {
						return err
					}
				}
				printID(cmd, id)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&scene, "scene", "s", "", "owning scene id (loose when empty)")
	cmd.Flags().StringVar(&content, "content", "", "text content (text layers)")
	cmd.Flags().StringVar(&src, "src", "", "image URL (image layers)")
	return cmd
}

func (c *CLI) layerSetCommand() *cobra.Command {
	var content, src string

	cmd := &cobra.Command{
		Use:   "set ID",
		Short: "Change the content of a text layer or the source of an image layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.edit(cmd, func(sess *editor.Session) error {
				return sess.UpdateLayer(cmd.Context(), args[0], editor.LayerUpdate{
					Content: changed(cmd, "content", content),
					Src:     changed(cmd, "src", src),
				})
			})
		},
	}

	cmd.Flags().StringVar(&content, "content", "", "text content (simple HTML)")
	cmd.Flags().StringVar(&src, "src", "", "image URL: http(s) or data:image")
	return cmd
}

func (c *CLI) layerStyleCommand() *cobra.Command {
	var (
		font, color             string
		size                    float64
		bold, italic, underline bool
	)

	cmd := &cobra.Command{
		Use:   "style ID",
		Short: "Change the typography of a text layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.edit(cmd, func(sess *editor.Session) error {
				var (
					style story.TextStyle
					found bool
				)
				sess.Read(func(st *story.Store) {
					if l := st.Layer(args[0]); l != nil {
						style, found = l.Style, true
					}
				})
				if !found {
					return errs.NotFound("layer", args[0])
				}
				if cmd.Flags().Changed("font") {
					style.FontFamily = font
				}
				if cmd.Flags().Changed("size") {
					style.FontSize = size
				}
				if cmd.Flags().Changed("color") {
					style.Color = color
				}
				if cmd.Flags().Changed("bold") {
					style.Bold = bold
				}
				if cmd.Flags().Changed("italic") {
					style.Italic = italic
				}
				if cmd.Flags().Changed("underline") {
					style.Underline = underline
				}
				return sess.UpdateLayer(cmd.Context(), args[0], editor.LayerUpdate{Style: &style})
			})
		},
	}

	cmd.Flags().StringVar(&font, "font", "", "font family")
	cmd.Flags().Float64Var(&size, "size", 0, "font size")
	cmd.Flags().StringVar(&color, "color", "", "text color")
	cmd.Flags().BoolVar(&bold, "bold", false, "bold")
	cmd.Flags().BoolVar(&italic, "italic", false, "italic")
	cmd.Flags().BoolVar(&underline, "underline", false, "underline")
	return cmd
}

func (c *CLI) layerReorderCommand(name string, direction int) *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   name + " ID",
		Short: fmt.Sprintf("Move a layer %s in its stack", name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return errs.New(errs.ErrCodeInvalidInput, "--steps must be at least 1")
			}
			return c.edit(cmd, func(sess *editor.Session) error {
				return sess.ReorderLayer(cmd.Context(), args[0], direction*steps)
			})
		},
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "number of stacking steps")
	return cmd
}

func (c *CLI) layerRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a layer",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.edit(cmd, func(sess *editor.Session) error {
				return sess.DeleteLayer(cmd.Context(), args[0])
			})
		},
	}
}

// =============================================================================
// Geometry and Images
// =============================================================================

func (c *CLI) geometryCommand() *cobra.Command {
	var x, y, width, height float64

	cmd := &cobra.Command{
		Use:   "geometry ID",
		Short: "Move or resize a scene, layer or choice",
		Long: `Commit a new position or size. Flags that are not given keep their
current value. Scene coordinates are canvas coordinates; layers and choices
inside a scene use the scene's own space.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.edit(cmd, func(sess *editor.Session) error {
				r, ok := currentRect(sess, args[0])
				if !ok {
					return errs.NotFound("entity", args[0])
				}
				if cmd.Flags().Changed("x") {
					r.X = x
				}
				if cmd.Flags().Changed("y") {
					r.Y = y
				}
				if cmd.Flags().Changed("width") {
					r.Width = width
				}
				if cmd.Flags().Changed("height") {
					r.Height = height
				}
				return sess.UpdateGeometry(cmd.Context(), args[0], r)
			})
		},
	}

	cmd.Flags().Float64Var(&x, "x", 0, "left edge")
	cmd.Flags().Float64Var(&y, "y", 0, "top edge")
	cmd.Flags().Float64Var(&width, "width", 0, "width")
	cmd.Flags().Float64Var(&height, "height", 0, "height")
	return cmd
}

func currentRect(sess *editor.Session, id string) (r story.Rect, ok bool) {
	sess.Read(func(st *story.Store) {
		if sc := st.Scene(id); sc != nil {
			r, ok = sc.Rect, true
			return
		}
		if l := st.Layer(id); l != nil {
			r, ok = l.Rect, true
			return
		}
		if ch, _ := st.Choice(id); ch != nil {
			r, ok = ch.Rect, true
		}
	})
	return r, ok
}

func (c *CLI) imageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Place pictures as image layers",
	}
	cmd.AddCommand(c.imageAddCommand())
	return cmd
}

func (c *CLI) imageAddCommand() *cobra.Command {
	var (
		scene string
		at    []float64
	)

	cmd := &cobra.Command{
		Use:   "add FILE",
		Short: "Embed an image file as a layer and print its id",
		Long: `Decode an image (PNG, JPEG, GIF, BMP or WebP), embed it as a data URL and
place it fitted into a scene, or loose on the canvas without --scene. --at
gives the drop point in canvas coordinates; without it the image is centered.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			placement := editor.Placement{SceneID: scene}
			switch len(at) {
			case 0:
			case 2:
				placement.Drop = &story.Point{X: at[0], Y: at[1]}
			default:
				return errs.New(errs.ErrCodeInvalidInput, "--at takes two numbers: X,Y")
			}

			f, err := os.Open(args[0])
			if err != nil {
				if os.IsNotExist(err) {
					return errs.New(errs.ErrCodeFileNotFound, "file not found: %s", args[0])
				}
				return err
			}
			defer f.Close()

			return c.edit(cmd, func(sess *editor.Session) error {
				res := <-sess.PlaceImageAsync(cmd.Context(), f, placement)
				if res.Err != nil {
					return res.Err
				}
				printID(cmd, res.LayerID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&scene, "scene", "s", "", "target scene id (loose when empty)")
	cmd.Flags().Float64SliceVar(&at, "at", nil, "drop point X,Y in canvas coordinates")
	return cmd
}
