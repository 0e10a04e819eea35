package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/novella/pkg/playback"
	"github.com/matzehuels/novella/pkg/richtext"
	"github.com/matzehuels/novella/pkg/story"
)

// Player styles
var (
	playTitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorCyan).MarginBottom(1)
	playBodyStyle     = lipgloss.NewStyle().Foreground(colorWhite)
	playLayerStyle    = lipgloss.NewStyle().Foreground(colorGray).Italic(true)
	playSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	playNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	playDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// maxPlayWidth caps the text column on wide terminals.
const maxPlayWidth = 80

// =============================================================================
// PlayModel - Interactive story playback
// =============================================================================

// Player is the playback surface of an editing session.
type Player interface {
	Play() playback.View
	Choose(choiceID string) (playback.View, bool, error)
	Restart() playback.View
}

// PlayModel is the bubbletea model that reads a story in the terminal.
type PlayModel struct {
	player Player
	view   playback.View
	cursor int
	width  int
	status string
	// Visited counts scene changes since the last restart.
	Visited int
}

// NewPlayModel creates a model showing the player's current scene.
func NewPlayModel(p Player) PlayModel {
	return PlayModel{player: p, view: p.Play(), width: maxPlayWidth}
}

// Scene returns the view currently shown.
func (m PlayModel) Scene() playback.View { return m.view }

func (m PlayModel) Init() tea.Cmd {
	return nil
}

func (m PlayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.view.Choices)-1 {
				m.cursor++
			}
		case "enter", " ":
			if m.cursor < len(m.view.Choices) {
				m = m.choose(m.view.Choices[m.cursor].ID)
			}
		case "r":
			m.view = m.player.Restart()
			m.cursor, m.Visited = 0, 0
			m.status = "Restarted"
		default:
			if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= len(m.view.Choices) {
				m.cursor = n - 1
				m = m.choose(m.view.Choices[n-1].ID)
			}
		}
	case tea.WindowSizeMsg:
		m.width = min(msg.Width-4, maxPlayWidth)
		if m.width < 20 {
			m.width = 20
		}
	}
	return m, nil
}

func (m PlayModel) choose(choiceID string) PlayModel {
	view, moved, err := m.player.Choose(choiceID)
	if err != nil {
		m.status = userError(err)
		return m
	}
	m.view = view
	if moved {
		m.cursor = 0
		m.Visited++
		m.status = ""
	} else {
		m.status = "That choice leads nowhere yet"
	}
	return m
}

func (m PlayModel) View() string {
	var b strings.Builder

	if m.view.Empty {
		b.WriteString(playDimStyle.Render("This story has no scenes yet."))
		b.WriteString("\n\n")
		b.WriteString(playDimStyle.Render("q quit"))
		b.WriteString("\n")
		return b.String()
	}

	title := m.view.Title
	if title == "" {
		title = "Untitled scene"
	}
	b.WriteString(playTitleStyle.Render(title))
	b.WriteString("\n")

	text := lipgloss.NewStyle().Width(m.width)
	if body := richtext.PlainText(m.view.Body); body != "" {
		b.WriteString(text.Inherit(playBodyStyle).Render(body))
		b.WriteString("\n\n")
	}
	for _, l := range m.view.Layers {
		if line := layerLine(l); line != "" {
			b.WriteString(text.Inherit(playLayerStyle).Render(line))
			b.WriteString("\n")
		}
	}
	if len(m.view.Layers) > 0 {
		b.WriteString("\n")
	}

	if m.view.Terminal() {
		b.WriteString(playDimStyle.Render("The End."))
		b.WriteString("\n")
	}
	for i, ch := range m.view.Choices {
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		label := ch.Text
		if label == "" {
			label = "Continue"
		}
		line := fmt.Sprintf("%s%d. %s", cursor, i+1, label)
		switch {
		case ch.Dead:
			b.WriteString(styleDead.Render(line + " " + iconError))
		case i == m.cursor:
			b.WriteString(playSelectedStyle.Render(line))
		default:
			b.WriteString(playNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(StyleWarning.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(playDimStyle.Render("↑/↓ navigate  ⏎/1-9 choose  r restart  q quit"))
	b.WriteString("\n")
	return b.String()
}

// layerLine renders a layer as one line of terminal text.
func layerLine(l *story.Layer) string {
	switch l.Kind {
	case story.LayerImage:
		if strings.HasPrefix(l.Src, "data:") {
			return "[image]"
		}
		return "[image: " + l.Src + "]"
	default:
		return richtext.PlainText(l.Content)
	}
}

// =============================================================================
// play command
// =============================================================================

// playCommand creates the "play" command.
func (c *CLI) playCommand() *cobra.Command {
	var start string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Read the story in the terminal",
		Long: `Play the project from its first scene, or from --start. Pick choices with
the arrow keys and enter, or with their number. Dead choices are marked and
keep you where you are.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, closeFn, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if start != "" {
				sess.SetStart(start)
			}
			prog := tea.NewProgram(NewPlayModel(sess),
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()))
			final, err := prog.Run()
			if err != nil {
				return err
			}
			if m, ok := final.(PlayModel); ok {
				c.Logger.Debug("playback finished", "scene", m.Scene().SceneID, "visited", m.Visited)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "scene id to start at")
	return cmd
}
