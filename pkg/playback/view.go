package playback

import "github.com/matzehuels/novella/pkg/story"

// View is everything needed to draw one scene during playback.
type View struct {
	// Empty is set when there is no scene to show.
	Empty bool

	SceneID    string
	Title      string
	Body       string
	Background string

	// Layers are the scene's own layers in drawing order. Layers of other
	// scenes and loose layers are never part of a view.
	Layers []*story.Layer

	// Choices are in stored order.
	Choices []ChoiceView
}

// ChoiceView is a choice as presented to the reader.
type ChoiceView struct {
	ID     string
	Text   string
	Target string
	Style  story.ChoiceStyle
	Group  string
	// Dead marks a choice that does not lead anywhere; choosing it keeps the
	// current scene.
	Dead bool
}

// Terminal reports whether the scene offers no navigation at all.
func (v View) Terminal() bool { return len(v.Choices) == 0 }

// Render builds the view of the scene with the given id.
func Render(p *story.Project, sceneID string) View {
	sc := p.Scene(sceneID)
	if sc == nil {
		return View{Empty: true}
	}
	v := View{
		SceneID:    sc.ID,
		Title:      sc.Title,
		Body:       sc.Body,
		Background: sc.Background,
		Layers:     sc.SortedLayers(),
		Choices:    make([]ChoiceView, len(sc.Choices)),
	}
	for i, c := range sc.Choices {
		v.Choices[i] = ChoiceView{
			ID:     c.ID,
			Text:   c.Text,
			Target: c.Target,
			Style:  c.Style,
			Group:  c.Group,
			Dead:   !c.HasTarget() || p.Scene(c.Target) == nil,
		}
	}
	return v
}
