package story

import "slices"

// Point is a location in canvas or scene coordinates.
type Point struct {
	X float64
	Y float64
}

// Rect is a committed position and size. Coordinates of scenes are canvas
// coordinates; layers and choices inside a scene use the scene's own space.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// LayerKind is the closed set of layer variants.
type LayerKind string

const (
	// LayerText is a rich-text block with its own typography.
	LayerText LayerKind = "text"
	// LayerImage is a picture referenced by URL or data URL.
	LayerImage LayerKind = "image"
)

// Valid reports whether k is one of the known layer kinds.
func (k LayerKind) Valid() bool {
	switch k {
	case LayerText, LayerImage:
		return true
	default:
		return false
	}
}

// TextStyle holds the typography of a text layer.
type TextStyle struct {
	FontFamily string
	FontSize   float64
	Color      string
	Bold       bool
	Italic     bool
	Underline  bool
}

// Layer is a visual element owned either by a Scene or, when loose, by the
// Project itself. Kind selects which of the variant fields are meaningful:
// Content and Style for LayerText, Src for LayerImage.
type Layer struct {
	ID   string
	Kind LayerKind
	Rect

	// ZIndex is the stacking index, always >= 1. Lower values draw first.
	ZIndex int

	Content string    // text only
	Style   TextStyle // text only
	Src     string    // image only
}

// ChoiceStyle is the visual style of a choice button.
type ChoiceStyle struct {
	Background   string
	Color        string
	FontSize     float64
	Bold         bool
	BorderRadius float64
}

// Choice is a labeled, directed edge from its owning scene to Target.
// An empty Target means the choice leads nowhere (an end-state button).
type Choice struct {
	ID     string
	Text   string
	Target string
	Rect
	Style ChoiceStyle
	// Group is an author-facing tag; playback ignores it.
	Group string
}

// HasTarget reports whether the choice points at a scene id.
func (c *Choice) HasTarget() bool { return c.Target != "" }

// Scene is a narrative node on the canvas.
type Scene struct {
	ID         string
	Title      string
	Body       string
	Background string
	Rect

	Layers  []*Layer
	Choices []*Choice
}

// SortedLayers returns the scene's layers in drawing order.
func (s *Scene) SortedLayers() []*Layer { return sortedLayers(s.Layers) }

// Project is the root aggregate: an ordered sequence of scenes plus the loose
// layers that live directly on the canvas.
type Project struct {
	Scenes      []*Scene
	LooseLayers []*Layer
}

// NewProject returns an empty project.
func NewProject() *Project {
	return &Project{Scenes: []*Scene{}, LooseLayers: []*Layer{}}
}

// Scene returns the scene with the given id, or nil.
func (p *Project) Scene(id string) *Scene {
	if id == "" {
		return nil
	}
	for _, s := range p.Scenes {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// First returns the first scene, or nil for an empty project.
func (p *Project) First() *Scene {
	if len(p.Scenes) == 0 {
		return nil
	}
	return p.Scenes[0]
}

// Empty reports whether the project has no scenes and no loose layers.
func (p *Project) Empty() bool {
	return len(p.Scenes) == 0 && len(p.LooseLayers) == 0
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	out := &Project{
		Scenes:      make([]*Scene, len(p.Scenes)),
		LooseLayers: cloneLayers(p.LooseLayers),
	}
	for i, sc := range p.Scenes {
		c := *sc
		c.Layers = cloneLayers(sc.Layers)
		c.Choices = make([]*Choice, len(sc.Choices))
		for j, ch := range sc.Choices {
			cc := *ch
			c.Choices[j] = &cc
		}
		out.Scenes[i] = &c
	}
	return out
}

func cloneLayers(layers []*Layer) []*Layer {
	out := make([]*Layer, len(layers))
	for i, l := range layers {
		cl := *l
		out[i] = &cl
	}
	return out
}

// sortedLayers returns a copy of layers stably ordered by stacking index.
func sortedLayers(layers []*Layer) []*Layer {
	out := slices.Clone(layers)
	SortLayers(out)
	return out
}

// SortLayers stably orders layers by stacking index in place.
func SortLayers(layers []*Layer) {
	slices.SortStableFunc(layers, func(a, b *Layer) int { return a.ZIndex - b.ZIndex })
}
