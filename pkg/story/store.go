package story

import (
	"slices"

	"github.com/google/uuid"

	errs "github.com/matzehuels/novella/pkg/errors"
)

// Size is a width/height pair.
type Size struct {
	Width  float64
	Height float64
}

// Store is the only mutator of a Project. Every method either applies its
// whole change or returns an error and leaves the project untouched, so the
// invariants of the model hold between any two calls:
//   - scene, layer and choice ids are unique
//   - every non-empty choice target names an existing scene
//   - every stacking index is >= 1 and each owner's layers are sorted by it
//
// Pointers returned by Store methods refer to the live entities. Treat them
// as read-only views and change them only through Store methods.
//
// Store is not safe for concurrent use; callers serialize access (see the
// editor package).
type Store struct {
	p *Project

	scenes  map[string]*Scene // scene id -> scene
	layers  map[string]*Scene // layer id -> owning scene, nil for loose layers
	choices map[string]*Scene // choice id -> owning scene

	// placed counts scenes ever placed by CreateScene so that new scenes keep
	// moving along the diagonal even after deletions.
	placed int

	canvas Size
	newID  func() string
}

// Option configures a Store.
type Option func(*Store)

// WithCanvas sets the canvas size used to center loose elements.
func WithCanvas(width, height float64) Option {
	return func(s *Store) {
		if width > 0 && height > 0 {
			s.canvas = Size{Width: width, Height: height}
		}
	}
}

// WithIDGenerator replaces the UUID generator, mostly for deterministic tests.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewStore wraps p (or an empty project when p is nil) in a Store.
func NewStore(p *Project, opts ...Option) *Store {
	s := &Store{
		canvas: Size{Width: DefaultCanvasWidth, Height: DefaultCanvasHeight},
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Replace(p)
	return s
}

// Replace swaps the whole project, rebuilding every index. It is used when a
// complete document is imported over the current state.
func (s *Store) Replace(p *Project) {
	if p == nil {
		p = NewProject()
	}
	if p.Scenes == nil {
		p.Scenes = []*Scene{}
	}
	if p.LooseLayers == nil {
		p.LooseLayers = []*Layer{}
	}
	s.p = p
	s.scenes = make(map[string]*Scene, len(p.Scenes))
	s.layers = make(map[string]*Scene)
	s.choices = make(map[string]*Scene)
	for _, sc := range p.Scenes {
		s.index(sc)
	}
	for _, l := range p.LooseLayers {
		s.layers[l.ID] = nil
	}
	s.placed = len(p.Scenes)
}

func (s *Store) index(sc *Scene) {
	s.scenes[sc.ID] = sc
	for _, l := range sc.Layers {
		s.layers[l.ID] = sc
	}
	for _, c := range sc.Choices {
		s.choices[c.ID] = sc
	}
}

// Project returns the live project.
func (s *Store) Project() *Project { return s.p }

// Canvas returns the configured canvas size.
func (s *Store) Canvas() Size { return s.canvas }

// Scenes returns the scenes in project order.
func (s *Store) Scenes() []*Scene { return s.p.Scenes }

// LooseLayers returns the layers owned directly by the project.
func (s *Store) LooseLayers() []*Layer { return s.p.LooseLayers }

// Scene returns the scene with the given id, or nil.
func (s *Store) Scene(id string) *Scene { return s.scenes[id] }

// Choice returns the choice with the given id and its owning scene.
func (s *Store) Choice(id string) (*Choice, *Scene) {
	owner, ok := s.choices[id]
	if !ok {
		return nil, nil
	}
	for _, c := range owner.Choices {
		if c.ID == id {
			return c, owner
		}
	}
	return nil, nil
}

// Layer returns the layer with the given id, or nil.
func (s *Store) Layer(id string) *Layer {
	owner, ok := s.layers[id]
	if !ok {
		return nil
	}
	for _, l := range *s.ownerLayers(owner) {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// FindSceneOf returns the scene owning the layer, or nil when the layer is
// loose or unknown.
func (s *Store) FindSceneOf(layerID string) *Scene {
	return s.layers[layerID]
}

// Counts returns the number of scenes, layers (nested and loose) and choices.
func (s *Store) Counts() (scenes, layers, choices int) {
	return len(s.scenes), len(s.layers), len(s.choices)
}

// ownerLayers returns the slice holding the layers of owner, where a nil
// owner stands for the project's loose layers.
func (s *Store) ownerLayers(owner *Scene) *[]*Layer {
	if owner == nil {
		return &s.p.LooseLayers
	}
	return &owner.Layers
}

// =============================================================================
// Scenes
// =============================================================================

// CreateScene appends a new scene. Each new scene is offset further along the
// diagonal than the previous one so initial placements never fully overlap.
func (s *Store) CreateScene() *Scene {
	offset := float64(sceneOrigin + s.placed*sceneStep)
	s.placed++

	sc := &Scene{
		ID:         s.newID(),
		Title:      DefaultSceneTitle,
		Body:       DefaultSceneBody,
		Background: DefaultSceneBackground,
		Rect:       Rect{X: offset, Y: offset, Width: DefaultSceneWidth, Height: DefaultSceneHeight},
		Layers:     []*Layer{},
		Choices:    []*Choice{},
	}
	s.p.Scenes = append(s.p.Scenes, sc)
	s.index(sc)
	return sc
}

// DeleteScene removes the scene together with its own layers and choices.
// Choices in other scenes that targeted it keep existing with an empty
// target. It reports whether a scene was removed; unknown ids are a no-op.
func (s *Store) DeleteScene(id string) bool {
	sc, ok := s.scenes[id]
	if !ok {
		return false
	}

	s.p.Scenes = slices.DeleteFunc(s.p.Scenes, func(x *Scene) bool { return x.ID == id })
	delete(s.scenes, id)
	for _, l := range sc.Layers {
		delete(s.layers, l.ID)
	}
	for _, c := range sc.Choices {
		delete(s.choices, c.ID)
	}

	for _, other := range s.p.Scenes {
		for _, c := range other.Choices {
			if c.Target == id {
				c.Target = ""
			}
		}
	}
	return true
}

// SetSceneTitle changes a scene's title.
func (s *Store) SetSceneTitle(id, title string) error {
	sc, err := s.mustScene(id)
	if err != nil {
		return err
	}
	sc.Title = title
	return nil
}

// SetSceneBody changes a scene's rich-text body. The content is stored as is.
func (s *Store) SetSceneBody(id, body string) error {
	sc, err := s.mustScene(id)
	if err != nil {
		return err
	}
	sc.Body = body
	return nil
}

// SetSceneBackground changes a scene's background color or image reference.
// An empty value restores the default background.
func (s *Store) SetSceneBackground(id, background string) error {
	sc, err := s.mustScene(id)
	if err != nil {
		return err
	}
	sc.Background = orString(background, DefaultSceneBackground)
	return nil
}

func (s *Store) mustScene(id string) (*Scene, error) {
	sc, ok := s.scenes[id]
	if !ok {
		return nil, errs.NotFound("scene", id)
	}
	return sc, nil
}

// =============================================================================
// Choices
// =============================================================================

// AddChoice appends a choice to the scene. The new choice targets the first
// scene of the project and sits below the scene's last choice.
func (s *Store) AddChoice(sceneID string) (*Choice, error) {
	sc, err := s.mustScene(sceneID)
	if err != nil {
		return nil, err
	}

	target := ""
	if first := s.p.First(); first != nil {
		target = first.ID
	}

	y := float64(choiceBaseY)
	if n := len(sc.Choices); n > 0 {
		if last := sc.Choices[n-1]; finite(last.Y) {
			y = last.Y + choiceStepY
		}
	}

	c := &Choice{
		ID:     s.newID(),
		Text:   DefaultChoiceText,
		Target: target,
		Rect:   Rect{X: DefaultChoiceX, Y: y, Width: DefaultChoiceWidth, Height: DefaultChoiceHeight},
		Style:  DefaultChoiceStyle(),
	}
	sc.Choices = append(sc.Choices, c)
	s.choices[c.ID] = sc
	return c, nil
}

// DeleteChoice removes the choice from its owning scene. It reports whether a
// choice was removed; unknown ids are a no-op.
func (s *Store) DeleteChoice(choiceID string) bool {
	owner, ok := s.choices[choiceID]
	if !ok {
		return false
	}
	owner.Choices = slices.DeleteFunc(owner.Choices, func(c *Choice) bool { return c.ID == choiceID })
	delete(s.choices, choiceID)
	return true
}

// SetChoiceText changes the label of a choice.
func (s *Store) SetChoiceText(choiceID, text string) error {
	c, err := s.mustChoice(choiceID)
	if err != nil {
		return err
	}
	c.Text = text
	return nil
}

// SetChoiceTarget points the choice at another scene. An empty target clears
// it; a target that names no existing scene is rejected.
func (s *Store) SetChoiceTarget(choiceID, target string) error {
	c, err := s.mustChoice(choiceID)
	if err != nil {
		return err
	}
	if target != "" {
		if _, ok := s.scenes[target]; !ok {
			return errs.NotFound("scene", target)
		}
	}
	c.Target = target
	return nil
}

// SetChoiceGroup changes the author-facing group tag of a choice.
func (s *Store) SetChoiceGroup(choiceID, group string) error {
	c, err := s.mustChoice(choiceID)
	if err != nil {
		return err
	}
	c.Group = group
	return nil
}

// SetChoiceStyle replaces the visual style of a choice. Empty colors fall
// back to the defaults, a non-positive font size to 16 and an invalid corner
// radius to 0.
func (s *Store) SetChoiceStyle(choiceID string, style ChoiceStyle) error {
	c, err := s.mustChoice(choiceID)
	if err != nil {
		return err
	}
	style.Background = orString(style.Background, DefaultChoiceBackground)
	style.Color = orString(style.Color, DefaultChoiceColor)
	style.FontSize = positiveOr(style.FontSize, DefaultChoiceFontSize)
	style.BorderRadius = orFloat(style.BorderRadius, 0)
	c.Style = style
	return nil
}

func (s *Store) mustChoice(id string) (*Choice, error) {
	c, _ := s.Choice(id)
	if c == nil {
		return nil, errs.NotFound("choice", id)
	}
	return c, nil
}

// =============================================================================
// Layers
// =============================================================================

// AddLayer creates a layer of the given kind in the scene named by ownerID, or
// among the project's loose layers when ownerID is empty. The new layer's
// zIndex is the owner's layer count plus one. That puts it on top of an
// untouched stack, but a layer raised by ReorderLayer can still sit above it.
func (s *Store) AddLayer(kind LayerKind, ownerID string) (*Layer, error) {
	if !kind.Valid() {
		return nil, errs.New(errs.ErrCodeInvalidInput, "unknown layer kind %q", kind)
	}

	var owner *Scene
	if ownerID != "" {
		sc, err := s.mustScene(ownerID)
		if err != nil {
			return nil, err
		}
		owner = sc
	}
	list := s.ownerLayers(owner)

	l := &Layer{ID: s.newID(), Kind: kind, ZIndex: len(*list) + 1}
	switch kind {
	case LayerText:
		l.Content = DefaultTextContent
		l.Style = DefaultTextStyle()
		l.Rect = Rect{X: DefaultTextX, Y: DefaultTextY, Width: DefaultTextWidth, Height: DefaultTextHeight}
	case LayerImage:
		l.Rect = Rect{X: DefaultImageX, Y: DefaultImageY, Width: DefaultImageWidth, Height: DefaultImageHeight}
	}
	if owner == nil {
		l.X = s.canvas.Width/2 - l.Width/2
		l.Y = s.canvas.Height/2 - l.Height/2
	}

	s.attach(owner, l)
	return l, nil
}

// attach appends a fully built layer to its owner and indexes it.
func (s *Store) attach(owner *Scene, l *Layer) {
	list := s.ownerLayers(owner)
	*list = append(*list, l)
	SortLayers(*list)
	s.layers[l.ID] = owner
}

// DeleteLayer removes the layer from whichever owner holds it. It reports
// whether a layer was removed; unknown ids are a no-op.
func (s *Store) DeleteLayer(layerID string) bool {
	owner, ok := s.layers[layerID]
	if !ok {
		return false
	}
	list := s.ownerLayers(owner)
	*list = slices.DeleteFunc(*list, func(l *Layer) bool { return l.ID == layerID })
	delete(s.layers, layerID)
	return true
}

// ReorderLayer moves the layer's stacking index by delta, floored at 1, and
// re-sorts its owner's layers. Layers with equal indexes keep their relative
// order.
func (s *Store) ReorderLayer(layerID string, delta int) error {
	l, err := s.mustLayer(layerID)
	if err != nil {
		return err
	}
	l.ZIndex = max(1, l.ZIndex+delta)
	SortLayers(*s.ownerLayers(s.layers[layerID]))
	return nil
}

// SetLayerContent replaces the rich-text content of a text layer.
func (s *Store) SetLayerContent(layerID, content string) error {
	l, err := s.mustLayerKind(layerID, LayerText)
	if err != nil {
		return err
	}
	l.Content = content
	return nil
}

// SetTextStyle replaces the typography of a text layer, filling invalid
// fields with their defaults.
func (s *Store) SetTextStyle(layerID string, style TextStyle) error {
	l, err := s.mustLayerKind(layerID, LayerText)
	if err != nil {
		return err
	}
	style.ApplyDefaults()
	l.Style = style
	return nil
}

// SetImageSource points an image layer at a new source.
func (s *Store) SetImageSource(layerID, src string) error {
	if err := errs.ValidateImageSource(src); err != nil {
		return err
	}
	l, err := s.mustLayerKind(layerID, LayerImage)
	if err != nil {
		return err
	}
	l.Src = src
	return nil
}

func (s *Store) mustLayer(id string) (*Layer, error) {
	l := s.Layer(id)
	if l == nil {
		return nil, errs.NotFound("layer", id)
	}
	return l, nil
}

func (s *Store) mustLayerKind(id string, kind LayerKind) (*Layer, error) {
	l, err := s.mustLayer(id)
	if err != nil {
		return nil, err
	}
	if l.Kind != kind {
		return nil, errs.New(errs.ErrCodeInvalidInput, "layer %q is a %s layer, not %s", id, l.Kind, kind)
	}
	return l, nil
}

// =============================================================================
// Geometry
// =============================================================================

// UpdateGeometry commits a final position and size for a scene, layer or
// choice. The rectangle is stored exactly as given; keeping elements inside
// their parent is the canvas's job.
func (s *Store) UpdateGeometry(entityID string, r Rect) error {
	if sc, ok := s.scenes[entityID]; ok {
		sc.Rect = r
		return nil
	}
	if l := s.Layer(entityID); l != nil {
		l.Rect = r
		return nil
	}
	if c, _ := s.Choice(entityID); c != nil {
		c.Rect = r
		return nil
	}
	return errs.NotFound("entity", entityID)
}
