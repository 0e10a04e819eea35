package io

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	errs "github.com/matzehuels/novella/pkg/errors"
	"github.com/matzehuels/novella/pkg/story"
)

// newID allocates identifiers for entities loaded without one.
var newID = uuid.NewString

// Unmarshal decodes a persisted document of any known version into a Project.
//
// Every missing or invalid field is replaced by its default, so a single bad
// value never rejects the document. Unmarshal only fails, with an
// [errs.ErrCodeParse] error, when data is not JSON or its top level is neither
// an array nor an object. null, {} and [] yield an empty project.
//
// While loading, Unmarshal also repairs the model's invariants:
//   - scenes without an id get a fresh one; later duplicates of an id are dropped
//   - layers and choices with a missing or already used id get a fresh one
//   - choice targets naming no loaded scene are cleared
//   - each owner's layers are ordered by stacking index
func Unmarshal(data []byte) (*story.Project, error) {
	doc, _, err := normalize(data)
	if err != nil {
		return nil, err
	}
	return doc.project(), nil
}

// ReadJSON reads all of r and decodes it with [Unmarshal].
// ReadJSON does not close r.
func ReadJSON(r io.Reader) (*story.Project, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return Unmarshal(data)
}

// ImportJSON reads the project file at path.
func ImportJSON(path string) (*story.Project, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "project file %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// loader turns a rawDocument into entities while tracking used ids.
type loader struct {
	used map[string]bool
}

func (d *rawDocument) project() *story.Project {
	p := story.NewProject()
	ld := &loader{used: make(map[string]bool)}

	// Scene ids are claimed first so layers and choices never take one.
	var scenes []*sceneIn
	for _, raw := range d.scenes {
		var in sceneIn
		if !decodeObject(raw, &in) {
			continue
		}
		id := in.ID.v
		if !in.ID.set || id == "" {
			id = ld.fresh()
		} else if ld.used[id] {
			continue
		}
		ld.used[id] = true
		in.ID = str{v: id, set: true}
		scenes = append(scenes, &in)
	}

	for _, in := range scenes {
		p.Scenes = append(p.Scenes, ld.scene(in))
	}
	for _, e := range d.loose {
		if l := ld.layer(e.raw, e.kind); l != nil {
			p.LooseLayers = append(p.LooseLayers, l)
		}
	}
	story.SortLayers(p.LooseLayers)

	for _, sc := range p.Scenes {
		for _, c := range sc.Choices {
			if c.Target != "" && p.Scene(c.Target) == nil {
				c.Target = ""
			}
		}
	}
	return p
}

// fresh returns an unused id.
func (ld *loader) fresh() string {
	for {
		id := newID()
		if !ld.used[id] {
			return id
		}
	}
}

// claim returns the given id, or a fresh one when it is empty or taken.
func (ld *loader) claim(in str) string {
	id := in.v
	if !in.set || id == "" || ld.used[id] {
		id = ld.fresh()
	}
	ld.used[id] = true
	return id
}

func (ld *loader) scene(in *sceneIn) *story.Scene {
	sc := &story.Scene{
		ID:         in.ID.v,
		Title:      in.Title.v,
		Body:       in.Body.v,
		Background: in.Background.v,
		Rect:       rect(in.X, in.Y, in.Width, in.Height),
		Layers:     []*story.Layer{},
		Choices:    []*story.Choice{},
	}
	for _, raw := range in.Layers {
		if l := ld.layer(raw, story.LayerText); l != nil {
			sc.Layers = append(sc.Layers, l)
		}
	}
	for _, raw := range in.Choices {
		if c := ld.choice(raw); c != nil {
			sc.Choices = append(sc.Choices, c)
		}
	}
	sc.ApplyDefaults()
	story.SortLayers(sc.Layers)
	return sc
}

func (ld *loader) layer(raw []byte, fallback story.LayerKind) *story.Layer {
	var in layerIn
	if !decodeObject(raw, &in) {
		return nil
	}
	l := &story.Layer{
		ID:     ld.claim(in.ID),
		Kind:   layerKind(&in, fallback),
		Rect:   rect(in.X, in.Y, in.Width, in.Height),
		ZIndex: in.ZIndex.integer(),
	}
	switch l.Kind {
	case story.LayerText:
		l.Content = in.Content.v
		l.Style = story.TextStyle{
			FontFamily: in.FontFamily.v,
			FontSize:   in.FontSize.value(),
			Color:      in.Color.v,
			Bold:       in.Bold.v,
			Italic:     in.Italic.v,
			Underline:  in.Underline.v,
		}
	case story.LayerImage:
		l.Src = in.Src.v
	}
	l.ApplyDefaults()
	return l
}

// layerKind resolves the variant of a stored layer. An explicit type wins;
// otherwise a source without content means an image, and the fallback of the
// containing array decides the rest.
func layerKind(in *layerIn, fallback story.LayerKind) story.LayerKind {
	if k := story.LayerKind(in.Type.v); k.Valid() {
		return k
	}
	if in.Src.set && !in.Content.set {
		return story.LayerImage
	}
	return fallback
}

func (ld *loader) choice(raw []byte) *story.Choice {
	var in choiceIn
	if !decodeObject(raw, &in) {
		return nil
	}
	c := &story.Choice{
		ID:     ld.claim(in.ID),
		Text:   in.Text.v,
		Target: in.Target.v,
		Rect:   rect(in.X, in.Y, in.Width, in.Height),
		Style: story.ChoiceStyle{
			Background:   in.Background.v,
			Color:        in.Color.v,
			FontSize:     in.FontSize.value(),
			Bold:         in.Bold.v,
			BorderRadius: in.BorderRadius.value(),
		},
		Group: in.Group.v,
	}
	c.ApplyDefaults()
	return c
}

func rect(x, y, w, h num) story.Rect {
	return story.Rect{X: x.value(), Y: y.value(), Width: w.value(), Height: h.value()}
}
