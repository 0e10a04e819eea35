package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/novella/pkg/story"
)

// Marshal encodes a project in the current document shape. Every field is
// written explicitly, and output read back with [Unmarshal] reproduces the
// project exactly.
func Marshal(p *story.Project) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(p, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSON encodes p as indented JSON and writes it to w.
func WriteJSON(p *story.Project, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toDocument(p)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes p to a JSON file at path.
func ExportJSON(p *story.Project, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(p, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func toDocument(p *story.Project) document {
	if p == nil {
		p = story.NewProject()
	}
	out := document{
		Scenes:      make([]scene, len(p.Scenes)),
		LooseLayers: toLayers(p.LooseLayers),
	}
	for i, sc := range p.Scenes {
		out.Scenes[i] = scene{
			ID:         sc.ID,
			Title:      sc.Title,
			X:          jsonNum(sc.X),
			Y:          jsonNum(sc.Y),
			Width:      jsonNum(sc.Width),
			Height:     jsonNum(sc.Height),
			Body:       sc.Body,
			Background: sc.Background,
			Layers:     toLayers(sc.Layers),
			Choices:    toChoices(sc.Choices),
		}
	}
	return out
}

func toLayers(layers []*story.Layer) []layer {
	out := make([]layer, len(layers))
	for i, l := range layers {
		ly := layer{
			ID:     l.ID,
			Type:   string(l.Kind),
			X:      jsonNum(l.X),
			Y:      jsonNum(l.Y),
			Width:  jsonNum(l.Width),
			Height: jsonNum(l.Height),
			ZIndex: l.ZIndex,
		}
		switch l.Kind {
		case story.LayerText:
			st := l.Style
			size := jsonNum(st.FontSize)
			ly.Content = &l.Content
			ly.FontFamily = &st.FontFamily
			ly.FontSize = &size
			ly.Color = &st.Color
			ly.Bold = &st.Bold
			ly.Italic = &st.Italic
			ly.Underline = &st.Underline
		case story.LayerImage:
			ly.Src = &l.Src
		}
		out[i] = ly
	}
	return out
}

func toChoices(choices []*story.Choice) []choice {
	out := make([]choice, len(choices))
	for i, c := range choices {
		ch := choice{
			ID:           c.ID,
			Text:         c.Text,
			X:            jsonNum(c.X),
			Y:            jsonNum(c.Y),
			Width:        jsonNum(c.Width),
			Height:       jsonNum(c.Height),
			Background:   c.Style.Background,
			Color:        c.Style.Color,
			Bold:         c.Style.Bold,
			FontSize:     jsonNum(c.Style.FontSize),
			BorderRadius: jsonNum(c.Style.BorderRadius),
			Group:        c.Group,
		}
		if c.HasTarget() {
			target := c.Target
			ch.Target = &target
		}
		out[i] = ch
	}
	return out
}
