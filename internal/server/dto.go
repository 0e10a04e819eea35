package server

import (
	"github.com/matzehuels/novella/pkg/playback"
	"github.com/matzehuels/novella/pkg/story"
)

// =============================================================================
// Requests
// =============================================================================

type sceneUpdateRequest struct {
	Title      *string `json:"title" validate:"omitempty,max=500"`
	Body       *string `json:"body"`
	Background *string `json:"background" validate:"omitempty,max=64"`
}

type choiceStyleDTO struct {
	Background   string  `json:"background" validate:"max=64"`
	Color        string  `json:"color" validate:"max=64"`
	FontSize     float64 `json:"fontSize" validate:"gte=0"`
	Bold         bool    `json:"bold"`
	BorderRadius float64 `json:"borderRadius" validate:"gte=0"`
}

type choiceUpdateRequest struct {
	Text   *string         `json:"text" validate:"omitempty,max=500"`
	Target *string         `json:"target"`
	Group  *string         `json:"group" validate:"omitempty,max=200"`
	Style  *choiceStyleDTO `json:"style"`
}

type textStyleDTO struct {
	FontFamily string  `json:"fontFamily" validate:"max=200"`
	FontSize   float64 `json:"fontSize" validate:"gte=0"`
	Color      string  `json:"color" validate:"max=64"`
	Bold       bool    `json:"bold"`
	Italic     bool    `json:"italic"`
	Underline  bool    `json:"underline"`
}

type layerCreateRequest struct {
	Type  string `json:"type" validate:"required,oneof=text image"`
	Scene string `json:"scene"`
}

type layerUpdateRequest struct {
	Content *string       `json:"content"`
	Style   *textStyleDTO `json:"style"`
	Src     *string       `json:"src"`
}

type reorderRequest struct {
	Delta int `json:"delta" validate:"required,ne=0"`
}

type geometryRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

type chooseRequest struct {
	Choice string `json:"choice" validate:"required"`
}

func (d *choiceStyleDTO) model() story.ChoiceStyle {
	return story.ChoiceStyle{
		Background:   d.Background,
		Color:        d.Color,
		FontSize:     d.FontSize,
		Bold:         d.Bold,
		BorderRadius: d.BorderRadius,
	}
}

func (d *textStyleDTO) model() story.TextStyle {
	return story.TextStyle{
		FontFamily: d.FontFamily,
		FontSize:   d.FontSize,
		Color:      d.Color,
		Bold:       d.Bold,
		Italic:     d.Italic,
		Underline:  d.Underline,
	}
}

// =============================================================================
// Responses
// =============================================================================

type idResponse struct {
	ID string `json:"id"`
}

type layerView struct {
	ID      string        `json:"id"`
	Type    string        `json:"type"`
	X       float64       `json:"x"`
	Y       float64       `json:"y"`
	Width   float64       `json:"width"`
	Height  float64       `json:"height"`
	ZIndex  int           `json:"zIndex"`
	Content string        `json:"content,omitempty"`
	Style   *textStyleDTO `json:"style,omitempty"`
	Src     string        `json:"src,omitempty"`
}

type choiceView struct {
	ID     string         `json:"id"`
	Text   string         `json:"text"`
	Target string         `json:"target,omitempty"`
	Group  string         `json:"group,omitempty"`
	Dead   bool           `json:"dead"`
	Style  choiceStyleDTO `json:"style"`
}

type playResponse struct {
	Empty      bool         `json:"empty"`
	SceneID    string       `json:"sceneId,omitempty"`
	Title      string       `json:"title,omitempty"`
	Body       string       `json:"body,omitempty"`
	Background string       `json:"background,omitempty"`
	Terminal   bool         `json:"terminal"`
	Moved      *bool        `json:"moved,omitempty"`
	Layers     []layerView  `json:"layers"`
	Choices    []choiceView `json:"choices"`
}

func newPlayResponse(v playback.View) playResponse {
	out := playResponse{
		Empty:      v.Empty,
		SceneID:    v.SceneID,
		Title:      v.Title,
		Body:       v.Body,
		Background: v.Background,
		Terminal:   !v.Empty && v.Terminal(),
		Layers:     make([]layerView, 0, len(v.Layers)),
		Choices:    make([]choiceView, 0, len(v.Choices)),
	}
	for _, l := range v.Layers {
		lv := layerView{
			ID: l.ID, Type: string(l.Kind),
			X: l.X, Y: l.Y, Width: l.Width, Height: l.Height,
			ZIndex: l.ZIndex,
		}
		switch l.Kind {
		case story.LayerText:
			lv.Content = l.Content
			lv.Style = &textStyleDTO{
				FontFamily: l.Style.FontFamily, FontSize: l.Style.FontSize, Color: l.Style.Color,
				Bold: l.Style.Bold, Italic: l.Style.Italic, Underline: l.Style.Underline,
			}
		case story.LayerImage:
			lv.Src = l.Src
		}
		out.Layers = append(out.Layers, lv)
	}
	for _, c := range v.Choices {
		out.Choices = append(out.Choices, choiceView{
			ID: c.ID, Text: c.Text, Target: c.Target, Group: c.Group, Dead: c.Dead,
			Style: choiceStyleDTO{
				Background: c.Style.Background, Color: c.Style.Color, FontSize: c.Style.FontSize,
				Bold: c.Style.Bold, BorderRadius: c.Style.BorderRadius,
			},
		})
	}
	return out
}
