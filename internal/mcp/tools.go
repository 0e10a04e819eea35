package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/matzehuels/novella/pkg/editor"
	errs "github.com/matzehuels/novella/pkg/errors"
	"github.com/matzehuels/novella/pkg/pipeline"
	"github.com/matzehuels/novella/pkg/playback"
	"github.com/matzehuels/novella/pkg/render/storymap"
	"github.com/matzehuels/novella/pkg/richtext"
	"github.com/matzehuels/novella/pkg/story"
)

const summaryLen = 120

// Tools holds what the tool handlers need.
type Tools struct {
	Session *editor.Session
	Runner  *pipeline.Runner
	Logger  *log.Logger
}

// --- Input types ---

type IDInput struct {
	ID string `json:"id" jsonschema:"id of the scene, choice or layer"`
}

type UpdateSceneInput struct {
	ID         string  `json:"id" jsonschema:"scene id"`
	Title      *string `json:"title,omitempty" jsonschema:"new title"`
	Body       *string `json:"body,omitempty" jsonschema:"new body; simple HTML (b, i, u, br) is kept"`
	Background *string `json:"background,omitempty" jsonschema:"CSS background color such as #1a1a2e"`
}

type AddChoiceInput struct {
	Scene string `json:"scene" jsonschema:"id of the scene the choice belongs to"`
}

type UpdateChoiceInput struct {
	ID     string  `json:"id" jsonschema:"choice id"`
	Text   *string `json:"text,omitempty" jsonschema:"button text"`
	Target *string `json:"target,omitempty" jsonschema:"id of the scene the choice leads to; empty for a dead end"`
	Group  *string `json:"group,omitempty" jsonschema:"optional group label"`
}

type AddLayerInput struct {
	Type  string `json:"type" jsonschema:"layer type: text or image"`
	Scene string `json:"scene,omitempty" jsonschema:"owning scene id; omit for a loose layer"`
}

type UpdateLayerInput struct {
	ID      string  `json:"id" jsonschema:"layer id"`
	Content *string `json:"content,omitempty" jsonschema:"text layer content; simple HTML is kept"`
	Src     *string `json:"src,omitempty" jsonschema:"image layer source: an http(s) URL or a data:image URL"`
}

type PlayInput struct {
	Choice  string `json:"choice,omitempty" jsonschema:"id of a choice of the current scene to follow"`
	Restart bool   `json:"restart,omitempty" jsonschema:"go back to the first scene before showing"`
}

type ExportInput struct {
	Format string `json:"format" jsonschema:"html, json or dot"`
	Title  string `json:"title,omitempty" jsonschema:"document title for html exports"`
}

// --- Output types ---

type sceneSummary struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Summary string          `json:"summary"`
	Layers  int             `json:"layers"`
	Choices []choiceSummary `json:"choices"`
}

type choiceSummary struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Target string `json:"target,omitempty"`
}

type playView struct {
	Scene    string          `json:"scene,omitempty"`
	Title    string          `json:"title,omitempty"`
	Text     string          `json:"text,omitempty"`
	Moved    *bool           `json:"moved,omitempty"`
	Terminal bool            `json:"terminal"`
	Choices  []choiceSummary `json:"choices"`
}

// --- Handlers ---

func (t *Tools) ReadProject(_ context.Context, _ *sdk.CallToolRequest, _ struct{}) (*sdk.CallToolResult, any, error) {
	data, err := t.Session.Document()
	if err != nil {
		return toolErr(err), nil, nil
	}
	return toolText(string(data)), nil, nil
}

func (t *Tools) ListScenes(_ context.Context, _ *sdk.CallToolRequest, _ struct{}) (*sdk.CallToolResult, any, error) {
	var out []sceneSummary
	t.Session.Read(func(st *story.Store) {
		out = make([]sceneSummary, 0, len(st.Scenes()))
		for _, sc := range st.Scenes() {
			s := sceneSummary{
				ID:      sc.ID,
				Title:   storymap.SceneTitle(sc),
				Summary: richtext.Summary(sc.Body, summaryLen),
				Layers:  len(sc.Layers),
				Choices: make([]choiceSummary, 0, len(sc.Choices)),
			}
			for _, c := range sc.Choices {
				s.Choices = append(s.Choices, choiceSummary{ID: c.ID, Text: c.Text, Target: c.Target})
			}
			out = append(out, s)
		}
	})
	return toolJSON(out)
}

func (t *Tools) Export(ctx context.Context, _ *sdk.CallToolRequest, in ExportInput) (*sdk.CallToolResult, any, error) {
	if in.Format == pipeline.FormatSVG {
		return toolError("svg is not available over MCP; use dot or html"), nil, nil
	}
	data, _, err := t.Runner.Render(ctx, t.Session.Snapshot(), in.Format, pipeline.Options{Title: in.Title, Logger: t.Logger})
	if err != nil {
		return toolErr(err), nil, nil
	}
	return toolText(string(data)), nil, nil
}

func (t *Tools) CreateScene(ctx context.Context, _ *sdk.CallToolRequest, _ struct{}) (*sdk.CallToolResult, any, error) {
	id, err := t.Session.CreateScene(ctx)
	if err != nil {
		return toolErr(err), nil, nil
	}
	return toolJSON(map[string]string{"id": id})
}

func (t *Tools) UpdateScene(ctx context.Context, _ *sdk.CallToolRequest, in UpdateSceneInput) (*sdk.CallToolResult, any, error) {
	err := t.Session.UpdateScene(ctx, in.ID, editor.SceneUpdate{
		Title:      in.Title,
		Body:       in.Body,
		Background: in.Background,
	})
	return done(err, "updated scene %s", in.ID)
}

func (t *Tools) DeleteScene(ctx context.Context, _ *sdk.CallToolRequest, in IDInput) (*sdk.CallToolResult, any, error) {
	return done(t.Session.DeleteScene(ctx, in.ID), "deleted scene %s", in.ID)
}

func (t *Tools) AddChoice(ctx context.Context, _ *sdk.CallToolRequest, in AddChoiceInput) (*sdk.CallToolResult, any, error) {
	id, err := t.Session.AddChoice(ctx, in.Scene)
	if err != nil {
		return toolErr(err), nil, nil
	}
	return toolJSON(map[string]string{"id": id})
}

func (t *Tools) UpdateChoice(ctx context.Context, _ *sdk.CallToolRequest, in UpdateChoiceInput) (*sdk.CallToolResult, any, error) {
	err := t.Session.UpdateChoice(ctx, in.ID, editor.ChoiceUpdate{
		Text:   in.Text,
		Target: in.Target,
		Group:  in.Group,
	})
	return done(err, "updated choice %s", in.ID)
}

func (t *Tools) DeleteChoice(ctx context.Context, _ *sdk.CallToolRequest, in IDInput) (*sdk.CallToolResult, any, error) {
	return done(t.Session.DeleteChoice(ctx, in.ID), "deleted choice %s", in.ID)
}

func (t *Tools) AddLayer(ctx context.Context, _ *sdk.CallToolRequest, in AddLayerInput) (*sdk.CallToolResult, any, error) {
	id, err := t.Session.AddLayer(ctx, story.LayerKind(in.Type), in.Scene)
	if err != nil {
		return toolErr(err), nil, nil
	}
	return toolJSON(map[string]string{"id": id})
}

func (t *Tools) UpdateLayer(ctx context.Context, _ *sdk.CallToolRequest, in UpdateLayerInput) (*sdk.CallToolResult, any, error) {
	err := t.Session.UpdateLayer(ctx, in.ID, editor.LayerUpdate{Content: in.Content, Src: in.Src})
	return done(err, "updated layer %s", in.ID)
}

func (t *Tools) DeleteLayer(ctx context.Context, _ *sdk.CallToolRequest, in IDInput) (*sdk.CallToolResult, any, error) {
	return done(t.Session.DeleteLayer(ctx, in.ID), "deleted layer %s", in.ID)
}

func (t *Tools) Play(_ context.Context, _ *sdk.CallToolRequest, in PlayInput) (*sdk.CallToolResult, any, error) {
	var (
		v     playback.View
		moved *bool
	)
	if in.Restart {
		v = t.Session.Restart()
	}
	if in.Choice != "" {
		next, ok, err := t.Session.Choose(in.Choice)
		if err != nil {
			return toolErr(err), nil, nil
		}
		v, moved = next, &ok
	} else if !in.Restart {
		v = t.Session.Play()
	}
	if v.Empty {
		return toolText("The project has no scenes yet. Use create_scene first."), nil, nil
	}

	out := playView{
		Scene:    v.SceneID,
		Title:    v.Title,
		Text:     richtext.PlainText(v.Body),
		Moved:    moved,
		Terminal: v.Terminal(),
		Choices:  make([]choiceSummary, 0, len(v.Choices)),
	}
	for _, c := range v.Choices {
		out.Choices = append(out.Choices, choiceSummary{ID: c.ID, Text: c.Text, Target: c.Target})
	}
	return toolJSON(out)
}

// --- Results ---

func toolText(text string) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: text}},
	}
}

func toolError(format string, args ...any) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolErr(err error) *sdk.CallToolResult {
	return toolError("%s", errs.UserMessage(err))
}

func toolJSON(v any) (*sdk.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("marshal result: %v", err), nil, nil
	}
	return toolText(string(data)), nil, nil
}

func done(err error, format string, args ...any) (*sdk.CallToolResult, any, error) {
	if err != nil {
		return toolErr(err), nil, nil
	}
	return toolText(fmt.Sprintf(format, args...)), nil, nil
}
