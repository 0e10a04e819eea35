package mcp

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/matzehuels/novella/pkg/editor"
	"github.com/matzehuels/novella/pkg/pipeline"
	"github.com/matzehuels/novella/pkg/storage"
)

// connect starts a server over in-memory transports and returns a client
// session for it.
func connect(t *testing.T) (*sdk.ClientSession, *storage.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	logger := log.New(io.Discard)
	backend := storage.NewMemoryStore()
	sess, err := editor.Open(ctx, backend, "demo", editor.WithLogger(logger))
	if err != nil {
		t.Fatalf("editor.Open: %v", err)
	}
	srv := New(sess, pipeline.NewRunner(nil, nil, logger), logger)

	clientTransport, serverTransport := sdk.NewInMemoryTransports()
	if _, err := srv.Connect(ctx, serverTransport, nil); err != nil {
		t.Fatalf("server connect: %v", err)
	}
	client := sdk.NewClient(&sdk.Implementation{Name: "test-client"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { _ = cs.Close() })
	return cs, backend
}

func call(t *testing.T, cs *sdk.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &sdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if len(res.Content) == 0 {
		t.Fatalf("CallTool(%s): empty content", name)
	}
	tc, ok := res.Content[0].(*sdk.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): content is %T", name, res.Content[0])
	}
	return tc.Text, res.IsError
}

func mustCall(t *testing.T, cs *sdk.ClientSession, name string, args map[string]any) string {
	t.Helper()
	text, isErr := call(t, cs, name, args)
	if isErr {
		t.Fatalf("CallTool(%s) failed: %s", name, text)
	}
	return text
}

func newID(t *testing.T, text string) string {
	t.Helper()
	var out map[string]string
	if err := json.Unmarshal([]byte(text), &out); err != nil || out["id"] == "" {
		t.Fatalf("no id in %q: %v", text, err)
	}
	return out["id"]
}

func TestListTools(t *testing.T) {
	cs, _ := connect(t)
	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	got := make(map[string]bool)
	for _, tool := range res.Tools {
		got[tool.Name] = true
	}
	for _, name := range []string{
		"read_project", "list_scenes", "export",
		"create_scene", "update_scene", "delete_scene",
		"add_choice", "update_choice", "delete_choice",
		"add_layer", "update_layer", "delete_layer",
		"play",
	} {
		if !got[name] {
			t.Errorf("tool %q not registered", name)
		}
	}
}

func TestWriteAndPlay(t *testing.T) {
	cs, backend := connect(t)

	if text := mustCall(t, cs, "play", nil); !strings.Contains(text, "no scenes") {
		t.Errorf("empty play = %q", text)
	}

	shore := newID(t, mustCall(t, cs, "create_scene", nil))
	cliff := newID(t, mustCall(t, cs, "create_scene", nil))
	mustCall(t, cs, "update_scene", map[string]any{"id": shore, "title": "Shore", "body": "<p>The <b>tide</b> rises.</p>"})
	choice := newID(t, mustCall(t, cs, "add_choice", map[string]any{"scene": shore}))
	mustCall(t, cs, "update_choice", map[string]any{"id": choice, "text": "Climb", "target": cliff})

	var scenes []sceneSummary
	if err := json.Unmarshal([]byte(mustCall(t, cs, "list_scenes", nil)), &scenes); err != nil {
		t.Fatal(err)
	}
	if len(scenes) != 2 || scenes[0].Title != "Shore" || scenes[0].Summary != "The tide rises." {
		t.Fatalf("scenes = %+v", scenes)
	}
	if len(scenes[0].Choices) != 1 || scenes[0].Choices[0].Target != cliff {
		t.Errorf("choices = %+v", scenes[0].Choices)
	}

	var view playView
	if err := json.Unmarshal([]byte(mustCall(t, cs, "play", map[string]any{"choice": choice})), &view); err != nil {
		t.Fatal(err)
	}
	if view.Scene != cliff || view.Moved == nil || !*view.Moved || !view.Terminal {
		t.Errorf("after choice = %+v", view)
	}
	if err := json.Unmarshal([]byte(mustCall(t, cs, "play", map[string]any{"restart": true})), &view); err != nil {
		t.Fatal(err)
	}
	if view.Scene != shore || view.Text != "The tide rises." {
		t.Errorf("after restart = %+v", view)
	}

	if _, err := backend.Load(context.Background(), "demo"); err != nil {
		t.Errorf("tool edits were not autosaved: %v", err)
	}
	if doc := mustCall(t, cs, "read_project", nil); !strings.Contains(doc, `"Shore"`) {
		t.Errorf("read_project = %s", doc)
	}
}

func TestLayerTools(t *testing.T) {
	cs, _ := connect(t)
	scene := newID(t, mustCall(t, cs, "create_scene", nil))
	text := newID(t, mustCall(t, cs, "add_layer", map[string]any{"type": "text", "scene": scene}))
	img := newID(t, mustCall(t, cs, "add_layer", map[string]any{"type": "image", "scene": scene}))

	mustCall(t, cs, "update_layer", map[string]any{"id": text, "content": "Hello"})
	mustCall(t, cs, "update_layer", map[string]any{"id": img, "src": "https://example.com/a.png"})

	if msg, isErr := call(t, cs, "update_layer", map[string]any{"id": img, "src": "javascript:alert(1)"}); !isErr {
		t.Errorf("unsafe src accepted: %s", msg)
	}
	if msg, isErr := call(t, cs, "update_layer", map[string]any{"id": img, "content": "nope"}); !isErr {
		t.Errorf("content on image layer accepted: %s", msg)
	}
	if msg, isErr := call(t, cs, "add_layer", map[string]any{"type": "video"}); !isErr {
		t.Errorf("unknown layer type accepted: %s", msg)
	}
	mustCall(t, cs, "delete_layer", map[string]any{"id": text})
}

func TestToolErrors(t *testing.T) {
	cs, _ := connect(t)
	tests := []struct {
		tool string
		args map[string]any
		want string
	}{
		{"delete_scene", map[string]any{"id": "ghost"}, "not found"},
		{"add_choice", map[string]any{"scene": "ghost"}, "not found"},
		{"delete_choice", map[string]any{"id": "ghost"}, "not found"},
		{"export", map[string]any{"format": "pdf"}, "pdf"},
		{"export", map[string]any{"format": "svg"}, "not available"},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			msg, isErr := call(t, cs, tt.tool, tt.args)
			if !isErr {
				t.Fatalf("expected an error result, got %q", msg)
			}
			if !strings.Contains(msg, tt.want) {
				t.Errorf("message = %q, want it to contain %q", msg, tt.want)
			}
		})
	}
}

func TestExportTool(t *testing.T) {
	cs, _ := connect(t)
	mustCall(t, cs, "create_scene", nil)

	if html := mustCall(t, cs, "export", map[string]any{"format": "html", "title": "Tide"}); !strings.Contains(html, "<title>Tide</title>") {
		t.Errorf("html export missing title: %.200s", html)
	}
	if dot := mustCall(t, cs, "export", map[string]any{"format": "dot"}); !strings.HasPrefix(dot, "digraph") {
		t.Errorf("dot export = %.80s", dot)
	}
}
