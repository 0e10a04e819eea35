// Package mcp exposes an editing session as Model Context Protocol tools, so
// an assistant can read and write a story through `novella mcp`.
//
// Tools go through the same session as every other surface: each successful
// edit is autosaved, and tool errors come back as IsError results carrying
// the user-facing message rather than protocol errors.
package mcp

import (
	"context"

	"github.com/charmbracelet/log"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/matzehuels/novella/pkg/buildinfo"
	"github.com/matzehuels/novella/pkg/editor"
	"github.com/matzehuels/novella/pkg/pipeline"
)

// New builds an MCP server with every story tool registered.
func New(sess *editor.Session, runner *pipeline.Runner, logger *log.Logger) *sdk.Server {
	if logger == nil {
		logger = log.Default()
	}
	t := &Tools{Session: sess, Runner: runner, Logger: logger}

	srv := sdk.NewServer(&sdk.Implementation{
		Name:    "novella",
		Version: buildinfo.Version,
	}, nil)

	// Reading
	sdk.AddTool(srv, &sdk.Tool{
		Name:        "read_project",
		Description: "Return the whole project as a JSON document (scenes, choices, layers)",
	}, t.ReadProject)
	sdk.AddTool(srv, &sdk.Tool{
		Name:        "list_scenes",
		Description: "List scenes with their titles, a plain-text summary of the body and their choices",
	}, t.ListScenes)
	sdk.AddTool(srv, &sdk.Tool{
		Name:        "export",
		Description: "Render the project as html (standalone player), json, or dot (scene graph)",
	}, t.Export)

	// Scenes
	sdk.AddTool(srv, &sdk.Tool{
		Name:        "create_scene",
		Description: "Create a new scene with default title and body and return its id",
	}, t.CreateScene)
	sdk.AddTool(srv, &sdk.Tool{
		Name:        "update_scene",
		Description: "Change the title, body (simple HTML) or background color of a scene",
	}, t.UpdateScene)
	sdk.AddTool(srv, &sdk.Tool{
		Name:        "delete_scene",
		Description: "Delete a scene and its layers; choices pointing at it become dead ends",
	}, t.DeleteScene)

	// Choices
	sdk.AddTool(srv, &sdk.Tool{
		Name:        "add_choice",
		Description: "Add a choice to a scene and return its id",
	}, t.AddChoice)
	sdk.AddTool(srv, &sdk.Tool{
		Name:        "update_choice",
		Description: "Change the text, target scene or group of a choice; an empty target makes it a dead end",
	}, t.UpdateChoice)
	sdk.AddTool(srv, &sdk.Tool{
		Name:        "delete_choice",
		Description: "Delete a choice",
	}, t.DeleteChoice)

	// Layers
	sdk.AddTool(srv, &sdk.Tool{
		Name:        "add_layer",
		Description: "Add a text or image layer to a scene (or loose, when no scene is given) and return its id",
	}, t.AddLayer)
	sdk.AddTool(srv, &sdk.Tool{
		Name:        "update_layer",
		Description: "Change the content of a text layer or the source URL of an image layer",
	}, t.UpdateLayer)
	sdk.AddTool(srv, &sdk.Tool{
		Name:        "delete_layer",
		Description: "Delete a layer",
	}, t.DeleteLayer)

	// Playback
	sdk.AddTool(srv, &sdk.Tool{
		Name:        "play",
		Description: "Show the current playback scene, optionally following a choice or restarting first",
	}, t.Play)

	return srv
}

// Serve runs the server over stdio until ctx is cancelled or the client
// disconnects.
func Serve(ctx context.Context, srv *sdk.Server) error {
	return srv.Run(ctx, &sdk.StdioTransport{})
}
