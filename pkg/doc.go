// Package pkg holds the libraries behind Novella, a workbench for branching
// visual stories.
//
// # Overview
//
// A project is a set of scenes connected by choices. Scenes carry a title,
// a rich-text body, a background and stacked text or image layers; layers
// can also float loose on the editor canvas. The packages are organized as:
//
//  1. [story] - The data model and the store that enforces its invariants
//  2. [io] - The JSON project document, including legacy layouts
//  3. [editor] - An editing session that autosaves every change
//  4. [playback] - Following choices from scene to scene
//  5. [render] - Story maps and the standalone HTML player
//  6. [pipeline] - Cached exports shared by the CLI and the server
//  7. [storage], [cache] - Persistence backends and the export cache
//
// # Data Flow
//
//	stored document
//	      ↓
//	 [io] Unmarshal (normalize legacy layouts)
//	      ↓
//	 [editor] Session ⇄ [story] Store  (mutations, autosave)
//	      ↓
//	 [playback] / [pipeline] → HTML, JSON, DOT, SVG
//
// # Quick Start
//
//	backend, _ := storage.Open(ctx, "file:///tmp/novella")
//	sess, _ := editor.Open(ctx, backend, "lighthouse")
//	id, _ := sess.CreateScene(ctx)
//	title := "The Lighthouse"
//	_ = sess.UpdateScene(ctx, id, editor.SceneUpdate{Title: &title})
//	view := sess.Play()
//
// [story]: https://pkg.go.dev/github.com/matzehuels/novella/pkg/story
// [io]: https://pkg.go.dev/github.com/matzehuels/novella/pkg/io
// [editor]: https://pkg.go.dev/github.com/matzehuels/novella/pkg/editor
// [playback]: https://pkg.go.dev/github.com/matzehuels/novella/pkg/playback
// [render]: https://pkg.go.dev/github.com/matzehuels/novella/pkg/render
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/novella/pkg/pipeline
// [storage]: https://pkg.go.dev/github.com/matzehuels/novella/pkg/storage
// [cache]: https://pkg.go.dev/github.com/matzehuels/novella/pkg/cache
package pkg
