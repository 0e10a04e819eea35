// Package editor serializes edits to one story project and keeps its
// stored copy current.
//
// A [Session] wraps a [story.Store] with a mutex and a [storage.Store].
// Every mutation (scene, choice, layer, geometry, image placement or a
// whole-project replace) runs to completion under the lock, and the full
// document is written to storage before the call returns. The HTTP server,
// the MCP server and the CLI all edit through a Session.
//
// # Opening
//
//	backend, _ := storage.Open(ctx, "sqlite:///tmp/novella.db")
//	sess, err := editor.Open(ctx, backend, "my-story", editor.WithLogger(logger))
//
// A missing project starts empty and is logged at warn level. So does a
// stored document that cannot be parsed: editing never blocks on a broken
// file. Legacy document shapes are upgraded on load.
//
// # Images
//
// [Session.PlaceImageAsync] reads and decodes an image off the lock, then
// commits exactly one image layer. Natural sizes come from the image header
// (PNG, JPEG, GIF, WebP, BMP); the image itself is stored as a data URL.
//
// # Playback
//
// The session also owns a [playback.Player] over the live project, so a
// reader sees edits as soon as they are committed.
package editor
