// Package artifact exports a story project as one self-contained HTML file.
//
// The document carries a JSON snapshot of the project, written with package
// io, and a small player script. The script follows the same transition rules
// as package playback: a choice leads to its target scene, and a choice
// without an existing target keeps the reader where they are. The document
// loads nothing from the network or the file system.
//
//	html, err := artifact.RenderHTML(p, artifact.WithTitle("The Gate"))
//
// An empty project still produces a working document that shows a short
// empty-state message.
package artifact
