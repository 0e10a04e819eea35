// Package storymap draws the scene graph of a project as a diagram.
//
// Scenes become boxes and choices with a target become labeled arrows, so
// an author can see every connection at once:
//
//	dot := storymap.ToDOT(p, storymap.Options{Detailed: true})
//	svg, err := storymap.RenderSVG(ctx, dot)
//
// Rendering uses Graphviz compiled to WebAssembly, so no external binary is
// needed. Choices that lead nowhere are not drawn as edges; detailed labels
// list them under their scene instead.
package storymap
