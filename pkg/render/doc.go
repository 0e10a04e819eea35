// Package render groups the output formats of a story project.
//
//   - [storymap]: the scene graph as Graphviz DOT or SVG
//   - [artifact]: a single self-contained HTML page that plays the story
//
// Both are pure functions of a project snapshot; caching and format
// selection live in the pipeline package.
//
// [storymap]: github.com/matzehuels/novella/pkg/render/storymap
// [artifact]: github.com/matzehuels/novella/pkg/render/artifact
package render
