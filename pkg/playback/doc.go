// Package playback interprets a story project at read time.
//
// The state of playback is a single scene id. [Next] is the pure transition
// function: choosing a choice of the current scene moves to its target, and a
// choice without a valid target keeps the current scene. There is no notion
// of visited scenes or of a finished story; a scene without choices is simply
// a place the reader cannot leave.
//
// [Player] wraps Next with a current position, and [Render] produces the
// [View] of a scene: its title, body, own layers and choices.
//
// The same rules are implemented by the player script embedded in exported
// HTML documents, see package render/artifact.
package playback
