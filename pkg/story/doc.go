// Package story defines the scene graph of a branching interactive story and
// the store that mutates it.
//
// # Model
//
// A [Project] is an ordered sequence of [Scene] values plus a set of loose
// [Layer] values that sit directly on the canvas. Scenes own their layers and
// their [Choice] values exclusively. A choice points at another scene by id
// only; the reference is weak and never keeps a scene alive.
//
// Layers are a closed tagged variant selected by [LayerKind]: text layers
// carry rich-text content and a [TextStyle], image layers carry a source URL
// or data URL. Every layer has a stacking index of at least 1, and the layers
// of one owner are kept ordered by it, ties in creation order.
//
// # Store
//
// [Store] is the only mutator of a project. Each operation validates first
// and then commits, so a failed call never leaves a partial change behind:
//
//	s := story.NewStore(nil)
//	a := s.CreateScene()
//	b := s.CreateScene()
//	c, _ := s.AddChoice(a.ID)
//	_ = s.SetChoiceTarget(c.ID, b.ID)
//	s.DeleteScene(b.ID) // c survives with an empty target
//
// Geometry is committed with [Store.UpdateGeometry] once an interaction has
// finished; the store stores what it is given and does no clamping.
//
// # Defaults
//
// Missing or invalid fields are replaced silently by the ApplyDefaults
// methods. Only non-finite numbers count as missing geometry; font sizes of
// zero or below and stacking indexes below 1 are out of range as well.
package story
