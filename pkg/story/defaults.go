package story

import "math"

// Scene defaults.
const (
	DefaultSceneTitle      = "New scene"
	DefaultSceneBody       = "Double-click to edit the text..."
	DefaultSceneBackground = "#ffffff"
	DefaultSceneWidth      = 260
	DefaultSceneHeight     = 240

	// sceneOrigin and sceneStep place the n-th created scene at
	// (origin + n*step, origin + n*step).
	sceneOrigin = 60
	sceneStep   = 40
)

// Text layer defaults.
const (
	DefaultTextContent = "New text"
	DefaultFontFamily  = "default"
	DefaultFontSize    = 16
	DefaultTextColor   = "#0f172a"
	DefaultZIndex      = 1
	DefaultTextWidth   = 160
	DefaultTextHeight  = 50
	DefaultTextX       = 20
	DefaultTextY       = 150
)

// Image layer defaults.
const (
	DefaultImageWidth  = 180
	DefaultImageHeight = 140
	DefaultImageX      = 40
	DefaultImageY      = 150

	// LooseImageBox bounds images placed directly on the canvas.
	LooseImageBox = 220
	// sceneImageInsetX and sceneImageInsetY shrink a scene's size into the
	// box an image dropped on that scene must fit.
	sceneImageInsetX = 40
	sceneImageInsetY = 60
)

// Choice defaults. New choices get the creation values; the fallbacks fill
// fields missing from loaded documents.
const (
	DefaultChoiceText         = "New choice"
	DefaultChoiceBackground   = "#2563eb"
	DefaultChoiceColor        = "#ffffff"
	DefaultChoiceFontSize     = 16
	DefaultChoiceX            = 20
	DefaultChoiceWidth        = 170
	DefaultChoiceHeight       = 50
	DefaultChoiceBorderRadius = 12

	choiceBaseY = 110
	choiceStepY = 60
	fallbackY   = 120
	fallbackW   = 150
	fallbackH   = 48
	fallbackRad = 10
)

// Default canvas size used when loose elements are centered on the canvas
// and no real viewport size is known.
const (
	DefaultCanvasWidth  = 1280
	DefaultCanvasHeight = 800
)

// finite reports whether f is a usable number (not NaN or ±Inf).
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func orFloat(v, def float64) float64 {
	if !finite(v) {
		return def
	}
	return v
}

func positiveOr(v, def float64) float64 {
	if !finite(v) || v <= 0 {
		return def
	}
	return v
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// ApplyDefaults replaces invalid fields of a scene and recurses into its
// layers and choices.
func (s *Scene) ApplyDefaults() {
	s.X = orFloat(s.X, sceneOrigin)
	s.Y = orFloat(s.Y, sceneOrigin)
	s.Width = orFloat(s.Width, DefaultSceneWidth)
	s.Height = orFloat(s.Height, DefaultSceneHeight)
	s.Background = orString(s.Background, DefaultSceneBackground)
	if s.Layers == nil {
		s.Layers = []*Layer{}
	}
	if s.Choices == nil {
		s.Choices = []*Choice{}
	}
	for _, l := range s.Layers {
		l.ApplyDefaults()
	}
	for _, c := range s.Choices {
		c.ApplyDefaults()
	}
}

// ApplyDefaults replaces invalid fields of a layer with their defaults.
// Kinds outside the closed set are treated as text.
func (l *Layer) ApplyDefaults() {
	if l.ZIndex < 1 {
		l.ZIndex = DefaultZIndex
	}
	switch l.Kind {
	case LayerImage:
		l.X = orFloat(l.X, DefaultImageX)
		l.Y = orFloat(l.Y, DefaultImageY)
		l.Width = orFloat(l.Width, DefaultImageWidth)
		l.Height = orFloat(l.Height, DefaultImageHeight)
	default:
		l.Kind = LayerText
		l.X = orFloat(l.X, DefaultTextX)
		l.Y = orFloat(l.Y, DefaultTextY)
		l.Width = orFloat(l.Width, DefaultTextWidth)
		l.Height = orFloat(l.Height, DefaultTextHeight)
		l.Style.ApplyDefaults()
	}
}

// ApplyDefaults replaces invalid typography fields.
func (t *TextStyle) ApplyDefaults() {
	t.FontFamily = orString(t.FontFamily, DefaultFontFamily)
	t.FontSize = positiveOr(t.FontSize, DefaultFontSize)
	t.Color = orString(t.Color, DefaultTextColor)
}

// ApplyDefaults replaces invalid fields of a choice with their defaults.
// Geometry is only replaced when missing or non-finite, never clamped.
func (c *Choice) ApplyDefaults() {
	c.X = orFloat(c.X, DefaultChoiceX)
	c.Y = orFloat(c.Y, fallbackY)
	c.Width = orFloat(c.Width, fallbackW)
	c.Height = orFloat(c.Height, fallbackH)
	c.Style.Background = orString(c.Style.Background, DefaultChoiceBackground)
	c.Style.Color = orString(c.Style.Color, DefaultChoiceColor)
	c.Style.FontSize = positiveOr(c.Style.FontSize, DefaultChoiceFontSize)
	c.Style.BorderRadius = orFloat(c.Style.BorderRadius, fallbackRad)
}

// DefaultTextStyle returns the typography of a freshly created text layer.
func DefaultTextStyle() TextStyle {
	return TextStyle{
		FontFamily: DefaultFontFamily,
		FontSize:   DefaultFontSize,
		Color:      DefaultTextColor,
	}
}

// DefaultChoiceStyle returns the style of a freshly created choice.
func DefaultChoiceStyle() ChoiceStyle {
	return ChoiceStyle{
		Background:   DefaultChoiceBackground,
		Color:        DefaultChoiceColor,
		FontSize:     DefaultChoiceFontSize,
		Bold:         true,
		BorderRadius: DefaultChoiceBorderRadius,
	}
}
