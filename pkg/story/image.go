package story

import (
	"math"

	errs "github.com/matzehuels/novella/pkg/errors"
)

// ImagePlacement is what the image intake pipeline delivers once a picture
// has been read and decoded: its source, its natural pixel size, the scene it
// was dropped on (empty for the canvas) and the drop point in canvas
// coordinates (nil when the image was added without a pointer position).
type ImagePlacement struct {
	Src           string
	NaturalWidth  float64
	NaturalHeight float64
	SceneID       string
	Drop          *Point
}

// FitImageSize scales a natural size down to fit inside maxW x maxH while
// keeping its aspect ratio. Images are never upscaled. Results are rounded to
// whole pixels. A missing natural size is treated as the placeholder size.
func FitImageSize(w, h, maxW, maxH float64) (float64, float64) {
	if !finite(w) || !finite(h) || w <= 0 || h <= 0 {
		w, h = DefaultImageWidth, DefaultImageHeight
	}
	ratio := min(maxW/w, maxH/h, 1)
	if !finite(ratio) || ratio <= 0 {
		ratio = 1
	}
	return math.Round(w * ratio), math.Round(h * ratio)
}

// ImageBox returns the bounding box an image placed on the scene must fit,
// or the loose box when sc is nil.
func ImageBox(sc *Scene) (float64, float64) {
	if sc == nil {
		return LooseImageBox, LooseImageBox
	}
	return max(sc.Width-sceneImageInsetX, 1), max(sc.Height-sceneImageInsetY, 1)
}

// PlaceImage commits one image layer for a finished intake. Inside a scene
// the image is centered on the drop point (converted to scene coordinates) or
// on the scene, never starting above or left of the scene's origin. Loose
// images are centered on the drop point or the canvas and kept inside the
// canvas. Nothing is committed when the placement is rejected.
func (s *Store) PlaceImage(in ImagePlacement) (*Layer, error) {
	if err := errs.ValidateImageSource(in.Src); err != nil {
		return nil, err
	}

	var owner *Scene
	if in.SceneID != "" {
		sc, err := s.mustScene(in.SceneID)
		if err != nil {
			return nil, err
		}
		owner = sc
	}

	boxW, boxH := ImageBox(owner)
	w, h := FitImageSize(in.NaturalWidth, in.NaturalHeight, boxW, boxH)

	var x, y float64
	if owner != nil {
		cx, cy := owner.Width/2, owner.Height/2
		if in.Drop != nil {
			cx, cy = in.Drop.X-owner.X, in.Drop.Y-owner.Y
		}
		x = max(0, math.Round(cx-w/2))
		y = max(0, math.Round(cy-h/2))
	} else {
		cx, cy := s.canvas.Width/2, s.canvas.Height/2
		if in.Drop != nil {
			cx, cy = in.Drop.X, in.Drop.Y
		}
		x = clamp(math.Round(cx-w/2), 0, s.canvas.Width-w)
		y = clamp(math.Round(cy-h/2), 0, s.canvas.Height-h)
	}

	l := &Layer{
		ID:     s.newID(),
		Kind:   LayerImage,
		Rect:   Rect{X: x, Y: y, Width: w, Height: h},
		ZIndex: len(*s.ownerLayers(owner)) + 1,
		Src:    in.Src,
	}
	s.attach(owner, l)
	return l, nil
}

// clamp keeps v in [lo, hi]; when the range is empty lo wins.
func clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
