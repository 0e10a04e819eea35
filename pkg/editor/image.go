package editor

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	errs "github.com/matzehuels/novella/pkg/errors"
	"github.com/matzehuels/novella/pkg/story"
)

// MaxImageBytes bounds a single image intake. Images are embedded in the
// project document as data URLs.
const MaxImageBytes = 8 << 20

// Image is a decoded image ready for placement.
type Image struct {
	Src           string
	Format        string
	NaturalWidth  int
	NaturalHeight int
}

// DecodeImage reads the natural size of a PNG, JPEG, GIF, WebP or BMP image
// and encodes it as a data URL.
func DecodeImage(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, errs.New(errs.ErrCodeInvalidInput, "image is empty")
	}
	if len(data) > MaxImageBytes {
		return Image{}, errs.New(errs.ErrCodeInvalidInput, "image exceeds %d bytes", MaxImageBytes)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode image")
	}
	return Image{
		Src:           "data:image/" + format + ";base64," + base64.StdEncoding.EncodeToString(data),
		Format:        format,
		NaturalWidth:  cfg.Width,
		NaturalHeight: cfg.Height,
	}, nil
}

// ReadImage reads at most MaxImageBytes from r and decodes the result.
func ReadImage(r io.Reader) (Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return Image{}, errs.Wrap(errs.ErrCodeInvalidInput, err, "read image")
	}
	return DecodeImage(data)
}

// Placement says where a new image goes: into a scene, or loose on the
// canvas when SceneID is empty. Drop is in canvas coordinates; nil centers
// the image.
type Placement struct {
	SceneID string
	Drop    *story.Point
}

// PlaceImage commits one image layer and returns its id.
func (s *Session) PlaceImage(ctx context.Context, img Image, at Placement) (string, error) {
	var id string
	err := s.mutate(ctx, "image.place", func(st *story.Store) error {
		l, err := st.PlaceImage(story.ImagePlacement{
			Src:           img.Src,
			NaturalWidth:  float64(img.NaturalWidth),
			NaturalHeight: float64(img.NaturalHeight),
			SceneID:       at.SceneID,
			Drop:          at.Drop,
		})
		if err != nil {
			return err
		}
		id = l.ID
		return nil
	})
	return id, err
}

// ImageResult is the outcome of an asynchronous image intake.
type ImageResult struct {
	LayerID string
	Err     error
}

// PlaceImageAsync reads and decodes r without holding the session lock,
// then commits exactly one layer. The returned channel receives one result
// and is closed. Nothing is committed when reading or decoding fails.
func (s *Session) PlaceImageAsync(ctx context.Context, r io.Reader, at Placement) <-chan ImageResult {
	out := make(chan ImageResult, 1)
	go func() {
		defer close(out)
		img, err := ReadImage(r)
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			s.logger.Warn("image intake failed", "err", errs.UserMessage(err))
			out <- ImageResult{Err: err}
			return
		}
		id, err := s.PlaceImage(ctx, img, at)
		out <- ImageResult{LayerID: id, Err: err}
	}()
	return out
}
