package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/UnendingLoop/ListingImages/internal/model"
	"github.com/disintegration/imaging"

	// дополнительные форматы исходников, которые умеет открыть браузер
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode reads any registered image format and applies EXIF orientation.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", model.ErrDecode)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDecode, err)
	}
	return img, nil
}

// Resample draws img into a new width x height canvas with Lanczos filtering. JPEG has no
// alpha channel, so the result is composed over an opaque white background.
func Resample(img image.Image, width, height int) *image.NRGBA {
	var resized *image.NRGBA
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		resized = imaging.Clone(img)
	} else {
		resized = imaging.Resize(img, width, height, imaging.Lanczos)
	}

	canvas := imaging.New(width, height, color.White)
	return imaging.Overlay(canvas, resized, image.Pt(0, 0), 1.0)
}
