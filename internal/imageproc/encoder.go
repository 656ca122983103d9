package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"github.com/UnendingLoop/ListingImages/internal/model"
	"github.com/disintegration/imaging"
)

// FallbackQualityFactor is applied once when the first encoding exceeds the size budget.
const FallbackQualityFactor = 0.8

// Encoded is the output of a single Encoder run.
type Encoded struct {
	Data    []byte
	Width   int
	Height  int
	Quality float64 // quality the returned bytes were produced at
}

type encodeFunc func(img image.Image, jpegQuality int) ([]byte, error)

// Encoder resamples and JPEG-encodes images under a byte budget.
type Encoder struct {
	encode encodeFunc
}

func NewEncoder() *Encoder {
	return &Encoder{encode: encodeJPEG}
}

// Encode resizes img to width x height and encodes it at quality. When the result is larger
// than maxFileSize it is re-encoded once at quality*0.8 and returned whatever its size.
func (e *Encoder) Encode(img image.Image, width, height int, quality float64, maxFileSize int64) (*Encoded, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image provided to Encoder", model.ErrEncoding)
	}

	canvas := Resample(img, width, height)

	data, err := e.encodeOnce(canvas, quality)
	if err != nil {
		return nil, err
	}

	if int64(len(data)) > maxFileSize {
		quality *= FallbackQualityFactor
		data, err = e.encodeOnce(canvas, quality)
		if err != nil {
			return nil, fmt.Errorf("failed to compress image to desired file size: %w", err)
		}
	}

	return &Encoded{Data: data, Width: width, Height: height, Quality: quality}, nil
}

func (e *Encoder) encodeOnce(img image.Image, quality float64) ([]byte, error) {
	data, err := e.encode(img, JPEGQuality(quality))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrEncoding, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty output at quality %.2f", model.ErrEncoding, quality)
	}
	return data, nil
}

// JPEGQuality maps a (0,1] quality onto the 1..100 JPEG scale.
func JPEGQuality(q float64) int {
	v := int(math.Round(q * 100))
	switch {
	case v < 1:
		return 1
	case v > 100:
		return 100
	}
	return v
}

func encodeJPEG(img image.Image, jpegQuality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
