// Package imageproc prepares listing images for upload: dimension planning, resampling,
// JPEG encoding under a size budget and sequential batch compression.
package imageproc

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/UnendingLoop/ListingImages/internal/metrics"
	"github.com/UnendingLoop/ListingImages/internal/model"
	"github.com/UnendingLoop/ListingImages/internal/mwlogger"
)

// ProgressFunc receives the 1-based number of finished files and the batch size.
type ProgressFunc func(completed, total int)

type Compressor struct {
	defaults model.CompressionConfig
	encoder  *Encoder
}

func NewCompressor(defaults model.CompressionConfig) *Compressor {
	return &Compressor{defaults: defaults, encoder: NewEncoder()}
}

// Defaults returns the process-wide compression settings.
func (c *Compressor) Defaults() model.CompressionConfig {
	return c.defaults
}

// Compress decodes one source file, fits it into the configured bounds and re-encodes it.
func (c *Compressor) Compress(ctx context.Context, src model.SourceImage, override *model.CompressionOverride) (*model.CompressedImage, error) {
	cfg := c.defaults.Merge(override)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	img, err := Decode(src.Data)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	width, height := PlanDimensions(b.Dx(), b.Dy(), cfg.MaxWidth, cfg.MaxHeight)

	enc, err := c.encoder.Encode(img, width, height, cfg.Quality, cfg.MaxFileSize)
	if err != nil {
		return nil, err
	}

	metrics.RecordCompression(src.Size, int64(len(enc.Data)))

	logger := mwlogger.LoggerFromContext(ctx)
	if int64(len(enc.Data)) > cfg.MaxFileSize {
		logger.Warn().Str("file", src.Name).Int("size", len(enc.Data)).
			Int64("max_size", cfg.MaxFileSize).Msg("Image still exceeds size budget after quality step-down")
	}

	return &model.CompressedImage{
		Name:         CompressedName(src.Name),
		ContentType:  model.JPEG,
		Data:         enc.Data,
		Size:         int64(len(enc.Data)),
		OriginalSize: src.Size,
		Width:        enc.Width,
		Height:       enc.Height,
		Quality:      enc.Quality,
	}, nil
}

// CompressAll compresses files one by one in input order. The first failure aborts the
// batch and no partial result is returned.
func (c *Compressor) CompressAll(ctx context.Context, srcs []model.SourceImage, override *model.CompressionOverride, onProgress ProgressFunc) ([]model.CompressedImage, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	out := make([]model.CompressedImage, 0, len(srcs))

	for i, src := range srcs {
		res, err := c.Compress(ctx, src, override)
		if err != nil {
			logger.Error().Err(err).Str("file", src.Name).Msg("Failed to compress image")
			return nil, &model.FileError{Name: src.Name, Err: err}
		}
		out = append(out, *res)

		if onProgress != nil {
			onProgress(i+1, len(srcs))
		}
	}

	return out, nil
}

// CompressedName keeps the stem of the source file and switches the extension to .jpg.
func CompressedName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" || base == "" {
		base = "image"
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "image"
	}
	return stem + model.GetImageFileExt[model.JPEG]
}
