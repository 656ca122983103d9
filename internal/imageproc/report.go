package imageproc

import (
	"fmt"
	"math"

	"github.com/UnendingLoop/ListingImages/internal/model"
	"github.com/dustin/go-humanize"
)

// FormatFileSize renders a byte count for humans (1024-based units).
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(bytes))
}

// CompressionRatio is the saved share of the original size in whole percent.
func CompressionRatio(originalSize, compressedSize int64) int {
	if originalSize == 0 {
		return 0
	}
	return int(math.Round(float64(originalSize-compressedSize) / float64(originalSize) * 100))
}

// Report pairs sources with their compressed results. Both slices must have the same order,
// which CompressAll guarantees.
func Report(srcs []model.SourceImage, compressed []model.CompressedImage) model.CompressionReport {
	rep := model.CompressionReport{Files: make([]model.FileStats, 0, len(compressed))}

	for i, c := range compressed {
		orig := c.OriginalSize
		if i < len(srcs) && srcs[i].Size > 0 {
			orig = srcs[i].Size
		}
		rep.Files = append(rep.Files, model.FileStats{
			Name:           c.Name,
			OriginalSize:   orig,
			CompressedSize: c.Size,
			Width:          c.Width,
			Height:         c.Height,
		})
		rep.TotalOriginal += orig
		rep.TotalCompressed += c.Size
	}

	rep.RatioPercent = CompressionRatio(rep.TotalOriginal, rep.TotalCompressed)
	rep.Summary = fmt.Sprintf("%d image(s) compressed! Reduced by %d%%. Original: %s -> %s",
		len(rep.Files), rep.RatioPercent, FormatFileSize(rep.TotalOriginal), FormatFileSize(rep.TotalCompressed))

	return rep
}
