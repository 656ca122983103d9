package model

import "fmt"

// SourceImage is a user-supplied file before compression.
type SourceImage struct {
	Name string
	Data []byte
	Size int64 // declared size, may differ from len(Data)
}

// CompressedImage is a re-encoded JPEG ready for upload.
type CompressedImage struct {
	Name         string
	ContentType  string
	Data         []byte
	Size         int64
	OriginalSize int64
	Width        int
	Height       int
	Quality      float64
}

const (
	DefaultMaxWidth    = 2160
	DefaultMaxHeight   = 2160
	DefaultQuality     = 1.0
	DefaultMaxFileSize = 2 * 1024 * 1024
)

// CompressionConfig is built once at startup and passed into every compression call.
type CompressionConfig struct {
	MaxWidth    int     `json:"max_width"`
	MaxHeight   int     `json:"max_height"`
	Quality     float64 `json:"quality"`
	MaxFileSize int64   `json:"max_file_size"`
}

// CompressionOverride holds per-call changes; nil fields keep the defaults.
type CompressionOverride struct {
	MaxWidth    *int
	MaxHeight   *int
	Quality     *float64
	MaxFileSize *int64
}

func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MaxWidth:    DefaultMaxWidth,
		MaxHeight:   DefaultMaxHeight,
		Quality:     DefaultQuality,
		MaxFileSize: DefaultMaxFileSize,
	}
}

// Merge returns a copy of c with the fields set in o replaced.
func (c CompressionConfig) Merge(o *CompressionOverride) CompressionConfig {
	if o == nil {
		return c
	}
	if o.MaxWidth != nil {
		c.MaxWidth = *o.MaxWidth
	}
	if o.MaxHeight != nil {
		c.MaxHeight = *o.MaxHeight
	}
	if o.Quality != nil {
		c.Quality = *o.Quality
	}
	if o.MaxFileSize != nil {
		c.MaxFileSize = *o.MaxFileSize
	}
	return c
}

func (c CompressionConfig) Validate() error {
	switch {
	case c.MaxWidth <= 0:
		return fmt.Errorf("%w: max width must be positive, got %d", ErrInvalidConfig, c.MaxWidth)
	case c.MaxHeight <= 0:
		return fmt.Errorf("%w: max height must be positive, got %d", ErrInvalidConfig, c.MaxHeight)
	case !(c.Quality > 0 && c.Quality <= 1): // NaN тоже сюда
		return fmt.Errorf("%w: quality must be in (0,1], got %v", ErrInvalidConfig, c.Quality)
	case c.MaxFileSize <= 0:
		return fmt.Errorf("%w: max file size must be positive, got %d", ErrInvalidConfig, c.MaxFileSize)
	}
	return nil
}

//--------------------

type FileStats struct {
	Name           string `json:"name"`
	OriginalSize   int64  `json:"original_size"`
	CompressedSize int64  `json:"compressed_size"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

// CompressionReport summarises a batch compression.
type CompressionReport struct {
	Files           []FileStats `json:"files"`
	TotalOriginal   int64       `json:"total_original"`
	TotalCompressed int64       `json:"total_compressed"`
	RatioPercent    int         `json:"ratio_percent"`
	Summary         string      `json:"summary"`
}
