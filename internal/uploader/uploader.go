// Package uploader compresses listing images and stores them in the primary provider,
// falling back to the secondary one when the primary reports a quota-class failure.
package uploader

import (
	"context"
	"errors"

	"github.com/UnendingLoop/ListingImages/internal/metrics"
	"github.com/UnendingLoop/ListingImages/internal/model"
	"github.com/UnendingLoop/ListingImages/internal/mwlogger"
	"github.com/UnendingLoop/ListingImages/internal/storage"
)

// FallbackMessage is shown to the user once per batch that switched to the secondary provider.
const FallbackMessage = "Primary storage limit reached. Uploading via CDN instead."

type ImageCompressor interface {
	Compress(ctx context.Context, src model.SourceImage, override *model.CompressionOverride) (*model.CompressedImage, error)
}

// Notifier receives non-fatal user-facing notices.
type Notifier interface {
	Notify(ctx context.Context, msg string)
}

type logNotifier struct{}

func (logNotifier) Notify(ctx context.Context, msg string) {
	logger := mwlogger.LoggerFromContext(ctx)
	logger.Warn().Msg(msg)
}

type Uploader struct {
	compressor         ImageCompressor
	primary            storage.Provider
	secondary          storage.Provider
	secondaryAsPrimary bool
	notifier           Notifier
}

// New builds an orchestrator. A nil notifier logs notices at warn level.
func New(c ImageCompressor, primary, secondary storage.Provider, secondaryAsPrimary bool, n Notifier) (*Uploader, error) {
	if c == nil || secondary == nil {
		return nil, errors.New("uploader: compressor and secondary provider are required")
	}
	if primary == nil && !secondaryAsPrimary {
		return nil, errors.New("uploader: primary provider is required unless CDN is primary")
	}
	if n == nil {
		n = logNotifier{}
	}

	return &Uploader{
		compressor:         c,
		primary:            primary,
		secondary:          secondary,
		secondaryAsPrimary: secondaryAsPrimary,
		notifier:           n,
	}, nil
}

// Upload compresses one file with default settings and stores it. onFallback is called
// right before the secondary provider is tried after a quota-class primary failure.
func (u *Uploader) Upload(ctx context.Context, src model.SourceImage, onFallback func()) (string, error) {
	img, err := u.compressor.Compress(ctx, src, nil)
	if err != nil {
		return "", err
	}

	logger := mwlogger.LoggerFromContext(ctx)

	if u.secondaryAsPrimary {
		return store(ctx, u.secondary, img)
	}

	url, err := store(ctx, u.primary, img)
	if err == nil {
		return url, nil
	}
	if !storage.IsQuotaError(err) {
		logger.Error().Err(err).Str("file", src.Name).Msg("Primary upload failed")
		return "", err
	}

	logger.Warn().Err(err).Str("file", src.Name).Str("fallback", u.secondary.Name()).Msg("Primary storage refused upload, switching to fallback")
	metrics.RecordFallback()
	u.notifier.Notify(ctx, FallbackMessage)
	if onFallback != nil {
		onFallback()
	}

	return store(ctx, u.secondary, img)
}

func store(ctx context.Context, p storage.Provider, img *model.CompressedImage) (string, error) {
	url, err := p.Store(ctx, img.Name, img.ContentType, img.Data)
	metrics.RecordUpload(p.Name(), err)
	return url, err
}

// UploadAll uploads files one by one in input order. The first failure aborts the batch;
// files stored before it stay in storage.
func (u *Uploader) UploadAll(ctx context.Context, srcs []model.SourceImage) (*model.UploadResult, error) {
	res := &model.UploadResult{URLs: make([]string, 0, len(srcs))}
	onFallback := func() { res.FallbackUsed = true }

	for _, src := range srcs {
		url, err := u.Upload(ctx, src, onFallback)
		if err != nil {
			return nil, &model.FileError{Name: src.Name, Err: err}
		}
		res.URLs = append(res.URLs, url)
	}

	if res.FallbackUsed {
		res.Warnings = append(res.Warnings, FallbackMessage)
	}
	return res, nil
}

// Providers returns the configured providers in classification order.
func (u *Uploader) Providers() []storage.Provider {
	if u.primary == nil {
		return []storage.Provider{u.secondary}
	}
	return []storage.Provider{u.primary, u.secondary}
}

func (u *Uploader) Config() model.UploadConfig {
	if u.secondaryAsPrimary {
		return model.UploadConfig{
			ObjectStorageEnabled: false,
			CDNAsPrimary:         true,
			PrimaryProvider:      u.secondary.Name(),
		}
	}
	return model.UploadConfig{
		ObjectStorageEnabled: true,
		PrimaryProvider:      u.primary.Name(),
		FallbackProvider:     u.secondary.Name(),
	}
}
