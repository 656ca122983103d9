// Package service provides business-logic for the app
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/UnendingLoop/ListingImages/internal/imageproc"
	"github.com/UnendingLoop/ListingImages/internal/model"
	"github.com/UnendingLoop/ListingImages/internal/mwlogger"
	"github.com/UnendingLoop/ListingImages/internal/reconciler"
	"github.com/UnendingLoop/ListingImages/internal/repository"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
)

type ListingService struct {
	repo       repository.ListingRepo
	publisher  TaskPublisher
	uploader   ImageUploader
	compressor ImageCompressor
	reconciler ImageReconciler
	maxImages  int
	now        func() time.Time
}

func NewListingService(repo repository.ListingRepo, pub TaskPublisher, up ImageUploader, comp ImageCompressor, rec ImageReconciler, maxImages int) *ListingService {
	return &ListingService{
		repo:       repo,
		publisher:  pub,
		uploader:   up,
		compressor: comp,
		reconciler: rec,
		maxImages:  maxImages,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// TaskPublisher - контракт для работы с очередью
type TaskPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// ImageUploader - контракт оркестратора загрузки
type ImageUploader interface {
	UploadAll(ctx context.Context, srcs []model.SourceImage) (*model.UploadResult, error)
	Config() model.UploadConfig
}

type ImageCompressor interface {
	CompressAll(ctx context.Context, srcs []model.SourceImage, override *model.CompressionOverride, onProgress imageproc.ProgressFunc) ([]model.CompressedImage, error)
}

// ImageReconciler удаляет картинки, выпавшие из объявления; вызывается только после записи в БД
type ImageReconciler interface {
	Purge(ctx context.Context, urls []string)
}

// Стратегия ретрая отправки в очередь
var retryStrategy = retry.Strategy{
	Attempts: 5,
	Delay:    3 * time.Second,
	Backoff:  1.5,
}

// CompressImages runs the compression pipeline only and reports size statistics.
func (c ListingService) CompressImages(ctx context.Context, files []model.SourceImage, override *model.CompressionOverride) (*model.CompressionReport, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if len(files) == 0 {
		return nil, model.ErrNoImages
	}

	compressed, err := c.compressor.CompressAll(ctx, files, override, func(done, total int) {
		logger.Debug().Int("done", done).Int("total", total).Msg("Compression progress")
	})
	if err != nil {
		return nil, err
	}

	rep := imageproc.Report(files, compressed)
	return &rep, nil
}

func (c ListingService) UploadImages(ctx context.Context, files []model.SourceImage) (*model.UploadResult, error) {
	if err := c.checkImageCount(len(files)); err != nil {
		return nil, err
	}

	res, err := c.uploader.UploadAll(ctx, files)
	if err != nil {
		return nil, uploadError(ctx, err)
	}
	return res, nil
}

func (c ListingService) UploadConfig() model.UploadConfig {
	return c.uploader.Config()
}

func (c ListingService) Create(ctx context.Context, data *model.ListingCreateData) (*model.ListingResult, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	now := c.now()

	listing := data.Listing
	if err := validateNormalizeListing(&listing, now); err != nil {
		return nil, err
	}
	if err := c.checkImageCount(len(data.Images)); err != nil {
		return nil, err
	}

	uploaded, err := c.uploader.UploadAll(ctx, data.Images)
	if err != nil {
		return nil, uploadError(ctx, err)
	}

	listing.ID = uuid.New()
	listing.ImageURLs = uploaded.URLs
	listing.CreatedAt = &now
	listing.UpdatedAt = &now

	if err := c.repo.Create(ctx, &listing); err != nil {
		logger.Error().Err(err).Msg("Failed to create listing in DB")
		// картинки уже в хранилище - отдаем воркеру на удаление
		c.publishCleanup(ctx, listing.ID.String(), uploaded.URLs)
		return nil, model.ErrCommon500
	}

	return &model.ListingResult{Listing: &listing, FallbackUsed: uploaded.FallbackUsed, Warnings: uploaded.Warnings}, nil
}

func (c ListingService) Update(ctx context.Context, id string, data *model.ListingUpdateData) (*model.ListingResult, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}

	now := c.now()
	listing := data.Listing
	if err := validateNormalizeListing(&listing, now); err != nil {
		return nil, err
	}

	original, err := c.repo.Get(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrListingNotFound):
			return nil, model.ErrListingNotFound // 404
		default:
			logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch listing %q from DB", id))
			return nil, model.ErrCommon500
		}
	}

	// превью из браузера (blob:, data:) и чужие ссылки в базу не попадают
	current := keptImages(data.CurrentImages, original.ImageURLs)
	if dropped := len(data.CurrentImages) - len(current); dropped > 0 {
		logger.Warn().Int("dropped", dropped).Msg("Ignoring current images that don't belong to the listing")
	}
	if err := c.checkImageCount(len(current) + len(data.Images)); err != nil {
		return nil, err
	}

	res := &model.ListingResult{}
	var newURLs []string
	if len(data.Images) > 0 {
		uploaded, err := c.uploader.UploadAll(ctx, data.Images)
		if err != nil {
			return nil, uploadError(ctx, err)
		}
		newURLs = uploaded.URLs
		res.FallbackUsed = uploaded.FallbackUsed
		res.Warnings = uploaded.Warnings
	}

	listing.ID = original.ID
	listing.CreatedAt = original.CreatedAt
	listing.UpdatedAt = &now
	listing.ImageURLs = slices.Concat(current, newURLs)

	if err := c.repo.Update(ctx, &listing); err != nil {
		// старые картинки не трогаем, новые отдаем воркеру на удаление
		c.publishCleanup(ctx, id, newURLs)
		switch {
		case errors.Is(err, model.ErrListingNotFound):
			return nil, model.ErrListingNotFound
		default:
			logger.Error().Err(err).Msg(fmt.Sprintf("Failed to update listing %q in DB", id))
			return nil, model.ErrCommon500
		}
	}

	// удаляем убранные картинки только когда запись уже обновлена
	if deleted := reconciler.DeletedURLs(original.ImageURLs, current); len(deleted) > 0 {
		c.reconciler.Purge(ctx, deleted)
	}

	res.Listing = &listing
	return res, nil
}

func (c ListingService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Listing, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := validateQueryParams(req); err != nil {
		return nil, err
	}

	res, err := c.repo.GetList(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch listings from DB")
		return nil, model.ErrCommon500
	}

	return res, nil
}

func (c ListingService) Get(ctx context.Context, id string) (*model.Listing, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}

	res, err := c.repo.Get(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrListingNotFound):
			return nil, model.ErrListingNotFound // 404
		default:
			logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch listing %q from DB", id))
			return nil, model.ErrCommon500
		}
	}

	return res, nil
}

// Delete removes the listing record and queues deletion of its images.
func (c ListingService) Delete(ctx context.Context, id string) error {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}

	// читаем из базы - нужны ссылки на картинки
	res, err := c.repo.Get(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrListingNotFound):
			return model.ErrListingNotFound // 404
		default:
			logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch listing %q from DB", id))
			return model.ErrCommon500
		}
	}

	// удаляем из базы
	if err := c.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, model.ErrListingNotFound):
			return model.ErrListingNotFound
		default:
			logger.Error().Err(err).Msg("Failed to delete listing from DB")
			return model.ErrCommon500
		}
	}

	c.publishCleanup(ctx, id, res.ImageURLs)
	return nil
}

// publishCleanup кладет задачу на удаление картинок в очередь; ошибка только логируется
func (c ListingService) publishCleanup(ctx context.Context, listingID string, urls []string) {
	if len(urls) == 0 {
		return
	}
	logger := mwlogger.LoggerFromContext(ctx)

	body, err := json.Marshal(model.CleanupTask{ListingID: listingID, URLs: urls})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to marshal cleanup task")
		return
	}

	if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(listingID), body); err != nil {
		logger.Error().Err(err).Strs("urls", urls).Msg(fmt.Sprintf("Failed to publish cleanup of listing %q to task-queue", listingID))
	}
}

// keptImages оставляет только durable-ссылки, которые уже есть в объявлении, в порядке клиента
func keptImages(current, original []string) []string {
	own := make(map[string]struct{}, len(original))
	for _, u := range original {
		own[u] = struct{}{}
	}

	out := make([]string, 0, len(current))
	for _, u := range reconciler.DurableOnly(current) {
		if _, ok := own[u]; ok {
			out = append(out, u)
		}
	}
	return out
}

func (c ListingService) checkImageCount(n int) error {
	switch {
	case n == 0:
		return model.ErrNoImages
	case n > c.maxImages:
		return fmt.Errorf("%w: %d of max %d", model.ErrTooManyImages, n, c.maxImages)
	}
	return nil
}

// uploadError оставляет ошибки входных данных как есть, остальное - сбой загрузки (502)
func uploadError(ctx context.Context, err error) error {
	if errors.Is(err, model.ErrDecode) || errors.Is(err, model.ErrInvalidConfig) || errors.Is(err, model.ErrEncoding) {
		return err
	}
	logger := mwlogger.LoggerFromContext(ctx)
	logger.Error().Err(err).Msg("Failed to upload listing images")
	return fmt.Errorf("%w: %w", model.ErrUploadFailed, err)
}
