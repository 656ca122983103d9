package main

import (
	"context"

	"github.com/UnendingLoop/ListingImages/internal/model"
	"github.com/UnendingLoop/ListingImages/internal/settings"
	"github.com/UnendingLoop/ListingImages/internal/storage/providers"
)

type ListingAPIService interface {
	CompressImages(ctx context.Context, files []model.SourceImage, override *model.CompressionOverride) (*model.CompressionReport, error)
	UploadImages(ctx context.Context, files []model.SourceImage) (*model.UploadResult, error)
	UploadConfig() model.UploadConfig
	Create(ctx context.Context, data *model.ListingCreateData) (*model.ListingResult, error)
	Update(ctx context.Context, id string, data *model.ListingUpdateData) (*model.ListingResult, error)
	Get(ctx context.Context, id string) (*model.Listing, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Listing, error)
	Delete(ctx context.Context, id string) error
}

func connectProviders(ctx context.Context, cfg *settings.Settings) (providers.Set, error) {
	return providers.Connect(ctx, cfg.ObjectStorageEnabled, cfg.MinIO, cfg.CDN)
}
