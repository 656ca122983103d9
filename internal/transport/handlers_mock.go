package transport

import (
	"context"

	"github.com/UnendingLoop/ListingImages/internal/model"
	"github.com/gin-gonic/gin"
)

type mockListingService struct {
	compressFn func(ctx context.Context, files []model.SourceImage, o *model.CompressionOverride) (*model.CompressionReport, error)
	uploadFn   func(ctx context.Context, files []model.SourceImage) (*model.UploadResult, error)
	config     model.UploadConfig
	createFn   func(ctx context.Context, d *model.ListingCreateData) (*model.ListingResult, error)
	updateFn   func(ctx context.Context, id string, d *model.ListingUpdateData) (*model.ListingResult, error)
	getFn      func(ctx context.Context, id string) (*model.Listing, error)
	getListFn  func(ctx context.Context, req *model.ListRequest) ([]model.Listing, error)
	deleteFn   func(ctx context.Context, id string) error
}

func (m *mockListingService) CompressImages(ctx context.Context, files []model.SourceImage, o *model.CompressionOverride) (*model.CompressionReport, error) {
	return m.compressFn(ctx, files, o)
}

func (m *mockListingService) UploadImages(ctx context.Context, files []model.SourceImage) (*model.UploadResult, error) {
	return m.uploadFn(ctx, files)
}

func (m *mockListingService) UploadConfig() model.UploadConfig {
	return m.config
}

func (m *mockListingService) Create(ctx context.Context, d *model.ListingCreateData) (*model.ListingResult, error) {
	return m.createFn(ctx, d)
}

func (m *mockListingService) Update(ctx context.Context, id string, d *model.ListingUpdateData) (*model.ListingResult, error) {
	return m.updateFn(ctx, id, d)
}

func (m *mockListingService) Get(ctx context.Context, id string) (*model.Listing, error) {
	return m.getFn(ctx, id)
}

func (m *mockListingService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Listing, error) {
	return m.getListFn(ctx, req)
}

func (m *mockListingService) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func init() {
	gin.SetMode(gin.TestMode)
}
