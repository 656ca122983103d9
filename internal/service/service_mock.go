package service

import (
	"context"

	"github.com/UnendingLoop/ListingImages/internal/imageproc"
	"github.com/UnendingLoop/ListingImages/internal/model"
	"github.com/wb-go/wbf/retry"
)

// MOCK RESPOSITORY

type mockRepo struct {
	createFn  func(ctx context.Context, l *model.Listing) error
	getFn     func(ctx context.Context, id string) (*model.Listing, error)
	getListFn func(ctx context.Context, req *model.ListRequest) ([]model.Listing, error)
	updateFn  func(ctx context.Context, l *model.Listing) error
	deleteFn  func(ctx context.Context, id string) error
}

func (m *mockRepo) Create(ctx context.Context, l *model.Listing) error {
	return m.createFn(ctx, l)
}

func (m *mockRepo) Get(ctx context.Context, id string) (*model.Listing, error) {
	return m.getFn(ctx, id)
}

func (m *mockRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.Listing, error) {
	return m.getListFn(ctx, req)
}

func (m *mockRepo) Update(ctx context.Context, l *model.Listing) error {
	return m.updateFn(ctx, l)
}

func (m *mockRepo) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

// MOCK UPLOADER

type mockUploader struct {
	uploadAllFn func(ctx context.Context, srcs []model.SourceImage) (*model.UploadResult, error)
	config      model.UploadConfig
}

func (m *mockUploader) UploadAll(ctx context.Context, srcs []model.SourceImage) (*model.UploadResult, error) {
	return m.uploadAllFn(ctx, srcs)
}

func (m *mockUploader) Config() model.UploadConfig {
	return m.config
}

// MOCK COMPRESSOR

type mockCompressor struct {
	compressAllFn func(ctx context.Context, srcs []model.SourceImage, o *model.CompressionOverride, p imageproc.ProgressFunc) ([]model.CompressedImage, error)
}

func (m *mockCompressor) CompressAll(ctx context.Context, srcs []model.SourceImage, o *model.CompressionOverride, p imageproc.ProgressFunc) ([]model.CompressedImage, error) {
	return m.compressAllFn(ctx, srcs, o, p)
}

// MOCK RECONCILER

type mockReconciler struct {
	purged [][]string
}

func (m *mockReconciler) Purge(ctx context.Context, urls []string) {
	m.purged = append(m.purged, urls)
}

// MOCK PUBLISHER

type mockPublisher struct {
	sendFn func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error
}

func (m *mockPublisher) SendWithRetry(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
	return m.sendFn(ctx, s, key, v)
}
