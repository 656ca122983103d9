package uploader

import (
	"context"

	"github.com/UnendingLoop/ListingImages/internal/model"
	"github.com/UnendingLoop/ListingImages/internal/storage"
)

type mockCompressor struct {
	compressFn func(ctx context.Context, src model.SourceImage, override *model.CompressionOverride) (*model.CompressedImage, error)
}

func (m *mockCompressor) Compress(ctx context.Context, src model.SourceImage, override *model.CompressionOverride) (*model.CompressedImage, error) {
	return m.compressFn(ctx, src, override)
}

//----------------------------------

type mockProvider struct {
	name       string
	kind       storage.Kind
	storeFn    func(ctx context.Context, name, contentType string, data []byte) (string, error)
	storeCalls int
}

func (m *mockProvider) Kind() storage.Kind { return m.kind }

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Store(ctx context.Context, name, contentType string, data []byte) (string, error) {
	m.storeCalls++
	return m.storeFn(ctx, name, contentType, data)
}

func (m *mockProvider) Delete(context.Context, string) error { return nil }

func (m *mockProvider) Identify(string) (string, bool) { return "", false }

//----------------------------------

type mockNotifier struct {
	msgs []string
}

func (m *mockNotifier) Notify(_ context.Context, msg string) {
	m.msgs = append(m.msgs, msg)
}
