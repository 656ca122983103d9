// Package providers assembles the configured upload providers for api and worker processes.
package providers

import (
	"context"
	"time"

	"github.com/UnendingLoop/ListingImages/internal/storage"
	"github.com/UnendingLoop/ListingImages/internal/storage/cdnstorage"
	"github.com/UnendingLoop/ListingImages/internal/storage/miniostorage"
)

// Set - primary остается nil, если объектное хранилище выключено
type Set struct {
	Primary storage.Provider
	CDN     storage.Provider
}

// All returns non-nil providers, primary first.
func (s Set) All() []storage.Provider {
	out := make([]storage.Provider, 0, 2)
	if s.Primary != nil {
		out = append(out, s.Primary)
	}
	if s.CDN != nil {
		out = append(out, s.CDN)
	}
	return out
}

var connectMinio = func(ctx context.Context, cfg miniostorage.Config) (storage.Provider, error) {
	return storage.ConnectWithRetries(ctx, "minio", 10*time.Second, func() (storage.Provider, error) {
		return miniostorage.NewMinioStorage(ctx, cfg)
	})
}

// Connect builds the CDN adapter and, when object storage is enabled, connects MinIO with retries.
func Connect(ctx context.Context, objectStorageEnabled bool, minioCfg miniostorage.Config, cdnCfg cdnstorage.Config) (Set, error) {
	set := Set{CDN: cdnstorage.NewCDNStorage(cdnCfg)}
	if !objectStorageEnabled {
		return set, nil
	}

	primary, err := connectMinio(ctx, minioCfg)
	if err != nil {
		return Set{}, err
	}
	set.Primary = primary
	return set, nil
}
