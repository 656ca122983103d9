// Package reconciler computes which stored images a listing edit dropped and deletes them
// from whichever provider holds them.
package reconciler

import (
	"context"
	"net/url"
	"slices"

	"github.com/UnendingLoop/ListingImages/internal/metrics"
	"github.com/UnendingLoop/ListingImages/internal/mwlogger"
	"github.com/UnendingLoop/ListingImages/internal/storage"
	"golang.org/x/sync/errgroup"
)

const defaultParallelism = 8

type Reconciler struct {
	providers   []storage.Provider
	parallelism int
}

// New builds a reconciler over providers in classification order.
// parallelism <= 0 uses the default limit of concurrent deletes.
func New(parallelism int, providers ...storage.Provider) *Reconciler {
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	return &Reconciler{providers: providers, parallelism: parallelism}
}

// IsDurable reports whether rawURL points at a stored object rather than a local preview:
// absolute http(s) with a host.
func IsDurable(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// DurableOnly filters urls down to durable ones keeping order.
func DurableOnly(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if IsDurable(u) {
			out = append(out, u)
		}
	}
	return out
}

// DeletedURLs returns durable entries of original that are absent from current.
func DeletedURLs(original, current []string) []string {
	kept := make(map[string]struct{}, len(current))
	for _, u := range current {
		kept[u] = struct{}{}
	}

	var out []string
	for _, u := range original {
		if _, ok := kept[u]; ok || !IsDurable(u) {
			continue
		}
		out = append(out, u)
	}
	return out
}

// Reconcile purges the images removed from the listing and returns the final list:
// current followed by newlyUploaded, without de-duplication.
func (r *Reconciler) Reconcile(ctx context.Context, original, current, newlyUploaded []string) []string {
	if deleted := DeletedURLs(original, current); len(deleted) > 0 {
		r.Purge(ctx, deleted)
	}

	return slices.Concat(current, newlyUploaded)
}

// Purge deletes every recognized URL concurrently and waits for all of them.
// Failures and unrecognized URLs are logged and never returned.
func (r *Reconciler) Purge(ctx context.Context, urls []string) {
	logger := mwlogger.LoggerFromContext(ctx)

	var g errgroup.Group
	g.SetLimit(r.parallelism)

	for _, u := range urls {
		ref := storage.Classify(u, r.providers...)
		if ref.Kind == storage.KindUnknown {
			logger.Warn().Str("url", u).Msg("Image URL belongs to no known provider, skipping delete")
			continue
		}

		g.Go(func() error {
			err := ref.Provider.Delete(ctx, ref.ID)
			metrics.RecordDelete(ref.Provider.Name(), err)
			if err != nil {
				logger.Warn().Err(err).Str("url", u).Str("provider", ref.Provider.Name()).Msg("Failed to delete image")
				return nil
			}
			logger.Debug().Str("url", u).Str("provider", ref.Provider.Name()).Msg("Image deleted")
			return nil
		})
	}

	_ = g.Wait()
}
