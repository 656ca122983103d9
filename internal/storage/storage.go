// Package storage defines the upload provider contract shared by the primary object store
// and the secondary CDN host, plus URL classification between them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/wb-go/wbf/zlog"
)

// Kind tags which provider a stored URL belongs to.
type Kind string

const (
	KindUnknown   Kind = "unknown"
	KindPrimary   Kind = "primary"
	KindSecondary Kind = "secondary"
)

// Provider is one storage backend able to store bytes and later delete them by identifier.
type Provider interface {
	Kind() Kind
	Name() string
	// Store uploads data and returns a publicly retrievable URL.
	Store(ctx context.Context, name, contentType string, data []byte) (string, error)
	// Delete removes an object; a missing object is not an error.
	Delete(ctx context.Context, id string) error
	// Identify extracts the provider-specific identifier from a URL. Must be pure.
	Identify(rawURL string) (string, bool)
}

// Provider error codes.
const (
	CodeQuotaExceeded      = "quota-exceeded"
	CodeRetryLimitExceeded = "retry-limit-exceeded"
	CodeUnknown            = "unknown"
	CodeAuthFailed         = "auth-failed"
	CodeCanceled           = "canceled"
	CodeTransport          = "transport"
	CodeUploadFailed       = "upload-failed"
	CodeBadResponse        = "bad-response"
)

// quotaCodes - ошибки, при которых имеет смысл переключиться на резервного провайдера
var quotaCodes = []string{
	CodeQuotaExceeded,
	CodeRetryLimitExceeded,
	CodeUnknown,
}

// ProviderError is returned by Store on any transport, quota or auth failure.
type ProviderError struct {
	Provider string
	Code     string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s upload failed (%s): %v", e.Provider, e.Code, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsQuotaError reports whether err is a ProviderError with a quota/limit-class code.
func IsQuotaError(err error) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	return slices.Contains(quotaCodes, pe.Code)
}

// Ref is the result of URL classification.
type Ref struct {
	Kind     Kind
	ID       string
	Provider Provider
}

// Classify finds the first provider that recognizes rawURL.
func Classify(rawURL string, providers ...Provider) Ref {
	for _, p := range providers {
		if p == nil {
			continue
		}
		if id, ok := p.Identify(rawURL); ok {
			return Ref{Kind: p.Kind(), ID: id, Provider: p}
		}
	}
	return Ref{Kind: KindUnknown}
}

// ConnectWithRetries keeps calling connect until it succeeds or ctx is done.
func ConnectWithRetries[T any](ctx context.Context, name string, delay time.Duration, connect func() (T, error)) (T, error) {
	for {
		zlog.Logger.Info().Str("storage", name).Msg("Connecting to IMG-storage...")
		client, err := connect()
		if err == nil {
			zlog.Logger.Info().Str("storage", name).Msg("Successfully connected IMG-storage!")
			return client, nil
		}
		zlog.Logger.Error().Err(err).Str("storage", name).Msgf("Failed to init connection to IMG-storage. Next retry in %v...", delay)

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
}
