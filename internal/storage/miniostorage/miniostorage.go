// Package miniostorage provides the primary upload provider backed by MinIO (S3-compatible)
package miniostorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/UnendingLoop/ListingImages/internal/storage"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/zlog"
)

const (
	providerName = "minio"
	keyPrefix    = "cars/"
)

type Config struct {
	Endpoint  string
	User      string
	Pass      string
	Secure    bool
	Bucket    string
	PublicURL string
}

// objectClient - часть minio.Client, которой пользуется адаптер
type objectClient interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

type MinioImageStorage struct {
	bucket  string
	baseURL string
	client  objectClient
	newID   func() string
}

func NewMinioStorage(ctx context.Context, cfg Config) (*MinioImageStorage, error) {
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "listings"
		zlog.Logger.Warn().Msgf("Bucket name is empty. Using default value %q...", bucket)
	}

	// подключаемся к минио - создаем клиента
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.User, cfg.Pass, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, err
	}

	// создаем бакет если его нет, и открываем чтение для cars/
	if err := ensureBucket(ctx, cl, bucket); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to create bucket in MinIO")
		return nil, err
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.Secure {
			scheme = "https"
		}
		publicURL = scheme + "://" + cfg.Endpoint
	}

	return newStorage(cl, bucket, publicURL), nil
}

func newStorage(client objectClient, bucket, publicURL string) *MinioImageStorage {
	return &MinioImageStorage{
		bucket:  bucket,
		baseURL: strings.TrimRight(publicURL, "/") + "/" + bucket + "/",
		client:  client,
		newID:   uuid.NewString,
	}
}

func (s *MinioImageStorage) Kind() storage.Kind {
	return storage.KindPrimary
}

func (s *MinioImageStorage) Name() string {
	return providerName
}

func (s *MinioImageStorage) Store(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := s.objectKey(name)

	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", &storage.ProviderError{Provider: providerName, Code: classifyError(err), Err: err}
	}

	return s.baseURL + key, nil
}

func (s *MinioImageStorage) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err == nil {
		return nil
	}

	var resp minio.ErrorResponse
	if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
		return nil
	}
	return fmt.Errorf("minio delete %q: %w", key, err)
}

// Identify returns the object key for URLs served from this bucket.
func (s *MinioImageStorage) Identify(rawURL string) (string, bool) {
	u, _, _ := strings.Cut(rawURL, "?")
	key, ok := strings.CutPrefix(u, s.baseURL)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

func (s *MinioImageStorage) objectKey(name string) string {
	stem := strings.TrimSuffix(path.Base(name), path.Ext(name))
	sl := slug.Make(stem)
	if sl == "" {
		sl = "image"
	}
	return keyPrefix + s.newID() + "_" + sl + ".jpg"
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return storage.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return storage.CodeRetryLimitExceeded
	}

	var resp minio.ErrorResponse
	if !errors.As(err, &resp) || resp.Code == "" {
		return storage.CodeUnknown
	}

	switch resp.Code {
	case "XMinioStorageFull", "XMinioAdminBucketQuotaExceeded", "QuotaExceeded":
		return storage.CodeQuotaExceeded
	case "SlowDown", "RequestTimeout", "ServiceUnavailable":
		return storage.CodeRetryLimitExceeded
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "InvalidToken":
		return storage.CodeAuthFailed
	default:
		return "s3-" + resp.Code
	}
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}

	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return err
		}
	}

	return client.SetBucketPolicy(ctx, bucket, readPolicy(bucket))
}

func readPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/%s*"]}]}`, bucket, keyPrefix)
}
