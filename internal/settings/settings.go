// Package settings reads the process configuration once at startup into typed values.
package settings

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/UnendingLoop/ListingImages/internal/model"
	"github.com/UnendingLoop/ListingImages/internal/storage/cdnstorage"
	"github.com/UnendingLoop/ListingImages/internal/storage/miniostorage"
)

// Getter is satisfied by *config.Config from wbf.
type Getter interface {
	GetString(key string) string
}

type Settings struct {
	AppPort     string
	MetricsPort string // только для воркера, у api метрики на /metrics основного порта
	GinMode     string
	LogLevel    string

	PostgresDSN string

	KafkaBroker       string
	KafkaCleanupTopic string
	KafkaGroupID      string

	Compression      model.CompressionConfig
	MaxListingImages int
	PurgeParallelism int

	// false - CDN принимает загрузки первым, MinIO не используется для новых файлов
	ObjectStorageEnabled bool
	MinIO                miniostorage.Config
	CDN                  cdnstorage.Config
}

// Load reads all keys, applies defaults and validates the result.
func Load(g Getter) (*Settings, error) {
	p := parser{g: g}

	s := &Settings{
		AppPort:           p.str("APP_PORT", "8080"),
		MetricsPort:       p.str("METRICS_PORT", "9100"),
		GinMode:           p.str("GIN_MODE", "release"),
		LogLevel:          p.str("LOG_LEVEL", "info"),
		PostgresDSN:       p.str("POSTGRES_DSN", ""),
		KafkaBroker:       p.str("KAFKA_BROKER", "kafka:9092"),
		KafkaCleanupTopic: p.str("KAFKA_CLEANUP_TOPIC", "listing-images-cleanup"),
		KafkaGroupID:      p.str("KAFKA_GROUPID", "listing-images-cleanup-worker"),
		Compression: model.CompressionConfig{
			MaxWidth:    p.integer("IMAGE_MAX_WIDTH", model.DefaultMaxWidth),
			MaxHeight:   p.integer("IMAGE_MAX_HEIGHT", model.DefaultMaxHeight),
			Quality:     p.float("IMAGE_QUALITY", model.DefaultQuality),
			MaxFileSize: int64(p.integer("IMAGE_MAX_SIZE", model.DefaultMaxFileSize)),
		},
		MaxListingImages:     p.integer("MAX_LISTING_IMAGES", 12),
		PurgeParallelism:     p.integer("PURGE_PARALLELISM", 8),
		ObjectStorageEnabled: p.boolean("ENABLE_OBJECT_STORAGE", false),
		MinIO: miniostorage.Config{
			Endpoint:  p.str("MINIO_ENDPOINT", "minio:9000"),
			User:      p.str("MINIO_USER", ""),
			Pass:      p.str("MINIO_PASS", ""),
			Secure:    p.boolean("MINIO_SECURE", false),
			Bucket:    p.str("BUCKET_NAME", "listings"),
			PublicURL: p.str("STORAGE_PUBLIC_URL", ""),
		},
		CDN: cdnstorage.Config{
			CloudName:    p.str("CDN_CLOUD_NAME", ""),
			UploadPreset: p.str("CDN_UPLOAD_PRESET", ""),
			UploadURL:    p.str("CDN_UPLOAD_URL", ""),
			APIBase:      p.str("CDN_API_BASE", ""),
			APIKey:       p.str("CDN_API_KEY", ""),
			APISecret:    p.str("CDN_API_SECRET", ""),
			DeliveryHost: p.str("CDN_DELIVERY_HOST", ""),
			Timeout:      p.duration("CDN_TIMEOUT", 30*time.Second),
		},
	}

	if len(p.errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(p.errs, "; "))
	}

	if err := s.Compression.Validate(); err != nil {
		return nil, err
	}
	if s.MaxListingImages <= 0 {
		return nil, fmt.Errorf("invalid configuration: MAX_LISTING_IMAGES must be positive, got %d", s.MaxListingImages)
	}
	if s.CDN.UploadURL == "" && s.CDN.CloudName == "" {
		return nil, fmt.Errorf("invalid configuration: CDN_CLOUD_NAME or CDN_UPLOAD_URL is required")
	}

	return s, nil
}

type parser struct {
	g    Getter
	errs []string
}

func (p *parser) str(key, def string) string {
	v := strings.TrimSpace(p.g.GetString(key))
	if v == "" {
		return def
	}
	return v
}

func (p *parser) integer(key string, def int) int {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s=%q is not an integer", key, v))
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s=%q is not a number", key, v))
		return def
	}
	return f
}

func (p *parser) boolean(key string, def bool) bool {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s=%q is not a boolean", key, v))
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s=%q is not a duration", key, v))
		return def
	}
	return d
}
