// Package metrics provides Prometheus metrics for the listing image pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "listing_images"

var (
	// UploadsTotal counts store attempts per provider and outcome.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Total number of image store attempts",
		},
		[]string{"provider", "status"},
	)

	// FallbacksTotal counts switches from the primary to the secondary provider.
	FallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Total number of uploads redirected to the fallback provider",
		},
	)

	CompressedBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_bytes",
			Help:      "Image sizes before and after compression",
			Buckets:   prometheus.ExponentialBuckets(16*1024, 2, 12),
		},
		[]string{"stage"},
	)

	DeletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deletes_total",
			Help:      "Total number of image delete attempts",
		},
		[]string{"provider", "status"},
	)
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordUpload records one Store call.
func RecordUpload(provider string, err error) {
	UploadsTotal.WithLabelValues(provider, status(err)).Inc()
}

func RecordFallback() {
	FallbacksTotal.Inc()
}

// RecordCompression records sizes of one compressed file.
func RecordCompression(original, compressed int64) {
	CompressedBytes.WithLabelValues("original").Observe(float64(original))
	CompressedBytes.WithLabelValues("compressed").Observe(float64(compressed))
}

// RecordDelete records one Delete call.
func RecordDelete(provider string, err error) {
	DeletesTotal.WithLabelValues(provider, status(err)).Inc()
}
