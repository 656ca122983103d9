package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/ListingImages/internal/kafka"
	"github.com/UnendingLoop/ListingImages/internal/reconciler"
	"github.com/UnendingLoop/ListingImages/internal/settings"
	"github.com/UnendingLoop/ListingImages/internal/storage/providers"
	"github.com/UnendingLoop/ListingImages/internal/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/config"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig := config.New()
	appConfig.EnableEnv("")
	if err := appConfig.LoadEnvFiles("./.env"); err != nil {
		log.Fatalf("Failed to load envs: %s\nExiting app...", err)
	}
	cfg, err := settings.Load(appConfig)
	if err != nil {
		log.Fatalf("Invalid configuration: %v\nExiting app...", err)
	}

	zlog.InitConsole()
	if err := zlog.SetLevel(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Listening to interruptions through context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// воркеру нужны только провайдеры - БД он не трогает, запись уже удалена
	set, err := providers.Connect(ctx, cfg.ObjectStorageEnabled, cfg.MinIO, cfg.CDN)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to connect upload providers, exiting worker...")
	}
	var purger ImagePurger = reconciler.New(cfg.PurgeParallelism, set.All()...)

	// ждем пока кафка раздуплится
	if err := kafka.WaitKafkaReady(ctx, cfg.KafkaBroker, 5*time.Second); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Kafka is unreachable, exiting worker...")
	}
	if err := kafka.InitKafkaTopics(ctx, cfg.KafkaBroker, 10*time.Second, cfg.KafkaCleanupTopic); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to init kafka topics, exiting worker...")
	}

	// подключиться к кафке как читатель
	queue := make(chan kafkago.Message)
	retryStrategy := retry.Strategy{
		Attempts: 5,
		Delay:    2 * time.Second,
		Backoff:  1.5,
	}
	cons := wbfkafka.NewConsumer([]string{cfg.KafkaBroker}, cfg.KafkaCleanupTopic, cfg.KafkaGroupID)
	cons.StartConsuming(ctx, queue, retryStrategy)

	// метрики удалений отдаем отдельным мини-сервером
	metricsSrv := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Error().Err(err).Msg("Metrics server stopped")
		}
	}()

	w := worker.NewWorkerInstance(purger, queue, cons)
	done := make(chan struct{})
	go func() {
		w.StartWorker(ctx)
		close(done)
	}()

	// Waiting for interruption to stop context to start Graceful shutdown
	<-ctx.Done()
	<-done

	shutdown(metricsSrv, cons)
	zlog.Logger.Info().Msg("Exiting worker...")
}

func shutdown(metricsSrv *http.Server, cons *wbfkafka.Consumer) {
	zlog.Logger.Info().Msg("Interrupt received!!! Starting shutdown sequence...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(ctx); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to shutdown metrics server")
	}

	if err := cons.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close Kafka-reader")
	}
	zlog.Logger.Info().Msg("Kafka-consumer connection closed.")
}
