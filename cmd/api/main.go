// Package main (in api-subfolder) provides launch of the whole application except cleanup worker
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

	"github.com/UnendingLoop/ListingImages/internal/imageproc"
	"github.com/UnendingLoop/ListingImages/internal/kafka"
	"github.com/UnendingLoop/ListingImages/internal/mwlogger"
	"github.com/UnendingLoop/ListingImages/internal/reconciler"
	"github.com/UnendingLoop/ListingImages/internal/repository"
	"github.com/UnendingLoop/ListingImages/internal/service"
	"github.com/UnendingLoop/ListingImages/internal/settings"
	"github.com/UnendingLoop/ListingImages/internal/transport"
	"github.com/UnendingLoop/ListingImages/internal/uploader"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/ginext"
	wbfkafka "github.com/wb-go/wbf/kafka"
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

	// стартуем логгер
	zlog.InitConsole()
	if err := zlog.SetLevel(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	// готовим заранее слушатель прерываний - контекст для всего приложения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// подключитсья к базе
	dbConn, err := repository.ConnectWithRetries(ctx, cfg.PostgresDSN, 5, 10*time.Second)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to connect to DB, exiting app...")
	}
	// накатываем миграцию
	if err := repository.MigrateWithRetries(ctx, dbConn.Master, "./migrations", 10, 15*time.Second); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to apply migrations, exiting app...")
	}
	// создаем экземпляр репо
	repo := repository.NewPostgresListingRepo(dbConn)

	// подключаемся к хранилищам
	provs, err := connectProviders(ctx, cfg)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to connect upload providers, exiting app...")
	}
	compressor := imageproc.NewCompressor(cfg.Compression)
	up, err := uploader.New(compressor, provs.Primary, provs.CDN, !cfg.ObjectStorageEnabled, nil)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to build uploader, exiting app...")
	}
	rec := reconciler.New(cfg.PurgeParallelism, provs.All()...)

	// ждем пока кафка раздуплится
	if err := kafka.WaitKafkaReady(ctx, cfg.KafkaBroker, 5*time.Second); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Kafka is unreachable, exiting app...")
	}
	// подключиться к кафке как продюсер
	if err := kafka.InitKafkaTopics(ctx, cfg.KafkaBroker, 10*time.Second, cfg.KafkaCleanupTopic); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to init kafka topics, exiting app...")
	}
	pub := wbfkafka.NewProducer([]string{cfg.KafkaBroker}, cfg.KafkaCleanupTopic)

	// создаем экземпляр сервиса
	var svc ListingAPIService = service.NewListingService(repo, pub, up, compressor, rec, cfg.MaxListingImages)
	// cоздаем экземпляр хендлера HTTP
	handlers := transport.NewListingHandler(svc)
	// сетапим сервер
	engine := ginext.New(cfg.GinMode)
	metrics := promhttp.Handler()

	engine.GET("/ping", handlers.SimplePinger)
	engine.GET("/metrics", func(c *ginext.Context) { metrics.ServeHTTP(c.Writer, c.Request) })
	engine.GET("/images/config", handlers.UploadConfig)      // режим загрузки: основной/резервный провайдер
	engine.POST("/images/compress", handlers.CompressImages) // только сжатие, отчет по размерам
	engine.POST("/images", handlers.UploadImages)            // сжатие + загрузка, вернет URL
	engine.POST("/listings", handlers.Create)                // создание объявления с картинками
	engine.GET("/listings", handlers.GetList)                // список с пагинацией, фильтрами и сортировкой
	engine.GET("/listings/:id", handlers.Get)
	engine.PUT("/listings/:id", handlers.Update) // правка + сверка картинок
	engine.DELETE("/listings/:id", handlers.Delete)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: mwlogger.NewMWLogger(engine),
	}

	// Server launch
	go func() {
		zlog.Logger.Info().Msgf("Server running on http://localhost%s", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil {
			switch {
			case errors.Is(err, http.ErrServerClosed):
				zlog.Logger.Info().Msg("Server gracefully stopping...")
			default:
				zlog.Logger.Error().Err(err).Msg("Server stopped")
				stop()
			}
		}
	}()

	// ждем отмены контекста для запуска грейсфул закрытия соединений бд и кафки
	<-ctx.Done()

	shutdown(srv, pub, dbConn)
	zlog.Logger.Info().Msg("Exiting app...")
}

func shutdown(srv *http.Server, pub *wbfkafka.Producer, dbConn *dbpg.DB) {
	zlog.Logger.Info().Msg("Interrupt received!!! Starting shutdown sequence...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to shutdown HTTP-server correctly")
	}

	// Closing Kafka connection:
	if err := pub.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close Kafka-writer")
	}
	zlog.Logger.Info().Msg("Kafka-producer connection closed.")

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close DB-conn correctly")
		return
	}
	zlog.Logger.Info().Msg("DBconn closed")
}
