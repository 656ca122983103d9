// Package repository provides methods to work with DB
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/UnendingLoop/ListingImages/internal/model"
	"github.com/UnendingLoop/ListingImages/internal/repository/listingpostgres"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

type ListingRepo interface {
	Create(ctx context.Context, l *model.Listing) error
	Get(ctx context.Context, id string) (*model.Listing, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Listing, error)
	Update(ctx context.Context, l *model.Listing) error
	Delete(ctx context.Context, id string) error
}

func NewPostgresListingRepo(dbconn *dbpg.DB) ListingRepo {
	return listingpostgres.PostgresRepo{DB: dbconn}
}

func ConnectWithRetries(ctx context.Context, dsn string, retryCount int, idleTime time.Duration) (*dbpg.DB, error) {
	dbOptions := dbpg.Options{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 10 * time.Minute,
	}

	var err error
	for i := range retryCount {
		var dbConn *dbpg.DB
		dbConn, err = dbpg.New(dsn, nil, &dbOptions)
		if err == nil {
			return dbConn, nil
		}
		zlog.Logger.Error().Err(err).Int("try", i+1).Msgf("Failed to connect to PGDB. Waiting %v before next retry...", idleTime)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(idleTime):
		}
	}

	return nil, fmt.Errorf("failed to connect to DB after %d tries: %w", retryCount, err)
}

func MigrateWithRetries(ctx context.Context, db *sql.DB, migrationsPath string, retries int, idle time.Duration) error {
	var err error
	for i := range retries {
		zlog.Logger.Info().Msgf("Migration try #%d...", i+1)
		if err = runMigrate(db, migrationsPath); err == nil {
			return nil
		}
		zlog.Logger.Error().Err(err).Msgf("Migration try #%d was unsuccessful. Waiting %v before next try...", i+1, idle)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(idle):
		}
	}

	return fmt.Errorf("out of migration retries: %w", err)
}

func runMigrate(db *sql.DB, migrationsPath string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	absPath, err := filepath.Abs(migrationsPath)
	if err != nil {
		return err
	}

	sourceURL := "file://" + absPath
	zlog.Logger.Info().Str("source", sourceURL).Msg("Running migrations")

	m, err := migrate.NewWithDatabaseInstance(
		sourceURL,
		"postgres",
		driver,
	)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	zlog.Logger.Info().Msg("Database migrations applied successfully")
	return nil
}
