package db

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"
	"go.uber.org/zap"
)

// newMigrator builds a goose provider over the pool for the NNN_description.sql
// files of dir. Runs hold a PostgreSQL session lock, so only one migrator
// applies changes at a time. The returned close func releases the
// database/sql handle; the pool itself stays open.
func newMigrator(pool *pgxpool.Pool, dir string) (*goose.Provider, func(), error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	locker, err := lock.NewPostgresSessionLocker()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create migration lock: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, os.DirFS(dir),
		goose.WithSessionLocker(locker))
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to load migrations from %s: %w", dir, err)
	}
	return provider, func() { _ = sqlDB.Close() }, nil
}

// Migrate applies every pending migration in dir, in version order, each in
// its own transaction, and reports how many were applied.
func Migrate(ctx context.Context, pool *pgxpool.Pool, dir string, log *zap.Logger) (applied int, err error) {
	provider, closeDB, err := newMigrator(pool, dir)
	if err != nil {
		return 0, err
	}
	defer closeDB()

	results, err := provider.Up(ctx)
	if err != nil {
		var partial *goose.PartialError
		if errors.As(err, &partial) {
			logResults(log, partial.Applied)
			return len(partial.Applied), fmt.Errorf("failed to apply migrations: %w", partial.Err)
		}
		return 0, fmt.Errorf("failed to apply migrations: %w", err)
	}
	logResults(log, results)
	return len(results), nil
}

// MigrationStatus lists every migration in dir with its applied state.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool, dir string) ([]*goose.MigrationStatus, error) {
	provider, closeDB, err := newMigrator(pool, dir)
	if err != nil {
		return nil, err
	}
	defer closeDB()

	status, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}
	return status, nil
}

func logResults(log *zap.Logger, results []*goose.MigrationResult) {
	for _, r := range results {
		log.Info("migration applied",
			zap.String("file", r.Source.Path),
			zap.Int64("version", r.Source.Version),
			zap.Duration("duration", r.Duration))
	}
}
