package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"backoffice/internal/config"
	"backoffice/internal/db"
	"backoffice/internal/logx"

	"go.uber.org/zap"
)

func main() {
	dir := flag.String("dir", "migrations", "directory holding NNN_description.sql files")
	status := flag.Bool("status", false, "print the applied state of every migration and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logx.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName+"-migrate")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if *status {
		migrations, err := db.MigrationStatus(ctx, pool, *dir)
		if err != nil {
			logger.Error("migration status failed", zap.Error(err))
			pool.Close()
			os.Exit(1)
		}
		for _, m := range migrations {
			applied := "-"
			if !m.AppliedAt.IsZero() {
				applied = m.AppliedAt.Format(time.RFC3339)
			}
			fmt.Printf("%-8s %-28s %s\n", m.State, m.Source.Path, applied)
		}
		return
	}

	applied, err := db.Migrate(ctx, pool, *dir, logger)
	if err != nil {
		logger.Error("migration failed", zap.Int("applied", applied), zap.Error(err))
		pool.Close()
		os.Exit(1)
	}
	logger.Info("migrations complete", zap.Int("applied", applied))
}
