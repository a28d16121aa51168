package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"backoffice/internal/adapters/cli"
	"backoffice/internal/app"
	"backoffice/internal/cache"
	"backoffice/internal/config"
	"backoffice/internal/core"
	"backoffice/internal/db"
	"backoffice/internal/logx"

	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return cli.ExitCommandError
	}

	// Diagnostics go to stderr at warn and above so stdout stays clean.
	logger, err := logx.New("warn", "console", cfg.ServiceName+"-cli")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return cli.ExitCommandError
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database: %v\n", err)
		return cli.ExitCommandError
	}
	defer pool.Close()

	stock := core.NewStockService(pool)
	customers := core.NewCustomerService(pool)
	deps := app.Deps{
		Orders:    core.NewOrderService(pool, stock, customers, cfg.AllowNegativeStock),
		Purchases: core.NewPurchaseService(pool, stock),
		Stock:     stock,
		Reports:   core.NewReportingService(pool),
		Users:     core.NewUserService(pool),
		Logger:    logger,
	}
	if cfg.RedisURL != "" {
		if store, err := cache.New(ctx, cfg.RedisURL); err != nil {
			logger.Warn("redis unavailable, idempotency keys disabled", zap.Error(err))
		} else {
			defer store.Close()
			deps.Store = store
		}
	}

	root := cli.NewRootCommand(app.NewAppService(deps))
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}
