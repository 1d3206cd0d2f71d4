// cmd/historian/main.go drains the dealer activity queue from Redis into PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/unodealer/internal/cache"
	"github.com/jason-s-yu/unodealer/internal/config"
	"github.com/jason-s-yu/unodealer/internal/database"
	"github.com/jason-s-yu/unodealer/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	logger := cfg.NewLogger()
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer rdb.Close()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		logger.WithError(err).Fatal("failed to migrate")
	}

	svc := historian.New(rdb, database.NewActivityStore(pool), historian.Config{
		Queue:      cfg.HistorianQueue,
		BatchSize:  cfg.HistorianBatchSize,
		FlushDelay: cfg.HistorianFlush(),
	}, logrus.NewEntry(logger).WithField("service", "historian"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(gctx) })
	logger.WithField("queue", cfg.HistorianQueue).Info("historian running")

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("historian stopped with error")
		os.Exit(1)
	}
	logger.WithField("pending", svc.Pending()).Info("historian stopped")
}
