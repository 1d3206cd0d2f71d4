// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/unodealer/internal/auth"
	"github.com/jason-s-yu/unodealer/internal/cache"
	"github.com/jason-s-yu/unodealer/internal/config"
	"github.com/jason-s-yu/unodealer/internal/database"
	"github.com/jason-s-yu/unodealer/internal/game"
	"github.com/jason-s-yu/unodealer/internal/handlers"
	"github.com/jason-s-yu/unodealer/internal/hub"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// deskTTL expires desks of rooms abandoned mid-turn.
const deskTTL = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to set up stores")
	}
	defer cleanup()

	signer, err := auth.NewSigner(cfg.TokenExpireTime)
	if err != nil {
		logger.WithError(err).Fatal("failed to create token signer")
	}
	adminHash, err := auth.AdminHash(cfg.AdminPassword, cfg.AdminPasswordHash)
	if err != nil {
		logger.WithError(err).Fatal("failed to hash admin password")
	}
	if adminHash == "" {
		logger.Warn("no admin password configured, /admin/login is disabled")
	}

	h := hub.New(logrus.NewEntry(logger))
	deps.Hub = h
	deps.Serializer = game.NewSerializer(cfg.GlobalSerializer())
	deps.Logger = logrus.NewEntry(logger)
	deps.Pacing = cfg.EventPacing
	tables := game.NewTableStore(cfg.Rules, deps)

	gs := handlers.NewGameServer(tables, h, signer, logger)
	gs.AdminHash = adminHash
	gs.AutoStart = cfg.AutoStart

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(gs),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithFields(logrus.Fields{
			"addr":       srv.Addr,
			"store":      cfg.DealerStore,
			"serializer": cfg.SerializerScope,
		}).Info("dealer listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		tables.CloseAll()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Fatal("server exited")
	}
	logger.Info("server stopped")
}

// buildStores picks the desk, room, player and activity stores. Desks live in Redis unless
// DEALER_STORE=memory; rooms and players live in Postgres when DATABASE_URL is set. With Redis the
// activity log goes to the historian queue, otherwise straight to Postgres or memory.
func buildStores(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (game.TableDeps, func(), error) {
	var deps game.TableDeps
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var activities game.ActivityLog = game.NewMemoryActivityLog()
	deps.Rooms = game.NewMemoryRoomStore()
	deps.Players = game.NewMemoryPlayerStore()

	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return deps, cleanup, err
		}
		closers = append(closers, pool.Close)
		if err := database.Migrate(ctx, pool); err != nil {
			cleanup()
			return deps, func() {}, err
		}
		deps.Rooms = database.NewRoomStore(pool)
		deps.Players = database.NewPlayerStore(pool)
		activities = database.NewActivityStore(pool)
	} else {
		logger.Warn("DATABASE_URL not set, rooms and players are kept in memory")
	}

	switch cfg.DealerStore {
	case "redis":
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			cleanup()
			return deps, func() {}, err
		}
		closers = append(closers, func() { rdb.Close() })
		deps.Desks = cache.NewDeskStore(rdb, deskTTL)
		activities = cache.NewActivityQueue(rdb, cfg.HistorianQueue)
	default:
		deps.Desks = game.NewMemoryDeskStore()
	}
	deps.Activities = activities
	return deps, cleanup, nil
}
