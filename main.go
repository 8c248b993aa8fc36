// main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cinema-seat-booking/cmd"
	"cinema-seat-booking/internal/data/memstore"
	"cinema-seat-booking/internal/data/repository"
	"cinema-seat-booking/internal/events"
	"cinema-seat-booking/internal/usecase"
	"cinema-seat-booking/internal/wire"
	"cinema-seat-booking/pkg/cache"
	"cinema-seat-booking/pkg/database"
	"cinema-seat-booking/pkg/lock"
	"cinema-seat-booking/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Name, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
		zap.String("store", config.Database.Driver),
		zap.String("cache", config.Cache.Driver),
		zap.String("lock", config.Booking.LockDriver),
		zap.String("events", config.Events.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, closeStore, err := openStore(ctx, config, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer closeStore()

	deps, closeDeps, err := buildDeps(config, logger)
	if err != nil {
		logger.Fatal("Failed to init infrastructure", zap.Error(err))
	}
	defer closeDeps()

	// Wire all dependencies
	app := wire.Wiring(repos, deps, config, logger)

	if config.App.SeedDemo {
		if err := usecase.SeedDemo(ctx, repos, app.Service, time.Now(), logger); err != nil {
			logger.Fatal("Failed to seed demo data", zap.Error(err))
		}
	} else if _, err := usecase.SeedTiers(ctx, repos, time.Now()); err != nil {
		logger.Fatal("Failed to seed seat tiers", zap.Error(err))
	}

	go app.Service.Availability.StartReconciler(ctx, config.Booking.ReconcileInterval)

	if err := cmd.APIServer(ctx, app.Router, config.App.Port, logger); err != nil {
		logger.Error("Server error", zap.Error(err))
	}
}

func openStore(ctx context.Context, config *utils.Config, logger *zap.Logger) (*repository.Repository, func(), error) {
	switch config.Database.Driver {
	case "memory":
		logger.Warn("Using in-memory store, data is lost on restart")
		return memstore.New().Repository(), func() {}, nil

	case "", "postgres":
		db, err := database.InitDB(config.Database)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Database connected successfully")

		if config.Database.AutoMigrate {
			if err := database.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, nil, err
			}
			logger.Info("Database schema applied")
		}
		return repository.NewRepository(db, logger), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", config.Database.Driver)
	}
}

func buildDeps(config *utils.Config, logger *zap.Logger) (usecase.Deps, func(), error) {
	var deps usecase.Deps
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var rdb *redis.Client
	if config.Cache.Driver == "redis" || config.Booking.LockDriver == "redis" {
		client, err := database.InitRedis(config.Redis)
		if err != nil {
			return deps, nil, err
		}
		rdb = client
		closers = append(closers, func() { _ = client.Close() })
		logger.Info("Redis connected", zap.String("addr", config.Redis.Addr))
	}

	switch config.Cache.Driver {
	case "redis":
		deps.Cache = cache.NewRedisCache(rdb, config.Cache.Prefix)
	case "memory", "":
		deps.Cache = cache.NewMemoryCache()
	case "none":
		deps.Cache = cache.Nop{}
	default:
		closeAll()
		return deps, nil, fmt.Errorf("unknown cache driver %q", config.Cache.Driver)
	}

	switch config.Booking.LockDriver {
	case "redis":
		deps.Locker = lock.NewRedisLocker(rdb, config.Cache.Prefix, config.Booking.LockTTL, config.Booking.LockTimeout, logger)
	case "local", "":
		deps.Locker = lock.NewLocalLocker(config.Booking.LockTimeout)
	default:
		closeAll()
		return deps, nil, fmt.Errorf("unknown lock driver %q", config.Booking.LockDriver)
	}

	publisher, err := events.NewPublisher(config.Events, logger)
	if err != nil {
		closeAll()
		return deps, nil, err
	}
	closers = append(closers, func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("Failed to close event publisher", zap.Error(err))
		}
	})
	deps.Publisher = publisher
	deps.Now = time.Now

	return deps, closeAll, nil
}
