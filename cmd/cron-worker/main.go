package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/sharecart-backend/internal/cron"
	"github.com/angelmondragon/sharecart-backend/internal/sharelinks"
	"github.com/angelmondragon/sharecart-backend/pkg/config"
	"github.com/angelmondragon/sharecart-backend/pkg/db"
	"github.com/angelmondragon/sharecart-backend/pkg/instance"
	"github.com/angelmondragon/sharecart-backend/pkg/logger"
	"github.com/angelmondragon/sharecart-backend/pkg/metrics"
	"github.com/angelmondragon/sharecart-backend/pkg/migrate"
	"github.com/angelmondragon/sharecart-backend/pkg/redis"
)

const lockName = "share-link-cleanup"

func main() {
	once := flag.Bool("once", false, "run every job a single time and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		File:        logger.FileOptionsFromConfig(cfg.Log),
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	service, err := buildService(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
		"schedule":    cfg.Cron.Schedule,
	})

	exitCode := 0
	if *once {
		logg.Info(ctx, "running cron jobs once")
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron run failed", err)
			exitCode = 1
		}
	} else {
		logg.Info(ctx, "starting cron worker")
		if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "cron worker stopped unexpectedly", err)
			exitCode = 1
		} else {
			logg.Info(ctx, "cron worker shutting down gracefully")
		}
	}

	if err := multierr.Combine(redisClient.Close(), dbClient.Close(), logg.Close()); err != nil {
		logg.Error(ctx, "error during shutdown", err)
		exitCode = 1
	}
	os.Exit(exitCode)
}

func buildService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Service, error) {
	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	links, err := sharelinks.NewStore(sharelinks.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, err
	}
	cleanup, err := cron.NewShareLinkCleanupJob(cron.ShareLinkCleanupJobParams{
		Logger:  logg,
		Links:   links,
		Metrics: cronMetrics,
	})
	if err != nil {
		return nil, err
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName), cfg.Cron.LockTTL)
	if err != nil {
		return nil, err
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(cleanup),
		Lock:     lock,
		Metrics:  cronMetrics,
		Schedule: cfg.Cron.Schedule,
	})
}
