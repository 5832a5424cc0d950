package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/sharecart-backend/api"
	"github.com/angelmondragon/sharecart-backend/api/routes"
	"github.com/angelmondragon/sharecart-backend/internal/catalog"
	"github.com/angelmondragon/sharecart-backend/internal/reports"
	"github.com/angelmondragon/sharecart-backend/internal/sharecart"
	"github.com/angelmondragon/sharecart-backend/internal/sharelinks"
	"github.com/angelmondragon/sharecart-backend/internal/sharestats"
	"github.com/angelmondragon/sharecart-backend/internal/storecart"
	"github.com/angelmondragon/sharecart-backend/pkg/config"
	"github.com/angelmondragon/sharecart-backend/pkg/db"
	"github.com/angelmondragon/sharecart-backend/pkg/instance"
	"github.com/angelmondragon/sharecart-backend/pkg/logger"
	"github.com/angelmondragon/sharecart-backend/pkg/metrics"
	"github.com/angelmondragon/sharecart-backend/pkg/migrate"
	"github.com/angelmondragon/sharecart-backend/pkg/redis"
	"github.com/angelmondragon/sharecart-backend/pkg/security"
	"github.com/angelmondragon/sharecart-backend/pkg/session"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	shareService, reportService, err := buildServices(cfg, logg, dbClient, redisClient, metrics.NewShareCartMetrics(registry))
	if err != nil {
		logg.Error(context.Background(), "failed to wire share cart services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	handler := routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		shareService,
		reportService,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	)
	server := api.NewServer(addr, handler)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "api server shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	closeErr := multierr.Combine(
		server.Shutdown(shutdownCtx),
		redisClient.Close(),
		dbClient.Close(),
		logg.Close(),
	)
	if closeErr != nil {
		logg.Error(ctx, "error during shutdown", closeErr)
		exitCode = 1
	}
	os.Exit(exitCode)
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	shareMetrics *metrics.ShareCartMetrics,
) (sharecart.Service, *reports.Service, error) {
	links, err := sharelinks.NewStore(sharelinks.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, nil, err
	}
	stats, err := sharestats.NewStore(sharestats.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, nil, err
	}
	catalogRepo := catalog.NewRepository(dbClient.DB())

	cart, err := storecart.New(storecart.Params{
		Redis:   redisClient,
		Catalog: catalogRepo,
		CartURL: cfg.ShareLinks.ResolvedCartURL(),
		TTL:     cfg.Session.TTL,
	})
	if err != nil {
		return nil, nil, err
	}
	sessions, err := session.NewStore(redisClient, cfg.Session.TTL)
	if err != nil {
		return nil, nil, err
	}
	hasher, err := security.NewAddressHasher(cfg.Privacy)
	if err != nil {
		return nil, nil, err
	}

	shareService, err := sharecart.NewService(sharecart.ServiceParams{
		Links:   links,
		Stats:   stats,
		Cart:    cart,
		Catalog: catalogRepo,
		Session: sessions,
		Hasher:  hasher,
		Logger:  logg,
		Metrics: shareMetrics,
		BaseURL: cfg.ShareLinks.BaseURL,
		TTL:     cfg.ShareLinks.TTL(),
	})
	if err != nil {
		return nil, nil, err
	}

	reportService, err := reports.NewService(stats, nil)
	if err != nil {
		return nil, nil, err
	}
	return shareService, reportService, nil
}
