package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/stocktakehq/stocktake-backend/api/routes"
	"github.com/stocktakehq/stocktake-backend/internal/bulkops"
	"github.com/stocktakehq/stocktake-backend/internal/products"
	"github.com/stocktakehq/stocktake-backend/internal/sessions"
	"github.com/stocktakehq/stocktake-backend/internal/templates"
	"github.com/stocktakehq/stocktake-backend/internal/units"
	"github.com/stocktakehq/stocktake-backend/pkg/config"
	"github.com/stocktakehq/stocktake-backend/pkg/db"
	"github.com/stocktakehq/stocktake-backend/pkg/logger"
	"github.com/stocktakehq/stocktake-backend/pkg/metrics"
	"github.com/stocktakehq/stocktake-backend/pkg/migrate"
	"github.com/stocktakehq/stocktake-backend/pkg/redis"
)

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
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	// Redis is optional; without it the idempotency guard passes through.
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(context.Background(), "redis not configured, idempotency guard disabled")
	}

	unitsRepo := units.NewRepository(dbClient.DB())
	productsRepo := products.NewRepository(dbClient.DB())
	templatesRepo := templates.NewRepository(dbClient.DB())
	sessionsRepo := sessions.NewRepository(dbClient.DB())

	unitsService, err := units.NewService(unitsRepo)
	exitOnErr(logg, "unit service", err)
	productsService, err := products.NewService(productsRepo, unitsRepo)
	exitOnErr(logg, "product service", err)
	templatesService, err := templates.NewService(templatesRepo, productsRepo)
	exitOnErr(logg, "template service", err)
	sessionsService, err := sessions.NewService(dbClient, sessionsRepo, templatesRepo, logg)
	exitOnErr(logg, "session service", err)
	bulkService, err := bulkops.NewService(
		productsRepo, unitsRepo, templatesRepo, sessionsRepo,
		logg, metrics.NewBulkImportMetrics(prometheus.DefaultRegisterer),
	)
	exitOnErr(logg, "bulk service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			RedisClient: redisClient,
			Units:       unitsService,
			Products:    productsService,
			Templates:   templatesService,
			Sessions:    sessionsService,
			Bulk:        bulkService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func exitOnErr(logg *logger.Logger, what string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+what, err)
	os.Exit(1)
}
