package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/cuzonet/cuzonet-backend/api/routes"
	"github.com/cuzonet/cuzonet-backend/internal/devicestatus"
	"github.com/cuzonet/cuzonet-backend/internal/importer"
	"github.com/cuzonet/cuzonet-backend/internal/payments"
	"github.com/cuzonet/cuzonet-backend/internal/plans"
	"github.com/cuzonet/cuzonet-backend/internal/subscribers"
	"github.com/cuzonet/cuzonet-backend/pkg/config"
	"github.com/cuzonet/cuzonet-backend/pkg/db"
	"github.com/cuzonet/cuzonet-backend/pkg/logger"
	"github.com/cuzonet/cuzonet-backend/pkg/metrics"
	"github.com/cuzonet/cuzonet-backend/pkg/migrate"
	"github.com/cuzonet/cuzonet-backend/pkg/routeros"
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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deviceMetrics := metrics.NewDeviceMetrics(registry)

	subscriberRepo := subscribers.NewRepository(dbClient.DB())
	paymentRepo := payments.NewRepository(dbClient.DB())
	planRepo := plans.NewRepository(dbClient.DB())

	planService, err := plans.NewService(plans.ServiceParams{Repo: planRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create plan service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(payments.ServiceParams{Repo: paymentRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	// A blank device host means registry-only bookkeeping: transitions skip
	// device calls and the status endpoint reports "not configured".
	var deviceClient *routeros.Client
	var statusCache *devicestatus.Cache
	var importJob *importer.Job
	if cfg.Device.Enabled() {
		deviceClient, err = routeros.NewClient(cfg.Device, logg, deviceMetrics)
		if err != nil {
			logg.Error(context.Background(), "failed to create device client", err)
			os.Exit(1)
		}
		statusCache = devicestatus.New(deviceClient, cfg.StatusCache.TTL)

		importJob, err = importer.NewJob(importer.JobParams{
			Device:    deviceClient,
			Repo:      subscriberRepo,
			Logger:    logg,
			ErrorCap:  cfg.Import.ErrorCap,
			PlanLabel: cfg.Import.PlanLabel,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create import job", err)
			os.Exit(1)
		}
	} else {
		statusCache = devicestatus.New(nil, cfg.StatusCache.TTL)
	}

	subscriberParams := subscribers.ServiceParams{
		Repo:     subscriberRepo,
		Payments: paymentRepo,
		Plans:    planService,
		Tx:       dbClient,
		Logger:   logg,
	}
	if deviceClient != nil {
		subscriberParams.Device = deviceClient
	}

	subscriberService, err := subscribers.NewService(subscriberParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create subscriber service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":            cfg.App.Env,
		"addr":           addr,
		"device_enabled": cfg.Device.Enabled(),
	})
	logg.Info(ctx, "starting api server")

	deps := routes.Deps{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Subscribers: subscriberService,
		Payments:    paymentService,
		Plans:       planService,
		StatusCache: statusCache,
		Metrics:     registry,
	}
	if importJob != nil {
		deps.ImportJob = importJob
	}

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(deps),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
