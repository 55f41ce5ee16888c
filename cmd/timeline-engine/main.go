package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miradorstack/anomaly-timeline/internal/api"
	"github.com/miradorstack/anomaly-timeline/internal/cache"
	"github.com/miradorstack/anomaly-timeline/internal/config"
	"github.com/miradorstack/anomaly-timeline/internal/engine"
	"github.com/miradorstack/anomaly-timeline/internal/metrics"
	"github.com/miradorstack/anomaly-timeline/internal/repo"
	"github.com/miradorstack/anomaly-timeline/internal/services"
	"github.com/miradorstack/anomaly-timeline/internal/utils"
	"github.com/miradorstack/anomaly-timeline/internal/views"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting anomaly-timeline",
		slog.String("grpc_address", cfg.Server.Address),
		slog.String("http_address", cfg.Server.HTTPAddress),
		slog.String("source", cfg.Source.BaseURL),
	)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	loc, err := cfg.Timeline.LoadLocation()
	if err != nil {
		logger.Error("failed to load timeline location", slog.Any("error", err))
		os.Exit(1)
	}
	policy, err := engine.ParseDurationPolicy(cfg.Timeline.MalformedPolicy)
	if err != nil {
		logger.Error("invalid malformed duration policy", slog.Any("error", err))
		os.Exit(1)
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable", slog.Any("error", err))
		} else {
			cacheProvider = provider
		}
	}
	defer cacheProvider.Close()

	graphClient := repo.NewAnomalyGraphClient(
		cfg.Source.BaseURL,
		cfg.Source.GraphPath,
		cfg.Source.Timeout,
		cacheProvider,
		cfg.Cache.SnapshotTTL,
		loc,
	)

	aggregator := engine.NewAggregator(loc, policy)
	memo, err := engine.NewMemo(aggregator, cfg.Timeline.MemoSize)
	if err != nil {
		logger.Error("failed to create aggregation memo", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("timeline aggregation configured",
		slog.String("location", aggregator.Location().String()),
		slog.String("malformed_policy", string(aggregator.Policy())),
		slog.Int("memo_size", cfg.Timeline.MemoSize),
	)

	viewManager := views.NewManager(logger, cfg.Views.IdleTTL, cfg.Views.CleanupInterval)
	hub := api.NewHub(logger)
	refresher := services.NewRefresher(logger, graphClient, memo, cfg.Source.RefreshInterval, viewManager, hub)
	timelineService := services.NewTimelineService(logger, viewManager)

	server, err := api.NewServer(cfg.Server, timelineService)
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go hub.Run(ctx)
	go refresher.Run(ctx)

	var httpServer *http.Server
	if cfg.Server.HTTPAddress != "" {
		httpServer = &http.Server{
			Addr:              cfg.Server.HTTPAddress,
			Handler:           api.NewRouter(logger, timelineService, hub),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("http gateway listening", slog.String("address", cfg.Server.HTTPAddress))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http gateway exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	for name, srv := range map[string]*http.Server{"http gateway": httpServer, "metrics server": metricsServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn(name+" shutdown", slog.Any("error", err))
		}
	}

	logger.Info("anomaly-timeline stopped", slog.Int("open_views", viewManager.Count()))
}
