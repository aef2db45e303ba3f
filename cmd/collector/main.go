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

	"reward_collector/internal/config"
	"reward_collector/internal/extractor"
	"reward_collector/internal/heuristic"
	"reward_collector/internal/publisher"
	"reward_collector/internal/resolver"
	"reward_collector/internal/scheduler"
	"reward_collector/internal/server"
	"reward_collector/internal/service"
	"reward_collector/internal/storage/sqlite"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dryRun := flag.Bool("dry", false, "resolve and score but persist nothing")
	once := flag.Bool("once", false, "run a single cycle and exit")
	web := flag.Bool("web", false, "serve the web ui alongside the collector")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database ready", "path", cfg.Database.Path)

	// Initialize RabbitMQ publisher when enabled
	var pub service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	// Initialize stores
	linkStore := sqlite.NewLinkStore(db)
	trustStore := sqlite.NewTrustStore(db)
	runStore := sqlite.NewRunStore(db)
	txManager := sqlite.NewTransactionManager(db)

	matcher, err := heuristic.NewMatcher(cfg.Collect.RewardPatterns)
	if err != nil {
		logger.Error("invalid reward pattern", "error", err)
		os.Exit(1)
	}

	sources := make([]extractor.Source, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		sources = append(sources, extractor.Source{Name: s.Name, URL: s.URL})
	}

	ext := extractor.New(extractor.Config{
		Sources:   sources,
		Timeout:   cfg.Collect.RequestTimeout,
		UserAgent: cfg.Collect.UserAgent,
	}, matcher, logger)

	res := resolver.New(resolver.Config{
		Timeout:   cfg.Collect.RequestTimeout,
		UserAgent: cfg.Collect.UserAgent,
	}, matcher, logger)

	collectService := service.NewCollectService(
		ext,
		res,
		linkStore,
		trustStore,
		runStore,
		txManager,
		pub,
		logger,
		cfg.Collect,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if *web {
		srv := server.New(collectService, logger)
		httpServer := &http.Server{
			Addr:    cfg.Web.ListenAddr,
			Handler: srv.Handler(),
		}

		go func() {
			logger.Info("starting web ui", "addr", cfg.Web.ListenAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("web server error", "error", err)
				cancel()
			}
		}()

		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("web server shutdown error", "error", err)
			}
		}()
	}

	if *once {
		stats, err := collectService.RunCycle(ctx, *dryRun)
		if err != nil {
			logger.Error("cycle failed", "error", err)
			os.Exit(1)
		}
		logger.Info("cycle complete",
			"checked", stats.Checked,
			"valid", stats.Valid,
			"removed", stats.Removed,
		)
		return
	}

	logger.Info("starting reward collector",
		"sources", len(cfg.Sources),
		"interval", cfg.Collect.Interval,
		"dry_run", *dryRun,
	)

	sched := scheduler.NewScheduler(collectService, cfg.Collect.Interval, *dryRun, logger)
	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
