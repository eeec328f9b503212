package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"

	"madrid-dashboard/config"
	"madrid-dashboard/dashboard"
	"madrid-dashboard/services"
	"madrid-dashboard/snapshot"
	"madrid-dashboard/storage"
	"madrid-dashboard/utils"
)

func main() {
	mode := flag.String("mode", "serve", "serve | report | snapshot")
	configDir := flag.String("config", "", "directory holding dashboard.yaml")
	dataset := flag.String("dataset", "", "dataset path or postgres:// URL (overrides DATASET_PATH)")
	export := flag.String("export", "", "report mode: also write the listings as CSV to this path")
	flag.Parse()

	cfg := config.Load(*configDir)
	if *dataset != "" {
		cfg.DatasetPath = *dataset
	}

	logger, closeLogger := newLogger(cfg)
	defer closeLogger()

	logger.Info("=== Madrid real estate dashboard starting (%s) ===", *mode)
	logger.Info("Config: dataset: %s | cache ttl: %v | addr: %s", cfg.DatasetPath, cfg.CacheTTL, cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch *mode {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "report":
		err = report(ctx, cfg, logger, *export)
	case "snapshot":
		err = snap(ctx, cfg, logger)
	default:
		logger.Error("Unknown mode %q", *mode)
		flag.Usage()
		closeLogger()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("%v", err)
		closeLogger()
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*utils.Logger, func()) {
	lc := utils.LoggerConfig{
		Level: utils.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
		Color: !cfg.LogJSON,
	}

	if cfg.FluentEnabled {
		f, err := fluent.New(fluent.Config{FluentHost: cfg.FluentHost, FluentPort: cfg.FluentPort, Async: true})
		if err != nil {
			utils.NewLogger().Warn("[logger] Fluentd unavailable at %s:%d: %v", cfg.FluentHost, cfg.FluentPort, err)
		} else {
			lc.Fluent = f
			lc.FluentTag = "dashboard"
		}
	}

	logger := utils.NewLoggerWithConfig(lc)
	return logger, func() {
		if lc.Fluent != nil {
			_ = lc.Fluent.Close()
		}
	}
}

func newLoader(cfg *config.Config, logger *utils.Logger) *storage.Loader {
	return storage.NewLoader(storage.LoaderConfig{
		TTL:   cfg.CacheTTL,
		Table: cfg.DatasetTable,
		Retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		Logger: logger,
	})
}

func serve(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	orch, err := dashboard.NewOrchestrator(ctx, dashboard.OrchestratorConfig{
		Loader:        newLoader(cfg, logger),
		Path:          cfg.DatasetPath,
		HistogramBins: cfg.HistogramBins,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	srv, err := dashboard.NewServer(dashboard.ServerConfig{
		Addr:           cfg.HTTPAddr,
		AllowedOrigins: cfg.AllowedOrigins,
		Palette:        cfg.Palette,
		Logger:         logger,
	}, orch)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return err
	}
	logger.Info("=== Dashboard stopped ===")
	return nil
}

func report(ctx context.Context, cfg *config.Config, logger *utils.Logger, exportPath string) error {
	ds, err := newLoader(cfg, logger).Load(ctx, cfg.DatasetPath)
	if err != nil {
		return err
	}

	insightSvc := services.NewInsightService(logger)
	insightSvc.Print(os.Stdout, insightSvc.Generate(ds))

	if exportPath == "" {
		return nil
	}
	w, err := storage.NewCSVFileWriter(exportPath)
	if err != nil {
		return err
	}
	if err := storage.WriteAll(w, services.WithPricePerArea(ds)); err != nil {
		return err
	}
	logger.Info("Listings saved to %s", exportPath)
	return nil
}

func snap(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	paths, err := snapshot.New(cfg, logger).Capture(ctx, dashboard.Tabs)
	logger.Info("Captured %d/%d tabs into %s", len(paths), len(dashboard.Tabs), cfg.SnapshotDir)
	return err
}
