package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/omnisync/backend/internal/infrastructure/config"
	"github.com/omnisync/backend/internal/infrastructure/logger"
	"github.com/omnisync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "omnisync:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logCfg := logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	tel, err := startTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer tel.shutdown(log)

	if tel.logs.IsEnabled() {
		bridged, err := logger.New(logCfg, tel.logs.ZapCore(cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level)))
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		log = bridged
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting omnisync",
		zap.String("version", version),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("database", cfg.Database.Driver),
		zap.String("lock_backend", cfg.Lock.Backend),
	)

	app, err := newApp(ctx, cfg, log, tel)
	if err != nil {
		return err
	}
	defer app.close()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine, err := app.httpEngine()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)

	if err := app.notifier.Start(gctx); err != nil {
		return fmt.Errorf("failed to start notifier: %w", err)
	}
	if err := app.queue.Start(gctx); err != nil {
		return fmt.Errorf("failed to start job queue: %w", err)
	}
	if cfg.Sync.SchedulerEnabled {
		if err := app.trigger.Start(gctx); err != nil {
			return fmt.Errorf("failed to start inventory sync trigger: %w", err)
		}
	}

	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		// Stop intake first so no new work reaches the workers.
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server forced to shutdown", zap.Error(err))
		}
		app.shutdownWorkers(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Server exited gracefully")
	return nil
}

// telemetryStack holds the OpenTelemetry providers and the profiler
type telemetryStack struct {
	traces   *telemetry.TracerProvider
	metrics  *telemetry.MeterProvider
	logs     *telemetry.LoggerProvider
	profiler *telemetry.Profiler
	business *telemetry.BusinessMetrics
}

func startTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*telemetryStack, error) {
	base := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}

	traces, err := telemetry.NewTracerProvider(ctx, base, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	metricsCfg := base
	metricsCfg.Enabled = cfg.Telemetry.MetricsEnabled
	metrics, err := telemetry.NewMeterProvider(ctx, metricsCfg, cfg.Telemetry.MetricsInterval, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	logsCfg := base
	logsCfg.Enabled = cfg.Telemetry.LogsEnabled
	logs, err := telemetry.NewLoggerProvider(ctx, logsCfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize log export: %w", err)
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		return nil, err
	}
	if profiler.IsEnabled() {
		traces.EnableSpanProfiles()
	}

	return &telemetryStack{
		traces:   traces,
		metrics:  metrics,
		logs:     logs,
		profiler: profiler,
		business: telemetry.NewBusinessMetrics(),
	}, nil
}

func (t *telemetryStack) shutdown(log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := t.profiler.Stop(); err != nil {
		log.Warn("Failed to stop profiler", zap.Error(err))
	}
	if err := t.traces.Shutdown(ctx); err != nil {
		log.Warn("Failed to flush traces", zap.Error(err))
	}
	if err := t.metrics.Shutdown(ctx); err != nil {
		log.Warn("Failed to flush metrics", zap.Error(err))
	}
	// Logs go last so the messages above still reach the collector.
	if err := t.logs.Shutdown(ctx); err != nil {
		log.Warn("Failed to flush logs", zap.Error(err))
	}
}
