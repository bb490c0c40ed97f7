// Package main is the entry point for the Order Sentinel binary. It
// dispatches three subcommands — serve, sweep, and version — via a simple
// switch on os.Args so the binary's full CLI surface is readable in one place
// without requiring a cobra dependency. serve runs the periodic sweeper as a
// long-lived service; sweep runs exactly one detection sweep and exits, for
// cron-style deployments that prefer an external scheduler.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108 -- pprof only serves on a dedicated internal port when profiling is enabled; DefaultServeMux is never exposed otherwise.
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/order-sentinel/order-sentinel/internal/config"
	"github.com/order-sentinel/order-sentinel/internal/db"
	"github.com/order-sentinel/order-sentinel/internal/db/repositories"
	"github.com/order-sentinel/order-sentinel/internal/detection"
	"github.com/order-sentinel/order-sentinel/internal/jobs"
	"github.com/order-sentinel/order-sentinel/internal/notify"
	"github.com/order-sentinel/order-sentinel/internal/safego"
	"github.com/order-sentinel/order-sentinel/internal/telemetry"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	// Parse command from args
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	if command == "version" {
		fmt.Printf("Order Sentinel v%s\n", version)
		return nil
	}

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch command {
	case "serve":
		return serve(cfg)
	case "sweep":
		return sweepOnce(cfg)
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, sweep, version", command)
	}
}

// serve runs the detection sweeper on its interval until SIGINT/SIGTERM.
func serve(cfg *config.Config) error {
	// Initialise structured logger as early as possible so all subsequent log
	// output uses the configured format (json / text) and level.
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	database, err := connect(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	// Begin exporting DB pool statistics to Prometheus.
	telemetry.StartDBStatsCollector(database.DB)

	startTelemetryListeners(cfg)

	engine := buildEngine(cfg, database)
	sweeper := jobs.NewDetectionSweeper(engine, cfg.Detection.SweepInterval())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	safego.Go(func() { sweeper.Start(ctx) })

	slog.Info("order sentinel started",
		"version", version,
		"sweep_interval", cfg.Detection.SweepInterval(),
		"notifications_enabled", cfg.Notifications.Enabled)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	sweeper.Stop()
	cancel()

	// Give an in-flight sweep a moment to notice the cancelled context.
	time.Sleep(250 * time.Millisecond)
	slog.Info("stopped")
	return nil
}

// sweepOnce runs a single detection sweep and exits.
func sweepOnce(cfg *config.Config) error {
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	database, err := connect(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	buildEngine(cfg, database).RunSweep(context.Background())
	return nil
}

func connect(cfg *config.Config) (*sqlx.DB, error) {
	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("connected to database",
		"host", cfg.Database.Host, "name", cfg.Database.Name)
	return database, nil
}

// buildEngine wires repositories, baselines, notification channels, and the
// three detectors into a sweep engine.
func buildEngine(cfg *config.Config, database *sqlx.DB) *detection.Engine {
	orderRepo := repositories.NewOrderRepository(database)
	auditRepo := repositories.NewAuditEventRepository(database)
	userRepo := repositories.NewUserRepository(database)
	findingRepo := repositories.NewFindingRepository(database)

	var channels []string
	var dispatcher *notify.Dispatcher
	if cfg.Notifications.Enabled {
		channels = cfg.Notifications.Channels
		dispatcher = notify.NewDispatcher(
			notify.NewEmailChannel(cfg.Notifications.SMTP, userRepo),
			notify.NewWebhookChannel(cfg.Notifications.Webhook),
			notify.NewInAppChannel(cfg.Notifications.Redis),
		)
	} else {
		dispatcher = notify.NewDispatcher()
	}

	reporter := detection.NewReporter(findingRepo, userRepo, dispatcher, channels)
	baselines := detection.NewBaselineCalculator(orderRepo, auditRepo, cfg.Detection)

	return detection.NewEngine(cfg.Detection.SweepTimeout,
		detection.NewHighValueDetector(orderRepo, baselines, reporter, cfg.Detection),
		detection.NewAuthFailureDetector(auditRepo, reporter, cfg.Detection),
		detection.NewUnusualAccessDetector(auditRepo, userRepo, baselines, reporter, cfg.Detection),
	)
}

// startTelemetryListeners serves Prometheus metrics and, when enabled, pprof
// on dedicated internal ports so neither shares a listener with anything
// public.
func startTelemetryListeners(cfg *config.Config) {
	if cfg.Telemetry.Metrics.Enabled {
		metricsAddr := fmt.Sprintf(":%d", cfg.Telemetry.Metrics.PrometheusPort)
		safego.Go(func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			slog.Info("starting Prometheus metrics server", "addr", metricsAddr)
			srv := &http.Server{
				Addr:         metricsAddr,
				Handler:      mux,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server error", "error", err)
			}
		})
	}

	if cfg.Telemetry.Profiling.Enabled {
		pprofAddr := fmt.Sprintf(":%d", cfg.Telemetry.Profiling.Port)
		safego.Go(func() {
			slog.Info("starting pprof server", "addr", pprofAddr)
			// net/http/pprof registers its handlers on http.DefaultServeMux at init time.
			srv := &http.Server{
				Addr:         pprofAddr,
				Handler:      http.DefaultServeMux, // #nosec G108 -- pprof-only internal port
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 30 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("pprof server error", "error", err)
			}
		})
	}
}
