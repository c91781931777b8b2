package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/openkiosk/fleetd/internal/config"
	"github.com/openkiosk/fleetd/internal/db"
	"github.com/openkiosk/fleetd/internal/logging"
	"github.com/openkiosk/fleetd/internal/server"
	"github.com/openkiosk/fleetd/internal/telemetry"
	"github.com/openkiosk/fleetd/internal/version"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "fleetd",
	Short: "fleetd - signage fleet management daemon",
	Long:  "fleetd manages a fleet of signage players: schedule slots, asset playlists, live resolution and playback history.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the fleetd server",
	Long:  "Start the HTTP API server and the fleet watcher",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Printf("fleetd %s (%s, %s)\n", info.Version, info.Commit, info.GoVersion)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations and exit",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.Setup(cfg.Environment)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Msg("fleetd starting")

	tracerProvider, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:    "fleetd",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown tracer provider")
		}
	}()

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	httpServer := srv.HTTPServer()

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	metricsServer := &http.Server{
		Addr:              cfg.MetricsBind,
		Handler:           srv.MetricsHandler(),
		ReadHeaderTimeout: 15 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", cfg.MetricsBind).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gracefully...")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := metricsServer.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("metrics shutdown failed")
	}

	if err := srv.Close(); err != nil {
		logger.Error().Err(err).Msg("shutdown cleanup failed")
	}

	logger.Info().Msg("fleetd stopped")
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close(database)

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	logger.Info().Msg("migrations applied")
	return nil
}
