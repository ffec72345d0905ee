package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cardclub/tabled/internal/audit"
	"github.com/cardclub/tabled/internal/clock"
	"github.com/cardclub/tabled/internal/config"
	"github.com/cardclub/tabled/internal/ledger"
	"github.com/cardclub/tabled/internal/metrics"
	"github.com/cardclub/tabled/internal/policy"
	"github.com/cardclub/tabled/internal/storage/sqlite"
	"github.com/cardclub/tabled/internal/web"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the tabled server",
	Long:  `Start the table-time tracker with the operator web UI and metrics endpoints.`,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting tabled")

	location, err := cfg.Club.Location()
	if err != nil {
		return err
	}
	resolution, err := cfg.Club.Resolution()
	if err != nil {
		return err
	}

	// Club database
	store, err := sqlite.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open club database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close club database")
		}
	}()
	logger.Info().Str("path", cfg.Storage.DatabasePath).Msg("Club database opened")

	// Audit trail
	var trail *audit.Log
	if cfg.Storage.AuditPath != "" {
		trail, err = audit.Open(cfg.Storage.AuditPath)
		if err != nil {
			return fmt.Errorf("failed to open audit log: %w", err)
		}
		defer func() {
			if err := trail.Close(); err != nil {
				logger.Error().Err(err).Msg("Failed to close audit log")
			}
		}()
		logger.Info().Str("path", cfg.Storage.AuditPath).Msg("Audit log opened")
	}

	// Wall clock: ticks on real second/minute boundaries and feeds the
	// clock gauge so offset drift is visible in monitoring.
	wall := clock.New(location, resolution, logger)
	wall.OnTick(func(now time.Time) {
		metrics.ClockTimestamp.Set(float64(now.Unix()))
	})
	wall.Start()
	defer wall.Cancel()

	sessionLedger := ledger.New(store, wall, trail, logger)

	defaultStart, err := clock.DefaultSessionStart(wall.Now(), cfg.Club.SessionStartTime)
	if err != nil {
		return err
	}
	selector := policy.NewSelector(sessionLedger, wall, defaultStart, trail, logger)
	logger.Info().Time("default_start", defaultStart).Msg("Session ledger initialized")

	// Operator web server
	tokenExpiration, _ := time.ParseDuration(cfg.Admin.TokenExpiration)
	webServer := web.NewServer(web.Config{
		ListenAddr:      fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.WebPort),
		ClubName:        cfg.Club.Name,
		Username:        cfg.Admin.Username,
		PasswordHash:    cfg.Admin.PasswordHash,
		JWTSecret:       cfg.Admin.JWTSecret,
		TokenExpiration: tokenExpiration,
	}, store, sessionLedger, selector, wall, trail, resolution, location, logger)
	webServer.Start()

	metrics.Serve(fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.MetricsPort), logger)

	// Notify systemd we are ready
	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Warn().Err(err).Msg("Failed to notify systemd")
	} else if sent {
		logger.Debug().Msg("Notified systemd of readiness")
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	wall.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := webServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Operator server shutdown failed")
	}

	return nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
