package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/star/pulsedelay/internal/api"
	"github.com/star/pulsedelay/internal/auth"
	"github.com/star/pulsedelay/internal/config"
	"github.com/star/pulsedelay/internal/ephem"
	"github.com/star/pulsedelay/internal/metrics"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: loadLogLevel(),
	}))

	addr := os.Getenv("PULSEDELAY_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	cfgPath := os.Getenv("PULSEDELAY_CONFIG")
	cfg := config.Default()
	if cfgPath != "" {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			logger.Error("failed to load model config", "path", cfgPath, "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("PULSEDELAY_CONFIG not set, using default model")
	}

	state := api.NewState()
	if err := apply(cfg, state, logger); err != nil {
		logger.Error("failed to build timing model", "error", err)
		os.Exit(1)
	}
	metrics.RecordReload(nil)

	srv := api.NewServer(addr, logger, authCfg, state)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfgPath != "" {
		go func() {
			err := config.Watch(ctx, cfgPath, logger, func(c *config.Config) error {
				return apply(c, state, logger)
			})
			if err != nil {
				logger.Warn("config watch stopped", "path", cfgPath, "error", err)
			}
		}()
	}

	go func() {
		logger.Info("starting server", "addr", addr, "auth_enabled", authCfg.Enabled, "config", cfgPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// apply builds everything cfg describes and swaps it in only if all of it
// succeeds.
func apply(cfg *config.Config, state *api.State, logger *slog.Logger) error {
	m, err := cfg.BuildModel(logger)
	if err != nil {
		return err
	}
	reg, err := cfg.BuildRegistry()
	if err != nil {
		return err
	}
	table, err := cfg.LoadEphemeris()
	if err != nil {
		return err
	}

	// A nil *ephem.Table must become a nil interface.
	var eph ephem.Ephemeris
	if table != nil {
		eph = table
		logger.Info("ephemeris loaded", "name", table.Name(), "path", cfg.Ephemeris)
	}

	state.Set(m, reg, eph)
	logger.Info("timing model ready",
		"components", cfg.Components,
		"params", len(m.Params()),
		"observatories", len(reg.Names()),
	)
	return nil
}

func loadLogLevel() slog.Level {
	switch strings.ToLower(os.Getenv("PULSEDELAY_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("PULSEDELAY_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("PULSEDELAY_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("PULSEDELAY_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("PULSEDELAY_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}
