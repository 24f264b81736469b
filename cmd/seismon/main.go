// Package main is the entry point for the station QC proxy server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"seismon/config"
	"seismon/internal/cache"
	"seismon/internal/qc"
	"seismon/internal/qcclient"
	"seismon/internal/server"
	"seismon/internal/station"
	"seismon/internal/version"
)

func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg.LogFormat)

	slog.Info("starting seismon",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
	)

	// Cache store manager: a down Redis never blocks startup, the manager
	// keeps reconnecting in the background.
	var store *cache.Manager
	dial, err := cache.RedisDialer(cfg.Redis.URL)
	if err != nil {
		slog.Error("invalid redis configuration", "error", err)
		os.Exit(1)
	}
	store = cache.NewManager(cache.ManagerConfig{
		Dial:           dial,
		ConnectTimeout: cfg.Redis.ConnectTimeout,
		RetryInterval:  cfg.Redis.RetryInterval,
	})
	defer func() {
		_ = store.Close()
	}()

	// Upstream QC client and service
	upstream := qcclient.New(qcclient.Config{
		BaseURL: cfg.QC.BaseURL,
		APIKey:  cfg.QC.APIKey,
	})
	service := qc.NewService(upstream, store)

	// Station metadata repository (optional collaborator)
	var stations station.Repository
	if cfg.DatabaseURL != "" {
		repo, err := station.NewPostgresRepository(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Warn("station metadata database unavailable, station routes disabled", "error", err)
		} else {
			stations = repo
			defer repo.Close()
		}
	} else {
		slog.Info("no metadata database configured, station routes disabled")
	}

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	// Create and start server
	srv := server.New(service, stations, &server.Config{
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
	})

	// Handle graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	slog.Info("starting server", "address", addr)

	if err := srv.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
		} else {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}
}

// setupLogging installs the process-wide slog handler: JSON by default,
// tint's colorized output when LOG_FORMAT=pretty.
func setupLogging(format string) {
	var handler slog.Handler
	if format == "pretty" {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			TimeFormat: time.TimeOnly,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(handler))
}
