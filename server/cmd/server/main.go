package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/obsidianstack/samplerate/pkg/config"
	"github.com/obsidianstack/samplerate/server/internal/api"
	"github.com/obsidianstack/samplerate/server/internal/metrics"
	"github.com/obsidianstack/samplerate/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("samplerate-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ceiling := cfg.ServerCeiling()
	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"effective_ceiling", ceiling.Effective(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.New()
	m.SetCeiling(ceiling, false)

	apiHandler, err := api.New(ceiling, m)
	if err != nil {
		slog.Error("failed to build api", "err", err)
		os.Exit(1)
	}
	hub, err := ws.New(ceiling, m)
	if err != nil {
		slog.Error("failed to build ws hub", "err", err)
		os.Exit(1)
	}
	go hub.Run(ctx)

	// Hot reload: only the ceiling is live; port, auth and CORS need a restart.
	go func() {
		err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			c := updated.ServerCeiling()
			if err := apiHandler.SetCeiling(c); err != nil {
				slog.Error("config: ignoring reloaded ceiling", "err", err)
				return
			}
			if err := hub.SetCeiling(c); err != nil {
				slog.Error("config: ws hub rejected ceiling", "err", err)
			}
			m.SetCeiling(c, true)
			slog.Info("config: ceiling reloaded", "effective_ceiling", c.Effective(), "clients", hub.Count())
		})
		if err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	if cfg.Server.Auth.Mode == "apikey" && cfg.Server.Auth.Key() == "" {
		slog.Warn("auth mode is apikey but no key is set, API is open", "key_env", cfg.Server.Auth.KeyEnv)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           newRouter(cfg, apiHandler, hub, m),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("samplerate-server shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}
