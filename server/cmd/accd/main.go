package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/aicommandcenter/aicc/pkg/health"
	"github.com/aicommandcenter/aicc/pkg/ollama"
	"github.com/aicommandcenter/aicc/pkg/paths"
	"github.com/aicommandcenter/aicc/pkg/probe"
	"github.com/aicommandcenter/aicc/pkg/routing"
	"github.com/aicommandcenter/aicc/pkg/types"
	"github.com/aicommandcenter/aicc/server/internal/alerts"
	"github.com/aicommandcenter/aicc/server/internal/api"
	"github.com/aicommandcenter/aicc/server/internal/config"
	"github.com/aicommandcenter/aicc/server/internal/logging"
	"github.com/aicommandcenter/aicc/server/internal/metrics"
	"github.com/aicommandcenter/aicc/server/internal/poller"
	"github.com/aicommandcenter/aicc/server/internal/store"
	"github.com/aicommandcenter/aicc/server/internal/ws"
)

func main() {
	configDir := flag.String("config-dir", "", "base directory (default $AICC_CONFIG_DIR or ~/.config/ai-command-center)")
	configPath := flag.String("config", "", "daemon config file (default <config-dir>/command-center.yaml)")
	flag.Parse()

	// Bootstrap logger until the configured one is ready.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	layout, err := paths.Default()
	if *configDir != "" {
		layout, err = paths.Layout{Dir: *configDir}, nil
	}
	if err != nil {
		slog.Error("failed to resolve config directory", "err", err)
		os.Exit(1)
	}
	if *configPath == "" {
		*configPath = layout.DaemonFile()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "err", err)
		os.Exit(1)
	}

	logger, level, logFile, err := logging.Setup(cfg.Logging, layout.LogsDir())
	if err != nil {
		slog.Error("failed to set up logging", "err", err)
		os.Exit(1)
	}
	defer logFile.Close()
	slog.SetDefault(logger)

	slog.Info("accd starting",
		"config_dir", layout.Dir,
		"config", *configPath,
		"listen", cfg.Server.Listen,
		"poll_interval", cfg.Server.PollInterval,
		"snapshot_ttl", cfg.Server.Snapshot.TTL,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Status store with background TTL eviction.
	st := store.New(cfg.Server.Snapshot.TTL)
	go st.Run(ctx)

	agg := health.New(cfg.Probes.Targets(), probe.Options{Timeout: cfg.Probes.Timeout})
	alertEngine := alerts.New(cfg.Alerts)

	// Websocket hub: pushes a snapshot on every tick and after every poll.
	origins := api.NewOrigins(cfg.Server.AllowedOrigins)
	hub := ws.New(st, cfg.Server.WSInterval, origins.CheckOrigin)
	go hub.Run(ctx)

	p := poller.New(agg, st, alertEngine, cfg.Server.PollInterval)
	p.OnPoll(func(types.AggregateHealth) { hub.Broadcast() })
	go p.Run(ctx)

	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			if err := logging.SetLevel(level, next.Logging.Level); err != nil {
				slog.Warn("config reload: keeping log level", "err", err)
				return
			}
			slog.Info("config reloaded", "log_level", next.Logging.Level)
		})
		if err != nil {
			slog.Warn("config watch stopped", "err", err)
		}
	}()

	r := api.New(api.Deps{
		Health:  agg,
		Store:   st,
		Routing: routing.NewStore(layout),
		LogsDir: layout.LogsDir(),
		Models:  ollama.New(nil),
		Alerts:  alertEngine,
		Origins: origins,
	})
	r.Handle("/ws/stream", hub)
	r.Handle("/metrics", metrics.Handler(st))

	httpSrv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "addr", cfg.Server.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("accd shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
	alertEngine.Wait()
}
