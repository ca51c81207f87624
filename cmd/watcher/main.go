// Command watcher polls the externally owned orders dataset, detects
// changes, and fans full snapshots out to WebSocket subscribers while
// serving point lookups over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ordercast/ordercast/internal/config"
	"github.com/ordercast/ordercast/internal/database"
	"github.com/ordercast/ordercast/internal/hub"
	"github.com/ordercast/ordercast/internal/mirror"
	"github.com/ordercast/ordercast/internal/model"
	"github.com/ordercast/ordercast/internal/poller"
	"github.com/ordercast/ordercast/internal/query"
	"github.com/ordercast/ordercast/internal/server"
	"github.com/ordercast/ordercast/internal/source"
	"github.com/ordercast/ordercast/internal/store"
	"github.com/ordercast/ordercast/internal/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "configs/watcher.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("watcher failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("starting watcher",
		"instance", cfg.Instance.ID,
		"version", version.String(),
		"endpoints", len(cfg.Upstream.Endpoints),
		"poll_interval", cfg.Poller.Interval,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Upstream providers, in configuration order.
	providers := make([]source.Provider, 0, len(cfg.Upstream.Endpoints)+1)
	for _, endpoint := range cfg.Upstream.Endpoints {
		providers = append(providers, source.NewHTTPProvider(endpoint,
			source.WithRetries(cfg.Upstream.MaxRetries, 500*time.Millisecond),
			source.WithLogger(logger.With("component", "source")),
		))
	}

	if cfg.Database.Enabled {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()
		providers = append(providers, source.NewPostgresProvider(pool, logger.With("component", "source")))
	}

	src := source.NewMultiProvider(providers...)
	st := store.New(cfg.Poller.BroadcastInactive)

	// Warm start: adopt the mirrored snapshot so queries and connect-time
	// pushes have data before the first poll completes.
	var snapMirror *mirror.Mirror
	if cfg.Redis.Enabled {
		snapMirror, err = mirror.New(ctx, cfg.Redis, logger.With("component", "mirror"))
		if err != nil {
			return fmt.Errorf("connecting snapshot mirror: %w", err)
		}
		defer snapMirror.Close()

		if snap, err := snapMirror.Load(ctx); err != nil {
			logger.Warn("snapshot mirror load failed", "error", err)
		} else if snap != nil {
			st.Replace(snap.Orders)
			logger.Info("warm start from mirrored snapshot",
				"orders", len(snap.Orders),
				"mirrored_at", snap.FetchedAt,
			)
		}
	}

	queries := query.NewFacade(st)

	broadcastHub := hub.New(hub.Config{
		SendBuffer:   cfg.Hub.SendBuffer,
		WriteTimeout: cfg.Hub.WriteTimeout,
		PingInterval: cfg.Hub.PingInterval,
	}, st, queries, logger.With("component", "hub"))

	onChange := poller.ChangeHandlerFunc(func(snap *model.Snapshot) {
		broadcastHub.HandleChange(snap)
		if snapMirror != nil {
			snapMirror.HandleChange(snap)
		}
	})

	p := poller.New(poller.Config{
		Interval: cfg.Poller.Interval,
		Timeout:  cfg.Upstream.Timeout,
	}, src, st, onChange, logger.With("component", "poller"))

	srv := server.New(cfg.Server, st, queries, broadcastHub, logger.With("component", "server"))

	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("starting poller: %w", err)
	}
	srv.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	// Stop the poller first so no broadcast starts mid-shutdown, then the
	// HTTP listener, then the hub's open connections.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := p.Stop(shutdownCtx); err != nil {
		logger.Warn("poller stop", "error", err)
	}
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("http server stop", "error", err)
	}
	if err := broadcastHub.Stop(shutdownCtx); err != nil {
		logger.Warn("hub stop", "error", err)
	}

	logger.Info("watcher stopped")
	return nil
}
