package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldwatch/fieldwatch/pkg/sim"
	"github.com/fieldwatch/fieldwatch/server/internal/api"
	"github.com/fieldwatch/fieldwatch/server/internal/config"
	"github.com/fieldwatch/fieldwatch/server/internal/fixture"
	"github.com/fieldwatch/fieldwatch/server/internal/metrics"
	"github.com/fieldwatch/fieldwatch/server/internal/store"
	"github.com/fieldwatch/fieldwatch/server/internal/ws"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file (optional; defaults and env apply without one)")
	flag.Parse()

	started := time.Now()

	var level slog.LevelVar
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: &level}))
	slog.SetDefault(logger)

	slog.Info("fieldwatch-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	level.Set(cfg.Level())

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"log_level", cfg.Server.LogLevel,
		"store_driver", cfg.Store.Driver,
		"stream", cfg.Stream.Enabled,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Only the log level is hot-reloadable; everything else needs a restart.
	if *configPath != "" {
		go func() {
			applied := cfg
			err := config.Watch(ctx, *configPath, func(c *config.Config) {
				level.Set(c.Level())
				slog.Info("log level updated", "level", c.Server.LogLevel)
				if sections := config.RestartRequired(applied, c); len(sections) > 0 {
					slog.Warn("config changes need a restart", "sections", sections)
				}
			})
			if err != nil {
				slog.Warn("config watch disabled", "err", err)
			}
		}()
	}

	seed := cfg.Fixture.Seed
	if seed == 0 {
		seed = started.UnixNano()
	}
	doc, err := fixture.Load(seed, started)
	if err != nil {
		slog.Error("failed to load fixture", "err", err)
		os.Exit(1)
	}

	m := metrics.New()

	mux := http.NewServeMux()
	mux.Handle("/health", api.NewHealth(started, nil))
	mux.Handle("/metrics", m.Handler())

	if cfg.Stream.Enabled {
		readings, err := fixture.Readings(doc)
		if err != nil {
			slog.Error("failed to seed telemetry stream", "err", err)
			os.Exit(1)
		}
		hub := ws.New(readings, sim.New(seed), cfg.Stream.Interval)
		go hub.Run(ctx)
		mux.Handle("/ws/telemetry", hub)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           api.Middleware(mux, m),
		ReadHeaderTimeout: 10 * time.Second,
	}
	lis, err := net.Listen("tcp", httpSrv.Addr)
	if err != nil {
		slog.Error("failed to listen on HTTP port", "port", cfg.Server.HTTPPort, "err", err)
		os.Exit(1)
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	// /health is already answering; /api/ waits for the store.
	conn := store.NewConnector(func(ctx context.Context) (store.Store, error) {
		return store.Open(ctx, cfg.Store, doc)
	}, cfg.Store.ConnectTimeout)

	st, err := conn.Connect(ctx)
	if err != nil {
		slog.Error("failed to connect store", "driver", cfg.Store.Driver, "err", err)
		httpSrv.Close() //nolint:errcheck
		os.Exit(1)
	}
	slog.Info("store connected", "driver", cfg.Store.Driver, "attempts", conn.Attempts())

	guarded := store.WithBreaker(st, cfg.Store.Driver, cfg.Store.Breaker.Failures, cfg.Store.Breaker.OpenFor)
	mux.Handle(api.Prefix, api.New(m.WrapStore(guarded, cfg.Store.Driver)))

	<-ctx.Done()
	slog.Info("fieldwatch-server shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "err", err)
	}
	if err := conn.Close(shutdownCtx); err != nil {
		slog.Warn("store close failed", "err", err)
	}
}
