// Command seed writes the embedded fixture document into the configured
// persistent store, one {name, data} record per key. The API never writes;
// this is the only way data gets into a mongodb or bolt backend.
//
//	STORE_DRIVER=bolt STORE_URI=/var/lib/fieldwatch/fieldwatch.db seed
//	seed -config config.yaml -only dashboard
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

	"github.com/fieldwatch/fieldwatch/pkg/types"
	"github.com/fieldwatch/fieldwatch/server/internal/config"
	"github.com/fieldwatch/fieldwatch/server/internal/fixture"
	"github.com/fieldwatch/fieldwatch/server/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	only := flag.String("only", "", "seed a single key instead of the whole document")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := run(*configPath, *only); err != nil {
		slog.Error("seed failed", "err", err)
		os.Exit(1)
	}
}

func run(configPath, only string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !cfg.Store.Persistent() {
		return fmt.Errorf("driver %q has nothing to seed; select %s or %s",
			cfg.Store.Driver, config.DriverMongo, config.DriverBolt)
	}

	var keys []types.Key
	if only != "" {
		k, ok := types.ParseKey(only)
		if !ok {
			return fmt.Errorf("unknown key %q (known: %v)", only, types.Keys)
		}
		keys = append(keys, k)
	}

	now := time.Now()
	seed := cfg.Fixture.Seed
	if seed == 0 {
		seed = now.UnixNano()
	}
	doc, err := fixture.Load(seed, now)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn := store.NewConnector(func(ctx context.Context) (store.Store, error) {
		return store.Open(ctx, cfg.Store, doc)
	}, cfg.Store.ConnectTimeout)
	st, err := conn.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background()) //nolint:errcheck

	seeder, ok := st.(store.Seeder)
	if !ok {
		return fmt.Errorf("driver %q does not accept writes", cfg.Store.Driver)
	}

	written, err := store.Seed(ctx, seeder, doc, keys...)
	if err != nil {
		return err
	}
	slog.Info("seeded", "driver", cfg.Store.Driver, "keys", written)
	return nil
}
