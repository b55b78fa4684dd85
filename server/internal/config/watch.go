package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay coalesces the burst of events an editor produces for one save
// (truncate + write, or write temp + rename) into a single reload.
const settleDelay = 100 * time.Millisecond

// Watch reloads the config at path after it changes on disk and calls
// onChange with the result whenever it differs from the last config seen.
// It runs until ctx is cancelled.
//
// The parent directory is watched so a file replaced by rename keeps being
// followed. A reload that fails to load or validate is logged and skipped.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	path = filepath.Clean(path)
	last, err := Load(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("server config: watch %q: %w", path, err)
	}
	slog.Info("config: watching for changes", "path", path)

	settle := time.NewTimer(settleDelay)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			settle.Reset(settleDelay)

		case <-settle.C:
			cfg, err := Load(path)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config", "path", path, "err", err)
				continue
			}
			if *cfg == *last {
				slog.Debug("config: file touched, no change", "path", path)
				continue
			}
			slog.Info("config: reloaded", "path", path)
			last = cfg
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

// RestartRequired lists the sections that differ between prev and next and
// only take effect after a restart. The log level is applied live and is
// not reported.
func RestartRequired(prev, next *Config) []string {
	var out []string
	ps, ns := prev.Server, next.Server
	ps.LogLevel, ns.LogLevel = "", ""
	if ps != ns {
		out = append(out, "server")
	}
	if prev.Store != next.Store {
		out = append(out, "store")
	}
	if prev.Fixture != next.Fixture {
		out = append(out, "fixture")
	}
	if prev.Stream != next.Stream {
		out = append(out, "stream")
	}
	return out
}
