package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

// clearEnv unsets every variable Load consults so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "LOG_LEVEL", "STORE_DRIVER", "STORE_URI"} {
		t.Setenv(k, "")
	}
}

func TestLoad_NoFileDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Store.Driver != DriverMemory {
		t.Errorf("driver: got %q, want memory", cfg.Store.Driver)
	}
	if cfg.Store.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("connect_timeout: got %v, want %v", cfg.Store.ConnectTimeout, DefaultConnectTimeout)
	}
	if cfg.Store.Collection != DefaultCollection {
		t.Errorf("collection: got %q, want %q", cfg.Store.Collection, DefaultCollection)
	}
	if cfg.Level() != slog.LevelInfo {
		t.Errorf("level: got %v, want info", cfg.Level())
	}
}

func TestLoad_FullFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("MY_MONGO", "mongodb://db:27017")
	p := writeConfig(t, `server:
  http_port: 9091
  log_level: debug
store:
  driver: mongodb
  uri_env: MY_MONGO
  database: farm
  collection: docs
  connect_timeout: 3s
  breaker:
    failures: 2
    open_for: 5s
fixture:
  seed: 99
stream:
  enabled: true
  interval: 250ms
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != 9091 {
		t.Errorf("http_port: got %d, want 9091", cfg.Server.HTTPPort)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("level: got %v, want debug", cfg.Level())
	}
	if cfg.Store.URI() != "mongodb://db:27017" {
		t.Errorf("URI(): got %q", cfg.Store.URI())
	}
	if cfg.Store.Database != "farm" || cfg.Store.Collection != "docs" {
		t.Errorf("database/collection: got %q/%q", cfg.Store.Database, cfg.Store.Collection)
	}
	if cfg.Store.ConnectTimeout != 3*time.Second {
		t.Errorf("connect_timeout: got %v, want 3s", cfg.Store.ConnectTimeout)
	}
	if cfg.Store.Breaker.Failures != 2 || cfg.Store.Breaker.OpenFor != 5*time.Second {
		t.Errorf("breaker: got %+v", cfg.Store.Breaker)
	}
	if cfg.Fixture.Seed != 99 {
		t.Errorf("seed: got %d, want 99", cfg.Fixture.Seed)
	}
	if !cfg.Stream.Enabled || cfg.Stream.Interval != 250*time.Millisecond {
		t.Errorf("stream: got %+v", cfg.Stream)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8088")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("STORE_DRIVER", "bolt")
	t.Setenv("STORE_URI", "/var/lib/fieldwatch/data.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != 8088 {
		t.Errorf("http_port: got %d, want 8088", cfg.Server.HTTPPort)
	}
	if cfg.Level() != slog.LevelWarn {
		t.Errorf("level: got %v, want warn", cfg.Level())
	}
	if cfg.Store.Driver != DriverBolt {
		t.Errorf("driver: got %q, want bolt", cfg.Store.Driver)
	}
}

func TestLoad_PersistentDriverRequiresURI(t *testing.T) {
	clearEnv(t)
	for _, driver := range []string{DriverMongo, DriverBolt} {
		t.Setenv("STORE_DRIVER", driver)
		_, err := Load("")
		if !errors.Is(err, ErrMissingURI) {
			t.Errorf("driver %s: got err %v, want ErrMissingURI", driver, err)
		}
	}
}

func TestLoad_BadPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "http")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for non-numeric PORT")
	}
	t.Setenv("PORT", "70000")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for out-of-range PORT")
	}
}

func TestLoad_UnknownDriver(t *testing.T) {
	clearEnv(t)
	p := writeConfig(t, `store:
  driver: postgres
`)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for unknown driver, got nil")
	}
}

func TestLoad_UnknownLogLevel(t *testing.T) {
	clearEnv(t)
	p := writeConfig(t, `server:
  log_level: chatty
`)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for unknown log level, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	clearEnv(t)
	p := writeConfig(t, "server:\n  log_level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	go func() {
		_ = Watch(ctx, p, func(c *Config) { got <- c })
	}()

	// Give the watcher time to register before writing.
	deadline := time.After(3 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case c := <-got:
			if c.Level() != slog.LevelDebug {
				t.Fatalf("reloaded level: got %v, want debug", c.Level())
			}
			return
		case <-tick.C:
			if err := os.WriteFile(p, []byte("server:\n  log_level: debug\n"), 0o600); err != nil {
				t.Fatalf("rewrite config: %v", err)
			}
		case <-deadline:
			t.Fatal("no reload observed within 3s")
		}
	}
}

// waitReload waits up to d for one reloaded config.
func waitReload(got <-chan *Config, d time.Duration) (*Config, bool) {
	select {
	case c := <-got:
		return c, true
	case <-time.After(d):
		return nil, false
	}
}

func TestWatch_FollowsAtomicReplace(t *testing.T) {
	clearEnv(t)
	p := writeConfig(t, "server:\n  log_level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	go func() {
		_ = Watch(ctx, p, func(c *Config) { got <- c })
	}()
	time.Sleep(100 * time.Millisecond)

	// Editors save by writing a sibling file and renaming it over the config file.
	for i, level := range []string{"warn", "error"} {
		tmp := filepath.Join(filepath.Dir(p), ".config.yaml.swp")
		if err := os.WriteFile(tmp, []byte("server:\n  log_level: "+level+"\n"), 0o600); err != nil {
			t.Fatalf("write temp: %v", err)
		}
		if err := os.Rename(tmp, p); err != nil {
			t.Fatalf("rename: %v", err)
		}
		c, ok := waitReload(got, 3*time.Second)
		if !ok {
			t.Fatalf("replace %d: no reload observed", i)
		}
		if c.Server.LogLevel != level {
			t.Errorf("replace %d: got level %q, want %q", i, c.Server.LogLevel, level)
		}
	}
}

func TestWatch_IgnoresUnchangedRewrite(t *testing.T) {
	clearEnv(t)
	body := []byte("server:\n  log_level: info\n")
	p := writeConfig(t, string(body))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	go func() {
		_ = Watch(ctx, p, func(c *Config) { got <- c })
	}()
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(p, body, 0o600); err != nil {
			t.Fatalf("rewrite: %v", err)
		}
	}
	if c, ok := waitReload(got, 400*time.Millisecond); ok {
		t.Fatalf("unchanged rewrite reported a reload: %+v", c.Server)
	}

	if err := os.WriteFile(p, []byte("server:\n  log_level: debug\n"), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if _, ok := waitReload(got, 3*time.Second); !ok {
		t.Fatal("changed rewrite: no reload observed")
	}
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"), func(*Config) {})
	if err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestRestartRequired(t *testing.T) {
	clearEnv(t)
	prev, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	next := *prev
	next.Server.LogLevel = "debug"
	if got := RestartRequired(prev, &next); len(got) != 0 {
		t.Errorf("log level only: got %v, want none", got)
	}

	next.Server.HTTPPort = 8080
	next.Stream.Enabled = !prev.Stream.Enabled
	got := RestartRequired(prev, &next)
	if len(got) != 2 || got[0] != "server" || got[1] != "stream" {
		t.Errorf("got %v, want [server stream]", got)
	}
}
