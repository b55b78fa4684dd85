// Package config loads the fieldwatch server configuration.
//
// Config fields:
//   - Server.HTTPPort        : port for /api, /health, /metrics (default 3001, env PORT)
//   - Server.LogLevel        : debug | info | warn | error (default info, env LOG_LEVEL)
//   - Store.Driver           : memory | mongodb | bolt (default memory, env STORE_DRIVER)
//   - Store.URIEnv           : environment variable holding the connection string
//     (default STORE_URI); required for mongodb and bolt
//   - Store.Database         : mongodb database name (default fieldwatch)
//   - Store.Collection       : collection / bucket name (default dashboards)
//   - Store.ConnectTimeout   : bound on the startup connect attempt (default 10s)
//   - Store.Breaker          : consecutive read failures before the breaker opens,
//     and how long it stays open
//   - Fixture.Seed           : seed for the generated chart data (0 = time based)
//   - Stream.Enabled/Interval : optional /ws/telemetry broadcast
//
// Load(path) applies defaults, unmarshals the YAML file (if path is not
// empty), applies environment overrides, then validates.
//
// Watch(ctx, path, onChange) uses fsnotify to re-run Load whenever the file is
// written; main uses it to hot-swap the log level.
package config
