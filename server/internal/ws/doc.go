// Package ws implements the live telemetry stream for fieldwatch-server.
//
// Hub walks the dashboard readings with a seeded simulator and broadcasts
// the result to every connected client on a fixed interval (5s by default).
//
// New(start, sim, interval) creates a Hub.
// Hub.Run(ctx) starts the ticker. It blocks until ctx is cancelled, then
// closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends the current
// readings immediately on connect, then streams updates on each tick.
//
// Message format sent to clients:
//
//	{
//	  "event": "telemetry",
//	  "data":  {"moisture": 45.2, "temperature": 26.4, "humidity": 61.8, "lastUpdate": "14:03:09"}
//	}
//
// The stream is demo data and never reads or writes the document store.
// The upgrader accepts all origins; apply CORS at the reverse proxy.
// The server mounts the hub at /ws/telemetry.
package ws
