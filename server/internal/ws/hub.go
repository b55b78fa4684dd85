package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fieldwatch/fieldwatch/pkg/sim"
)

const (
	// writeTimeout bounds every frame written to a client.
	writeTimeout = 10 * time.Second

	// A client that answers no ping within pongWait is gone.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames.
	readLimit = 512

	// EventTelemetry is the Event of every message the hub sends.
	EventTelemetry = "telemetry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Telemetry is one simulated sample of the dashboard readings.
type Telemetry struct {
	sim.Readings
	LastUpdate string `json:"lastUpdate"`
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string    `json:"event"`
	Data  Telemetry `json:"data"`
}

// Hub streams simulated telemetry to every connected client. Each client
// holds at most one undelivered sample; a slow reader skips samples
// instead of being disconnected.
type Hub struct {
	sim      *sim.Simulator
	interval time.Duration
	now      func() time.Time

	stateMu sync.Mutex
	current Telemetry

	mu      sync.Mutex
	clients map[*subscriber]struct{}
}

// subscriber is one websocket client. latest is never closed; done is
// closed exactly once when the hub drops the client.
type subscriber struct {
	conn   *websocket.Conn
	latest chan []byte
	done   chan struct{}
	once   sync.Once
}

// New creates a Hub whose walk starts at start and advances every interval.
func New(start sim.Readings, s *sim.Simulator, interval time.Duration) *Hub {
	h := &Hub{
		sim:      s,
		interval: interval,
		now:      time.Now,
		clients:  make(map[*subscriber]struct{}),
	}
	h.current = Telemetry{Readings: start, LastUpdate: sim.Stamp(h.now())}
	return h
}

// Run advances the walk and publishes it every interval. It blocks until
// ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.dropAll()
			return
		case <-t.C:
			h.publish(h.advance())
		}
	}
}

// ServeHTTP upgrades the connection, queues the current sample and then
// blocks until the client goes away or the hub stops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	sub := &subscriber{
		conn:   conn,
		latest: make(chan []byte, 1),
		done:   make(chan struct{}),
	}
	if msg, err := encode(h.Current()); err == nil {
		sub.offer(msg)
	}
	h.add(sub)
	defer h.drop(sub)

	go sub.write()
	sub.read()
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Current returns the latest sample.
func (h *Hub) Current() Telemetry {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	return h.current
}

func (h *Hub) advance() Telemetry {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	h.current = Telemetry{
		Readings:   h.sim.Step(h.current.Readings, false),
		LastUpdate: sim.Stamp(h.now()),
	}
	return h.current
}

func (h *Hub) publish(t Telemetry) {
	msg, err := encode(t)
	if err != nil {
		slog.Error("ws: encode telemetry", "err", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.clients {
		sub.offer(msg)
	}
}

func (h *Hub) add(sub *subscriber) {
	h.mu.Lock()
	h.clients[sub] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) drop(sub *subscriber) {
	h.mu.Lock()
	delete(h.clients, sub)
	h.mu.Unlock()
	sub.stop()
}

func (h *Hub) dropAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.clients {
		delete(h.clients, sub)
		sub.stop()
	}
}

func encode(t Telemetry) ([]byte, error) {
	return json.Marshal(Message{Event: EventTelemetry, Data: t})
}

// offer queues msg, replacing any sample the writer has not picked up yet.
func (s *subscriber) offer(msg []byte) {
	for {
		select {
		case s.latest <- msg:
			return
		default:
		}
		select {
		case <-s.latest:
		default:
		}
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// write delivers queued samples and pings until the subscriber is stopped
// or a write fails.
func (s *subscriber) write() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		s.conn.Close()
	}()

	for {
		var (
			kind = websocket.TextMessage
			msg  []byte
		)
		select {
		case <-s.done:
			bye := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			s.conn.WriteMessage(websocket.CloseMessage, bye)      //nolint:errcheck
			return
		case msg = <-s.latest:
		case <-ping.C:
			kind = websocket.PingMessage
		}
		s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
		if err := s.conn.WriteMessage(kind, msg); err != nil {
			return
		}
	}
}

// read consumes control frames until the peer disconnects or the writer
// closes the connection.
func (s *subscriber) read() {
	defer s.conn.Close()
	s.conn.SetReadLimit(readLimit)
	s.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
