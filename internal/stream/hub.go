// Package stream pushes navigation events and sensor control frames to
// websocket clients.
package stream

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/randytsao24/walkwise/internal/navigation"
)

// Frame types sent to clients.
const (
	FrameEvent         = "event"
	FrameSpeak         = "speak"
	FrameSpeakCancel   = "speak.cancel"
	FrameLocationStart = "location.start"
	FrameLocationStop  = "location.stop"
	FrameListenStart   = "listen.start"
	FrameListenStop    = "listen.stop"
)

// Frame is one JSON message on the stream.
type Frame struct {
	Type  string            `json:"type"`
	Event *navigation.Event `json:"event,omitempty"`
	Text  string            `json:"text,omitempty"`
}

type Config struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	// SendBuffer is the number of frames queued per client before the
	// client is dropped.
	SendBuffer int
}

func (c Config) withDefaults() Config {
	if c.PingInterval <= 0 {
		c.PingInterval = 20 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	return c
}

// Hub broadcasts frames to every connected client. It implements
// navigation.EventSink.
type Hub struct {
	cfg      Config
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	// sensors holds the last control frame per sensor so that clients
	// connecting later learn whether they should be reporting.
	sensors map[string][]byte
	closed  bool
}

func NewHub(cfg Config, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		cfg: cfg.withDefaults(),
		log: log.With("component", "stream"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
		sensors: make(map[string][]byte),
	}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// ServeHTTP upgrades the request and streams frames until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, h.cfg.SendBuffer),
		done: make(chan struct{}),
	}
	if !h.register(c) {
		conn.Close()
		return
	}
	h.log.Info("stream client connected", "remote", r.RemoteAddr, "clients", h.Clients())

	go h.writer(c)
	h.reader(c)

	h.unregister(c)
	h.log.Info("stream client disconnected", "remote", r.RemoteAddr)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	for _, frame := range h.sensors {
		c.send <- frame
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// reader drains the connection so control frames are processed. Clients
// report fixes and transcripts over HTTP, so data frames are ignored.
func (h *Hub) reader(c *client) {
	pongWait := 2 * h.cfg.PingInterval
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("stream read failed", "error", err)
			}
			return
		}
	}
}

func (h *Hub) writer(c *client) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(h.cfg.WriteTimeout))
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.log.Debug("stream write failed", "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.WriteTimeout)); err != nil {
				c.close()
				return
			}
		}
	}
}

// Publish sends a navigation event to all clients.
func (h *Hub) Publish(ev navigation.Event) {
	h.Broadcast(Frame{Type: FrameEvent, Event: &ev})
}

// Broadcast sends a frame to all clients. Clients whose buffers are full
// are disconnected.
func (h *Hub) Broadcast(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		h.log.Error("encoding frame", "type", f.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked(data)
}

func (h *Hub) broadcastLocked(data []byte) {
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Warn("dropping slow stream client")
			delete(h.clients, c)
			c.close()
		}
	}
}

// setSensor records and broadcasts a sensor control frame.
func (h *Hub) setSensor(sensor, frameType string) {
	data, err := json.Marshal(Frame{Type: frameType})
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sensors[sensor] = data
	h.broadcastLocked(data)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}
