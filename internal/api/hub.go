package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/miradorstack/anomaly-timeline/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	clientBuffer = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

type frame struct {
	version uint64
	payload []byte
}

// Hub fans published timeline snapshots out to websocket subscribers. A subscriber that
// cannot keep up is dropped. New subscribers receive the latest snapshot on connect.
type Hub struct {
	logger     *slog.Logger
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan frame
	done       chan struct{}
	count      atomic.Int64
	latest     frame
}

// NewHub creates a hub. Run must be started before subscribers connect.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:     logger,
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan frame, 1),
		done:       make(chan struct{}),
	}
}

// Run owns the subscriber set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int64(len(h.clients)))
			if h.latest.payload != nil {
				h.deliver(c, h.latest.payload)
			}
			h.logger.Debug("timeline subscriber connected", slog.Int("subscribers", len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}
			h.logger.Debug("timeline subscriber disconnected", slog.Int("subscribers", len(h.clients)))

		case f := <-h.broadcast:
			if h.latest.payload != nil && f.version <= h.latest.version {
				continue
			}
			h.latest = f
			for c := range h.clients {
				h.deliver(c, f.payload)
			}
		}
	}
}

func (h *Hub) deliver(c *client, message []byte) {
	select {
	case c.send <- message:
	default:
		h.logger.Warn("dropping slow timeline subscriber", slog.String("remote", c.conn.RemoteAddr().String()))
		h.drop(c)
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.count.Store(int64(len(h.clients)))
}

// Publish queues snapshot for every subscriber without blocking. The queue holds one
// snapshot; a newer one replaces a queued older one. It reports false only when the
// snapshot cannot be encoded.
func (h *Hub) Publish(snapshot *models.TimelineSnapshot) bool {
	if snapshot == nil {
		return false
	}
	payload, err := json.Marshal(ToTimeline(snapshot))
	if err != nil {
		h.logger.Error("encode timeline snapshot", slog.Any("error", err))
		return false
	}
	next := frame{version: snapshot.Version, payload: payload}
	for {
		select {
		case h.broadcast <- next:
			return true
		default:
		}
		select {
		case queued := <-h.broadcast:
			if queued.version > next.version {
				next = queued
			}
		default:
		}
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int { return int(h.count.Load()) }

// ServeWS upgrades the request and streams snapshots until the peer goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards inbound frames and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
