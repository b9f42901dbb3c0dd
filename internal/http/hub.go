package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/dashboard"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

const (
	messageTypeDashboard = "dashboard"

	wsSendBuffer   = 16
	wsWriteTimeout = 5 * time.Second
	wsReadLimit    = 512
)

// Message is the envelope pushed to websocket clients.
type Message struct {
	Type string         `json:"type"`
	Data dashboard.View `json:"data"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes the dashboard view to every connected websocket client: once on connect and
// again after each applied batch or unit change. Clients are read-only; mutations go
// through the REST routes.
type Hub struct {
	mu       sync.Mutex
	clients  map[*wsClient]struct{}
	closed   bool
	snapshot func() dashboard.View
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub returns a Hub that sends snapshot() to newly connected clients.
func NewHub(snapshot func() dashboard.View, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:  make(map[*wsClient]struct{}),
		snapshot: snapshot,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.Named("ws"),
	}
}

// Publish snapshots the view and queues it for every client. Snapshotting under the hub lock
// keeps each client's sequence of views in order. A client whose buffer is full is dropped.
func (h *Hub) Publish() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		return
	}
	data, err := encodeView(h.snapshot())
	if err != nil {
		h.logger.Error("encode dashboard view", zap.Error(err))
		return
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("slow websocket client dropped")
			h.removeLocked(c)
		}
	}
}

// ServeWS handles GET /ws.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFromContext(r.Context(), h.logger)
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}

	// Register and queue the initial view under one lock so no publish slips between them.
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return
	}
	if data, err := encodeView(h.snapshot()); err == nil {
		c.send <- data
	}
	h.clients[c] = struct{}{}
	observability.WebsocketClients.Set(float64(len(h.clients)))
	h.mu.Unlock()

	logger.Debug("websocket client connected", zap.String("remote_addr", r.RemoteAddr))
	go h.writePump(c)
	go h.readPump(c)
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *wsClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	observability.WebsocketClients.Set(float64(len(h.clients)))
}

// readPump discards client frames and unregisters the client once the connection closes.
func (h *Hub) readPump(c *wsClient) {
	defer h.remove(c)
	c.conn.SetReadLimit(wsReadLimit)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(c)
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func encodeView(v dashboard.View) ([]byte, error) {
	return json.Marshal(Message{Type: messageTypeDashboard, Data: v})
}
