// Package realtime fans generator samples out to WebSocket viewers.
package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"glove-backend/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	// One frame may wait while the previous one is being written. Anything
	// beyond that is skipped for the tick, never queued.
	sendBuffer = 1

	connectedMessage = "WebSocket connected"
)

// Observer receives hub counters. *metrics.Metrics satisfies it.
type Observer interface {
	SetClients(n int)
	FrameSent()
	FrameSkipped()
}

type nopObserver struct{}

func (nopObserver) SetClients(int) {}
func (nopObserver) FrameSent()     {}
func (nopObserver) FrameSkipped()  {}

// Hub is the registry of open realtime connections.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool

	upgrader websocket.Upgrader
	logger   *slog.Logger
	observer Observer
}

// NewHub creates an empty registry. observer may be nil.
func NewHub(logger *slog.Logger, observer Observer) *Hub {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Viewers are served from arbitrary dev origins; there is no auth.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:   logger,
		observer: observer,
	}
}

// ServeWS upgrades the request, acknowledges the connection and registers it.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		h.logger.Warn("ws_upgrade_failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := newClient(h, conn, r.RemoteAddr)

	ack, _ := json.Marshal(models.ConnectedFrame{Type: models.FrameConnected, Message: connectedMessage})
	c.send <- ack

	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		c.close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.observer.SetClients(n)
	h.logger.Info("client_connected", "client", c.id, "remote", c.remote, "clients", n)
	return true
}

// unregister removes c from the registry and closes it. Safe to call repeatedly.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	c.close()
	if present {
		h.observer.SetClients(n)
		h.logger.Info("client_disconnected", "client", c.id, "clients", n)
	}
}

// Count returns the number of registered connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast wraps sample in a sensor_data frame and hands it to every
// registered connection that is ready to take it. It returns how many
// connections got the frame and how many were skipped.
func (h *Hub) Broadcast(sample models.SensorSample) (sent, skipped int) {
	payload, err := json.Marshal(models.SensorDataFrame{Type: models.FrameSensorData, Data: sample})
	if err != nil {
		h.logger.Error("broadcast_marshal_failed", "error", err)
		return 0, 0
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if c.offer(payload) {
			sent++
			h.observer.FrameSent()
		} else {
			skipped++
			h.observer.FrameSkipped()
		}
	}
	if skipped > 0 {
		h.logger.Debug("broadcast_skipped", "skipped", skipped, "sent", sent)
	}
	return sent, skipped
}

// Close sends a going-away close frame to every connection, empties the
// registry and refuses new registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	h.observer.SetClients(0)
	for _, c := range targets {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		c.close()
	}
	h.logger.Info("hub_closed", "closed_clients", len(targets))
}

func newClientID() string {
	return uuid.NewString()[:8]
}
