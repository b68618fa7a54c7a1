// Package notify pushes action-state-change events to connected admin
// observers over a websocket, grounded on the teacher's rpcConnectionHub
// and WSNotifier (rpc_node.go / notification.go): a single-topic
// connection registry, a best-effort Publish that drops messages for
// observers with no live connection, and an http.Handler that performs
// the websocket upgrade.
package notify

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/CashierHQ/cashier-sub001/domain"
	"github.com/CashierHQ/cashier-sub001/logging"
)

// Event is one action-state notification, published by the Transaction
// Manager after create_action and after every process_action call,
// carrying the action's state at that point.
type Event struct {
	ActionID  string            `json:"action_id"`
	LinkID    string            `json:"link_id"`
	Type      domain.ActionType `json:"type"`
	State     domain.State      `json:"state"`
	Timestamp int64             `json:"timestamp"`
}

var writeTimeout = 5 * time.Second

// Hub tracks live admin-watch websocket connections and fans out Events
// to all of them.
type Hub struct {
	mu     sync.RWMutex
	conns  map[*websocket.Conn]bool
	logger logging.Logger

	upgrader websocket.Upgrader
}

// New builds an empty Hub.
func New(logger logging.Logger) *Hub {
	return &Hub{
		conns:    make(map[*websocket.Conn]bool),
		logger:   logger.NewSystem("notify"),
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
	}
}

// ServeHTTP upgrades the request to a websocket and registers the
// connection until it's closed or the server shuts it down. The
// connection never reads application messages; it exists purely to
// carry server-pushed Events to the admin CLI's watch subcommand.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.add(conn)
	defer h.remove(conn)

	// Drain and discard; a closed connection's read will error and end
	// the goroutine, which is the only signal we need.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = true
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
	conn.Close()
}

// Publish fans an Event out to every connected observer. A write
// failure just drops that connection; it does not interrupt delivery to
// the others (mirrors the teacher's Publish, which skips nil write
// sinks rather than failing the whole broadcast).
func (h *Hub) Publish(evt Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Warn("failed to marshal notify event", "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Debug("dropping observer after write failure", "error", err)
			h.remove(c)
		}
	}
}
