// Package spectate streams battle snapshots to websocket viewers.
package spectate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/samdwyer/skirmish/internal/game"
)

const (
	sendBuffer = 16
	writeWait  = 5 * time.Second
)

// Message is what viewers receive for every update.
type Message struct {
	Type     string        `json:"type"` // "snapshot"
	Event    string        `json:"event,omitempty"`
	Summary  string        `json:"summary,omitempty"`
	Snapshot game.Snapshot `json:"snapshot"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans snapshots out to connected viewers. Run must be running for
// viewers to connect.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	logger     *slog.Logger
	upgrader   websocket.Upgrader

	mu     sync.Mutex
	latest []byte
}

// NewHub creates a hub that logs to logger.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		logger:     logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run owns the client set until ctx is cancelled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	clients := make(map[*client]struct{})
	defer func() {
		close(h.done)
		for c := range clients {
			close(c.send)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			clients[c] = struct{}{}
			if latest := h.latestMessage(); latest != nil {
				c.send <- latest
			}
			h.logger.Info("spectator connected", "remote", c.conn.RemoteAddr().String(), "spectators", len(clients))

		case c := <-h.unregister:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.send)
				h.logger.Info("spectator disconnected", "remote", c.conn.RemoteAddr().String(), "spectators", len(clients))
			}

		case msg := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- msg:
				default:
					// Slow viewer.
					delete(clients, c)
					close(c.send)
					h.logger.Warn("dropping slow spectator", "remote", c.conn.RemoteAddr().String())
				}
			}
		}
	}
}

// Publish sends a snapshot to every viewer and remembers it for viewers that
// connect later.
func (h *Hub) Publish(snap game.Snapshot) error {
	return h.publish(Message{Type: "snapshot", Snapshot: snap})
}

func (h *Hub) publish(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.latest = data
	h.mu.Unlock()

	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		h.logger.Warn("spectator broadcast queue full, frame dropped")
	}
	return nil
}

func (h *Hub) latestMessage() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// Observer returns a session observer that publishes every event.
func (h *Hub) Observer() game.Observer {
	return func(_ context.Context, ev game.Event) {
		msg := Message{Type: "snapshot", Event: ev.Kind, Summary: ev.Summary, Snapshot: ev.Snapshot}
		if err := h.publish(msg); err != nil {
			h.logger.Error("publish snapshot", "error", err)
		}
	}
}

// Handler upgrades requests to websocket spectator connections.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("spectator upgrade failed", "error", err)
			return
		}

		c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
		select {
		case h.register <- c:
		case <-h.done:
			conn.Close()
			return
		}

		go c.writePump()
		go h.readPump(c)
	})
}

// readPump discards anything viewers send and unregisters on disconnect.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
