package relay

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/omd/internal/camera"
	"github.com/muurk/omd/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum command size allowed from peer
	maxMessageSize = 4096

	// Messages queued per client before it is dropped as too slow
	sendQueueSize = 64

	commandQueueSize = 16
)

type client struct {
	conn   *websocket.Conn
	send   chan Message
	remote string
}

// Hub fans camera notifications out to websocket clients and collects
// their commands. It implements camera.Observer.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	latest  map[string]Message
	closed  bool

	commands chan Command
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:  make(map[*client]struct{}),
		latest:   make(map[string]Message),
		commands: make(chan Command, commandQueueSize),
	}
}

// HandleEvent implements camera.Observer
func (h *Hub) HandleEvent(e camera.Event) {
	h.Broadcast(NewMessage(e))
}

// Broadcast queues msg for every client. State messages are also kept so
// clients connecting later start from the current picture.
func (h *Hub) Broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if msg.Type != MessageTypeError && msg.Type != camera.EventImageReceived.String() {
		h.latest[msg.Type] = msg
	}

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			logging.Warn("Dropping slow websocket client", zap.String("remote_addr", c.remote))
			h.dropLocked(c)
		}
	}
}

// Commands delivers client commands. They must be executed on the
// goroutine driving the camera.
func (h *Hub) Commands() <-chan Command {
	return h.commands
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.dropLocked(c)
	}
}

// ServeHTTP upgrades the request and serves the client until it leaves
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan Message, sendQueueSize), remote: r.RemoteAddr}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	logging.Info("WebSocket client connected", zap.String("remote_addr", c.remote))

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}

	types := make([]string, 0, len(h.latest))
	for t := range h.latest {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		c.send <- h.latest[t]
	}

	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

// dropLocked closes the client's queue; the write pump then closes the
// connection. h.mu must be held.
func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		logging.Info("WebSocket client disconnected", zap.String("remote_addr", c.remote))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug("WebSocket read failed", zap.String("remote_addr", c.remote), zap.Error(err))
			}
			return
		}

		logging.Debug("Command received",
			zap.String("remote_addr", c.remote),
			zap.String("command", cmd.Command),
			zap.String("arg", cmd.Arg),
		)

		select {
		case h.commands <- cmd:
		default:
			logging.Warn("Command queue full, dropping command", zap.String("command", cmd.Command))
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logging.Debug("WebSocket write failed", zap.String("remote_addr", c.remote), zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
