// backend/pkg/websocket/hub.go
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lesson-system/pkg/logger"
)

// Message represents the standard message format exchanged over WebSocket.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Authenticate resolves the ?token= query parameter to a user id.
type Authenticate func(token string) (uint, error)

// Hub fans server events out to every open connection of a user. It is
// push-only: client frames are read to keep the connection alive and
// otherwise ignored.
type Hub struct {
	clients       map[*Client]bool
	clientsByUser map[uint]map[*Client]bool
	register      chan *Client
	unregister    chan *Client
	done          chan struct{}
	mu            sync.RWMutex
	upgrader      websocket.Upgrader
	log           *logger.Logger
}

func NewHub(log *logger.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		clients:       make(map[*Client]bool),
		clientsByUser: make(map[uint]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		done:          make(chan struct{}),
		log:           log.With("component", "ws_hub"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uint
}

// Run processes registrations until ctx is cancelled, then closes every
// connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.add(client)
		case client := <-h.unregister:
			h.remove(client)
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
			}
			h.clients = make(map[*Client]bool)
			h.clientsByUser = make(map[uint]map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	if h.clientsByUser[c.userID] == nil {
		h.clientsByUser[c.userID] = make(map[*Client]bool)
	}
	h.clientsByUser[c.userID][c] = true
	h.log.Debug("client registered", "user_id", c.userID, "connections", len(h.clientsByUser[c.userID]))
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	if byUser := h.clientsByUser[c.userID]; byUser != nil {
		delete(byUser, c)
		if len(byUser) == 0 {
			delete(h.clientsByUser, c.userID)
		}
	}
	close(c.send)
	h.log.Debug("client unregistered", "user_id", c.userID)
}

// Connections reports how many sockets the user currently has open.
func (h *Hub) Connections(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clientsByUser[userID])
}

// NotifyUser queues an event for every connection of userID. It never
// blocks; a connection whose buffer is full is dropped.
func (h *Hub) NotifyUser(userID uint, messageType string, data interface{}) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clientsByUser[userID]))
	for c := range h.clientsByUser[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	messageBytes, err := json.Marshal(Message{Type: messageType, Data: data})
	if err != nil {
		h.log.Warn("marshal ws message", "type", messageType, "error", err)
		return
	}

	for _, c := range targets {
		if !h.trySend(c, messageBytes) {
			h.log.Warn("send buffer full, dropping client", "user_id", userID)
			h.remove(c)
		}
	}
}

func (h *Hub) trySend(c *Client, message []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[c] {
		// already removed, its channel is closed
		return true
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// ServeWS authenticates the ?token= parameter and upgrades the connection.
func (h *Hub) ServeWS(authenticate Authenticate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authenticate(r.URL.Query().Get("token"))
		if err != nil || userID == 0 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn("websocket upgrade failed", "error", err)
			return
		}

		client := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), userID: userID}
		select {
		case h.register <- client:
		case <-h.done:
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

// readPump drains client frames so pongs and close frames are processed.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("unexpected websocket close", "user_id", c.userID, "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.log.Debug("websocket write failed", "user_id", c.userID, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
