package services

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// WebSocket message types pushed to dashboards
const (
	MessageSnapshotUpdated = "snapshot_updated"
	MessageStatsUpdated    = "stats_updated"
	MessageNotification    = "notification"
	MessageWarning         = "warning"
	MessagePong            = "pong"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced by the router
	},
}

// Client represents a connected dashboard
type Client struct {
	ID   string
	Role string
	Conn *websocket.Conn
	Send chan []byte
	Hub  *Hub
}

// Hub maintains the set of connected dashboards and broadcasts messages
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
	log        log.FieldLogger
}

// NewHub creates a new WebSocket hub
func NewHub(logger log.FieldLogger) *Hub {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        logger.WithField("component", "ws-hub"),
	}
}

// Run serves registrations until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mutex.Lock()
		for client := range h.clients {
			delete(h.clients, client)
			close(client.Send)
		}
		h.mutex.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			h.log.WithFields(log.Fields{"admin_id": client.ID, "role": client.Role}).Info("Dashboard connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mutex.Unlock()
			h.log.WithField("admin_id", client.ID).Info("Dashboard disconnected")
		}
	}
}

// BroadcastToAll sends a message to all connected dashboards. Clients whose
// send buffer is full are dropped.
func (h *Hub) BroadcastToAll(message []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		select {
		case client.Send <- message:
		default:
			h.log.WithField("admin_id", client.ID).Warn("Dropping slow dashboard")
			delete(h.clients, client)
			close(client.Send)
		}
	}
}

// Send wraps data in a WebSocketMessage and broadcasts it.
func (h *Hub) Send(msgType string, data any) error {
	payload, err := json.Marshal(WebSocketMessage{Type: msgType, Data: data})
	if err != nil {
		return err
	}
	h.BroadcastToAll(payload)
	return nil
}

// GetConnectedClients returns the number of connected dashboards
func (h *Hub) GetConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// WebSocketMessage is the envelope of every pushed message
type WebSocketMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// HandleWebSocket upgrades the request and registers the dashboard
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request, adminID, role string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.WithError(err).Warn("WebSocket upgrade error")
		return
	}

	client := &Client{
		ID:   adminID,
		Role: role,
		Conn: conn,
		Send: make(chan []byte, 256),
		Hub:  hub,
	}

	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump reads until the connection fails. Dashboards only send pings.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.WithError(err).Warn("WebSocket error")
			}
			break
		}

		var wsMessage WebSocketMessage
		if err := json.Unmarshal(message, &wsMessage); err != nil {
			c.Hub.log.WithError(err).Debug("Error unmarshaling WebSocket message")
			continue
		}

		if wsMessage.Type == "ping" {
			pong, _ := json.Marshal(WebSocketMessage{Type: MessagePong})
			c.Hub.mutex.RLock()
			if c.Hub.clients[c] {
				select {
				case c.Send <- pong:
				default:
				}
			}
			c.Hub.mutex.RUnlock()
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.Hub.log.WithError(err).WithField("admin_id", c.ID).Warn("WebSocket write error")
			return
		}
	}
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
