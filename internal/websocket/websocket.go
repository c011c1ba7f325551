package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/zoolo/internal/logger"
	"github.com/abrezinsky/zoolo/internal/models"
	"github.com/abrezinsky/zoolo/internal/schedule"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // terminals run on the LAN and in webviews
	},
}

// Hub maintains the set of active terminals and broadcasts messages to them
type Hub struct {
	log        logger.Logger
	clients    map[*Client]bool
	broadcast  chan models.WSMessage
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	policy     *schedule.Policy

	// last slot status sent by the ticker
	lastDate   string
	lastClosed int
}

// Client is one connected sales terminal
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan models.WSMessage
}

// SlotStatus tells terminals which draws can still be sold
type SlotStatus struct {
	Now    time.Time `json:"now"`
	Date   string    `json:"date"`
	Closed []string  `json:"closed"`
	Target string    `json:"target"`
}

// New creates a hub that reports the sales window of policy
func New(log logger.Logger, policy *schedule.Policy) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan models.WSMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		policy:     policy,
		lastClosed: -1,
	}
}

// Start begins the hub's main loop in a goroutine
func (h *Hub) Start() {
	go h.run()
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client connected", "total_clients", total)

			// New terminals learn the current sales window right away
			client.send <- models.WSMessage{Type: "slot_status", Payload: h.slotStatus()}

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client disconnected", "total_clients", total)

		case message := <-h.broadcast:
			h.mutex.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// slow terminal, drop it
					go func(c *Client) {
						h.unregister <- c
					}(client)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// BroadcastMessage sends a message to all connected clients
func (h *Hub) BroadcastMessage(msgType string, payload interface{}) {
	h.broadcast <- models.WSMessage{
		Type:    msgType,
		Payload: payload,
	}
}

// ClientCount returns the number of connected terminals
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) slotStatus() SlotStatus {
	now := h.policy.Now()
	return SlotStatus{
		Now:    now,
		Date:   h.policy.Date(now),
		Closed: h.policy.ClosedSlots(now),
		Target: h.policy.TargetSlot(now),
	}
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// readPump answers terminal requests until the connection drops
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg models.WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				c.hub.log.Debug("Ignoring malformed terminal message", "error", err)
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("Terminal connection error", "error", err)
			}
			return
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg models.WSMessage) {
	c.hub.log.Debug("Terminal request", "type", msg.Type)
	switch msg.Type {
	case "slot_status":
		select {
		case c.send <- models.WSMessage{Type: "slot_status", Payload: c.hub.slotStatus()}:
		default:
		}
	}
}

// writePump delivers queued messages and keeps the connection alive with pings
func (c *Client) writePump() {
	pinger := time.NewTicker(pingPeriod)
	defer func() {
		pinger.Stop()
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
			if err := c.conn.WriteJSON(message); err != nil {
				c.hub.log.Debug("Terminal write failed", "error", err)
				return
			}

		case <-pinger.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles websocket requests from clients
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan models.WSMessage, sendBuffer),
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// StartSlotTicker checks the sales window every interval and broadcasts
// a slot_status message whenever a draw closes or the business day rolls
// over. It returns when ctx is cancelled.
func (h *Hub) StartSlotTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info("Slot ticker stopped")
			return
		case <-ticker.C:
			h.checkSlots()
		}
	}
}

// checkSlots broadcasts the slot status when it changed since the last
// check and reports whether it did
func (h *Hub) checkSlots() bool {
	status := h.slotStatus()
	if status.Date == h.lastDate && len(status.Closed) == h.lastClosed {
		return false
	}
	h.lastDate = status.Date
	h.lastClosed = len(status.Closed)
	h.log.Info("Sales window changed", "date", status.Date, "closed", len(status.Closed), "target", status.Target)
	h.BroadcastMessage("slot_status", status)
	return true
}
