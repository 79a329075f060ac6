package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/sirupsen/logrus"
)

// Event types pushed to clients.
const (
	TypeStockUpdate   = "stock_update"
	TypeSaleUpdate    = "sale_update"
	TypeStateUpdate   = "state_update"
	TypeTrackerUpdate = "tracker_update"
)

// Event is the JSON message broadcast after a state change.
type Event struct {
	Type    string     `json:"type"`
	Action  string     `json:"action"`
	Data    any        `json:"data,omitempty"`
	User    *EventUser `json:"user,omitempty"`
	Message string     `json:"message,omitempty"`
}

type EventUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type Hub struct {
	Clients    map[*websocket.Conn]bool
	Register   chan *websocket.Conn
	Unregister chan *websocket.Conn
	Broadcast  chan []byte
	mutex      sync.Mutex
	log        logrus.FieldLogger
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		Clients:    make(map[*websocket.Conn]bool),
		Register:   make(chan *websocket.Conn),
		Unregister: make(chan *websocket.Conn),
		Broadcast:  make(chan []byte, 64),
		log:        log,
	}
}

// Publish queues an event for every connected client. Events are dropped
// when the queue is full rather than blocking the caller.
func (h *Hub) Publish(evt Event) {
	msg, err := json.Marshal(evt)
	if err != nil {
		h.log.WithError(err).Warn("Failed to encode ws event")
		return
	}
	select {
	case h.Broadcast <- msg:
	default:
		h.log.WithField("action", evt.Action).Warn("WS broadcast queue full, dropping event")
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case conn := <-h.Register:
			h.mutex.Lock()
			h.Clients[conn] = true
			h.mutex.Unlock()
			h.log.Debug("New WS client connected")

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.Clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.Clients {
		conn.Close()
		delete(h.Clients, conn)
	}
}
