package realtime

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Client struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
}

// Event is pushed to the booking's customer and worker whenever a status or
// payment-status change is applied. Delivery is best-effort.
type Event struct {
	BookingID     uuid.UUID  `json:"booking_id"`
	Reference     string     `json:"reference"`
	CustomerID    uuid.UUID  `json:"-"`
	WorkerID      *uuid.UUID `json:"-"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status,omitempty"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*websocket.Conn

	register   chan *Client
	unregister chan *Client
	events     chan Event

	log *logrus.Logger
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]*websocket.Conn),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan Event, 64),
		log:        log,
	}
}

func (h *Hub) Register(c *Client)   { h.register <- c }
func (h *Hub) Unregister(c *Client) { h.unregister <- c }

// Publish never blocks the caller; events are dropped if the hub is saturated.
func (h *Hub) Publish(e Event) {
	select {
	case h.events <- e:
	default:
		h.log.WithField("booking_id", e.BookingID).Warn("realtime event dropped, hub saturated")
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = client.Conn
			h.mu.Unlock()
			h.log.WithField("user_id", client.UserID).Debug("realtime client registered")
		case client := <-h.unregister:
			h.mu.Lock()
			if conn, ok := h.clients[client.UserID]; ok && conn == client.Conn {
				delete(h.clients, client.UserID)
			}
			h.mu.Unlock()
		case event := <-h.events:
			recipients := []uuid.UUID{event.CustomerID}
			if event.WorkerID != nil {
				recipients = append(recipients, *event.WorkerID)
			}
			h.mu.RLock()
			for _, id := range recipients {
				if conn, ok := h.clients[id]; ok {
					if err := conn.WriteJSON(event); err != nil {
						h.log.WithError(err).WithField("user_id", id).Warn("failed to push booking event")
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}
