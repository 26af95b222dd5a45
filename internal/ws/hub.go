package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/menuboard/api/internal/enum"
	"github.com/sirupsen/logrus"
)

// Signal is the change hint pushed to terminals. It never carries order
// content; terminals re-fetch on receipt.
type Signal struct {
	Type     string    `json:"type"`
	TenantID uuid.UUID `json:"tenant_id"`
	OrderID  uuid.UUID `json:"order_id"`
	Revision int32     `json:"revision,omitempty"`
	Kind     string    `json:"kind,omitempty"`
}

// tenantSignal is an internal struct for routing signals to a tenant room
type tenantSignal struct {
	TenantID uuid.UUID
	Signal   Signal
}

// Hub maintains the set of active clients and broadcasts signals to them
type Hub struct {
	// Registered clients by tenant ID
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	broadcast chan *tenantSignal

	mu  sync.RWMutex
	log logrus.FieldLogger
}

// NewHub creates a new Hub instance
func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *tenantSignal, 256),
		log:        log.WithField("component", "ws_hub"),
	}
}

// Run starts the hub's main loop and returns when ctx is done, closing every
// client.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.tenantID] == nil {
				h.rooms[client.tenantID] = make(map[*Client]bool)
			}
			h.rooms[client.tenantID][client] = true
			h.mu.Unlock()

			// A fresh subscriber has missed everything so far.
			h.sendTo(client, Signal{Type: enum.SignalOrdersResync, TenantID: client.tenantID})

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case ev := <-h.broadcast:
			message, err := json.Marshal(ev.Signal)
			if err != nil {
				h.log.WithError(err).Error("marshal signal")
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[ev.TenantID] {
				select {
				case client.send <- message:
				default:
					// Slow subscriber: it will reconnect and resync.
					h.log.WithFields(logrus.Fields{
						"tenant_id": ev.TenantID,
						"terminal":  client.terminal,
					}).Warn("dropping slow websocket client")
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) sendTo(client *Client, sig Signal) {
	message, err := json.Marshal(sig)
	if err != nil {
		return
	}
	select {
	case client.send <- message:
	default:
	}
}

// drop must be called with mu held.
func (h *Hub) drop(client *Client) {
	clients, ok := h.rooms[client.tenantID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.tenantID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for client := range clients {
			h.drop(client)
		}
	}
}

// BroadcastToTenant queues a signal for every client in the tenant's room.
// It never blocks: when the hub is backed up the signal is dropped and
// terminals catch up on their next refresh.
func (h *Hub) BroadcastToTenant(tenantID uuid.UUID, sig Signal) {
	select {
	case h.broadcast <- &tenantSignal{TenantID: tenantID, Signal: sig}:
	default:
		h.log.WithField("tenant_id", tenantID).Warn("hub backlog full, signal dropped")
	}
}

// ClientCount reports how many terminals of a tenant are connected.
func (h *Hub) ClientCount(tenantID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[tenantID])
}
