package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Role identifies which room a connection belongs to.
type Role string

const (
	RoleDriver Role = "driver"
	RoleRider  Role = "rider"
)

// Event is the wire format for everything emitted to a live connection.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
	At    time.Time   `json:"at"`
}

// Hub is the connection registry: it maps an opaque connection handle to a
// logical user/driver id and supports emitting to a single handle or to
// every handle in a room. Delivery is best-effort; a slow consumer is
// disconnected rather than blocking the emitter.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client // connection handle -> client
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// Register adds a client under its connection handle.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ConnID] = client
	log.Printf("[ws] connected: conn=%s user=%s role=%s", client.ConnID, client.UserID, client.Role)
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.clients[client.ConnID]; ok && current == client {
		delete(h.clients, client.ConnID)
		close(client.send)
		log.Printf("[ws] disconnected: conn=%s user=%s", client.ConnID, client.UserID)
	}
}

// EmitTo sends an event to a single connection handle. Returns false when
// the handle is unknown or the client's buffer is full.
func (h *Hub) EmitTo(connID, event string, data interface{}) bool {
	payload, err := marshalEvent(event, data)
	if err != nil {
		log.Printf("[ws] marshal %s: %v", event, err)
		return false
	}

	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	return client.trySend(payload)
}

// EmitToUser sends an event to every live connection of a logical user id.
// Returns the number of connections reached.
func (h *Hub) EmitToUser(userID, event string, data interface{}) int {
	payload, err := marshalEvent(event, data)
	if err != nil {
		log.Printf("[ws] marshal %s: %v", event, err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, client := range h.clients {
		if client.UserID == userID && client.trySend(payload) {
			sent++
		}
	}
	return sent
}

// EmitToRole broadcasts an event to every connection in a room.
func (h *Hub) EmitToRole(role Role, event string, data interface{}) int {
	payload, err := marshalEvent(event, data)
	if err != nil {
		log.Printf("[ws] marshal %s: %v", event, err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, client := range h.clients {
		if client.Role == role && client.trySend(payload) {
			sent++
		}
	}
	return sent
}

// ConnectedHandles returns the handles of every connection in a room.
func (h *Hub) ConnectedHandles(role Role) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var handles []string
	for id, client := range h.clients {
		if client.Role == role {
			handles = append(handles, id)
		}
	}
	return handles
}

func marshalEvent(event string, data interface{}) ([]byte, error) {
	return json.Marshal(Event{Event: event, Data: data, At: time.Now()})
}
