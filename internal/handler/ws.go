package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"ridedispatch/internal/auth"
	"ridedispatch/internal/geo"
	"ridedispatch/internal/middleware"
	"ridedispatch/internal/redis"
	"ridedispatch/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Clients are native apps, not browsers; origin checks add nothing.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// inboundMessage is the wire format for client-to-server frames.
type inboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// locationPayload is the body of a driver location_update frame.
type locationPayload struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// WSHandler upgrades authenticated requests to live websocket connections.
type WSHandler struct {
	hub       *ws.Hub
	locations redis.LocationStoreInterface
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub *ws.Hub, locations redis.LocationStoreInterface) *WSHandler {
	return &WSHandler{hub: hub, locations: locations}
}

// Connect handles GET /v1/ws
func (h *WSHandler) Connect(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	role := ws.RoleRider
	if c.GetString(middleware.ContextRole) == auth.RoleDriver {
		role = ws.RoleDriver
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}

	client := ws.NewClient(uuid.New().String(), userID, role, conn)
	h.hub.Register(client)

	if role == ws.RoleDriver {
		if err := h.locations.SetConnection(c.Request.Context(), userID, client.ConnID); err != nil {
			log.Printf("[ws] record connection for driver %s: %v", userID, err)
		}
	}

	go client.WritePump()

	client.ReadPump(func(raw []byte) {
		h.handleInbound(client, raw)
	})

	// ReadPump returned: the connection is gone.
	if role == ws.RoleDriver {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := h.locations.ClearConnection(ctx, userID); err != nil {
			log.Printf("[ws] clear connection for driver %s: %v", userID, err)
		}
		cancel()
	}
	h.hub.Unregister(client)
}

// handleInbound routes one client frame. Unknown events are ignored.
func (h *WSHandler) handleInbound(client *ws.Client, raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}

	switch msg.Event {
	case "location_update":
		if client.Role != ws.RoleDriver {
			return
		}
		var payload locationPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return
		}
		point := geo.Coordinate{Lat: payload.Lat, Lng: payload.Lng}
		if !point.Finite() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := h.locations.UpdateLocation(ctx, client.UserID, payload.Lat, payload.Lng); err != nil {
			log.Printf("[ws] location update for driver %s: %v", client.UserID, err)
		}
	}
}
