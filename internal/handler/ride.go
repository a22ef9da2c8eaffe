package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/events"
	"ridedispatch/internal/middleware"
	"ridedispatch/internal/service"
	"ridedispatch/internal/ws"
)

// RideHandler handles HTTP requests for the ride lifecycle.
type RideHandler struct {
	rideService *service.RideService
	geo         service.GeoResolver
	hub         *ws.Hub
	push        *service.PushService
	events      service.EventPublisher
}

// NewRideHandler creates a new RideHandler. hub, push, and publisher are
// optional; when nil the corresponding notification is skipped.
func NewRideHandler(
	rideService *service.RideService,
	geoResolver service.GeoResolver,
	hub *ws.Hub,
	push *service.PushService,
	publisher service.EventPublisher,
) *RideHandler {
	return &RideHandler{
		rideService: rideService,
		geo:         geoResolver,
		hub:         hub,
		push:        push,
		events:      publisher,
	}
}

// CreateRideRequest is the HTTP request body for creating a ride.
type CreateRideRequest struct {
	Pickup       string `json:"pickup"`
	Destination  string `json:"destination"`
	VehicleClass string `json:"vehicle_class"`
}

// StartRideRequest is the HTTP request body for starting a ride.
type StartRideRequest struct {
	OTP string `json:"otp"`
}

// RideResponse is the HTTP view of a ride. It never carries the start code.
type RideResponse struct {
	ID           string    `json:"id"`
	RiderID      string    `json:"rider_id"`
	DriverID     string    `json:"driver_id,omitempty"`
	Pickup       string    `json:"pickup"`
	Destination  string    `json:"destination"`
	VehicleClass string    `json:"vehicle_class"`
	Fare         int64     `json:"fare"`
	Status       string    `json:"status"`
	RiderName    string    `json:"rider_name,omitempty"`
	DriverName   string    `json:"driver_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateRideResponse additionally carries the start code, shown once to the
// rider who booked.
type CreateRideResponse struct {
	RideResponse
	OTP string `json:"otp"`
}

// FareQuoteResponse is the HTTP response for a pre-booking fare quote.
type FareQuoteResponse struct {
	DistanceMeters  float64          `json:"distance_meters"`
	DurationSeconds float64          `json:"duration_seconds"`
	Estimated       bool             `json:"estimated"`
	Fares           map[string]int64 `json:"fares"`
}

func newRideResponse(ride *domain.Ride) RideResponse {
	resp := RideResponse{
		ID:           ride.ID,
		RiderID:      ride.RiderID,
		DriverID:     ride.DriverID,
		Pickup:       ride.Pickup,
		Destination:  ride.Destination,
		VehicleClass: string(ride.VehicleClass),
		Fare:         ride.Fare,
		Status:       string(ride.Status),
		CreatedAt:    ride.CreatedAt,
	}
	if ride.Rider != nil {
		resp.RiderName = ride.Rider.Name
	}
	if ride.Driver != nil {
		resp.DriverName = ride.Driver.Name
	}
	return resp
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.Create(c.Request.Context(), service.CreateRideRequest{
		RiderID:      c.GetString(middleware.ContextUserID),
		Pickup:       req.Pickup,
		Destination:  req.Destination,
		VehicleClass: req.VehicleClass,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, CreateRideResponse{
		RideResponse: newRideResponse(ride),
		OTP:          ride.OTP,
	})
}

// QuoteFare handles GET /v1/rides/quote
func (h *RideHandler) QuoteFare(c *gin.Context) {
	pickup := c.Query("pickup")
	destination := c.Query("destination")
	if pickup == "" || destination == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "pickup and destination are required"})
		return
	}

	est, err := h.geo.DistanceAndDuration(c.Request.Context(), pickup, destination)
	if err != nil {
		respondError(c, err)
		return
	}

	fares := make(map[string]int64)
	for class, fare := range service.QuoteAllFares(est) {
		fares[string(class)] = fare
	}

	respondJSON(c, http.StatusOK, FareQuoteResponse{
		DistanceMeters:  est.DistanceMeters,
		DurationSeconds: est.DurationSeconds,
		Estimated:       est.Estimated,
		Fares:           fares,
	})
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, newRideResponse(ride))
}

// GetAll handles GET /v1/rides
func (h *RideHandler) GetAll(c *gin.Context) {
	rides, err := h.rideService.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]RideResponse, 0, len(rides))
	for _, ride := range rides {
		response = append(response, newRideResponse(ride))
	}
	respondJSON(c, http.StatusOK, response)
}

// ConfirmRide handles POST /v1/rides/:id/confirm
func (h *RideHandler) ConfirmRide(c *gin.Context) {
	driverID := c.GetString(middleware.ContextUserID)

	ride, err := h.rideService.Confirm(c.Request.Context(), c.Param("id"), driverID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.notifyTransition(c, ride, "ride-confirmed", events.RideConfirmed,
		"Driver on the way", "Your driver has accepted the ride.")
	respondJSON(c, http.StatusOK, newRideResponse(ride))
}

// StartRide handles POST /v1/rides/:id/start
func (h *RideHandler) StartRide(c *gin.Context) {
	var req StartRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driverID := c.GetString(middleware.ContextUserID)

	ride, err := h.rideService.Start(c.Request.Context(), c.Param("id"), req.OTP, driverID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.notifyTransition(c, ride, "ride-started", events.RideStarted,
		"Ride started", "Your ride is underway.")
	respondJSON(c, http.StatusOK, newRideResponse(ride))
}

// EndRide handles POST /v1/rides/:id/end
func (h *RideHandler) EndRide(c *gin.Context) {
	driverID := c.GetString(middleware.ContextUserID)

	ride, err := h.rideService.End(c.Request.Context(), c.Param("id"), driverID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.notifyTransition(c, ride, "ride-ended", events.RideEnded,
		"Ride completed", "Thanks for riding. Please complete your payment.")
	respondJSON(c, http.StatusOK, newRideResponse(ride))
}

// notifyTransition fans a lifecycle transition out to the rider's live
// connections, the message broker, and push. All best-effort.
func (h *RideHandler) notifyTransition(c *gin.Context, ride *domain.Ride, wsEvent, routingKey, pushTitle, pushBody string) {
	payload := service.NewRideEvent(ride)

	if h.hub != nil {
		h.hub.EmitToUser(ride.RiderID, wsEvent, payload)
	}
	if h.events != nil {
		h.events.Publish(c.Request.Context(), routingKey, payload)
	}
	if h.push != nil {
		h.push.NotifyRideParties(c.Request.Context(), ride, pushTitle, pushBody)
	}
}
