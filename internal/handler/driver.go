package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ridedispatch/internal/auth"
	"ridedispatch/internal/domain"
	"ridedispatch/internal/geo"
	"ridedispatch/internal/middleware"
	"ridedispatch/internal/redis"
	"ridedispatch/internal/repository"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	driverRepo repository.DriverRepository
	locations  redis.LocationStoreInterface
	tokens     *auth.Tokens
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverRepo repository.DriverRepository, locations redis.LocationStoreInterface, tokens *auth.Tokens) *DriverHandler {
	return &DriverHandler{
		driverRepo: driverRepo,
		locations:  locations,
		tokens:     tokens,
	}
}

// RegisterDriverRequest is the HTTP request body for registering a driver.
type RegisterDriverRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	FCMToken string `json:"fcm_token,omitempty"`
}

// UpdateLocationRequest is the HTTP request body for a location update.
type UpdateLocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// UpdateFCMTokenRequest is the HTTP request body for a device token update.
type UpdateFCMTokenRequest struct {
	FCMToken string `json:"fcm_token"`
}

// DriverResponse is the HTTP view of a driver.
type DriverResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	CompletedTrips int64     `json:"completed_trips"`
	Earnings       int64     `json:"earnings"`
	CreatedAt      time.Time `json:"created_at"`
}

func newDriverResponse(d *domain.Driver) DriverResponse {
	return DriverResponse{
		ID:             d.ID,
		Name:           d.Name,
		Phone:          d.Phone,
		CompletedTrips: d.CompletedTrips,
		Earnings:       d.Earnings,
		CreatedAt:      d.CreatedAt,
	}
}

// Register handles POST /v1/drivers/register
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.Name == "" || req.Phone == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name and phone are required"})
		return
	}

	driver := &domain.Driver{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Phone:     req.Phone,
		FCMToken:  req.FCMToken,
		CreatedAt: time.Now(),
	}

	if err := h.driverRepo.Create(c.Request.Context(), driver); err != nil {
		respondError(c, err)
		return
	}

	token, err := h.tokens.Issue(driver.ID, auth.RoleDriver)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, gin.H{
		"driver": newDriverResponse(driver),
		"token":  token,
	})
}

// Get handles GET /v1/drivers/:id
func (h *DriverHandler) Get(c *gin.Context) {
	driver, err := h.driverRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, newDriverResponse(driver))
}

// GetAll handles GET /v1/drivers
func (h *DriverHandler) GetAll(c *gin.Context) {
	drivers, err := h.driverRepo.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]DriverResponse, 0, len(drivers))
	for _, d := range drivers {
		response = append(response, newDriverResponse(d))
	}
	respondJSON(c, http.StatusOK, response)
}

// UpdateLocation handles POST /v1/drivers/location
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	point := geo.Coordinate{Lat: req.Lat, Lng: req.Lng}
	if !point.Finite() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "lat and lng must be finite"})
		return
	}

	driverID := c.GetString(middleware.ContextUserID)
	if err := h.locations.UpdateLocation(c.Request.Context(), driverID, req.Lat, req.Lng); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"updated": true})
}

// UpdateFCMToken handles PUT /v1/drivers/fcm-token
func (h *DriverHandler) UpdateFCMToken(c *gin.Context) {
	var req UpdateFCMTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FCMToken == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "fcm_token is required"})
		return
	}

	driverID := c.GetString(middleware.ContextUserID)
	if err := h.driverRepo.UpdateFCMToken(c.Request.Context(), driverID, req.FCMToken); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"updated": true})
}
