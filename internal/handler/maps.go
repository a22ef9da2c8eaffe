package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/geo"
)

// MapsHandler exposes the geodata operations over HTTP.
type MapsHandler struct {
	geo *geo.Client
}

// NewMapsHandler creates a new MapsHandler.
func NewMapsHandler(client *geo.Client) *MapsHandler {
	return &MapsHandler{geo: client}
}

// Geocode handles GET /v1/maps/geocode
func (h *MapsHandler) Geocode(c *gin.Context) {
	coord, err := h.geo.Geocode(c.Request.Context(), c.Query("address"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"lat": coord.Lat, "lng": coord.Lng})
}

// ReverseGeocode handles GET /v1/maps/reverse
func (h *MapsHandler) ReverseGeocode(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "lat and lng must be numbers"})
		return
	}

	address, err := h.geo.ReverseGeocode(c.Request.Context(), lat, lng)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"address": address})
}

// Suggestions handles GET /v1/maps/suggestions
func (h *MapsHandler) Suggestions(c *gin.Context) {
	suggestions, err := h.geo.Autocomplete(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"suggestions": suggestions})
}

// Distance handles GET /v1/maps/distance
func (h *MapsHandler) Distance(c *gin.Context) {
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
	respondJSON(c, http.StatusOK, gin.H{
		"distance_meters":  est.DistanceMeters,
		"duration_seconds": est.DurationSeconds,
		"estimated":        est.Estimated,
	})
}

// Route handles GET /v1/maps/route
func (h *MapsHandler) Route(c *gin.Context) {
	pickup := c.Query("pickup")
	destination := c.Query("destination")
	if pickup == "" || destination == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "pickup and destination are required"})
		return
	}

	path, err := h.geo.RoutePath(c.Request.Context(), pickup, destination)
	if err != nil {
		respondError(c, err)
		return
	}

	points := make([][2]float64, 0, len(path))
	for _, p := range path {
		points = append(points, [2]float64{p.Lat, p.Lng})
	}
	respondJSON(c, http.StatusOK, gin.H{"path": points})
}
