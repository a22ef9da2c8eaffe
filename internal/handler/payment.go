package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/middleware"
	"ridedispatch/internal/service"
)

// PaymentHandler handles HTTP requests for ride payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// VerifyPaymentRequest is the HTTP request body for verifying a payment.
type VerifyPaymentRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// CreateOrder handles POST /v1/rides/:id/payment/order
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	riderID := c.GetString(middleware.ContextUserID)

	checkout, err := h.paymentService.CreateOrder(c.Request.Context(), c.Param("id"), riderID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, checkout)
}

// VerifyPayment handles POST /v1/rides/:id/payment/verify
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.paymentService.VerifyPayment(
		c.Request.Context(),
		c.Param("id"),
		c.GetString(middleware.ContextUserID),
		req.OrderID,
		req.PaymentID,
		req.Signature,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"ride_id":    ride.ID,
		"status":     string(ride.Status),
		"payment_id": ride.PaymentID,
		"verified":   true,
	})
}
