package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ridedispatch/internal/auth"
	"ridedispatch/internal/domain"
	"ridedispatch/internal/middleware"
	"ridedispatch/internal/repository"
)

// UserHandler handles HTTP requests for riders.
type UserHandler struct {
	userRepo repository.UserRepository
	tokens   *auth.Tokens
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userRepo repository.UserRepository, tokens *auth.Tokens) *UserHandler {
	return &UserHandler{userRepo: userRepo, tokens: tokens}
}

// RegisterUserRequest is the HTTP request body for registering a rider.
type RegisterUserRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	FCMToken string `json:"fcm_token,omitempty"`
}

// UserResponse is the HTTP view of a rider.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Register handles POST /v1/users/register
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.Name == "" || req.Phone == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name and phone are required"})
		return
	}

	user := &domain.User{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Phone:     req.Phone,
		FCMToken:  req.FCMToken,
		CreatedAt: time.Now(),
	}

	if err := h.userRepo.Create(c.Request.Context(), user); err != nil {
		respondError(c, err)
		return
	}

	token, err := h.tokens.Issue(user.ID, auth.RoleRider)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, gin.H{
		"user": UserResponse{
			ID:        user.ID,
			Name:      user.Name,
			Phone:     user.Phone,
			CreatedAt: user.CreatedAt,
		},
		"token": token,
	})
}

// Get handles GET /v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.userRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Phone:     user.Phone,
		CreatedAt: user.CreatedAt,
	})
}

// UpdateFCMToken handles PUT /v1/users/fcm-token
func (h *UserHandler) UpdateFCMToken(c *gin.Context) {
	var req UpdateFCMTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FCMToken == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "fcm_token is required"})
		return
	}

	userID := c.GetString(middleware.ContextUserID)
	if err := h.userRepo.UpdateFCMToken(c.Request.Context(), userID, req.FCMToken); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"updated": true})
}
