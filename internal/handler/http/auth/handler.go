package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventplanner-backend/internal/domain"
	"eventplanner-backend/internal/handler/http/httputil"
	"eventplanner-backend/internal/middleware"
	authService "eventplanner-backend/internal/service/auth"
	"eventplanner-backend/pkg/response"
)

// Handler exposes the auth HTTP surface
type Handler struct {
	service *authService.Service
}

// NewHandler creates a new auth handler
func NewHandler(service *authService.Service) *Handler {
	return &Handler{service: service}
}

// Register handles POST /auth/register
func (h *Handler) Register(c *gin.Context) {
	var input domain.UserRegister
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	user, err := h.service.Register(c.Request.Context(), &input)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

// Confirm handles GET /auth/confirm?token=…
func (h *Handler) Confirm(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.ValidationError(c, "token is required")
		return
	}
	if err := h.service.Confirm(c.Request.Context(), token); err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "confirmed"})
}

type resendRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResendConfirmation handles POST /auth/resend-confirmation
func (h *Handler) ResendConfirmation(c *gin.Context) {
	var input resendRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}
	if err := h.service.ResendConfirmation(c.Request.Context(), input.Email); err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "sent"})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var input loginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	tokens, err := h.service.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, tokens)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh handles POST /auth/refresh
func (h *Handler) Refresh(c *gin.Context) {
	var input refreshRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	tokens, err := h.service.Refresh(c.Request.Context(), input.RefreshToken)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, tokens)
}

// Profile handles GET /users/me
func (h *Handler) Profile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	profile, err := h.service.Profile(c.Request.Context(), user.ID)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}

// UpdateProfile handles PATCH /users/me
func (h *Handler) UpdateProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var input domain.UserProfileUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	profile, err := h.service.UpdateProfile(c.Request.Context(), user.ID, &input)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}
