package invite

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventplanner-backend/internal/domain"
	"eventplanner-backend/internal/handler/http/httputil"
	"eventplanner-backend/internal/middleware"
	inviteService "eventplanner-backend/internal/service/invite"
	"eventplanner-backend/pkg/response"
)

// Handler exposes the invite surface
type Handler struct {
	service *inviteService.Service
}

// NewHandler creates a new invite handler
func NewHandler(service *inviteService.Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /events/:event_id/invites
func (h *Handler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)
	eventID, ok := httputil.ParseIDParam(c, "event_id")
	if !ok {
		return
	}
	var input domain.InviteCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	invite, err := h.service.Create(c.Request.Context(), eventID, user.ID, &input)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, invite)
}

// Validate handles GET /invites/validate?token=… — public, always 200
func (h *Handler) Validate(c *gin.Context) {
	validation, err := h.service.Validate(c.Request.Context(), c.Query("token"))
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, validation)
}

type tokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// Accept handles POST /invites/accept
func (h *Handler) Accept(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var input tokenRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	outcome, err := h.service.Accept(c.Request.Context(), input.Token, user.ID)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	if outcome.AlreadyMember {
		response.Success(c, http.StatusOK, gin.H{"message": "already_member"})
		return
	}
	if outcome.Status != domain.InviteStatusOK {
		response.Error(c, http.StatusBadRequest, string(outcome.Status), "Invite is not available")
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"message": "joined", "event_id": outcome.EventID})
}

// Revoke handles POST /invites/revoke — owner only, idempotent
func (h *Handler) Revoke(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var input tokenRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	if err := h.service.Revoke(c.Request.Context(), input.Token, user.ID); err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "revoked"})
}
