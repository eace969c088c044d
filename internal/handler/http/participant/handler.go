package participant

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventplanner-backend/internal/domain"
	"eventplanner-backend/internal/handler/http/httputil"
	"eventplanner-backend/internal/middleware"
	participantService "eventplanner-backend/internal/service/participant"
	"eventplanner-backend/pkg/pagination"
	"eventplanner-backend/pkg/response"
)

// Handler exposes the participant management surface
type Handler struct {
	service *participantService.Service
}

// NewHandler creates a new participant handler
func NewHandler(service *participantService.Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /events/:event_id/participants
func (h *Handler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)
	eventID, ok := httputil.ParseIDParam(c, "event_id")
	if !ok {
		return
	}
	params, err := pagination.Parse(c.Query("page"), c.Query("page_size"), 25, 100)
	if err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	participants, total, err := h.service.List(c.Request.Context(), eventID, user.ID, c.DefaultQuery("ordering", "name"), params.Limit, params.Offset)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, pagination.NewPage(participants, total, params))
}

// UpdateRole handles PATCH /events/:event_id/participants/:participant_id
func (h *Handler) UpdateRole(c *gin.Context) {
	user := middleware.CurrentUser(c)
	eventID, ok := httputil.ParseIDParam(c, "event_id")
	if !ok {
		return
	}
	participantID, ok := httputil.ParseIDParam(c, "participant_id")
	if !ok {
		return
	}
	var input domain.ParticipantRoleUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	participant, err := h.service.UpdateRole(c.Request.Context(), eventID, participantID, user.ID, input.Role)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, participant)
}

// Remove handles DELETE /events/:event_id/participants/:participant_id
func (h *Handler) Remove(c *gin.Context) {
	user := middleware.CurrentUser(c)
	eventID, ok := httputil.ParseIDParam(c, "event_id")
	if !ok {
		return
	}
	participantID, ok := httputil.ParseIDParam(c, "participant_id")
	if !ok {
		return
	}

	if err := h.service.Remove(c.Request.Context(), eventID, participantID, user.ID); err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.NoContent(c)
}
