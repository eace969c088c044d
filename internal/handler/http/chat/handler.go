package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventplanner-backend/internal/domain"
	"eventplanner-backend/internal/handler/http/httputil"
	"eventplanner-backend/internal/middleware"
	chatService "eventplanner-backend/internal/service/chat"
	"eventplanner-backend/pkg/pagination"
	"eventplanner-backend/pkg/response"
)

// Handler exposes the chat surface
type Handler struct {
	service *chatService.Service
}

// NewHandler creates a new chat handler
func NewHandler(service *chatService.Service) *Handler {
	return &Handler{service: service}
}

// Send handles POST /events/:event_id/messages
func (h *Handler) Send(c *gin.Context) {
	user := middleware.CurrentUser(c)
	eventID, ok := httputil.ParseIDParam(c, "event_id")
	if !ok {
		return
	}
	var input domain.MessageCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	message, err := h.service.Send(c.Request.Context(), eventID, user.ID, input.Text)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, message)
}

// List handles GET /events/:event_id/messages with before_id/after_id cursors
func (h *Handler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)
	eventID, ok := httputil.ParseIDParam(c, "event_id")
	if !ok {
		return
	}
	params, err := pagination.Parse(c.Query("page"), c.Query("page_size"), 30, 100)
	if err != nil {
		response.ValidationError(c, err.Error())
		return
	}
	beforeID, ok := httputil.ParseOptionalIntQuery(c, "before_id")
	if !ok {
		return
	}
	afterID, ok := httputil.ParseOptionalIntQuery(c, "after_id")
	if !ok {
		return
	}

	messages, err := h.service.List(c.Request.Context(), eventID, user.ID, beforeID, afterID, params.Limit)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, messages)
}

// Delete handles DELETE /events/:event_id/messages/:message_id
func (h *Handler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	eventID, ok := httputil.ParseIDParam(c, "event_id")
	if !ok {
		return
	}
	messageID, ok := httputil.ParseIDParam(c, "message_id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), eventID, messageID, user.ID); err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.NoContent(c)
}
