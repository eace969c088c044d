package poll

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"eventplanner-backend/internal/domain"
	"eventplanner-backend/internal/handler/http/httputil"
	"eventplanner-backend/internal/middleware"
	pollService "eventplanner-backend/internal/service/poll"
	"eventplanner-backend/pkg/pagination"
	"eventplanner-backend/pkg/response"
)

// Handler exposes the poll surface
type Handler struct {
	service *pollService.Service
}

// NewHandler creates a new poll handler
func NewHandler(service *pollService.Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /events/:event_id/polls
func (h *Handler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)
	eventID, ok := httputil.ParseIDParam(c, "event_id")
	if !ok {
		return
	}
	var input domain.PollCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	poll, err := h.service.Create(c.Request.Context(), eventID, user.ID, &input)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, poll)
}

// List handles GET /events/:event_id/polls
func (h *Handler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)
	eventID, ok := httputil.ParseIDParam(c, "event_id")
	if !ok {
		return
	}
	params, err := pagination.Parse(c.Query("page"), c.Query("page_size"), 10, 50)
	if err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	var isClosed *bool
	switch strings.ToLower(c.Query("is_closed")) {
	case "1", "true", "yes":
		value := true
		isClosed = &value
	case "0", "false", "no":
		value := false
		isClosed = &value
	}

	polls, total, err := h.service.List(c.Request.Context(), eventID, user.ID, isClosed, params.Limit, params.Offset)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, pagination.NewPage(polls, total, params))
}

// Get handles GET /polls/:poll_id
func (h *Handler) Get(c *gin.Context) {
	user := middleware.CurrentUser(c)
	pollID, ok := httputil.ParseIDParam(c, "poll_id")
	if !ok {
		return
	}

	poll, err := h.service.Get(c.Request.Context(), pollID, user.ID)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, poll)
}

// Vote handles POST /polls/:poll_id/vote
func (h *Handler) Vote(c *gin.Context) {
	user := middleware.CurrentUser(c)
	pollID, ok := httputil.ParseIDParam(c, "poll_id")
	if !ok {
		return
	}
	var input domain.VoteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}
	if input.OptionIDs == nil {
		response.ValidationError(c, "option_ids must be a list of integers")
		return
	}

	poll, err := h.service.Vote(c.Request.Context(), pollID, user.ID, input.OptionIDs)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, poll)
}

// Close handles POST /polls/:poll_id/close
func (h *Handler) Close(c *gin.Context) {
	user := middleware.CurrentUser(c)
	pollID, ok := httputil.ParseIDParam(c, "poll_id")
	if !ok {
		return
	}

	poll, err := h.service.Close(c.Request.Context(), pollID, user.ID)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, poll)
}

// Delete handles DELETE /polls/:poll_id
func (h *Handler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	pollID, ok := httputil.ParseIDParam(c, "poll_id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), pollID, user.ID); err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.NoContent(c)
}
