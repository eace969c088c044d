package event

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventplanner-backend/internal/domain"
	"eventplanner-backend/internal/handler/http/httputil"
	"eventplanner-backend/internal/middleware"
	eventService "eventplanner-backend/internal/service/event"
	"eventplanner-backend/pkg/pagination"
	"eventplanner-backend/pkg/response"
)

// Handler exposes the event CRUD surface
type Handler struct {
	service *eventService.Service
}

// NewHandler creates a new event handler
func NewHandler(service *eventService.Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /events
func (h *Handler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var input domain.EventCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	event, err := h.service.Create(c.Request.Context(), user.ID, &input)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, event)
}

// List handles GET /events
func (h *Handler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)
	params, err := pagination.Parse(c.Query("page"), c.Query("page_size"), 20, 100)
	if err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	events, total, err := h.service.List(c.Request.Context(), user.ID, params.Limit, params.Offset)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, pagination.NewPage(events, total, params))
}

// Get handles GET /events/:event_id
func (h *Handler) Get(c *gin.Context) {
	user := middleware.CurrentUser(c)
	eventID, ok := httputil.ParseIDParam(c, "event_id")
	if !ok {
		return
	}

	event, err := h.service.Get(c.Request.Context(), eventID, user.ID)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, event)
}

// Update handles PATCH /events/:event_id
func (h *Handler) Update(c *gin.Context) {
	user := middleware.CurrentUser(c)
	eventID, ok := httputil.ParseIDParam(c, "event_id")
	if !ok {
		return
	}
	var input domain.EventUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	event, err := h.service.Update(c.Request.Context(), eventID, user.ID, &input)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, event)
}

// Delete handles DELETE /events/:event_id
func (h *Handler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	eventID, ok := httputil.ParseIDParam(c, "event_id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), eventID, user.ID); err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.NoContent(c)
}
