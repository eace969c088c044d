package board

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventplanner-backend/internal/domain"
	"eventplanner-backend/internal/handler/http/httputil"
	"eventplanner-backend/internal/middleware"
	"eventplanner-backend/internal/service/taskboard"
	"eventplanner-backend/pkg/response"
)

// Handler exposes the board surface: columns, tasks, reorder and progress
type Handler struct {
	service *taskboard.Service
}

// NewHandler creates a new board handler
func NewHandler(service *taskboard.Service) *Handler {
	return &Handler{service: service}
}

// Board handles GET /events/:event_id/board
func (h *Handler) Board(c *gin.Context) {
	user := middleware.CurrentUser(c)
	eventID, ok := httputil.ParseIDParam(c, "event_id")
	if !ok {
		return
	}

	board, err := h.service.Board(c.Request.Context(), eventID, user.ID)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, board)
}

// Progress handles GET /events/:event_id/progress
func (h *Handler) Progress(c *gin.Context) {
	user := middleware.CurrentUser(c)
	eventID, ok := httputil.ParseIDParam(c, "event_id")
	if !ok {
		return
	}

	progress, err := h.service.Progress(c.Request.Context(), eventID, user.ID)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, progress)
}

// CreateList handles POST /tasklists
func (h *Handler) CreateList(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var input domain.TaskListCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	list, err := h.service.CreateList(c.Request.Context(), user.ID, &input)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, list)
}

// UpdateList handles PATCH /tasklists/:list_id
func (h *Handler) UpdateList(c *gin.Context) {
	user := middleware.CurrentUser(c)
	listID, ok := httputil.ParseIDParam(c, "list_id")
	if !ok {
		return
	}
	var input domain.TaskListUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	list, err := h.service.UpdateList(c.Request.Context(), user.ID, listID, &input)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, list)
}

// DeleteList handles DELETE /tasklists/:list_id
func (h *Handler) DeleteList(c *gin.Context) {
	user := middleware.CurrentUser(c)
	listID, ok := httputil.ParseIDParam(c, "list_id")
	if !ok {
		return
	}

	if err := h.service.DeleteList(c.Request.Context(), user.ID, listID); err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.NoContent(c)
}

// ReorderLists handles POST /events/:event_id/tasklists/reorder
func (h *Handler) ReorderLists(c *gin.Context) {
	user := middleware.CurrentUser(c)
	eventID, ok := httputil.ParseIDParam(c, "event_id")
	if !ok {
		return
	}
	var input domain.ReorderRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}
	if input.OrderedIDs == nil {
		input.OrderedIDs = []int64{}
	}

	if err := h.service.ReorderLists(c.Request.Context(), user.ID, eventID, input.OrderedIDs); err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"ordered_ids": input.OrderedIDs})
}

// CreateTask handles POST /tasks
func (h *Handler) CreateTask(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var input domain.TaskCreate
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	task, err := h.service.CreateTask(c.Request.Context(), user.ID, &input)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, task)
}

// GetTask handles GET /tasks/:task_id
func (h *Handler) GetTask(c *gin.Context) {
	user := middleware.CurrentUser(c)
	taskID, ok := httputil.ParseIDParam(c, "task_id")
	if !ok {
		return
	}

	task, err := h.service.GetTask(c.Request.Context(), user.ID, taskID)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

// UpdateTask handles PATCH /tasks/:task_id
func (h *Handler) UpdateTask(c *gin.Context) {
	user := middleware.CurrentUser(c)
	taskID, ok := httputil.ParseIDParam(c, "task_id")
	if !ok {
		return
	}
	var input domain.TaskUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	task, err := h.service.UpdateTask(c.Request.Context(), user.ID, taskID, &input)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

// DeleteTask handles DELETE /tasks/:task_id
func (h *Handler) DeleteTask(c *gin.Context) {
	user := middleware.CurrentUser(c)
	taskID, ok := httputil.ParseIDParam(c, "task_id")
	if !ok {
		return
	}

	if err := h.service.DeleteTask(c.Request.Context(), user.ID, taskID); err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.NoContent(c)
}

// ReorderTasks handles POST /tasklists/:list_id/tasks/reorder
func (h *Handler) ReorderTasks(c *gin.Context) {
	user := middleware.CurrentUser(c)
	listID, ok := httputil.ParseIDParam(c, "list_id")
	if !ok {
		return
	}
	var input domain.ReorderRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}
	if input.OrderedIDs == nil {
		input.OrderedIDs = []int64{}
	}

	if err := h.service.ReorderTasks(c.Request.Context(), user.ID, listID, input.OrderedIDs); err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"ordered_ids": input.OrderedIDs})
}

// SetStatus handles POST /tasks/:task_id/status
func (h *Handler) SetStatus(c *gin.Context) {
	user := middleware.CurrentUser(c)
	taskID, ok := httputil.ParseIDParam(c, "task_id")
	if !ok {
		return
	}
	var input domain.StatusChangeRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	task, err := h.service.SetStatus(c.Request.Context(), user.ID, taskID, input.Status)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

// Assign handles POST /tasks/:task_id/assign
func (h *Handler) Assign(c *gin.Context) {
	user := middleware.CurrentUser(c)
	taskID, ok := httputil.ParseIDParam(c, "task_id")
	if !ok {
		return
	}
	var input domain.AssignRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	task, err := h.service.Assign(c.Request.Context(), user.ID, taskID, input.Assignee)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

// Take handles POST /tasks/:task_id/take
func (h *Handler) Take(c *gin.Context) {
	user := middleware.CurrentUser(c)
	taskID, ok := httputil.ParseIDParam(c, "task_id")
	if !ok {
		return
	}

	task, err := h.service.Take(c.Request.Context(), user.ID, taskID)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}
