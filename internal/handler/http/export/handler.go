package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"eventplanner-backend/internal/domain"
	"eventplanner-backend/internal/handler/http/httputil"
	"eventplanner-backend/internal/middleware"
	pollService "eventplanner-backend/internal/service/poll"
	"eventplanner-backend/internal/service/taskboard"
	"eventplanner-backend/pkg/response"
)

// Exporter renders a board snapshot into a binary document. PDF and XLS
// exporters are optional features resolved at startup; a nil exporter
// answers 501.
type Exporter interface {
	ContentType() string
	Render(board *domain.Board, polls []*domain.PollResponse) ([]byte, error)
}

// Handler exposes the export surface
type Handler struct {
	board *taskboard.Service
	polls *pollService.Service
	pdf   Exporter
	xls   Exporter
}

// NewHandler creates a new export handler. pdf and xls may be nil.
func NewHandler(board *taskboard.Service, polls *pollService.Service, pdf, xls Exporter) *Handler {
	return &Handler{board: board, polls: polls, pdf: pdf, xls: xls}
}

func (h *Handler) load(ctx context.Context, c *gin.Context) (*domain.Board, []*domain.PollResponse, bool) {
	user := middleware.CurrentUser(c)
	eventID, ok := httputil.ParseIDParam(c, "event_id")
	if !ok {
		return nil, nil, false
	}

	board, err := h.board.Board(ctx, eventID, user.ID)
	if err != nil {
		httputil.RespondError(c, err)
		return nil, nil, false
	}
	polls, _, err := h.polls.List(ctx, eventID, user.ID, nil, 50, 0)
	if err != nil {
		httputil.RespondError(c, err)
		return nil, nil, false
	}
	return board, polls, true
}

// CSV handles GET /events/:event_id/export/csv
func (h *Handler) CSV(c *gin.Context) {
	board, polls, ok := h.load(c.Request.Context(), c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=event-%d.csv", board.Event.ID))
	c.Status(http.StatusOK)

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	_ = writer.Write([]string{"section", "list", "title", "status", "due_at", "votes"})
	for _, list := range board.Lists {
		for _, task := range list.Tasks {
			dueAt := ""
			if task.DueAt != nil {
				dueAt = task.DueAt.UTC().Format("2006-01-02 15:04")
			}
			_ = writer.Write([]string{"task", list.Title, task.Title, string(task.Status), dueAt, ""})
		}
	}
	for _, poll := range polls {
		for _, option := range poll.Options {
			_ = writer.Write([]string{"poll", poll.Question, option.DisplayLabel(), "", "", strconv.Itoa(option.VotesCount)})
		}
	}
}

// PDF handles GET /events/:event_id/export/pdf
func (h *Handler) PDF(c *gin.Context) {
	h.renderWith(c, h.pdf, "pdf")
}

// XLS handles GET /events/:event_id/export/xls
func (h *Handler) XLS(c *gin.Context) {
	h.renderWith(c, h.xls, "xls")
}

func (h *Handler) renderWith(c *gin.Context, exporter Exporter, format string) {
	if exporter == nil {
		response.Error(c, http.StatusNotImplemented, "NOT_IMPLEMENTED", fmt.Sprintf("%s export is not enabled", format))
		return
	}

	board, polls, ok := h.load(c.Request.Context(), c)
	if !ok {
		return
	}
	data, err := exporter.Render(board, polls)
	if err != nil {
		httputil.RespondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=event-%d.%s", board.Event.ID, format))
	c.Data(http.StatusOK, exporter.ContentType(), data)
}
