package httputil

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"eventplanner-backend/internal/domain"
	authService "eventplanner-backend/internal/service/auth"
	apperrors "eventplanner-backend/pkg/errors"
	"eventplanner-backend/pkg/response"
)

// statusByCode maps domain error codes onto HTTP statuses. Codes not listed
// here default to 400 for domain errors.
var statusByCode = map[string]int{
	"NOT_FOUND":            http.StatusNotFound,
	"EVENT_NOT_FOUND":      http.StatusNotFound,
	"TASK_NOT_FOUND":       http.StatusNotFound,
	"TASKLIST_NOT_FOUND":   http.StatusNotFound,
	"POLL_NOT_FOUND":       http.StatusNotFound,
	"MESSAGE_NOT_FOUND":    http.StatusNotFound,
	"PARTICIPANT_NOT_FOUND": http.StatusNotFound,
	"USER_NOT_FOUND":       http.StatusNotFound,
	"not_found":            http.StatusNotFound,
	"forbidden":            http.StatusForbidden,
	"last_organizer":       http.StatusForbidden,
	"self_last_organizer":  http.StatusForbidden,
	"already_assigned":     http.StatusConflict,
	"RATE_LIMITED":         http.StatusTooManyRequests,
	"INVALID_TOKEN":        http.StatusUnauthorized,
	"INVALID_CREDENTIALS":  http.StatusUnauthorized,
}

// RespondError maps service and domain errors onto the response envelope
func RespondError(c *gin.Context, err error) {
	var weak *authService.WeakPasswordError
	if errors.As(err, &weak) {
		details := make([]gin.H, len(weak.Findings))
		for i, finding := range weak.Findings {
			details[i] = gin.H{"field": finding.Field, "message": finding.Message}
		}
		response.FromError(c, apperrors.ValidationError("Password is too weak").WithDetails(details))
		return
	}

	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		status, ok := statusByCode[domainErr.Code]
		if !ok {
			status = http.StatusBadRequest
		}
		response.Error(c, status, domainErr.Code, domainErr.Message)
		return
	}

	response.FromError(c, err)
}

// ParseIDParam reads an integer path parameter
func ParseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		response.ValidationError(c, "Parameter "+name+" must be an integer")
		return 0, false
	}
	return id, true
}

// ParseOptionalIntQuery reads an optional non-negative integer query value
func ParseOptionalIntQuery(c *gin.Context, name string) (*int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		response.ValidationError(c, "Parameter "+name+" must be a non-negative integer")
		return nil, false
	}
	return &value, true
}
