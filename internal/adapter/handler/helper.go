package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/derricker/meetai/internal/domain/entities"
)

// HandleSuccess sends a 200 JSON response
func HandleSuccess(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

// HandleError logs and sends a machine-readable JSON error
func HandleError(logger *zap.Logger, c echo.Context, status int, message string, err error) error {
	if err != nil {
		logger.Error(message,
			zap.Int("status", status),
			zap.Error(err))
	}
	return c.JSON(status, map[string]interface{}{"error": message})
}

// HandleDomainError maps domain errors onto webhook response codes:
// precondition failures are 404, payload problems are 400, anything else is
// an internal error.
func HandleDomainError(logger *zap.Logger, c echo.Context, err error) error {
	switch {
	case errors.Is(err, entities.ErrMeetingNotFound):
		return HandleError(logger, c, http.StatusNotFound, "meeting not found", err)
	case errors.Is(err, entities.ErrAgentNotFound):
		return HandleError(logger, c, http.StatusNotFound, "agent not found", err)
	case errors.Is(err, entities.ErrInvalidTransition):
		return HandleError(logger, c, http.StatusNotFound, "meeting not in expected state", err)
	case errors.Is(err, entities.ErrMissingMeetingID):
		return HandleError(logger, c, http.StatusBadRequest, "missing meeting id", err)
	case errors.Is(err, entities.ErrEmptyCompletion):
		return HandleError(logger, c, http.StatusBadRequest, "no response generated", err)
	default:
		return HandleError(logger, c, http.StatusInternalServerError, "internal error", err)
	}
}
