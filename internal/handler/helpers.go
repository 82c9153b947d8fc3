package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/speakeval/speakeval-backend/internal/response"
	"github.com/speakeval/speakeval-backend/internal/service"
)

// failFromError maps service errors onto the API error taxonomy. Attempt
// ownership failures read as NOT_ATTEMPT_OWNER; handlers dealing with other
// resources map ErrAccessDenied themselves before falling through here.
func failFromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrAccessDenied):
		response.Fail(c, http.StatusForbidden, response.ErrNotAttemptOwner)
	case errors.Is(err, service.ErrAnswerFinalized):
		response.Fail(c, http.StatusConflict, response.ErrAnswerFinalized)
	case errors.Is(err, service.ErrExamInactive):
		response.Fail(c, http.StatusConflict, response.ErrExamInactive)
	case errors.Is(err, service.ErrUnknownCommand):
		response.Fail(c, http.StatusBadRequest, response.ErrUnknownCommand)
	case errors.Is(err, service.ErrEmailTaken):
		response.Fail(c, http.StatusConflict, response.ErrEmailTaken)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// parseUUIDParam parses a UUID path parameter, failing the request on bad
// input.
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
