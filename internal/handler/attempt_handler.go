package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/speakeval/speakeval-backend/internal/middleware"
	"github.com/speakeval/speakeval-backend/internal/response"
	"github.com/speakeval/speakeval-backend/internal/service"
)

// AttemptHandler handles attempt read endpoints.
type AttemptHandler struct {
	attemptService *service.AttemptService
	ledgerService  *service.LedgerService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService, ledgerService *service.LedgerService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService, ledgerService: ledgerService}
}

// Info godoc
// GET /api/v1/attempts/:id
// Returns the attempt with its exam and question sheet.
func (h *AttemptHandler) Info(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	info, err := h.attemptService.Info(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"attempt":   info.Attempt,
		"exam":      info.Exam,
		"questions": info.Questions,
	})
}

// Current godoc
// GET /api/v1/attempts/:id/current
// Returns the first question without a finalized answer, scanning the whole
// exam in order. A null question means everything is answered.
func (h *AttemptHandler) Current(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	q, err := h.ledgerService.NextUnanswered(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		failFromError(c, err)
		return
	}

	if q == nil {
		response.Success(c, http.StatusOK, gin.H{"question": nil, "exam_finished": true})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question": q.ForStudent(), "exam_finished": false})
}

// Results godoc
// GET /api/v1/attempts/:id/results
// Returns the per-question outcome sheet of the attempt.
func (h *AttemptHandler) Results(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	res, err := h.attemptService.Results(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"attempt": res.Attempt,
		"results": res.Rows,
	})
}

// State godoc
// GET /api/v1/attempts/:id/state
// Returns remaining time and the next unanswered question, for page reloads.
func (h *AttemptHandler) State(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	state, err := h.attemptService.State(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}
