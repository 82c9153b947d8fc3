package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/speakeval/speakeval-backend/internal/config"
	"github.com/speakeval/speakeval-backend/internal/middleware"
	"github.com/speakeval/speakeval-backend/internal/model"
	"github.com/speakeval/speakeval-backend/internal/oracle"
	"github.com/speakeval/speakeval-backend/internal/response"
	"github.com/speakeval/speakeval-backend/internal/service"
	"github.com/speakeval/speakeval-backend/internal/validator"
)

// ProctoringHandler handles camera-frame integrity checks.
type ProctoringHandler struct {
	vision   oracle.Vision
	attempts *service.AttemptService
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewProctoringHandler creates a new ProctoringHandler. vision may be nil
// when no vision provider is configured; face checks then fail with
// ORACLE_UNAVAILABLE while the exam flow keeps working.
func NewProctoringHandler(vision oracle.Vision, attempts *service.AttemptService, rdb *redis.Client, log zerolog.Logger) *ProctoringHandler {
	return &ProctoringHandler{
		vision:   vision,
		attempts: attempts,
		rdb:      rdb,
		log:      log.With().Str("component", "proctoring_handler").Logger(),
	}
}

// FaceCheck godoc
// POST /api/v1/proctoring/face-check
// Analyzes a webcam frame, queues the event for persistence, and publishes a
// live alert when the frame looks suspicious.
func (h *ProctoringHandler) FaceCheck(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.FaceCheckRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if _, err := h.attempts.Authorize(c.Request.Context(), claims.UserID, req.AttemptID); err != nil {
		failFromError(c, err)
		return
	}

	if h.vision == nil {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrOracleUnavailable)
		return
	}

	analysis, err := h.vision.AnalyzeFrame(c.Request.Context(), req.Frame)
	if err != nil {
		h.log.Error().Err(err).Str("attempt_id", req.AttemptID.String()).Msg("frame analysis failed")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrOracleUnavailable)
		return
	}

	ctx := c.Request.Context()

	// Queue for batched persistence; the response never waits on Postgres.
	event := model.ProctoringEvent{
		AttemptID:           req.AttemptID,
		FaceDetected:        analysis.FaceDetected,
		MultipleFaces:       analysis.MultipleFaces,
		EyeMovementDetected: analysis.EyeMovementDetected,
		CapturedAt:          analysis.Timestamp,
	}
	if payload, err := json.Marshal(event); err == nil {
		if err := h.rdb.RPush(ctx, config.WorkerKey.PersistProctoringQueue, payload).Err(); err != nil {
			h.log.Error().Err(err).Msg("failed to queue proctoring event")
		}
	}

	if analysis.Suspicious() {
		alert, _ := json.Marshal(gin.H{
			"type":       "proctoring_alert",
			"attempt_id": req.AttemptID,
			"analysis":   analysis,
		})
		channel := config.CacheKey.AttemptMonitorChannel(req.AttemptID.String())
		if err := h.rdb.Publish(ctx, channel, alert).Err(); err != nil {
			h.log.Error().Err(err).Msg("failed to publish proctoring alert")
		}
	}

	response.Success(c, http.StatusOK, gin.H{"analysis": analysis})
}
