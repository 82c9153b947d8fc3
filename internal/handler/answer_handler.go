package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/speakeval/speakeval-backend/internal/middleware"
	"github.com/speakeval/speakeval-backend/internal/model"
	"github.com/speakeval/speakeval-backend/internal/oracle"
	"github.com/speakeval/speakeval-backend/internal/response"
	"github.com/speakeval/speakeval-backend/internal/service"
	"github.com/speakeval/speakeval-backend/internal/validator"
)

// AnswerHandler handles the answer lifecycle endpoints: evaluation, audio
// submission, live transcript accumulation, and voice-driven navigation.
type AnswerHandler struct {
	ledger      *service.LedgerService
	attempts    *service.AttemptService
	dispatcher  *service.CommandDispatcher
	audio       *service.AudioService
	transcriber oracle.Transcriber
	log         zerolog.Logger
}

// NewAnswerHandler creates a new AnswerHandler. transcriber may be nil when
// no speech-to-text provider is configured; audio submission then fails with
// ORACLE_UNAVAILABLE instead of breaking the rest of the exam flow.
func NewAnswerHandler(
	ledger *service.LedgerService,
	attempts *service.AttemptService,
	dispatcher *service.CommandDispatcher,
	audio *service.AudioService,
	transcriber oracle.Transcriber,
	log zerolog.Logger,
) *AnswerHandler {
	return &AnswerHandler{
		ledger:      ledger,
		attempts:    attempts,
		dispatcher:  dispatcher,
		audio:       audio,
		transcriber: transcriber,
		log:         log.With().Str("component", "answer_handler").Logger(),
	}
}

func isCorrect(a *model.Answer) bool {
	return a.PointsAwarded != nil && *a.PointsAwarded > 0
}

func navigationPayload(res *service.FinalizeResult) gin.H {
	payload := gin.H{
		"answer":     res.Answer,
		"is_correct": isCorrect(res.Answer),
	}
	if res.Next != nil {
		payload["next_question"] = res.Next.ForStudent()
		payload["exam_finished"] = false
	} else {
		payload["next_question"] = nil
		payload["exam_finished"] = true
	}
	return payload
}

func completionPayload(res *service.CompletionResult) gin.H {
	return gin.H{
		"attempt":     res.Attempt,
		"total_score": res.TotalScore,
		"answers":     res.Breakdown,
	}
}

// Evaluate godoc
// POST /api/v1/answers/evaluate
// Finalizes an answer with explicitly provided text and scores it.
func (h *AnswerHandler) Evaluate(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.EvaluateAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.ledger.Finalize(c.Request.Context(), claims.UserID, req.AttemptID, req.QuestionID, req.SpokenText, nil)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"answer":     res.Answer,
		"is_correct": isCorrect(res.Answer),
	})
}

// SubmitAudio godoc
// POST /api/v1/answers/submit (multipart)
// Stores an audio recording, transcribes it, then finalizes and scores the
// answer with the transcript.
func (h *AnswerHandler) SubmitAudio(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.PostForm("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	questionID, err := uuid.Parse(c.PostForm("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if h.transcriber == nil {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrOracleUnavailable)
		return
	}

	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	diskPath, urlPath, err := h.audio.SaveUpload(file, header)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedFileType):
			response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
		case errors.Is(err, service.ErrFileTooLarge):
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	transcript, err := h.transcriber.Transcribe(c.Request.Context(), diskPath)
	if err != nil {
		h.log.Error().Err(err).Str("path", diskPath).Msg("transcription failed")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrTranscriptionFailed)
		return
	}
	// No recognizable speech. Surface the failure instead of latching the
	// answer at zero; the question stays open for a resubmission.
	if transcript == "" {
		h.log.Warn().Str("path", diskPath).Msg("transcription produced no speech")
		response.Fail(c, http.StatusBadRequest, response.ErrTranscriptionFailed)
		return
	}

	res, err := h.ledger.Finalize(c.Request.Context(), claims.UserID, attemptID, questionID, transcript, &urlPath)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"answer":     res.Answer,
		"transcript": transcript,
		"is_correct": isCorrect(res.Answer),
	})
}

// AppendTranscript godoc
// POST /api/v1/answers/transcript
// Appends a live speech-to-text fragment to the draft transcript.
func (h *AnswerHandler) AppendTranscript(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.AppendTranscriptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ans, err := h.ledger.AppendFragment(c.Request.Context(), claims.UserID, req.AttemptID, req.QuestionID, req.Text)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"answer": ans})
}

// Skip godoc
// POST /api/v1/answers/skip
// Finalizes the question with an empty answer and returns the next question
// in order.
func (h *AnswerHandler) Skip(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.NavigationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.ledger.Skip(c.Request.Context(), claims.UserID, req.AttemptID, req.QuestionID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, navigationPayload(res))
}

// MoveNext godoc
// POST /api/v1/answers/move-next
// Finalizes the current question (with the provided or drafted transcript)
// and returns the next question in order.
func (h *AnswerHandler) MoveNext(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.NavigationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.ledger.MoveNext(c.Request.Context(), claims.UserID, req.AttemptID, req.QuestionID, req.SpokenText)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, navigationPayload(res))
}

// VoiceCommand godoc
// POST /api/v1/answers/voice-command
// Parses a natural-language phrase and executes the mapped navigation action.
func (h *AnswerHandler) VoiceCommand(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.VoiceCommandRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.dispatcher.Dispatch(c.Request.Context(), claims.UserID, req.AttemptID, req.QuestionID, req.Command, req.SpokenText)
	if err != nil {
		failFromError(c, err)
		return
	}

	if res.Completion != nil {
		payload := completionPayload(res.Completion)
		payload["command"] = res.Command.String()
		response.Success(c, http.StatusOK, payload)
		return
	}

	payload := navigationPayload(res.Finalize)
	payload["command"] = res.Command.String()
	response.Success(c, http.StatusOK, payload)
}

// Complete godoc
// POST /api/v1/attempts/complete
// Closes the attempt and recomputes its total score from finalized answers.
// Safe to call repeatedly.
func (h *AnswerHandler) Complete(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CompleteAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.attempts.Complete(c.Request.Context(), claims.UserID, req.AttemptID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, completionPayload(res))
}
