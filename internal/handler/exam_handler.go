package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/speakeval/speakeval-backend/internal/middleware"
	"github.com/speakeval/speakeval-backend/internal/model"
	"github.com/speakeval/speakeval-backend/internal/response"
	"github.com/speakeval/speakeval-backend/internal/service"
	"github.com/speakeval/speakeval-backend/internal/validator"
)

// ExamHandler handles exam authoring and catalog endpoints.
type ExamHandler struct {
	examService    *service.ExamService
	attemptService *service.AttemptService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, attemptService *service.AttemptService) *ExamHandler {
	return &ExamHandler{examService: examService, attemptService: attemptService}
}

// List godoc
// GET /api/v1/exams
// Educators see their own exams; students see the active catalog.
func (h *ExamHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	exams, err := h.examService.ListForUser(c.Request.Context(), claims.UserID, claims.Role)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// Create godoc
// POST /api/v1/exams (educator only)
// Creates an exam with its ordered questions in one shot.
func (h *ExamHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, questions, err := h.examService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"exam":      exam,
		"questions": questions,
	})
}

// Detail godoc
// GET /api/v1/exams/:id
// Educators get the full question set for their own exams; students get the
// answer-stripped view of active exams.
func (h *ExamHandler) Detail(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	exam, questions, err := h.examService.Detail(c.Request.Context(), claims.UserID, claims.Role, examID)
	if err != nil {
		if errors.Is(err, service.ErrAccessDenied) {
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
			return
		}
		failFromError(c, err)
		return
	}

	if claims.Role == model.RoleEducator {
		response.Success(c, http.StatusOK, gin.H{"exam": exam, "questions": questions})
		return
	}

	safe := make([]model.QuestionForStudent, 0, len(questions))
	for i := range questions {
		safe = append(safe, questions[i].ForStudent())
	}
	response.Success(c, http.StatusOK, gin.H{"exam": exam, "questions": safe})
}

// Start godoc
// POST /api/v1/exams/:id/start (student only)
// Opens a new timed attempt on an active exam.
func (h *ExamHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	res, err := h.attemptService.Start(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"attempt":   res.Attempt,
		"exam":      res.Exam,
		"questions": res.Questions,
	})
}
