package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam represents an exam authored by an educator. Exams are immutable after
// creation; deactivation is the only lifecycle change.
type Exam struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	EducatorID      int       `json:"educator_id"`
	DurationMinutes int       `json:"duration_minutes"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// CreateExamRequest is the payload for creating a new exam with its questions.
// Question order is assigned server-side from slice position (dense, 1-based).
type CreateExamRequest struct {
	Title           string                  `json:"title" binding:"required,min=3,max=200"`
	Description     string                  `json:"description" binding:"max=2000"`
	DurationMinutes int                     `json:"duration_minutes" binding:"required,min=1,max=480"`
	Questions       []CreateQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// CreateQuestionRequest is a single question inside CreateExamRequest.
type CreateQuestionRequest struct {
	QuestionText   string `json:"question_text" binding:"required,min=1,max=2000"`
	ExpectedAnswer string `json:"expected_answer" binding:"required,min=1,max=2000"`
	Points         int    `json:"points" binding:"omitempty,min=1,max=100"`
}
