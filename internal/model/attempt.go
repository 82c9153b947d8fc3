package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates exam attempt states. Completed is terminal but
// idempotently re-enterable; flagged is a reserved terminal for
// proctoring-triggered escalation and has no transition in this core.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusCompleted  AttemptStatus = "completed"
	AttemptStatusFlagged    AttemptStatus = "flagged"
)

// ExamAttempt represents one student's timed run through one exam.
type ExamAttempt struct {
	ID          uuid.UUID     `json:"id"`
	ExamID      uuid.UUID     `json:"exam_id"`
	StudentID   int           `json:"student_id"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	TotalScore  *int          `json:"total_score,omitempty"`
	Status      AttemptStatus `json:"status"`
}

// AttemptState is the sync payload for page reloads: remaining seconds plus
// the first unanswered question, if any.
type AttemptState struct {
	AttemptID        uuid.UUID           `json:"attempt_id"`
	Status           AttemptStatus       `json:"status"`
	RemainingSeconds float64             `json:"remaining_seconds"`
	NextQuestion     *QuestionForStudent `json:"next_question"`
}
