package model

import (
	"time"

	"github.com/google/uuid"
)

// Answer is the per-(attempt, question) spoken answer record. It starts as a
// mutable draft and latches into a finalized, immutable state exactly once:
// after Finalized is true, SpokenText, SimilarityScore and PointsAwarded
// never change again.
type Answer struct {
	ID              uuid.UUID `json:"id"`
	AttemptID       uuid.UUID `json:"attempt_id"`
	QuestionID      uuid.UUID `json:"question_id"`
	SpokenText      string    `json:"spoken_text"`
	AudioPath       *string   `json:"audio_path,omitempty"`
	SimilarityScore *float64  `json:"similarity_score,omitempty"`
	PointsAwarded   *int      `json:"points_awarded,omitempty"`
	Finalized       bool      `json:"finalized"`
	CreatedAt       time.Time `json:"created_at"`
}

// EvaluateAnswerRequest finalizes an answer with explicitly provided text.
type EvaluateAnswerRequest struct {
	AttemptID  uuid.UUID `json:"attempt_id" binding:"required"`
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	SpokenText string    `json:"spoken_text"`
}

// NavigationRequest drives skip-question and move-next. SpokenText, when
// present on move-next, overrides the accumulated draft transcript.
type NavigationRequest struct {
	AttemptID  uuid.UUID `json:"attempt_id" binding:"required"`
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	SpokenText *string   `json:"spoken_text"`
}

// VoiceCommandRequest carries a natural-language navigation phrase.
type VoiceCommandRequest struct {
	AttemptID  uuid.UUID `json:"attempt_id" binding:"required"`
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Command    string    `json:"command" binding:"required"`
	SpokenText *string   `json:"spoken_text"`
}

// AppendTranscriptRequest appends a speech-to-text fragment to a draft.
type AppendTranscriptRequest struct {
	AttemptID  uuid.UUID `json:"attempt_id" binding:"required"`
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Text       string    `json:"text" binding:"required"`
}

// CompleteAttemptRequest closes an attempt and computes its total score.
type CompleteAttemptRequest struct {
	AttemptID uuid.UUID `json:"attempt_id" binding:"required"`
}
