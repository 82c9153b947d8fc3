package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/speakeval/speakeval-backend/internal/model"
)

// The store interfaces below are satisfied by the repository types. Services
// depend on them rather than on *pgxpool.Pool so the workflow logic can be
// exercised against in-memory implementations.

// AnswerStore is the answer row persistence required by the ledger.
type AnswerStore interface {
	Get(ctx context.Context, attemptID, questionID uuid.UUID) (*model.Answer, error)
	GetOrCreate(ctx context.Context, attemptID, questionID uuid.UUID) (*model.Answer, error)
	AppendFragment(ctx context.Context, attemptID, questionID uuid.UUID, fragment string) (*model.Answer, error)
	Finalize(ctx context.Context, attemptID, questionID uuid.UUID, text string, similarity float64, points int, audioPath *string) (*model.Answer, error)
	ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Answer, error)
	ListFinalized(ctx context.Context, attemptID uuid.UUID) ([]model.Answer, error)
}

// QuestionStore is the question lookup surface, including both navigation
// strategies.
type QuestionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
	NextAfter(ctx context.Context, examID uuid.UUID, orderNum int) (*model.Question, error)
	FirstUnanswered(ctx context.Context, examID, attemptID uuid.UUID) (*model.Question, error)
}

// AttemptStore is the exam attempt persistence surface.
type AttemptStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error)
	Create(ctx context.Context, a *model.ExamAttempt) error
	Complete(ctx context.Context, id uuid.UUID, totalScore int) (*model.ExamAttempt, error)
}

// ExamStore is the exam lookup surface needed by the attempt lifecycle.
type ExamStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
}

// mapNoRows converts a pgx row miss into the service-level not-found error.
func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// authorizeAttempt loads an attempt and checks the caller owns it. Unknown
// attempt IDs and foreign attempts are distinct failures: the former is
// ErrNotFound, the latter ErrAccessDenied.
func authorizeAttempt(ctx context.Context, store AttemptStore, callerID int, attemptID uuid.UUID) (*model.ExamAttempt, error) {
	attempt, err := store.GetByID(ctx, attemptID)
	if err != nil {
		return nil, mapNoRows(err)
	}
	if attempt.StudentID != callerID {
		return nil, ErrAccessDenied
	}
	return attempt, nil
}
