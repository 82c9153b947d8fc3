package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/speakeval/speakeval-backend/internal/model"
)

// AttemptRepository handles exam attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// GetByID retrieves an attempt by primary key.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, started_at, completed_at, total_score, status
		 FROM exam_attempts WHERE id = $1`, id,
	).Scan(&a.ID, &a.ExamID, &a.StudentID, &a.StartedAt, &a.CompletedAt, &a.TotalScore, &a.Status)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a new in-progress attempt for a student.
func (r *AttemptRepository) Create(ctx context.Context, a *model.ExamAttempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_attempts (exam_id, student_id, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, started_at`,
		a.ExamID, a.StudentID, model.AttemptStatusInProgress,
	).Scan(&a.ID, &a.StartedAt)
}

// Complete marks an attempt completed with the recomputed total score. The
// update is unconditional: completion is idempotent, and recomputation is
// safe because the sum only reads finalized (immutable) answers.
func (r *AttemptRepository) Complete(ctx context.Context, id uuid.UUID, totalScore int) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	err := r.pool.QueryRow(ctx,
		`UPDATE exam_attempts
		 SET status = $1, total_score = $2, completed_at = $3
		 WHERE id = $4
		 RETURNING id, exam_id, student_id, started_at, completed_at, total_score, status`,
		model.AttemptStatusCompleted, totalScore, time.Now().UTC(), id,
	).Scan(&a.ID, &a.ExamID, &a.StudentID, &a.StartedAt, &a.CompletedAt, &a.TotalScore, &a.Status)
	if err != nil {
		return nil, err
	}
	return a, nil
}
