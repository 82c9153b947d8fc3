package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/speakeval/speakeval-backend/internal/model"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetByID retrieves an exam by primary key.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, educator_id, duration_minutes, is_active, created_at
		 FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.Title, &e.Description, &e.EducatorID, &e.DurationMinutes, &e.IsActive, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// CreateWithQuestions inserts an exam and its ordered questions in one
// transaction. Question order is the dense 1-based slice position.
func (r *ExamRepository) CreateWithQuestions(ctx context.Context, e *model.Exam, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO exams (title, description, educator_id, duration_minutes, is_active)
		 VALUES ($1, $2, $3, $4, TRUE)
		 RETURNING id, is_active, created_at`,
		e.Title, e.Description, e.EducatorID, e.DurationMinutes,
	).Scan(&e.ID, &e.IsActive, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert exam: %w", err)
	}

	for i := range questions {
		q := &questions[i]
		q.ExamID = e.ID
		q.OrderNum = i + 1
		err = tx.QueryRow(ctx,
			`INSERT INTO questions (exam_id, question_text, expected_answer, points, order_num)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			q.ExamID, q.QuestionText, q.ExpectedAnswer, q.Points, q.OrderNum,
		).Scan(&q.ID)
		if err != nil {
			return fmt.Errorf("insert question %d: %w", i+1, err)
		}
	}

	return tx.Commit(ctx)
}

// ListByEducator retrieves all exams authored by an educator.
func (r *ExamRepository) ListByEducator(ctx context.Context, educatorID int) ([]model.Exam, error) {
	return r.list(ctx,
		`SELECT id, title, description, educator_id, duration_minutes, is_active, created_at
		 FROM exams WHERE educator_id = $1
		 ORDER BY created_at DESC`, educatorID)
}

// ListActive retrieves all active exams (the student-facing catalog).
func (r *ExamRepository) ListActive(ctx context.Context) ([]model.Exam, error) {
	return r.list(ctx,
		`SELECT id, title, description, educator_id, duration_minutes, is_active, created_at
		 FROM exams WHERE is_active = TRUE
		 ORDER BY created_at DESC`)
}

func (r *ExamRepository) list(ctx context.Context, query string, args ...any) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.EducatorID, &e.DurationMinutes, &e.IsActive, &e.CreatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}
