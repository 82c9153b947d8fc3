package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/speakeval/speakeval-backend/internal/model"
)

// QuestionRepository handles question data access, including the two distinct
// "next question" resolution strategies used for navigation.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// GetByID retrieves a question by primary key.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, question_text, expected_answer, points, order_num
		 FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.ExamID, &q.QuestionText, &q.ExpectedAnswer, &q.Points, &q.OrderNum)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListByExam retrieves all questions for a given exam, ordered by order_num.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, question_text, expected_answer, points, order_num
		 FROM questions WHERE exam_id = $1
		 ORDER BY order_num`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.QuestionText, &q.ExpectedAnswer, &q.Points, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// NextAfter returns the strict order-successor of the given order_num within
// an exam, ignoring finalization state entirely. pgx.ErrNoRows means the
// given question was the last one.
func (r *QuestionRepository) NextAfter(ctx context.Context, examID uuid.UUID, orderNum int) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, question_text, expected_answer, points, order_num
		 FROM questions
		 WHERE exam_id = $1 AND order_num > $2
		 ORDER BY order_num
		 LIMIT 1`, examID, orderNum,
	).Scan(&q.ID, &q.ExamID, &q.QuestionText, &q.ExpectedAnswer, &q.Points, &q.OrderNum)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// FirstUnanswered returns the lowest-order question of the exam with no
// finalized answer for the attempt. Drafts do not count as answered.
// pgx.ErrNoRows means every question has been finalized.
func (r *QuestionRepository) FirstUnanswered(ctx context.Context, examID, attemptID uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT q.id, q.exam_id, q.question_text, q.expected_answer, q.points, q.order_num
		 FROM questions q
		 WHERE q.exam_id = $1
		   AND NOT EXISTS (
		       SELECT 1 FROM answers a
		       WHERE a.attempt_id = $2 AND a.question_id = q.id AND a.finalized
		   )
		 ORDER BY q.order_num
		 LIMIT 1`, examID, attemptID,
	).Scan(&q.ID, &q.ExamID, &q.QuestionText, &q.ExpectedAnswer, &q.Points, &q.OrderNum)
	if err != nil {
		return nil, err
	}
	return q, nil
}
