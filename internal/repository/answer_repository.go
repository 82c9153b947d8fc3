package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/speakeval/speakeval-backend/internal/model"
)

const answerColumns = `id, attempt_id, question_id, spoken_text, audio_path,
	similarity_score, points_awarded, finalized, created_at`

// AnswerRepository handles answer row data access. Every mutation respects
// the finalization latch: UPDATEs are guarded by finalized = FALSE, so a
// finalized row can never be rewritten, regardless of interleaving.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

func scanAnswer(row pgx.Row) (*model.Answer, error) {
	a := &model.Answer{}
	err := row.Scan(&a.ID, &a.AttemptID, &a.QuestionID, &a.SpokenText, &a.AudioPath,
		&a.SimilarityScore, &a.PointsAwarded, &a.Finalized, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Get retrieves the answer row for an (attempt, question) pair.
func (r *AnswerRepository) Get(ctx context.Context, attemptID, questionID uuid.UUID) (*model.Answer, error) {
	return scanAnswer(r.pool.QueryRow(ctx,
		`SELECT `+answerColumns+`
		 FROM answers WHERE attempt_id = $1 AND question_id = $2`,
		attemptID, questionID))
}

// GetOrCreate finds the answer row for an (attempt, question) pair, inserting
// an empty draft if none exists. The unique index on (attempt_id,
// question_id) makes concurrent first touches converge on a single row.
func (r *AnswerRepository) GetOrCreate(ctx context.Context, attemptID, questionID uuid.UUID) (*model.Answer, error) {
	a, err := scanAnswer(r.pool.QueryRow(ctx,
		`INSERT INTO answers (attempt_id, question_id, spoken_text, finalized)
		 VALUES ($1, $2, '', FALSE)
		 ON CONFLICT (attempt_id, question_id) DO NOTHING
		 RETURNING `+answerColumns,
		attemptID, questionID))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	// Conflict: the row already existed, fetch it.
	return r.Get(ctx, attemptID, questionID)
}

// AppendFragment appends a transcript fragment to a draft, separated by a
// single space. Returns pgx.ErrNoRows if the row is missing or finalized; the
// caller distinguishes the two via Get.
func (r *AnswerRepository) AppendFragment(ctx context.Context, attemptID, questionID uuid.UUID, fragment string) (*model.Answer, error) {
	return scanAnswer(r.pool.QueryRow(ctx,
		`UPDATE answers
		 SET spoken_text = TRIM(CASE WHEN spoken_text = '' THEN $3
		                             ELSE spoken_text || ' ' || $3 END)
		 WHERE attempt_id = $1 AND question_id = $2 AND finalized = FALSE
		 RETURNING `+answerColumns,
		attemptID, questionID, fragment))
}

// Finalize atomically latches an answer: a single compare-and-set UPDATE
// guarded by finalized = FALSE. The first committer wins; a concurrent loser
// gets pgx.ErrNoRows and must treat the existing row as authoritative.
func (r *AnswerRepository) Finalize(ctx context.Context, attemptID, questionID uuid.UUID, text string, similarity float64, points int, audioPath *string) (*model.Answer, error) {
	return scanAnswer(r.pool.QueryRow(ctx,
		`UPDATE answers
		 SET spoken_text = $3, similarity_score = $4, points_awarded = $5,
		     audio_path = COALESCE($6, audio_path), finalized = TRUE
		 WHERE attempt_id = $1 AND question_id = $2 AND finalized = FALSE
		 RETURNING `+answerColumns,
		attemptID, questionID, text, similarity, points, audioPath))
}

// ListByAttempt retrieves all answer rows for an attempt, drafts included,
// ordered by the question sequence.
func (r *AnswerRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.attempt_id, a.question_id, a.spoken_text, a.audio_path,
		        a.similarity_score, a.points_awarded, a.finalized, a.created_at
		 FROM answers a
		 JOIN questions q ON q.id = a.question_id
		 WHERE a.attempt_id = $1
		 ORDER BY q.order_num`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		answers = append(answers, *a)
	}
	return answers, rows.Err()
}

// ListFinalized retrieves the finalized answers for an attempt, ordered by
// the question sequence. This is the completion sum's only input.
func (r *AnswerRepository) ListFinalized(ctx context.Context, attemptID uuid.UUID) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.attempt_id, a.question_id, a.spoken_text, a.audio_path,
		        a.similarity_score, a.points_awarded, a.finalized, a.created_at
		 FROM answers a
		 JOIN questions q ON q.id = a.question_id
		 WHERE a.attempt_id = $1 AND a.finalized
		 ORDER BY q.order_num`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		answers = append(answers, *a)
	}
	return answers, rows.Err()
}
