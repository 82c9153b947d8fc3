package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/speakeval/speakeval-backend/internal/model"
)

// ProctoringRepository persists camera-frame integrity events.
type ProctoringRepository struct {
	pool *pgxpool.Pool
}

// NewProctoringRepository creates a new ProctoringRepository.
func NewProctoringRepository(pool *pgxpool.Pool) *ProctoringRepository {
	return &ProctoringRepository{pool: pool}
}

// BulkInsert writes a batch of events with a single UNNEST statement.
func (r *ProctoringRepository) BulkInsert(ctx context.Context, events []model.ProctoringEvent) error {
	n := len(events)
	attemptIDs := make([]uuid.UUID, 0, n)
	faces := make([]bool, 0, n)
	multi := make([]bool, 0, n)
	eyes := make([]bool, 0, n)
	capturedAts := make([]time.Time, 0, n)

	for _, e := range events {
		attemptIDs = append(attemptIDs, e.AttemptID)
		faces = append(faces, e.FaceDetected)
		multi = append(multi, e.MultipleFaces)
		eyes = append(eyes, e.EyeMovementDetected)
		capturedAts = append(capturedAts, e.CapturedAt)
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO proctoring_events
		     (attempt_id, face_detected, multiple_faces, eye_movement_detected, captured_at)
		 SELECT * FROM UNNEST(
		     $1::uuid[], $2::bool[], $3::bool[], $4::bool[], $5::timestamptz[]
		 )`,
		attemptIDs, faces, multi, eyes, capturedAts)
	return err
}

// Insert writes a single event (fallback path when a bulk insert fails).
func (r *ProctoringRepository) Insert(ctx context.Context, e *model.ProctoringEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO proctoring_events
		     (attempt_id, face_detected, multiple_faces, eye_movement_detected, captured_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.AttemptID, e.FaceDetected, e.MultipleFaces, e.EyeMovementDetected, e.CapturedAt)
	return err
}
