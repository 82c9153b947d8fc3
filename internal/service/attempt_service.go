package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/speakeval/speakeval-backend/internal/config"
	"github.com/speakeval/speakeval-backend/internal/model"
)

// AttemptService owns the attempt lifecycle: starting a timed run, reporting
// its live state, and the idempotent completion recompute.
type AttemptService struct {
	attempts  AttemptStore
	answers   AnswerStore
	questions QuestionStore
	exams     ExamStore
	rdb       *redis.Client
	log       zerolog.Logger
}

// NewAttemptService creates a new AttemptService. rdb may be nil; the start
// time cache then degrades to Postgres reads.
func NewAttemptService(
	attempts AttemptStore,
	answers AnswerStore,
	questions QuestionStore,
	exams ExamStore,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attempts:  attempts,
		answers:   answers,
		questions: questions,
		exams:     exams,
		rdb:       rdb,
		log:       log,
	}
}

// StartResult is the payload for a newly started attempt.
type StartResult struct {
	Attempt   *model.ExamAttempt
	Exam      *model.Exam
	Questions []model.QuestionForStudent
}

// AnswerBreakdown is one finalized answer's contribution to the total.
type AnswerBreakdown struct {
	QuestionID    uuid.UUID `json:"question_id"`
	SpokenText    string    `json:"spoken_text"`
	PointsAwarded int       `json:"points_awarded"`
}

// CompletionResult is the recomputed outcome of an attempt.
type CompletionResult struct {
	Attempt    *model.ExamAttempt
	TotalScore int
	Breakdown  []AnswerBreakdown
}

// AttemptInfo bundles an attempt with its exam and question sheet.
type AttemptInfo struct {
	Attempt   *model.ExamAttempt
	Exam      *model.Exam
	Questions []model.QuestionForStudent
}

// ResultRow pairs a question with whatever answer state exists for it.
// Questions never touched by the attempt appear with zero values.
type ResultRow struct {
	Question        model.QuestionForStudent `json:"question"`
	SpokenText      string                   `json:"spoken_text"`
	SimilarityScore float64                  `json:"similarity_score"`
	PointsAwarded   int                      `json:"points_awarded"`
	Finalized       bool                     `json:"finalized"`
}

// AttemptResults is the full per-question outcome sheet of an attempt.
type AttemptResults struct {
	Attempt *model.ExamAttempt
	Rows    []ResultRow
}

// Authorize returns the attempt if the caller owns it.
func (s *AttemptService) Authorize(ctx context.Context, callerID int, attemptID uuid.UUID) (*model.ExamAttempt, error) {
	return authorizeAttempt(ctx, s.attempts, callerID, attemptID)
}

// Get returns an attempt with no ownership check. Callers enforce their own
// access rules (e.g. educator monitoring of a student's attempt).
func (s *AttemptService) Get(ctx context.Context, attemptID uuid.UUID) (*model.ExamAttempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return attempt, nil
}

// Start opens a new attempt on an active exam and primes the start time
// cache.
func (s *AttemptService) Start(ctx context.Context, studentID int, examID uuid.UUID) (*StartResult, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, mapNoRows(err)
	}
	if !exam.IsActive {
		return nil, ErrExamInactive
	}

	attempt := &model.ExamAttempt{
		ExamID:    examID,
		StudentID: studentID,
		Status:    model.AttemptStatusInProgress,
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return nil, err
	}
	s.cacheStartTime(ctx, attempt)

	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	return &StartResult{Attempt: attempt, Exam: exam, Questions: forStudents(questions)}, nil
}

// Complete marks the attempt finished, recomputing the total from finalized
// answers only. The recompute runs on every call: finalized rows are
// immutable, so repeated "end exam" requests rewrite the same values.
func (s *AttemptService) Complete(ctx context.Context, callerID int, attemptID uuid.UUID) (*CompletionResult, error) {
	if _, err := authorizeAttempt(ctx, s.attempts, callerID, attemptID); err != nil {
		return nil, err
	}

	answers, err := s.answers.ListFinalized(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	total := 0
	breakdown := make([]AnswerBreakdown, 0, len(answers))
	for _, a := range answers {
		points := 0
		if a.PointsAwarded != nil {
			points = *a.PointsAwarded
		}
		total += points
		breakdown = append(breakdown, AnswerBreakdown{
			QuestionID:    a.QuestionID,
			SpokenText:    a.SpokenText,
			PointsAwarded: points,
		})
	}

	updated, err := s.attempts.Complete(ctx, attemptID, total)
	if err != nil {
		return nil, err
	}
	return &CompletionResult{Attempt: updated, TotalScore: total, Breakdown: breakdown}, nil
}

// Info returns the attempt with its exam and student-safe question sheet.
func (s *AttemptService) Info(ctx context.Context, callerID int, attemptID uuid.UUID) (*AttemptInfo, error) {
	attempt, err := authorizeAttempt(ctx, s.attempts, callerID, attemptID)
	if err != nil {
		return nil, err
	}
	exam, err := s.exams.GetByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, mapNoRows(err)
	}
	questions, err := s.questions.ListByExam(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}
	return &AttemptInfo{Attempt: attempt, Exam: exam, Questions: forStudents(questions)}, nil
}

// Results returns the per-question outcome sheet, including questions the
// attempt never touched.
func (s *AttemptService) Results(ctx context.Context, callerID int, attemptID uuid.UUID) (*AttemptResults, error) {
	attempt, err := authorizeAttempt(ctx, s.attempts, callerID, attemptID)
	if err != nil {
		return nil, err
	}
	questions, err := s.questions.ListByExam(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}
	answers, err := s.answers.ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	byQuestion := make(map[uuid.UUID]model.Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	rows := make([]ResultRow, 0, len(questions))
	for i := range questions {
		row := ResultRow{Question: questions[i].ForStudent()}
		if a, ok := byQuestion[questions[i].ID]; ok {
			row.SpokenText = a.SpokenText
			row.Finalized = a.Finalized
			if a.SimilarityScore != nil {
				row.SimilarityScore = *a.SimilarityScore
			}
			if a.PointsAwarded != nil {
				row.PointsAwarded = *a.PointsAwarded
			}
		}
		rows = append(rows, row)
	}
	return &AttemptResults{Attempt: attempt, Rows: rows}, nil
}

// State reports remaining seconds against the exam duration plus the first
// unanswered question. The start time is read from Redis when cached, with
// Postgres as fallback.
func (s *AttemptService) State(ctx context.Context, callerID int, attemptID uuid.UUID) (*model.AttemptState, error) {
	attempt, err := authorizeAttempt(ctx, s.attempts, callerID, attemptID)
	if err != nil {
		return nil, err
	}
	exam, err := s.exams.GetByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, mapNoRows(err)
	}

	remaining := float64(exam.DurationMinutes*60) - time.Since(s.startTime(ctx, attempt)).Seconds()
	if remaining < 0 || attempt.Status != model.AttemptStatusInProgress {
		remaining = 0
	}

	state := &model.AttemptState{
		AttemptID:        attempt.ID,
		Status:           attempt.Status,
		RemainingSeconds: remaining,
	}
	if attempt.Status == model.AttemptStatusInProgress {
		next, err := s.questions.FirstUnanswered(ctx, attempt.ExamID, attemptID)
		if err == nil {
			nq := next.ForStudent()
			state.NextQuestion = &nq
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}
	return state, nil
}

// cacheStartTime stores the attempt start in Redis for cheap remaining-time
// checks. Postgres stays authoritative; a cache failure is only logged.
func (s *AttemptService) cacheStartTime(ctx context.Context, attempt *model.ExamAttempt) {
	if s.rdb == nil {
		return
	}
	key := config.CacheKey.AttemptStartKey(attempt.ID.String())
	value := attempt.StartedAt.UTC().Format(time.RFC3339Nano)
	if err := s.rdb.Set(ctx, key, value, 24*time.Hour).Err(); err != nil {
		s.log.Warn().Err(err).Msg("failed to cache attempt start time")
	}
}

func (s *AttemptService) startTime(ctx context.Context, attempt *model.ExamAttempt) time.Time {
	if s.rdb == nil {
		return attempt.StartedAt
	}
	raw, err := s.rdb.Get(ctx, config.CacheKey.AttemptStartKey(attempt.ID.String())).Result()
	if err == nil {
		if t, perr := time.Parse(time.RFC3339Nano, raw); perr == nil {
			return t
		}
	}
	// Cache miss or garbage: re-prime from the authoritative row.
	s.cacheStartTime(ctx, attempt)
	return attempt.StartedAt
}

func forStudents(questions []model.Question) []model.QuestionForStudent {
	out := make([]model.QuestionForStudent, 0, len(questions))
	for _, q := range questions {
		out = append(out, q.ForStudent())
	}
	return out
}
