package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/speakeval/speakeval-backend/internal/model"
	"github.com/speakeval/speakeval-backend/internal/oracle"
)

// LedgerService owns the answer lifecycle: one row per (attempt, question)
// pair, created as a mutable draft and latched exactly once into a finalized,
// immutable record. All navigation actions funnel through the same latch, so
// "evaluate", "skip" and "move next" cannot disagree about what finalization
// means.
type LedgerService struct {
	answers    AnswerStore
	questions  QuestionStore
	attempts   AttemptStore
	similarity oracle.Similarity
	policy     *ScoringPolicy
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(
	answers AnswerStore,
	questions QuestionStore,
	attempts AttemptStore,
	similarity oracle.Similarity,
	policy *ScoringPolicy,
	log zerolog.Logger,
) *LedgerService {
	return &LedgerService{
		answers:    answers,
		questions:  questions,
		attempts:   attempts,
		similarity: similarity,
		policy:     policy,
		log:        log,
	}
}

// FinalizeResult bundles a latched answer with its question and, for
// navigation operations, the follow-up question to present. Next is nil when
// the current question was the last in order.
type FinalizeResult struct {
	Answer   *model.Answer
	Question *model.Question
	Next     *model.Question
}

// question loads a question and checks it belongs to the attempt's exam. A
// mismatched pair reads as not found rather than leaking another exam's
// structure.
func (s *LedgerService) question(ctx context.Context, attempt *model.ExamAttempt, questionID uuid.UUID) (*model.Question, error) {
	q, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		return nil, mapNoRows(err)
	}
	if q.ExamID != attempt.ExamID {
		return nil, ErrNotFound
	}
	return q, nil
}

// GetOrCreateDraft returns the answer row for the pair, creating an empty
// draft when the question is touched for the first time.
func (s *LedgerService) GetOrCreateDraft(ctx context.Context, callerID int, attemptID, questionID uuid.UUID) (*model.Answer, error) {
	attempt, err := authorizeAttempt(ctx, s.attempts, callerID, attemptID)
	if err != nil {
		return nil, err
	}
	if _, err := s.question(ctx, attempt, questionID); err != nil {
		return nil, err
	}
	return s.answers.GetOrCreate(ctx, attemptID, questionID)
}

// AppendFragment appends a live transcript fragment to the draft. Finalized
// answers reject the append with ErrAnswerFinalized, including the case where
// a concurrent finalize lands between the read and the write.
func (s *LedgerService) AppendFragment(ctx context.Context, callerID int, attemptID, questionID uuid.UUID, fragment string) (*model.Answer, error) {
	attempt, err := authorizeAttempt(ctx, s.attempts, callerID, attemptID)
	if err != nil {
		return nil, err
	}
	if _, err := s.question(ctx, attempt, questionID); err != nil {
		return nil, err
	}

	ans, err := s.answers.GetOrCreate(ctx, attemptID, questionID)
	if err != nil {
		return nil, err
	}
	if ans.Finalized {
		return nil, ErrAnswerFinalized
	}

	updated, err := s.answers.AppendFragment(ctx, attemptID, questionID, strings.TrimSpace(fragment))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAnswerFinalized
	}
	return updated, err
}

// Finalize scores finalText against the expected answer and latches the row.
// An already-finalized answer is returned unchanged with no re-scoring.
func (s *LedgerService) Finalize(ctx context.Context, callerID int, attemptID, questionID uuid.UUID, finalText string, audioPath *string) (*FinalizeResult, error) {
	attempt, err := authorizeAttempt(ctx, s.attempts, callerID, attemptID)
	if err != nil {
		return nil, err
	}
	q, err := s.question(ctx, attempt, questionID)
	if err != nil {
		return nil, err
	}
	ans, err := s.answers.GetOrCreate(ctx, attemptID, questionID)
	if err != nil {
		return nil, err
	}
	return s.latch(ctx, q, ans, finalText, audioPath)
}

// Skip latches the answer with an empty transcript (zero similarity, zero
// points) and resolves the strict order-successor.
func (s *LedgerService) Skip(ctx context.Context, callerID int, attemptID, questionID uuid.UUID) (*FinalizeResult, error) {
	attempt, err := authorizeAttempt(ctx, s.attempts, callerID, attemptID)
	if err != nil {
		return nil, err
	}
	q, err := s.question(ctx, attempt, questionID)
	if err != nil {
		return nil, err
	}
	ans, err := s.answers.GetOrCreate(ctx, attemptID, questionID)
	if err != nil {
		return nil, err
	}

	res, err := s.latch(ctx, q, ans, "", nil)
	if err != nil {
		return nil, err
	}
	res.Next, err = s.successor(ctx, q)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// MoveNext latches the current question and resolves the strict
// order-successor. The finalized transcript is providedText when given,
// otherwise whatever draft has accumulated. Revisiting a finalized question
// just navigates; the stored transcript stands.
func (s *LedgerService) MoveNext(ctx context.Context, callerID int, attemptID, questionID uuid.UUID, providedText *string) (*FinalizeResult, error) {
	attempt, err := authorizeAttempt(ctx, s.attempts, callerID, attemptID)
	if err != nil {
		return nil, err
	}
	q, err := s.question(ctx, attempt, questionID)
	if err != nil {
		return nil, err
	}
	ans, err := s.answers.GetOrCreate(ctx, attemptID, questionID)
	if err != nil {
		return nil, err
	}

	text := ans.SpokenText
	if providedText != nil {
		text = *providedText
	}

	res, err := s.latch(ctx, q, ans, text, nil)
	if err != nil {
		return nil, err
	}
	res.Next, err = s.successor(ctx, q)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// NextUnanswered returns the lowest-order question of the attempt's exam with
// no finalized answer, or nil when every question has been latched. Drafts do
// not count as answered.
func (s *LedgerService) NextUnanswered(ctx context.Context, callerID int, attemptID uuid.UUID) (*model.Question, error) {
	attempt, err := authorizeAttempt(ctx, s.attempts, callerID, attemptID)
	if err != nil {
		return nil, err
	}
	q, err := s.questions.FirstUnanswered(ctx, attempt.ExamID, attemptID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return q, err
}

// latch scores and finalizes a draft. The oracle call happens before the
// compare-and-set write; if a concurrent finalize wins the race, its row is
// returned and this scoring run is discarded.
func (s *LedgerService) latch(ctx context.Context, q *model.Question, ans *model.Answer, finalText string, audioPath *string) (*FinalizeResult, error) {
	if ans.Finalized {
		return &FinalizeResult{Answer: ans, Question: q}, nil
	}

	text := strings.TrimSpace(finalText)
	similarity, points := s.score(ctx, q, text)

	latched, err := s.answers.Finalize(ctx, ans.AttemptID, q.ID, text, similarity, points, audioPath)
	if err == nil {
		return &FinalizeResult{Answer: latched, Question: q}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	existing, err := s.answers.Get(ctx, ans.AttemptID, q.ID)
	if err != nil {
		return nil, err
	}
	return &FinalizeResult{Answer: existing, Question: q}, nil
}

// score runs the similarity oracle and applies the scoring policy. Empty
// transcripts skip the oracle and score zero. Oracle failures also score zero
// so navigation keeps working while the provider is down.
func (s *LedgerService) score(ctx context.Context, q *model.Question, text string) (float64, int) {
	if text == "" {
		return 0, 0
	}
	similarity, err := s.similarity.Score(ctx, text, q.ExpectedAnswer)
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("question_id", q.ID.String()).
			Msg("similarity oracle failed, scoring zero")
		similarity = 0
	}
	return similarity, s.policy.AwardPoints(similarity, q.Points)
}

func (s *LedgerService) successor(ctx context.Context, q *model.Question) (*model.Question, error) {
	next, err := s.questions.NextAfter(ctx, q.ExamID, q.OrderNum)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return next, err
}
