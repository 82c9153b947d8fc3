package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/speakeval/speakeval-backend/internal/model"
)

const testStudentID = 7

type fixture struct {
	store    *memStore
	sim      *fakeSimilarity
	ledger   *LedgerService
	attempts *AttemptService
	exam     *model.Exam
	q1       *model.Question
	q2       *model.Question
	q3       *model.Question
	attempt  *model.ExamAttempt
}

func newFixture() *fixture {
	store := newMemStore()
	exam := store.addExam(model.Exam{
		Title:           "Astronomy basics",
		EducatorID:      1,
		DurationMinutes: 30,
		IsActive:        true,
	})
	q1 := store.addQuestion(model.Question{
		ExamID: exam.ID, QuestionText: "What is the largest planet?",
		ExpectedAnswer: "Jupiter", Points: 10, OrderNum: 1,
	})
	q2 := store.addQuestion(model.Question{
		ExamID: exam.ID, QuestionText: "What is the capital of France?",
		ExpectedAnswer: "Paris", Points: 5, OrderNum: 2,
	})
	q3 := store.addQuestion(model.Question{
		ExamID: exam.ID, QuestionText: "What gas do plants absorb?",
		ExpectedAnswer: "Carbon dioxide", Points: 10, OrderNum: 3,
	})
	attempt := store.addAttempt(model.ExamAttempt{
		ExamID: exam.ID, StudentID: testStudentID, Status: model.AttemptStatusInProgress,
	})

	sim := &fakeSimilarity{score: 0.9}
	policy := NewScoringPolicy(0.8)
	log := zerolog.Nop()

	return &fixture{
		store:    store,
		sim:      sim,
		ledger:   NewLedgerService(store, store, store.attemptStore(), sim, policy, log),
		attempts: NewAttemptService(store.attemptStore(), store, store, store.examStore(), nil, log),
		exam:     exam,
		q1:       q1,
		q2:       q2,
		q3:       q3,
		attempt:  attempt,
	}
}

func TestGetOrCreateDraft(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	t.Run("CreatesEmptyDraft", func(t *testing.T) {
		ans, err := f.ledger.GetOrCreateDraft(ctx, testStudentID, f.attempt.ID, f.q1.ID)
		if err != nil {
			t.Fatalf("GetOrCreateDraft: %v", err)
		}
		if ans.Finalized || ans.SpokenText != "" {
			t.Errorf("expected empty draft, got finalized=%v text=%q", ans.Finalized, ans.SpokenText)
		}
	})

	t.Run("SecondCallReturnsSameRow", func(t *testing.T) {
		first, err := f.ledger.GetOrCreateDraft(ctx, testStudentID, f.attempt.ID, f.q1.ID)
		if err != nil {
			t.Fatalf("GetOrCreateDraft: %v", err)
		}
		second, err := f.ledger.GetOrCreateDraft(ctx, testStudentID, f.attempt.ID, f.q1.ID)
		if err != nil {
			t.Fatalf("GetOrCreateDraft: %v", err)
		}
		if first.ID != second.ID {
			t.Errorf("expected one row, got %s and %s", first.ID, second.ID)
		}
	})

	t.Run("ForeignAttemptDenied", func(t *testing.T) {
		if _, err := f.ledger.GetOrCreateDraft(ctx, 999, f.attempt.ID, f.q1.ID); !errors.Is(err, ErrAccessDenied) {
			t.Errorf("expected ErrAccessDenied, got %v", err)
		}
	})

	t.Run("QuestionFromOtherExamIsNotFound", func(t *testing.T) {
		other := f.store.addExam(model.Exam{Title: "Other", EducatorID: 1, DurationMinutes: 10, IsActive: true})
		foreign := f.store.addQuestion(model.Question{
			ExamID: other.ID, QuestionText: "x", ExpectedAnswer: "y", Points: 1, OrderNum: 1,
		})
		if _, err := f.ledger.GetOrCreateDraft(ctx, testStudentID, f.attempt.ID, foreign.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestAppendFragment(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	t.Run("AccumulatesWithSingleSpaces", func(t *testing.T) {
		if _, err := f.ledger.AppendFragment(ctx, testStudentID, f.attempt.ID, f.q1.ID, "the largest"); err != nil {
			t.Fatalf("AppendFragment: %v", err)
		}
		ans, err := f.ledger.AppendFragment(ctx, testStudentID, f.attempt.ID, f.q1.ID, "planet is Jupiter")
		if err != nil {
			t.Fatalf("AppendFragment: %v", err)
		}
		if ans.SpokenText != "the largest planet is Jupiter" {
			t.Errorf("unexpected transcript: %q", ans.SpokenText)
		}
	})

	t.Run("FinalizedRejectsAppend", func(t *testing.T) {
		if _, err := f.ledger.Skip(ctx, testStudentID, f.attempt.ID, f.q2.ID); err != nil {
			t.Fatalf("Skip: %v", err)
		}
		if _, err := f.ledger.AppendFragment(ctx, testStudentID, f.attempt.ID, f.q2.ID, "too late"); !errors.Is(err, ErrAnswerFinalized) {
			t.Errorf("expected ErrAnswerFinalized, got %v", err)
		}
	})
}

func TestFinalize(t *testing.T) {
	ctx := context.Background()

	t.Run("AboveThresholdAwardsFullPoints", func(t *testing.T) {
		f := newFixture()
		f.sim.score = 0.92
		res, err := f.ledger.Finalize(ctx, testStudentID, f.attempt.ID, f.q1.ID, "it is Jupiter", nil)
		if err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		if !res.Answer.Finalized {
			t.Fatal("answer not finalized")
		}
		if got := *res.Answer.PointsAwarded; got != f.q1.Points {
			t.Errorf("points = %d, want %d", got, f.q1.Points)
		}
		if got := *res.Answer.SimilarityScore; got != 0.92 {
			t.Errorf("similarity = %v, want 0.92", got)
		}
	})

	t.Run("BelowThresholdAwardsZero", func(t *testing.T) {
		f := newFixture()
		f.sim.score = 0.5
		res, err := f.ledger.Finalize(ctx, testStudentID, f.attempt.ID, f.q1.ID, "it is Saturn", nil)
		if err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		if got := *res.Answer.PointsAwarded; got != 0 {
			t.Errorf("points = %d, want 0", got)
		}
	})

	t.Run("EmptyTextSkipsOracle", func(t *testing.T) {
		f := newFixture()
		res, err := f.ledger.Finalize(ctx, testStudentID, f.attempt.ID, f.q1.ID, "   ", nil)
		if err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		if f.sim.callCount() != 0 {
			t.Errorf("oracle called %d times for empty text", f.sim.callCount())
		}
		if *res.Answer.SimilarityScore != 0 || *res.Answer.PointsAwarded != 0 {
			t.Errorf("expected zero score, got sim=%v points=%d", *res.Answer.SimilarityScore, *res.Answer.PointsAwarded)
		}
	})

	t.Run("SecondFinalizeIsNoOp", func(t *testing.T) {
		f := newFixture()
		f.sim.score = 0.92
		first, err := f.ledger.Finalize(ctx, testStudentID, f.attempt.ID, f.q1.ID, "it is Jupiter", nil)
		if err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		second, err := f.ledger.Finalize(ctx, testStudentID, f.attempt.ID, f.q1.ID, "completely different", nil)
		if err != nil {
			t.Fatalf("second Finalize: %v", err)
		}
		if second.Answer.SpokenText != first.Answer.SpokenText {
			t.Errorf("transcript rewritten to %q", second.Answer.SpokenText)
		}
		if f.sim.callCount() != 1 {
			t.Errorf("oracle called %d times, want 1", f.sim.callCount())
		}
	})

	t.Run("OracleFailureScoresZeroButLatches", func(t *testing.T) {
		f := newFixture()
		f.sim.err = errors.New("provider down")
		res, err := f.ledger.Finalize(ctx, testStudentID, f.attempt.ID, f.q1.ID, "it is Jupiter", nil)
		if err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		if !res.Answer.Finalized {
			t.Fatal("answer not finalized")
		}
		if *res.Answer.PointsAwarded != 0 || *res.Answer.SimilarityScore != 0 {
			t.Errorf("expected zero score on oracle failure, got sim=%v points=%d",
				*res.Answer.SimilarityScore, *res.Answer.PointsAwarded)
		}
	})
}

func TestSkip(t *testing.T) {
	ctx := context.Background()

	t.Run("LatchesEmptyAndReturnsSuccessor", func(t *testing.T) {
		f := newFixture()
		res, err := f.ledger.Skip(ctx, testStudentID, f.attempt.ID, f.q1.ID)
		if err != nil {
			t.Fatalf("Skip: %v", err)
		}
		if !res.Answer.Finalized || res.Answer.SpokenText != "" {
			t.Errorf("expected finalized empty answer, got finalized=%v text=%q", res.Answer.Finalized, res.Answer.SpokenText)
		}
		if *res.Answer.PointsAwarded != 0 {
			t.Errorf("points = %d, want 0", *res.Answer.PointsAwarded)
		}
		if res.Next == nil || res.Next.ID != f.q2.ID {
			t.Errorf("expected successor %s, got %+v", f.q2.ID, res.Next)
		}
		if f.sim.callCount() != 0 {
			t.Errorf("oracle called %d times on skip", f.sim.callCount())
		}
	})

	t.Run("LastQuestionHasNoSuccessor", func(t *testing.T) {
		f := newFixture()
		res, err := f.ledger.Skip(ctx, testStudentID, f.attempt.ID, f.q3.ID)
		if err != nil {
			t.Fatalf("Skip: %v", err)
		}
		if res.Next != nil {
			t.Errorf("expected nil successor, got %v", res.Next.ID)
		}
	})

	t.Run("SkipAfterFinalizeStillNavigates", func(t *testing.T) {
		f := newFixture()
		if _, err := f.ledger.Finalize(ctx, testStudentID, f.attempt.ID, f.q1.ID, "it is Jupiter", nil); err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		res, err := f.ledger.Skip(ctx, testStudentID, f.attempt.ID, f.q1.ID)
		if err != nil {
			t.Fatalf("Skip: %v", err)
		}
		if res.Answer.SpokenText != "it is Jupiter" {
			t.Errorf("stored transcript overwritten: %q", res.Answer.SpokenText)
		}
		if res.Next == nil || res.Next.ID != f.q2.ID {
			t.Errorf("expected successor %s", f.q2.ID)
		}
	})
}

func TestMoveNext(t *testing.T) {
	ctx := context.Background()

	t.Run("UsesDraftWhenNoTextProvided", func(t *testing.T) {
		f := newFixture()
		f.sim.score = 0.9
		if _, err := f.ledger.AppendFragment(ctx, testStudentID, f.attempt.ID, f.q1.ID, "it is Jupiter"); err != nil {
			t.Fatalf("AppendFragment: %v", err)
		}
		res, err := f.ledger.MoveNext(ctx, testStudentID, f.attempt.ID, f.q1.ID, nil)
		if err != nil {
			t.Fatalf("MoveNext: %v", err)
		}
		if res.Answer.SpokenText != "it is Jupiter" {
			t.Errorf("transcript = %q, want draft text", res.Answer.SpokenText)
		}
		if *res.Answer.PointsAwarded != f.q1.Points {
			t.Errorf("points = %d, want %d", *res.Answer.PointsAwarded, f.q1.Points)
		}
	})

	t.Run("ProvidedTextOverridesDraft", func(t *testing.T) {
		f := newFixture()
		if _, err := f.ledger.AppendFragment(ctx, testStudentID, f.attempt.ID, f.q1.ID, "draft words"); err != nil {
			t.Fatalf("AppendFragment: %v", err)
		}
		provided := "  the final answer  "
		res, err := f.ledger.MoveNext(ctx, testStudentID, f.attempt.ID, f.q1.ID, &provided)
		if err != nil {
			t.Fatalf("MoveNext: %v", err)
		}
		if res.Answer.SpokenText != "the final answer" {
			t.Errorf("transcript = %q, want trimmed provided text", res.Answer.SpokenText)
		}
	})

	t.Run("FinalizedQuestionJustNavigates", func(t *testing.T) {
		f := newFixture()
		if _, err := f.ledger.Finalize(ctx, testStudentID, f.attempt.ID, f.q1.ID, "it is Jupiter", nil); err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		provided := "should be ignored"
		res, err := f.ledger.MoveNext(ctx, testStudentID, f.attempt.ID, f.q1.ID, &provided)
		if err != nil {
			t.Fatalf("MoveNext: %v", err)
		}
		if res.Answer.SpokenText != "it is Jupiter" {
			t.Errorf("stored transcript overwritten: %q", res.Answer.SpokenText)
		}
		if res.Next == nil || res.Next.ID != f.q2.ID {
			t.Errorf("expected successor %s", f.q2.ID)
		}
	})
}

func TestNextUnanswered(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	t.Run("StartsAtFirstQuestion", func(t *testing.T) {
		q, err := f.ledger.NextUnanswered(ctx, testStudentID, f.attempt.ID)
		if err != nil {
			t.Fatalf("NextUnanswered: %v", err)
		}
		if q == nil || q.ID != f.q1.ID {
			t.Errorf("expected first question, got %+v", q)
		}
	})

	t.Run("DraftsDoNotCount", func(t *testing.T) {
		if _, err := f.ledger.AppendFragment(ctx, testStudentID, f.attempt.ID, f.q1.ID, "partial"); err != nil {
			t.Fatalf("AppendFragment: %v", err)
		}
		q, err := f.ledger.NextUnanswered(ctx, testStudentID, f.attempt.ID)
		if err != nil {
			t.Fatalf("NextUnanswered: %v", err)
		}
		if q == nil || q.ID != f.q1.ID {
			t.Errorf("draft should not count as answered, got %+v", q)
		}
	})

	t.Run("SkipsFinalizedGaps", func(t *testing.T) {
		if _, err := f.ledger.Skip(ctx, testStudentID, f.attempt.ID, f.q2.ID); err != nil {
			t.Fatalf("Skip: %v", err)
		}
		q, err := f.ledger.NextUnanswered(ctx, testStudentID, f.attempt.ID)
		if err != nil {
			t.Fatalf("NextUnanswered: %v", err)
		}
		if q == nil || q.ID != f.q1.ID {
			t.Errorf("expected first unfinalized question, got %+v", q)
		}
	})

	t.Run("NilWhenAllFinalized", func(t *testing.T) {
		for _, id := range []*model.Question{f.q1, f.q3} {
			if _, err := f.ledger.Skip(ctx, testStudentID, f.attempt.ID, id.ID); err != nil {
				t.Fatalf("Skip: %v", err)
			}
		}
		q, err := f.ledger.NextUnanswered(ctx, testStudentID, f.attempt.ID)
		if err != nil {
			t.Fatalf("NextUnanswered: %v", err)
		}
		if q != nil {
			t.Errorf("expected nil, got %v", q.ID)
		}
	})
}
