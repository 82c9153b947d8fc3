package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/speakeval/speakeval-backend/internal/model"
)

type answerKey struct {
	attemptID  uuid.UUID
	questionID uuid.UUID
}

// memStore is an in-memory implementation of the service store interfaces
// with the same row-miss and latch semantics as the SQL repositories.
type memStore struct {
	mu        sync.Mutex
	answers   map[answerKey]*model.Answer
	questions map[uuid.UUID]*model.Question
	attempts  map[uuid.UUID]*model.ExamAttempt
	exams     map[uuid.UUID]*model.Exam
}

func newMemStore() *memStore {
	return &memStore{
		answers:   make(map[answerKey]*model.Answer),
		questions: make(map[uuid.UUID]*model.Question),
		attempts:  make(map[uuid.UUID]*model.ExamAttempt),
		exams:     make(map[uuid.UUID]*model.Exam),
	}
}

func (m *memStore) addExam(e model.Exam) *model.Exam {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	m.exams[e.ID] = &e
	return &e
}

func (m *memStore) addQuestion(q model.Question) *model.Question {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	m.questions[q.ID] = &q
	return &q
}

func (m *memStore) addAttempt(a model.ExamAttempt) *model.ExamAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.StartedAt.IsZero() {
		a.StartedAt = time.Now().UTC()
	}
	m.attempts[a.ID] = &a
	return &a
}

func copyAnswer(a *model.Answer) *model.Answer {
	cp := *a
	return &cp
}

func (m *memStore) Get(_ context.Context, attemptID, questionID uuid.UUID) (*model.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.answers[answerKey{attemptID, questionID}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return copyAnswer(a), nil
}

func (m *memStore) GetOrCreate(_ context.Context, attemptID, questionID uuid.UUID) (*model.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := answerKey{attemptID, questionID}
	if a, ok := m.answers[key]; ok {
		return copyAnswer(a), nil
	}
	a := &model.Answer{
		ID:         uuid.New(),
		AttemptID:  attemptID,
		QuestionID: questionID,
		CreatedAt:  time.Now().UTC(),
	}
	m.answers[key] = a
	return copyAnswer(a), nil
}

func (m *memStore) AppendFragment(_ context.Context, attemptID, questionID uuid.UUID, fragment string) (*model.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.answers[answerKey{attemptID, questionID}]
	if !ok || a.Finalized {
		return nil, pgx.ErrNoRows
	}
	if a.SpokenText == "" {
		a.SpokenText = strings.TrimSpace(fragment)
	} else {
		a.SpokenText = strings.TrimSpace(a.SpokenText + " " + fragment)
	}
	return copyAnswer(a), nil
}

func (m *memStore) Finalize(_ context.Context, attemptID, questionID uuid.UUID, text string, similarity float64, points int, audioPath *string) (*model.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.answers[answerKey{attemptID, questionID}]
	if !ok || a.Finalized {
		return nil, pgx.ErrNoRows
	}
	a.SpokenText = text
	a.SimilarityScore = &similarity
	a.PointsAwarded = &points
	if audioPath != nil {
		a.AudioPath = audioPath
	}
	a.Finalized = true
	return copyAnswer(a), nil
}

func (m *memStore) ListByAttempt(_ context.Context, attemptID uuid.UUID) ([]model.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Answer
	for key, a := range m.answers {
		if key.attemptID == attemptID {
			out = append(out, *copyAnswer(a))
		}
	}
	m.sortByQuestionOrder(out)
	return out, nil
}

func (m *memStore) ListFinalized(_ context.Context, attemptID uuid.UUID) ([]model.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Answer
	for key, a := range m.answers {
		if key.attemptID == attemptID && a.Finalized {
			out = append(out, *copyAnswer(a))
		}
	}
	m.sortByQuestionOrder(out)
	return out, nil
}

func (m *memStore) sortByQuestionOrder(answers []model.Answer) {
	sort.Slice(answers, func(i, j int) bool {
		return m.questions[answers[i].QuestionID].OrderNum < m.questions[answers[j].QuestionID].OrderNum
	})
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *q
	return &cp, nil
}

func (m *memStore) ListByExam(_ context.Context, examID uuid.UUID) ([]model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Question
	for _, q := range m.questions {
		if q.ExamID == examID {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNum < out[j].OrderNum })
	return out, nil
}

func (m *memStore) NextAfter(_ context.Context, examID uuid.UUID, orderNum int) (*model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var next *model.Question
	for _, q := range m.questions {
		if q.ExamID != examID || q.OrderNum <= orderNum {
			continue
		}
		if next == nil || q.OrderNum < next.OrderNum {
			next = q
		}
	}
	if next == nil {
		return nil, pgx.ErrNoRows
	}
	cp := *next
	return &cp, nil
}

func (m *memStore) FirstUnanswered(_ context.Context, examID, attemptID uuid.UUID) (*model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var first *model.Question
	for _, q := range m.questions {
		if q.ExamID != examID {
			continue
		}
		if a, ok := m.answers[answerKey{attemptID, q.ID}]; ok && a.Finalized {
			continue
		}
		if first == nil || q.OrderNum < first.OrderNum {
			first = q
		}
	}
	if first == nil {
		return nil, pgx.ErrNoRows
	}
	cp := *first
	return &cp, nil
}

// attemptStore adapts memStore to AttemptStore. A separate wrapper type keeps
// the two GetByID methods (questions vs attempts) from colliding.
type memAttemptStore struct{ m *memStore }

func (m *memStore) attemptStore() *memAttemptStore { return &memAttemptStore{m} }

func (s *memAttemptStore) GetByID(_ context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	a, ok := s.m.attempts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (s *memAttemptStore) Create(_ context.Context, a *model.ExamAttempt) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	a.ID = uuid.New()
	a.StartedAt = time.Now().UTC()
	cp := *a
	s.m.attempts[a.ID] = &cp
	return nil
}

func (s *memAttemptStore) Complete(_ context.Context, id uuid.UUID, totalScore int) (*model.ExamAttempt, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	a, ok := s.m.attempts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	now := time.Now().UTC()
	a.Status = model.AttemptStatusCompleted
	a.TotalScore = &totalScore
	a.CompletedAt = &now
	cp := *a
	return &cp, nil
}

// examStore adapts memStore to ExamStore.
type memExamStore struct{ m *memStore }

func (m *memStore) examStore() *memExamStore { return &memExamStore{m} }

func (s *memExamStore) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	e, ok := s.m.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

// fakeSimilarity is a scripted similarity oracle that records its calls.
type fakeSimilarity struct {
	mu    sync.Mutex
	score float64
	err   error
	calls int
}

func (f *fakeSimilarity) Score(_ context.Context, _, _ string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.score, nil
}

func (f *fakeSimilarity) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
