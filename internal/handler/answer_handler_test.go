package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/speakeval/speakeval-backend/internal/config"
	"github.com/speakeval/speakeval-backend/internal/middleware"
	"github.com/speakeval/speakeval-backend/internal/model"
	"github.com/speakeval/speakeval-backend/internal/service"
)

const testStudentID = 7

// ledgerData is the single (exam, question, attempt, answer) world shared by
// the store stubs below.
type ledgerData struct {
	exam     model.Exam
	question model.Question
	attempt  model.ExamAttempt
	answer   *model.Answer
}

func newLedgerData() *ledgerData {
	examID := uuid.New()
	return &ledgerData{
		exam: model.Exam{ID: examID, Title: "Astronomy basics", IsActive: true},
		question: model.Question{
			ID:             uuid.New(),
			ExamID:         examID,
			QuestionText:   "What is the largest planet?",
			ExpectedAnswer: "Jupiter",
			Points:         10,
			OrderNum:       1,
		},
		attempt: model.ExamAttempt{
			ID:        uuid.New(),
			ExamID:    examID,
			StudentID: testStudentID,
			Status:    model.AttemptStatusInProgress,
		},
	}
}

type stubAnswers struct{ d *ledgerData }

func (s *stubAnswers) Get(context.Context, uuid.UUID, uuid.UUID) (*model.Answer, error) {
	if s.d.answer == nil {
		return nil, pgx.ErrNoRows
	}
	cp := *s.d.answer
	return &cp, nil
}

func (s *stubAnswers) GetOrCreate(_ context.Context, attemptID, questionID uuid.UUID) (*model.Answer, error) {
	if s.d.answer == nil {
		s.d.answer = &model.Answer{ID: uuid.New(), AttemptID: attemptID, QuestionID: questionID}
	}
	cp := *s.d.answer
	return &cp, nil
}

func (s *stubAnswers) AppendFragment(context.Context, uuid.UUID, uuid.UUID, string) (*model.Answer, error) {
	if s.d.answer == nil || s.d.answer.Finalized {
		return nil, pgx.ErrNoRows
	}
	cp := *s.d.answer
	return &cp, nil
}

func (s *stubAnswers) Finalize(_ context.Context, _, _ uuid.UUID, text string, similarity float64, points int, audioPath *string) (*model.Answer, error) {
	if s.d.answer == nil || s.d.answer.Finalized {
		return nil, pgx.ErrNoRows
	}
	s.d.answer.SpokenText = text
	s.d.answer.SimilarityScore = &similarity
	s.d.answer.PointsAwarded = &points
	if audioPath != nil {
		s.d.answer.AudioPath = audioPath
	}
	s.d.answer.Finalized = true
	cp := *s.d.answer
	return &cp, nil
}

func (s *stubAnswers) ListByAttempt(context.Context, uuid.UUID) ([]model.Answer, error) {
	if s.d.answer == nil {
		return nil, nil
	}
	return []model.Answer{*s.d.answer}, nil
}

func (s *stubAnswers) ListFinalized(context.Context, uuid.UUID) ([]model.Answer, error) {
	if s.d.answer == nil || !s.d.answer.Finalized {
		return nil, nil
	}
	return []model.Answer{*s.d.answer}, nil
}

type stubQuestions struct{ d *ledgerData }

func (s *stubQuestions) GetByID(_ context.Context, id uuid.UUID) (*model.Question, error) {
	if id != s.d.question.ID {
		return nil, pgx.ErrNoRows
	}
	cp := s.d.question
	return &cp, nil
}

func (s *stubQuestions) ListByExam(context.Context, uuid.UUID) ([]model.Question, error) {
	return []model.Question{s.d.question}, nil
}

func (s *stubQuestions) NextAfter(context.Context, uuid.UUID, int) (*model.Question, error) {
	return nil, pgx.ErrNoRows
}

func (s *stubQuestions) FirstUnanswered(context.Context, uuid.UUID, uuid.UUID) (*model.Question, error) {
	if s.d.answer != nil && s.d.answer.Finalized {
		return nil, pgx.ErrNoRows
	}
	cp := s.d.question
	return &cp, nil
}

type stubAttempts struct{ d *ledgerData }

func (s *stubAttempts) GetByID(_ context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	if id != s.d.attempt.ID {
		return nil, pgx.ErrNoRows
	}
	cp := s.d.attempt
	return &cp, nil
}

func (s *stubAttempts) Create(_ context.Context, a *model.ExamAttempt) error {
	a.ID = uuid.New()
	return nil
}

func (s *stubAttempts) Complete(_ context.Context, _ uuid.UUID, totalScore int) (*model.ExamAttempt, error) {
	s.d.attempt.Status = model.AttemptStatusCompleted
	s.d.attempt.TotalScore = &totalScore
	cp := s.d.attempt
	return &cp, nil
}

type stubExams struct{ d *ledgerData }

func (s *stubExams) GetByID(context.Context, uuid.UUID) (*model.Exam, error) {
	cp := s.d.exam
	return &cp, nil
}

type stubSimilarity struct{ score float64 }

func (s *stubSimilarity) Score(context.Context, string, string) (float64, error) {
	return s.score, nil
}

// stubTranscriber returns a scripted transcript for any audio file.
type stubTranscriber struct {
	text string
	err  error
}

func (s *stubTranscriber) Transcribe(context.Context, string) (string, error) {
	return s.text, s.err
}

type submitFixture struct {
	data      *ledgerData
	handler   *AnswerHandler
	router    *gin.Engine
	uploadDir string
}

func newSubmitFixture(t *testing.T, transcriber *stubTranscriber) *submitFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	d := newLedgerData()
	answers := &stubAnswers{d}
	questions := &stubQuestions{d}
	attempts := &stubAttempts{d}
	exams := &stubExams{d}

	log := zerolog.Nop()
	policy := service.NewScoringPolicy(0.8)
	ledger := service.NewLedgerService(answers, questions, attempts, &stubSimilarity{score: 0.95}, policy, log)
	attemptService := service.NewAttemptService(attempts, answers, questions, exams, nil, log)
	dispatcher := service.NewCommandDispatcher(ledger, attemptService)

	uploadDir := t.TempDir()
	cfg := &config.Config{UploadDir: uploadDir, MaxUploadBytes: 1 << 20}
	audio := service.NewAudioService(cfg)

	var h *AnswerHandler
	if transcriber != nil {
		h = NewAnswerHandler(ledger, attemptService, dispatcher, audio, transcriber, log)
	} else {
		h = NewAnswerHandler(ledger, attemptService, dispatcher, audio, nil, log)
	}

	router := gin.New()
	router.POST("/api/v1/answers/submit", func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, &service.Claims{UserID: testStudentID, Role: model.RoleStudent})
		h.SubmitAudio(c)
	})

	return &submitFixture{data: d, handler: h, router: router, uploadDir: uploadDir}
}

func (f *submitFixture) submit(t *testing.T) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("attempt_id", f.data.attempt.ID.String())
	mw.WriteField("question_id", f.data.question.ID.String())

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="audio"; filename="clip.wav"`)
	hdr.Set("Content-Type", "audio/wav")
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write([]byte("RIFF fake audio payload"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/answers/submit", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestSubmitAudio(t *testing.T) {
	t.Run("TranscribedAudioFinalizes", func(t *testing.T) {
		f := newSubmitFixture(t, &stubTranscriber{text: "Jupiter"})

		w := f.submit(t)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		ans := f.data.answer
		if ans == nil || !ans.Finalized {
			t.Fatal("answer should be finalized")
		}
		if ans.SpokenText != "Jupiter" {
			t.Errorf("spoken_text = %q", ans.SpokenText)
		}
		if ans.PointsAwarded == nil || *ans.PointsAwarded != 10 {
			t.Errorf("points = %v, want 10", ans.PointsAwarded)
		}
		if ans.AudioPath == nil {
			t.Error("audio path should be stored")
		}
	})

	t.Run("SilentAudioLeavesQuestionOpen", func(t *testing.T) {
		f := newSubmitFixture(t, &stubTranscriber{text: ""})

		w := f.submit(t)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400, body %s", w.Code, w.Body.String())
		}
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Error.Code != "TRANSCRIPTION_FAILED" {
			t.Errorf("code = %q, want TRANSCRIPTION_FAILED", body.Error.Code)
		}
		if f.data.answer != nil && f.data.answer.Finalized {
			t.Fatal("silent audio must not finalize the answer")
		}

		// The question stays open: a follow-up recording with speech succeeds.
		f.handler.transcriber = &stubTranscriber{text: "Jupiter"}
		w = f.submit(t)
		if w.Code != http.StatusOK {
			t.Fatalf("resubmission status = %d, body %s", w.Code, w.Body.String())
		}
		if f.data.answer == nil || !f.data.answer.Finalized {
			t.Fatal("resubmission should finalize the answer")
		}
	})

	t.Run("NoProviderWritesNothing", func(t *testing.T) {
		f := newSubmitFixture(t, nil)

		w := f.submit(t)
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", w.Code)
		}
		entries, err := os.ReadDir(f.uploadDir)
		if err != nil {
			t.Fatalf("read upload dir: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("upload dir has %d files, want none", len(entries))
		}
		if f.data.answer != nil {
			t.Error("no answer row should exist")
		}
	})
}
