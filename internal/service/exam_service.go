package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/speakeval/speakeval-backend/internal/model"
	"github.com/speakeval/speakeval-backend/internal/repository"
)

// defaultQuestionPoints is used when a question omits its point value.
const defaultQuestionPoints = 10

// ExamService handles exam authoring and catalog queries.
type ExamService struct {
	exams     *repository.ExamRepository
	questions *repository.QuestionRepository
	log       zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(exams *repository.ExamRepository, questions *repository.QuestionRepository, log zerolog.Logger) *ExamService {
	return &ExamService{exams: exams, questions: questions, log: log}
}

// Create inserts an exam with its questions. Order is assigned from slice
// position; client-supplied ordering is ignored.
func (s *ExamService) Create(ctx context.Context, educatorID int, req *model.CreateExamRequest) (*model.Exam, []model.Question, error) {
	exam := &model.Exam{
		Title:           req.Title,
		Description:     req.Description,
		EducatorID:      educatorID,
		DurationMinutes: req.DurationMinutes,
	}

	questions := make([]model.Question, 0, len(req.Questions))
	for _, qr := range req.Questions {
		points := qr.Points
		if points == 0 {
			points = defaultQuestionPoints
		}
		questions = append(questions, model.Question{
			QuestionText:   qr.QuestionText,
			ExpectedAnswer: qr.ExpectedAnswer,
			Points:         points,
		})
	}

	if err := s.exams.CreateWithQuestions(ctx, exam, questions); err != nil {
		return nil, nil, err
	}

	s.log.Info().
		Str("exam_id", exam.ID.String()).
		Int("educator_id", educatorID).
		Int("questions", len(questions)).
		Msg("exam created")
	return exam, questions, nil
}

// ListForUser returns the role-scoped exam catalog: educators see their own
// exams, students see the active catalog.
func (s *ExamService) ListForUser(ctx context.Context, userID int, role model.Role) ([]model.Exam, error) {
	if role == model.RoleEducator {
		return s.exams.ListByEducator(ctx, userID)
	}
	return s.exams.ListActive(ctx)
}

// Detail returns an exam with its questions. Educators may only see their own
// exams; students only see active ones, and inactive exams read as not found.
func (s *ExamService) Detail(ctx context.Context, callerID int, role model.Role, examID uuid.UUID) (*model.Exam, []model.Question, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, nil, mapNoRows(err)
	}

	if role == model.RoleEducator {
		if exam.EducatorID != callerID {
			return nil, nil, ErrAccessDenied
		}
	} else if !exam.IsActive {
		return nil, nil, ErrNotFound
	}

	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return nil, nil, err
	}
	return exam, questions, nil
}

// OwnsExam reports whether the educator authored the exam.
func (s *ExamService) OwnsExam(ctx context.Context, educatorID int, examID uuid.UUID) (bool, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return false, mapNoRows(err)
	}
	return exam.EducatorID == educatorID, nil
}
