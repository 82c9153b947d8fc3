package model

import "github.com/google/uuid"

// Question represents a single spoken-exam question. OrderNum is dense and
// 1-based within an exam; it defines the navigation sequence. The full struct
// is serialized only on educator-facing responses; student-facing code must
// go through ForStudent.
type Question struct {
	ID             uuid.UUID `json:"id"`
	ExamID         uuid.UUID `json:"exam_id"`
	QuestionText   string    `json:"question_text"`
	ExpectedAnswer string    `json:"expected_answer"`
	Points         int       `json:"points"`
	OrderNum       int       `json:"order"`
}

// QuestionForStudent is a question as served to a test taker. The expected
// answer never leaves the server.
type QuestionForStudent struct {
	ID           uuid.UUID `json:"id"`
	QuestionText string    `json:"question_text"`
	Points       int       `json:"points"`
	OrderNum     int       `json:"order"`
}

// ForStudent strips the expected answer from a question.
func (q *Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		ID:           q.ID,
		QuestionText: q.QuestionText,
		Points:       q.Points,
		OrderNum:     q.OrderNum,
	}
}
