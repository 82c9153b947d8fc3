package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestQuestionSerialization(t *testing.T) {
	q := Question{
		ID:             uuid.New(),
		ExamID:         uuid.New(),
		QuestionText:   "What is the largest planet?",
		ExpectedAnswer: "Jupiter",
		Points:         10,
		OrderNum:       1,
	}

	t.Run("EducatorViewCarriesExpectedAnswer", func(t *testing.T) {
		raw, err := json.Marshal(q)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if !strings.Contains(string(raw), `"expected_answer":"Jupiter"`) {
			t.Errorf("expected_answer missing from %s", raw)
		}
	})

	t.Run("StudentViewStripsExpectedAnswer", func(t *testing.T) {
		raw, err := json.Marshal(q.ForStudent())
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if strings.Contains(string(raw), "Jupiter") || strings.Contains(string(raw), "expected_answer") {
			t.Errorf("expected answer leaked into student view: %s", raw)
		}
		if !strings.Contains(string(raw), `"question_text"`) {
			t.Errorf("question text missing from %s", raw)
		}
	})
}
