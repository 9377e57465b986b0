package store

import (
	"strings"

	"radbank/backend/models"

	"github.com/google/uuid"
)

// ValidateQuestion checks every field of a question row and its answers.
// Having more than one correct answer is allowed.
func ValidateQuestion(q models.Question) error {
	var errs ValidationErrors
	if strings.TrimSpace(q.QuestionText) == "" {
		errs = append(errs, &ValidationError{Field: "question_text", Message: "is required"})
	}
	if !q.Category.Valid() {
		errs = append(errs, &ValidationError{Field: "category", Message: "unknown category " + string(q.Category)})
	}
	if !q.Difficulty.Valid() {
		errs = append(errs, &ValidationError{Field: "difficulty", Message: "unknown difficulty " + string(q.Difficulty)})
	}
	if !q.Type.Valid() {
		errs = append(errs, &ValidationError{Field: "type", Message: "unknown type " + string(q.Type)})
	}

	if len(q.Answers) == 0 {
		errs = append(errs, &ValidationError{Field: "answers", Message: "at least one answer is required"})
		return errs
	}
	correct := 0
	for _, a := range q.Answers {
		if strings.TrimSpace(a.AnswerText) == "" {
			errs = append(errs, &ValidationError{Field: "answers", Message: "answer text is required"})
			break
		}
		if q.ID != uuid.Nil && a.QuestionID != uuid.Nil && a.QuestionID != q.ID {
			errs = append(errs, &ValidationError{Field: "answers", Message: "answer belongs to another question"})
			break
		}
		if a.IsCorrect {
			correct++
		}
	}
	if correct == 0 {
		errs = append(errs, &ValidationError{Field: "correct_answer", Message: "one answer must be marked correct"})
	}
	return errs.OrNil()
}
