package controllers

import (
	"strconv"
	"time"

	"radbank/backend/models"
	"radbank/backend/quiz"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// QuestionView is a question as shown before it is answered: no correct
// flags and no explanation.
type QuestionView struct {
	ID           uuid.UUID           `json:"id"`
	QuestionText string              `json:"question_text"`
	ImageURL     *string             `json:"image_url,omitempty"`
	Category     models.Category     `json:"category"`
	Difficulty   models.Difficulty   `json:"difficulty"`
	Type         models.QuestionType `json:"type"`
	Answers      []AnswerView        `json:"answers"`
}

type AnswerView struct {
	ID         uuid.UUID `json:"id"`
	AnswerText string    `json:"answer_text"`
}

func newQuestionView(q models.Question) QuestionView {
	v := QuestionView{
		ID:           q.ID,
		QuestionText: q.QuestionText,
		ImageURL:     q.ImageURL,
		Category:     q.Category,
		Difficulty:   q.Difficulty,
		Type:         q.Type,
		Answers:      make([]AnswerView, len(q.Answers)),
	}
	for i, a := range q.Answers {
		v.Answers[i] = AnswerView{ID: a.ID, AnswerText: a.AnswerText}
	}
	return v
}

func newQuestionViews(qs []models.Question) []QuestionView {
	out := make([]QuestionView, len(qs))
	for i, q := range qs {
		out[i] = newQuestionView(q)
	}
	return out
}

// SessionView is the client's picture of a running quiz.
type SessionView struct {
	QuizID           uuid.UUID     `json:"quiz_id"`
	State            quiz.State    `json:"state"`
	TotalQuestions   int           `json:"total_questions"`
	QuestionCount    int           `json:"question_count"`
	CurrentIndex     int           `json:"current_index"`
	CurrentQuestion  *QuestionView `json:"current_question,omitempty"`
	ExpiresAt        *time.Time    `json:"expires_at,omitempty"`
	RemainingSeconds *int          `json:"remaining_seconds,omitempty"`
}

func newSessionView(s *quiz.Session, now time.Time) SessionView {
	v := SessionView{
		QuizID:         s.QuizID,
		State:          s.State,
		TotalQuestions: s.TotalQuestions,
		QuestionCount:  len(s.Questions),
		CurrentIndex:   s.CurrentIndex,
		ExpiresAt:      s.ExpiresAt,
	}
	if q, ok := s.Current(); ok {
		qv := newQuestionView(q)
		v.CurrentQuestion = &qv
	}
	if left, timed := s.RemainingSeconds(now); timed {
		v.RemainingSeconds = &left
	}
	return v
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

func pageParams(c *fiber.Ctx) (int, int) {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
