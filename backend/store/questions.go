package store

import (
	"context"
	"log"

	"radbank/backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuestionFilter narrows Fetch. Zero values impose no constraint. A non-nil
// IDs restricts the result to those identifiers, so an empty non-nil slice
// matches nothing.
type QuestionFilter struct {
	Category   models.Category
	Difficulty models.Difficulty
	Type       models.QuestionType
	IDs        []uuid.UUID
}

func (f QuestionFilter) Validate() error {
	var errs ValidationErrors
	if f.Category != "" && !f.Category.Valid() {
		errs = append(errs, &ValidationError{Field: "category", Message: "unknown category " + string(f.Category)})
	}
	if f.Difficulty != "" && !f.Difficulty.Valid() {
		errs = append(errs, &ValidationError{Field: "difficulty", Message: "unknown difficulty " + string(f.Difficulty)})
	}
	if f.Type != "" && !f.Type.Valid() {
		errs = append(errs, &ValidationError{Field: "type", Message: "unknown type " + string(f.Type)})
	}
	return errs.OrNil()
}

type QuestionStore struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewQuestionStore(db *gorm.DB, logger *log.Logger) *QuestionStore {
	return &QuestionStore{DB: db, Logger: logger}
}

// Fetch returns the questions matching f, each with its answers. Rows that
// fail validation are logged and left out.
func (s *QuestionStore) Fetch(ctx context.Context, f QuestionFilter) ([]models.Question, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if f.IDs != nil && len(f.IDs) == 0 {
		return []models.Question{}, nil
	}

	query := s.DB.WithContext(ctx).Model(&models.Question{}).Preload("Answers")
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.Difficulty != "" {
		query = query.Where("difficulty = ?", f.Difficulty)
	}
	if f.Type != "" {
		query = query.Where("type = ?", f.Type)
	}
	if f.IDs != nil {
		query = query.Where("id IN ?", f.IDs)
	}

	var rows []models.Question
	if err := query.Find(&rows).Error; err != nil {
		return nil, queryErr("questions", err)
	}

	out := make([]models.Question, 0, len(rows))
	for _, q := range rows {
		if err := ValidateQuestion(q); err != nil {
			s.Logger.Printf("skipping question %s: %v", q.ID, err)
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// List returns one page of questions, newest first, plus the total count.
func (s *QuestionStore) List(ctx context.Context, f QuestionFilter, page, pageSize int) ([]models.Question, int64, error) {
	if err := f.Validate(); err != nil {
		return nil, 0, err
	}

	query := s.DB.WithContext(ctx).Model(&models.Question{})
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.Difficulty != "" {
		query = query.Where("difficulty = ?", f.Difficulty)
	}
	if f.Type != "" {
		query = query.Where("type = ?", f.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, queryErr("count questions", err)
	}

	var rows []models.Question
	err := query.Preload("Answers").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, queryErr("list questions", err)
	}
	return rows, total, nil
}

func (s *QuestionStore) Get(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	var q models.Question
	if err := s.DB.WithContext(ctx).Preload("Answers").First(&q, "id = ?", id).Error; err != nil {
		return nil, queryErr("question", err)
	}
	return &q, nil
}

// QuestionInput is the admin write shape of a question and its answers.
type QuestionInput struct {
	QuestionText        string              `json:"question_text" validate:"required"`
	ImageURL            *string             `json:"image_url" validate:"omitempty,url"`
	Explanation         string              `json:"explanation"`
	ExplanationImageURL *string             `json:"explanation_image_url" validate:"omitempty,url"`
	Category            models.Category     `json:"category" validate:"required"`
	Difficulty          models.Difficulty   `json:"difficulty" validate:"required"`
	Type                models.QuestionType `json:"type" validate:"required"`
	Answers             []AnswerInput       `json:"answers" validate:"required,min=2,dive"`
}

// AnswerInput carries the id of an existing answer when an update edits it
// in place. Without an id the answer is matched by text, or inserted.
type AnswerInput struct {
	ID         *uuid.UUID `json:"id,omitempty"`
	AnswerText string     `json:"answer_text" validate:"required"`
	IsCorrect  bool       `json:"is_correct"`
}

func (in QuestionInput) answers(questionID uuid.UUID) []models.Answer {
	out := make([]models.Answer, len(in.Answers))
	for i, a := range in.Answers {
		out[i] = models.Answer{QuestionID: questionID, AnswerText: a.AnswerText, IsCorrect: a.IsCorrect}
	}
	return out
}

// mergeAnswers lays the input answers over the stored ones. Matched answers
// keep their ids so recorded quiz answers stay valid; unmatched inputs come
// back with a nil id.
func (in QuestionInput) mergeAnswers(questionID uuid.UUID, stored []models.Answer) ([]models.Answer, error) {
	byID := make(map[uuid.UUID]models.Answer, len(stored))
	for _, a := range stored {
		byID[a.ID] = a
	}
	claimed := make(map[uuid.UUID]bool, len(stored))

	var errs ValidationErrors
	out := make([]models.Answer, len(in.Answers))
	for i, a := range in.Answers {
		out[i] = models.Answer{QuestionID: questionID, AnswerText: a.AnswerText, IsCorrect: a.IsCorrect}
		if a.ID == nil {
			continue
		}
		existing, ok := byID[*a.ID]
		switch {
		case !ok:
			errs = append(errs, &ValidationError{Field: "answers", Message: "unknown answer id " + a.ID.String()})
		case claimed[existing.ID]:
			errs = append(errs, &ValidationError{Field: "answers", Message: "duplicate answer id " + a.ID.String()})
		default:
			claimed[existing.ID] = true
			out[i].Base = existing.Base
		}
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].ID != uuid.Nil || in.Answers[i].ID != nil {
			continue
		}
		for _, a := range stored {
			if !claimed[a.ID] && a.AnswerText == out[i].AnswerText {
				claimed[a.ID] = true
				out[i].Base = a.Base
				break
			}
		}
	}
	return out, nil
}

func (in QuestionInput) apply(q *models.Question) {
	q.QuestionText = in.QuestionText
	q.ImageURL = in.ImageURL
	q.Explanation = in.Explanation
	q.ExplanationImageURL = in.ExplanationImageURL
	q.Category = in.Category
	q.Difficulty = in.Difficulty
	q.Type = in.Type
}

func (s *QuestionStore) Create(ctx context.Context, in QuestionInput) (*models.Question, error) {
	q := &models.Question{}
	in.apply(q)
	q.Answers = in.answers(uuid.Nil)
	if err := ValidateQuestion(*q); err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Create(q).Error; err != nil {
		return nil, persistErr("create question", err)
	}
	return q, nil
}

// Update overwrites the question's fields and reconciles its answer set:
// matched answers are edited in place, new ones inserted and the rest removed.
func (s *QuestionStore) Update(ctx context.Context, id uuid.UUID, in QuestionInput) (*models.Question, error) {
	var q models.Question
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Answers").First(&q, "id = ?", id).Error; err != nil {
			return queryErr("question", err)
		}
		answers, err := in.mergeAnswers(q.ID, q.Answers)
		if err != nil {
			return err
		}
		in.apply(&q)
		q.Answers = answers
		if err := ValidateQuestion(q); err != nil {
			return err
		}

		if err := tx.Omit("Answers").Save(&q).Error; err != nil {
			return err
		}

		var kept []uuid.UUID
		for _, a := range q.Answers {
			if a.ID != uuid.Nil {
				kept = append(kept, a.ID)
			}
		}
		removed := tx.Where("question_id = ?", q.ID)
		if len(kept) > 0 {
			removed = removed.Where("id NOT IN ?", kept)
		}
		if err := removed.Delete(&models.Answer{}).Error; err != nil {
			return err
		}

		for i := range q.Answers {
			a := &q.Answers[i]
			if a.ID == uuid.Nil {
				if err := tx.Create(a).Error; err != nil {
					return err
				}
				continue
			}
			err := tx.Model(a).Updates(map[string]any{
				"answer_text": a.AnswerText,
				"is_correct":  a.IsCorrect,
			}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, persistErr("update question", err)
	}
	return &q, nil
}

func (s *QuestionStore) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.deleteIDs(ctx, []uuid.UUID{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMany removes every listed question and reports how many existed.
func (s *QuestionStore) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.deleteIDs(ctx, ids)
}

// deleteIDs removes questions with their answers and progress rows. Quiz
// history keeps its rows; results simply skip questions that are gone.
func (s *QuestionStore) deleteIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	var deleted int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id IN ?", ids).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("question_id IN ?", ids).Delete(&models.UserProgress{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&models.Question{})
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, persistErr("delete questions", err)
	}
	return deleted, nil
}
