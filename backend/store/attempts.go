package store

import (
	"context"
	"time"

	"radbank/backend/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AttemptStore struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewAttemptStore(db *gorm.DB) *AttemptStore {
	return &AttemptStore{DB: db, Now: time.Now}
}

func (s *AttemptStore) Create(ctx context.Context, a *models.QuizAttempt) error {
	if a.Status == "" {
		a.Status = models.AttemptInProgress
	}
	if err := s.DB.WithContext(ctx).Create(a).Error; err != nil {
		return persistErr("quiz attempt", err)
	}
	return nil
}

func (s *AttemptStore) Get(ctx context.Context, id uuid.UUID) (*models.QuizAttempt, error) {
	var a models.QuizAttempt
	if err := s.DB.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, queryErr("quiz attempt", err)
	}
	return &a, nil
}

// SetQuestions stores the sampled question order of an attempt.
func (s *AttemptStore) SetQuestions(ctx context.Context, id uuid.UUID, ids []uuid.UUID) error {
	res := s.DB.WithContext(ctx).Model(&models.QuizAttempt{}).
		Where("id = ?", id).
		Update("question_ids", datatypes.JSONSlice[uuid.UUID](ids))
	if res.Error != nil {
		return persistErr("quiz questions order", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Finish moves an in-progress attempt to a terminal status. It reports false
// when the attempt had already finished, which makes it safe to call twice.
func (s *AttemptStore) Finish(ctx context.Context, id uuid.UUID, status models.AttemptStatus) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.QuizAttempt{}).
		Where("id = ? AND status = ?", id, models.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":   status,
			"end_time": s.Now().UTC(),
		})
	if res.Error != nil {
		return false, persistErr("finish quiz attempt", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// RecordAnswer stores one answered question and the user's progress on it in
// a single transaction. A repeated submission for the same question returns
// the stored row with duplicate set and writes nothing.
func (s *AttemptStore) RecordAnswer(ctx context.Context, userID uuid.UUID, qq *models.QuizQuestion) (rec *models.QuizQuestion, duplicate bool, err error) {
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.QuizQuestion
		res := tx.Where("quiz_id = ? AND question_id = ?", qq.QuizID, qq.QuestionID).Limit(1).Find(&existing)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			rec, duplicate = &existing, true
			return nil
		}

		if err := tx.Create(qq).Error; err != nil {
			return err
		}
		correct := qq.IsCorrect != nil && *qq.IsCorrect
		if _, err := upsertProgress(tx, userID, qq.QuestionID, correct, s.Now().UTC()); err != nil {
			return err
		}
		rec = qq
		return nil
	})
	if err != nil {
		return nil, false, persistErr("quiz answer", err)
	}
	return rec, duplicate, nil
}

// Questions returns the answered questions of a quiz in the order they were
// answered.
func (s *AttemptStore) Questions(ctx context.Context, quizID uuid.UUID) ([]models.QuizQuestion, error) {
	var rows []models.QuizQuestion
	err := s.DB.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("created_at ASC").
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, queryErr("quiz questions", err)
	}
	return rows, nil
}

// Recent returns the latest attempts of a user with their answer tallies.
func (s *AttemptStore) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]models.AttemptSummary, error) {
	var attempts []models.QuizAttempt
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&attempts).Error
	if err != nil {
		return nil, queryErr("recent quiz attempts", err)
	}
	if len(attempts) == 0 {
		return []models.AttemptSummary{}, nil
	}

	ids := make([]uuid.UUID, len(attempts))
	for i, a := range attempts {
		ids[i] = a.ID
	}

	type tally struct {
		QuizID   uuid.UUID
		Answered int
		Correct  int
	}
	var tallies []tally
	err = s.DB.WithContext(ctx).
		Model(&models.QuizQuestion{}).
		Select("quiz_id, COUNT(*) AS answered, SUM(CASE WHEN is_correct THEN 1 ELSE 0 END) AS correct").
		Where("quiz_id IN ?", ids).
		Group("quiz_id").
		Scan(&tallies).Error
	if err != nil {
		return nil, queryErr("quiz answer tallies", err)
	}
	byQuiz := make(map[uuid.UUID]tally, len(tallies))
	for _, t := range tallies {
		byQuiz[t.QuizID] = t
	}

	out := make([]models.AttemptSummary, len(attempts))
	for i, a := range attempts {
		t := byQuiz[a.ID]
		out[i] = models.AttemptSummary{
			ID:             a.ID,
			CreatedAt:      a.CreatedAt,
			Status:         a.Status,
			TotalQuestions: a.TotalQuestions,
			Answered:       t.Answered,
			Correct:        t.Correct,
			IsTimed:        a.IsTimed,
			TimeLimit:      a.TimeLimit,
		}
	}
	return out, nil
}
