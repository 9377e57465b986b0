package store

import (
	"context"
	"time"

	"radbank/backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressStore struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewProgressStore(db *gorm.DB) *ProgressStore {
	return &ProgressStore{DB: db, Now: time.Now}
}

// Record stores the latest outcome of userID on questionID, replacing any
// earlier outcome for the same pair.
func (s *ProgressStore) Record(ctx context.Context, userID, questionID uuid.UUID, correct bool) (*models.UserProgress, error) {
	p, err := upsertProgress(s.DB.WithContext(ctx), userID, questionID, correct, s.Now().UTC())
	if err != nil {
		return nil, persistErr("user progress", err)
	}
	return p, nil
}

func upsertProgress(tx *gorm.DB, userID, questionID uuid.UUID, correct bool, at time.Time) (*models.UserProgress, error) {
	row := models.UserProgress{
		UserID:          userID,
		QuestionID:      questionID,
		IsCorrect:       correct,
		LastAttemptedAt: at,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_correct", "last_attempted_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}

	// On conflict the generated id is not the stored one.
	var stored models.UserProgress
	if err := tx.Where("user_id = ? AND question_id = ?", userID, questionID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// ForUser returns every progress row of userID with the category and
// difficulty of its question. Rows whose question was deleted are dropped.
func (s *ProgressStore) ForUser(ctx context.Context, userID uuid.UUID) ([]models.ProgressStat, error) {
	var rows []models.ProgressStat
	err := s.DB.WithContext(ctx).
		Table("user_progress AS p").
		Select("p.question_id, p.is_correct, p.last_attempted_at, q.category, q.difficulty").
		Joins("JOIN questions AS q ON q.id = p.question_id").
		Where("p.user_id = ?", userID).
		Scan(&rows).Error
	if err != nil {
		return nil, queryErr("user progress", err)
	}
	return rows, nil
}
