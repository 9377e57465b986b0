package models

import (
	"time"

	"github.com/google/uuid"
)

// UserProgress holds the most recent outcome of a user on a question.
// At most one row exists per (user, question).
type UserProgress struct {
	Base
	UserID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_progress_user_question" json:"user_id"`
	QuestionID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_progress_user_question" json:"question_id"`
	IsCorrect       bool      `gorm:"not null" json:"is_correct"`
	LastAttemptedAt time.Time `gorm:"not null" json:"last_attempted_at"`
}

func (UserProgress) TableName() string { return "user_progress" }

// ProgressStat is a progress row joined with the question's category and
// difficulty, used by the dashboard.
type ProgressStat struct {
	QuestionID      uuid.UUID  `json:"question_id"`
	IsCorrect       bool       `json:"is_correct"`
	LastAttemptedAt time.Time  `json:"last_attempted_at"`
	Category        Category   `json:"category"`
	Difficulty      Difficulty `json:"difficulty"`
}
