package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptFailed     AttemptStatus = "failed"
)

// QuizFilters is the snapshot of the options a quiz was started with.
type QuizFilters struct {
	Category                   Category     `json:"category,omitempty"`
	Difficulty                 Difficulty   `json:"difficulty,omitempty"`
	Type                       QuestionType `json:"type,omitempty"`
	IncludePreviouslyCorrect   bool         `json:"include_previously_correct"`
	IncludePreviouslyIncorrect bool         `json:"include_previously_incorrect"`
}

type QuizAttempt struct {
	Base
	UserID         uuid.UUID                       `gorm:"type:uuid;not null;index" json:"user_id"`
	TotalQuestions int                             `gorm:"not null" json:"total_questions"`
	IsTimed        bool                            `gorm:"not null;default:false" json:"is_timed"`
	TimeLimit      *int                            `json:"time_limit,omitempty"` // minutes
	Filters        datatypes.JSONType[QuizFilters] `json:"filters"`
	QuestionIDs    datatypes.JSONSlice[uuid.UUID]  `json:"question_ids"`
	Status         AttemptStatus                   `gorm:"size:16;not null;default:in_progress;index" json:"status"`
	ExpiresAt      *time.Time                      `json:"expires_at,omitempty"`
	EndTime        *time.Time                      `json:"end_time,omitempty"`
}

func (QuizAttempt) TableName() string { return "quiz_attempts" }

// QuizQuestion is one answered question of an attempt.
type QuizQuestion struct {
	Base
	QuizID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_quiz_question" json:"quiz_id"`
	QuestionID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_quiz_question" json:"question_id"`
	Position     int        `gorm:"not null" json:"position"`
	UserAnswerID *uuid.UUID `gorm:"type:uuid" json:"user_answer_id,omitempty"`
	IsCorrect    *bool      `json:"is_correct,omitempty"`
}

func (QuizQuestion) TableName() string { return "quiz_questions" }

// AttemptSummary is an attempt together with the tallies of its answered
// questions. Score is derived from these at read time.
type AttemptSummary struct {
	ID             uuid.UUID     `json:"id"`
	CreatedAt      time.Time     `json:"created_at"`
	Status         AttemptStatus `json:"status"`
	TotalQuestions int           `json:"total_questions"`
	Answered       int           `json:"answered"`
	Correct        int           `json:"correct"`
	IsTimed        bool          `json:"is_timed"`
	TimeLimit      *int          `json:"time_limit,omitempty"`
}
