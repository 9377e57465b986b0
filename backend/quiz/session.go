package quiz

import (
	"errors"
	"math"
	"time"

	"radbank/backend/models"
	"radbank/backend/store"

	"github.com/google/uuid"
)

// State of a quiz session.
//
//	created -> loading -> in_progress -> completed
//	                  \-> failed
type State string

const (
	StateCreated    State = "created"
	StateLoading    State = "loading"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

var (
	ErrSessionFailed = errors.New("quiz session could not be created")
	ErrSessionClosed = errors.New("quiz session is no longer in progress")
)

const (
	MinQuestions = 1
	MaxQuestions = 50
)

// Config is what a user picks when starting a quiz.
type Config struct {
	TotalQuestions             int                 `json:"total_questions"`
	IsTimed                    bool                `json:"is_timed"`
	TimeLimit                  int                 `json:"time_limit"` // minutes
	Category                   models.Category     `json:"category"`
	Difficulty                 models.Difficulty   `json:"difficulty"`
	Type                       models.QuestionType `json:"type"`
	IncludePreviouslyCorrect   bool                `json:"include_previously_correct"`
	IncludePreviouslyIncorrect bool                `json:"include_previously_incorrect"`
}

func DefaultConfig() Config {
	return Config{
		TotalQuestions:             10,
		TimeLimit:                  60,
		IncludePreviouslyCorrect:   true,
		IncludePreviouslyIncorrect: true,
	}
}

func (c Config) Validate() error {
	var errs store.ValidationErrors
	if c.TotalQuestions < MinQuestions || c.TotalQuestions > MaxQuestions {
		errs = append(errs, &store.ValidationError{Field: "total_questions", Message: "must be between 1 and 50"})
	}
	if c.IsTimed && c.TimeLimit < 1 {
		errs = append(errs, &store.ValidationError{Field: "time_limit", Message: "must be at least 1 minute"})
	}
	if err := c.filter().Validate(); err != nil {
		var ferrs store.ValidationErrors
		if errors.As(err, &ferrs) {
			errs = append(errs, ferrs...)
		}
	}
	return errs.OrNil()
}

func (c Config) filter() store.QuestionFilter {
	return store.QuestionFilter{
		Category:   c.Category,
		Difficulty: c.Difficulty,
		Type:       c.Type,
	}
}

func (c Config) snapshot() models.QuizFilters {
	return models.QuizFilters{
		Category:                   c.Category,
		Difficulty:                 c.Difficulty,
		Type:                       c.Type,
		IncludePreviouslyCorrect:   c.IncludePreviouslyCorrect,
		IncludePreviouslyIncorrect: c.IncludePreviouslyIncorrect,
	}
}

// Session is the live state of one quiz attempt.
type Session struct {
	QuizID         uuid.UUID         `json:"quiz_id"`
	UserID         uuid.UUID         `json:"user_id"`
	State          State             `json:"state"`
	TotalQuestions int               `json:"total_questions"`
	Questions      []models.Question `json:"questions"`
	CurrentIndex   int               `json:"current_index"`
	ExpiresAt      *time.Time        `json:"expires_at,omitempty"`
}

// Current returns the question awaiting an answer.
func (s *Session) Current() (models.Question, bool) {
	if s.State != StateInProgress || s.CurrentIndex >= len(s.Questions) {
		return models.Question{}, false
	}
	return s.Questions[s.CurrentIndex], true
}

// RemainingSeconds reports whole seconds left before the deadline, rounded
// up. The second result is false for untimed sessions.
func (s *Session) RemainingSeconds(now time.Time) (int, bool) {
	if s.ExpiresAt == nil {
		return 0, false
	}
	left := s.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0, true
	}
	return int(math.Ceil(left.Seconds())), true
}

func (s *Session) pastDeadline(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}
