// Package testutil opens throwaway databases and seeds rows for tests.
package testutil

import (
	"fmt"
	"io"
	"log"
	"testing"

	"radbank/backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB returns a migrated in-memory SQLite database private to t.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// QuestionSpec describes a question to seed. Answers[Correct] is the right
// one.
type QuestionSpec struct {
	Text       string
	Category   models.Category
	Difficulty models.Difficulty
	Type       models.QuestionType
	Answers    []string
	Correct    int
}

// SeedQuestion inserts a question with its answers.
func SeedQuestion(t testing.TB, db *gorm.DB, spec QuestionSpec) models.Question {
	t.Helper()

	if spec.Text == "" {
		spec.Text = "Which sequence best shows restricted diffusion?"
	}
	if spec.Category == "" {
		spec.Category = models.CategoryBrain
	}
	if spec.Difficulty == "" {
		spec.Difficulty = models.DifficultyEasy
	}
	if spec.Type == "" {
		spec.Type = models.TypeOther
	}
	if len(spec.Answers) == 0 {
		spec.Answers = []string{"DWI", "T1", "FLAIR"}
	}

	q := models.Question{
		QuestionText: spec.Text,
		Explanation:  "Explanation for " + spec.Text,
		Category:     spec.Category,
		Difficulty:   spec.Difficulty,
		Type:         spec.Type,
	}
	for i, text := range spec.Answers {
		q.Answers = append(q.Answers, models.Answer{AnswerText: text, IsCorrect: i == spec.Correct})
	}
	require.NoError(t, db.Create(&q).Error)
	return q
}

// SeedUser inserts a user with the given role. The password hash is not a
// valid bcrypt hash; use the user store when a login is needed.
func SeedUser(t testing.TB, db *gorm.DB, email string, role models.Role) models.User {
	t.Helper()

	u := models.User{Email: email, PasswordHash: "x", Role: role}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// CorrectAnswer returns the correct answer of q.
func CorrectAnswer(q models.Question) models.Answer {
	for _, a := range q.Answers {
		if a.IsCorrect {
			return a
		}
	}
	return models.Answer{}
}

// WrongAnswer returns an incorrect answer of q.
func WrongAnswer(q models.Question) models.Answer {
	for _, a := range q.Answers {
		if !a.IsCorrect {
			return a
		}
	}
	return models.Answer{}
}

// Logger discards everything written to it.
func Logger() *log.Logger {
	return log.New(io.Discard, "", 0)
}
