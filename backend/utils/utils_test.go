package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"radbank/backend/config"
	"radbank/backend/models"
	"radbank/backend/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStructUsesJSONNames(t *testing.T) {
	in := store.QuestionInput{
		Category:   models.CategoryBrain,
		Difficulty: models.DifficultyEasy,
		Type:       models.TypeTumor,
		Answers:    []store.AnswerInput{{AnswerText: "DWI"}, {}},
	}
	errs := ValidateStruct(&in)
	assert.Equal(t, "is required", errs["question_text"])
	assert.Equal(t, "is required", errs["answers[1].answer_text"])

	in.QuestionText = "Which sequence?"
	in.Answers[1].AnswerText = "T1"
	assert.Nil(t, ValidateStruct(&in))

	in.Answers = in.Answers[:1]
	assert.Equal(t, "needs at least 2 items", ValidateStruct(&in)["answers"])
}

func TestHandleErrorMapsStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", store.ValidationErrors{{Field: "category", Message: "unknown"}}, fiber.StatusUnprocessableEntity},
		{"authorization", &store.AuthorizationError{Action: "access this quiz"}, fiber.StatusForbidden},
		{"not found", store.ErrNotFound, fiber.StatusNotFound},
		{"query", &store.QueryError{Op: "questions", Err: errors.New("boom")}, fiber.StatusInternalServerError},
		{"persistence", &store.PersistenceError{Op: "quiz answer", Err: errors.New("boom")}, fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return HandleError(c, InitLogger(LoggerConfig{Output: io.Discard}), tc.err)
			})
			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.NotContains(t, body.Message, "boom")
		})
	}
}

func TestJWTRoundTrip(t *testing.T) {
	cfg := &config.Config{JWTSecret: "testsecret", JWTTTL: time.Hour}
	user := models.User{Email: "chief@example.com", Role: models.RoleAdmin}
	user.ID = uuid.New()

	token, err := GenerateJWTToken(user, cfg)
	require.NoError(t, err)

	claims, err := ParseJWTToken(token, cfg)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = ParseJWTToken(token, &config.Config{JWTSecret: "other"})
	assert.Error(t, err)

	expired := &config.Config{JWTSecret: "testsecret", JWTTTL: -time.Minute}
	token, err = GenerateJWTToken(user, expired)
	require.NoError(t, err)
	_, err = ParseJWTToken(token, cfg)
	assert.Error(t, err)
}
