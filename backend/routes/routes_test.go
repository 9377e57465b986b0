package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"radbank/backend/config"
	"radbank/backend/models"
	"radbank/backend/store"
	"radbank/backend/testutil"
	"radbank/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testApp struct {
	app *fiber.App
	db  *gorm.DB
	cfg *config.Config
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:          "testsecret",
		JWTTTL:             time.Hour,
		ServerPort:         "8080",
		RateLimitPerMinute: 1000,
		SessionStore:       "memory",
		SessionTTL:         time.Hour,
		AdminEmails:        []string{"chief@example.com"},
	}
	db := testutil.OpenDB(t)
	app, manager := NewApp(Deps{DB: db, Cfg: cfg, Logger: testutil.Logger()})
	t.Cleanup(manager.Close)
	return &testApp{app: app, db: db, cfg: cfg}
}

func (ta *testApp) token(t *testing.T, u models.User) string {
	t.Helper()
	token, err := utils.GenerateJWTToken(u, ta.cfg)
	require.NoError(t, err)
	return token
}

// do sends a JSON request and decodes the JSON response into out when out
// is non-nil.
func (ta *testApp) do(t *testing.T, method, path, token string, body interface{}, out interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestRegisterLoginMe(t *testing.T) {
	ta := newTestApp(t)

	var reg struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	resp := ta.do(t, "POST", "/api/auth/register", "", map[string]string{
		"email":      "resident@example.com",
		"password":   "password123",
		"first_name": "Ana",
		"job_title":  "Resident",
	}, &reg)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, models.RoleUser, reg.User.Role)

	resp = ta.do(t, "POST", "/api/auth/register", "", map[string]string{
		"email":    "resident@example.com",
		"password": "password123",
	}, nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var verr utils.ErrorResponse
	resp = ta.do(t, "POST", "/api/auth/login", "", map[string]string{"email": "resident@example.com"}, &verr)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, verr.Details, "password")

	resp = ta.do(t, "POST", "/api/auth/login", "", map[string]string{
		"email":    "resident@example.com",
		"password": "wrong-password",
	}, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var login struct {
		Token string `json:"token"`
	}
	resp = ta.do(t, "POST", "/api/auth/login", "", map[string]string{
		"email":    "Resident@Example.com",
		"password": "password123",
	}, &login)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var me models.User
	resp = ta.do(t, "GET", "/api/auth/me", login.Token, nil, &me)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "resident@example.com", me.Email)
	assert.Equal(t, "Ana", me.FirstName)

	resp = ta.do(t, "GET", "/api/auth/me", "", nil, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterNeverGrantsAdmin(t *testing.T) {
	ta := newTestApp(t)

	var reg struct {
		User models.User `json:"user"`
	}
	ta.do(t, "POST", "/api/auth/register", "", map[string]string{
		"email":    "chief@example.com",
		"password": "password123",
	}, &reg)
	assert.Equal(t, models.RoleUser, reg.User.Role)

	admin, err := store.NewUserStore(ta.db).IsAdmin(context.Background(), reg.User.ID)
	require.NoError(t, err)
	assert.False(t, admin)

	resp := ta.do(t, "GET", "/api/admin/users", ta.token(t, reg.User), nil, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAdminRoutesCheckStoredRole(t *testing.T) {
	ta := newTestApp(t)
	user := testutil.SeedUser(t, ta.db, "resident@example.com", models.RoleUser)
	admin := testutil.SeedUser(t, ta.db, "chief@example.com", models.RoleAdmin)

	resp := ta.do(t, "GET", "/api/admin/users", "", nil, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = ta.do(t, "GET", "/api/admin/users", ta.token(t, user), nil, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// A role claim in the token does not grant access on its own.
	forged := user
	forged.Role = models.RoleAdmin
	resp = ta.do(t, "GET", "/api/admin/users", ta.token(t, forged), nil, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// Neither does an x-admin-email header.
	req := httptest.NewRequest("GET", "/api/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+ta.token(t, user))
	req.Header.Set("x-admin-email", "chief@example.com")
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	var list struct {
		Users []models.User `json:"users"`
	}
	resp = ta.do(t, "GET", "/api/admin/users", ta.token(t, admin), nil, &list)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, list.Users, 2)
}

func TestAdminUserSearch(t *testing.T) {
	ta := newTestApp(t)
	admin := testutil.SeedUser(t, ta.db, "chief@example.com", models.RoleAdmin)
	testutil.SeedUser(t, ta.db, "resident@hospital.org", models.RoleUser)

	var list struct {
		Users []models.User `json:"users"`
	}
	resp := ta.do(t, "GET", "/api/admin/users?search=HOSPITAL", ta.token(t, admin), nil, &list)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, list.Users, 1)
	assert.Equal(t, "resident@hospital.org", list.Users[0].Email)

	list.Users = nil
	ta.do(t, "GET", "/api/admin/users?search=nobody", ta.token(t, admin), nil, &list)
	assert.Empty(t, list.Users)
}

func TestAdminManagesUsers(t *testing.T) {
	ta := newTestApp(t)
	users := store.NewUserStore(ta.db)
	ctx := context.Background()

	admin := testutil.SeedUser(t, ta.db, "chief@example.com", models.RoleAdmin)
	target, err := users.Create(ctx, store.NewUserInput{Email: "resident@example.com", Password: "password123"})
	require.NoError(t, err)
	token := ta.token(t, admin)

	var out map[string]interface{}
	resp := ta.do(t, "POST", "/api/admin/users", token, map[string]interface{}{
		"id": target.ID, "newPassword": "short",
	}, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp = ta.do(t, "POST", "/api/admin/users", token, map[string]interface{}{
		"id": target.ID, "newPassword": "brand-new-password",
	}, &out)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["success"])
	_, err = users.Authenticate(ctx, "resident@example.com", "brand-new-password")
	assert.NoError(t, err)

	resp = ta.do(t, "DELETE", "/api/admin/users", token, map[string]interface{}{"id": admin.ID}, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	out = nil
	resp = ta.do(t, "DELETE", "/api/admin/users", token, map[string]interface{}{"id": target.ID}, &out)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["success"])

	out = nil
	resp = ta.do(t, "DELETE", "/api/admin/users", token, map[string]interface{}{"id": target.ID}, &out)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, out["error"])
}

func questionBody(correct bool) map[string]interface{} {
	return map[string]interface{}{
		"question_text": "Most common posterior fossa tumor in children?",
		"explanation":   "Pilocytic astrocytoma and medulloblastoma lead the list.",
		"category":      "peds",
		"difficulty":    "advanced",
		"type":          "tumor",
		"answers": []map[string]interface{}{
			{"answer_text": "Medulloblastoma", "is_correct": correct},
			{"answer_text": "Meningioma", "is_correct": false},
		},
	}
}

func TestAdminManagesQuestions(t *testing.T) {
	ta := newTestApp(t)
	admin := testutil.SeedUser(t, ta.db, "chief@example.com", models.RoleAdmin)
	token := ta.token(t, admin)

	var verr utils.ErrorResponse
	resp := ta.do(t, "POST", "/api/admin/questions", token, questionBody(false), &verr)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, verr.Details, "correct_answer")

	bad := questionBody(true)
	bad["category"] = "cardiac"
	resp = ta.do(t, "POST", "/api/admin/questions", token, bad, &verr)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, verr.Details, "category")

	var created struct {
		Data models.Question `json:"data"`
	}
	resp = ta.do(t, "POST", "/api/admin/questions", token, questionBody(true), &created)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Len(t, created.Data.Answers, 2)

	update := questionBody(true)
	update["question_text"] = "Most common infratentorial tumor in children?"
	var updated struct {
		Data models.Question `json:"data"`
	}
	resp = ta.do(t, "PUT", "/api/admin/questions/"+created.Data.ID.String(), token, update, &updated)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Most common infratentorial tumor in children?", updated.Data.QuestionText)

	resp = ta.do(t, "PUT", "/api/admin/questions/"+uuid.NewString(), token, update, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	other := testutil.SeedQuestion(t, ta.db, testutil.QuestionSpec{})
	var page utils.PaginatedResponse
	resp = ta.do(t, "GET", "/api/admin/questions?page=1&page_size=10", token, nil, &page)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(2), page.Total)

	resp = ta.do(t, "DELETE", "/api/admin/questions/"+created.Data.ID.String(), token, nil, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = ta.do(t, "DELETE", "/api/admin/questions/"+created.Data.ID.String(), token, nil, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var bulk struct {
		Deleted int64 `json:"deleted"`
	}
	resp = ta.do(t, "POST", "/api/admin/questions/bulk-delete", token, map[string]interface{}{
		"ids": []uuid.UUID{other.ID, uuid.New()},
	}, &bulk)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), bulk.Deleted)

	resp = ta.do(t, "POST", "/api/admin/questions/bulk-delete", token, map[string]interface{}{"ids": []uuid.UUID{}}, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestBrowseAndPractice(t *testing.T) {
	ta := newTestApp(t)
	user := testutil.SeedUser(t, ta.db, "resident@example.com", models.RoleUser)
	token := ta.token(t, user)
	q := testutil.SeedQuestion(t, ta.db, testutil.QuestionSpec{Category: models.CategorySpine})
	testutil.SeedQuestion(t, ta.db, testutil.QuestionSpec{Category: models.CategoryBrain})

	var raw []map[string]interface{}
	resp := ta.do(t, "GET", "/api/questions?category=spine", token, nil, &raw)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, raw, 1)
	assert.NotContains(t, raw[0], "explanation")
	for _, a := range raw[0]["answers"].([]interface{}) {
		assert.NotContains(t, a.(map[string]interface{}), "is_correct")
	}

	resp = ta.do(t, "GET", "/api/questions?category=cardiac", token, nil, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	var result struct {
		Correct         bool      `json:"correct"`
		CorrectAnswerID uuid.UUID `json:"correct_answer_id"`
	}
	resp = ta.do(t, "POST", "/api/questions/"+q.ID.String()+"/answer", token,
		map[string]interface{}{"answer_id": testutil.WrongAnswer(q).ID}, &result)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.False(t, result.Correct)
	assert.Equal(t, testutil.CorrectAnswer(q).ID, result.CorrectAnswerID)

	var progress []models.ProgressStat
	ta.do(t, "GET", "/api/progress", token, nil, &progress)
	require.Len(t, progress, 1)
	assert.False(t, progress[0].IsCorrect)
}

func TestQuizOverHTTP(t *testing.T) {
	ta := newTestApp(t)
	user := testutil.SeedUser(t, ta.db, "resident@example.com", models.RoleUser)
	token := ta.token(t, user)
	testutil.SeedQuestion(t, ta.db, testutil.QuestionSpec{Category: models.CategoryBrain})
	testutil.SeedQuestion(t, ta.db, testutil.QuestionSpec{Category: models.CategoryBrain})
	testutil.SeedQuestion(t, ta.db, testutil.QuestionSpec{Category: models.CategoryBrain})
	testutil.SeedQuestion(t, ta.db, testutil.QuestionSpec{Category: models.CategorySpine})

	var invalid utils.ErrorResponse
	resp := ta.do(t, "POST", "/api/quiz", token, map[string]interface{}{"total_questions": 51}, &invalid)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, invalid.Details, "total_questions")

	type view struct {
		QuizID          uuid.UUID              `json:"quiz_id"`
		State           string                 `json:"state"`
		QuestionCount   int                    `json:"question_count"`
		CurrentIndex    int                    `json:"current_index"`
		CurrentQuestion map[string]interface{} `json:"current_question"`
	}
	var started view
	resp = ta.do(t, "POST", "/api/quiz", token, map[string]interface{}{
		"total_questions": 2,
		"category":        "brain",
	}, &started)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "in_progress", started.State)
	assert.Equal(t, 2, started.QuestionCount)
	require.NotNil(t, started.CurrentQuestion)

	quizPath := "/api/quiz/" + started.QuizID.String()

	resp = ta.do(t, "GET", quizPath+"/results", token, nil, nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	other := testutil.SeedUser(t, ta.db, "other@example.com", models.RoleUser)
	resp = ta.do(t, "GET", quizPath, ta.token(t, other), nil, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp = ta.do(t, "GET", quizPath+"/questions", ta.token(t, other), nil, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// Answer correctly, then incorrectly.
	for i, pickCorrect := range []bool{true, false} {
		var current view
		ta.do(t, "GET", quizPath, token, nil, &current)
		require.Equal(t, i, current.CurrentIndex)
		questionID := uuid.MustParse(current.CurrentQuestion["id"].(string))

		var q models.Question
		require.NoError(t, ta.db.Preload("Answers").First(&q, "id = ?", questionID).Error)
		answer := testutil.WrongAnswer(q)
		if pickCorrect {
			answer = testutil.CorrectAnswer(q)
		}

		var res struct {
			Correct bool `json:"correct"`
			Session view `json:"session"`
		}
		resp = ta.do(t, "POST", quizPath+"/answer", token, map[string]interface{}{
			"question_id": questionID,
			"answer_id":   answer.ID,
		}, &res)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, pickCorrect, res.Correct)
	}

	var done view
	ta.do(t, "GET", quizPath, token, nil, &done)
	assert.Equal(t, "completed", done.State)
	assert.Nil(t, done.CurrentQuestion)

	resp = ta.do(t, "POST", quizPath+"/answer", token, map[string]interface{}{
		"question_id": uuid.New(),
		"answer_id":   uuid.New(),
	}, nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var rows []models.QuizQuestion
	ta.do(t, "GET", quizPath+"/questions", token, nil, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, 0, rows[0].Position)
	assert.Equal(t, 1, rows[1].Position)

	var results struct {
		Score  models.Score `json:"score"`
		Review []struct {
			Answered bool `json:"answered"`
		} `json:"review"`
	}
	resp = ta.do(t, "GET", quizPath+"/results", token, nil, &results)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, models.Score{Total: 2, Correct: 1, Percent: 50}, results.Score)
	assert.Len(t, results.Review, 2)

	var dash struct {
		Stats         models.Dashboard `json:"stats"`
		RecentQuizzes []struct {
			ID    uuid.UUID `json:"id"`
			Score float64   `json:"score"`
		} `json:"recent_quizzes"`
	}
	resp = ta.do(t, "GET", "/api/dashboard", token, nil, &dash)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, dash.Stats.TotalQuestions)
	assert.Equal(t, 50.0, dash.Stats.Accuracy)
	assert.Equal(t, models.Bucket{Total: 2, Correct: 1}, dash.Stats.ByCategory["brain"])
	require.Len(t, dash.RecentQuizzes, 1)
	assert.Equal(t, started.QuizID, dash.RecentQuizzes[0].ID)
	assert.Equal(t, 50.0, dash.RecentQuizzes[0].Score)
}
