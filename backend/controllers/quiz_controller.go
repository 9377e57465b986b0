package controllers

import (
	"errors"
	"log"
	"time"

	"radbank/backend/analytics"
	"radbank/backend/config"
	"radbank/backend/models"
	"radbank/backend/quiz"
	"radbank/backend/store"
	"radbank/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type QuizController struct {
	Manager   *quiz.Manager
	Attempts  *store.AttemptStore
	Questions *store.QuestionStore
	Cfg       *config.Config
	Logger    *log.Logger
}

func NewQuizController(manager *quiz.Manager, attempts *store.AttemptStore, questions *store.QuestionStore, cfg *config.Config, logger *log.Logger) *QuizController {
	return &QuizController{Manager: manager, Attempts: attempts, Questions: questions, Cfg: cfg, Logger: logger}
}

// CreateQuizInput leaves unset fields at their defaults: ten untimed
// questions from the whole bank, including ones answered before.
type CreateQuizInput struct {
	TotalQuestions             *int   `json:"total_questions"`
	IsTimed                    bool   `json:"is_timed"`
	TimeLimit                  *int   `json:"time_limit"`
	Category                   string `json:"category"`
	Difficulty                 string `json:"difficulty"`
	Type                       string `json:"type"`
	IncludePreviouslyCorrect   *bool  `json:"include_previously_correct"`
	IncludePreviouslyIncorrect *bool  `json:"include_previously_incorrect"`
}

func (in CreateQuizInput) config() quiz.Config {
	cfg := quiz.DefaultConfig()
	if in.TotalQuestions != nil {
		cfg.TotalQuestions = *in.TotalQuestions
	}
	cfg.IsTimed = in.IsTimed
	if in.TimeLimit != nil {
		cfg.TimeLimit = *in.TimeLimit
	}
	cfg.Category = models.Category(in.Category)
	cfg.Difficulty = models.Difficulty(in.Difficulty)
	cfg.Type = models.QuestionType(in.Type)
	if in.IncludePreviouslyCorrect != nil {
		cfg.IncludePreviouslyCorrect = *in.IncludePreviouslyCorrect
	}
	if in.IncludePreviouslyIncorrect != nil {
		cfg.IncludePreviouslyIncorrect = *in.IncludePreviouslyIncorrect
	}
	return cfg
}

// CreateQuiz godoc
// @Summary Start a quiz
// @Description Samples questions matching the filters and starts a session
// @Tags quiz
// @Accept json
// @Produce json
// @Param request body CreateQuizInput true "Quiz settings"
// @Success 201 {object} SessionView
// @Failure 422 {object} utils.ErrorResponse
// @Failure 500 {object} map[string]interface{}
// @Security ApiKeyAuth
// @Router /quiz [post]
func (qc *QuizController) CreateQuiz(c *fiber.Ctx) error {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input CreateQuizInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	sess, err := qc.Manager.Start(c.UserContext(), userID, input.config())
	if errors.Is(err, quiz.ErrSessionFailed) && sess != nil {
		qc.Logger.Printf("start quiz %s: %v", sess.QuizID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Could not load questions",
			"quiz_id": sess.QuizID,
			"state":   sess.State,
		})
	}
	if err != nil {
		return qc.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(newSessionView(sess, time.Now()))
}

// GetQuiz godoc
// @Summary Current state of a quiz
// @Description Returns the question awaiting an answer and the time left
// @Tags quiz
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {object} SessionView
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /quiz/{id} [get]
func (qc *QuizController) GetQuiz(c *fiber.Ctx) error {
	userID, quizID, ok, err := qc.ids(c)
	if !ok {
		return err
	}

	sess, err := qc.Manager.Get(c.UserContext(), userID, quizID)
	if err != nil {
		return qc.fail(c, err)
	}
	return c.JSON(newSessionView(sess, time.Now()))
}

type QuizAnswerInput struct {
	QuestionID uuid.UUID `json:"question_id" validate:"required"`
	AnswerID   uuid.UUID `json:"answer_id" validate:"required"`
}

// AnswerQuestion godoc
// @Summary Answer the current question
// @Description Records the answer and the user's progress, then advances the quiz
// @Tags quiz
// @Accept json
// @Produce json
// @Param id path string true "Quiz ID"
// @Param request body QuizAnswerInput true "Chosen answer"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /quiz/{id}/answer [post]
func (qc *QuizController) AnswerQuestion(c *fiber.Ctx) error {
	userID, quizID, ok, err := qc.ids(c)
	if !ok {
		return err
	}
	var input QuizAnswerInput
	if ok, err := utils.ParseBody(c, &input); !ok {
		return err
	}

	res, err := qc.Manager.Answer(c.UserContext(), userID, quizID, input.QuestionID, input.AnswerID)
	if err != nil {
		return qc.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"correct":           res.Correct,
		"correct_answer_id": res.CorrectAnswerID,
		"explanation":       res.Explanation,
		"duplicate":         res.Duplicate,
		"session":           newSessionView(res.Session, time.Now()),
	})
}

// GetQuizQuestions godoc
// @Summary Answered questions of a quiz
// @Description Returns the recorded quiz questions ordered by creation time. A failed read is logged and yields an empty list.
// @Tags quiz
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {array} models.QuizQuestion
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /quiz/{id}/questions [get]
func (qc *QuizController) GetQuizQuestions(c *fiber.Ctx) error {
	userID, quizID, ok, err := qc.ids(c)
	if !ok {
		return err
	}
	if _, err := qc.owned(c, userID, quizID); err != nil {
		return qc.fail(c, err)
	}

	rows, err := qc.Attempts.Questions(c.UserContext(), quizID)
	if err != nil {
		qc.Logger.Printf("quiz %s questions: %v", quizID, err)
		rows = []models.QuizQuestion{}
	}
	return c.JSON(rows)
}

// ReviewItem replays one question of a finished quiz.
type ReviewItem struct {
	Question     models.Question `json:"question"`
	Position     int             `json:"position"`
	Answered     bool            `json:"answered"`
	UserAnswerID *uuid.UUID      `json:"user_answer_id,omitempty"`
	IsCorrect    *bool           `json:"is_correct,omitempty"`
}

// GetResults godoc
// @Summary Results of a finished quiz
// @Description Returns the score and a review of every question with the user's choice
// @Tags quiz
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /quiz/{id}/results [get]
func (qc *QuizController) GetResults(c *fiber.Ctx) error {
	userID, quizID, ok, err := qc.ids(c)
	if !ok {
		return err
	}
	// Reading through the manager completes a quiz whose deadline passed.
	sess, err := qc.Manager.Get(c.UserContext(), userID, quizID)
	if err != nil {
		return qc.fail(c, err)
	}
	if !sess.State.Terminal() {
		return utils.Error(c, fiber.StatusConflict, quiz.ErrSessionClosed, fiber.Map{"state": sess.State})
	}
	attempt, err := qc.owned(c, userID, quizID)
	if err != nil {
		return qc.fail(c, err)
	}

	rows, err := qc.Attempts.Questions(c.UserContext(), quizID)
	if err != nil {
		return utils.HandleError(c, qc.Logger, err)
	}
	byQuestion := make(map[uuid.UUID]models.QuizQuestion, len(rows))
	for _, r := range rows {
		byQuestion[r.QuestionID] = r
	}

	ids := []uuid.UUID(attempt.QuestionIDs)
	questions, err := qc.Questions.Fetch(c.UserContext(), store.QuestionFilter{IDs: ids})
	if err != nil {
		return utils.HandleError(c, qc.Logger, err)
	}
	byID := make(map[uuid.UUID]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	review := make([]ReviewItem, 0, len(ids))
	for i, id := range ids {
		q, ok := byID[id]
		if !ok {
			continue
		}
		item := ReviewItem{Question: q, Position: i}
		if r, ok := byQuestion[id]; ok {
			item.Answered = true
			item.UserAnswerID = r.UserAnswerID
			item.IsCorrect = r.IsCorrect
		}
		review = append(review, item)
	}

	return c.JSON(fiber.Map{
		"quiz_id":  quizID,
		"status":   attempt.Status,
		"score":    analytics.ScoreOf(rows),
		"is_timed": attempt.IsTimed,
		"end_time": attempt.EndTime,
		"review":   review,
	})
}

func (qc *QuizController) ids(c *fiber.Ctx) (uuid.UUID, uuid.UUID, bool, error) {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, false, utils.Unauthorized(c, "Unauthorized")
	}
	quizID, ok := paramUUID(c, "id")
	if !ok {
		return uuid.Nil, uuid.Nil, false, utils.BadRequest(c, "Invalid quiz ID")
	}
	return userID, quizID, true, nil
}

func (qc *QuizController) owned(c *fiber.Ctx, userID, quizID uuid.UUID) (*models.QuizAttempt, error) {
	attempt, err := qc.Attempts.Get(c.UserContext(), quizID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, &store.AuthorizationError{Action: "access this quiz"}
	}
	return attempt, nil
}

func (qc *QuizController) fail(c *fiber.Ctx, err error) error {
	if errors.Is(err, quiz.ErrSessionClosed) {
		return utils.Error(c, fiber.StatusConflict, err)
	}
	return utils.HandleError(c, qc.Logger, err)
}
