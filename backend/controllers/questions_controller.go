package controllers

import (
	"log"

	"radbank/backend/config"
	"radbank/backend/models"
	"radbank/backend/store"
	"radbank/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type QuestionsController struct {
	Questions *store.QuestionStore
	Progress  *store.ProgressStore
	Cfg       *config.Config
	Logger    *log.Logger
}

func NewQuestionsController(questions *store.QuestionStore, progress *store.ProgressStore, cfg *config.Config, logger *log.Logger) *QuestionsController {
	return &QuestionsController{Questions: questions, Progress: progress, Cfg: cfg, Logger: logger}
}

func filterFromQuery(c *fiber.Ctx) store.QuestionFilter {
	return store.QuestionFilter{
		Category:   models.Category(c.Query("category")),
		Difficulty: models.Difficulty(c.Query("difficulty")),
		Type:       models.QuestionType(c.Query("type")),
	}
}

// ListQuestions godoc
// @Summary Browse questions
// @Description Returns questions for practice without their correct answers. A failed read is logged and yields an empty list.
// @Tags questions
// @Produce json
// @Param category query string false "brain|head_and_neck|spine|peds|physics"
// @Param difficulty query string false "easy|advanced|medium|hard"
// @Param type query string false "infection|inflammation|tumor|congenital|other"
// @Success 200 {array} QuestionView
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /questions [get]
func (qc *QuestionsController) ListQuestions(c *fiber.Ctx) error {
	filter := filterFromQuery(c)
	if err := filter.Validate(); err != nil {
		return utils.HandleError(c, qc.Logger, err)
	}

	questions, err := qc.Questions.Fetch(c.UserContext(), filter)
	if err != nil {
		qc.Logger.Printf("browse questions: %v", err)
		questions = nil
	}
	return c.JSON(newQuestionViews(questions))
}

type PracticeAnswerInput struct {
	AnswerID uuid.UUID `json:"answer_id" validate:"required"`
}

// AnswerQuestion godoc
// @Summary Answer a question in practice mode
// @Description Checks the chosen answer and records the outcome in the user's progress
// @Tags questions
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param request body PracticeAnswerInput true "Chosen answer"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /questions/{id}/answer [post]
func (qc *QuestionsController) AnswerQuestion(c *fiber.Ctx) error {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	questionID, ok := paramUUID(c, "id")
	if !ok {
		return utils.BadRequest(c, "Invalid question ID")
	}

	var input PracticeAnswerInput
	if ok, err := utils.ParseBody(c, &input); !ok {
		return err
	}

	q, err := qc.Questions.Get(c.UserContext(), questionID)
	if err != nil {
		return utils.HandleError(c, qc.Logger, err)
	}
	answer, ok := q.Answer(input.AnswerID)
	if !ok {
		return utils.ValidationError(c, map[string]string{"answer_id": "does not belong to this question"})
	}

	// The outcome is still shown when progress cannot be saved.
	if _, err := qc.Progress.Record(c.UserContext(), userID, q.ID, answer.IsCorrect); err != nil {
		qc.Logger.Printf("record progress for %s: %v", q.ID, err)
	}

	correctID, _ := q.CorrectAnswerID()
	return c.JSON(fiber.Map{
		"correct":               answer.IsCorrect,
		"correct_answer_id":     correctID,
		"explanation":           q.Explanation,
		"explanation_image_url": q.ExplanationImageURL,
	})
}

// AdminListQuestions godoc
// @Summary List questions for editing
// @Description Returns one page of questions with answers and correct flags
// @Tags admin
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} utils.PaginatedResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/questions [get]
func (qc *QuestionsController) AdminListQuestions(c *fiber.Ctx) error {
	page, pageSize := pageParams(c)
	filter := filterFromQuery(c)
	if err := filter.Validate(); err != nil {
		return utils.HandleError(c, qc.Logger, err)
	}

	questions, total, err := qc.Questions.List(c.UserContext(), filter, page, pageSize)
	if err != nil {
		qc.Logger.Printf("admin list questions: %v", err)
		questions, total = []models.Question{}, 0
	}
	return utils.Paginate(c, questions, total, page, pageSize)
}

// CreateQuestion godoc
// @Summary Create a question
// @Description Creates a question with its answers. At least one answer must be correct.
// @Tags admin
// @Accept json
// @Produce json
// @Param question body store.QuestionInput true "Question"
// @Success 201 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/questions [post]
func (qc *QuestionsController) CreateQuestion(c *fiber.Ctx) error {
	var input store.QuestionInput
	if ok, err := utils.ParseBody(c, &input); !ok {
		return err
	}

	q, err := qc.Questions.Create(c.UserContext(), input)
	if err != nil {
		return utils.HandleError(c, qc.Logger, err)
	}
	return utils.Created(c, q)
}

// UpdateQuestion godoc
// @Summary Update a question
// @Description Overwrites a question and replaces its answers
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param question body store.QuestionInput true "Question"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/questions/{id} [put]
func (qc *QuestionsController) UpdateQuestion(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return utils.BadRequest(c, "Invalid question ID")
	}
	var input store.QuestionInput
	if ok, err := utils.ParseBody(c, &input); !ok {
		return err
	}

	q, err := qc.Questions.Update(c.UserContext(), id, input)
	if err != nil {
		return utils.HandleError(c, qc.Logger, err)
	}
	return utils.Success(c, fiber.StatusOK, q)
}

// DeleteQuestion godoc
// @Summary Delete a question
// @Tags admin
// @Produce json
// @Param id path string true "Question ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/questions/{id} [delete]
func (qc *QuestionsController) DeleteQuestion(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return utils.BadRequest(c, "Invalid question ID")
	}
	if err := qc.Questions.Delete(c.UserContext(), id); err != nil {
		return utils.HandleError(c, qc.Logger, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

type BulkDeleteInput struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1"`
}

// BulkDeleteQuestions godoc
// @Summary Delete several questions
// @Tags admin
// @Accept json
// @Produce json
// @Param request body BulkDeleteInput true "Question IDs"
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/questions/bulk-delete [post]
func (qc *QuestionsController) BulkDeleteQuestions(c *fiber.Ctx) error {
	var input BulkDeleteInput
	if ok, err := utils.ParseBody(c, &input); !ok {
		return err
	}

	deleted, err := qc.Questions.DeleteMany(c.UserContext(), input.IDs)
	if err != nil {
		return utils.HandleError(c, qc.Logger, err)
	}
	return c.JSON(fiber.Map{"success": true, "deleted": deleted})
}
