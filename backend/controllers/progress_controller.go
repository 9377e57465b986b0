package controllers

import (
	"log"

	"radbank/backend/analytics"
	"radbank/backend/config"
	"radbank/backend/models"
	"radbank/backend/store"
	"radbank/backend/utils"

	"github.com/gofiber/fiber/v2"
)

const recentQuizLimit = 5

type ProgressController struct {
	Progress *store.ProgressStore
	Attempts *store.AttemptStore
	Cfg      *config.Config
	Logger   *log.Logger
}

func NewProgressController(progress *store.ProgressStore, attempts *store.AttemptStore, cfg *config.Config, logger *log.Logger) *ProgressController {
	return &ProgressController{Progress: progress, Attempts: attempts, Cfg: cfg, Logger: logger}
}

// GetDashboard godoc
// @Summary Dashboard statistics
// @Description Returns accuracy by category and difficulty plus the latest quizzes. Failed reads are logged and shown as empty.
// @Tags progress
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /dashboard [get]
func (pc *ProgressController) GetDashboard(c *fiber.Ctx) error {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	stats, err := pc.Progress.ForUser(c.UserContext(), userID)
	if err != nil {
		pc.Logger.Printf("dashboard progress for %s: %v", userID, err)
		stats = nil
	}

	recent, err := pc.Attempts.Recent(c.UserContext(), userID, recentQuizLimit)
	if err != nil {
		pc.Logger.Printf("dashboard recent quizzes for %s: %v", userID, err)
		recent = []models.AttemptSummary{}
	}

	return c.JSON(fiber.Map{
		"stats":          analytics.Aggregate(stats),
		"recent_quizzes": analytics.Summarize(recent),
	})
}

// GetProgress godoc
// @Summary Per-question progress
// @Description Returns the latest outcome of every question the user has answered
// @Tags progress
// @Produce json
// @Success 200 {array} models.ProgressStat
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /progress [get]
func (pc *ProgressController) GetProgress(c *fiber.Ctx) error {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	stats, err := pc.Progress.ForUser(c.UserContext(), userID)
	if err != nil {
		pc.Logger.Printf("progress for %s: %v", userID, err)
	}
	if stats == nil {
		stats = []models.ProgressStat{}
	}
	return c.JSON(stats)
}
