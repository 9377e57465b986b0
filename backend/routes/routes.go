package routes

import (
	"log"
	"time"

	"radbank/backend/config"
	"radbank/backend/controllers"
	"radbank/backend/middleware"
	"radbank/backend/quiz"
	"radbank/backend/store"
	"radbank/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Logger   *log.Logger
	Sessions quiz.SessionStore
}

// NewApp builds the fiber application with middleware and routes. The
// returned manager must be closed on shutdown.
func NewApp(d Deps) (*fiber.App, *quiz.Manager) {
	app := fiber.New(fiber.Config{
		AppName:      "radbank",
		ErrorHandler: errorHandler(d.Logger),
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(d.Logger))

	manager := SetupRoutes(app, d)
	return app, manager
}

func SetupRoutes(app *fiber.App, d Deps) *quiz.Manager {
	db, cfg, logger := d.DB, d.Cfg, d.Logger

	users := store.NewUserStore(db)
	questions := store.NewQuestionStore(db, logger)
	progress := store.NewProgressStore(db)
	attempts := store.NewAttemptStore(db)

	sessions := d.Sessions
	if sessions == nil {
		sessions = quiz.NewMemoryStore(cfg.SessionTTL)
	}
	manager := quiz.NewManager(questions, attempts, progress, sessions, logger)

	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Auth routes
	authController := controllers.NewAuthController(users, cfg, logger)
	auth := app.Group("/api/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:          cfg.RateLimitPerMinute,
		Expiration:   time.Minute,
		LimitReached: limitReached,
	}))
	auth.Post("/register", authController.Register)
	auth.Post("/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware(users)
	userLimiter := limiter.New(limiter.Config{
		Max:        cfg.RateLimitPerMinute,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if id, err := utils.CurrentUserID(c); err == nil {
				return id.String()
			}
			return c.IP()
		},
		LimitReached: limitReached,
	})

	app.Get("/api/auth/me", authMiddleware, authController.Me)

	// Question routes
	questionsController := controllers.NewQuestionsController(questions, progress, cfg, logger)
	qs := app.Group("/api/questions", authMiddleware, userLimiter)
	qs.Get("/", questionsController.ListQuestions)
	qs.Post("/:id/answer", questionsController.AnswerQuestion)

	// Quiz routes
	quizController := controllers.NewQuizController(manager, attempts, questions, cfg, logger)
	quizzes := app.Group("/api/quiz", authMiddleware, userLimiter)
	quizzes.Post("/", quizController.CreateQuiz)
	quizzes.Get("/:id", quizController.GetQuiz)
	quizzes.Post("/:id/answer", quizController.AnswerQuestion)
	quizzes.Get("/:id/questions", quizController.GetQuizQuestions)
	quizzes.Get("/:id/results", quizController.GetResults)

	// Progress routes
	progressController := controllers.NewProgressController(progress, attempts, cfg, logger)
	app.Get("/api/dashboard", authMiddleware, progressController.GetDashboard)
	app.Get("/api/progress", authMiddleware, progressController.GetProgress)

	// Admin routes
	userController := controllers.NewUserController(users, cfg, logger)
	admin := app.Group("/api/admin", authMiddleware, adminMiddleware)
	admin.Get("/users", userController.ListUsers)
	admin.Delete("/users", userController.DeleteUser)
	admin.Post("/users", userController.SetPassword)

	admin.Get("/questions", questionsController.AdminListQuestions)
	admin.Post("/questions", questionsController.CreateQuestion)
	admin.Post("/questions/bulk-delete", questionsController.BulkDeleteQuestions)
	admin.Put("/questions/:id", questionsController.UpdateQuestion)
	admin.Delete("/questions/:id", questionsController.DeleteQuestion)

	return manager
}

func limitReached(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error": "Too many requests. Please try again later.",
	})
}

func errorHandler(logger *log.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if fe, ok := err.(*fiber.Error); ok {
			return utils.Error(c, fe.Code, fe)
		}
		logger.Printf("%s %s: %v", c.Method(), c.Path(), err)
		return utils.InternalServerError(c, "Internal Server Error")
	}
}
