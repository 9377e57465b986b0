package controllers

import (
	"errors"
	"log"

	"radbank/backend/config"
	"radbank/backend/store"
	"radbank/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type AuthController struct {
	Users  *store.UserStore
	Cfg    *config.Config
	Logger *log.Logger
}

func NewAuthController(users *store.UserStore, cfg *config.Config, logger *log.Logger) *AuthController {
	return &AuthController{Users: users, Cfg: cfg, Logger: logger}
}

// Register godoc
// @Summary Register a new user
// @Description Creates a new user account and returns a token
// @Tags auth
// @Accept json
// @Produce json
// @Param user body store.NewUserInput true "User registration data"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /auth/register [post]
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var input store.NewUserInput
	if ok, err := utils.ParseBody(c, &input); !ok {
		return err
	}

	user, err := ac.Users.Create(c.UserContext(), input)
	if errors.Is(err, store.ErrEmailTaken) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Email already registered",
		})
	}
	if err != nil {
		return utils.HandleError(c, ac.Logger, err)
	}

	token, err := utils.GenerateJWTToken(*user, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginInput true "Login credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var input LoginInput
	if ok, err := utils.ParseBody(c, &input); !ok {
		return err
	}

	user, err := ac.Users.Authenticate(c.UserContext(), input.Email, input.Password)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}
	if err != nil {
		return utils.HandleError(c, ac.Logger, err)
	}

	token, err := utils.GenerateJWTToken(*user, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Me godoc
// @Summary Current user
// @Description Returns the authenticated user's profile with the role stored in the database
// @Tags auth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /auth/me [get]
func (ac *AuthController) Me(c *fiber.Ctx) error {
	userID, err := utils.CurrentUserID(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	user, err := ac.Users.Get(c.UserContext(), userID)
	if err != nil {
		return utils.HandleError(c, ac.Logger, err)
	}
	return c.JSON(user)
}
