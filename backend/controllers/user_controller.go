package controllers

import (
	"errors"
	"log"

	"radbank/backend/config"
	"radbank/backend/models"
	"radbank/backend/store"
	"radbank/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// UserController serves the admin user management endpoints. Responses use
// the bare {users}, {success} and {error} shapes the admin panel expects.
type UserController struct {
	Users  *store.UserStore
	Cfg    *config.Config
	Logger *log.Logger
}

func NewUserController(users *store.UserStore, cfg *config.Config, logger *log.Logger) *UserController {
	return &UserController{Users: users, Cfg: cfg, Logger: logger}
}

// ListUsers godoc
// @Summary List users
// @Description Returns registered users, optionally filtered by a search term. A failed read is logged and yields an empty list.
// @Tags admin
// @Produce json
// @Param search query string false "Match against email, first name, last name or job title"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/users [get]
func (uc *UserController) ListUsers(c *fiber.Ctx) error {
	users, err := uc.Users.List(c.UserContext(), c.Query("search"))
	if err != nil {
		uc.Logger.Printf("list users: %v", err)
		users = []models.User{}
	}
	return c.JSON(fiber.Map{"users": users})
}

type DeleteUserInput struct {
	ID uuid.UUID `json:"id" validate:"required"`
}

// DeleteUser godoc
// @Summary Delete a user
// @Description Deletes a user with their quiz attempts and progress
// @Tags admin
// @Accept json
// @Produce json
// @Param request body DeleteUserInput true "User to delete"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 422 {object} utils.ErrorResponse
// @Failure 500 {object} map[string]interface{}
// @Security ApiKeyAuth
// @Router /admin/users [delete]
func (uc *UserController) DeleteUser(c *fiber.Ctx) error {
	var input DeleteUserInput
	if ok, err := utils.ParseBody(c, &input); !ok {
		return err
	}

	if self, err := utils.CurrentUserID(c); err == nil && self == input.ID {
		return utils.ValidationError(c, map[string]string{"id": "cannot delete your own account"})
	}

	if err := uc.Users.Delete(c.UserContext(), input.ID); err != nil {
		return uc.fail(c, "delete user", err)
	}
	return c.JSON(fiber.Map{"success": true})
}

type SetPasswordInput struct {
	ID          uuid.UUID `json:"id" validate:"required"`
	NewPassword string    `json:"newPassword" validate:"required,min=8"`
}

// SetPassword godoc
// @Summary Set a user's password
// @Description Replaces the password of any user
// @Tags admin
// @Accept json
// @Produce json
// @Param request body SetPasswordInput true "User and new password"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 422 {object} utils.ErrorResponse
// @Failure 500 {object} map[string]interface{}
// @Security ApiKeyAuth
// @Router /admin/users [post]
func (uc *UserController) SetPassword(c *fiber.Ctx) error {
	var input SetPasswordInput
	if ok, err := utils.ParseBody(c, &input); !ok {
		return err
	}

	if err := uc.Users.SetPassword(c.UserContext(), input.ID, input.NewPassword); err != nil {
		return uc.fail(c, "set password", err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (uc *UserController) fail(c *fiber.Ctx, op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}
	uc.Logger.Printf("%s: %v", op, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
