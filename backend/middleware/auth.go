package middleware

import (
	"errors"

	"radbank/backend/config"
	"radbank/backend/store"
	"radbank/backend/utils"

	"github.com/gofiber/fiber/v2"
)

func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := utils.ExtractClaimsFromToken(c, cfg)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		utils.SetClaims(c, claims)
		return c.Next()
	}
}

// AdminMiddleware must run after AuthMiddleware. The role claim in the token
// is not trusted; the user's current role is read from the database.
func AdminMiddleware(users *store.UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := utils.CurrentUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		admin, err := users.IsAdmin(c.UserContext(), userID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not verify role",
			})
		}
		if !admin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden - Admin access required",
			})
		}

		return c.Next()
	}
}
