package handlers

import (
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListUsers(c *fiber.Ctx) error {
	users, err := h.svc.Directory.ListUsers(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(users)
}

func (h *Handler) AdminStats(c *fiber.Ctx) error {
	users, err := h.svc.Directory.Stats(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	sessions, err := h.svc.Sessions.Summary(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"users": users, "sessions": sessions})
}

// DeleteUser closes the user's pending sessions, notifies the other side
// and removes the account.
func (h *Handler) DeleteUser(c *fiber.Ctx) error {
	userID, ok := paramID(c, "userId")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}
	if err := h.svc.Coordinator.RemoveUser(c.UserContext(), userID); err != nil {
		return h.fail(c, err)
	}
	h.log.Info().Str("user_id", userID.String()).Msg("user deleted by admin")
	return c.JSON(fiber.Map{"message": "User deleted"})
}
