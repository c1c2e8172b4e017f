package handlers

import (
	"strconv"

	"github.com/anjiri1684/scholarlink/models"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListNotifications(c *fiber.Ctx) error {
	id, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	unread, _ := strconv.ParseBool(c.Query("unread", "false"))

	var (
		list []models.Notification
		err  error
	)
	if unread {
		list, err = h.svc.Notifications.UnreadFor(c.UserContext(), id.Email)
	} else {
		list, err = h.svc.Notifications.ListFor(c.UserContext(), id.Email)
	}
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(list)
}

func (h *Handler) UnreadCount(c *fiber.Ctx) error {
	id, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	count, err := h.svc.Notifications.UnreadCount(c.UserContext(), id.Email)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}

func (h *Handler) MarkNotificationRead(c *fiber.Ctx) error {
	id, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	notificationID, ok := paramID(c, "notificationId")
	if !ok {
		return badRequest(c, "Invalid notification ID")
	}
	if err := h.svc.Notifications.MarkReadFor(c.UserContext(), notificationID, id.Email); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Notification marked as read"})
}

func (h *Handler) MarkAllNotificationsRead(c *fiber.Ctx) error {
	id, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	updated, err := h.svc.Notifications.MarkAllReadFor(c.UserContext(), id.Email)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"updated": updated})
}
