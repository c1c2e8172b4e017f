package routes

import (
	"github.com/anjiri1684/scholarlink/handlers"
	"github.com/anjiri1684/scholarlink/middleware"
	"github.com/gofiber/fiber/v2"
)

func SessionRoutes(app *fiber.App, h *handlers.Handler, secret string) {
	api := app.Group("/api/v1")

	sessions := api.Group("/sessions", middleware.Protected(secret), middleware.UserRequired())
	sessions.Post("", h.CreateSession)
	sessions.Get("/me", h.ListMySessions)
	sessions.Get("/:sessionId", h.GetSession)
}
