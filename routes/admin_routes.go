package routes

import (
	"github.com/anjiri1684/scholarlink/handlers"
	"github.com/anjiri1684/scholarlink/middleware"
	"github.com/gofiber/fiber/v2"
)

func AdminRoutes(app *fiber.App, h *handlers.Handler, secret string) {
	api := app.Group("/api/v1")

	admin := api.Group("/admin", middleware.Protected(secret), middleware.AdminRequired())
	admin.Get("/users", h.ListUsers)
	admin.Get("/stats", h.AdminStats)
	admin.Delete("/users/:userId", h.DeleteUser)
}
