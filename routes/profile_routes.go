package routes

import (
	"github.com/anjiri1684/scholarlink/handlers"
	"github.com/anjiri1684/scholarlink/middleware"
	"github.com/gofiber/fiber/v2"
)

func ProfileRoutes(app *fiber.App, h *handlers.Handler, secret string) {
	api := app.Group("/api/v1")

	profile := api.Group("/profile", middleware.Protected(secret), middleware.UserRequired())
	profile.Get("/me", h.GetMe)
	profile.Put("/me", h.UpdateProfile)
}
