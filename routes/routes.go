package routes

import (
	"github.com/anjiri1684/scholarlink/handlers"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Setup mounts every route group on app.
func Setup(app *fiber.App, h *handlers.Handler, secret string) {
	app.Get("/health", h.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	AuthRoutes(app, h)
	ProfileRoutes(app, h, secret)
	TutorRoutes(app, h, secret)
	SessionRoutes(app, h, secret)
	NotificationRoutes(app, h, secret)
	AdminRoutes(app, h, secret)
}
