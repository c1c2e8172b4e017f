package routes

import (
	"github.com/anjiri1684/scholarlink/handlers"
	"github.com/anjiri1684/scholarlink/middleware"
	"github.com/gofiber/fiber/v2"
)

func TutorRoutes(app *fiber.App, h *handlers.Handler, secret string) {
	api := app.Group("/api/v1")

	api.Get("/tutors", h.ListTutors)
	api.Get("/tutors/:tutorId", h.GetTutor)
	api.Get("/subjects", h.ListSubjects)

	// Guards are attached per route: a "/tutor" group would also match
	// the public "/tutors" prefix.
	protected := middleware.Protected(secret)
	tutorOnly := middleware.TutorRequired()

	tutor := api.Group("/tutor")
	tutor.Get("/sessions", protected, tutorOnly, h.ListTutorSessions)
	tutor.Get("/sessions/summary", protected, tutorOnly, h.TutorSummary)
	tutor.Post("/sessions/:sessionId/accept", protected, tutorOnly, h.AcceptSession)
	tutor.Post("/sessions/:sessionId/reject", protected, tutorOnly, h.RejectSession)
}
