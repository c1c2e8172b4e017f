package handlers

import (
	"strconv"

	"github.com/anjiri1684/scholarlink/database"
	"github.com/anjiri1684/scholarlink/models"
	"github.com/anjiri1684/scholarlink/services"
	"github.com/gofiber/fiber/v2"
)

// ListTutors serves the public tutor directory. Only complete profiles are
// listed unless include_incomplete=true.
func (h *Handler) ListTutors(c *fiber.Ctx) error {
	var (
		tutors []models.User
		err    error
	)
	if subject := c.Query("subject"); subject != "" {
		tutors, err = h.svc.Directory.TutorsBySubject(c.UserContext(), subject)
	} else {
		includeIncomplete, _ := strconv.ParseBool(c.Query("include_incomplete", "false"))
		tutors, err = h.svc.Directory.ListTutors(c.UserContext(), !includeIncomplete)
	}
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(tutors)
}

func (h *Handler) GetTutor(c *fiber.Ctx) error {
	tutorID, ok := paramID(c, "tutorId")
	if !ok {
		return badRequest(c, "Invalid tutor ID")
	}
	tutor, err := h.svc.Directory.GetTutor(c.UserContext(), tutorID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(tutor)
}

func (h *Handler) ListSubjects(c *fiber.Ctx) error {
	catalog, err := h.svc.Directory.SubjectCatalog(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(catalog)
}

func (h *Handler) ListTutorSessions(c *fiber.Ctx) error {
	id, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	var (
		sessions []models.SessionRequest
		err      error
	)
	switch status := models.SessionStatus(c.Query("status")); {
	case status == "":
		sessions, err = h.svc.Sessions.ListForTutor(c.UserContext(), id.UserID)
	case status == models.SessionPending:
		sessions, err = h.svc.Sessions.ListPendingForTutor(c.UserContext(), id.UserID)
	case status.Valid():
		sessions, err = h.svc.Sessions.List(c.UserContext(), database.SessionFilter{TutorID: id.UserID, Status: status})
	default:
		return badRequest(c, "Invalid status filter")
	}
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sessionResponses(sessions))
}

func (h *Handler) TutorSummary(c *fiber.Ctx) error {
	id, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	summary, err := h.svc.Sessions.SummaryForTutor(c.UserContext(), id.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(summary)
}

func (h *Handler) AcceptSession(c *fiber.Ctx) error {
	return h.respond(c, services.DecisionAccept)
}

func (h *Handler) RejectSession(c *fiber.Ctx) error {
	return h.respond(c, services.DecisionReject)
}

func (h *Handler) respond(c *fiber.Ctx, decision services.Decision) error {
	id, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	sessionID, ok := paramID(c, "sessionId")
	if !ok {
		return badRequest(c, "Invalid session ID")
	}
	session, err := h.svc.Coordinator.Respond(c.UserContext(), sessionID, id.UserID, decision)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sessionResponse(session))
}
