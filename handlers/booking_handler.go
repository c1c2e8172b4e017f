package handlers

import (
	"time"

	"github.com/anjiri1684/scholarlink/database"
	"github.com/anjiri1684/scholarlink/models"
	"github.com/anjiri1684/scholarlink/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	TutorID         string `json:"tutor_id" validate:"required,uuid"`
	Subject         string `json:"subject" validate:"required"`
	RequestedAt     string `json:"requested_at" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"required"`
	Message         string `json:"message" validate:"max=1000"`
}

type SessionResponse struct {
	models.SessionRequest
	TotalCost float64 `json:"total_cost"`
}

func sessionResponse(s *models.SessionRequest) SessionResponse {
	return SessionResponse{SessionRequest: *s, TotalCost: s.TotalCost()}
}

func sessionResponses(list []models.SessionRequest) []SessionResponse {
	out := make([]SessionResponse, 0, len(list))
	for i := range list {
		out = append(out, sessionResponse(&list[i]))
	}
	return out
}

func (h *Handler) CreateSession(c *fiber.Ctx) error {
	id, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	var req CreateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(req); err != nil {
		return invalidRequest(c, err)
	}
	requestedAt, err := time.Parse(time.RFC3339, req.RequestedAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "requested_at must be an RFC3339 timestamp", "field": "requested_at"})
	}

	session, err := h.svc.Coordinator.BookSession(c.UserContext(), services.BookingInput{
		StudentID:       id.UserID,
		TutorID:         uuid.MustParse(req.TutorID),
		Subject:         req.Subject,
		RequestedAt:     requestedAt,
		DurationMinutes: req.DurationMinutes,
		Message:         req.Message,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sessionResponse(session))
}

// ListMySessions lists the caller's requests as a student, optionally by status.
func (h *Handler) ListMySessions(c *fiber.Ctx) error {
	id, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	var (
		sessions []models.SessionRequest
		err      error
	)
	switch c.Query("status") {
	case "":
		sessions, err = h.svc.Sessions.ListForStudent(c.UserContext(), id.UserID)
	case string(models.SessionAccepted):
		sessions, err = h.svc.Sessions.ListAcceptedForStudent(c.UserContext(), id.UserID)
	default:
		status := models.SessionStatus(c.Query("status"))
		if !status.Valid() {
			return badRequest(c, "Invalid status filter")
		}
		sessions, err = h.svc.Sessions.List(c.UserContext(), database.SessionFilter{StudentID: id.UserID, Status: status})
	}
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sessionResponses(sessions))
}

func (h *Handler) GetSession(c *fiber.Ctx) error {
	id, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	sessionID, ok := paramID(c, "sessionId")
	if !ok {
		return badRequest(c, "Invalid session ID")
	}
	session, err := h.svc.Sessions.Get(c.UserContext(), sessionID, id.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sessionResponse(session))
}
