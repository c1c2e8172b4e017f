package handlers

import (
	"github.com/anjiri1684/scholarlink/models"
	"github.com/anjiri1684/scholarlink/services"
	"github.com/gofiber/fiber/v2"
)

type UpdateProfileRequest struct {
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	Bio             string   `json:"bio"`
	Role            string   `json:"role"`
	Subjects        []string `json:"subjects"`
	HourlyRate      *float64 `json:"hourly_rate"`
	YearsExperience *int     `json:"years_experience"`
}

func (h *Handler) GetMe(c *fiber.Ctx) error {
	id, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	user, err := h.svc.Directory.GetUser(c.UserContext(), id.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(user)
}

// UpdateProfile completes the caller's profile and returns a fresh token,
// since the role may have changed.
func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	id, ok := currentUser(c)
	if !ok {
		return unauthorized(c)
	}
	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}

	user, err := h.svc.Directory.CompleteProfile(c.UserContext(), id.UserID, services.ProfileInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Bio:             req.Bio,
		Role:            models.Role(req.Role),
		Subjects:        req.Subjects,
		HourlyRate:      req.HourlyRate,
		YearsExperience: req.YearsExperience,
	})
	if err != nil {
		return h.fail(c, err)
	}

	token, err := h.userToken(user)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(AuthResponse{Token: token, User: user})
}
