package handlers

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/anjiri1684/scholarlink/middleware"
	"github.com/anjiri1684/scholarlink/models"
	"github.com/anjiri1684/scholarlink/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Username        string `json:"username" validate:"required,min=3"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"omitempty,eqfield=Password"`
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Password   string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user,omitempty"`
}

// invalidRequest reports the first failing field of a request struct.
func invalidRequest(c *fiber.Ctx, err error) error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		fe := errs[0]
		field := fe.Field()
		if fe.Tag() == "eqfield" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Passwords do not match", "field": field})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid value for " + field, "field": field})
	}
	return badRequest(c, err.Error())
}

func (h *Handler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if err := validate.Struct(req); err != nil {
		return invalidRequest(c, err)
	}

	user, err := h.svc.Directory.Register(c.UserContext(), services.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return h.fail(c, err)
	}

	token, err := h.userToken(user)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(AuthResponse{Token: token, User: user})
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Email)
	}
	if identifier == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email or username and password are required"})
	}

	if h.isAdmin(identifier, req.Password) {
		token, err := h.issueToken("", h.cfg.AdminEmail, middleware.RoleAdmin)
		if err != nil {
			return h.fail(c, err)
		}
		h.log.Info().Str("email", h.cfg.AdminEmail).Msg("admin logged in")
		return c.JSON(AuthResponse{Token: token})
	}

	user, err := h.svc.Directory.Authenticate(c.UserContext(), identifier, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	token, err := h.userToken(user)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(AuthResponse{Token: token, User: user})
}

func (h *Handler) isAdmin(identifier, password string) bool {
	if h.cfg.AdminEmail == "" || h.cfg.AdminPassword == "" {
		return false
	}
	emailMatch := strings.EqualFold(identifier, h.cfg.AdminEmail)
	passMatch := subtle.ConstantTimeCompare([]byte(password), []byte(h.cfg.AdminPassword)) == 1
	return emailMatch && passMatch
}
