package handlers

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/anjiri1684/scholarlink/middleware"
	"github.com/anjiri1684/scholarlink/models"
	"github.com/anjiri1684/scholarlink/services"
	"github.com/anjiri1684/scholarlink/websocket"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

type Config struct {
	JWTSecret     string
	TokenTTL      time.Duration
	AdminEmail    string
	AdminPassword string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	svc *services.Services
	hub *websocket.Hub
	db  Pinger
	cfg Config
	log zerolog.Logger
}

func New(svc *services.Services, hub *websocket.Hub, db Pinger, cfg Config, logger zerolog.Logger) *Handler {
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 72 * time.Hour
	}
	return &Handler{svc: svc, hub: hub, db: db, cfg: cfg, log: logger}
}

func (h *Handler) issueToken(userID, email, role string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"role":    role,
		"exp":     time.Now().Add(h.cfg.TokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.JWTSecret))
}

func (h *Handler) userToken(u *models.User) (string, error) {
	return h.issueToken(u.ID.String(), u.Email, string(u.Role))
}

// fail writes the JSON error response for err.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, services.ErrDuplicateEmail):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "This email is already registered."})
	case errors.Is(err, services.ErrDuplicateUsername):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "This username is already taken."})
	case errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email/username or password"})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not allowed to do that"})
	case errors.Is(err, services.ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "This session has already been answered"})
	}
	h.log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}

func currentUser(c *fiber.Ctx) (middleware.Identity, bool) {
	id, err := middleware.CurrentUser(c)
	return id, err == nil
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired JWT"})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

func (h *Handler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.log.Error().Err(err).Msg("health check failed")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
