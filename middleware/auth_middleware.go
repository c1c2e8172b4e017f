package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const RoleAdmin = "admin"

// Identity is the caller as described by their token.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

var errBadClaims = errors.New("token claims are malformed")

func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing or malformed JWT"})
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired JWT"})
}

// ClaimsIdentity reads the identity out of verified token claims.
func ClaimsIdentity(claims jwt.MapClaims) (Identity, error) {
	role, _ := claims["role"].(string)
	email, _ := claims["email"].(string)
	if role == "" {
		return Identity{}, errBadClaims
	}
	id := Identity{Email: email, Role: role}
	if role == RoleAdmin {
		return id, nil
	}
	raw, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(raw)
	if err != nil {
		return Identity{}, errBadClaims
	}
	id.UserID = userID
	return id, nil
}

// CurrentUser returns the identity set by Protected.
func CurrentUser(c *fiber.Ctx) (Identity, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return Identity{}, errBadClaims
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errBadClaims
	}
	return ClaimsIdentity(claims)
}

func requireRole(role, message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := CurrentUser(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired JWT"})
		}
		if id.Role != role {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": message})
		}
		return c.Next()
	}
}

func AdminRequired() fiber.Handler {
	return requireRole(RoleAdmin, "Forbidden: Admin access required")
}

func TutorRequired() fiber.Handler {
	return requireRole("tutor", "Forbidden: Tutor access required")
}

// UserRequired rejects the configured administrator, who has no user record.
func UserRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := CurrentUser(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired JWT"})
		}
		if id.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden: user account required"})
		}
		return c.Next()
	}
}
