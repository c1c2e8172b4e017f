package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware-secret"

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func userClaims(role string) jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": uuid.NewString(),
		"email":   "someone@example.com",
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
}

func newApp(guard fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/", Protected(secret), guard, func(c *fiber.Ctx) error {
		id, err := CurrentUser(c)
		if err != nil {
			return err
		}
		return c.SendString(id.Role)
	})
	return app
}

func get(t *testing.T, app *fiber.App, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestClaimsIdentity(t *testing.T) {
	claims := userClaims("tutor")
	id, err := ClaimsIdentity(claims)
	require.NoError(t, err)
	assert.Equal(t, claims["user_id"], id.UserID.String())
	assert.Equal(t, "tutor", id.Role)
	assert.False(t, id.IsAdmin())

	admin, err := ClaimsIdentity(jwt.MapClaims{"role": RoleAdmin, "email": "admin@example.com"})
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.Equal(t, uuid.Nil, admin.UserID)

	_, err = ClaimsIdentity(jwt.MapClaims{"role": "learner", "user_id": "nope"})
	assert.Error(t, err)
	_, err = ClaimsIdentity(jwt.MapClaims{"user_id": uuid.NewString()})
	assert.Error(t, err)
}

func TestProtected(t *testing.T) {
	app := newApp(func(c *fiber.Ctx) error { return c.Next() })

	assert.Equal(t, http.StatusBadRequest, get(t, app, ""))
	assert.Equal(t, http.StatusOK, get(t, app, sign(t, userClaims("learner"))))

	expired := userClaims("learner")
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	assert.Equal(t, http.StatusUnauthorized, get(t, app, sign(t, expired)))

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, userClaims("learner")).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(t, app, forged))
}

func TestRoleGuards(t *testing.T) {
	adminToken := sign(t, jwt.MapClaims{"role": RoleAdmin, "email": "admin@example.com", "exp": time.Now().Add(time.Hour).Unix()})
	tutorToken := sign(t, userClaims("tutor"))
	learnerToken := sign(t, userClaims("learner"))

	tests := []struct {
		name  string
		guard fiber.Handler
		token string
		want  int
	}{
		{"admin allowed", AdminRequired(), adminToken, http.StatusOK},
		{"tutor not admin", AdminRequired(), tutorToken, http.StatusForbidden},
		{"tutor allowed", TutorRequired(), tutorToken, http.StatusOK},
		{"learner not tutor", TutorRequired(), learnerToken, http.StatusForbidden},
		{"learner is user", UserRequired(), learnerToken, http.StatusOK},
		{"admin is not user", UserRequired(), adminToken, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, get(t, newApp(tt.guard), tt.token))
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	app.Use(requestid.New())
	app.Use(RequestLogger(zerolog.New(&buf)))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/boom", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusBadGateway, "upstream") })

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.NoError(t, err)
	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))

	assert.Equal(t, "info", first["level"])
	assert.Equal(t, "/ok", first["path"])
	assert.EqualValues(t, 200, first["status"])
	assert.NotEmpty(t, first["request_id"])

	assert.Equal(t, "error", second["level"])
	assert.EqualValues(t, 502, second["status"])
}
