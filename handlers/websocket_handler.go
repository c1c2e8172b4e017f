package handlers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/anjiri1684/scholarlink/middleware"
	"github.com/anjiri1684/scholarlink/services"
	"github.com/anjiri1684/scholarlink/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

type authMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// clientMessage is a frame sent by a connected client.
type clientMessage struct {
	Type           string `json:"type"`
	NotificationID string `json:"notification_id"`
}

// lockedConn serializes writes: the hub and the read loop both write.
type lockedConn struct {
	mu   sync.Mutex
	conn *websocketcontrib.Conn
}

func (l *lockedConn) WriteJSON(v interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.WriteJSON(v)
}

func (l *lockedConn) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.Close()
}

// ServeWs authenticates the connection with its first frame, then streams
// the caller's new notifications until the socket closes.
func (h *Handler) ServeWs(c *websocketcontrib.Conn) {
	conn := &lockedConn{conn: c}

	var auth authMessage
	if err := c.ReadJSON(&auth); err != nil || auth.Type != "auth" {
		h.log.Warn().Err(err).Msg("websocket auth failed: invalid or missing auth message")
		_ = conn.WriteJSON(fiber.Map{"error": "Invalid or missing auth message"})
		_ = conn.Close()
		return
	}

	id, err := h.parseToken(auth.Token)
	if err != nil || id.IsAdmin() {
		h.log.Warn().Err(err).Msg("websocket auth failed: invalid token")
		_ = conn.WriteJSON(fiber.Map{"error": "Invalid token"})
		_ = conn.Close()
		return
	}

	client := &websocket.Client{Email: id.Email, Conn: conn}
	h.hub.Register(client)
	h.log.Debug().Str("user_id", id.UserID.String()).Msg("websocket client registered")
	defer func() {
		h.hub.Unregister(client)
		_ = conn.Close()
	}()
	_ = conn.WriteJSON(fiber.Map{"type": "ready"})

	for {
		var msg clientMessage
		if err := c.ReadJSON(&msg); err != nil {
			if !websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseNormalClosure) {
				h.log.Debug().Err(err).Str("user_id", id.UserID.String()).Msg("websocket read error")
			}
			return
		}
		h.handleClientMessage(conn, id, msg)
	}
}

func (h *Handler) handleClientMessage(conn *lockedConn, id middleware.Identity, msg clientMessage) {
	ctx := context.Background()
	switch msg.Type {
	case "mark_read":
		notificationID, err := uuid.Parse(msg.NotificationID)
		if err != nil {
			_ = conn.WriteJSON(fiber.Map{"error": "Invalid notification ID"})
			return
		}
		if err := h.svc.Notifications.MarkReadFor(ctx, notificationID, id.Email); err != nil {
			_ = conn.WriteJSON(fiber.Map{"error": h.socketError(err)})
			return
		}
		_ = conn.WriteJSON(fiber.Map{"type": "marked_read", "notification_id": notificationID})
	case "mark_all_read":
		updated, err := h.svc.Notifications.MarkAllReadFor(ctx, id.Email)
		if err != nil {
			_ = conn.WriteJSON(fiber.Map{"error": h.socketError(err)})
			return
		}
		_ = conn.WriteJSON(fiber.Map{"type": "marked_all_read", "updated": updated})
	default:
		_ = conn.WriteJSON(fiber.Map{"error": "Unknown message type"})
	}
}

func (h *Handler) socketError(err error) string {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return "Not found"
	case errors.Is(err, services.ErrForbidden):
		return "You are not allowed to do that"
	}
	h.log.Error().Err(err).Msg("websocket request failed")
	return "Internal server error"
}

func (h *Handler) parseToken(tokenString string) (middleware.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.cfg.JWTSecret), nil
	})
	if err != nil {
		return middleware.Identity{}, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return middleware.Identity{}, errors.New("invalid token")
	}
	return middleware.ClaimsIdentity(claims)
}
