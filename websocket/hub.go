package websocket

import (
	"context"

	"github.com/anjiri1684/scholarlink/metrics"
	"github.com/anjiri1684/scholarlink/models"
	"github.com/rs/zerolog"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type Client struct {
	Email string
	Conn  Conn
}

// Event is the frame pushed to clients for every new notification.
type Event struct {
	Type         string              `json:"type"`
	Notification models.Notification `json:"notification"`
}

// Hub fans notifications out to every open connection of their recipient.
type Hub struct {
	clients    map[string]map[Conn]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan models.Notification
	done       chan struct{}
	log        zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[Conn]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan models.Notification, 256),
		done:       make(chan struct{}),
		log:        logger,
	}
}

// Register adds c to the hub. Once Run has returned the connection is
// closed instead.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		_ = c.Conn.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues n without blocking. When the queue is full the push is
// dropped; the notification itself is already stored.
func (h *Hub) Publish(n models.Notification) {
	select {
	case h.broadcast <- n:
	default:
		metrics.RecordPush(false)
		h.log.Warn().Str("notification_id", n.ID.String()).Msg("push queue full, dropping notification")
	}
}

// Run must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, conns := range h.clients {
				for conn := range conns {
					_ = conn.Close()
				}
			}
			h.clients = make(map[string]map[Conn]struct{})
			return
		case client := <-h.register:
			conns, ok := h.clients[client.Email]
			if !ok {
				conns = make(map[Conn]struct{})
				h.clients[client.Email] = conns
			}
			conns[client.Conn] = struct{}{}
			h.log.Debug().Str("email", client.Email).Int("connections", len(conns)).Msg("client registered")
		case client := <-h.unregister:
			h.remove(client.Email, client.Conn)
			h.log.Debug().Str("email", client.Email).Msg("client unregistered")
		case n := <-h.broadcast:
			for conn := range h.clients[n.RecipientEmail] {
				if err := conn.WriteJSON(Event{Type: "notification", Notification: n}); err != nil {
					h.log.Warn().Err(err).Str("email", n.RecipientEmail).Msg("push failed, closing connection")
					_ = conn.Close()
					h.remove(n.RecipientEmail, conn)
					metrics.RecordPush(false)
					continue
				}
				metrics.RecordPush(true)
			}
		}
	}
}

func (h *Hub) remove(email string, conn Conn) {
	conns, ok := h.clients[email]
	if !ok {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.clients, email)
	}
}
