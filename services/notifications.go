package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/anjiri1684/scholarlink/database"
	"github.com/anjiri1684/scholarlink/metrics"
	"github.com/anjiri1684/scholarlink/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EmailSender delivers one HTML message.
type EmailSender interface {
	Send(ctx context.Context, toEmail, toName, subject, htmlContent string) error
}

// NotificationCenter records user-facing events and their read state.
type NotificationCenter struct {
	store        database.Store
	publisher    Publisher
	emailEnabled bool
	log          zerolog.Logger
	now          func() time.Time
}

type NotifyInput struct {
	Type          models.NotificationType
	Recipient     string
	RecipientName string
	Title         string
	Message       string
	SessionID     *uuid.UUID
}

// Notify records a notification and pushes it once committed.
func (c *NotificationCenter) Notify(ctx context.Context, in NotifyInput) (*models.Notification, error) {
	var n *models.Notification
	err := c.store.Transaction(ctx, func(tx database.Store) error {
		var err error
		n, err = c.create(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, storage("services.NotificationCenter.Notify", err)
	}
	c.Publish(*n)
	return n, nil
}

// defaultTitles fill in a notification sent without a title.
var defaultTitles = map[models.NotificationType]string{
	models.NotificationSessionRequest:  "New Session Request",
	models.NotificationSessionAccepted: "Session Accepted! 🎉",
	models.NotificationSessionRejected: "Session Request Declined",
	models.NotificationGeneral:         "Notification",
}

// create writes the notification, plus its email outbox row when mail is
// configured, inside tx.
func (c *NotificationCenter) create(ctx context.Context, tx database.Store, in NotifyInput) (*models.Notification, error) {
	in.Recipient = models.NormalizeEmail(in.Recipient)
	switch {
	case !in.Type.Valid():
		return nil, invalid("type", "unknown notification type %q", in.Type)
	case in.Recipient == "":
		return nil, invalid("recipient_email", "is required")
	}
	if in.Title = strings.TrimSpace(in.Title); in.Title == "" {
		in.Title = defaultTitles[in.Type]
	}

	n := &models.Notification{
		Title:          in.Title,
		Message:        in.Message,
		Type:           in.Type,
		RecipientEmail: in.Recipient,
		SessionID:      in.SessionID,
		CreatedAt:      c.now(),
	}
	if err := tx.Notifications().Create(ctx, n); err != nil {
		return nil, err
	}

	if c.emailEnabled {
		delivery := &models.EmailDelivery{
			NotificationID: n.ID,
			Recipient:      n.RecipientEmail,
			RecipientName:  in.RecipientName,
			Subject:        n.Title,
			Body:           fmt.Sprintf("<h1>%s</h1><p>%s</p>", html.EscapeString(n.Title), html.EscapeString(n.Message)),
		}
		if err := tx.Emails().Enqueue(ctx, delivery); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Publish pushes committed notifications to live connections. Delivery is
// best effort; the records are already listable.
func (c *NotificationCenter) Publish(list ...models.Notification) {
	for _, n := range list {
		metrics.RecordNotification(string(n.Type))
		if c.publisher != nil {
			c.publisher.Publish(n)
		}
	}
}

func (c *NotificationCenter) list(ctx context.Context, op string, filter database.NotificationFilter) ([]models.Notification, error) {
	filter.Recipient = models.NormalizeEmail(filter.Recipient)
	list, err := c.store.Notifications().List(ctx, filter)
	if err != nil {
		return nil, storage(op, err)
	}
	return list, nil
}

// ListFor returns the recipient's notifications newest first.
func (c *NotificationCenter) ListFor(ctx context.Context, recipient string) ([]models.Notification, error) {
	return c.list(ctx, "services.NotificationCenter.ListFor", database.NotificationFilter{Recipient: recipient})
}

func (c *NotificationCenter) UnreadFor(ctx context.Context, recipient string) ([]models.Notification, error) {
	return c.list(ctx, "services.NotificationCenter.UnreadFor", database.NotificationFilter{Recipient: recipient, UnreadOnly: true})
}

func (c *NotificationCenter) UnreadCount(ctx context.Context, recipient string) (int64, error) {
	n, err := c.store.Notifications().Count(ctx, database.NotificationFilter{
		Recipient:  models.NormalizeEmail(recipient),
		UnreadOnly: true,
	})
	if err != nil {
		return 0, storage("services.NotificationCenter.UnreadCount", err)
	}
	return n, nil
}

// MarkRead is idempotent. Unknown ids report ErrNotFound.
func (c *NotificationCenter) MarkRead(ctx context.Context, id uuid.UUID) error {
	return storage("services.NotificationCenter.MarkRead", c.store.Notifications().MarkRead(ctx, id))
}

// MarkReadFor is MarkRead restricted to the notification's recipient.
func (c *NotificationCenter) MarkReadFor(ctx context.Context, id uuid.UUID, recipient string) error {
	const op = "services.NotificationCenter.MarkReadFor"
	n, err := c.store.Notifications().FindByID(ctx, id)
	if err != nil {
		return storage(op, err)
	}
	if n.RecipientEmail != models.NormalizeEmail(recipient) {
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	}
	if n.Read {
		return nil
	}
	return c.MarkRead(ctx, id)
}

func (c *NotificationCenter) MarkAllReadFor(ctx context.Context, recipient string) (int64, error) {
	updated, err := c.store.Notifications().MarkAllRead(ctx, models.NormalizeEmail(recipient))
	if err != nil {
		return 0, storage("services.NotificationCenter.MarkAllReadFor", err)
	}
	return updated, nil
}

// DeliverPendingEmails drains up to batch outbox rows through sender.
// Failed rows keep their place and are retried until maxAttempts.
func (c *NotificationCenter) DeliverPendingEmails(ctx context.Context, sender EmailSender, batch, maxAttempts int) (int, error) {
	const op = "services.NotificationCenter.DeliverPendingEmails"
	if sender == nil {
		return 0, nil
	}
	pending, err := c.store.Emails().Pending(ctx, maxAttempts, batch)
	if err != nil {
		return 0, storage(op, err)
	}

	sent := 0
	for i := range pending {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		d := &pending[i]
		d.Attempts++
		sendErr := sender.Send(ctx, d.Recipient, d.RecipientName, d.Subject, d.Body)
		metrics.RecordEmail(sendErr)
		if sendErr != nil {
			msg := sendErr.Error()
			d.LastError = &msg
			c.log.Warn().Err(sendErr).Str("delivery_id", d.ID.String()).Int("attempts", d.Attempts).Msg("email delivery failed")
		} else {
			at := c.now()
			d.DeliveredAt = &at
			d.LastError = nil
			sent++
		}
		if err := c.store.Emails().Save(ctx, d); err != nil {
			return sent, storage(op, err)
		}
		if d.DeliveredAt == nil && d.Attempts >= maxAttempts {
			c.log.Error().Str("delivery_id", d.ID.String()).Str("recipient", d.Recipient).Msg("email delivery abandoned")
		}
	}
	return sent, nil
}

// hasNotification reports whether recipient already holds a notification
// of kind for the session.
func hasNotification(ctx context.Context, tx database.Store, recipient string, kind models.NotificationType, sessionID uuid.UUID) (bool, error) {
	n, err := tx.Notifications().Count(ctx, database.NotificationFilter{
		Recipient: models.NormalizeEmail(recipient),
		Type:      kind,
		SessionID: &sessionID,
	})
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return false, err
	}
	return n > 0, nil
}
