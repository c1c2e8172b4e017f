package database

import (
	"context"
	"errors"
	"time"

	"github.com/anjiri1684/scholarlink/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict covers unique violations and conditional updates that lost.
	ErrConflict = errors.New("record conflict")
)

// SessionFilter narrows session listings. Zero values mean "any".
type SessionFilter struct {
	StudentID uuid.UUID
	TutorID   uuid.UUID
	// Participant matches sessions where the user is either student or tutor.
	Participant uuid.UUID
	Status      models.SessionStatus
	// From and To bound RequestedAt as [From, To).
	From time.Time
	To   time.Time
}

type NotificationFilter struct {
	Recipient  string
	UnreadOnly bool
	Type       models.NotificationType
	SessionID  *uuid.UUID
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	// List returns live users in insertion order.
	List(ctx context.Context) ([]models.User, error)
	ListByRole(ctx context.Context, role models.Role, onlyComplete bool) ([]models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.SessionRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.SessionRequest, error)
	// FindByIDForUpdate locks the row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.SessionRequest, error)
	// UpdateStatus moves a session from one status to another and fails with
	// ErrConflict when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.SessionStatus) error
	// List returns matching sessions in insertion order.
	List(ctx context.Context, filter SessionFilter) ([]models.SessionRequest, error)
	Count(ctx context.Context, filter SessionFilter) (int64, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	// List returns matching notifications newest first.
	List(ctx context.Context, filter NotificationFilter) ([]models.Notification, error)
	Count(ctx context.Context, filter NotificationFilter) (int64, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, recipient string) (int64, error)
}

type EmailRepository interface {
	Enqueue(ctx context.Context, d *models.EmailDelivery) error
	// Pending returns undelivered rows with fewer than maxAttempts attempts, oldest first.
	Pending(ctx context.Context, maxAttempts, limit int) ([]models.EmailDelivery, error)
	Save(ctx context.Context, d *models.EmailDelivery) error
}

// Store groups the record collections behind one transactional boundary.
type Store interface {
	Users() UserRepository
	Sessions() SessionRepository
	Notifications() NotificationRepository
	Emails() EmailRepository
	// Transaction runs fn against a Store bound to a single transaction.
	// Any error returned by fn rolls every write back.
	Transaction(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error
	Close() error
}
