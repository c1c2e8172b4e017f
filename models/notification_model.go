package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationSessionRequest  NotificationType = "session_request"
	NotificationSessionAccepted NotificationType = "session_accepted"
	NotificationSessionRejected NotificationType = "session_rejected"
	NotificationGeneral         NotificationType = "general"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationSessionRequest, NotificationSessionAccepted, NotificationSessionRejected, NotificationGeneral:
		return true
	}
	return false
}

// Notification is addressed to a recipient email; only Read ever changes.
type Notification struct {
	ID             uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	Title          string           `gorm:"size:255;not null" json:"title"`
	Message        string           `gorm:"type:text;not null" json:"message"`
	Type           NotificationType `gorm:"size:32;not null;index" json:"type"`
	RecipientEmail string           `gorm:"size:255;not null;index" json:"recipient_email"`
	SessionID      *uuid.UUID       `gorm:"type:uuid;index" json:"session_id,omitempty"`
	Read           bool             `gorm:"column:is_read;not null;default:false" json:"read"`

	CreatedAt time.Time `json:"created_at"`
}

// EmailDelivery is an outbox row written alongside a notification and
// drained by the delivery job.
type EmailDelivery struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key"`
	NotificationID uuid.UUID  `gorm:"type:uuid;not null;index"`
	Recipient      string     `gorm:"size:255;not null"`
	RecipientName  string     `gorm:"size:255"`
	Subject        string     `gorm:"size:255;not null"`
	Body           string     `gorm:"type:text;not null"`
	Attempts       int        `gorm:"not null;default:0"`
	LastError      *string    `gorm:"type:text"`
	DeliveredAt    *time.Time `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
