package models

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionPending  SessionStatus = "pending"
	SessionAccepted SessionStatus = "accepted"
	SessionRejected SessionStatus = "rejected"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionPending, SessionAccepted, SessionRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s SessionStatus) Terminal() bool {
	return s == SessionAccepted || s == SessionRejected
}

// SupportedDurations lists the bookable session lengths in minutes.
var SupportedDurations = []int{30, 60, 90, 120}

func ValidDuration(minutes int) bool {
	for _, d := range SupportedDurations {
		if d == minutes {
			return true
		}
	}
	return false
}

type SessionRequest struct {
	ID              uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	StudentID       uuid.UUID     `gorm:"type:uuid;not null;index" json:"student_id"`
	TutorID         uuid.UUID     `gorm:"type:uuid;not null;index" json:"tutor_id"`
	Subject         string        `gorm:"size:100;not null" json:"subject"`
	RequestedAt     time.Time     `gorm:"not null;index" json:"requested_at"`
	DurationMinutes int           `gorm:"not null" json:"duration_minutes"`
	Message         string        `gorm:"type:text" json:"message"`
	HourlyRate      float64       `gorm:"type:numeric(10,2);not null" json:"hourly_rate"`
	Status          SessionStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TotalCost is the snapshot rate applied to the booked duration.
func (s *SessionRequest) TotalCost() float64 {
	return s.HourlyRate * float64(s.DurationMinutes) / 60
}

func (s *SessionRequest) Involves(userID uuid.UUID) bool {
	return s.StudentID == userID || s.TutorID == userID
}
