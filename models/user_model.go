package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleLearner Role = "learner"
	RoleTutor   Role = "tutor"
)

func (r Role) Valid() bool {
	switch r {
	case RoleLearner, RoleTutor:
		return true
	}
	return false
}

type User struct {
	ID              uuid.UUID                   `gorm:"type:uuid;primary_key" json:"id"`
	Email           string                      `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Username        string                      `gorm:"size:100;not null" json:"username"`
	UsernameKey     string                      `gorm:"size:100;not null;uniqueIndex" json:"-"`
	Password        string                      `gorm:"not null" json:"-"`
	FirstName       string                      `gorm:"size:100" json:"first_name"`
	LastName        string                      `gorm:"size:100" json:"last_name"`
	Bio             string                      `gorm:"type:text" json:"bio"`
	Role            Role                        `gorm:"size:20;not null;default:'learner'" json:"role"`
	ProfileComplete bool                        `gorm:"not null;default:false" json:"profile_complete"`
	Subjects        datatypes.JSONSlice[string] `json:"subjects"`
	HourlyRate      *float64                    `gorm:"type:numeric(10,2)" json:"hourly_rate,omitempty"`
	YearsExperience *int                        `json:"years_experience,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// FullName falls back to the username until the profile has been filled in.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

func (u *User) IsTutor() bool {
	return u.Role == RoleTutor
}

func (u *User) OffersSubject(subject string) bool {
	for _, s := range u.Subjects {
		if s == subject {
			return true
		}
	}
	return false
}

// FoldUsername returns the case-folded form used for uniqueness and lookup.
func FoldUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
