package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anjiri1684/scholarlink/database"
	"github.com/anjiri1684/scholarlink/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionStore owns booking requests and their status.
type SessionStore struct {
	store database.Store
	log   zerolog.Logger
	now   func() time.Time
}

type CreateSessionInput struct {
	StudentID       uuid.UUID
	TutorID         uuid.UUID
	Subject         string
	RequestedAt     time.Time
	DurationMinutes int
	Message         string
	HourlyRate      float64
}

type SessionSummary struct {
	Pending  int64 `json:"pending"`
	Accepted int64 `json:"accepted"`
	Rejected int64 `json:"rejected"`
	Total    int64 `json:"total"`
}

// CreateRequest records a new pending request. The hourly rate is stored
// as given and never re-read from the tutor.
func (s *SessionStore) CreateRequest(ctx context.Context, in CreateSessionInput) (*models.SessionRequest, error) {
	session, err := s.createRequest(ctx, s.store, in)
	if err != nil {
		return nil, storage("services.SessionStore.CreateRequest", err)
	}
	return session, nil
}

func (s *SessionStore) createRequest(ctx context.Context, store database.Store, in CreateSessionInput) (*models.SessionRequest, error) {
	in.Subject = strings.TrimSpace(in.Subject)
	switch {
	case in.StudentID == uuid.Nil:
		return nil, invalid("student_id", "is required")
	case in.TutorID == uuid.Nil:
		return nil, invalid("tutor_id", "is required")
	case in.Subject == "":
		return nil, invalid("subject", "is required")
	case in.RequestedAt.IsZero():
		return nil, invalid("requested_at", "is required")
	case in.RequestedAt.Before(s.now()):
		return nil, invalid("requested_at", "must not be in the past")
	case !models.ValidDuration(in.DurationMinutes):
		return nil, invalid("duration_minutes", "must be one of %v", models.SupportedDurations)
	case in.HourlyRate <= 0:
		return nil, invalid("hourly_rate", "must be greater than zero")
	}

	session := &models.SessionRequest{
		StudentID:       in.StudentID,
		TutorID:         in.TutorID,
		Subject:         in.Subject,
		RequestedAt:     in.RequestedAt.UTC(),
		DurationMinutes: in.DurationMinutes,
		Message:         strings.TrimSpace(in.Message),
		HourlyRate:      in.HourlyRate,
		Status:          models.SessionPending,
	}
	if err := store.Sessions().Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionStore) list(ctx context.Context, op string, filter database.SessionFilter) ([]models.SessionRequest, error) {
	sessions, err := s.store.Sessions().List(ctx, filter)
	if err != nil {
		return nil, storage(op, err)
	}
	return sessions, nil
}

func (s *SessionStore) ListForStudent(ctx context.Context, studentID uuid.UUID) ([]models.SessionRequest, error) {
	return s.list(ctx, "services.SessionStore.ListForStudent", database.SessionFilter{StudentID: studentID})
}

func (s *SessionStore) ListForTutor(ctx context.Context, tutorID uuid.UUID) ([]models.SessionRequest, error) {
	return s.list(ctx, "services.SessionStore.ListForTutor", database.SessionFilter{TutorID: tutorID})
}

func (s *SessionStore) ListPendingForTutor(ctx context.Context, tutorID uuid.UUID) ([]models.SessionRequest, error) {
	return s.list(ctx, "services.SessionStore.ListPendingForTutor", database.SessionFilter{TutorID: tutorID, Status: models.SessionPending})
}

func (s *SessionStore) ListAcceptedForStudent(ctx context.Context, studentID uuid.UUID) ([]models.SessionRequest, error) {
	return s.list(ctx, "services.SessionStore.ListAcceptedForStudent", database.SessionFilter{StudentID: studentID, Status: models.SessionAccepted})
}

// List is the general form behind the named projections.
func (s *SessionStore) List(ctx context.Context, filter database.SessionFilter) ([]models.SessionRequest, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalid("status", "unknown session status %q", filter.Status)
	}
	return s.list(ctx, "services.SessionStore.List", filter)
}

// Get returns a session visible to its student or tutor only.
func (s *SessionStore) Get(ctx context.Context, sessionID, viewerID uuid.UUID) (*models.SessionRequest, error) {
	const op = "services.SessionStore.Get"
	session, err := s.store.Sessions().FindByID(ctx, sessionID)
	if err != nil {
		return nil, storage(op, err)
	}
	if !session.Involves(viewerID) {
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}
	return session, nil
}

func (s *SessionStore) Accept(ctx context.Context, sessionID, actingTutorID uuid.UUID) (*models.SessionRequest, error) {
	return s.respond(ctx, "services.SessionStore.Accept", sessionID, actingTutorID, models.SessionAccepted)
}

func (s *SessionStore) Reject(ctx context.Context, sessionID, actingTutorID uuid.UUID) (*models.SessionRequest, error) {
	return s.respond(ctx, "services.SessionStore.Reject", sessionID, actingTutorID, models.SessionRejected)
}

func (s *SessionStore) respond(ctx context.Context, op string, sessionID, actingTutorID uuid.UUID, to models.SessionStatus) (*models.SessionRequest, error) {
	var session *models.SessionRequest
	err := s.store.Transaction(ctx, func(tx database.Store) error {
		var err error
		session, err = s.transition(ctx, tx, sessionID, actingTutorID, to)
		return err
	})
	if err != nil {
		return nil, storage(op, err)
	}
	return session, nil
}

// transition moves a pending session owned by actingTutorID to status to.
func (s *SessionStore) transition(ctx context.Context, tx database.Store, sessionID, actingTutorID uuid.UUID, to models.SessionStatus) (*models.SessionRequest, error) {
	session, err := tx.Sessions().FindByIDForUpdate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.TutorID != actingTutorID {
		return nil, ErrForbidden
	}
	return s.close(ctx, tx, session, to)
}

func (s *SessionStore) close(ctx context.Context, tx database.Store, session *models.SessionRequest, to models.SessionStatus) (*models.SessionRequest, error) {
	if session.Status.Terminal() || !to.Terminal() {
		return nil, fmt.Errorf("session is %s: %w", session.Status, ErrInvalidTransition)
	}
	if err := tx.Sessions().UpdateStatus(ctx, session.ID, models.SessionPending, to); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}
	session.Status = to
	session.UpdatedAt = s.now()
	s.log.Info().Str("session_id", session.ID.String()).Str("status", string(to)).Msg("session status changed")
	return session, nil
}

func (s *SessionStore) summary(ctx context.Context, op string, base database.SessionFilter) (SessionSummary, error) {
	var out SessionSummary
	for _, status := range []models.SessionStatus{models.SessionPending, models.SessionAccepted, models.SessionRejected} {
		f := base
		f.Status = status
		n, err := s.store.Sessions().Count(ctx, f)
		if err != nil {
			return SessionSummary{}, storage(op, err)
		}
		switch status {
		case models.SessionPending:
			out.Pending = n
		case models.SessionAccepted:
			out.Accepted = n
		case models.SessionRejected:
			out.Rejected = n
		}
		out.Total += n
	}
	return out, nil
}

// SummaryForTutor feeds the tutor dashboard counters.
func (s *SessionStore) SummaryForTutor(ctx context.Context, tutorID uuid.UUID) (SessionSummary, error) {
	return s.summary(ctx, "services.SessionStore.SummaryForTutor", database.SessionFilter{TutorID: tutorID})
}

func (s *SessionStore) Summary(ctx context.Context) (SessionSummary, error) {
	return s.summary(ctx, "services.SessionStore.Summary", database.SessionFilter{})
}
