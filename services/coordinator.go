package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anjiri1684/scholarlink/database"
	"github.com/anjiri1684/scholarlink/metrics"
	"github.com/anjiri1684/scholarlink/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

func (d Decision) status() (models.SessionStatus, bool) {
	switch d {
	case DecisionAccept:
		return models.SessionAccepted, true
	case DecisionReject:
		return models.SessionRejected, true
	}
	return "", false
}

// Reminders go out for accepted sessions starting within this window from now.
const (
	ReminderLead   = 60 * time.Minute
	ReminderWindow = 10 * time.Minute
)

// Coordinator is the only caller that mutates sessions and records the
// matching notification. Both writes share one transaction, so a session
// never changes state without its notification.
type Coordinator struct {
	store         database.Store
	directory     *Directory
	sessions      *SessionStore
	notifications *NotificationCenter
	log           zerolog.Logger
	now           func() time.Time
}

type BookingInput struct {
	StudentID       uuid.UUID
	TutorID         uuid.UUID
	Subject         string
	RequestedAt     time.Time
	DurationMinutes int
	Message         string
}

func (c *Coordinator) BookSession(ctx context.Context, in BookingInput) (*models.SessionRequest, error) {
	const op = "services.Coordinator.BookSession"
	in.Subject = strings.TrimSpace(in.Subject)

	var (
		session *models.SessionRequest
		note    *models.Notification
	)
	err := c.store.Transaction(ctx, func(tx database.Store) error {
		student, err := tx.Users().FindByID(ctx, in.StudentID)
		if err != nil {
			return fmt.Errorf("student: %w", err)
		}
		tutor, err := tx.Users().FindByID(ctx, in.TutorID)
		if err != nil {
			return fmt.Errorf("tutor: %w", err)
		}
		switch {
		case student.ID == tutor.ID:
			return invalid("tutor_id", "cannot book a session with yourself")
		case !tutor.IsTutor():
			return invalid("tutor_id", "user is not a tutor")
		case !tutor.OffersSubject(in.Subject):
			return invalid("subject", "%q is not offered by this tutor", in.Subject)
		case tutor.HourlyRate == nil || *tutor.HourlyRate <= 0:
			return invalid("tutor_id", "tutor has no hourly rate set")
		}

		session, err = c.sessions.createRequest(ctx, tx, CreateSessionInput{
			StudentID:       student.ID,
			TutorID:         tutor.ID,
			Subject:         in.Subject,
			RequestedAt:     in.RequestedAt,
			DurationMinutes: in.DurationMinutes,
			Message:         in.Message,
			HourlyRate:      *tutor.HourlyRate,
		})
		if err != nil {
			return err
		}

		note, err = c.notifications.create(ctx, tx, NotifyInput{
			Type:          models.NotificationSessionRequest,
			Recipient:     tutor.Email,
			RecipientName: tutor.FullName(),
			Title:         "New Session Request",
			Message:       fmt.Sprintf("%s wants to book a %s session with you", student.FullName(), session.Subject),
			SessionID:     &session.ID,
		})
		return err
	})
	if err != nil {
		return nil, storage(op, err)
	}

	c.notifications.Publish(*note)
	metrics.RecordBooking(session.Subject)
	c.log.Info().
		Str("session_id", session.ID.String()).
		Str("student_id", session.StudentID.String()).
		Str("tutor_id", session.TutorID.String()).
		Msg("session requested")
	return session, nil
}

// Respond applies the tutor's decision and notifies the student.
func (c *Coordinator) Respond(ctx context.Context, sessionID, actingTutorID uuid.UUID, decision Decision) (*models.SessionRequest, error) {
	const op = "services.Coordinator.Respond"
	to, ok := decision.status()
	if !ok {
		return nil, invalid("decision", "must be accept or reject")
	}

	var (
		session *models.SessionRequest
		note    *models.Notification
	)
	err := c.store.Transaction(ctx, func(tx database.Store) error {
		var err error
		session, err = c.sessions.transition(ctx, tx, sessionID, actingTutorID, to)
		if err != nil {
			return err
		}
		tutor, err := tx.Users().FindByID(ctx, session.TutorID)
		if err != nil {
			return fmt.Errorf("tutor: %w", err)
		}
		student, err := tx.Users().FindByID(ctx, session.StudentID)
		if err != nil {
			return fmt.Errorf("student: %w", err)
		}

		in := NotifyInput{
			Recipient:     student.Email,
			RecipientName: student.FullName(),
			SessionID:     &session.ID,
		}
		if to == models.SessionAccepted {
			in.Type = models.NotificationSessionAccepted
			in.Title = "Session Accepted! 🎉"
			in.Message = fmt.Sprintf("%s accepted your %s session request", tutor.FullName(), session.Subject)
		} else {
			in.Type = models.NotificationSessionRejected
			in.Title = "Session Request Declined"
			in.Message = fmt.Sprintf("%s declined your %s session request", tutor.FullName(), session.Subject)
		}
		note, err = c.notifications.create(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, storage(op, err)
	}

	c.notifications.Publish(*note)
	metrics.RecordTransition(string(to))
	return session, nil
}

// RemoveUser closes the user's pending sessions as rejected, tells each
// counterparty, then anonymizes and soft-deletes the user. Session and
// notification history is kept.
func (c *Coordinator) RemoveUser(ctx context.Context, userID uuid.UUID) error {
	const op = "services.Coordinator.RemoveUser"
	var notes []models.Notification
	closed := 0

	err := c.store.Transaction(ctx, func(tx database.Store) error {
		user, err := tx.Users().FindByID(ctx, userID)
		if err != nil {
			return err
		}
		pending, err := tx.Sessions().List(ctx, database.SessionFilter{Participant: userID, Status: models.SessionPending})
		if err != nil {
			return err
		}

		for i := range pending {
			session, err := c.sessions.close(ctx, tx, &pending[i], models.SessionRejected)
			if err != nil {
				return err
			}
			closed++

			otherID := session.StudentID
			if otherID == userID {
				otherID = session.TutorID
			}
			other, err := tx.Users().FindByID(ctx, otherID)
			if errors.Is(err, database.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}

			in := NotifyInput{
				Recipient:     other.Email,
				RecipientName: other.FullName(),
				SessionID:     &session.ID,
			}
			if session.TutorID == userID {
				in.Type = models.NotificationSessionRejected
				in.Title = "Session Request Declined"
				in.Message = fmt.Sprintf("%s is no longer available for your %s session request", user.FullName(), session.Subject)
			} else {
				in.Type = models.NotificationGeneral
				in.Title = "Session Request Withdrawn"
				in.Message = fmt.Sprintf("%s withdrew their %s session request", user.FullName(), session.Subject)
			}
			note, err := c.notifications.create(ctx, tx, in)
			if err != nil {
				return err
			}
			notes = append(notes, *note)
		}
		return c.directory.deleteUser(ctx, tx, userID)
	})
	if err != nil {
		return storage(op, err)
	}

	c.directory.invalidate(ctx)
	c.notifications.Publish(notes...)
	for i := 0; i < closed; i++ {
		metrics.RecordTransition(string(models.SessionRejected))
	}
	c.log.Info().Str("user_id", userID.String()).Int("sessions_closed", closed).Msg("user removed")
	return nil
}

// SendReminders notifies both participants of accepted sessions starting
// between ReminderLead and ReminderLead+ReminderWindow from now. The window
// spans two job runs; a participant is still reminded at most once per
// session. Sessions with a deleted participant are skipped.
func (c *Coordinator) SendReminders(ctx context.Context) (int, error) {
	const op = "services.Coordinator.SendReminders"
	from := c.now().Add(ReminderLead)
	upcoming, err := c.store.Sessions().List(ctx, database.SessionFilter{
		Status: models.SessionAccepted,
		From:   from,
		To:     from.Add(ReminderWindow),
	})
	if err != nil {
		return 0, storage(op, err)
	}

	sent := 0
	for i := range upcoming {
		session := upcoming[i]
		var notes []models.Notification
		err := c.store.Transaction(ctx, func(tx database.Store) error {
			student, err := tx.Users().FindByID(ctx, session.StudentID)
			if errors.Is(err, database.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			tutor, err := tx.Users().FindByID(ctx, session.TutorID)
			if errors.Is(err, database.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			for _, pair := range []struct{ to, with *models.User }{{student, tutor}, {tutor, student}} {
				done, err := hasNotification(ctx, tx, pair.to.Email, models.NotificationGeneral, session.ID)
				if err != nil {
					return err
				}
				if done {
					continue
				}
				note, err := c.notifications.create(ctx, tx, NotifyInput{
					Type:          models.NotificationGeneral,
					Recipient:     pair.to.Email,
					RecipientName: pair.to.FullName(),
					Title:         "Session Reminder",
					Message: fmt.Sprintf("Your %s session with %s starts at %s",
						session.Subject, pair.with.FullName(), session.RequestedAt.Format("Mon Jan 2 15:04 MST")),
					SessionID: &session.ID,
				})
				if err != nil {
					return err
				}
				notes = append(notes, *note)
			}
			return nil
		})
		if err != nil {
			c.log.Error().Err(err).Str("session_id", session.ID.String()).Msg("session reminder failed")
			continue
		}
		c.notifications.Publish(notes...)
		sent += len(notes)
	}
	return sent, nil
}
