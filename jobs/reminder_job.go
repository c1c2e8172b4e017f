package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type ReminderSender interface {
	SendReminders(ctx context.Context) (int, error)
}

// SendSessionReminders notifies both participants of accepted sessions
// starting in about an hour. It runs every five minutes, matching the
// reminder window.
func SendSessionReminders(ctx context.Context, sender ReminderSender, logger zerolog.Logger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		sent, err := sender.SendReminders(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("session reminder job failed")
			return
		}
		if sent > 0 {
			logger.Info().Int("sent", sent).Msg("session reminders sent")
		}
	}
}
