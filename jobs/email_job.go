package jobs

import (
	"context"
	"time"

	"github.com/anjiri1684/scholarlink/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type EmailDeliverer interface {
	DeliverPendingEmails(ctx context.Context, sender services.EmailSender, batch, maxAttempts int) (int, error)
}

func DeliverEmails(ctx context.Context, d EmailDeliverer, sender services.EmailSender, batch, maxAttempts int, logger zerolog.Logger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(ctx, 50*time.Second)
		defer cancel()

		sent, err := d.DeliverPendingEmails(ctx, sender, batch, maxAttempts)
		if err != nil {
			logger.Error().Err(err).Int("sent", sent).Msg("email delivery job failed")
			return
		}
		if sent > 0 {
			logger.Info().Int("sent", sent).Msg("emails delivered")
		}
	}
}

type Config struct {
	Reminders   ReminderSender
	Emails      EmailDeliverer
	Sender      services.EmailSender
	BatchSize   int
	MaxAttempts int
}

// Schedule registers the background jobs on c. Email delivery is skipped
// when no sender is configured.
func Schedule(ctx context.Context, c *cron.Cron, cfg Config, logger zerolog.Logger) error {
	if _, err := c.AddFunc("*/5 * * * *", SendSessionReminders(ctx, cfg.Reminders, logger)); err != nil {
		return err
	}
	if cfg.Sender == nil {
		logger.Info().Msg("email delivery job disabled")
		return nil
	}
	_, err := c.AddFunc("* * * * *", DeliverEmails(ctx, cfg.Emails, cfg.Sender, cfg.BatchSize, cfg.MaxAttempts, logger))
	return err
}
