package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/anjiri1684/scholarlink/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReminders struct {
	calls int
	err   error
}

func (f *fakeReminders) SendReminders(context.Context) (int, error) {
	f.calls++
	return 2, f.err
}

type fakeDeliverer struct {
	batch, maxAttempts int
	sender             services.EmailSender
}

func (f *fakeDeliverer) DeliverPendingEmails(_ context.Context, sender services.EmailSender, batch, maxAttempts int) (int, error) {
	f.sender, f.batch, f.maxAttempts = sender, batch, maxAttempts
	return 1, nil
}

type nopSender struct{}

func (nopSender) Send(context.Context, string, string, string, string) error { return nil }

func TestSendSessionReminders(t *testing.T) {
	r := &fakeReminders{}
	SendSessionReminders(context.Background(), r, zerolog.Nop())()
	assert.Equal(t, 1, r.calls)

	r.err = errors.New("db down")
	SendSessionReminders(context.Background(), r, zerolog.Nop())()
	assert.Equal(t, 2, r.calls)
}

func TestDeliverEmails(t *testing.T) {
	d := &fakeDeliverer{}
	DeliverEmails(context.Background(), d, nopSender{}, 25, 4, zerolog.Nop())()
	assert.Equal(t, 25, d.batch)
	assert.Equal(t, 4, d.maxAttempts)
	assert.NotNil(t, d.sender)
}

func TestSchedule(t *testing.T) {
	ctx := context.Background()

	c := cron.New()
	require.NoError(t, Schedule(ctx, c, Config{Reminders: &fakeReminders{}}, zerolog.Nop()))
	assert.Len(t, c.Entries(), 1)

	c = cron.New()
	require.NoError(t, Schedule(ctx, c, Config{
		Reminders: &fakeReminders{},
		Emails:    &fakeDeliverer{},
		Sender:    nopSender{},
		BatchSize: 10, MaxAttempts: 3,
	}, zerolog.Nop()))
	assert.Len(t, c.Entries(), 2)
}
