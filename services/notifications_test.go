package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anjiri1684/scholarlink/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notify(t *testing.T, h *harness, recipient, title string) *models.Notification {
	t.Helper()
	n, err := h.Notifications.Notify(context.Background(), NotifyInput{
		Type:      models.NotificationGeneral,
		Recipient: recipient,
		Title:     title,
		Message:   title + " body",
	})
	require.NoError(t, err)
	return n
}

func TestNotifyAndList(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := notify(t, h, "Sam@Example.com", "first")
	h.clock = h.clock.Add(time.Second)
	second := notify(t, h, "sam@example.com", "second")
	notify(t, h, "other@example.com", "elsewhere")

	assert.Equal(t, "sam@example.com", first.RecipientEmail)
	assert.False(t, first.Read)
	assert.Equal(t, 3, h.publisher.count())

	list, err := h.Notifications.ListFor(ctx, "SAM@example.com")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	_, err = h.Notifications.Notify(ctx, NotifyInput{Type: "broadcast", Recipient: "a@b.com", Title: "x"})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestMarkRead(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	n := notify(t, h, "sam@example.com", "one")
	notify(t, h, "sam@example.com", "two")

	require.NoError(t, h.Notifications.MarkRead(ctx, n.ID))
	require.NoError(t, h.Notifications.MarkRead(ctx, n.ID))
	assert.ErrorIs(t, h.Notifications.MarkRead(ctx, uuid.New()), ErrNotFound)

	unread, err := h.Notifications.UnreadFor(ctx, "sam@example.com")
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "two", unread[0].Title)

	count, err := h.Notifications.UnreadCount(ctx, "sam@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	assert.ErrorIs(t, h.Notifications.MarkReadFor(ctx, unread[0].ID, "intruder@example.com"), ErrForbidden)
	require.NoError(t, h.Notifications.MarkReadFor(ctx, unread[0].ID, "Sam@example.com"))
}

func TestMarkAllReadFor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	notify(t, h, "sam@example.com", "one")
	notify(t, h, "sam@example.com", "two")
	notify(t, h, "other@example.com", "three")

	updated, err := h.Notifications.MarkAllReadFor(ctx, "sam@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)

	count, err := h.Notifications.UnreadCount(ctx, "sam@example.com")
	require.NoError(t, err)
	assert.Zero(t, count)

	updated, err = h.Notifications.MarkAllReadFor(ctx, "sam@example.com")
	require.NoError(t, err)
	assert.Zero(t, updated)

	count, err = h.Notifications.UnreadCount(ctx, "other@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

type fakeSender struct {
	mu    sync.Mutex
	fail  error
	sent  []string
	calls int
}

func (f *fakeSender) Send(_ context.Context, toEmail, _, subject, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, toEmail+":"+subject)
	return nil
}

func TestDeliverPendingEmails(t *testing.T) {
	h := newHarness(t, withEmail())
	ctx := context.Background()
	notify(t, h, "sam@example.com", "Hello")

	sender := &fakeSender{fail: errors.New("brevo down")}
	sent, err := h.Notifications.DeliverPendingEmails(ctx, sender, 10, 2)
	require.NoError(t, err)
	assert.Zero(t, sent)

	pending, err := h.store.Emails().Pending(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
	require.NotNil(t, pending[0].LastError)

	sender.fail = nil
	sent, err = h.Notifications.DeliverPendingEmails(ctx, sender, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"sam@example.com:Hello"}, sender.sent)

	sent, err = h.Notifications.DeliverPendingEmails(ctx, sender, 10, 2)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Equal(t, 2, sender.calls)
}

func TestDeliverPendingEmailsGivesUp(t *testing.T) {
	h := newHarness(t, withEmail())
	ctx := context.Background()
	notify(t, h, "sam@example.com", "Hello")
	sender := &fakeSender{fail: errors.New("rejected")}

	for i := 0; i < 3; i++ {
		_, err := h.Notifications.DeliverPendingEmails(ctx, sender, 10, 2)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, sender.calls)
}

func TestNoOutboxWithoutEmail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	notify(t, h, "sam@example.com", "Hello")

	pending, err := h.store.Emails().Pending(ctx, 5, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestNotifyWithoutTitleUsesTypeDefault(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	n, err := h.Notifications.Notify(ctx, NotifyInput{Type: models.NotificationSessionAccepted, Recipient: "sam@example.com", Message: "see you"})
	require.NoError(t, err)
	assert.Equal(t, "Session Accepted! 🎉", n.Title)

	n, err = h.Notifications.Notify(ctx, NotifyInput{Type: models.NotificationGeneral, Recipient: "sam@example.com", Title: "   "})
	require.NoError(t, err)
	assert.Equal(t, "Notification", n.Title)

	count, err := h.Notifications.UnreadCount(ctx, "sam@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}
