package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anjiri1684/scholarlink/cache"
	"github.com/anjiri1684/scholarlink/database"
	"github.com/anjiri1684/scholarlink/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testSubjects = []string{"Mathematics", "Programming", "Art"}

type recordingPublisher struct {
	mu  sync.Mutex
	got []models.Notification
}

func (p *recordingPublisher) Publish(n models.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, n)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.got)
}

type harness struct {
	*Services
	store     database.Store
	publisher *recordingPublisher
	clock     time.Time
}

type harnessOption func(*harness, *Options, *cache.Cache)

func withCache(c cache.Cache) harnessOption {
	return func(_ *harness, _ *Options, dst *cache.Cache) { *dst = c }
}

func withEmail() harnessOption {
	return func(_ *harness, o *Options, _ *cache.Cache) { o.EmailEnabled = true }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	h := &harness{
		store:     database.NewMemoryStore(),
		publisher: &recordingPublisher{},
		clock:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	o := Options{
		BcryptCost: bcrypt.MinCost,
		Subjects:   testSubjects,
		Now:        func() time.Time { return h.clock },
	}
	var c cache.Cache = cache.Noop{}
	for _, opt := range opts {
		opt(h, &o, &c)
	}
	h.Services = New(h.store, c, h.publisher, o, zerolog.Nop())
	return h
}

func (h *harness) register(t *testing.T, email, username string) *models.User {
	t.Helper()
	u, err := h.Directory.Register(context.Background(), RegisterInput{Email: email, Username: username, Password: "secret123"})
	require.NoError(t, err)
	return u
}

func (h *harness) tutor(t *testing.T, email, username string, rate float64, subjects ...string) *models.User {
	t.Helper()
	u := h.register(t, email, username)
	years := 3
	u, err := h.Directory.CompleteProfile(context.Background(), u.ID, ProfileInput{
		FirstName:       "Tina",
		LastName:        "Tutor",
		Role:            models.RoleTutor,
		Subjects:        subjects,
		HourlyRate:      &rate,
		YearsExperience: &years,
	})
	require.NoError(t, err)
	return u
}

func (h *harness) student(t *testing.T, email, username string) *models.User {
	t.Helper()
	u := h.register(t, email, username)
	u, err := h.Directory.CompleteProfile(context.Background(), u.ID, ProfileInput{
		FirstName: "Sam",
		LastName:  "Student",
		Role:      models.RoleLearner,
	})
	require.NoError(t, err)
	return u
}

func (h *harness) book(t *testing.T, student, tutor *models.User, subject string, minutes int) *models.SessionRequest {
	t.Helper()
	s, err := h.Coordinator.BookSession(context.Background(), BookingInput{
		StudentID:       student.ID,
		TutorID:         tutor.ID,
		Subject:         subject,
		RequestedAt:     h.clock.Add(24 * time.Hour),
		DurationMinutes: minutes,
	})
	require.NoError(t, err)
	return s
}

func (h *harness) notificationCount(t *testing.T) int64 {
	t.Helper()
	n, err := h.store.Notifications().Count(context.Background(), database.NotificationFilter{})
	require.NoError(t, err)
	return n
}

// failingStore wraps a Store so that recording a notification fails.
type failingStore struct {
	database.Store
}

func (s *failingStore) Notifications() database.NotificationRepository {
	return failingNotifications{s.Store.Notifications()}
}

func (s *failingStore) Transaction(ctx context.Context, fn func(database.Store) error) error {
	return s.Store.Transaction(ctx, func(tx database.Store) error {
		return fn(&failingStore{Store: tx})
	})
}

type failingNotifications struct {
	database.NotificationRepository
}

func (failingNotifications) Create(context.Context, *models.Notification) error {
	return errors.New("disk full")
}

func (failingNotifications) MarkRead(context.Context, uuid.UUID) error {
	return errors.New("disk full")
}
