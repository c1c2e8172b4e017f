package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anjiri1684/scholarlink/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MemoryStore keeps every collection in process memory. Records do not
// survive a restart; it backs tests and database-less development runs.
type MemoryStore struct {
	mu   sync.RWMutex
	data *memData
	now  func() time.Time
}

type memData struct {
	users         []models.User
	sessions      []models.SessionRequest
	notifications []models.Notification
	emails        []models.EmailDelivery
}

func (d *memData) clone() *memData {
	c := &memData{
		users:         make([]models.User, len(d.users)),
		sessions:      append([]models.SessionRequest(nil), d.sessions...),
		notifications: make([]models.Notification, len(d.notifications)),
		emails:        make([]models.EmailDelivery, len(d.emails)),
	}
	for i := range d.users {
		c.users[i] = cloneUser(d.users[i])
	}
	for i := range d.notifications {
		c.notifications[i] = cloneNotification(d.notifications[i])
	}
	for i := range d.emails {
		c.emails[i] = cloneEmail(d.emails[i])
	}
	return c
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memData{}, now: time.Now}
}

type locker interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

type noopLocker struct{}

func (noopLocker) Lock()    {}
func (noopLocker) Unlock()  {}
func (noopLocker) RLock()   {}
func (noopLocker) RUnlock() {}

// memView is a Store over memData guarded by lk. Inside a transaction
// the lock is already held, so lk is a no-op.
type memView struct {
	lk   locker
	data *memData
	now  func() time.Time
}

func (s *MemoryStore) view() *memView {
	return &memView{lk: &s.mu, data: s.data, now: s.now}
}

func (s *MemoryStore) Users() UserRepository                 { return &memUsers{s.view()} }
func (s *MemoryStore) Sessions() SessionRepository           { return &memSessions{s.view()} }
func (s *MemoryStore) Notifications() NotificationRepository { return &memNotifications{s.view()} }
func (s *MemoryStore) Emails() EmailRepository               { return &memEmails{s.view()} }

// Transaction serializes fn against every other store operation and
// restores the pre-transaction snapshot if fn fails or panics.
func (s *MemoryStore) Transaction(ctx context.Context, fn func(Store) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	tx := &memTx{v: &memView{lk: noopLocker{}, data: s.data, now: s.now}}

	defer func() {
		if p := recover(); p != nil {
			*s.data = *snapshot
			panic(p)
		}
		if err != nil {
			*s.data = *snapshot
		}
	}()
	return fn(tx)
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }
func (s *MemoryStore) Close() error                   { return nil }

type memTx struct{ v *memView }

func (t *memTx) Users() UserRepository                 { return &memUsers{t.v} }
func (t *memTx) Sessions() SessionRepository           { return &memSessions{t.v} }
func (t *memTx) Notifications() NotificationRepository { return &memNotifications{t.v} }
func (t *memTx) Emails() EmailRepository               { return &memEmails{t.v} }

func (t *memTx) Transaction(ctx context.Context, fn func(Store) error) error {
	return fn(t)
}

func (t *memTx) Ping(ctx context.Context) error { return ctx.Err() }
func (t *memTx) Close() error                   { return nil }

func cloneUser(u models.User) models.User {
	if u.Subjects != nil {
		u.Subjects = append(u.Subjects[:0:0], u.Subjects...)
	}
	if u.HourlyRate != nil {
		rate := *u.HourlyRate
		u.HourlyRate = &rate
	}
	if u.YearsExperience != nil {
		years := *u.YearsExperience
		u.YearsExperience = &years
	}
	return u
}

func cloneNotification(n models.Notification) models.Notification {
	if n.SessionID != nil {
		id := *n.SessionID
		n.SessionID = &id
	}
	return n
}

func cloneEmail(d models.EmailDelivery) models.EmailDelivery {
	if d.LastError != nil {
		msg := *d.LastError
		d.LastError = &msg
	}
	if d.DeliveredAt != nil {
		at := *d.DeliveredAt
		d.DeliveredAt = &at
	}
	return d
}

type memUsers struct{ v *memView }

func (r *memUsers) live(u *models.User) bool { return !u.DeletedAt.Valid }

func (r *memUsers) conflicts(u *models.User) bool {
	for i := range r.v.data.users {
		other := &r.v.data.users[i]
		if other.ID == u.ID {
			continue
		}
		if other.Email == u.Email || other.UsernameKey == u.UsernameKey {
			return true
		}
	}
	return false
}

func (r *memUsers) Create(ctx context.Context, user *models.User) error {
	const op = "database.Users.Create"
	r.v.lk.Lock()
	defer r.v.lk.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if r.conflicts(user) {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	now := r.v.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.v.data.users = append(r.v.data.users, cloneUser(*user))
	return nil
}

func (r *memUsers) Update(ctx context.Context, user *models.User) error {
	const op = "database.Users.Update"
	r.v.lk.Lock()
	defer r.v.lk.Unlock()

	if r.conflicts(user) {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	for i := range r.v.data.users {
		if r.v.data.users[i].ID == user.ID {
			user.UpdatedAt = r.v.now()
			r.v.data.users[i] = cloneUser(*user)
			return nil
		}
	}
	return fmt.Errorf("%s: %w", op, ErrNotFound)
}

func (r *memUsers) find(op string, match func(*models.User) bool) (*models.User, error) {
	r.v.lk.RLock()
	defer r.v.lk.RUnlock()

	for i := range r.v.data.users {
		u := &r.v.data.users[i]
		if r.live(u) && match(u) {
			found := cloneUser(*u)
			return &found, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
}

func (r *memUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.find("database.Users.FindByID", func(u *models.User) bool { return u.ID == id })
}

func (r *memUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	return r.find("database.Users.FindByEmail", func(u *models.User) bool { return u.Email == email })
}

func (r *memUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	key := models.FoldUsername(username)
	return r.find("database.Users.FindByUsername", func(u *models.User) bool { return u.UsernameKey == key })
}

func (r *memUsers) filter(match func(*models.User) bool) []models.User {
	r.v.lk.RLock()
	defer r.v.lk.RUnlock()

	var out []models.User
	for i := range r.v.data.users {
		u := &r.v.data.users[i]
		if r.live(u) && match(u) {
			out = append(out, cloneUser(*u))
		}
	}
	return out
}

func (r *memUsers) List(ctx context.Context) ([]models.User, error) {
	return r.filter(func(*models.User) bool { return true }), nil
}

func (r *memUsers) ListByRole(ctx context.Context, role models.Role, onlyComplete bool) ([]models.User, error) {
	return r.filter(func(u *models.User) bool {
		return u.Role == role && (!onlyComplete || u.ProfileComplete)
	}), nil
}

func (r *memUsers) Delete(ctx context.Context, id uuid.UUID) error {
	r.v.lk.Lock()
	defer r.v.lk.Unlock()

	for i := range r.v.data.users {
		u := &r.v.data.users[i]
		if u.ID == id && r.live(u) {
			u.DeletedAt = gorm.DeletedAt{Time: r.v.now(), Valid: true}
			return nil
		}
	}
	return fmt.Errorf("database.Users.Delete: %w", ErrNotFound)
}

type memSessions struct{ v *memView }

func (r *memSessions) Create(ctx context.Context, session *models.SessionRequest) error {
	r.v.lk.Lock()
	defer r.v.lk.Unlock()

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	for i := range r.v.data.sessions {
		if r.v.data.sessions[i].ID == session.ID {
			return fmt.Errorf("database.Sessions.Create: %w", ErrConflict)
		}
	}
	now := r.v.now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	r.v.data.sessions = append(r.v.data.sessions, *session)
	return nil
}

func (r *memSessions) FindByID(ctx context.Context, id uuid.UUID) (*models.SessionRequest, error) {
	r.v.lk.RLock()
	defer r.v.lk.RUnlock()

	for i := range r.v.data.sessions {
		if r.v.data.sessions[i].ID == id {
			found := r.v.data.sessions[i]
			return &found, nil
		}
	}
	return nil, fmt.Errorf("database.Sessions.FindByID: %w", ErrNotFound)
}

// FindByIDForUpdate relies on the transaction holding the store lock.
func (r *memSessions) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.SessionRequest, error) {
	return r.FindByID(ctx, id)
}

func (r *memSessions) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.SessionStatus) error {
	const op = "database.Sessions.UpdateStatus"
	r.v.lk.Lock()
	defer r.v.lk.Unlock()

	for i := range r.v.data.sessions {
		s := &r.v.data.sessions[i]
		if s.ID != id {
			continue
		}
		if s.Status != from {
			return fmt.Errorf("%s: %w", op, ErrConflict)
		}
		s.Status = to
		s.UpdatedAt = r.v.now()
		return nil
	}
	return fmt.Errorf("%s: %w", op, ErrNotFound)
}

func matchSession(s *models.SessionRequest, f SessionFilter) bool {
	if f.StudentID != uuid.Nil && s.StudentID != f.StudentID {
		return false
	}
	if f.TutorID != uuid.Nil && s.TutorID != f.TutorID {
		return false
	}
	if f.Participant != uuid.Nil && !s.Involves(f.Participant) {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && s.RequestedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !s.RequestedAt.Before(f.To) {
		return false
	}
	return true
}

func (r *memSessions) List(ctx context.Context, filter SessionFilter) ([]models.SessionRequest, error) {
	r.v.lk.RLock()
	defer r.v.lk.RUnlock()

	var out []models.SessionRequest
	for i := range r.v.data.sessions {
		if matchSession(&r.v.data.sessions[i], filter) {
			out = append(out, r.v.data.sessions[i])
		}
	}
	return out, nil
}

func (r *memSessions) Count(ctx context.Context, filter SessionFilter) (int64, error) {
	list, err := r.List(ctx, filter)
	return int64(len(list)), err
}

type memNotifications struct{ v *memView }

func (r *memNotifications) Create(ctx context.Context, n *models.Notification) error {
	r.v.lk.Lock()
	defer r.v.lk.Unlock()

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.v.now()
	}
	r.v.data.notifications = append(r.v.data.notifications, cloneNotification(*n))
	return nil
}

func (r *memNotifications) FindByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	r.v.lk.RLock()
	defer r.v.lk.RUnlock()

	for i := range r.v.data.notifications {
		if r.v.data.notifications[i].ID == id {
			found := cloneNotification(r.v.data.notifications[i])
			return &found, nil
		}
	}
	return nil, fmt.Errorf("database.Notifications.FindByID: %w", ErrNotFound)
}

func matchNotification(n *models.Notification, f NotificationFilter) bool {
	if f.Recipient != "" && n.RecipientEmail != f.Recipient {
		return false
	}
	if f.UnreadOnly && n.Read {
		return false
	}
	if f.Type != "" && n.Type != f.Type {
		return false
	}
	if f.SessionID != nil && (n.SessionID == nil || *n.SessionID != *f.SessionID) {
		return false
	}
	return true
}

func (r *memNotifications) List(ctx context.Context, filter NotificationFilter) ([]models.Notification, error) {
	r.v.lk.RLock()
	defer r.v.lk.RUnlock()

	var out []models.Notification
	for i := len(r.v.data.notifications) - 1; i >= 0; i-- {
		if matchNotification(&r.v.data.notifications[i], filter) {
			out = append(out, cloneNotification(r.v.data.notifications[i]))
		}
	}
	return out, nil
}

func (r *memNotifications) Count(ctx context.Context, filter NotificationFilter) (int64, error) {
	r.v.lk.RLock()
	defer r.v.lk.RUnlock()

	var count int64
	for i := range r.v.data.notifications {
		if matchNotification(&r.v.data.notifications[i], filter) {
			count++
		}
	}
	return count, nil
}

func (r *memNotifications) MarkRead(ctx context.Context, id uuid.UUID) error {
	r.v.lk.Lock()
	defer r.v.lk.Unlock()

	for i := range r.v.data.notifications {
		if r.v.data.notifications[i].ID == id {
			r.v.data.notifications[i].Read = true
			return nil
		}
	}
	return fmt.Errorf("database.Notifications.MarkRead: %w", ErrNotFound)
}

func (r *memNotifications) MarkAllRead(ctx context.Context, recipient string) (int64, error) {
	r.v.lk.Lock()
	defer r.v.lk.Unlock()

	var updated int64
	for i := range r.v.data.notifications {
		n := &r.v.data.notifications[i]
		if n.RecipientEmail == recipient && !n.Read {
			n.Read = true
			updated++
		}
	}
	return updated, nil
}

type memEmails struct{ v *memView }

func (r *memEmails) Enqueue(ctx context.Context, d *models.EmailDelivery) error {
	r.v.lk.Lock()
	defer r.v.lk.Unlock()

	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	now := r.v.now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	r.v.data.emails = append(r.v.data.emails, cloneEmail(*d))
	return nil
}

func (r *memEmails) Pending(ctx context.Context, maxAttempts, limit int) ([]models.EmailDelivery, error) {
	r.v.lk.RLock()
	defer r.v.lk.RUnlock()

	var out []models.EmailDelivery
	for i := range r.v.data.emails {
		d := &r.v.data.emails[i]
		if d.DeliveredAt == nil && d.Attempts < maxAttempts {
			out = append(out, cloneEmail(*d))
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memEmails) Save(ctx context.Context, d *models.EmailDelivery) error {
	r.v.lk.Lock()
	defer r.v.lk.Unlock()

	for i := range r.v.data.emails {
		if r.v.data.emails[i].ID == d.ID {
			d.UpdatedAt = r.v.now()
			r.v.data.emails[i] = cloneEmail(*d)
			return nil
		}
	}
	return fmt.Errorf("database.Emails.Save: %w", ErrNotFound)
}
