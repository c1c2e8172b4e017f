package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/anjiri1684/scholarlink/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func ConnectDB(dsn string, logger zerolog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		DisableNestedTransaction:                 true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("database.ConnectDB: %w", err)
	}

	logger.Info().Msg("database connected")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.SessionRequest{},
		&models.Notification{},
		&models.EmailDelivery{},
	)
	if err != nil {
		return fmt.Errorf("database.Migrate: %w", err)
	}
	return nil
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Users() UserRepository                 { return &gormUsers{db: s.db} }
func (s *GormStore) Sessions() SessionRepository           { return &gormSessions{db: s.db} }
func (s *GormStore) Notifications() NotificationRepository { return &gormNotifications{db: s.db} }
func (s *GormStore) Emails() EmailRepository               { return &gormEmails{db: s.db} }

func (s *GormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("database.Ping: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

type gormUsers struct{ db *gorm.DB }

func (r *gormUsers) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return translate("database.Users.Create", r.db.WithContext(ctx).Create(user).Error)
}

func (r *gormUsers) Update(ctx context.Context, user *models.User) error {
	return translate("database.Users.Update", r.db.WithContext(ctx).Save(user).Error)
}

func (r *gormUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate("database.Users.FindByID", err)
	}
	return &user, nil
}

func (r *gormUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, translate("database.Users.FindByEmail", err)
	}
	return &user, nil
}

func (r *gormUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username_key = ?", models.FoldUsername(username)).First(&user).Error; err != nil {
		return nil, translate("database.Users.FindByUsername", err)
	}
	return &user, nil
}

func (r *gormUsers) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error
	return users, translate("database.Users.List", err)
}

func (r *gormUsers) ListByRole(ctx context.Context, role models.Role, onlyComplete bool) ([]models.User, error) {
	q := r.db.WithContext(ctx).Where("role = ?", role)
	if onlyComplete {
		q = q.Where("profile_complete = ?", true)
	}
	var users []models.User
	err := q.Order("created_at ASC").Find(&users).Error
	return users, translate("database.Users.ListByRole", err)
}

func (r *gormUsers) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "database.Users.Delete"
	res := r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return translate(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

type gormSessions struct{ db *gorm.DB }

func (r *gormSessions) Create(ctx context.Context, session *models.SessionRequest) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	return translate("database.Sessions.Create", r.db.WithContext(ctx).Create(session).Error)
}

func (r *gormSessions) FindByID(ctx context.Context, id uuid.UUID) (*models.SessionRequest, error) {
	var session models.SessionRequest
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, translate("database.Sessions.FindByID", err)
	}
	return &session, nil
}

func (r *gormSessions) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.SessionRequest, error) {
	var session models.SessionRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&session, "id = ?", id).Error
	if err != nil {
		return nil, translate("database.Sessions.FindByIDForUpdate", err)
	}
	return &session, nil
}

func (r *gormSessions) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.SessionStatus) error {
	const op = "database.Sessions.UpdateStatus"
	res := r.db.WithContext(ctx).
		Model(&models.SessionRequest{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return translate(op, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.SessionRequest{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return translate(op, err)
	}
	if count == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, ErrConflict)
}

func (r *gormSessions) scope(ctx context.Context, f SessionFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.SessionRequest{})
	if f.StudentID != uuid.Nil {
		q = q.Where("student_id = ?", f.StudentID)
	}
	if f.TutorID != uuid.Nil {
		q = q.Where("tutor_id = ?", f.TutorID)
	}
	if f.Participant != uuid.Nil {
		q = q.Where("(student_id = ? OR tutor_id = ?)", f.Participant, f.Participant)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.From.IsZero() {
		q = q.Where("requested_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("requested_at < ?", f.To)
	}
	return q
}

func (r *gormSessions) List(ctx context.Context, filter SessionFilter) ([]models.SessionRequest, error) {
	var sessions []models.SessionRequest
	err := r.scope(ctx, filter).Order("created_at ASC").Find(&sessions).Error
	return sessions, translate("database.Sessions.List", err)
}

func (r *gormSessions) Count(ctx context.Context, filter SessionFilter) (int64, error) {
	var count int64
	err := r.scope(ctx, filter).Count(&count).Error
	return count, translate("database.Sessions.Count", err)
}

type gormNotifications struct{ db *gorm.DB }

func (r *gormNotifications) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return translate("database.Notifications.Create", r.db.WithContext(ctx).Create(n).Error)
}

func (r *gormNotifications) FindByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, translate("database.Notifications.FindByID", err)
	}
	return &n, nil
}

func (r *gormNotifications) scope(ctx context.Context, f NotificationFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Notification{})
	if f.Recipient != "" {
		q = q.Where("recipient_email = ?", f.Recipient)
	}
	if f.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.SessionID != nil {
		q = q.Where("session_id = ?", *f.SessionID)
	}
	return q
}

func (r *gormNotifications) List(ctx context.Context, filter NotificationFilter) ([]models.Notification, error) {
	var list []models.Notification
	err := r.scope(ctx, filter).Order("created_at DESC").Find(&list).Error
	return list, translate("database.Notifications.List", err)
}

func (r *gormNotifications) Count(ctx context.Context, filter NotificationFilter) (int64, error) {
	var count int64
	err := r.scope(ctx, filter).Count(&count).Error
	return count, translate("database.Notifications.Count", err)
}

func (r *gormNotifications) MarkRead(ctx context.Context, id uuid.UUID) error {
	const op = "database.Notifications.MarkRead"
	res := r.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", id).Update("is_read", true)
	if res.Error != nil {
		return translate(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func (r *gormNotifications) MarkAllRead(ctx context.Context, recipient string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_email = ? AND is_read = ?", recipient, false).
		Update("is_read", true)
	return res.RowsAffected, translate("database.Notifications.MarkAllRead", res.Error)
}

type gormEmails struct{ db *gorm.DB }

func (r *gormEmails) Enqueue(ctx context.Context, d *models.EmailDelivery) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return translate("database.Emails.Enqueue", r.db.WithContext(ctx).Create(d).Error)
}

func (r *gormEmails) Pending(ctx context.Context, maxAttempts, limit int) ([]models.EmailDelivery, error) {
	var rows []models.EmailDelivery
	err := r.db.WithContext(ctx).
		Where("delivered_at IS NULL AND attempts < ?", maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, translate("database.Emails.Pending", err)
}

func (r *gormEmails) Save(ctx context.Context, d *models.EmailDelivery) error {
	return translate("database.Emails.Save", r.db.WithContext(ctx).Save(d).Error)
}
