package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anjiri1684/scholarlink/cache"
	"github.com/anjiri1684/scholarlink/database"
	"github.com/anjiri1684/scholarlink/metrics"
	"github.com/anjiri1684/scholarlink/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const directoryCachePrefix = "directory:"

// Directory holds user identity and profile records.
type Directory struct {
	store    database.Store
	cache    cache.Cache
	log      zerolog.Logger
	cost     int
	subjects []string
	cacheTTL time.Duration

	// remover closes the user's pending sessions before the record goes.
	remover userRemover
}

type userRemover interface {
	RemoveUser(ctx context.Context, userID uuid.UUID) error
}

type RegisterInput struct {
	Email    string `validate:"required,email,max=255"`
	Username string `validate:"required,min=3,max=100"`
	Password string `validate:"required,min=6,max=72"`
}

type ProfileInput struct {
	FirstName       string      `validate:"required,max=100"`
	LastName        string      `validate:"required,max=100"`
	Bio             string      `validate:"max=2000"`
	Role            models.Role `validate:"required"`
	Subjects        []string
	HourlyRate      *float64
	YearsExperience *int
}

type SubjectCount struct {
	Subject string `json:"subject"`
	Tutors  int    `json:"tutors"`
}

type DirectoryStats struct {
	TotalUsers int `json:"total_users"`
	Tutors     int `json:"tutors"`
	Learners   int `json:"learners"`
}

// Register creates a learner with an incomplete profile.
func (d *Directory) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	const op = "services.Directory.Register"
	in.Email = models.NormalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := validate.Struct(in); err != nil {
		return nil, fromValidator(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), d.cost)
	if err != nil {
		return nil, fmt.Errorf("%s: hash password: %w", op, err)
	}

	user := &models.User{
		Email:       in.Email,
		Username:    in.Username,
		UsernameKey: models.FoldUsername(in.Username),
		Password:    string(hash),
		Role:        models.RoleLearner,
		Subjects:    []string{},
	}

	err = d.store.Transaction(ctx, func(tx database.Store) error {
		if err := d.checkAvailable(ctx, tx, user); err != nil {
			return err
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, database.ErrConflict) {
				if taken := d.checkAvailable(ctx, tx, user); taken != nil {
					return taken
				}
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, storage(op, err)
	}

	d.log.Info().Str("user_id", user.ID.String()).Msg("user registered")
	return user, nil
}

func (d *Directory) checkAvailable(ctx context.Context, store database.Store, user *models.User) error {
	if _, err := store.Users().FindByEmail(ctx, user.Email); err == nil {
		return ErrDuplicateEmail
	} else if !errors.Is(err, database.ErrNotFound) {
		return err
	}
	if _, err := store.Users().FindByUsername(ctx, user.Username); err == nil {
		return ErrDuplicateUsername
	} else if !errors.Is(err, database.ErrNotFound) {
		return err
	}
	return nil
}

// Authenticate accepts an email or a username, both matched case-insensitively.
func (d *Directory) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	const op = "services.Directory.Authenticate"
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var candidates []*models.User
	byEmail, err := d.store.Users().FindByEmail(ctx, identifier)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, storage(op, err)
	}
	if byEmail != nil {
		candidates = append(candidates, byEmail)
	}
	byUsername, err := d.store.Users().FindByUsername(ctx, identifier)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, storage(op, err)
	}
	if byUsername != nil && (byEmail == nil || byUsername.ID != byEmail.ID) {
		candidates = append(candidates, byUsername)
	}

	for _, u := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil {
			return u, nil
		}
	}
	return nil, ErrInvalidCredentials
}

// CompleteProfile fills in the profile and marks it complete. Tutors must
// offer at least one subject at a positive rate.
func (d *Directory) CompleteProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (*models.User, error) {
	const op = "services.Directory.CompleteProfile"
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Bio = strings.TrimSpace(in.Bio)
	if err := validate.Struct(in); err != nil {
		return nil, fromValidator(err)
	}
	if !in.Role.Valid() {
		return nil, invalid("role", "must be learner or tutor")
	}

	subjects := make([]string, 0, len(in.Subjects))
	for _, s := range in.Subjects {
		if s = strings.TrimSpace(s); s != "" {
			subjects = append(subjects, s)
		}
	}

	if in.Role == models.RoleTutor {
		if len(subjects) == 0 {
			return nil, invalid("subjects", "a tutor must offer at least one subject")
		}
		if in.HourlyRate == nil || *in.HourlyRate <= 0 {
			return nil, invalid("hourly_rate", "must be greater than zero")
		}
		if in.YearsExperience == nil || *in.YearsExperience < 0 {
			return nil, invalid("years_experience", "must be zero or more")
		}
	} else {
		in.HourlyRate = nil
		in.YearsExperience = nil
	}

	var user *models.User
	err := d.store.Transaction(ctx, func(tx database.Store) error {
		var err error
		if user, err = tx.Users().FindByID(ctx, userID); err != nil {
			return err
		}
		user.FirstName = in.FirstName
		user.LastName = in.LastName
		user.Bio = in.Bio
		user.Role = in.Role
		user.Subjects = subjects
		user.HourlyRate = in.HourlyRate
		user.YearsExperience = in.YearsExperience
		user.ProfileComplete = true
		return tx.Users().Update(ctx, user)
	})
	if err != nil {
		return nil, storage(op, err)
	}

	d.invalidate(ctx)
	d.log.Info().Str("user_id", userID.String()).Str("role", string(user.Role)).Msg("profile completed")
	return user, nil
}

func (d *Directory) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := d.store.Users().FindByID(ctx, id)
	if err != nil {
		return nil, storage("services.Directory.GetUser", err)
	}
	return user, nil
}

// GetTutor is GetUser restricted to tutors.
func (d *Directory) GetTutor(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := d.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsTutor() {
		return nil, fmt.Errorf("services.Directory.GetTutor: %w", ErrNotFound)
	}
	return user, nil
}

func (d *Directory) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := d.store.Users().List(ctx)
	return users, storage("services.Directory.ListUsers", err)
}

// ListTutors returns tutors in registration order. Cached copies omit credentials.
func (d *Directory) ListTutors(ctx context.Context, onlyComplete bool) ([]models.User, error) {
	const op = "services.Directory.ListTutors"
	key := directoryCachePrefix + "tutors:all"
	if onlyComplete {
		key = directoryCachePrefix + "tutors:complete"
	}

	var tutors []models.User
	found, err := d.cache.Get(ctx, key, &tutors)
	if err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("tutor cache read failed")
	}
	metrics.RecordCacheLookup(found)
	if found {
		return tutors, nil
	}

	tutors, err = d.store.Users().ListByRole(ctx, models.RoleTutor, onlyComplete)
	if err != nil {
		return nil, storage(op, err)
	}
	if err := d.cache.Set(ctx, key, tutors, d.cacheTTL); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("tutor cache write failed")
	}
	return tutors, nil
}

// TutorsBySubject returns complete tutors offering subject, ignoring case.
func (d *Directory) TutorsBySubject(ctx context.Context, subject string) ([]models.User, error) {
	subject = strings.TrimSpace(subject)
	tutors, err := d.ListTutors(ctx, true)
	if err != nil {
		return nil, err
	}
	var out []models.User
	for _, t := range tutors {
		if offersFold(&t, subject) {
			out = append(out, t)
		}
	}
	return out, nil
}

func offersFold(u *models.User, subject string) bool {
	for _, s := range u.Subjects {
		if strings.EqualFold(s, subject) {
			return true
		}
	}
	return false
}

// SubjectCatalog counts complete tutors per configured subject.
func (d *Directory) SubjectCatalog(ctx context.Context) ([]SubjectCount, error) {
	tutors, err := d.ListTutors(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]SubjectCount, 0, len(d.subjects))
	for _, subject := range d.subjects {
		count := 0
		for i := range tutors {
			if offersFold(&tutors[i], subject) {
				count++
			}
		}
		out = append(out, SubjectCount{Subject: subject, Tutors: count})
	}
	return out, nil
}

func (d *Directory) Stats(ctx context.Context) (DirectoryStats, error) {
	users, err := d.ListUsers(ctx)
	if err != nil {
		return DirectoryStats{}, err
	}
	stats := DirectoryStats{TotalUsers: len(users)}
	for _, u := range users {
		switch u.Role {
		case models.RoleTutor:
			stats.Tutors++
		case models.RoleLearner:
			stats.Learners++
		}
	}
	return stats, nil
}

// DeleteUser removes the user through the same path as
// Coordinator.RemoveUser: pending sessions are rejected and the other side
// notified, then the record is anonymized and soft-deleted.
func (d *Directory) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return d.remover.RemoveUser(ctx, userID)
}

func (d *Directory) deleteUser(ctx context.Context, tx database.Store, userID uuid.UUID) error {
	user, err := tx.Users().FindByID(ctx, userID)
	if err != nil {
		return err
	}
	tag := userID.String()
	user.Email = "deleted+" + tag + "@scholarlink.invalid"
	user.Username = "deleted-" + tag[:8]
	user.UsernameKey = "deleted-" + tag
	user.Password = ""
	user.FirstName = "Deleted"
	user.LastName = "User"
	user.Bio = ""
	user.Subjects = []string{}
	user.ProfileComplete = false
	if err := tx.Users().Update(ctx, user); err != nil {
		return err
	}
	if err := tx.Users().Delete(ctx, userID); err != nil {
		return err
	}
	d.log.Info().Str("user_id", tag).Msg("user deleted")
	return nil
}

func (d *Directory) invalidate(ctx context.Context) {
	if err := d.cache.InvalidatePrefix(ctx, directoryCachePrefix); err != nil {
		d.log.Warn().Err(err).Msg("tutor cache invalidation failed")
	}
}
