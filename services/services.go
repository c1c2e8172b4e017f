package services

import (
	"time"

	"github.com/anjiri1684/scholarlink/cache"
	"github.com/anjiri1684/scholarlink/database"
	"github.com/anjiri1684/scholarlink/models"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var validate = validator.New()

// Publisher receives notifications after the transaction that recorded
// them has committed.
type Publisher interface {
	Publish(n models.Notification)
}

type Options struct {
	BcryptCost   int
	Subjects     []string
	CacheTTL     time.Duration
	EmailEnabled bool
	Now          func() time.Time
}

// Services is the process-wide object graph of the booking core.
type Services struct {
	Directory     *Directory
	Sessions      *SessionStore
	Notifications *NotificationCenter
	Coordinator   *Coordinator
}

func New(store database.Store, c cache.Cache, publisher Publisher, opts Options, logger zerolog.Logger) *Services {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if c == nil {
		c = cache.Noop{}
	}

	directory := &Directory{
		store:    store,
		cache:    c,
		log:      logger.With().Str("component", "directory").Logger(),
		cost:     opts.BcryptCost,
		subjects: append([]string(nil), opts.Subjects...),
		cacheTTL: opts.CacheTTL,
	}
	sessions := &SessionStore{
		store: store,
		log:   logger.With().Str("component", "sessions").Logger(),
		now:   opts.Now,
	}
	notifications := &NotificationCenter{
		store:        store,
		publisher:    publisher,
		emailEnabled: opts.EmailEnabled,
		log:          logger.With().Str("component", "notifications").Logger(),
		now:          opts.Now,
	}
	coordinator := &Coordinator{
		store:         store,
		directory:     directory,
		sessions:      sessions,
		notifications: notifications,
		log:           logger.With().Str("component", "coordinator").Logger(),
		now:           opts.Now,
	}
	directory.remover = coordinator
	return &Services{
		Directory:     directory,
		Sessions:      sessions,
		Notifications: notifications,
		Coordinator:   coordinator,
	}
}
