package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var loadEnv sync.Once

// Config returns the value of key from the environment, loading .env on first use.
func Config(key string) string {
	loadEnv.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Debug().Msg(".env file not found, reading from system environment variables")
		}
	})
	return os.Getenv(key)
}

// DefaultSubjects is the catalog offered when SUBJECTS is not set.
var DefaultSubjects = []string{
	"Mathematics", "Programming", "Science", "English", "History", "Physics",
	"Chemistry", "Biology", "Psychology", "Economics", "Art", "Music",
}

const DefaultBrevoURL = "https://api.brevo.com/v3/smtp/email"

type Settings struct {
	Port        string
	Env         string
	DatabaseURL string
	RedisURL    string

	JWTSecret     string
	TokenTTL      time.Duration
	AdminEmail    string
	AdminPassword string
	BcryptCost    int

	BrevoAPIKey      string
	BrevoURL         string
	EmailSender      string
	EmailSenderName  string
	EmailBatchSize   int
	EmailMaxAttempts int

	LogLevel  string
	LogFormat string

	Subjects      []string
	TutorCacheTTL time.Duration
}

func (s *Settings) IsDevelopment() bool {
	return s.Env == "development"
}

// EmailEnabled reports whether outbound mail is fully configured.
func (s *Settings) EmailEnabled() bool {
	return s.BrevoAPIKey != "" && s.EmailSender != "" && s.EmailSenderName != ""
}

func Load() (*Settings, error) {
	return load(Config)
}

func load(get func(string) string) (*Settings, error) {
	s := &Settings{
		Port:            withDefault(get("PORT"), "8080"),
		Env:             withDefault(get("APP_ENV"), "development"),
		DatabaseURL:     get("DATABASE_URL"),
		RedisURL:        get("REDIS_URL"),
		JWTSecret:       get("JWT_SECRET"),
		AdminEmail:      strings.ToLower(strings.TrimSpace(get("ADMIN_EMAIL"))),
		AdminPassword:   get("ADMIN_PASSWORD"),
		BrevoAPIKey:     get("BREVO_API_KEY"),
		BrevoURL:        withDefault(get("BREVO_API_URL"), DefaultBrevoURL),
		EmailSender:     get("EMAIL_SENDER"),
		EmailSenderName: get("EMAIL_SENDER_NAME"),
		LogLevel:        withDefault(get("LOG_LEVEL"), "info"),
		LogFormat:       withDefault(get("LOG_FORMAT"), "json"),
		Subjects:        parseList(get("SUBJECTS"), DefaultSubjects),
	}

	var err error
	if s.TokenTTL, err = parseDuration(get, "TOKEN_TTL", 72*time.Hour); err != nil {
		return nil, err
	}
	if s.TutorCacheTTL, err = parseDuration(get, "TUTOR_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if s.BcryptCost, err = parseInt(get, "BCRYPT_COST", bcrypt.DefaultCost); err != nil {
		return nil, err
	}
	if s.BcryptCost < bcrypt.MinCost || s.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if s.EmailBatchSize, err = parseInt(get, "EMAIL_BATCH_SIZE", 50); err != nil {
		return nil, err
	}
	if s.EmailMaxAttempts, err = parseInt(get, "EMAIL_MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}

	if s.JWTSecret == "" {
		if !s.IsDevelopment() {
			return nil, errors.New("JWT_SECRET is required outside development")
		}
		s.JWTSecret = "scholarlink-development-secret"
	}
	return s, nil
}

func withDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func parseList(v string, def []string) []string {
	if strings.TrimSpace(v) == "" {
		return append([]string(nil), def...)
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseDuration(get func(string) string, key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(get(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func parseInt(get func(string) string, key string, def int) (int, error) {
	raw := strings.TrimSpace(get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return n, nil
}
