package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anjiri1684/scholarlink/database"
	"github.com/go-playground/validator/v10"
)

var (
	ErrDuplicateEmail     = errors.New("this email is already registered")
	ErrDuplicateUsername  = errors.New("this username is already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidTransition  = errors.New("invalid session status transition")
)

// ValidationError carries a user-correctable message about one input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// StorageError wraps a persistence failure. Nothing it reports was applied.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: storage failure: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// storage maps repository errors to service error kinds.
func storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		ve *ValidationError
		se *StorageError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &se):
		return err
	case errors.Is(err, database.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case isDomain(err):
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func isDomain(err error) bool {
	for _, target := range []error{
		ErrDuplicateEmail, ErrDuplicateUsername, ErrInvalidCredentials,
		ErrNotFound, ErrForbidden, ErrInvalidTransition,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// fromValidator turns the first validator failure into a ValidationError.
func fromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	fe := verrs[0]
	field := toSnake(fe.Field())
	switch fe.Tag() {
	case "required":
		return invalid(field, "is required")
	case "email":
		return invalid(field, "must be a valid email address")
	case "min":
		return invalid(field, "must be at least %s characters", fe.Param())
	case "max":
		return invalid(field, "must be at most %s characters", fe.Param())
	case "oneof":
		return invalid(field, "must be one of: %s", fe.Param())
	}
	return invalid(field, "failed %q validation", fe.Tag())
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
