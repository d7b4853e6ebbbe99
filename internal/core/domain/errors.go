package domain

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrForbidden        = errors.New("forbidden")
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrConflict is returned by stores when a conditional status write loses
	// against a concurrent writer.
	ErrConflict = errors.New("status changed concurrently")
)

// FieldError is used to indicate an error with a specific payload field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(flds ...FieldError) error {
	return &ValidationError{Fields: flds}
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return "invalid fields: " + strings.Join(names, ", ")
}

type IllegalTransitionError struct {
	Kind Kind
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	from := e.From
	if from == "" {
		from = "<none>"
	}
	return fmt.Sprintf("%s: cannot move from %s to %s", e.Kind, from, e.To)
}

// AuthError covers bad credentials, unknown users, wrong shared secrets and
// failed CAPTCHA checks.
type AuthError struct {
	Reason string
}

func NewAuthError(reason string) error {
	return &AuthError{Reason: reason}
}

func (e *AuthError) Error() string {
	return e.Reason
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsIllegalTransition(err error) bool {
	var te *IllegalTransitionError
	return errors.As(err, &te)
}

func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
