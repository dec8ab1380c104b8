package auth

import (
	"errors"
	"fmt"
)

// Kind classifies a callback failure so the HTTP boundary can choose a status.
type Kind string

const (
	KindValidation    Kind = "ValidationError"
	KindTokenExchange Kind = "TokenExchangeError"
	KindProfile       Kind = "ProfileError"
	KindUnverified    Kind = "UnverifiedEmailError"
	KindPersistence   Kind = "PersistenceError"
	KindSigning       Kind = "SigningError"
	KindInternal      Kind = "InternalError"
)

var (
	ErrCodeRequired = errors.New("code is required")
	ErrCodeReused   = errors.New("authorization code already used")
)

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindInternal
}
