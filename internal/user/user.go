package user

import (
	"context"
	"errors"
)

const RoleUser = "USER"

var (
	ErrNotFound            = errors.New("user not found")
	ErrDuplicateExternalID = errors.New("user with this external id already exists")
)

// User is the local account linked to one Google subject.
type User struct {
	ID         int64
	Email      string
	Name       *string
	ExternalID string
	Role       string
	Color      string
	Picture    string
}

// DisplayName returns the name or "" when none is stored.
func (u *User) DisplayName() string {
	if u.Name == nil {
		return ""
	}
	return *u.Name
}

// Store is the persistence collaborator. Implementations must enforce
// uniqueness of ExternalID and report a violation as ErrDuplicateExternalID;
// the resolver relies on that instead of in-process locking.
type Store interface {
	FindByExternalID(ctx context.Context, externalID string) (*User, error)
	Create(ctx context.Context, u *User) error
}
