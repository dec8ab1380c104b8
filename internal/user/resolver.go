package user

import (
	"context"
	"errors"
	"fmt"

	"authgate/internal/google"
	"authgate/pkg/idgen"
	"authgate/pkg/logger"
)

// Resolver maps a verified Google profile to a local user.
type Resolver struct {
	store  Store
	ids    idgen.Generator
	color  func() string
	logger logger.Logger
}

func NewResolver(store Store, ids idgen.Generator, log logger.Logger) *Resolver {
	return &Resolver{
		store:  store,
		ids:    ids,
		color:  RandomColor,
		logger: log,
	}
}

// FindOrCreate returns the user linked to profile.ExternalID, creating it on
// first login. Existing users are returned unchanged, even when the profile
// carries a newer name or picture.
func (r *Resolver) FindOrCreate(ctx context.Context, profile *google.Profile) (*User, error) {
	if profile == nil || profile.ExternalID == "" {
		return nil, errors.New("profile has no external id")
	}

	existing, err := r.store.FindByExternalID(ctx, profile.ExternalID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	u := &User{
		ID:         r.ids.NextID(),
		Email:      profile.Email,
		ExternalID: profile.ExternalID,
		Role:       RoleUser,
		Color:      r.color(),
		Picture:    profile.Picture,
	}
	if profile.Name != "" {
		name := profile.Name
		u.Name = &name
	}

	err = r.store.Create(ctx, u)
	if errors.Is(err, ErrDuplicateExternalID) {
		// lost a first-login race; the winner's row is authoritative
		r.logger.Warn("concurrent first login, reading existing user",
			logger.Field{Key: "google_id", Value: profile.ExternalID},
		)
		existing, findErr := r.store.FindByExternalID(ctx, profile.ExternalID)
		if findErr != nil {
			return nil, fmt.Errorf("reread after duplicate: %w", findErr)
		}
		return existing, nil
	}
	if err != nil {
		return nil, err
	}

	r.logger.Info("user created",
		logger.Field{Key: "user_id", Value: u.ID},
		logger.Field{Key: "google_id", Value: u.ExternalID},
	)
	return u, nil
}
