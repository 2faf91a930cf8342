package services

import (
	"context"
	"errors"

	"github.com/Dosada05/ranked-portal/models"
	"github.com/Dosada05/ranked-portal/repositories"
)

// Authorizer is the single place capability checks are derived.
type Authorizer interface {
	// CanArbitrate reports whether actorID may resolve disputes.
	CanArbitrate(ctx context.Context, actorID int) (bool, error)
	// CanManageTournament reports whether actorID may change t's status.
	CanManageTournament(ctx context.Context, actorID int, t *models.Tournament) (bool, error)
}

// RoleAuthorizer derives capabilities from the user's stored role.
type RoleAuthorizer struct {
	users repositories.UserRepository
}

func NewRoleAuthorizer(users repositories.UserRepository) *RoleAuthorizer {
	return &RoleAuthorizer{users: users}
}

func (a *RoleAuthorizer) CanArbitrate(ctx context.Context, actorID int) (bool, error) {
	u, err := a.users.GetByID(ctx, nil, actorID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.Role == models.RoleAdmin || u.Role == models.RoleModerator, nil
}

func (a *RoleAuthorizer) CanManageTournament(ctx context.Context, actorID int, t *models.Tournament) (bool, error) {
	if t != nil && t.OrganizerID == actorID {
		return true, nil
	}
	return a.CanArbitrate(ctx, actorID)
}
