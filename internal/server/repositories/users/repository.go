// Package users persists identity records keyed by opaque external identity.
package users

import (
	"context"

	"github.com/fleetops/contractd/internal/server/models"
)

// Repository is the storage contract for user records.
type Repository interface {
	// Create inserts a user; a duplicate external identity yields
	// common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetByExternalID fetches the user for an external identity or
	// common.ErrorNotFound.
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	// UpdateRole sets the role for an external identity. Role changes are
	// deliberately unavailable through the HTTP surface.
	UpdateRole(ctx context.Context, externalID string, role models.Role) error
}
