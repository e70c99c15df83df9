// Package services contains server-side business logic: identity
// resolution, the access policy, and the contract orchestrator.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fleetops/contractd/internal/common"
	"github.com/fleetops/contractd/internal/logging"
	"github.com/fleetops/contractd/internal/server/models"
	"github.com/fleetops/contractd/internal/server/repositories/repomanager"
)

// IdentityService maps opaque external identities to user records,
// provisioning them lazily on first sight.
type IdentityService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

// NewIdentityService constructs an IdentityService.
func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *IdentityService {
	return &IdentityService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "identity"),
	}
}

// Resolve returns the user record for externalID, creating one with role
// "user" when none exists. An existing record is returned unchanged, so
// the role survives repeated resolution. Under concurrent first contact
// the unique constraint on external identity turns the losing insert into
// a re-fetch.
func (s *IdentityService) Resolve(ctx context.Context, externalID string) (*models.User, error) {
	if externalID == "" {
		return nil, common.ErrorUnauthenticated
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByExternalID(ctx, externalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error resolving identity: %w", err)
	}

	user, err = repo.Create(ctx, &models.User{ExternalID: externalID, Role: models.RoleUser})
	if err == nil {
		s.logger.Info(ctx, "provisioned user", "external_id", externalID)
		return user, nil
	}
	if errors.Is(err, common.ErrorAlreadyExists) {
		// lost a first-contact race; the record exists now
		return repo.GetByExternalID(ctx, externalID)
	}

	return nil, fmt.Errorf("error provisioning user: %w", err)
}
