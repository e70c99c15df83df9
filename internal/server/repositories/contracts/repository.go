// Package contracts persists transport service contract records.
package contracts

import (
	"context"

	"github.com/fleetops/contractd/internal/server/models"
)

// Repository is the storage contract for contract records. Get/Update/
// Patch/Delete return common.ErrorNotFound when the id is absent.
type Repository interface {
	// Create inserts a record and fills in the generated id and timestamps.
	Create(ctx context.Context, contract *models.Contract) (*models.Contract, error)
	// Get fetches a single record by id.
	Get(ctx context.Context, id string) (*models.Contract, error)
	// List returns records newest-first. An empty owner returns all records;
	// otherwise only those with created_by == owner.
	List(ctx context.Context, owner string) ([]*models.Contract, error)
	// Update writes the full merged field set and advances updated_at.
	// Merge semantics live in the service layer.
	Update(ctx context.Context, contract *models.Contract) error
	// PatchDocumentRef records a successful render: sets the document
	// reference, marks the document ready, and advances updated_at.
	PatchDocumentRef(ctx context.Context, id, ref string) error
	// SetDocumentStatus flips only the document status (e.g. to failed);
	// the stored reference and updated_at are left untouched.
	SetDocumentStatus(ctx context.Context, id string, status models.DocumentStatus) error
	// Delete removes the record.
	Delete(ctx context.Context, id string) error
}
