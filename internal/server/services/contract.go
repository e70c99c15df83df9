package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/fleetops/contractd/internal/common"
	"github.com/fleetops/contractd/internal/dbx"
	"github.com/fleetops/contractd/internal/logging"
	"github.com/fleetops/contractd/internal/server/models"
	"github.com/fleetops/contractd/internal/server/repositories/repomanager"
	"github.com/fleetops/contractd/internal/server/storage"
)

// DocumentRenderer renders a fully-populated contract snapshot into
// document bytes.
type DocumentRenderer interface {
	Render(contract *models.Contract, signedAt time.Time) ([]byte, error)
}

// ObjectStore is the blob-store surface the orchestrator depends on.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	PresignGetBatch(ctx context.Context, keys []string, ttl time.Duration) (map[string]string, error)
	Delete(ctx context.Context, key string) error
}

// ContractInput carries caller-supplied contract fields. Empty values are
// rejected on create and ignored on update (partial merge).
type ContractInput struct {
	City       string
	Address    string
	DriverName string
	IDNumber   string
	Birthday   string
	ExtraNotes string
}

// ContractWithURL pairs a record with a freshly presigned document URL.
// The URL is derived per response and never persisted.
type ContractWithURL struct {
	Contract *models.Contract
	PDFURL   string
}

// requiredFields lists create-mandatory fields by their wire names, in
// validation order.
var requiredFields = []struct {
	name  string
	value func(*ContractInput) string
}{
	{"city", func(in *ContractInput) string { return in.City }},
	{"address", func(in *ContractInput) string { return in.Address }},
	{"driverName", func(in *ContractInput) string { return in.DriverName }},
	{"idNumber", func(in *ContractInput) string { return in.IDNumber }},
	{"birthday", func(in *ContractInput) string { return in.Birthday }},
}

// makeDocumentKey is a seam for deterministic keys in tests.
var makeDocumentKey = storage.MakeDocumentKey

// ContractService orchestrates contract CRUD with the synchronous
// render-upload-patch document pipeline.
type ContractService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       ObjectStore
	renderer    DocumentRenderer
	urlTTL      time.Duration
	logger      logging.Logger
}

// NewContractService constructs a ContractService.
func NewContractService(db *sql.DB, m repomanager.RepositoryManager, store ObjectStore, renderer DocumentRenderer, urlTTL time.Duration, logger logging.Logger) *ContractService {
	return &ContractService{
		db:          db,
		repomanager: m,
		store:       store,
		renderer:    renderer,
		urlTTL:      urlTTL,
		logger:      logger.With("module", "contracts"),
	}
}

// Create validates, persists a new record, then renders and attaches its
// document. A render or upload failure is surfaced as the overall failure;
// the record stays behind with document status "failed" and no reference.
func (s *ContractService) Create(ctx context.Context, actor *models.User, in *ContractInput) (*ContractWithURL, error) {
	if !Allowed(OpCreate, actor.Role, actor.ExternalID, "") {
		return nil, common.ErrorRoleDenied
	}
	for _, f := range requiredFields {
		if f.value(in) == "" {
			return nil, common.NewValidationError(f.name)
		}
	}

	repo := s.repomanager.Contracts(s.db)

	contract, err := repo.Create(ctx, &models.Contract{
		City:       in.City,
		Address:    in.Address,
		DriverName: in.DriverName,
		IDNumber:   in.IDNumber,
		Birthday:   in.Birthday,
		ExtraNotes: in.ExtraNotes,
		CreatedBy:  actor.ExternalID,
	})
	if err != nil {
		return nil, err
	}

	return s.attachDocument(ctx, contract)
}

// Update applies a partial merge to an owned record inside a transaction,
// then re-renders and attaches a new document reference. The previous
// document object is left in place.
func (s *ContractService) Update(ctx context.Context, actor *models.User, id string, in *ContractInput) (*ContractWithURL, error) {
	if actor.Role != models.RoleUser {
		return nil, common.ErrorRoleDenied
	}
	if uuid.Validate(id) != nil {
		return nil, common.ErrorNotFound
	}

	var merged *models.Contract
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Contracts(tx)

		current, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !Allowed(OpUpdate, actor.Role, actor.ExternalID, current.CreatedBy) {
			return common.ErrorForbidden
		}

		merged = mergeFields(current, in)
		return repo.Update(ctx, merged)
	})
	if err != nil {
		return nil, err
	}

	return s.attachDocument(ctx, merged)
}

// Delete removes the record, then best-effort deletes its document.
// Document deletion failure is logged and never reverses the removal.
func (s *ContractService) Delete(ctx context.Context, actor *models.User, id string) error {
	if uuid.Validate(id) != nil {
		return common.ErrorNotFound
	}

	repo := s.repomanager.Contracts(s.db)

	contract, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !Allowed(OpDelete, actor.Role, actor.ExternalID, contract.CreatedBy) {
		return common.ErrorForbidden
	}

	if err := repo.Delete(ctx, id); err != nil {
		return err
	}

	if contract.DocumentRef != "" {
		if derr := s.store.Delete(ctx, contract.DocumentRef); derr != nil {
			s.logger.Warn(ctx, "document delete failed", "contract_id", id, "document_ref", contract.DocumentRef, "error", derr.Error())
		}
	}

	return nil
}

// List returns the actor's visible records newest-first, each with a fresh
// temporary URL (empty string when no document exists).
func (s *ContractService) List(ctx context.Context, actor *models.User) ([]*ContractWithURL, error) {
	repo := s.repomanager.Contracts(s.db)

	records, err := repo.List(ctx, ListScope(actor))
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(records))
	for _, c := range records {
		if c.DocumentRef != "" {
			keys = append(keys, c.DocumentRef)
		}
	}

	urls, err := s.store.PresignGetBatch(ctx, keys, s.urlTTL)
	if err != nil {
		return nil, err
	}

	result := make([]*ContractWithURL, 0, len(records))
	for _, c := range records {
		result = append(result, &ContractWithURL{Contract: c, PDFURL: urls[c.DocumentRef]})
	}
	return result, nil
}

// Get fetches a single record, authorizes the actor, and resolves its
// temporary URL.
func (s *ContractService) Get(ctx context.Context, actor *models.User, id string) (*ContractWithURL, error) {
	if uuid.Validate(id) != nil {
		return nil, common.ErrorNotFound
	}

	repo := s.repomanager.Contracts(s.db)

	contract, err := repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !Allowed(OpGet, actor.Role, actor.ExternalID, contract.CreatedBy) {
		return nil, common.ErrorForbidden
	}

	url, err := s.store.PresignGet(ctx, contract.DocumentRef, s.urlTTL)
	if err != nil {
		return nil, err
	}

	return &ContractWithURL{Contract: contract, PDFURL: url}, nil
}

// attachDocument runs the render → upload → patch sequence for contract
// and resolves the response URL. The sequence is deliberately not atomic
// with the preceding record write: on failure the record keeps its
// previous reference (or none) and the status flips to failed.
func (s *ContractService) attachDocument(ctx context.Context, contract *models.Contract) (*ContractWithURL, error) {
	repo := s.repomanager.Contracts(s.db)

	key, err := s.renderAndUpload(ctx, contract)
	if err == nil {
		err = repo.PatchDocumentRef(ctx, contract.ID, key)
	}
	if err != nil {
		if serr := repo.SetDocumentStatus(ctx, contract.ID, models.DocumentFailed); serr != nil {
			s.logger.Error(ctx, "failed to mark document failed", "contract_id", contract.ID, "error", serr.Error())
		}
		return nil, err
	}

	contract.DocumentRef = key
	contract.DocumentStatus = models.DocumentReady
	contract.UpdatedAt = time.Now()

	url, err := s.store.PresignGet(ctx, key, s.urlTTL)
	if err != nil {
		return nil, err
	}

	return &ContractWithURL{Contract: contract, PDFURL: url}, nil
}

func (s *ContractService) renderAndUpload(ctx context.Context, contract *models.Contract) (string, error) {
	data, err := s.renderer.Render(contract, time.Now())
	if err != nil {
		return "", err
	}

	key := makeDocumentKey(contract.ID)
	if err := s.store.Upload(ctx, key, data); err != nil {
		return "", err
	}

	return key, nil
}

// mergeFields applies partial-merge semantics: an empty inbound value
// keeps the stored one. CreatedBy and timestamps are never touched here.
func mergeFields(current *models.Contract, in *ContractInput) *models.Contract {
	merged := *current
	if in.City != "" {
		merged.City = in.City
	}
	if in.Address != "" {
		merged.Address = in.Address
	}
	if in.DriverName != "" {
		merged.DriverName = in.DriverName
	}
	if in.IDNumber != "" {
		merged.IDNumber = in.IDNumber
	}
	if in.Birthday != "" {
		merged.Birthday = in.Birthday
	}
	if in.ExtraNotes != "" {
		merged.ExtraNotes = in.ExtraNotes
	}
	return &merged
}
