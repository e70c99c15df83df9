package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/contractd/internal/common"
	"github.com/fleetops/contractd/internal/server/models"
)

type fakeContractsRepo struct {
	createFn    func(ctx context.Context, contract *models.Contract) (*models.Contract, error)
	getFn       func(ctx context.Context, id string) (*models.Contract, error)
	listFn      func(ctx context.Context, owner string) ([]*models.Contract, error)
	updateFn    func(ctx context.Context, contract *models.Contract) error
	patchFn     func(ctx context.Context, id, ref string) error
	setStatusFn func(ctx context.Context, id string, status models.DocumentStatus) error
	deleteFn    func(ctx context.Context, id string) error
}

func (f *fakeContractsRepo) Create(ctx context.Context, contract *models.Contract) (*models.Contract, error) {
	return f.createFn(ctx, contract)
}

func (f *fakeContractsRepo) Get(ctx context.Context, id string) (*models.Contract, error) {
	return f.getFn(ctx, id)
}

func (f *fakeContractsRepo) List(ctx context.Context, owner string) ([]*models.Contract, error) {
	return f.listFn(ctx, owner)
}

func (f *fakeContractsRepo) Update(ctx context.Context, contract *models.Contract) error {
	return f.updateFn(ctx, contract)
}

func (f *fakeContractsRepo) PatchDocumentRef(ctx context.Context, id, ref string) error {
	return f.patchFn(ctx, id, ref)
}

func (f *fakeContractsRepo) SetDocumentStatus(ctx context.Context, id string, status models.DocumentStatus) error {
	return f.setStatusFn(ctx, id, status)
}

func (f *fakeContractsRepo) Delete(ctx context.Context, id string) error {
	return f.deleteFn(ctx, id)
}

type fakeStore struct {
	uploadFn       func(ctx context.Context, key string, data []byte) error
	presignFn      func(ctx context.Context, key string, ttl time.Duration) (string, error)
	presignBatchFn func(ctx context.Context, keys []string, ttl time.Duration) (map[string]string, error)
	deleteFn       func(ctx context.Context, key string) error
}

func (f *fakeStore) Upload(ctx context.Context, key string, data []byte) error {
	return f.uploadFn(ctx, key, data)
}

func (f *fakeStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return f.presignFn(ctx, key, ttl)
}

func (f *fakeStore) PresignGetBatch(ctx context.Context, keys []string, ttl time.Duration) (map[string]string, error) {
	return f.presignBatchFn(ctx, keys, ttl)
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	return f.deleteFn(ctx, key)
}

type fakeRenderer struct {
	renderFn func(contract *models.Contract, signedAt time.Time) ([]byte, error)
}

func (f *fakeRenderer) Render(contract *models.Contract, signedAt time.Time) ([]byte, error) {
	return f.renderFn(contract, signedAt)
}

func withFixedDocumentKey(t *testing.T, key string) {
	t.Helper()
	original := makeDocumentKey
	makeDocumentKey = func(contractID string) string { return key }
	t.Cleanup(func() { makeDocumentKey = original })
}

const testContractID = "0c7a2f1e-43a1-4be6-9d0b-6d8f4a2e9c11"

var (
	ownerActor = &models.User{ID: "u1", ExternalID: "openid-owner", Role: models.RoleUser}
	otherActor = &models.User{ID: "u2", ExternalID: "openid-other", Role: models.RoleUser}
	adminActor = &models.User{ID: "u3", ExternalID: "openid-admin", Role: models.RoleAdmin}
)

func validInput() *ContractInput {
	return &ContractInput{
		City:       "杭州",
		Address:    "测试路 1 号",
		DriverName: "张三",
		IDNumber:   "330100199001011234",
		Birthday:   "1990-01-01",
		ExtraNotes: "夜间运输",
	}
}

func newTestService(repo *fakeContractsRepo, store *fakeStore, renderer *fakeRenderer) *ContractService {
	return NewContractService(nil, &fakeRepoManager{contracts: repo}, store, renderer, 2*time.Hour, testLogger())
}

func TestContractCreate(t *testing.T) {
	withFixedDocumentKey(t, "contracts/fixed.pdf")

	repo := &fakeContractsRepo{
		createFn: func(ctx context.Context, contract *models.Contract) (*models.Contract, error) {
			assert.Equal(t, "openid-owner", contract.CreatedBy)
			assert.Equal(t, "杭州", contract.City)
			contract.ID = testContractID
			contract.DocumentStatus = models.DocumentPending
			return contract, nil
		},
		patchFn: func(ctx context.Context, id, ref string) error {
			assert.Equal(t, testContractID, id)
			assert.Equal(t, "contracts/fixed.pdf", ref)
			return nil
		},
	}
	store := &fakeStore{
		uploadFn: func(ctx context.Context, key string, data []byte) error {
			assert.Equal(t, "contracts/fixed.pdf", key)
			assert.Equal(t, []byte("pdf-bytes"), data)
			return nil
		},
		presignFn: func(ctx context.Context, key string, ttl time.Duration) (string, error) {
			assert.Equal(t, 2*time.Hour, ttl)
			return "https://signed.example/" + key, nil
		},
	}
	renderer := &fakeRenderer{
		renderFn: func(contract *models.Contract, signedAt time.Time) ([]byte, error) {
			return []byte("pdf-bytes"), nil
		},
	}

	s := newTestService(repo, store, renderer)

	result, err := s.Create(context.Background(), ownerActor, validInput())

	require.NoError(t, err)
	assert.Equal(t, testContractID, result.Contract.ID)
	assert.Equal(t, "contracts/fixed.pdf", result.Contract.DocumentRef)
	assert.Equal(t, models.DocumentReady, result.Contract.DocumentStatus)
	assert.Equal(t, "https://signed.example/contracts/fixed.pdf", result.PDFURL)
}

func TestContractCreateForbiddenForAdmin(t *testing.T) {
	s := newTestService(&fakeContractsRepo{}, &fakeStore{}, &fakeRenderer{})

	result, err := s.Create(context.Background(), adminActor, validInput())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, common.ErrorRoleDenied)
	assert.ErrorIs(t, err, common.ErrorForbidden)
}

func TestContractCreateMissingField(t *testing.T) {
	s := newTestService(&fakeContractsRepo{}, &fakeStore{}, &fakeRenderer{})

	tests := []struct {
		field  string
		mutate func(*ContractInput)
	}{
		{"city", func(in *ContractInput) { in.City = "" }},
		{"address", func(in *ContractInput) { in.Address = "" }},
		{"driverName", func(in *ContractInput) { in.DriverName = "" }},
		{"idNumber", func(in *ContractInput) { in.IDNumber = "" }},
		{"birthday", func(in *ContractInput) { in.Birthday = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			in := validInput()
			tt.mutate(in)

			result, err := s.Create(context.Background(), ownerActor, in)

			assert.Nil(t, result)
			var verr *common.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestContractCreateNotesOptional(t *testing.T) {
	withFixedDocumentKey(t, "contracts/fixed.pdf")

	repo := &fakeContractsRepo{
		createFn: func(ctx context.Context, contract *models.Contract) (*models.Contract, error) {
			assert.Empty(t, contract.ExtraNotes)
			contract.ID = testContractID
			return contract, nil
		},
		patchFn: func(ctx context.Context, id, ref string) error { return nil },
	}
	store := &fakeStore{
		uploadFn:  func(ctx context.Context, key string, data []byte) error { return nil },
		presignFn: func(ctx context.Context, key string, ttl time.Duration) (string, error) { return "url", nil },
	}
	renderer := &fakeRenderer{
		renderFn: func(contract *models.Contract, signedAt time.Time) ([]byte, error) { return []byte("x"), nil },
	}

	in := validInput()
	in.ExtraNotes = ""

	_, err := newTestService(repo, store, renderer).Create(context.Background(), ownerActor, in)

	require.NoError(t, err)
}

func TestContractCreateRenderFailureMarksFailed(t *testing.T) {
	marked := false

	repo := &fakeContractsRepo{
		createFn: func(ctx context.Context, contract *models.Contract) (*models.Contract, error) {
			contract.ID = testContractID
			return contract, nil
		},
		setStatusFn: func(ctx context.Context, id string, status models.DocumentStatus) error {
			marked = true
			assert.Equal(t, testContractID, id)
			assert.Equal(t, models.DocumentFailed, status)
			return nil
		},
	}
	renderer := &fakeRenderer{
		renderFn: func(contract *models.Contract, signedAt time.Time) ([]byte, error) {
			return nil, common.ErrorRender
		},
	}

	s := newTestService(repo, &fakeStore{}, renderer)

	result, err := s.Create(context.Background(), ownerActor, validInput())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, common.ErrorRender)
	assert.True(t, marked)
}

func TestContractCreateUploadFailureMarksFailed(t *testing.T) {
	marked := false

	repo := &fakeContractsRepo{
		createFn: func(ctx context.Context, contract *models.Contract) (*models.Contract, error) {
			contract.ID = testContractID
			return contract, nil
		},
		setStatusFn: func(ctx context.Context, id string, status models.DocumentStatus) error {
			marked = true
			return nil
		},
	}
	store := &fakeStore{
		uploadFn: func(ctx context.Context, key string, data []byte) error {
			return common.ErrorStorage
		},
	}
	renderer := &fakeRenderer{
		renderFn: func(contract *models.Contract, signedAt time.Time) ([]byte, error) { return []byte("x"), nil },
	}

	s := newTestService(repo, store, renderer)

	result, err := s.Create(context.Background(), ownerActor, validInput())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, common.ErrorStorage)
	assert.True(t, marked)
}

func TestContractUpdateMergesFields(t *testing.T) {
	withFixedDocumentKey(t, "contracts/updated.pdf")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	current := &models.Contract{
		ID:         testContractID,
		City:       "杭州",
		Address:    "旧地址",
		DriverName: "张三",
		IDNumber:   "330100199001011234",
		Birthday:   "1990-01-01",
		ExtraNotes: "旧备注",
		CreatedBy:  "openid-owner",
	}

	var updated *models.Contract
	repo := &fakeContractsRepo{
		getFn: func(ctx context.Context, id string) (*models.Contract, error) {
			assert.Equal(t, testContractID, id)
			return current, nil
		},
		updateFn: func(ctx context.Context, contract *models.Contract) error {
			updated = contract
			return nil
		},
		patchFn: func(ctx context.Context, id, ref string) error { return nil },
	}
	store := &fakeStore{
		uploadFn:  func(ctx context.Context, key string, data []byte) error { return nil },
		presignFn: func(ctx context.Context, key string, ttl time.Duration) (string, error) { return "url", nil },
	}
	renderer := &fakeRenderer{
		renderFn: func(contract *models.Contract, signedAt time.Time) ([]byte, error) { return []byte("x"), nil },
	}

	s := NewContractService(db, &fakeRepoManager{contracts: repo}, store, renderer, 2*time.Hour, testLogger())

	result, err := s.Update(context.Background(), ownerActor, testContractID, &ContractInput{Address: "新地址"})

	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "新地址", updated.Address)
	assert.Equal(t, "杭州", updated.City)
	assert.Equal(t, "旧备注", updated.ExtraNotes)
	assert.Equal(t, "openid-owner", updated.CreatedBy)
	assert.Equal(t, "contracts/updated.pdf", result.Contract.DocumentRef)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractUpdateNotOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	repo := &fakeContractsRepo{
		getFn: func(ctx context.Context, id string) (*models.Contract, error) {
			return &models.Contract{ID: testContractID, CreatedBy: "openid-owner"}, nil
		},
	}

	s := NewContractService(db, &fakeRepoManager{contracts: repo}, &fakeStore{}, &fakeRenderer{}, 2*time.Hour, testLogger())

	result, err := s.Update(context.Background(), otherActor, testContractID, &ContractInput{City: "上海"})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, common.ErrorForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractUpdateForbiddenForAdmin(t *testing.T) {
	s := newTestService(&fakeContractsRepo{}, &fakeStore{}, &fakeRenderer{})

	result, err := s.Update(context.Background(), adminActor, testContractID, &ContractInput{City: "上海"})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, common.ErrorRoleDenied)
}

func TestContractUpdateOwnershipDenialIsNotRoleDenial(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	repo := &fakeContractsRepo{
		getFn: func(ctx context.Context, id string) (*models.Contract, error) {
			return &models.Contract{ID: testContractID, CreatedBy: "openid-owner"}, nil
		},
	}

	s := NewContractService(db, &fakeRepoManager{contracts: repo}, &fakeStore{}, &fakeRenderer{}, 2*time.Hour, testLogger())

	_, err = s.Update(context.Background(), otherActor, testContractID, &ContractInput{City: "上海"})

	assert.ErrorIs(t, err, common.ErrorForbidden)
	assert.NotErrorIs(t, err, common.ErrorRoleDenied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractUpdateMalformedID(t *testing.T) {
	s := newTestService(&fakeContractsRepo{}, &fakeStore{}, &fakeRenderer{})

	result, err := s.Update(context.Background(), ownerActor, "not-a-uuid", &ContractInput{City: "上海"})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestContractDelete(t *testing.T) {
	deletedKey := ""

	repo := &fakeContractsRepo{
		getFn: func(ctx context.Context, id string) (*models.Contract, error) {
			return &models.Contract{ID: testContractID, CreatedBy: "openid-owner", DocumentRef: "contracts/doc.pdf"}, nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			assert.Equal(t, testContractID, id)
			return nil
		},
	}
	store := &fakeStore{
		deleteFn: func(ctx context.Context, key string) error {
			deletedKey = key
			return nil
		},
	}

	s := newTestService(repo, store, &fakeRenderer{})

	err := s.Delete(context.Background(), ownerActor, testContractID)

	require.NoError(t, err)
	assert.Equal(t, "contracts/doc.pdf", deletedKey)
}

func TestContractDeleteDocumentFailureIgnored(t *testing.T) {
	repo := &fakeContractsRepo{
		getFn: func(ctx context.Context, id string) (*models.Contract, error) {
			return &models.Contract{ID: testContractID, CreatedBy: "openid-owner", DocumentRef: "contracts/doc.pdf"}, nil
		},
		deleteFn: func(ctx context.Context, id string) error { return nil },
	}
	store := &fakeStore{
		deleteFn: func(ctx context.Context, key string) error { return common.ErrorStorage },
	}

	err := newTestService(repo, store, &fakeRenderer{}).Delete(context.Background(), ownerActor, testContractID)

	assert.NoError(t, err)
}

func TestContractDeleteByAdmin(t *testing.T) {
	recordDeleted := false

	repo := &fakeContractsRepo{
		getFn: func(ctx context.Context, id string) (*models.Contract, error) {
			return &models.Contract{ID: testContractID, CreatedBy: "openid-owner"}, nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			recordDeleted = true
			return nil
		},
	}

	err := newTestService(repo, &fakeStore{}, &fakeRenderer{}).Delete(context.Background(), adminActor, testContractID)

	require.NoError(t, err)
	assert.True(t, recordDeleted)
}

func TestContractDeleteNotOwner(t *testing.T) {
	repo := &fakeContractsRepo{
		getFn: func(ctx context.Context, id string) (*models.Contract, error) {
			return &models.Contract{ID: testContractID, CreatedBy: "openid-owner"}, nil
		},
	}

	err := newTestService(repo, &fakeStore{}, &fakeRenderer{}).Delete(context.Background(), otherActor, testContractID)

	assert.ErrorIs(t, err, common.ErrorForbidden)
}

func TestContractList(t *testing.T) {
	records := []*models.Contract{
		{ID: "c1", DocumentRef: "contracts/a.pdf"},
		{ID: "c2"},
		{ID: "c3", DocumentRef: "contracts/b.pdf"},
	}

	repo := &fakeContractsRepo{
		listFn: func(ctx context.Context, owner string) ([]*models.Contract, error) {
			assert.Equal(t, "openid-owner", owner)
			return records, nil
		},
	}
	store := &fakeStore{
		presignBatchFn: func(ctx context.Context, keys []string, ttl time.Duration) (map[string]string, error) {
			assert.Equal(t, []string{"contracts/a.pdf", "contracts/b.pdf"}, keys)
			return map[string]string{
				"contracts/a.pdf": "url-a",
				"contracts/b.pdf": "url-b",
			}, nil
		},
	}

	result, err := newTestService(repo, store, &fakeRenderer{}).List(context.Background(), ownerActor)

	require.NoError(t, err)
	require.Len(t, result, 3)
	assert.Equal(t, "url-a", result[0].PDFURL)
	assert.Empty(t, result[1].PDFURL)
	assert.Equal(t, "url-b", result[2].PDFURL)
}

func TestContractListAdminSeesAll(t *testing.T) {
	repo := &fakeContractsRepo{
		listFn: func(ctx context.Context, owner string) ([]*models.Contract, error) {
			assert.Empty(t, owner)
			return nil, nil
		},
	}
	store := &fakeStore{
		presignBatchFn: func(ctx context.Context, keys []string, ttl time.Duration) (map[string]string, error) {
			return map[string]string{}, nil
		},
	}

	result, err := newTestService(repo, store, &fakeRenderer{}).List(context.Background(), adminActor)

	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestContractGet(t *testing.T) {
	repo := &fakeContractsRepo{
		getFn: func(ctx context.Context, id string) (*models.Contract, error) {
			return &models.Contract{ID: testContractID, CreatedBy: "openid-owner", DocumentRef: "contracts/doc.pdf"}, nil
		},
	}
	store := &fakeStore{
		presignFn: func(ctx context.Context, key string, ttl time.Duration) (string, error) {
			assert.Equal(t, "contracts/doc.pdf", key)
			return "signed-url", nil
		},
	}

	result, err := newTestService(repo, store, &fakeRenderer{}).Get(context.Background(), ownerActor, testContractID)

	require.NoError(t, err)
	assert.Equal(t, "signed-url", result.PDFURL)
}

func TestContractGetNotOwner(t *testing.T) {
	repo := &fakeContractsRepo{
		getFn: func(ctx context.Context, id string) (*models.Contract, error) {
			return &models.Contract{ID: testContractID, CreatedBy: "openid-owner"}, nil
		},
	}

	result, err := newTestService(repo, &fakeStore{}, &fakeRenderer{}).Get(context.Background(), otherActor, testContractID)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, common.ErrorForbidden)
}

func TestContractGetErrors(t *testing.T) {
	t.Run("malformed id", func(t *testing.T) {
		result, err := newTestService(&fakeContractsRepo{}, &fakeStore{}, &fakeRenderer{}).Get(context.Background(), ownerActor, "42")

		assert.Nil(t, result)
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("repository error", func(t *testing.T) {
		dbErr := errors.New("connection reset")
		repo := &fakeContractsRepo{
			getFn: func(ctx context.Context, id string) (*models.Contract, error) { return nil, dbErr },
		}

		result, err := newTestService(repo, &fakeStore{}, &fakeRenderer{}).Get(context.Background(), ownerActor, testContractID)

		assert.Nil(t, result)
		assert.ErrorIs(t, err, dbErr)
	})
}
