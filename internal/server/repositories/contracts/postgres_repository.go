package contracts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fleetops/contractd/internal/common"
	"github.com/fleetops/contractd/internal/dbx"
	"github.com/fleetops/contractd/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, contract *models.Contract) (*models.Contract, error) {

	query :=
		`INSERT INTO contracts (city, address, driver_name, id_number, birthday, extra_notes, created_by, document_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at
		 `

	contract.DocumentStatus = models.DocumentPending
	err := r.db.QueryRowContext(ctx, query,
		contract.City, contract.Address, contract.DriverName, contract.IDNumber,
		contract.Birthday, contract.ExtraNotes, contract.CreatedBy, contract.DocumentStatus).
		Scan(&contract.ID, &contract.CreatedAt, &contract.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return contract, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Contract, error) {
	query :=
		`SELECT id, city, address, driver_name, id_number, birthday, extra_notes,
		        created_by, document_ref, document_status, created_at, updated_at
		 FROM contracts
		 WHERE id = $1
		 `

	c := &models.Contract{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.City, &c.Address, &c.DriverName, &c.IDNumber, &c.Birthday, &c.ExtraNotes,
		&c.CreatedBy, &c.DocumentRef, &c.DocumentStatus, &c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

func (r *PostgresRepository) List(ctx context.Context, owner string) ([]*models.Contract, error) {
	query :=
		`SELECT id, city, address, driver_name, id_number, birthday, extra_notes,
		        created_by, document_ref, document_status, created_at, updated_at
		 FROM contracts
		 `
	args := []any{}
	if owner != "" {
		query += `WHERE created_by = $1
		 `
		args = append(args, owner)
	}
	query += `ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select contracts: %w", err)
	}
	defer rows.Close()

	var result []*models.Contract
	for rows.Next() {
		var item models.Contract
		if err := rows.Scan(
			&item.ID, &item.City, &item.Address, &item.DriverName, &item.IDNumber,
			&item.Birthday, &item.ExtraNotes, &item.CreatedBy, &item.DocumentRef,
			&item.DocumentStatus, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, contract *models.Contract) error {
	query :=
		`UPDATE contracts
		 SET city = $2, address = $3, driver_name = $4, id_number = $5,
		     birthday = $6, extra_notes = $7, updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query,
		contract.ID, contract.City, contract.Address, contract.DriverName,
		contract.IDNumber, contract.Birthday, contract.ExtraNotes)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return requireOneRow(res)
}

func (r *PostgresRepository) PatchDocumentRef(ctx context.Context, id, ref string) error {
	query :=
		`UPDATE contracts
		 SET document_ref = $2, document_status = $3, updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, ref, models.DocumentReady)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return requireOneRow(res)
}

func (r *PostgresRepository) SetDocumentStatus(ctx context.Context, id string, status models.DocumentStatus) error {
	query :=
		`UPDATE contracts SET document_status = $2
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return requireOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM contracts WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return requireOneRow(res)
}

// requireOneRow maps a zero-row result to ErrorNotFound.
func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
