package repomanager

import (
	"context"
	"database/sql"

	"github.com/fleetops/contractd/internal/dbx"
	"github.com/fleetops/contractd/internal/server/repositories/contracts"
	"github.com/fleetops/contractd/internal/server/repositories/users"
)

// RepositoryManager vends repository implementations bound to a DBTX
// (plain connection or transaction) and exposes a schema migration hook.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Contracts(db dbx.DBTX) contracts.Repository
}
