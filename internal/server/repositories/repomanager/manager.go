package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/jwtkeeper/internal/dbx"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/repositories/allowlist"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Allowlist(db dbx.DBTX) allowlist.Repository
}
