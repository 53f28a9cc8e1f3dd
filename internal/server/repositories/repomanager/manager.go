package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/messages"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DB handle and runs
// transactional units of work.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Messages(db dbx.DBTX) messages.Repository
	// WithinTx runs fn with a transactional handle; repositories obtained
	// from it see and lock the same rows until fn returns.
	WithinTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx dbx.DBTX) error) error
}
