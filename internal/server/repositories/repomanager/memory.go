package repomanager

import (
	"context"
	"database/sql"
	"sync"

	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/messages"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/users"
)

// MemoryRepositoryManager serves process-local repositories. The DB handles
// passed to it are ignored and may be nil. WithinTx serializes units of work
// with a single mutex, which stands in for row locks.
type MemoryRepositoryManager struct {
	txMu     sync.Mutex
	users    *users.MemoryRepository
	messages *memoryMessages
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	u := users.NewMemoryRepository()
	return &MemoryRepositoryManager{
		users:    u,
		messages: &memoryMessages{MemoryRepository: messages.NewMemoryRepository(), users: u},
	}
}

// memoryMessages mirrors the messages table's foreign keys: both
// participants must exist, otherwise Create yields common.ErrNotFound.
type memoryMessages struct {
	*messages.MemoryRepository
	users *users.MemoryRepository
}

func (r *memoryMessages) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {
	for _, id := range []int64{msg.SenderID, msg.ReceiverID} {
		if _, err := r.users.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}
	return r.MemoryRepository.Create(ctx, msg)
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository { return m.users }

func (m *MemoryRepositoryManager) Messages(dbx.DBTX) messages.Repository { return m.messages }

func (m *MemoryRepositoryManager) WithinTx(ctx context.Context, _ *sql.DB, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(ctx, nil)
}
