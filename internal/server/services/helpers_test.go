package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/messages"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

// tickingClock returns strictly increasing timestamps, one second apart.
func tickingClock() func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newMemoryMessageService(t *testing.T, userIDs ...int64) (*MessageService, *repomanager.MemoryRepositoryManager) {
	t.Helper()
	rm := repomanager.NewMemoryRepositoryManager()
	for _, id := range userIDs {
		u, err := rm.Users(nil).Create(context.Background(), &models.User{
			Email: fmt.Sprintf("user%d@example.com", id), Name: fmt.Sprintf("user%d", id), PasswordHash: "h",
		})
		require.NoError(t, err)
		require.Equal(t, id, u.ID, "users must be seeded as 1..n")
	}
	s := NewMessageService(nil, rm, logging.Nop())
	s.now = tickingClock()
	return s, rm
}

func contents(p *models.MessagePage) []string {
	out := make([]string, 0, len(p.Messages))
	for _, m := range p.Messages {
		out = append(out, m.Content)
	}
	return out
}

// --- failing fakes ---

var errStorage = errors.New("connection reset by peer")

type failingMessagesRepo struct{ messages.Repository }

func (failingMessagesRepo) Create(context.Context, *models.Message) (*models.Message, error) {
	return nil, errStorage
}
func (failingMessagesRepo) Get(context.Context, int64) (*models.Message, error) {
	return nil, errStorage
}
func (failingMessagesRepo) GetForUpdate(context.Context, int64) (*models.Message, error) {
	return nil, errStorage
}
func (failingMessagesRepo) Count(context.Context, messages.Filter) (int, error) {
	return 0, errStorage
}

type failingUsersRepo struct{ users.Repository }

func (failingUsersRepo) Create(context.Context, *models.User) (*models.User, error) {
	return nil, errStorage
}
func (failingUsersRepo) GetByEmail(context.Context, string) (*models.User, error) {
	return nil, errStorage
}
func (failingUsersRepo) GetByID(context.Context, int64) (*models.User, error) {
	return nil, errStorage
}
func (failingUsersRepo) ListExcept(context.Context, int64) ([]*models.User, error) {
	return nil, errStorage
}

type failingRepoManager struct{}

func (failingRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (failingRepoManager) Users(dbx.DBTX) users.Repository            { return failingUsersRepo{} }
func (failingRepoManager) Messages(dbx.DBTX) messages.Repository      { return failingMessagesRepo{} }
func (failingRepoManager) WithinTx(ctx context.Context, _ *sql.DB, fn func(context.Context, dbx.DBTX) error) error {
	return fn(ctx, nil)
}
