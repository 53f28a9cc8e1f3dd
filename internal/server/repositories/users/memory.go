package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

// MemoryRepository keeps users in process memory. Emails are unique
// case-insensitively.
type MemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]models.User
	byEmail map[string]int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[int64]models.User),
		byEmail: make(map[string]int64),
	}
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, ok := r.byEmail[key]; ok {
		return nil, common.ErrAlreadyExists
	}

	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now().UTC()
	r.byID[user.ID] = *user
	r.byEmail[key] = user.ID
	return user, nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, common.ErrNotFound
	}
	u := r.byID[id]
	return &u, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) ListExcept(_ context.Context, id int64) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.User, 0, len(r.byID))
	for uid, u := range r.byID {
		if uid == id {
			continue
		}
		u.PasswordHash = ""
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
