package messages

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/samber/lo"
)

// MemoryRepository keeps messages in process memory. Returned messages are
// copies; callers cannot mutate stored rows.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   []*models.Message
	byID   map[int64]*models.Message
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[int64]*models.Message)}
}

func clone(m *models.Message) *models.Message {
	c := *m
	if m.DeletedAt != nil {
		t := *m.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

func (r *MemoryRepository) Create(_ context.Context, msg *models.Message) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	msg.ID = r.nextID
	row := clone(msg)
	r.rows = append(r.rows, row)
	r.byID[row.ID] = row
	return msg, nil
}

func (r *MemoryRepository) Get(_ context.Context, id int64) (*models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	row, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return clone(row), nil
}

// GetForUpdate is Get; row locking is provided by the manager's WithinTx.
func (r *MemoryRepository) GetForUpdate(ctx context.Context, id int64) (*models.Message, error) {
	return r.Get(ctx, id)
}

func (r *MemoryRepository) UpdateContent(_ context.Context, id int64, content string, at time.Time) (*models.Message, error) {
	return r.update(id, func(m *models.Message) {
		m.Content = content
		m.UpdatedAt = at
	})
}

func (r *MemoryRepository) MarkDeleted(_ context.Context, id int64, at time.Time) (*models.Message, error) {
	return r.update(id, func(m *models.Message) {
		m.IsDeleted = true
		m.DeletedAt = &at
	})
}

func (r *MemoryRepository) update(id int64, fn func(*models.Message)) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	fn(row)
	return clone(row), nil
}

func (r *MemoryRepository) List(_ context.Context, f Filter, offset, limit int, order models.SortOrder) ([]*models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.match(f)

	slices.SortStableFunc(matched, func(a, b *models.Message) int {
		c := a.CreatedAt.Compare(b.CreatedAt)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if order != models.SortAsc {
			c = -c
		}
		return c
	})

	if offset < 0 || offset >= len(matched) || limit <= 0 {
		return []*models.Message{}, nil
	}
	end := min(offset+limit, len(matched))
	return lo.Map(matched[offset:end], func(m *models.Message, _ int) *models.Message { return clone(m) }), nil
}

func (r *MemoryRepository) Count(_ context.Context, f Filter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.match(f)), nil
}

// match must be called with r.mu held.
func (r *MemoryRepository) match(f Filter) []*models.Message {
	low, high := f.pair()
	needle := strings.ToLower(f.Contains)
	return lo.Filter(r.rows, func(m *models.Message, _ int) bool {
		if m.IsDeleted {
			return false
		}
		a, b := m.SenderID, m.ReceiverID
		if a > b {
			a, b = b, a
		}
		if a != low || b != high {
			return false
		}
		if needle != "" && !strings.Contains(strings.ToLower(m.Content), needle) {
			return false
		}
		if f.After != nil && !m.CreatedAt.After(*f.After) {
			return false
		}
		if f.Before != nil && !m.CreatedAt.Before(*f.Before) {
			return false
		}
		return true
	})
}
