package services

import (
	"context"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func history(t *testing.T, s *MessageService, a, b int64, page, size int, order models.SortOrder) *models.MessagePage {
	t.Helper()
	p, err := s.History(context.Background(), HistoryQuery{UserID: a, PeerID: b, Page: models.Page{Page: page, PageSize: size}, Order: order})
	require.NoError(t, err)
	return p
}

func TestScenario_AppendEditHistory(t *testing.T) {
	s, _ := newMemoryMessageService(t, 1, 2)
	ctx := context.Background()

	m, err := s.Append(ctx, 1, 2, "hello")
	require.NoError(t, err)

	edited, err := s.Edit(ctx, m.ID, 1, "hello!")
	require.NoError(t, err)
	assert.Equal(t, "hello!", edited.Content)
	assert.True(t, edited.UpdatedAt.After(edited.CreatedAt))
	assert.Equal(t, m.CreatedAt, edited.CreatedAt)
	assert.Equal(t, int64(1), edited.SenderID)
	assert.Equal(t, int64(2), edited.ReceiverID)

	p := history(t, s, 1, 2, 1, 20, models.SortAsc)
	assert.Equal(t, []string{"hello!"}, contents(p))
	assert.Equal(t, 1, p.TotalPages)
	assert.Equal(t, 1, p.CurrentPage)
}

func TestScenario_SoftDeleteHiddenFromHistory(t *testing.T) {
	s, _ := newMemoryMessageService(t, 1, 2)
	ctx := context.Background()

	_, err := s.Append(ctx, 1, 2, "a")
	require.NoError(t, err)
	second, err := s.Append(ctx, 1, 2, "b")
	require.NoError(t, err)
	_, err = s.Append(ctx, 2, 1, "c")
	require.NoError(t, err)

	_, err = s.SoftDelete(ctx, second.ID, 1)
	require.NoError(t, err)

	p := history(t, s, 1, 2, 1, 20, models.SortAsc)
	assert.Equal(t, []string{"a", "c"}, contents(p))
}

func TestSoftDelete_ExcludedFromReadsButVisibleByID(t *testing.T) {
	s, _ := newMemoryMessageService(t, 1, 2)
	ctx := context.Background()

	m, err := s.Append(ctx, 1, 2, "secret plan")
	require.NoError(t, err)
	deleted, err := s.SoftDelete(ctx, m.ID, 1)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	require.NotNil(t, deleted.DeletedAt)

	assert.Empty(t, history(t, s, 2, 1, 1, 20, models.SortDesc).Messages)

	found, err := s.Search(ctx, SearchQuery{UserID: 1, PeerID: 2, Text: "secret"})
	require.NoError(t, err)
	assert.Empty(t, found.Messages)

	byID, err := s.Get(ctx, m.ID, 2)
	require.NoError(t, err)
	assert.True(t, byID.IsDeleted)

	_, err = s.Edit(ctx, m.ID, 1, "again")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = s.SoftDelete(ctx, m.ID, 1)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAppend_Validation(t *testing.T) {
	s, rm := newMemoryMessageService(t, 1, 2)
	ctx := context.Background()

	_, err := s.Append(ctx, 1, 1, "x")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.Append(ctx, 1, 2, "   ")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.Append(ctx, 1, 2, "")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = rm.Messages(nil).Get(ctx, 1)
	assert.ErrorIs(t, err, common.ErrNotFound, "no record may be created")
}

func TestAppend_UnknownReceiver(t *testing.T) {
	s, _ := newMemoryMessageService(t, 1)

	_, err := s.Append(context.Background(), 1, 42, "hello?")
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Contains(t, err.Error(), "receiver 42")
}

func TestEditDelete_ForbiddenForNonSender(t *testing.T) {
	s, _ := newMemoryMessageService(t, 1, 2)
	ctx := context.Background()

	m, err := s.Append(ctx, 1, 2, "original")
	require.NoError(t, err)

	_, err = s.Edit(ctx, m.ID, 2, "hijacked")
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = s.SoftDelete(ctx, m.ID, 3)
	assert.ErrorIs(t, err, common.ErrForbidden)

	got, err := s.Get(ctx, m.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Content)
	assert.False(t, got.IsDeleted)
	assert.Equal(t, m.UpdatedAt, got.UpdatedAt)
}

func TestEdit_ValidationAndMissing(t *testing.T) {
	s, _ := newMemoryMessageService(t, 1, 2)
	ctx := context.Background()

	_, err := s.Edit(ctx, 1, 1, "")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = s.Edit(ctx, 404, 1, "x")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = s.SoftDelete(ctx, 404, 1)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGet_OnlyParticipants(t *testing.T) {
	s, _ := newMemoryMessageService(t, 1, 2, 3)
	ctx := context.Background()

	m, err := s.Append(ctx, 1, 2, "x")
	require.NoError(t, err)

	_, err = s.Get(ctx, m.ID, 3)
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = s.Get(ctx, 999, 1)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPagination_PagesReconstructFullSet(t *testing.T) {
	const n, size = 7, 3
	s, _ := newMemoryMessageService(t, 1, 2, 3)
	ctx := context.Background()

	var want []string
	for i := 0; i < n; i++ {
		from, to := int64(1), int64(2)
		if i%2 == 1 {
			from, to = to, from
		}
		m, err := s.Append(ctx, from, to, string(rune('a'+i)))
		require.NoError(t, err)
		want = append(want, m.Content)
	}
	// noise in another conversation
	_, err := s.Append(ctx, 1, 3, "other")
	require.NoError(t, err)

	for _, order := range []models.SortOrder{models.SortAsc, models.SortDesc} {
		var got []string
		first := history(t, s, 1, 2, 1, size, order)
		assert.Equal(t, 3, first.TotalPages)
		for page := 1; page <= first.TotalPages; page++ {
			p := history(t, s, 2, 1, page, size, order)
			assert.Equal(t, page, p.CurrentPage)
			got = append(got, contents(p)...)
		}

		expected := append([]string(nil), want...)
		if order == models.SortDesc {
			for i, j := 0, len(expected)-1; i < j; i, j = i+1, j-1 {
				expected[i], expected[j] = expected[j], expected[i]
			}
		}
		assert.Equal(t, expected, got, "order %s", order)
	}
}

func TestHistory_DefaultsAndClamping(t *testing.T) {
	s, _ := newMemoryMessageService(t, 1, 2)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.Append(ctx, 1, 2, "m")
		require.NoError(t, err)
	}

	p, err := s.History(ctx, HistoryQuery{UserID: 1, PeerID: 2, Page: models.Page{Page: 0, PageSize: 500}, Order: "bogus"})
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentPage)
	assert.Equal(t, 1, p.TotalPages)
	assert.Len(t, p.Messages, 3)
	assert.Greater(t, p.Messages[0].ID, p.Messages[2].ID, "unknown order means desc")

	beyond, err := s.History(ctx, HistoryQuery{UserID: 1, PeerID: 2, Page: models.Page{Page: 9, PageSize: 2}})
	require.NoError(t, err)
	assert.Empty(t, beyond.Messages)
	assert.Equal(t, 2, beyond.TotalPages)
}

func TestHistoryAndSearch_HugePageIsEmpty(t *testing.T) {
	s, _ := newMemoryMessageService(t, 1, 2)
	ctx := context.Background()
	_, err := s.Append(ctx, 1, 2, "hello")
	require.NoError(t, err)

	huge := models.Page{Page: math.MaxInt64/100 + 2, PageSize: 100}

	require.NotPanics(t, func() {
		p, err := s.History(ctx, HistoryQuery{UserID: 1, PeerID: 2, Page: huge})
		require.NoError(t, err)
		assert.Empty(t, p.Messages)
		assert.Equal(t, 1, p.TotalPages)
	})
	require.NotPanics(t, func() {
		p, err := s.Search(ctx, SearchQuery{UserID: 1, PeerID: 2, Text: "hello", Page: huge})
		require.NoError(t, err)
		assert.Empty(t, p.Messages)
	})
}

func TestHistory_PeerMustExist(t *testing.T) {
	s, _ := newMemoryMessageService(t, 1)

	_, err := s.History(context.Background(), HistoryQuery{UserID: 1, PeerID: 42})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestHistory_TimeWindow(t *testing.T) {
	s, _ := newMemoryMessageService(t, 1, 2)
	ctx := context.Background()

	var created []*models.Message
	for _, c := range []string{"t1", "t2", "t3", "t4"} {
		m, err := s.Append(ctx, 1, 2, c)
		require.NoError(t, err)
		created = append(created, m)
	}

	after := created[0].CreatedAt
	before := created[3].CreatedAt
	p, err := s.History(ctx, HistoryQuery{UserID: 1, PeerID: 2, Order: models.SortAsc, After: &after, Before: &before})
	require.NoError(t, err)
	assert.Equal(t, []string{"t2", "t3"}, contents(p))

	_, err = s.History(ctx, HistoryQuery{UserID: 1, PeerID: 2, After: &before, Before: &after})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestSearch_CaseInsensitiveSubstring(t *testing.T) {
	s, _ := newMemoryMessageService(t, 1, 2)
	ctx := context.Background()

	for _, c := range []string{"Hello World", "goodbye", "say HELLO again"} {
		_, err := s.Append(ctx, 1, 2, c)
		require.NoError(t, err)
	}

	p, err := s.Search(ctx, SearchQuery{UserID: 2, PeerID: 1, Text: "hello", Order: models.SortAsc})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello World", "say HELLO again"}, contents(p))
	assert.Equal(t, 1, p.TotalPages)

	all, err := s.Search(ctx, SearchQuery{UserID: 1, PeerID: 2, Order: models.SortAsc})
	require.NoError(t, err)
	assert.Len(t, all.Messages, 3)

	// no peer existence check for search
	none, err := s.Search(ctx, SearchQuery{UserID: 1, PeerID: 77, Text: "x"})
	require.NoError(t, err)
	assert.Empty(t, none.Messages)
	assert.Equal(t, 0, none.TotalPages)
}

func TestStorageFailuresAreOpaque(t *testing.T) {
	s := NewMessageService(nil, failingRepoManager{}, logging.Nop())
	ctx := context.Background()

	_, err := s.Append(ctx, 1, 2, "x")
	assert.Equal(t, common.ErrInternal, err)

	_, err = s.Edit(ctx, 1, 1, "x")
	assert.Equal(t, common.ErrInternal, err)

	_, err = s.SoftDelete(ctx, 1, 1)
	assert.Equal(t, common.ErrInternal, err)

	_, err = s.Get(ctx, 1, 1)
	assert.Equal(t, common.ErrInternal, err)

	_, err = s.History(ctx, HistoryQuery{UserID: 1, PeerID: 2})
	assert.Equal(t, common.ErrInternal, err)

	_, err = s.Search(ctx, SearchQuery{UserID: 1, PeerID: 2})
	assert.Equal(t, common.ErrInternal, err)
	assert.NotContains(t, err.Error(), errStorage.Error())
}

func TestEdit_PostgresLocksRowInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	s := NewMessageService(db, repomanager.NewPostgresRepositoryManager(), logging.Nop())
	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }

	cols := []string{"id", "sender_id", "receiver_id", "content", "created_at", "updated_at", "is_deleted", "deleted_at"}
	created := at.Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR\s+UPDATE$`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(5), int64(1), int64(2), "old", created, created, false, nil))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE messages SET content = $2, updated_at = $3")).
		WithArgs(int64(5), "new", at).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(5), int64(1), int64(2), "new", created, at, false, nil))
	mock.ExpectCommit()

	got, err := s.Edit(context.Background(), 5, 1, "new")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_PostgresForbiddenRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	s := NewMessageService(db, repomanager.NewPostgresRepositoryManager(), logging.Nop())
	cols := []string{"id", "sender_id", "receiver_id", "content", "created_at", "updated_at", "is_deleted", "deleted_at"}
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR\s+UPDATE$`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(5), int64(1), int64(2), "x", now, now, false, nil))
	mock.ExpectRollback()

	_, err = s.SoftDelete(context.Background(), 5, 2)
	assert.ErrorIs(t, err, common.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}
