package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgForeignKeyViolation is the SQLSTATE raised when a participant does not exist.
const pgForeignKeyViolation = "23503"

const messageColumns = `id, sender_id, receiver_id, content, created_at, updated_at, is_deleted, deleted_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	m := &models.Message{}
	var deletedAt sql.NullTime
	if err := row.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content,
		&m.CreatedAt, &m.UpdatedAt, &m.IsDeleted, &deletedAt); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		m.DeletedAt = &t
	}
	return m, nil
}

func (r *PostgresRepository) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {
	query :=
		`INSERT INTO messages (sender_id, receiver_id, content, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		msg.SenderID, msg.ReceiverID, msg.Content, msg.CreatedAt, msg.UpdatedAt).Scan(&msg.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return msg, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Message, error) {
	return r.get(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id)
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id int64) (*models.Message, error) {
	return r.get(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresRepository) get(ctx context.Context, query string, args ...any) (*models.Message, error) {
	m, err := scanMessage(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) UpdateContent(ctx context.Context, id int64, content string, at time.Time) (*models.Message, error) {
	query :=
		`UPDATE messages SET content = $2, updated_at = $3
		 WHERE id = $1
		 RETURNING ` + messageColumns

	return r.get(ctx, query, id, content, at)
}

func (r *PostgresRepository) MarkDeleted(ctx context.Context, id int64, at time.Time) (*models.Message, error) {
	query :=
		`UPDATE messages SET is_deleted = TRUE, deleted_at = $2
		 WHERE id = $1
		 RETURNING ` + messageColumns

	return r.get(ctx, query, id, at)
}

func (r *PostgresRepository) List(ctx context.Context, f Filter, offset, limit int, order models.SortOrder) ([]*models.Message, error) {
	cond, args := f.where()
	dir := "DESC"
	if order == models.SortAsc {
		dir = "ASC"
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM messages WHERE %s ORDER BY created_at %s, id %s LIMIT $%d OFFSET $%d`,
		messageColumns, cond, dir, dir, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Message, 0, limit)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Count(ctx context.Context, f Filter) (int, error) {
	cond, args := f.where()

	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE `+cond, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// where renders f as a WHERE clause with positional arguments starting at $1.
func (f Filter) where() (string, []any) {
	lo, hi := f.pair()
	args := []any{lo, hi}
	clauses := []string{
		"NOT is_deleted",
		"LEAST(sender_id, receiver_id) = $1",
		"GREATEST(sender_id, receiver_id) = $2",
	}
	if f.Contains != "" {
		args = append(args, f.Contains)
		clauses = append(clauses, fmt.Sprintf("strpos(lower(content), lower($%d)) > 0", len(args)))
	}
	if f.After != nil {
		args = append(args, *f.After)
		clauses = append(clauses, fmt.Sprintf("created_at > $%d", len(args)))
	}
	if f.Before != nil {
		args = append(args, *f.Before)
		clauses = append(clauses, fmt.Sprintf("created_at < $%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}
