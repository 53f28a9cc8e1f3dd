// Package services contains server-side business logic. This file implements
// MessageService, the conversation store: appending, editing, soft-deleting
// and listing direct messages.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/policy"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/messages"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
)

// HistoryQuery selects one page of the conversation between UserID and
// PeerID. Before and After optionally bound the creation time (exclusive).
type HistoryQuery struct {
	UserID int64
	PeerID int64
	Page   models.Page
	Order  models.SortOrder
	Before *time.Time
	After  *time.Time
}

// SearchQuery is a HistoryQuery restricted to messages containing Text,
// case-insensitively. An empty Text matches every message.
type SearchQuery struct {
	UserID int64
	PeerID int64
	Text   string
	Page   models.Page
	Order  models.SortOrder
}

// MessageService is the conversation store.
//
// Errors wrap the common sentinels: ErrValidation, ErrNotFound, ErrForbidden.
// Any other storage failure is logged and returned as common.ErrInternal.
type MessageService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

func NewMessageService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *MessageService {
	return &MessageService{
		db:          db,
		repomanager: m,
		logger:      l.With("module", "message_service"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Append stores a new message from senderID to receiverID.
func (s *MessageService) Append(ctx context.Context, senderID, receiverID int64, content string) (*models.Message, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}
	if !policy.CanMessage(senderID, receiverID) {
		return nil, fmt.Errorf("%w: cannot send a message to yourself", common.ErrValidation)
	}

	now := s.now()
	msg := &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	out, err := s.repomanager.Messages(s.db).Create(ctx, msg)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: receiver %d", common.ErrNotFound, receiverID)
		}
		return nil, s.fail(ctx, "append", err)
	}
	return out, nil
}

// Edit replaces the content of a message owned by requesterID.
func (s *MessageService) Edit(ctx context.Context, messageID, requesterID int64, content string) (*models.Message, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}

	return s.modify(ctx, "edit", messageID, requesterID, func(ctx context.Context, repo messages.Repository) (*models.Message, error) {
		return repo.UpdateContent(ctx, messageID, content, s.now())
	})
}

// SoftDelete marks a message owned by requesterID as deleted. The row is
// kept and stays readable through Get.
func (s *MessageService) SoftDelete(ctx context.Context, messageID, requesterID int64) (*models.Message, error) {
	return s.modify(ctx, "delete", messageID, requesterID, func(ctx context.Context, repo messages.Repository) (*models.Message, error) {
		return repo.MarkDeleted(ctx, messageID, s.now())
	})
}

// modify locks the message, checks that it is live and owned by
// requesterID, and applies write in the same transaction.
func (s *MessageService) modify(ctx context.Context, op string, messageID, requesterID int64,
	write func(context.Context, messages.Repository) (*models.Message, error)) (*models.Message, error) {

	var out *models.Message
	err := s.repomanager.WithinTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Messages(tx)

		msg, err := repo.GetForUpdate(ctx, messageID)
		if err != nil {
			return err
		}
		if msg.IsDeleted {
			return common.ErrNotFound
		}
		if !policy.CanModify(msg, requesterID) {
			return common.ErrForbidden
		}

		out, err = write(ctx, repo)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	s.logger.Debug(ctx, "message modified", "op", op, "message_id", messageID, "user_id", requesterID)
	return out, nil
}

// Get returns a message by id, soft-deleted ones included. Only the two
// participants may read it.
func (s *MessageService) Get(ctx context.Context, messageID, requesterID int64) (*models.Message, error) {
	msg, err := s.repomanager.Messages(s.db).Get(ctx, messageID)
	if err != nil {
		return nil, s.fail(ctx, "get", err)
	}
	if !policy.IsParticipant(msg, requesterID) {
		return nil, fmt.Errorf("%w: not a participant", common.ErrForbidden)
	}
	return msg, nil
}

// History lists the live messages between q.UserID and q.PeerID.
// The peer must exist.
func (s *MessageService) History(ctx context.Context, q HistoryQuery) (*models.MessagePage, error) {
	if q.Before != nil && q.After != nil && !q.After.Before(*q.Before) {
		return nil, fmt.Errorf("%w: after must be earlier than before", common.ErrValidation)
	}

	if _, err := s.repomanager.Users(s.db).GetByID(ctx, q.PeerID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %d", common.ErrNotFound, q.PeerID)
		}
		return nil, s.fail(ctx, "history", err)
	}

	f := messages.Filter{UserA: q.UserID, UserB: q.PeerID, Before: q.Before, After: q.After}
	return s.list(ctx, "history", f, q.Page, q.Order)
}

// Search lists the live messages between q.UserID and q.PeerID whose
// content contains q.Text.
func (s *MessageService) Search(ctx context.Context, q SearchQuery) (*models.MessagePage, error) {
	f := messages.Filter{UserA: q.UserID, UserB: q.PeerID, Contains: q.Text}
	return s.list(ctx, "search", f, q.Page, q.Order)
}

func (s *MessageService) list(ctx context.Context, op string, f messages.Filter, page models.Page, order models.SortOrder) (*models.MessagePage, error) {
	page = page.Normalize()
	if order != models.SortAsc {
		order = models.SortDesc
	}
	repo := s.repomanager.Messages(s.db)

	total, err := repo.Count(ctx, f)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	msgs, err := repo.List(ctx, f, page.Offset(), page.PageSize, order)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}

	return &models.MessagePage{
		Messages:    msgs,
		TotalPages:  page.TotalPages(total),
		CurrentPage: page.Page,
	}, nil
}

// fail passes the domain sentinels through and hides everything else
// behind common.ErrInternal.
func (s *MessageService) fail(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return fmt.Errorf("%w: message", common.ErrNotFound)
	case errors.Is(err, common.ErrForbidden):
		return fmt.Errorf("%w: only the sender may modify a message", common.ErrForbidden)
	case errors.Is(err, common.ErrValidation):
		return err
	}
	s.logger.Error(ctx, "storage failure", "op", op, "error", err)
	return common.ErrInternal
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content is empty", common.ErrValidation)
	}
	return nil
}
