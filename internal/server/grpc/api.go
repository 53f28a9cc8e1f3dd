package grpc

import (
	"time"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/samber/lo"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Message struct {
	ID         int64      `json:"id"`
	SenderID   int64      `json:"senderId"`
	ReceiverID int64      `json:"receiverId"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	IsDeleted  bool       `json:"isDeleted"`
	DeletedAt  *time.Time `json:"deletedAt,omitempty"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterResponse struct {
	User User `json:"user"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	User        User   `json:"user"`
}

type ListUsersRequest struct{}

type ListUsersResponse struct {
	Users []User `json:"users"`
}

type SendMessageRequest struct {
	ReceiverID int64  `json:"receiverId" validate:"required,gt=0"`
	Content    string `json:"content" validate:"required"`
}

type SendMessageResponse struct {
	Message   Message `json:"message"`
	Delivered bool    `json:"delivered"`
}

type EditMessageRequest struct {
	MessageID int64  `json:"messageId" validate:"required,gt=0"`
	Content   string `json:"content" validate:"required"`
}

type DeleteMessageRequest struct {
	MessageID int64 `json:"messageId" validate:"required,gt=0"`
}

type GetMessageRequest struct {
	MessageID int64 `json:"messageId" validate:"required,gt=0"`
}

type MessageResponse struct {
	Message Message `json:"message"`
}

type GetHistoryRequest struct {
	PeerID   int64      `json:"receiverId" validate:"required,gt=0"`
	Page     int        `json:"page" validate:"gte=0"`
	PageSize int        `json:"count" validate:"gte=0,lte=100"`
	Sort     string     `json:"sort" validate:"omitempty,oneof=asc desc"`
	Before   *time.Time `json:"beforeTime,omitempty"`
	After    *time.Time `json:"afterTime,omitempty"`
}

type SearchMessagesRequest struct {
	PeerID   int64  `json:"receiverId" validate:"required,gt=0"`
	Text     string `json:"message"`
	Page     int    `json:"page" validate:"gte=0"`
	PageSize int    `json:"count" validate:"gte=0,lte=100"`
	Sort     string `json:"sort" validate:"omitempty,oneof=asc desc"`
}

type MessagePageResponse struct {
	Messages    []Message `json:"messages"`
	TotalPages  int       `json:"totalPages"`
	CurrentPage int       `json:"currentPage"`
}

func toUser(u *models.User) User {
	return User{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}

func toMessage(m *models.Message) Message {
	return Message{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
		IsDeleted:  m.IsDeleted,
		DeletedAt:  m.DeletedAt,
	}
}

func toMessagePage(p *models.MessagePage) *MessagePageResponse {
	return &MessagePageResponse{
		Messages:    lo.Map(p.Messages, func(m *models.Message, _ int) Message { return toMessage(m) }),
		TotalPages:  p.TotalPages,
		CurrentPage: p.CurrentPage,
	}
}
