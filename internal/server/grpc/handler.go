package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"github.com/samber/lo"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors to gRPC codes. Anything unrecognised becomes
// Internal with a fixed message.
func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, common.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Internal, common.ErrInternal.Error())
	}
}

func (s *GRPCServer) check(req any) error {
	if err := s.validate.Struct(req); err != nil {
		return status.Error(codes.InvalidArgument, "invalid request: "+err.Error())
	}
	return nil
}

func identity(ctx context.Context) (auth.Identity, error) {
	id, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return auth.Identity{}, status.Error(codes.Unauthenticated, "missing token")
	}
	return id, nil
}

func (s *GRPCServer) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {

	s.logger.Info(ctx, "Registration request")

	if err := s.check(req); err != nil {
		return nil, err
	}

	u, err := s.users.Register(ctx, services.RegisterRequest{Email: req.Email, Name: req.Name, Password: req.Password})
	if err != nil {
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "Registered", "user_id", u.ID)
	return &RegisterResponse{User: toUser(u)}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}

	res, err := s.users.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}

	return &LoginResponse{AccessToken: res.AccessToken, User: toUser(res.User)}, nil
}

func (s *GRPCServer) ListUsers(ctx context.Context, _ *ListUsersRequest) (*ListUsersResponse, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}

	users, err := s.users.ListPeers(ctx, id.UserID)
	if err != nil {
		return nil, toStatus(err)
	}

	return &ListUsersResponse{Users: lo.Map(users, func(u *models.User, _ int) User { return toUser(u) })}, nil
}

func (s *GRPCServer) SendMessage(ctx context.Context, req *SendMessageRequest) (*SendMessageResponse, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(req); err != nil {
		return nil, err
	}

	msg, delivered, err := s.messenger.Send(ctx, id.UserID, req.ReceiverID, req.Content)
	if err != nil {
		return nil, toStatus(err)
	}

	return &SendMessageResponse{Message: toMessage(msg), Delivered: delivered}, nil
}

func (s *GRPCServer) EditMessage(ctx context.Context, req *EditMessageRequest) (*MessageResponse, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(req); err != nil {
		return nil, err
	}

	msg, err := s.messages.Edit(ctx, req.MessageID, id.UserID, req.Content)
	if err != nil {
		return nil, toStatus(err)
	}

	return &MessageResponse{Message: toMessage(msg)}, nil
}

func (s *GRPCServer) DeleteMessage(ctx context.Context, req *DeleteMessageRequest) (*MessageResponse, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(req); err != nil {
		return nil, err
	}

	msg, err := s.messages.SoftDelete(ctx, req.MessageID, id.UserID)
	if err != nil {
		return nil, toStatus(err)
	}

	return &MessageResponse{Message: toMessage(msg)}, nil
}

func (s *GRPCServer) GetMessage(ctx context.Context, req *GetMessageRequest) (*MessageResponse, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(req); err != nil {
		return nil, err
	}

	msg, err := s.messages.Get(ctx, req.MessageID, id.UserID)
	if err != nil {
		return nil, toStatus(err)
	}

	return &MessageResponse{Message: toMessage(msg)}, nil
}

func (s *GRPCServer) GetHistory(ctx context.Context, req *GetHistoryRequest) (*MessagePageResponse, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(req); err != nil {
		return nil, err
	}

	page, err := s.messages.History(ctx, services.HistoryQuery{
		UserID: id.UserID,
		PeerID: req.PeerID,
		Page:   models.Page{Page: req.Page, PageSize: req.PageSize},
		Order:  models.ParseSortOrder(req.Sort),
		Before: req.Before,
		After:  req.After,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	return toMessagePage(page), nil
}

func (s *GRPCServer) SearchMessages(ctx context.Context, req *SearchMessagesRequest) (*MessagePageResponse, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.check(req); err != nil {
		return nil, err
	}

	page, err := s.messages.Search(ctx, services.SearchQuery{
		UserID: id.UserID,
		PeerID: req.PeerID,
		Text:   req.Text,
		Page:   models.Page{Page: req.Page, PageSize: req.PageSize},
		Order:  models.ParseSortOrder(req.Sort),
	})
	if err != nil {
		return nil, toStatus(err)
	}

	return toMessagePage(page), nil
}
