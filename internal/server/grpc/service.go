package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified name of the request API.
const ServiceName = "gophchat.v1.ChatService"

// ChatServiceServer is the request API.
type ChatServiceServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	ListUsers(context.Context, *ListUsersRequest) (*ListUsersResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	EditMessage(context.Context, *EditMessageRequest) (*MessageResponse, error)
	DeleteMessage(context.Context, *DeleteMessageRequest) (*MessageResponse, error)
	GetMessage(context.Context, *GetMessageRequest) (*MessageResponse, error)
	GetHistory(context.Context, *GetHistoryRequest) (*MessagePageResponse, error)
	SearchMessages(context.Context, *SearchMessagesRequest) (*MessagePageResponse, error)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryMethod[Req, Resp any](name string, call func(ChatServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, status.Error(codes.InvalidArgument, "malformed request")
			}
			if interceptor == nil {
				return call(srv.(ChatServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ChatServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes ChatService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("Register", ChatServiceServer.Register),
		unaryMethod("Login", ChatServiceServer.Login),
		unaryMethod("ListUsers", ChatServiceServer.ListUsers),
		unaryMethod("SendMessage", ChatServiceServer.SendMessage),
		unaryMethod("EditMessage", ChatServiceServer.EditMessage),
		unaryMethod("DeleteMessage", ChatServiceServer.DeleteMessage),
		unaryMethod("GetMessage", ChatServiceServer.GetMessage),
		unaryMethod("GetHistory", ChatServiceServer.GetHistory),
		unaryMethod("SearchMessages", ChatServiceServer.SearchMessages),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophchat/v1/chat",
}

// RegisterChatServiceServer registers srv on s.
func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ChatServiceClient calls the request API over a client connection using the
// JSON content-subtype.
type ChatServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewChatServiceClient(cc grpc.ClientConnInterface) *ChatServiceClient {
	return &ChatServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *ChatServiceClient, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ChatServiceClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterResponse](ctx, c, "Register", in, opts...)
}

func (c *ChatServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c, "Login", in, opts...)
}

func (c *ChatServiceClient) ListUsers(ctx context.Context, in *ListUsersRequest, opts ...grpc.CallOption) (*ListUsersResponse, error) {
	return invoke[ListUsersResponse](ctx, c, "ListUsers", in, opts...)
}

func (c *ChatServiceClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error) {
	return invoke[SendMessageResponse](ctx, c, "SendMessage", in, opts...)
}

func (c *ChatServiceClient) EditMessage(ctx context.Context, in *EditMessageRequest, opts ...grpc.CallOption) (*MessageResponse, error) {
	return invoke[MessageResponse](ctx, c, "EditMessage", in, opts...)
}

func (c *ChatServiceClient) DeleteMessage(ctx context.Context, in *DeleteMessageRequest, opts ...grpc.CallOption) (*MessageResponse, error) {
	return invoke[MessageResponse](ctx, c, "DeleteMessage", in, opts...)
}

func (c *ChatServiceClient) GetMessage(ctx context.Context, in *GetMessageRequest, opts ...grpc.CallOption) (*MessageResponse, error) {
	return invoke[MessageResponse](ctx, c, "GetMessage", in, opts...)
}

func (c *ChatServiceClient) GetHistory(ctx context.Context, in *GetHistoryRequest, opts ...grpc.CallOption) (*MessagePageResponse, error) {
	return invoke[MessagePageResponse](ctx, c, "GetHistory", in, opts...)
}

func (c *ChatServiceClient) SearchMessages(ctx context.Context, in *SearchMessagesRequest, opts ...grpc.CallOption) (*MessagePageResponse, error) {
	return invoke[MessagePageResponse](ctx, c, "SearchMessages", in, opts...)
}
