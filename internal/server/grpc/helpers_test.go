package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/ratelimit"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/delivery"
	"github.com/dmitrijs2005/gophchat/internal/server/presence"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
)

const (
	testSecret   = "test-secret"
	goodPassword = "Str0ng!pass"
)

type fixture struct {
	server   *GRPCServer
	registry *presence.Registry
	client   *ChatServiceClient
}

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) *fixture {
	t.Helper()

	cfg := &config.Config{SecretKey: testSecret, AccessTokenValidityDuration: time.Hour}
	rm := repomanager.NewMemoryRepositoryManager()
	reg := presence.New(logging.Nop(), nil)
	router := delivery.NewRouter(reg, logging.Nop(), nil)
	ms := services.NewMessageService(nil, rm, logging.Nop())

	s := NewGRPCServer("", logging.Nop(), Deps{
		Users:     services.NewUserService(nil, rm, logging.Nop(), cfg),
		Messages:  ms,
		Messenger: services.NewMessenger(ms, router),
		Gate:      auth.NewGate(testSecret),
		Limiter:   limiter,
	})
	return &fixture{server: s, registry: reg}
}

// dial serves the fixture over an in-memory listener.
func (f *fixture) dial(t *testing.T) *ChatServiceClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := f.server.NewServer()
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })

	f.client = NewChatServiceClient(cc)
	return f.client
}

// signUp registers and logs in a user, returning its id and an outgoing
// context carrying the access token.
func signUp(t *testing.T, c *ChatServiceClient, email, name string) (int64, context.Context) {
	t.Helper()
	ctx := context.Background()

	reg, err := c.Register(ctx, &RegisterRequest{Email: email, Name: name, Password: goodPassword})
	require.NoError(t, err)

	login, err := c.Login(ctx, &LoginRequest{Email: email, Password: goodPassword})
	require.NoError(t, err)
	require.NotEmpty(t, login.AccessToken)

	return reg.User.ID, metadata.AppendToOutgoingContext(ctx, "access_token", login.AccessToken)
}
