package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dmitrijs2005/gophchat/internal/client/config"
	gs "github.com/dmitrijs2005/gophchat/internal/server/grpc"
	"github.com/gorilla/websocket"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ChatAPI is the part of the request API the client uses.
type ChatAPI interface {
	Register(ctx context.Context, in *gs.RegisterRequest, opts ...grpc.CallOption) (*gs.RegisterResponse, error)
	Login(ctx context.Context, in *gs.LoginRequest, opts ...grpc.CallOption) (*gs.LoginResponse, error)
	ListUsers(ctx context.Context, in *gs.ListUsersRequest, opts ...grpc.CallOption) (*gs.ListUsersResponse, error)
	SendMessage(ctx context.Context, in *gs.SendMessageRequest, opts ...grpc.CallOption) (*gs.SendMessageResponse, error)
	EditMessage(ctx context.Context, in *gs.EditMessageRequest, opts ...grpc.CallOption) (*gs.MessageResponse, error)
	DeleteMessage(ctx context.Context, in *gs.DeleteMessageRequest, opts ...grpc.CallOption) (*gs.MessageResponse, error)
	GetHistory(ctx context.Context, in *gs.GetHistoryRequest, opts ...grpc.CallOption) (*gs.MessagePageResponse, error)
	SearchMessages(ctx context.Context, in *gs.SearchMessagesRequest, opts ...grpc.CallOption) (*gs.MessagePageResponse, error)
}

var _ ChatAPI = (*gs.ChatServiceClient)(nil)

type App struct {
	config *config.Config
	api    ChatAPI
	conn   io.Closer
	reader *bufio.Reader

	// mu serialises output and guards live; the live reader prints concurrently.
	mu   sync.Mutex
	out  io.Writer
	live *websocket.Conn

	token    string
	userID   int64
	userName string
}

func NewApp(c *config.Config) (*App, error) {
	cc, err := grpc.NewClient(c.ServerEndpointAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("error creating client: %w", err)
	}

	return &App{
		config: c,
		api:    gs.NewChatServiceClient(cc),
		conn:   cc,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.close()

	a.println("Welcome to gophchat (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) close() {
	a.stopLive()
	if a.conn != nil {
		_ = a.conn.Close()
	}
}

func (a *App) isLoggedIn() bool {
	return a.token != ""
}

func (a *App) getStatus() string {
	if !a.isLoggedIn() {
		return ""
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.live != nil {
		return fmt.Sprintf("(%s, live)", a.userName)
	}
	return fmt.Sprintf("(%s)", a.userName)
}

func (a *App) println(args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}
