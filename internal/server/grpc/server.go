package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/ratelimit"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/metrics"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Deps are the collaborators of the request API.
type Deps struct {
	Users     *services.UserService
	Messages  *services.MessageService
	Messenger *services.Messenger
	Gate      *auth.Gate
	Limiter   *ratelimit.Limiter
	Metrics   *metrics.Metrics
}

type GRPCServer struct {
	address   string
	users     *services.UserService
	messages  *services.MessageService
	messenger *services.Messenger
	gate      *auth.Gate
	limiter   *ratelimit.Limiter
	metrics   *metrics.Metrics
	logger    logging.Logger
	validate  *validator.Validate
}

var _ ChatServiceServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, d Deps) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		users:     d.Users,
		messages:  d.Messages,
		messenger: d.Messenger,
		gate:      d.Gate,
		limiter:   d.Limiter,
		metrics:   d.Metrics,
		validate:  validator.New(),
	}
}

// NewServer builds a grpc.Server with the interceptor chain, the chat
// service and the standard health service registered.
func (s *GRPCServer) NewServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		s.metricsInterceptor,
		s.accessTokenInterceptor,
		s.rateLimitInterceptor,
	))

	RegisterChatServiceServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
