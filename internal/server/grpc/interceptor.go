package grpc

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// publicMethods are reachable without an access token.
var publicMethods = map[string]struct{}{
	fullMethod("Register"): {},
	fullMethod("Login"):    {},
}

func requiresToken(method string) bool {
	if !strings.HasPrefix(method, "/"+ServiceName+"/") {
		return false
	}
	_, public := publicMethods[method]
	return !public
}

// credentialFromMetadata reads access_token, falling back to authorization.
func credentialFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, key := range []string{common.AccessTokenHeaderName, common.AuthorizationHeaderName} {
		if values := md.Get(key); len(values) > 0 && values[0] != "" {
			return values[0]
		}
	}
	return ""
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if requiresToken(info.FullMethod) {

		credential := credentialFromMetadata(ctx)
		if len(credential) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		id, err := s.gate.Authenticate(credential)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		ctx = auth.WithIdentity(ctx, id)
	}

	return handler(ctx, req)
}

// rateLimitInterceptor throttles per user when authenticated and per peer
// address otherwise.
func (s *GRPCServer) rateLimitInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if !s.limiter.Allow(clientKey(ctx), time.Now()) {
		s.metrics.RecordRateLimited("grpc")
		return nil, status.Error(codes.ResourceExhausted, "too many requests, please try again later")
	}
	return handler(ctx, req)
}

func (s *GRPCServer) metricsInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.metrics.ObserveRequest(info.FullMethod, status.Code(err).String(), time.Since(start))
	return resp, err
}

func clientKey(ctx context.Context) string {
	if id, ok := auth.IdentityFromContext(ctx); ok {
		return "user:" + strconv.FormatInt(id.UserID, 10)
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		addr := p.Addr.String()
		if host, _, err := net.SplitHostPort(addr); err == nil {
			addr = host
		}
		return "peer:" + addr
	}
	return ""
}
