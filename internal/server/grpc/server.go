// Package grpc serves the token service to other backends over gRPC.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/jwtkeeper/internal/logging"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/auth"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/models"
)

// AccountService is the token facade the handlers call.
type AccountService interface {
	ListActiveTokens(ctx context.Context, ownerID string) ([]models.TokenInfo, error)
	RevokeToken(ctx context.Context, ownerID, tokenID string) error
	RevokeAllTokens(ctx context.Context, ownerID string) error
}

type GRPCServer struct {
	address  string
	authn    *auth.Authenticator
	accounts AccountService
	logger   logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, authn *auth.Authenticator, as AccountService) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		authn:    authn,
		accounts: as,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))

	RegisterSessionsServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus(SessionsServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
