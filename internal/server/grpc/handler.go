package grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/jwtkeeper/internal/common"
)

func (s *GRPCServer) ValidateToken(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	claims, err := s.authn.Authenticate(ctx, req.GetValue())
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	return structpb.NewStruct(map[string]any{
		"user_id":    claims.OwnerID(),
		"jti":        claims.TokenID(),
		"expires_at": claims.Expiry().UTC().Format(time.RFC3339),
	})
}

func (s *GRPCServer) ListActiveTokens(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	infos, err := s.accounts.ListActiveTokens(ctx, ownerFromContext(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	tokens := make([]any, 0, len(infos))
	for _, info := range infos {
		tokens = append(tokens, map[string]any{
			"jti":        info.TokenID,
			"expires_at": info.ExpiresAt.UTC().Format(time.RFC3339),
			"user_agent": info.UserAgent,
		})
	}
	return structpb.NewStruct(map[string]any{"tokens": tokens})
}

func (s *GRPCServer) RevokeToken(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "jti is required")
	}
	if err := s.accounts.RevokeToken(ctx, ownerFromContext(ctx), req.GetValue()); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) RevokeAllTokens(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.accounts.RevokeAllTokens(ctx, ownerFromContext(ctx)); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	default:
		s.logger.Error(ctx, "grpc request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
