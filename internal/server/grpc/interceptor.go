package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/jwtkeeper/internal/common"
)

type ctxKey string

const (
	ownerIDKey ctxKey = "ownerID"
	tokenIDKey ctxKey = "tokenID"
)

// publicMethod reports whether fullMethod may be called without a token.
func publicMethod(fullMethod string) bool {
	return fullMethod == MethodValidateToken || strings.HasPrefix(fullMethod, "/grpc.health.v1.Health/")
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if publicMethod(info.FullMethod) {
		return handler(ctx, req)
	}

	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
			header = values[0]
		}
	}
	if header == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := s.authn.AuthenticateHeader(ctx, header)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	ctx = context.WithValue(ctx, ownerIDKey, claims.OwnerID())
	ctx = context.WithValue(ctx, tokenIDKey, claims.TokenID())
	return handler(ctx, req)
}

func ownerFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ownerIDKey).(string)
	return v
}
