package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/jwtkeeper/internal/client/models"
	"github.com/dmitrijs2005/jwtkeeper/internal/common"
)

const sessionsService = "/jwtkeeper.v1.Sessions/"

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+token)
	return metadata.NewOutgoingContext(ctx, md)
}

func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	return &GRPCClient{endpointURL: endpointURL, conn: conn}, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) invoke(ctx context.Context, method, accessToken string, in, out any) error {
	if err := s.conn.Invoke(withAccessToken(ctx, accessToken), sessionsService+method, in, out); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) ListTokens(ctx context.Context, accessToken string) ([]models.TokenInfo, error) {
	out := new(structpb.Struct)
	if err := s.invoke(ctx, "ListActiveTokens", accessToken, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}

	values := out.GetFields()["tokens"].GetListValue().GetValues()
	tokens := make([]models.TokenInfo, 0, len(values))
	for _, v := range values {
		f := v.GetStructValue().GetFields()
		exp, err := time.Parse(time.RFC3339, f["expires_at"].GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("bad expires_at: %w", err)
		}
		tokens = append(tokens, models.TokenInfo{
			TokenID:   f["jti"].GetStringValue(),
			ExpiresAt: exp,
			UserAgent: f["user_agent"].GetStringValue(),
		})
	}
	return tokens, nil
}

func (s *GRPCClient) RevokeToken(ctx context.Context, accessToken, tokenID string) error {
	return s.invoke(ctx, "RevokeToken", accessToken, wrapperspb.String(tokenID), new(emptypb.Empty))
}

func (s *GRPCClient) RevokeAllTokens(ctx context.Context, accessToken string) error {
	return s.invoke(ctx, "RevokeAllTokens", accessToken, &emptypb.Empty{}, new(emptypb.Empty))
}

func (s *GRPCClient) mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.Unauthenticated:
		return ErrUnauthorized
	case codes.NotFound:
		return ErrNotFound
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	default:
		return fmt.Errorf("%s: %s", st.Code(), st.Message())
	}
}
