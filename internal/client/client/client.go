// Package client talks to the jwtkeeper server: account calls go over the
// HTTP API, token management over the gRPC sessions service.
package client

import (
	"context"

	"github.com/dmitrijs2005/jwtkeeper/internal/client/models"
)

// Client is everything the client services need from the server. Errors
// are one of ErrUnavailable, ErrUnauthorized, ErrNotFound or ErrRejected,
// possibly wrapped with the server's message.
type Client interface {
	Close() error
	Ping(ctx context.Context) error

	Register(ctx context.Context, email, password string) error
	SignIn(ctx context.Context, email, password string) (*models.Token, error)
	SignOut(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, accessToken string) (*models.Token, error)
	Profile(ctx context.Context, accessToken string) (*models.Profile, error)

	ListTokens(ctx context.Context, accessToken string) ([]models.TokenInfo, error)
	RevokeToken(ctx context.Context, accessToken, tokenID string) error
	RevokeAllTokens(ctx context.Context, accessToken string) error
}

// ServerClient implements Client on top of HTTPClient and GRPCClient.
type ServerClient struct {
	*HTTPClient
	*GRPCClient
}

// NewServerClient connects to both endpoints. The gRPC connection is lazy,
// so an unreachable server surfaces on the first call.
func NewServerClient(baseURL, grpcAddr string) (*ServerClient, error) {
	g, err := NewGRPCClient(grpcAddr)
	if err != nil {
		return nil, err
	}
	return &ServerClient{HTTPClient: NewHTTPClient(baseURL, nil), GRPCClient: g}, nil
}

func (c *ServerClient) Close() error {
	return c.GRPCClient.Close()
}
