package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/jwtkeeper/internal/client/models"
)

type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient builds a client for the API at baseURL. A nil httpClient
// means http.DefaultClient; deadlines come from the call context.
func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *HTTPClient) do(ctx context.Context, method, path, accessToken string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	req.Header.Set("User-Agent", "jwtctl")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return mapHTTPError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func mapHTTPError(resp *http.Response) error {
	var e errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&e)
	if e.Error == "" {
		e.Error = resp.Status
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", ErrUnavailable, e.Error)
	default:
		return fmt.Errorf("%w: %s", ErrRejected, e.Error)
	}
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", "", nil, nil)
}

func (c *HTTPClient) Register(ctx context.Context, email, password string) error {
	return c.do(ctx, http.MethodPost, "/users", "", credentials{Email: email, Password: password}, nil)
}

func (c *HTTPClient) SignIn(ctx context.Context, email, password string) (*models.Token, error) {
	var t models.Token
	if err := c.do(ctx, http.MethodPost, "/users/sign_in", "", credentials{Email: email, Password: password}, &t); err != nil {
		return nil, err
	}
	if t.AccessToken == "" {
		return nil, errors.New("server returned no access token")
	}
	return &t, nil
}

func (c *HTTPClient) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodDelete, "/users/sign_out", accessToken, nil, nil)
}

func (c *HTTPClient) Refresh(ctx context.Context, accessToken string) (*models.Token, error) {
	var t models.Token
	if err := c.do(ctx, http.MethodPost, "/users/refresh", accessToken, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) Profile(ctx context.Context, accessToken string) (*models.Profile, error) {
	var p models.Profile
	if err := c.do(ctx, http.MethodGet, "/users/me", accessToken, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
