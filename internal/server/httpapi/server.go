// Package httpapi exposes the account and token endpoints over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/jwtkeeper/internal/logging"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/auth"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/models"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

// UserService is the subset of services.UserService the handlers call.
type UserService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	SignIn(ctx context.Context, email, password, audience, ip string) (*services.IssuedToken, error)
	Refresh(ctx context.Context, ownerID, tokenID, audience string) (*services.IssuedToken, error)
	SignOut(ctx context.Context, ownerID, tokenID string) error
	Profile(ctx context.Context, userID string) (*models.User, error)
	DeleteAccount(ctx context.Context, userID string) error
}

// AccountService is the token facade.
type AccountService interface {
	GetToken(ctx context.Context, ownerID, tokenID string) (*models.TokenInfo, error)
	ListActiveTokens(ctx context.Context, ownerID string) ([]models.TokenInfo, error)
	RevokeToken(ctx context.Context, ownerID, tokenID string) error
	RevokeAllTokens(ctx context.Context, ownerID string) error
}

// BillingService is the subscription pass-through.
type BillingService interface {
	HasActiveSubscription(ctx context.Context, userID string) (bool, error)
	CreateCheckoutSession(ctx context.Context, userID, priceID string) (string, error)
	CreatePortalSession(ctx context.Context, userID string) (string, error)
}

type Server struct {
	address  string
	engine   *gin.Engine
	logger   logging.Logger
	users    UserService
	accounts AccountService
	billing  BillingService
}

// NewServer builds the router. metricsHandler is mounted on /metrics when
// it is not nil.
func NewServer(address string, l logging.Logger, authn *auth.Authenticator, us UserService, as AccountService,
	bs BillingService, rec metrics.Recorder, metricsHandler http.Handler) *Server {
	if rec == nil {
		rec = metrics.NewNoopMetrics()
	}

	s := &Server{
		address:  address,
		logger:   l.With("module", "http_server"),
		users:    us,
		accounts: as,
		billing:  bs,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), RequestLogger(s.logger), metrics.HTTPMetricsMiddleware(rec))
	s.engine = engine

	s.registerRoutes(authn, metricsHandler)
	return s
}

func (s *Server) registerRoutes(authn *auth.Authenticator, metricsHandler http.Handler) {
	s.engine.GET("/healthz", s.health)
	if metricsHandler != nil {
		s.engine.GET("/metrics", gin.WrapH(metricsHandler))
	}

	users := s.engine.Group("/users")
	users.POST("", s.register)
	users.POST("/sign_in", s.signIn)

	protected := users.Group("", RequireAuth(authn))
	protected.DELETE("/sign_out", s.signOut)
	protected.POST("/refresh", s.refresh)

	protected.GET("/me", s.profile)
	protected.DELETE("/me", s.deleteAccount)

	protected.GET("/jwts/:jti", s.getToken)
	protected.GET("/active_jwts", s.listActiveTokens)
	protected.DELETE("/jwts/:jti", s.revokeToken)
	protected.DELETE("/jwts", s.revokeAllTokens)

	protected.GET("/has_active_subscription", s.hasActiveSubscription)
	protected.POST("/create_checkout_session_for_subscription", s.createCheckoutSession)
	protected.POST("/create_customer_portal_session", s.createPortalSession)
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
