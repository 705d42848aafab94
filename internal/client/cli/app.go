package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/jwtkeeper/internal/client/client"
	"github.com/dmitrijs2005/jwtkeeper/internal/client/config"
	"github.com/dmitrijs2005/jwtkeeper/internal/client/models"
	"github.com/dmitrijs2005/jwtkeeper/internal/client/repositories/session"
	"github.com/dmitrijs2005/jwtkeeper/internal/client/services"
)

// SessionService is what the shell commands call.
type SessionService interface {
	Ping(ctx context.Context) error
	Register(ctx context.Context, email string, password []byte) error
	Login(ctx context.Context, email string, password []byte) (*models.Session, error)
	Current(ctx context.Context) (*models.Session, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) (*models.Session, error)
	Whoami(ctx context.Context) (*models.Profile, error)
	Tokens(ctx context.Context) ([]models.TokenInfo, error)
	Revoke(ctx context.Context, tokenID string) error
	RevokeAll(ctx context.Context) error
}

type App struct {
	timeout  time.Duration
	sessions SessionService
	reader   *bufio.Reader
	out      io.Writer
	closers  []io.Closer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	db, err := client.InitDatabase(ctx, c.StatePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	apiClient, err := client.NewServerClient(c.ServerURL, c.ServerGRPCAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	ss := services.NewSessionService(apiClient, session.NewSQLiteRepository(db))

	return &App{
		timeout:  c.RequestTimeout,
		sessions: ss,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		closers:  []io.Closer{apiClient, db},
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer func() {
		for _, c := range a.closers {
			_ = c.Close()
		}
	}()

	a.printf("jwtctl (type 'help' for commands)\n")
	runREPL(ctx, a, a.status, a.reader, a.out)
}

// call runs fn with the configured request timeout.
func (a *App) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	return fn(ctx)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) isLoggedIn() bool {
	_, err := a.sessions.Current(context.Background())
	return err == nil
}

func (a *App) status() string {
	s, err := a.sessions.Current(context.Background())
	if err != nil {
		return ""
	}
	return "(" + s.Email + ")"
}
