// Package server wires the storage backends, the revocation strategy and
// the account services, then runs the HTTP and gRPC servers until a
// shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	red "github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/jwtkeeper/internal/logging"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/archive"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/auth"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/billing"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/config"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/repositories/allowlist"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/revocation"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/services"

	gs "github.com/dmitrijs2005/jwtkeeper/internal/server/grpc"
)

const billingHTTPTimeout = 10 * time.Second

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	redis          *red.Client
	metrics        metrics.Recorder
	metricsHandler http.Handler
	authn          *auth.Authenticator
	userService    *services.UserService
	accountService *services.AccountService
	billingService *services.BillingService
	purger         *services.Purger
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		app.close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app.initMetrics()

	store, err := app.initAllowlist(ctx, m)
	if err != nil {
		app.close()
		return nil, err
	}

	archiver, err := app.initArchiver(ctx)
	if err != nil {
		app.close()
		return nil, err
	}

	strategy := revocation.NewAllowlistStrategy(store, logger, app.metrics)
	app.authn = auth.NewAuthenticator(c.SecretKey, strategy)

	app.billingService = services.NewBillingService(db, m, app.initBillingProvider(), logger, app.metrics, c)
	app.userService = services.NewUserService(db, m, strategy, app.billingService, logger, app.metrics, c)
	app.accountService = services.NewAccountService(store, strategy, app.metrics)
	app.purger = services.NewPurger(store, archiver, c.PurgeInterval, logger, app.metrics)

	return app, nil
}

func (app *App) initMetrics() {
	if !app.config.MetricsEnabled {
		app.metrics = metrics.Init(false, nil)
		return
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.metrics = metrics.Init(true, reg)
	app.metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func (app *App) initAllowlist(ctx context.Context, m repomanager.RepositoryManager) (allowlist.Repository, error) {
	switch app.config.AllowlistBackend {
	case config.BackendRedis:
		client := red.NewClient(&red.Options{
			Addr:     app.config.RedisAddr,
			Password: app.config.RedisPassword,
			DB:       app.config.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		app.redis = client
		app.logger.Info(ctx, "Using redis allowlist", "address", app.config.RedisAddr)
		return allowlist.NewRedisRepository(client, app.config.RedisKeyPrefix, app.config.RedisRetention), nil

	case config.BackendPostgres, "":
		return m.Allowlist(app.db), nil

	default:
		return nil, fmt.Errorf("unknown allowlist backend %q", app.config.AllowlistBackend)
	}
}

func (app *App) initArchiver(ctx context.Context) (archive.Archiver, error) {
	if app.config.S3Bucket == "" {
		return nil, nil
	}

	a, err := archive.NewS3Archiver(ctx, archive.Options{
		Bucket:         app.config.S3Bucket,
		Region:         app.config.S3Region,
		AccessKey:      app.config.S3RootUser,
		SecretKey:      app.config.S3RootPassword,
		BaseEndpoint:   app.config.S3BaseEndpoint,
		ForcePathStyle: app.config.S3BaseEndpoint != "",
	})
	if err != nil {
		return nil, fmt.Errorf("s3 init error: %w", err)
	}
	return a, nil
}

func (app *App) initBillingProvider() billing.Provider {
	if app.config.StripeSecretKey == "" {
		app.logger.Warn(context.Background(), "Stripe key not set, billing disabled")
		return nil
	}
	return billing.NewStripeProvider(app.config.StripeSecretKey, app.config.StripeAPIBaseURL,
		&http.Client{Timeout: billingHTTPTimeout})
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger, app.authn, app.userService,
		app.accountService, app.billingService, app.metrics, app.metricsHandler)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.authn, app.accountService)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) close() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(context.Background(), "redis close failed", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(context.Background(), "db close failed", "error", err)
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.purger.Run(ctx)
	}()

	wg.Wait()

	app.close()
	app.logger.Info(context.Background(), "App stopped")
}
