package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/memory"
	rabbitmq_pub "github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/redis"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/flash"
	http_handlers "github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/handlers"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/intent"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB   func(dsn string, debug bool) (*sql.DB, error)
	Migrate func(ctx context.Context, db *sql.DB) error

	NewRedis func(addr, password string, db int) *redis.Client

	NewPublisher func(url, exchange string, timeout time.Duration) (Publisher, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

type Publisher interface {
	auth.Notifier
	Close() error
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	hasher := security.NewBcryptHasher(cfg.BcryptCost)

	// 1) user store: postgres, or memory in dev without DB_ADDR
	var users auth.UserStore
	var sqlDB *sql.DB
	if cfg.DBAddr != "" {
		sqlDB, err = deps.NewDB(cfg.DBAddr, cfg.DBDebug)
		if err != nil {
			return fail(err)
		}
		cleanupFns = append(cleanupFns, func() { _ = sqlDB.Close() })

		if cfg.DBMigrate && deps.Migrate != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := deps.Migrate(ctx, sqlDB)
			cancel()
			if err != nil {
				return fail(fmt.Errorf("migrate: %w", err))
			}
		}

		repo := postgres.NewUserRepo(sqlDB)
		if cfg.IsDev() {
			postgres.SeedUsers(context.Background(), repo, hasher)
		}
		users = repo
	} else {
		logger.Logger.Warn().Msg("DB_ADDR not set; using in-memory user store")
		repo := memory.NewUserRepo()
		memory.SeedUsers(context.Background(), repo, hasher)
		users = repo
	}

	// 2) redis: sessions + rate limiting
	var sessions auth.SessionStore
	var limiter middleware.RateLimiter
	var redisCli *redis.Client
	if cfg.RedisAddr != "" {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.Ping(ctx)
		cancel()

		switch {
		case err == nil:
			logger.Logger.Info().Msg("redis connected")
			redisCli = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
		case cfg.IsDev():
			logger.Logger.Warn().Err(err).Msg("redis unavailable; using in-memory sessions")
			_ = c.Close()
		default:
			_ = c.Close()
			return fail(fmt.Errorf("redis: %w", err))
		}
	}
	if redisCli != nil {
		sessions = redis.NewSessionStore(redisCli)
		limiter = redis.NewFixedWindowLimiter(redisCli)
	} else {
		sessions = memory.NewSessionStore()
	}

	// 3) notifier
	var notifier auth.Notifier
	if cfg.RabbitURL != "" {
		pub, err := deps.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange, cfg.NotifyTimeout)
		switch {
		case err == nil:
			notifier = pub
			cleanupFns = append(cleanupFns, func() { _ = pub.Close() })
		case cfg.IsDev():
			logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; using noop publisher")
		default:
			return fail(err)
		}
	}
	if notifier == nil {
		notifier = memory.NewNoopPublisher()
	}

	// 4) service
	svc := auth.NewService(
		users,
		hasher,
		security.NewTokenGenerator(cfg.VerifyTokenBytes),
		sessions,
		notifier,
		auth.Config{
			PublicBaseURL: cfg.PublicBaseURL,
			AccountHome:   cfg.HomeAfterLogin,
			SessionTTL:    cfg.SessionTTL,
		},
	).WithAudit(audit.New(logger.Logger))

	// 5) handlers + middleware
	intents := intent.New(cfg.SecureCookies)
	accountH := http_handlers.NewAccountHandler(svc, intents, flash.New(cfg.SecureCookies), cfg.SecureCookies)
	healthH := http_handlers.NewHealthHandler(sqlDB)

	rl := func(scope string, limit int, window time.Duration) func(http.Handler) http.Handler {
		if limiter == nil {
			return nil
		}
		return middleware.RateLimitFixedWindow(
			limiter,
			middleware.FixedWindowConfig{
				Scope:          scope,
				Limit:          limit,
				Window:         window,
				TrustedProxies: cfg.TrustedProxies,
			},
			accountH.WriteFormError,
		)
	}

	// 6) router
	mux, err := deps.NewRouter(router.Deps{
		Health:  healthH,
		Account: accountH,

		RequestIDMW:      middleware.RequestID,
		SessionMW:        middleware.LoadSession(svc.Sessions()),
		RequireSessionMW: middleware.RequireSession(intents, auth.PathLogin),

		MetricsMW:       middleware.Metrics,
		MetricsHandler:  promhttp.Handler(),
		CSRFMW:          middleware.CSRFProtection(middleware.AllowedOrigins(cfg.PublicBaseURL, cfg.IsDev())),
		RLLogin:         rl("login", cfg.RLLoginLimit, cfg.RLLoginWindow),
		RLCreateAccount: rl("create_account", cfg.RLCreateAccountLimit, cfg.RLCreateAccountWindow),
	})
	if err != nil {
		return fail(err)
	}

	// 7) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	var once bool
	cleanup := func() {
		if once {
			return
		}
		once = true
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB:      postgres.Open,
		Migrate:    postgres.Migrate,
		NewRedis:   redis.New,
		NewPublisher: func(url, exchange string, timeout time.Duration) (Publisher, error) {
			p, err := rabbitmq_pub.NewPublisher(url, exchange)
			if err != nil {
				return nil, err
			}
			return p.WithTimeout(timeout), nil
		},
		NewRouter: router.New,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
