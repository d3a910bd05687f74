package server

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/theadityachoudhury/auth-service/internal/config"
	"github.com/theadityachoudhury/auth-service/internal/handler"
	"github.com/theadityachoudhury/auth-service/internal/logging"
	"github.com/theadityachoudhury/auth-service/internal/monitoring"
	"github.com/theadityachoudhury/auth-service/internal/repository"
	"github.com/theadityachoudhury/auth-service/internal/response"
	"github.com/theadityachoudhury/auth-service/internal/service"
	"github.com/theadityachoudhury/auth-service/internal/token"
)

// Server holds the Echo app and dependencies.
type Server struct {
	Echo     *echo.Echo
	Settings *config.Settings
	Log      *logging.Logger
}

// New builds the Echo server: middleware chain (instrumentation, panic
// recovery, CORS, trusted hosts, rate limiting), the auth routes, the
// health endpoint, and the optional metrics endpoint.
func New(cfg *config.Settings, log *logging.Logger, pool *pgxpool.Pool, metrics *monitoring.Metrics) (*Server, error) {
	tokens, err := token.NewService(cfg.JWTConfig())
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Debug

	mwCfg := logging.DefaultMiddlewareConfig()
	if metrics != nil {
		mwCfg.Metrics = metrics
	}
	e.Use(log.RequestMiddleware(mwCfg))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			evt := log.Ctx(c.Request().Context()).Error().Err(err)
			if cfg.LogBacktrace {
				evt = evt.Str("stack", string(stack))
			}
			evt.Msg("panic recovered")
			return err
		},
	}))

	e.Use(trustedHostMiddleware(cfg.TrustedHostsList()))
	e.Use(middleware.CORSWithConfig(cfg.CORSConfig()))

	if cfg.RateLimitEnabled {
		store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:  rate.Limit(float64(cfg.RateLimitRequestsPerMinute) / 60.0),
			Burst: cfg.RateLimitBurst,
		})
		e.Use(middleware.RateLimiter(store))
	}

	users := service.NewUserService(repository.NewUserRepository(pool), cfg.PasswordPolicy(), log)
	auth := handler.NewAuthHandler(users, tokens, log)

	g := e.Group("/auth")
	g.POST("/register", auth.Register)
	g.POST("/login", auth.Login)
	g.POST("/refresh", auth.Refresh)
	g.GET("/me", auth.Me, handler.BearerAuth(tokens))

	e.GET("/health", func(c echo.Context) error {
		return response.OK(c, map[string]any{
			"status":      "ok",
			"app_name":    cfg.AppName,
			"app_version": cfg.AppVersion,
			"environment": cfg.Environment,
		}, "")
	})

	if cfg.PrometheusEnabled && metrics != nil {
		e.GET(cfg.MetricsEndpoint, echo.WrapHandler(metrics.Handler()))
	}

	return &Server{Echo: e, Settings: cfg, Log: log}, nil
}

// Start starts the HTTP server. Blocks until the context is cancelled or
// the server fails. On context cancel, Shutdown drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.Shutdown(context.Background())
	}()
	s.Log.Base().Info().Str("address", s.Settings.Address()).Msg("http server listening")
	return s.Echo.Start(s.Settings.Address())
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}

// trustedHostMiddleware rejects requests whose Host header matches none of
// the configured patterns. A leading "*." matches any subdomain; a bare
// "*" allows everything. Echo has no built-in equivalent.
func trustedHostMiddleware(patterns []string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			host := hostWithoutPort(c.Request().Host)
			if hostAllowed(host, patterns) {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusBadRequest, "invalid host header")
		}
	}
}

func hostWithoutPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
}

func hostAllowed(host string, patterns []string) bool {
	for _, p := range patterns {
		if p == "*" {
			return true
		}
		if rest, ok := strings.CutPrefix(p, "*."); ok {
			if strings.HasSuffix(host, "."+rest) || host == rest {
				return true
			}
			continue
		}
		if strings.EqualFold(host, p) {
			return true
		}
	}
	return false
}
