// Package httpapi exposes the engine's intents over a local JSON API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/roach88/brutalist/internal/engine"
	"github.com/roach88/brutalist/internal/session"
)

// identityKey is where the session middleware stores the verified identity.
const identityKey = "identity"

// Options configures a Server. Session routes are only mounted when both
// Tokens and Sessions are set.
type Options struct {
	Logger    zerolog.Logger
	Tokens    *session.Tokens
	Sessions  *session.Hub
	RateLimit float64
	Burst     int
	Now       func() time.Time
}

type Server struct {
	echo     *echo.Echo
	eng      *engine.Engine
	tokens   *session.Tokens
	sessions *session.Hub
	logger   zerolog.Logger
	now      func() time.Time
}

func New(eng *engine.Engine, opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		eng:      eng,
		tokens:   opts.Tokens,
		sessions: opts.Sessions,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := s.logger.Info()
			if v.Error != nil {
				ev = s.logger.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).
				Dur("latency", v.Latency).Msg("request")
			return nil
		},
	}))
	if opts.RateLimit > 0 {
		e.Use(middleware.RateLimiterWithConfig(rateLimiter(opts.RateLimit, opts.Burst)))
	}

	s.routes()
	return s
}

func rateLimiter(limit float64, burst int) middleware.RateLimiterConfig {
	deny := func(c echo.Context, _ string, _ error) error {
		return c.JSON(http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
	}
	return middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(limit),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, errorBody{Error: "rate limit identifier unavailable"})
		},
		DenyHandler: deny,
	}
}

func (s *Server) routes() {
	e := s.echo
	e.GET("/health", s.health)

	api := e.Group("/api")
	api.GET("/state", s.getState)
	api.POST("/reset", s.reset)

	api.POST("/orders", s.createOrder)
	api.DELETE("/orders/:id", s.deleteOrder)
	api.PATCH("/orders/:id/status", s.updateOrderStatus)

	api.POST("/products", s.addProduct)
	api.PUT("/products/:id", s.updateProduct)
	api.DELETE("/products/:id", s.deleteProduct)
	api.POST("/products/:id/stock", s.adjustStock)

	api.GET("/materials/low-stock", s.lowStock)
	api.POST("/materials", s.addMaterial)
	api.PUT("/materials/:id", s.updateMaterial)
	api.DELETE("/materials/:id", s.deleteMaterial)

	api.PATCH("/settings", s.updateSettings)

	api.GET("/backup", s.exportBackup)
	api.POST("/backup", s.importBackup)

	api.GET("/session", s.getSession)
	if s.tokens != nil && s.sessions != nil {
		api.POST("/session", s.signIn, echojwt.WithConfig(echojwt.Config{
			ContextKey: identityKey,
			ParseTokenFunc: func(_ echo.Context, auth string) (interface{}, error) {
				return s.tokens.Verify(auth)
			},
			ErrorHandler: func(_ echo.Context, err error) error {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing session token").SetInternal(err)
			},
		}))
		api.DELETE("/session", s.signOut)
	}
}

// ServeHTTP makes the server usable with httptest and custom listeners.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("http server listening")
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
