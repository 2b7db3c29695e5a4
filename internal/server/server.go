package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hongminglow/expense-tracker-be/internal/analytics"
	"github.com/hongminglow/expense-tracker-be/internal/auth"
	"github.com/hongminglow/expense-tracker-be/internal/config"
	"github.com/hongminglow/expense-tracker-be/internal/events"
	"github.com/hongminglow/expense-tracker-be/internal/expenses"
	"github.com/hongminglow/expense-tracker-be/internal/http/handlers"
	"github.com/hongminglow/expense-tracker-be/internal/insights"
	"github.com/hongminglow/expense-tracker-be/internal/middleware"
	"github.com/hongminglow/expense-tracker-be/internal/storage"
)

// Deps are the external collaborators of the server.
type Deps struct {
	Store     storage.Store
	Publisher events.Publisher
	Completer insights.Completer
	// Provider is nil when external login is disabled.
	Provider auth.IdentityProvider
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner   *http.Server
	limiter *middleware.RateLimiter
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.Nop{}
	}
	if deps.Completer == nil {
		deps.Completer = insights.Disabled{}
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	protect := handlers.Protect(middleware.RequireAuth(tokens))
	limiter := middleware.NewRateLimiter(cfg.AIRateLimitPerMin, logger)

	generator := insights.NewGenerator(deps.Store, deps.Completer, insights.GeneratorOptions{
		Currency: cfg.InsightsCurrency,
		CacheTTL: cfg.InsightsCacheTTL,
	}, logger)
	voice := insights.NewVoiceParser(deps.Completer, logger)
	expenseSvc := expenses.NewService(deps.Store, deps.Publisher, generator, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(time.Now()).Register(mux)
	handlers.NewAuthHandler(deps.Store, tokens, deps.Provider, cfg.CookieSecure, logger).Register(mux, protect)
	handlers.NewExpenseHandler(expenseSvc, logger).Register(mux, protect)
	handlers.NewAnalyticsHandler(analytics.NewService(deps.Store), logger).Register(mux, protect)
	handlers.NewInsightsHandler(generator, voice, logger).Register(mux, protect, limiter.Middleware)

	handler := middleware.Chain(mux,
		middleware.Logging(logger),
		middleware.CORS(cfg.CORSOrigins),
	)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Insight generation waits on the LLM.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	return &Server{inner: httpServer, limiter: limiter}
}

// Handler exposes the fully wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.inner.Handler
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.inner.Shutdown(ctx)
}
