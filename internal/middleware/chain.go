package middleware

import (
	"log/slog"
	"net/http"

	"github.com/Davincible/ecoswitch-go/internal/config"
)

// Middleware represents a middleware function
type Middleware func(http.Handler) http.Handler

// Chain represents a middleware chain
type Chain struct {
	middlewares []Middleware
}

// New creates a new middleware chain
func New(middlewares ...Middleware) Chain {
	return Chain{middlewares: middlewares}
}

// Then returns a new chain with more middleware appended.
func (c Chain) Then(middlewares ...Middleware) Chain {
	merged := make([]Middleware, 0, len(c.middlewares)+len(middlewares))
	merged = append(merged, c.middlewares...)
	return Chain{middlewares: append(merged, middlewares...)}
}

// Handler wraps handler so the first middleware in the chain runs first.
func (c Chain) Handler(handler http.Handler) http.Handler {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		handler = c.middlewares[i](handler)
	}

	return handler
}

// HandlerFunc is Handler for a plain function.
func (c Chain) HandlerFunc(fn http.HandlerFunc) http.Handler {
	return c.Handler(fn)
}

type MiddlewareSet struct {
	RequestID Middleware
	Logging   Middleware
	Metrics   Middleware
	Auth      Middleware
}

func NewMiddlewareSet(config *config.Manager, logger *slog.Logger) MiddlewareSet {
	return MiddlewareSet{
		RequestID: NewRequestIDMiddleware(),
		Logging:   NewLoggingMiddleware(logger),
		Metrics:   NewMetricsMiddleware(),
		Auth:      NewAuthMiddleware(config, logger),
	}
}

// DefaultChain guards the /api routes.
func (ms MiddlewareSet) DefaultChain() Chain {
	return New(
		ms.RequestID,
		ms.Logging,
		ms.Metrics,
		ms.Auth,
	)
}

// HealthChain is DefaultChain without authentication.
func (ms MiddlewareSet) HealthChain() Chain {
	return New(
		ms.RequestID,
		ms.Logging,
		ms.Metrics,
	)
}

// PublicChain is used for /metrics, which should not count or log itself.
func (ms MiddlewareSet) PublicChain() Chain {
	return New(ms.RequestID)
}
