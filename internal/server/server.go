package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Davincible/ecoswitch-go/internal/chat"
	"github.com/Davincible/ecoswitch-go/internal/config"
	"github.com/Davincible/ecoswitch-go/internal/conversation"
	"github.com/Davincible/ecoswitch-go/internal/handlers"
	"github.com/Davincible/ecoswitch-go/internal/middleware"
	"github.com/Davincible/ecoswitch-go/internal/providers"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators the HTTP layer serves.
type Deps struct {
	Chat     *chat.Service
	Verifier handlers.KeyVerifier
	Store    conversation.Store
}

type Server struct {
	config *config.Manager
	deps   Deps
	logger *slog.Logger
	server *http.Server
}

func New(configManager *config.Manager, deps Deps, logger *slog.Logger) *Server {
	return &Server{
		config: configManager,
		deps:   deps,
		logger: logger,
	}
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.Run(ctx)
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	cfg := s.config.Get()
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.logger.Info("Starting server", "address", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if s.deps.Store != nil {
		s.deps.Store.Close()
	}

	s.logger.Info("Server exited")
	return nil
}

func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// Handler returns the routed and wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	keys := handlers.NewKeysHandler(s.deps.Verifier, s.deps.Chat, s.logger)
	chatHandler := handlers.NewChatHandler(s.deps.Chat, s.logger)
	conversations := handlers.NewConversationsHandler(s.deps.Store, s.logger)
	settings := handlers.NewSettingsHandler(s.deps.Chat, s.logger)
	health := handlers.NewHealthHandler(s.deps.Store, s.logger)

	middlewareSet := middleware.NewMiddlewareSet(s.config, s.logger)
	api := middlewareSet.DefaultChain()

	mux.Handle("GET /health", middlewareSet.HealthChain().Handler(health))
	mux.Handle("GET /metrics", middlewareSet.PublicChain().Handler(promhttp.Handler()))

	mux.Handle("POST /api/validate-key", api.Handler(keys.ValidateKey(providers.OpenAI)))
	mux.Handle("POST /api/validate-deepseek-key", api.Handler(keys.ValidateKey(providers.DeepSeek)))
	mux.Handle("POST /api/validate-openrouter-key", api.Handler(keys.ValidateKey(providers.OpenRouter)))
	mux.Handle("GET /api/verify-openrouter", api.HandlerFunc(keys.VerifyOpenRouter))
	mux.Handle("POST /api/keys/status", api.HandlerFunc(keys.KeysStatus))

	mux.Handle("POST /api/chat", api.HandlerFunc(chatHandler.Chat))
	mux.Handle("POST /api/send", api.HandlerFunc(chatHandler.Send))

	mux.Handle("POST /api/conversations", api.HandlerFunc(conversations.Create))
	mux.Handle("GET /api/conversations", api.HandlerFunc(conversations.List))
	mux.Handle("DELETE /api/conversations", api.HandlerFunc(conversations.Clear))
	mux.Handle("GET /api/conversations/{id}", api.HandlerFunc(conversations.Get))
	mux.Handle("DELETE /api/conversations/{id}", api.HandlerFunc(conversations.Delete))
	mux.Handle("POST /api/conversations/{id}/messages", api.HandlerFunc(conversations.AppendMessage))

	mux.Handle("GET /api/settings", api.HandlerFunc(settings.Get))
	mux.Handle("PATCH /api/settings", api.HandlerFunc(settings.Patch))

	return mux
}
