package cmd

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Davincible/ecoswitch-go/internal/chat"
	"github.com/Davincible/ecoswitch-go/internal/config"
	"github.com/Davincible/ecoswitch-go/internal/conversation"
	"github.com/Davincible/ecoswitch-go/internal/credentials"
	"github.com/Davincible/ecoswitch-go/internal/providers"
	"github.com/Davincible/ecoswitch-go/internal/router"
	"github.com/Davincible/ecoswitch-go/internal/server"
)

// newRegistry registers one adapter per provider, configured from cfg.
func newRegistry(cfg *config.Config) *providers.Registry {
	timeout := cfg.ChatTimeout.Std()

	registry := providers.NewRegistry()
	registry.Register(providers.NewOpenAIAdapter(
		providers.WithBaseURL(cfg.OpenAI.BaseURL),
		providers.WithTimeout(timeout),
	))
	registry.Register(providers.NewDeepSeekAdapter(
		providers.WithBaseURL(cfg.DeepSeek.BaseURL),
		providers.WithTimeout(timeout),
	))
	registry.Register(providers.NewOpenRouterAdapter(
		providers.WithBaseURL(cfg.OpenRouter.BaseURL),
		providers.WithTimeout(timeout),
		providers.WithFallbackKey(cfg.OpenRouter.APIKey),
		providers.WithAppIdentity(cfg.OpenRouter.Referer, cfg.OpenRouter.Title),
	))
	return registry
}

// newVerifier uses Redis for the verification cache when configured and
// an in-process cache otherwise.
func newVerifier(ctx context.Context, cfg *config.Config, log *slog.Logger) (*credentials.Verifier, func(), error) {
	cleanup := func() {}

	var cache credentials.Cache = credentials.NewMemoryCache()
	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		rc := credentials.NewRedisCache(client)
		if err := rc.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		cache = rc
		cleanup = func() { _ = client.Close() }
		log.Info("Using Redis verification cache", "addr", cfg.RedisAddr)
	}

	verifier := credentials.NewVerifier(
		credentials.WithCache(cache),
		credentials.WithTimeout(cfg.VerifyTimeout.Std()),
		credentials.WithCacheTTL(cfg.VerifyCacheTTL.Std()),
		credentials.WithServerKey(cfg.OpenRouter.APIKey),
		credentials.WithEndpoints(credentials.Endpoints{
			OpenAIBaseURL:     cfg.OpenAI.BaseURL,
			DeepSeekBaseURL:   cfg.DeepSeek.BaseURL,
			OpenRouterBaseURL: cfg.OpenRouter.BaseURL,
			OpenRouterReferer: cfg.OpenRouter.Referer,
			OpenRouterTitle:   cfg.OpenRouter.Title,
		}),
		credentials.WithLogger(log),
	)
	return verifier, cleanup, nil
}

// newStore uses Postgres when DATABASE_URL is set and memory otherwise.
func newStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (conversation.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("Using in-memory conversation store")
		return conversation.NewMemoryStore(), nil
	}

	store, err := conversation.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open conversation store: %w", err)
	}
	log.Info("Using Postgres conversation store")
	return store, nil
}

func settingsFromConfig(cfg *config.Config) chat.Settings {
	settings := chat.DefaultSettings()
	if kind, err := providers.ParseKind(cfg.Defaults.Provider); err == nil && kind != settings.Provider {
		settings.Provider = kind
		settings.Model = router.DefaultModel(kind)
	}
	if cfg.Defaults.Model != "" {
		settings.Model = cfg.Defaults.Model
	}
	settings.Parameters = cfg.Defaults.Parameters
	return settings
}

// buildDeps wires the full service graph. The returned cleanup releases
// the verification cache; the server closes the store on shutdown.
func buildDeps(ctx context.Context, cfg *config.Config, log *slog.Logger) (server.Deps, func(), error) {
	verifier, cleanup, err := newVerifier(ctx, cfg, log)
	if err != nil {
		return server.Deps{}, nil, err
	}

	store, err := newStore(ctx, cfg, log)
	if err != nil {
		cleanup()
		return server.Deps{}, nil, err
	}

	svc := chat.NewService(newRegistry(cfg), verifier, store,
		chat.WithLogger(log),
		chat.WithSettings(settingsFromConfig(cfg)),
	)

	return server.Deps{Chat: svc, Verifier: verifier, Store: store}, cleanup, nil
}
