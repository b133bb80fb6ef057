package cmd

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Davincible/ecoswitch-go/internal/config"
	"github.com/Davincible/ecoswitch-go/internal/conversation"
	"github.com/Davincible/ecoswitch-go/internal/providers"
	"github.com/Davincible/ecoswitch-go/internal/router"
)

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.Default()
	settings := settingsFromConfig(cfg)
	assert.Equal(t, providers.OpenAI, settings.Provider)
	assert.Equal(t, "gpt-3.5-turbo", settings.Model)

	cfg.Defaults.Provider = "openrouter"
	settings = settingsFromConfig(cfg)
	assert.Equal(t, providers.OpenRouter, settings.Provider)
	assert.Equal(t, router.DefaultOpenRouterModel, settings.Model)

	cfg.Defaults.Model = "deepseek/deepseek-r1:free"
	cfg.Defaults.Parameters.MaxTokens = 321
	settings = settingsFromConfig(cfg)
	assert.Equal(t, "deepseek/deepseek-r1:free", settings.Model)
	assert.Equal(t, 321, settings.Parameters.MaxTokens)
}

func TestNewRegistry(t *testing.T) {
	registry := newRegistry(config.Default())
	assert.Equal(t, providers.Kinds(), registry.List())
}

func TestBuildDeps_InMemory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Default()

	deps, cleanup, err := buildDeps(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &conversation.MemoryStore{}, deps.Store)
	assert.NotNil(t, deps.Chat)
	assert.False(t, deps.Verifier.VerifyServer(context.Background()), "no server key configured")
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "postgres://***@db:5432/app", maskDSN("postgres://user:secret@db:5432/app"))
	assert.Equal(t, "postgres:///app", maskDSN("postgres:///app"))
	assert.Contains(t, maskDSN(""), "not set")
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:6971", endpoint("0.0.0.0", 6971))
	assert.Equal(t, "http://10.0.0.2:80", endpoint("10.0.0.2", 80))
}
