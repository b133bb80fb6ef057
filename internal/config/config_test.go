package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Davincible/ecoswitch-go/internal/providers"
)

func TestConfig_LoadAndSave(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	cfg := &Config{
		Host:   "127.0.0.1",
		Port:   8080,
		APIKey: "test-key",
		OpenRouter: OpenRouterConfig{
			APIKey: "sk-or-v1-server",
			Title:  "Test App",
		},
		VerifyTimeout: Duration(3 * time.Second),
		Defaults: Defaults{
			Provider: "deepseek",
			Model:    "deepseek-chat",
		},
	}

	require.NoError(t, manager.Save(cfg))
	assert.True(t, manager.Exists())
	assert.Equal(t, filepath.Join(tmpDir, DefaultYAMLFilename), manager.GetPath())

	loaded, err := manager.Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", loaded.Host)
	assert.Equal(t, 8080, loaded.Port)
	assert.Equal(t, "test-key", loaded.APIKey)
	assert.Equal(t, "sk-or-v1-server", loaded.OpenRouter.APIKey)
	assert.Equal(t, "Test App", loaded.OpenRouter.Title)
	assert.Equal(t, providers.DefaultOpenRouterReferer, loaded.OpenRouter.Referer)
	assert.Equal(t, 3*time.Second, loaded.VerifyTimeout.Std())
	assert.Equal(t, "deepseek", loaded.Defaults.Provider)
	assert.Equal(t, providers.DefaultParameters(), loaded.Defaults.Parameters)
}

func TestConfig_JSONFallback(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	data := `{
  "host": "0.0.0.0",
  "port": 9000,
  "openrouter": {"api_key": "sk-or-v1-json"},
  "chat_timeout": "45s",
  "defaults": {"parameters": {"temperature": 0.3, "max_tokens": 500}}
}`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, DefaultConfigFilename), []byte(data), 0o644))
	assert.Equal(t, filepath.Join(tmpDir, DefaultConfigFilename), manager.GetPath())

	cfg, err := manager.Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "sk-or-v1-json", cfg.OpenRouter.APIKey)
	assert.Equal(t, 45*time.Second, cfg.ChatTimeout.Std())
	assert.InDelta(t, 0.3, cfg.Defaults.Parameters.Temperature, 1e-6)
	assert.Equal(t, 500, cfg.Defaults.Parameters.MaxTokens)
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultVerifyTimeout, cfg.VerifyTimeout.Std())
	assert.Equal(t, DefaultVerifyCacheTTL, cfg.VerifyCacheTTL.Std())
	assert.Equal(t, providers.DefaultChatTimeout, cfg.ChatTimeout.Std())
	assert.Equal(t, providers.DefaultOpenAIBaseURL, cfg.OpenAI.BaseURL)
	assert.Equal(t, providers.DefaultDeepSeekBaseURL, cfg.DeepSeek.BaseURL)
	assert.Equal(t, providers.DefaultOpenRouterBaseURL, cfg.OpenRouter.BaseURL)
	assert.Equal(t, "openai", cfg.Defaults.Provider)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, DefaultConfigFilename), []byte("invalid json"), 0o644))

	_, err := manager.Load()
	assert.Error(t, err)
}

func TestConfig_MissingFile(t *testing.T) {
	manager := NewManager(t.TempDir())

	_, err := manager.Load()
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.False(t, manager.Exists())

	cfg, err := manager.LoadOrDefault()
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
}

func TestConfig_GetWithoutLoad(t *testing.T) {
	manager := NewManager(t.TempDir())

	cfg := manager.Get()
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Same(t, cfg, manager.Get(), "result is cached")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad port", func(c *Config) { c.Port = 70000 }, "Port"},
		{"bad provider", func(c *Config) { c.Defaults.Provider = "anthropic" }, "Provider"},
		{"bad openrouter key", func(c *Config) { c.OpenRouter.APIKey = "sk-123" }, "APIKey"},
		{"bad base url", func(c *Config) { c.OpenAI.BaseURL = "not a url" }, "BaseURL"},
		{"temperature", func(c *Config) { c.Defaults.Parameters.Temperature = 2.5 }, "temperature"},
		{"max tokens", func(c *Config) { c.Defaults.Parameters.MaxTokens = 5000 }, "max_tokens"},
		{"penalty", func(c *Config) { c.Defaults.Parameters.PresencePenalty = -3 }, "presence_penalty"},
		{"negative timeout", func(c *Config) { c.ChatTimeout = Duration(-time.Second) }, "negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_ValidateCollectsAll(t *testing.T) {
	cfg := Default()
	cfg.Port = 0
	cfg.Defaults.Parameters.MaxTokens = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Port")
	assert.Contains(t, err.Error(), "max_tokens")
}
