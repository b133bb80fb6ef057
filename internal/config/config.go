package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Davincible/ecoswitch-go/internal/providers"
)

const (
	DefaultPort           = 6971
	DefaultHost           = "127.0.0.1"
	DefaultConfigFilename = "config.json"
	DefaultYAMLFilename   = "config.yaml"

	DefaultVerifyTimeout  = 5 * time.Second
	DefaultVerifyCacheTTL = 10 * time.Minute
)

// Duration reads and writes as a Go duration string ("5s", "10m") in
// YAML, JSON and environment variables.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*d = Duration(v)
	return nil
}

type OpenRouterConfig struct {
	// APIKey is the process-wide credential used when a request carries none.
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty" env:"OPENROUTER_API_KEY" validate:"omitempty,startswith=sk-or-"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" env:"OPENROUTER_BASE_URL" validate:"omitempty,url"`
	Referer string `json:"referer,omitempty" yaml:"referer,omitempty" validate:"omitempty,url"`
	Title   string `json:"title,omitempty" yaml:"title,omitempty"`
}

type EndpointConfig struct {
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"`
}

type Defaults struct {
	Provider   string               `json:"provider,omitempty" yaml:"provider,omitempty" validate:"omitempty,oneof=openai deepseek openrouter"`
	Model      string               `json:"model,omitempty" yaml:"model,omitempty"`
	Parameters providers.Parameters `json:"parameters" yaml:"parameters"`
}

type Config struct {
	Host   string `json:"host,omitempty" yaml:"host,omitempty" env:"ECOSWITCH_HOST"`
	Port   int    `json:"port,omitempty" yaml:"port,omitempty" env:"ECOSWITCH_PORT" validate:"min=1,max=65535"`
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" env:"ECOSWITCH_API_KEY"`

	OpenRouter OpenRouterConfig `json:"openrouter" yaml:"openrouter"`
	OpenAI     EndpointConfig   `json:"openai" yaml:"openai"`
	DeepSeek   EndpointConfig   `json:"deepseek" yaml:"deepseek"`

	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty" env:"DATABASE_URL"`
	RedisAddr   string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty" env:"REDIS_ADDR"`

	VerifyTimeout  Duration `json:"verify_timeout,omitempty" yaml:"verify_timeout,omitempty" env:"ECOSWITCH_VERIFY_TIMEOUT"`
	VerifyCacheTTL Duration `json:"verify_cache_ttl,omitempty" yaml:"verify_cache_ttl,omitempty" env:"ECOSWITCH_VERIFY_CACHE_TTL"`
	ChatTimeout    Duration `json:"chat_timeout,omitempty" yaml:"chat_timeout,omitempty" env:"ECOSWITCH_CHAT_TIMEOUT"`

	Defaults Defaults `json:"defaults" yaml:"defaults"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.OpenRouter.BaseURL == "" {
		c.OpenRouter.BaseURL = providers.DefaultOpenRouterBaseURL
	}
	if c.OpenRouter.Referer == "" {
		c.OpenRouter.Referer = providers.DefaultOpenRouterReferer
	}
	if c.OpenRouter.Title == "" {
		c.OpenRouter.Title = providers.DefaultOpenRouterTitle
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = providers.DefaultOpenAIBaseURL
	}
	if c.DeepSeek.BaseURL == "" {
		c.DeepSeek.BaseURL = providers.DefaultDeepSeekBaseURL
	}
	if c.VerifyTimeout == 0 {
		c.VerifyTimeout = Duration(DefaultVerifyTimeout)
	}
	if c.VerifyCacheTTL == 0 {
		c.VerifyCacheTTL = Duration(DefaultVerifyCacheTTL)
	}
	if c.ChatTimeout == 0 {
		c.ChatTimeout = Duration(providers.DefaultChatTimeout)
	}
	if c.Defaults.Provider == "" {
		c.Defaults.Provider = string(providers.OpenAI)
	}
	if c.Defaults.Parameters == (providers.Parameters{}) {
		c.Defaults.Parameters = providers.DefaultParameters()
	}
	if c.Defaults.Parameters.MaxTokens == 0 {
		c.Defaults.Parameters.MaxTokens = providers.DefaultParameters().MaxTokens
	}
}

// newFileConfig seeds the parameter defaults before decoding so a file
// that sets only some of them keeps the rest. An explicit zero
// temperature or empty system prompt in the file still wins.
func newFileConfig() Config {
	return Config{Defaults: Defaults{Parameters: providers.DefaultParameters()}}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every problem found, not just the first.
func (c *Config) Validate() error {
	var errs []error
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%s: failed %q check (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			errs = append(errs, err)
		}
	}

	p := c.Defaults.Parameters
	if p.Temperature < 0 || p.Temperature > 2 {
		errs = append(errs, fmt.Errorf("defaults.parameters.temperature must be between 0 and 2, got %v", p.Temperature))
	}
	if p.MaxTokens < 1 || p.MaxTokens > 4096 {
		errs = append(errs, fmt.Errorf("defaults.parameters.max_tokens must be between 1 and 4096, got %d", p.MaxTokens))
	}
	if p.PresencePenalty < -2 || p.PresencePenalty > 2 {
		errs = append(errs, fmt.Errorf("defaults.parameters.presence_penalty must be between -2 and 2, got %v", p.PresencePenalty))
	}
	if p.FrequencyPenalty < -2 || p.FrequencyPenalty > 2 {
		errs = append(errs, fmt.Errorf("defaults.parameters.frequency_penalty must be between -2 and 2, got %v", p.FrequencyPenalty))
	}
	if c.VerifyTimeout < 0 || c.ChatTimeout < 0 || c.VerifyCacheTTL < 0 {
		errs = append(errs, errors.New("timeouts and TTLs must not be negative"))
	}

	return errors.Join(errs...)
}

type Manager struct {
	baseDir     string
	configValue atomic.Value
}

func NewManager(baseDir string) *Manager {
	return &Manager{baseDir: baseDir}
}

func (m *Manager) jsonPath() string { return filepath.Join(m.baseDir, DefaultConfigFilename) }
func (m *Manager) yamlPath() string { return filepath.Join(m.baseDir, DefaultYAMLFilename) }

// Load reads config.yaml, or config.json when no YAML file exists, then
// applies the environment overlay and defaults.
func (m *Manager) Load() (*Config, error) {
	cfg := newFileConfig()

	switch {
	case fileExists(m.yamlPath()):
		data, err := os.ReadFile(m.yamlPath())
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal yaml config: %w", err)
		}
	case fileExists(m.jsonPath()):
		data, err := os.ReadFile(m.jsonPath())
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	default:
		return nil, fmt.Errorf("read config file: %w", os.ErrNotExist)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.applyDefaults()

	m.configValue.Store(&cfg)
	return &cfg, nil
}

// LoadOrDefault is Load, except a missing file yields defaults plus the
// environment overlay.
func (m *Manager) LoadOrDefault() (*Config, error) {
	cfg, err := m.Load()
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg = &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.applyDefaults()
	m.configValue.Store(cfg)
	return cfg, nil
}

func (m *Manager) Get() *Config {
	if v := m.configValue.Load(); v != nil {
		return v.(*Config)
	}

	cfg, err := m.LoadOrDefault()
	if err != nil {
		return Default()
	}
	return cfg
}

// Save writes YAML. An existing JSON file is left in place but is no
// longer read.
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(m.baseDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(m.yamlPath(), data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	m.configValue.Store(cfg)
	return nil
}

// GetPath returns the file Load reads, or the YAML path when none exists.
func (m *Manager) GetPath() string {
	if !fileExists(m.yamlPath()) && fileExists(m.jsonPath()) {
		return m.jsonPath()
	}
	return m.yamlPath()
}

func (m *Manager) Exists() bool {
	return fileExists(m.yamlPath()) || fileExists(m.jsonPath())
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
