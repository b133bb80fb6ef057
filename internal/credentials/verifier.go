package credentials

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Davincible/ecoswitch-go/internal/metrics"
	"github.com/Davincible/ecoswitch-go/internal/providers"
	"github.com/Davincible/ecoswitch-go/internal/router"
)

const (
	DefaultVerifyTimeout = 5 * time.Second
	DefaultCacheTTL      = 10 * time.Minute

	// Rejections are remembered briefly so a corrected key or a recovered
	// provider is picked up quickly.
	negativeTTL = 30 * time.Second
)

// CheckFunc performs one live check. It reports false on any failure.
type CheckFunc func(ctx context.Context, key string) bool

// SettingsUpdate is emitted by a successful live validation. An empty
// Model means the current model is kept.
type SettingsUpdate struct {
	Provider providers.Kind `json:"provider"`
	Model    string         `json:"model,omitempty"`
}

type Result struct {
	Valid  bool            `json:"valid"`
	Update *SettingsUpdate `json:"settings,omitempty"`
}

// Endpoints locates the list-models APIs used for live checks.
type Endpoints struct {
	OpenAIBaseURL     string
	DeepSeekBaseURL   string
	OpenRouterBaseURL string
	OpenRouterReferer string
	OpenRouterTitle   string
}

// DefaultEndpoints returns the public provider APIs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		OpenAIBaseURL:     providers.DefaultOpenAIBaseURL,
		DeepSeekBaseURL:   providers.DefaultDeepSeekBaseURL,
		OpenRouterBaseURL: providers.DefaultOpenRouterBaseURL,
		OpenRouterReferer: providers.DefaultOpenRouterReferer,
		OpenRouterTitle:   providers.DefaultOpenRouterTitle,
	}
}

// Verifier runs format and live checks and caches the outcome.
type Verifier struct {
	checks    map[providers.Kind]CheckFunc
	cache     Cache
	timeout   time.Duration
	ttl       time.Duration
	serverKey string
	endpoints Endpoints
	client    *http.Client
	logger    *slog.Logger
}

type Option func(*Verifier)

func WithCache(c Cache) Option {
	return func(v *Verifier) { v.cache = c }
}

// WithTimeout bounds each live check.
func WithTimeout(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithCacheTTL sets how long a successful check is trusted. Zero disables caching.
func WithCacheTTL(d time.Duration) Option {
	return func(v *Verifier) { v.ttl = d }
}

// WithServerKey sets the process-wide OpenRouter credential checked by VerifyServer.
func WithServerKey(key string) Option {
	return func(v *Verifier) { v.serverKey = strings.TrimSpace(key) }
}

func WithEndpoints(e Endpoints) Option {
	return func(v *Verifier) { v.endpoints = e }
}

func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) { v.client = c }
}

// WithChecker replaces the live check for one provider.
func WithChecker(kind providers.Kind, fn CheckFunc) Option {
	return func(v *Verifier) { v.checks[kind] = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) { v.logger = l }
}

func NewVerifier(opts ...Option) *Verifier {
	v := &Verifier{
		checks:    make(map[providers.Kind]CheckFunc),
		cache:     NewMemoryCache(),
		timeout:   DefaultVerifyTimeout,
		ttl:       DefaultCacheTTL,
		endpoints: DefaultEndpoints(),
		client:    http.DefaultClient,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}

	defaults := map[providers.Kind]CheckFunc{
		providers.OpenAI:     openAICheck(v.endpoints.OpenAIBaseURL, v.client, true),
		providers.DeepSeek:   openAICheck(v.endpoints.DeepSeekBaseURL, v.client, false),
		providers.OpenRouter: openRouterCheck(v.endpoints, v.client),
	}
	for kind, fn := range defaults {
		if _, ok := v.checks[kind]; !ok {
			v.checks[kind] = fn
		}
	}
	return v
}

// HasServerKey reports whether a process-wide OpenRouter credential is configured.
func (v *Verifier) HasServerKey() bool { return v.serverKey != "" }

// Verify reports whether key is well formed and accepted by the provider.
// Malformed keys never reach the network.
func (v *Verifier) Verify(ctx context.Context, kind providers.Kind, key string) bool {
	key = strings.TrimSpace(key)
	if !FormatValid(kind, key) {
		return false
	}

	check, ok := v.checks[kind]
	if !ok {
		return false
	}

	if valid, found, err := v.cache.Get(ctx, kind, key); err != nil {
		v.logger.Debug("Verification cache read failed", "provider", kind, "error", err)
	} else if found {
		metrics.RecordVerification(string(kind), valid, "cache")
		return valid
	}

	checkCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	valid := check(checkCtx, key)
	v.logger.Debug("Credential checked",
		"provider", kind,
		"key", Mask(key),
		"valid", valid,
		"duration", time.Since(start))
	metrics.RecordVerification(string(kind), valid, "live")

	// A canceled caller says nothing about the key.
	if ctx.Err() != nil {
		return valid
	}

	ttl := v.ttl
	if !valid && ttl > negativeTTL {
		ttl = negativeTTL
	}
	if err := v.cache.Set(ctx, kind, key, valid, ttl); err != nil {
		v.logger.Debug("Verification cache write failed", "provider", kind, "error", err)
	}
	return valid
}

// Validate runs Verify and, on success, returns the settings change the
// caller should apply.
func (v *Verifier) Validate(ctx context.Context, kind providers.Kind, key string) Result {
	if !v.Verify(ctx, kind, key) {
		return Result{}
	}
	return Result{Valid: true, Update: UpdateFor(kind)}
}

// UpdateFor returns the settings change that follows a successful validation.
func UpdateFor(kind providers.Kind) *SettingsUpdate {
	switch kind {
	case providers.OpenAI, providers.DeepSeek:
		return &SettingsUpdate{Provider: kind}
	case providers.OpenRouter:
		return &SettingsUpdate{Provider: kind, Model: router.DefaultOpenRouterModel}
	default:
		return nil
	}
}

// VerifyServer checks the process-wide OpenRouter credential.
func (v *Verifier) VerifyServer(ctx context.Context) bool {
	if v.serverKey == "" {
		return false
	}
	return v.Verify(ctx, providers.OpenRouter, v.serverKey)
}

// CheckAll verifies every supplied key concurrently.
func (v *Verifier) CheckAll(ctx context.Context, keys map[providers.Kind]string) map[providers.Kind]router.CredentialState {
	states := make(map[providers.Kind]router.CredentialState, len(providers.Kinds()))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range providers.Kinds() {
		key := strings.TrimSpace(keys[kind])
		if key == "" {
			mu.Lock()
			states[kind] = router.CredentialState{}
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			valid := v.Verify(gctx, kind, key)
			mu.Lock()
			states[kind] = router.CredentialState{Present: true, Valid: valid}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return states
}

func openAICheck(baseURL string, client *http.Client, requireModels bool) CheckFunc {
	return func(ctx context.Context, key string) bool {
		list, err := providers.NewOpenAIClient(key, baseURL, client).ListModels(ctx)
		if err != nil {
			return false
		}
		return !requireModels || len(list.Models) > 0
	}
}

func openRouterCheck(e Endpoints, client *http.Client) CheckFunc {
	return func(ctx context.Context, key string) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(e.OpenRouterBaseURL, "/")+"/models", nil)
		if err != nil {
			return false
		}
		providers.SetOpenRouterHeaders(req.Header, key, e.OpenRouterReferer, e.OpenRouterTitle)

		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}
}
