package providers

import (
	"net/http"
	"strings"
	"time"
)

const (
	DefaultOpenAIBaseURL     = "https://api.openai.com/v1"
	DefaultDeepSeekBaseURL   = "https://api.deepseek.com/v1"
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

	DefaultOpenRouterReferer = "https://ecoswitch.replit.app"
	DefaultOpenRouterTitle   = "EcoSwitch AI"

	// DefaultChatTimeout bounds one completion call.
	DefaultChatTimeout = 120 * time.Second
)

type options struct {
	baseURL     string
	httpClient  *http.Client
	timeout     time.Duration
	fallbackKey string
	referer     string
	title       string
}

// Option configures an adapter.
type Option func(*options)

// WithBaseURL points the adapter at a different API root.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTimeout bounds each send. Zero disables the adapter-level bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithFallbackKey sets the process-wide OpenRouter credential used when a
// request carries none.
func WithFallbackKey(key string) Option {
	return func(o *options) { o.fallbackKey = strings.TrimSpace(key) }
}

// WithAppIdentity overrides the OpenRouter HTTP-Referer and X-Title pair.
func WithAppIdentity(referer, title string) Option {
	return func(o *options) {
		if referer != "" {
			o.referer = referer
		}
		if title != "" {
			o.title = title
		}
	}
}

func newOptions(baseURL string, opts []Option) options {
	o := options{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		timeout:    DefaultChatTimeout,
		referer:    DefaultOpenRouterReferer,
		title:      DefaultOpenRouterTitle,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
