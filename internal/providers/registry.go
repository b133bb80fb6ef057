package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Request is one chat completion call.
type Request struct {
	Credential string
	Model      string
	Messages   []Message
	Params     Parameters
}

// Adapter sends a single non-retried completion to one provider.
type Adapter interface {
	Kind() Kind
	Send(ctx context.Context, req Request) (*RawResponse, error)
}

// Registry manages adapter instances
type Registry struct {
	adapters map[Kind]Adapter
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[Kind]Adapter),
	}
}

// Register adds an adapter, replacing any previous one for the same kind.
func (r *Registry) Register(adapter Adapter) {
	r.adapters[adapter.Kind()] = adapter
}

func (r *Registry) Get(kind Kind) (Adapter, bool) {
	adapter, exists := r.adapters[kind]
	return adapter, exists
}

// List returns registered kinds in the order of Kinds().
func (r *Registry) List() []Kind {
	kinds := make([]Kind, 0, len(r.adapters))
	for _, k := range Kinds() {
		if _, ok := r.adapters[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// KindForURL maps a well-known API base URL to its provider.
func KindForURL(apiBase string) (Kind, error) {
	u, err := url.Parse(apiBase)
	if err != nil {
		return "", fmt.Errorf("invalid API base URL: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid API base URL: %q has no host", apiBase)
	}

	domain := strings.ToLower(u.Hostname())

	domainKindMap := map[string]Kind{
		"openrouter.ai":     OpenRouter,
		"api.openrouter.ai": OpenRouter,
		"api.openai.com":    OpenAI,
		"openai.com":        OpenAI,
		"api.deepseek.com":  DeepSeek,
		"deepseek.com":      DeepSeek,
	}

	if kind, exists := domainKindMap[domain]; exists {
		return kind, nil
	}

	return "", fmt.Errorf("no provider found for domain: %s", domain)
}
