// Package credentials checks provider API keys, first by shape and then
// against the provider itself.
package credentials

import (
	"net/http"
	"strings"

	"github.com/Davincible/ecoswitch-go/internal/providers"
)

const (
	openAIPrefix     = "sk-"
	openAIMinLen     = 51
	deepSeekPrefix   = "sk-"
	deepSeekMinLen   = 32
	openRouterPrefix = "sk-or-"
)

// FormatValid reports whether key has the shape the provider issues. It
// never touches the network.
func FormatValid(kind providers.Kind, key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	switch kind {
	case providers.OpenAI:
		return strings.HasPrefix(key, openAIPrefix) && len(key) >= openAIMinLen
	case providers.DeepSeek:
		return strings.HasPrefix(key, deepSeekPrefix) && len(key) >= deepSeekMinLen
	case providers.OpenRouter:
		return strings.HasPrefix(key, openRouterPrefix)
	default:
		return false
	}
}

// CheckFormat is FormatValid with an explanation for callers that surface it.
func CheckFormat(kind providers.Kind, key string) error {
	if FormatValid(kind, key) {
		return nil
	}
	if strings.TrimSpace(key) == "" {
		return providers.NewError(providers.ErrInvalidCredentialFormat, kind, http.StatusBadRequest,
			"%s API key is required", kind.DisplayName())
	}

	var hint string
	switch kind {
	case providers.OpenAI:
		hint = "OpenAI keys start with \"sk-\" and are at least 51 characters long"
	case providers.DeepSeek:
		hint = "DeepSeek keys start with \"sk-\" and are at least 32 characters long"
	case providers.OpenRouter:
		hint = "OpenRouter keys start with \"sk-or-\""
	default:
		hint = "unknown provider"
	}
	return providers.NewError(providers.ErrInvalidCredentialFormat, kind, http.StatusBadRequest,
		"Invalid %s API key format: %s", kind.DisplayName(), hint)
}

// Mask hides all but the edges of a key for display.
func Mask(key string) string {
	key = strings.TrimSpace(key)
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
