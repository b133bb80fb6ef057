package providers

import (
	"fmt"
	"strings"
)

// Kind identifies an upstream LLM vendor.
type Kind string

const (
	OpenAI     Kind = "openai"
	DeepSeek   Kind = "deepseek"
	OpenRouter Kind = "openrouter"
)

// Kinds returns every supported provider in a stable order.
func Kinds() []Kind {
	return []Kind{OpenAI, DeepSeek, OpenRouter}
}

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case OpenAI, DeepSeek, OpenRouter:
		return k, nil
	default:
		return "", fmt.Errorf("unknown provider %q", s)
	}
}

// Valid reports whether k is one of the canonical lowercase kinds. Use
// ParseKind to accept user input in any case.
func (k Kind) Valid() bool {
	switch k {
	case OpenAI, DeepSeek, OpenRouter:
		return true
	default:
		return false
	}
}

// DisplayName is the vendor name used as a prefix in user-facing errors.
func (k Kind) DisplayName() string {
	switch k {
	case OpenAI:
		return "OpenAI"
	case DeepSeek:
		return "DeepSeek"
	case OpenRouter:
		return "OpenRouter"
	default:
		return string(k)
	}
}

func (k Kind) String() string { return string(k) }
