package router

import (
	"slices"
	"strings"

	"github.com/Davincible/ecoswitch-go/internal/providers"
)

// ModelKind is the family a model identifier belongs to.
type ModelKind int

const (
	UnknownModel ModelKind = iota
	OpenAIModel
	DeepSeekModel
	OpenRouterModel
)

func (k ModelKind) String() string {
	switch k {
	case OpenAIModel:
		return "openai_model"
	case DeepSeekModel:
		return "deepseek_model"
	case OpenRouterModel:
		return "openrouter_model"
	default:
		return "unknown_model"
	}
}

// Provider returns the provider serving the family, or "" when unknown.
func (k ModelKind) Provider() providers.Kind {
	switch k {
	case OpenAIModel:
		return providers.OpenAI
	case DeepSeekModel:
		return providers.DeepSeek
	case OpenRouterModel:
		return providers.OpenRouter
	default:
		return ""
	}
}

// ModelClass is the classified form of a requested model string.
type ModelClass struct {
	Kind  ModelKind
	Model string
}

const (
	VisionModel = "gpt-4o"

	// vendorSeparator marks OpenRouter's vendor/model namespace.
	vendorSeparator = "/"
)

var (
	openAIModels   = []string{"gpt-3.5-turbo", "gpt-4o", "gpt-4-turbo", "gpt-4"}
	deepSeekModels = []string{"deepseek-chat", "deepseek-coder", "deepseek-llm-67b-chat"}

	// openAIAliases are requested names sent upstream under another id.
	openAIAliases = map[string]string{"gpt-4": "gpt-4o"}
)

// OpenAIModels lists the OpenAI ids offered to clients.
func OpenAIModels() []string { return slices.Clone(openAIModels[:3]) }

// DeepSeekModels lists the DeepSeek ids offered to clients.
func DeepSeekModels() []string { return slices.Clone(deepSeekModels) }

// Classify maps a model string to its family. It looks only at the
// string; callers resolve UnknownModel against the requested provider.
func Classify(model string) ModelClass {
	m := strings.TrimSpace(model)
	switch {
	case strings.Contains(m, vendorSeparator):
		return ModelClass{Kind: OpenRouterModel, Model: m}
	case slices.Contains(openAIModels, m):
		return ModelClass{Kind: OpenAIModel, Model: m}
	case slices.Contains(deepSeekModels, m):
		return ModelClass{Kind: DeepSeekModel, Model: m}
	default:
		return ModelClass{Kind: UnknownModel, Model: m}
	}
}
