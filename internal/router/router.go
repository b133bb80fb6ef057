// Package router decides which provider and model serve a prompt.
//
// Route is a pure function: it performs no I/O and never calls an
// adapter. Credential validity and server-side availability are passed in
// by the caller.
package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Davincible/ecoswitch-go/internal/providers"
)

// CredentialState describes one provider's credential as seen by the caller.
type CredentialState struct {
	Present bool `json:"present"`
	Valid   bool `json:"valid"`
}

// Usable reports whether the credential may be sent upstream.
func (c CredentialState) Usable() bool { return c.Present && c.Valid }

type Input struct {
	RequestedModel    string
	RequestedProvider providers.Kind
	HasImage          bool
	Credentials       map[providers.Kind]CredentialState

	// OpenRouterServerAvailable is true when the process-wide OpenRouter
	// credential verified successfully.
	OpenRouterServerAvailable bool
}

func (in Input) credential(k providers.Kind) CredentialState {
	return in.Credentials[k]
}

// Rule names the branch that produced a decision.
type Rule string

const (
	RuleRequested      Rule = "requested"
	RuleModelInference Rule = "model_inference"
	RuleImageOverride  Rule = "image_override"
	RuleFallback       Rule = "openrouter_fallback"
)

type Decision struct {
	RequestedProvider providers.Kind `json:"requested_provider"`
	RequestedModel    string         `json:"requested_model"`
	EffectiveProvider providers.Kind `json:"effective_provider"`
	EffectiveModel    string         `json:"effective_model"`
	Rule              Rule           `json:"rule"`
	Reason            string         `json:"reason"`

	// ProviderOverridden is set when the model string contradicted the
	// explicitly requested provider and won.
	ProviderOverridden bool `json:"provider_overridden,omitempty"`
}

// DefaultModel is used when a request names a provider but no model.
func DefaultModel(k providers.Kind) string {
	switch k {
	case providers.OpenAI:
		return "gpt-3.5-turbo"
	case providers.DeepSeek:
		return "deepseek-chat"
	default:
		return DefaultOpenRouterModel
	}
}

// Route applies, in order: provider inference from the model string, the
// image override, the per-provider credential gate, and OpenRouter model
// normalization. OpenRouter is the only fallback target.
func Route(in Input) (Decision, error) {
	d := Decision{
		RequestedProvider: in.RequestedProvider,
		RequestedModel:    in.RequestedModel,
		Rule:              RuleRequested,
	}
	var reasons []string

	// Unrecognised names stay as given; they only matter when the model
	// string cannot name a provider itself.
	requested := in.RequestedProvider
	if kind, err := providers.ParseKind(string(requested)); err == nil {
		requested = kind
		d.RequestedProvider = kind
	}

	class := Classify(in.RequestedModel)
	provider := requested
	undetermined := false

	switch class.Kind {
	case OpenAIModel, DeepSeekModel, OpenRouterModel:
		inferred := class.Kind.Provider()
		if inferred != requested {
			d.Rule = RuleModelInference
			d.ProviderOverridden = requested != ""
			reasons = append(reasons, fmt.Sprintf("model %q implies provider %s", class.Model, inferred))
		}
		provider = inferred
	case UnknownModel:
		// Decided after the image override, which needs no provider.
		undetermined = !provider.Valid()
	}

	if in.HasImage {
		if !in.credential(providers.OpenAI).Usable() {
			return d, providers.NewError(providers.ErrProviderUnavailable, providers.OpenAI, http.StatusUnprocessableEntity,
				"Image Error: image analysis requires a valid OpenAI credential since other providers don't support images.")
		}
		d.EffectiveProvider = providers.OpenAI
		d.EffectiveModel = VisionModel
		d.Rule = RuleImageOverride
		reasons = append(reasons, "image attachment forces openai/"+VisionModel)
		d.Reason = strings.Join(reasons, "; ")
		return d, nil
	}

	if undetermined {
		return d, undeterminedError(in.RequestedModel)
	}

	openRouterReady := in.credential(providers.OpenRouter).Usable() || in.OpenRouterServerAvailable

	switch provider {
	case providers.OpenAI, providers.DeepSeek:
		if in.credential(provider).Usable() {
			d.EffectiveProvider = provider
			d.EffectiveModel = directModel(provider, class.Model, &reasons)
			break
		}
		if !openRouterReady {
			return d, missingCredentialError(provider)
		}
		d.EffectiveProvider = providers.OpenRouter
		d.EffectiveModel = DefaultOpenRouterModel
		d.Rule = RuleFallback
		reasons = append(reasons, fmt.Sprintf("%s credential missing or invalid, falling back to openrouter", provider))

	case providers.OpenRouter:
		if !openRouterReady {
			return d, providers.NewError(providers.ErrNoProviderAvailable, providers.OpenRouter, http.StatusUnprocessableEntity,
				"OpenRouter Error: No valid OpenRouter API key available. Please provide a valid OpenRouter API key or try another API provider.")
		}
		d.EffectiveProvider = providers.OpenRouter
		d.EffectiveModel = NormalizeOpenRouterModel(class.Model)
		if d.EffectiveModel != class.Model {
			reasons = append(reasons, fmt.Sprintf("openrouter model %q mapped to %q", class.Model, d.EffectiveModel))
		}

	default:
		return d, undeterminedError(in.RequestedModel)
	}

	if len(reasons) == 0 {
		reasons = append(reasons, fmt.Sprintf("requested %s/%s", d.EffectiveProvider, d.EffectiveModel))
	}
	d.Reason = strings.Join(reasons, "; ")
	return d, nil
}

func directModel(provider providers.Kind, model string, reasons *[]string) string {
	if model == "" {
		model = DefaultModel(provider)
		*reasons = append(*reasons, "no model requested, using "+model)
	}
	if provider == providers.OpenAI {
		if alias, ok := openAIAliases[model]; ok {
			*reasons = append(*reasons, fmt.Sprintf("model %s sent as %s", model, alias))
			return alias
		}
	}
	return model
}

func undeterminedError(model string) error {
	return providers.NewError(providers.ErrNoProviderAvailable, "", http.StatusUnprocessableEntity,
		"No provider could be determined for model %q. Choose openai, deepseek or openrouter.", model)
}

func missingCredentialError(provider providers.Kind) error {
	name := provider.DisplayName()
	return providers.NewError(providers.ErrNoProviderAvailable, provider, http.StatusUnprocessableEntity,
		"%s Error: Valid %s API key required for this model. Please enter a valid %s API key or use OpenRouter AI instead.",
		name, name, name)
}
