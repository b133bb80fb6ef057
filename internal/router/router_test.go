package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Davincible/ecoswitch-go/internal/providers"
)

func creds(valid ...providers.Kind) map[providers.Kind]CredentialState {
	m := make(map[providers.Kind]CredentialState)
	for _, k := range valid {
		m[k] = CredentialState{Present: true, Valid: true}
	}
	return m
}

func TestClassify(t *testing.T) {
	tests := []struct {
		model string
		kind  ModelKind
	}{
		{"gpt-4o", OpenAIModel},
		{"gpt-3.5-turbo", OpenAIModel},
		{"gpt-4", OpenAIModel},
		{"deepseek-chat", DeepSeekModel},
		{"deepseek-llm-67b-chat", DeepSeekModel},
		{"deepseek/deepseek-v3-base:free", OpenRouterModel},
		{"meta-llama/llama-3.3-70b-instruct:free", OpenRouterModel},
		{"claude-3-opus", UnknownModel},
		{"", UnknownModel},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.kind, Classify(tt.model).Kind)
		})
	}
}

func TestRoute_SlashAlwaysMeansOpenRouter(t *testing.T) {
	models := []string{"deepseek/deepseek-v3-base:free", "openai/gpt-4o", "a/b", "meta-llama/llama-3.3-70b-instruct:free"}
	for _, model := range models {
		for _, requested := range providers.Kinds() {
			d, err := Route(Input{
				RequestedModel:            model,
				RequestedProvider:         requested,
				Credentials:               creds(providers.OpenAI, providers.DeepSeek),
				OpenRouterServerAvailable: true,
			})
			require.NoError(t, err)
			assert.Equal(t, providers.OpenRouter, d.EffectiveProvider, "model %s requested as %s", model, requested)
			assert.Equal(t, requested != providers.OpenRouter, d.ProviderOverridden)
		}
	}
}

func TestRoute_ImageForcesVisionModel(t *testing.T) {
	for _, model := range []string{"deepseek-chat", "gpt-3.5-turbo", "deepseek/deepseek-v3-base:free", ""} {
		d, err := Route(Input{
			RequestedModel:    model,
			RequestedProvider: providers.DeepSeek,
			HasImage:          true,
			Credentials:       creds(providers.OpenAI, providers.DeepSeek, providers.OpenRouter),
		})
		require.NoError(t, err)
		assert.Equal(t, providers.OpenAI, d.EffectiveProvider)
		assert.Equal(t, "gpt-4o", d.EffectiveModel)
		assert.Equal(t, RuleImageOverride, d.Rule)
	}
}

func TestRoute_ImageWithoutOpenAIFails(t *testing.T) {
	_, err := Route(Input{
		RequestedModel:            "deepseek/deepseek-v3-base:free",
		RequestedProvider:         providers.OpenRouter,
		HasImage:                  true,
		Credentials:               creds(providers.DeepSeek, providers.OpenRouter),
		OpenRouterServerAvailable: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, providers.ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "image analysis requires a valid OpenAI credential")
}

func TestRoute_OpenAIFallsBackToOpenRouter(t *testing.T) {
	d, err := Route(Input{
		RequestedModel:    "gpt-4o",
		RequestedProvider: providers.OpenAI,
		Credentials: map[providers.Kind]CredentialState{
			providers.OpenAI: {Present: true, Valid: false},
		},
		OpenRouterServerAvailable: true,
	})
	require.NoError(t, err)
	assert.Equal(t, providers.OpenRouter, d.EffectiveProvider)
	assert.Equal(t, DefaultOpenRouterModel, d.EffectiveModel)
	assert.Equal(t, RuleFallback, d.Rule)
}

func TestRoute_DeepSeekFallbackNeedsOpenRouter(t *testing.T) {
	d, err := Route(Input{
		RequestedModel:    "deepseek-coder",
		RequestedProvider: providers.DeepSeek,
		Credentials:       creds(providers.OpenRouter, providers.OpenAI),
	})
	require.NoError(t, err)
	assert.Equal(t, providers.OpenRouter, d.EffectiveProvider, "never cross-fallback to openai")

	_, err = Route(Input{
		RequestedModel:    "deepseek-coder",
		RequestedProvider: providers.DeepSeek,
		Credentials:       creds(providers.OpenAI),
	})
	assert.ErrorIs(t, err, providers.ErrNoProviderAvailable)
	assert.Contains(t, err.Error(), "Valid DeepSeek API key required")
}

func TestRoute_DeepSeekDirect(t *testing.T) {
	d, err := Route(Input{
		RequestedModel:    "deepseek-chat",
		RequestedProvider: providers.DeepSeek,
		Credentials:       creds(providers.DeepSeek),
	})
	require.NoError(t, err)
	assert.Equal(t, providers.DeepSeek, d.EffectiveProvider)
	assert.Equal(t, "deepseek-chat", d.EffectiveModel)
	assert.Equal(t, RuleRequested, d.Rule)
	assert.False(t, d.ProviderOverridden)
}

func TestRoute_NoCredentialsAnywhere(t *testing.T) {
	for _, requested := range providers.Kinds() {
		_, err := Route(Input{
			RequestedModel:    DefaultModel(requested),
			RequestedProvider: requested,
			Credentials: map[providers.Kind]CredentialState{
				providers.OpenAI:     {Present: true},
				providers.OpenRouter: {Present: false, Valid: true},
			},
		})
		assert.ErrorIs(t, err, providers.ErrNoProviderAvailable, requested.String())
	}
}

func TestRoute_OpenRouterUserKeyOrServer(t *testing.T) {
	in := Input{RequestedModel: "deepseek-v3-base", RequestedProvider: providers.OpenRouter}

	_, err := Route(in)
	assert.ErrorIs(t, err, providers.ErrNoProviderAvailable)

	in.Credentials = creds(providers.OpenRouter)
	d, err := Route(in)
	require.NoError(t, err)
	assert.Equal(t, "deepseek/deepseek-v3-base:free", d.EffectiveModel)

	in.Credentials = nil
	in.OpenRouterServerAvailable = true
	d, err = Route(in)
	require.NoError(t, err)
	assert.Equal(t, providers.OpenRouter, d.EffectiveProvider)
}

func TestRoute_OpenAIAlias(t *testing.T) {
	d, err := Route(Input{
		RequestedModel:    "gpt-4",
		RequestedProvider: providers.OpenAI,
		Credentials:       creds(providers.OpenAI),
	})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", d.EffectiveModel)
	assert.Contains(t, d.Reason, "gpt-4 sent as gpt-4o")
}

func TestRoute_UnknownModelUsesRequestedProvider(t *testing.T) {
	d, err := Route(Input{
		RequestedModel:    "gpt-4o-mini",
		RequestedProvider: providers.OpenAI,
		Credentials:       creds(providers.OpenAI),
	})
	require.NoError(t, err)
	assert.Equal(t, providers.OpenAI, d.EffectiveProvider)
	assert.Equal(t, "gpt-4o-mini", d.EffectiveModel)

	_, err = Route(Input{RequestedModel: "mystery"})
	assert.ErrorIs(t, err, providers.ErrNoProviderAvailable)
}

func TestNormalizeOpenRouterModel(t *testing.T) {
	tests := map[string]string{
		"deepseek/deepseek-v3-base:free":         "deepseek/deepseek-v3-base:free",
		"meta-llama/llama-3.3-70b-instruct:free": "meta-llama/llama-3.3-70b-instruct:free",
		"deepseek-v3-base":                       "deepseek/deepseek-v3-base:free",
		"deepseek-v3-base:free":                  "deepseek/deepseek-v3-base:free",
		"deepseek-v3-unknown":                    DefaultOpenRouterModel,
		"anthropic/claude-3-opus":                DefaultOpenRouterModel,
		"":                                       DefaultOpenRouterModel,
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeOpenRouterModel(in), in)
	}
}

func TestRoute_ProviderNameIsCaseInsensitive(t *testing.T) {
	d, err := Route(Input{
		RequestedModel:            "some-model",
		RequestedProvider:         "OpenRouter",
		OpenRouterServerAvailable: true,
	})
	require.NoError(t, err)
	assert.Equal(t, providers.OpenRouter, d.RequestedProvider)
	assert.Equal(t, providers.OpenRouter, d.EffectiveProvider)
	assert.Equal(t, DefaultOpenRouterModel, d.EffectiveModel)

	d, err = Route(Input{
		RequestedProvider: "DeepSeek",
		Credentials:       creds(providers.DeepSeek),
	})
	require.NoError(t, err)
	assert.Equal(t, providers.DeepSeek, d.EffectiveProvider)
	assert.Equal(t, "deepseek-chat", d.EffectiveModel)
}

func TestRoute_UnrecognisedProviderIsAnError(t *testing.T) {
	for _, requested := range []providers.Kind{"anthropic", ""} {
		d, err := Route(Input{
			RequestedModel:            "some-model",
			RequestedProvider:         requested,
			Credentials:               creds(providers.OpenAI, providers.DeepSeek, providers.OpenRouter),
			OpenRouterServerAvailable: true,
		})
		require.Error(t, err, "provider %q", requested)
		assert.ErrorIs(t, err, providers.ErrNoProviderAvailable)
		assert.Empty(t, d.EffectiveProvider)
	}

	d, err := Route(Input{
		RequestedModel:    "gpt-4o",
		RequestedProvider: "anthropic",
		Credentials:       creds(providers.OpenAI),
	})
	require.NoError(t, err, "a known model still names its provider")
	assert.Equal(t, providers.OpenAI, d.EffectiveProvider)
	assert.True(t, d.ProviderOverridden)
}

func TestRoute_ImageOverrideNeedsNoProvider(t *testing.T) {
	d, err := Route(Input{
		RequestedModel: "some-model",
		HasImage:       true,
		Credentials:    creds(providers.OpenAI),
	})
	require.NoError(t, err)
	assert.Equal(t, providers.OpenAI, d.EffectiveProvider)
	assert.Equal(t, VisionModel, d.EffectiveModel)
	assert.Equal(t, RuleImageOverride, d.Rule)
}
