package chat

import (
	"errors"
	"fmt"

	"github.com/Davincible/ecoswitch-go/internal/credentials"
	"github.com/Davincible/ecoswitch-go/internal/providers"
	"github.com/Davincible/ecoswitch-go/internal/router"
)

// Settings are the server-side preferences used when a request leaves
// provider, model or parameters unset.
type Settings struct {
	Provider   providers.Kind       `json:"provider" yaml:"provider"`
	Model      string               `json:"model" yaml:"model"`
	AutoSave   bool                 `json:"auto_save" yaml:"auto_save"`
	Parameters providers.Parameters `json:"parameters" yaml:"parameters"`
}

func DefaultSettings() Settings {
	return Settings{
		Provider:   providers.OpenAI,
		Model:      router.DefaultModel(providers.OpenAI),
		AutoSave:   true,
		Parameters: providers.DefaultParameters(),
	}
}

// SettingsPatch is a partial update. Nil fields are left unchanged.
type SettingsPatch struct {
	Provider         *providers.Kind `json:"provider,omitempty"`
	Model            *string         `json:"model,omitempty"`
	AutoSave         *bool           `json:"auto_save,omitempty"`
	Temperature      *float32        `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens        *int            `json:"max_tokens,omitempty" validate:"omitempty,gte=1,lte=4096"`
	PresencePenalty  *float32        `json:"presence_penalty,omitempty" validate:"omitempty,gte=-2,lte=2"`
	FrequencyPenalty *float32        `json:"frequency_penalty,omitempty" validate:"omitempty,gte=-2,lte=2"`
	SystemPrompt     *string         `json:"system_prompt,omitempty"`
}

// Settings returns a copy of the current settings.
func (s *Service) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// ApplySettingsUpdate switches the preferred provider after a successful
// credential validation.
func (s *Service) ApplySettingsUpdate(ev *credentials.SettingsUpdate) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev == nil || !ev.Provider.Valid() {
		return s.settings
	}
	s.settings.Provider = ev.Provider
	if ev.Model != "" {
		s.settings.Model = ev.Model
	}
	s.logger.Info("Preferred provider updated", "provider", s.settings.Provider, "model", s.settings.Model)
	return s.settings
}

// UpdateSettings applies a partial update and returns the result.
func (s *Service) UpdateSettings(p SettingsPatch) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	if p.Provider != nil {
		kind, err := providers.ParseKind(string(*p.Provider))
		if err != nil {
			return s.settings, fmt.Errorf("update settings: %w", ErrInvalidProvider)
		}
		next.Provider = kind
	}
	if p.Model != nil {
		next.Model = *p.Model
	}
	if p.AutoSave != nil {
		next.AutoSave = *p.AutoSave
	}
	if p.Temperature != nil {
		next.Parameters.Temperature = *p.Temperature
	}
	if p.MaxTokens != nil {
		next.Parameters.MaxTokens = *p.MaxTokens
	}
	if p.PresencePenalty != nil {
		next.Parameters.PresencePenalty = *p.PresencePenalty
	}
	if p.FrequencyPenalty != nil {
		next.Parameters.FrequencyPenalty = *p.FrequencyPenalty
	}
	if p.SystemPrompt != nil {
		next.Parameters.SystemPrompt = *p.SystemPrompt
	}

	s.settings = next
	return next, nil
}

var ErrInvalidProvider = errors.New("provider must be openai, deepseek or openrouter")
