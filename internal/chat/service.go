// Package chat runs one prompt through the full pipeline: credential
// checks, routing, a single provider call, normalization and persistence.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/Davincible/ecoswitch-go/internal/conversation"
	"github.com/Davincible/ecoswitch-go/internal/credentials"
	"github.com/Davincible/ecoswitch-go/internal/metrics"
	"github.com/Davincible/ecoswitch-go/internal/normalizer"
	"github.com/Davincible/ecoswitch-go/internal/providers"
	"github.com/Davincible/ecoswitch-go/internal/router"
)

var ErrEmptyPrompt = errors.New("prompt is empty")

// Verifier reports credential validity. *credentials.Verifier implements it.
type Verifier interface {
	CheckAll(ctx context.Context, keys map[providers.Kind]string) map[providers.Kind]router.CredentialState
	VerifyServer(ctx context.Context) bool
}

type Service struct {
	registry    *providers.Registry
	verifier    Verifier
	store       conversation.Store
	logger      *slog.Logger
	countTokens func(string) int

	mu       sync.RWMutex
	settings Settings
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithSettings sets the initial preferences.
func WithSettings(st Settings) Option {
	return func(s *Service) { s.settings = st }
}

// WithTokenCounter replaces the tiktoken prompt estimate.
func WithTokenCounter(fn func(string) int) Option {
	return func(s *Service) { s.countTokens = fn }
}

func NewService(registry *providers.Registry, verifier Verifier, store conversation.Store, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		verifier: verifier,
		store:    store,
		logger:   slog.Default(),
		settings: DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.countTokens == nil {
		s.countTokens = s.tiktokenCount
	}
	return s
}

type SendRequest struct {
	ConversationID int64
	Prompt         string
	Image          string
	Keys           map[providers.Kind]string
	Model          string
	Provider       providers.Kind
	Params         *providers.Parameters
}

type SendResult struct {
	ConversationID int64              `json:"conversation_id"`
	Message        normalizer.Message `json:"message"`
	Decision       router.Decision    `json:"routing"`
}

// Send answers a prompt inside a conversation. A routing failure is
// returned before anything is stored or sent upstream.
func (s *Service) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	prompt := strings.TrimSpace(req.Prompt)
	image := strings.TrimSpace(req.Image)
	if prompt == "" && image == "" {
		return nil, ErrEmptyPrompt
	}

	settings := s.Settings()
	model, provider := req.Model, req.Provider
	if provider == "" {
		provider = settings.Provider
		if model == "" {
			model = settings.Model
		}
	}
	params := settings.Parameters
	if req.Params != nil {
		params = *req.Params
	}

	var messages []providers.Message
	if req.ConversationID != 0 {
		conv, err := s.store.GetConversation(ctx, req.ConversationID)
		if err != nil {
			return nil, err
		}
		for _, m := range conv.Messages {
			messages = append(messages, providers.Message{Role: m.Role, Content: m.Content})
		}
	}

	userContent := userContent(prompt, image)
	messages = append(messages, providers.Message{Role: providers.RoleUser, Content: userContent})

	states := s.verifier.CheckAll(ctx, req.Keys)
	decision, err := s.route(ctx, model, provider, userContent.HasImage(), states)
	if err != nil {
		return nil, err
	}

	convID := req.ConversationID
	if convID == 0 {
		conv, err := s.store.CreateConversation(ctx, conversation.DeriveTitle(prompt), decision.EffectiveModel)
		if err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		metrics.ConversationsCreatedTotal.Inc()
		convID = conv.ID
	}

	if _, err := s.store.AppendMessage(ctx, convID, conversation.Message{
		Role:    providers.RoleUser,
		Content: userContent,
	}); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}

	_, res, err := s.call(ctx, decision, credentialFor(decision.EffectiveProvider, req.Keys, states), messages, params)
	if err != nil {
		return nil, err
	}

	// The reply is returned even when it cannot be stored.
	if _, err := s.store.AppendMessage(ctx, convID, conversation.Message{
		Role:     providers.RoleAssistant,
		Content:  providers.TextContent(res.Message.Content),
		Provider: res.Message.Provider,
		Model:    res.Message.Model,
	}); err != nil {
		s.logger.Error("Failed to save assistant message", "conversation", convID, "error", err)
	}

	return &SendResult{
		ConversationID: convID,
		Message:        res.Message,
		Decision:       decision,
	}, nil
}

type CompleteRequest struct {
	Provider providers.Kind
	Model    string
	// Credential belongs to Provider. A malformed value is rejected; an
	// empty one lets the router fall back.
	Credential string
	Messages   []providers.Message
	Params     providers.Parameters
}

type CompleteResult struct {
	Raw      *providers.RawResponse
	Message  normalizer.Message
	Decision router.Decision
}

// Complete answers a stateless message list without touching the store.
func (s *Service) Complete(ctx context.Context, req CompleteRequest) (*CompleteResult, error) {
	if len(req.Messages) == 0 {
		return nil, ErrEmptyPrompt
	}

	provider := req.Provider
	if provider == "" {
		provider = s.Settings().Provider
	}

	keys := make(map[providers.Kind]string)
	if key := strings.TrimSpace(req.Credential); key != "" {
		if err := credentials.CheckFormat(provider, key); err != nil {
			return nil, err
		}
		keys[provider] = key
	}

	hasImage := false
	for _, m := range req.Messages {
		if m.Content.HasImage() {
			hasImage = true
			break
		}
	}

	states := s.verifier.CheckAll(ctx, keys)
	decision, err := s.route(ctx, req.Model, provider, hasImage, states)
	if err != nil {
		return nil, err
	}

	raw, res, err := s.call(ctx, decision, credentialFor(decision.EffectiveProvider, keys, states), req.Messages, req.Params)
	if err != nil {
		return nil, err
	}
	return &CompleteResult{Raw: raw, Message: res.Message, Decision: decision}, nil
}

func (s *Service) route(ctx context.Context, model string, provider providers.Kind, hasImage bool, states map[providers.Kind]router.CredentialState) (router.Decision, error) {
	in := router.Input{
		RequestedModel:            model,
		RequestedProvider:         provider,
		HasImage:                  hasImage,
		Credentials:               states,
		OpenRouterServerAvailable: s.verifier.VerifyServer(ctx),
	}

	d, err := router.Route(in)
	if err != nil {
		metrics.RecordRoutingFailure(string(provider), providers.KindLabel(err))
		s.logger.Warn("Routing failed", "provider", provider, "model", model, "image", hasImage, "error", err)
		return d, err
	}

	if d.ProviderOverridden {
		s.logger.Warn("Model overrides requested provider",
			"requested_provider", d.RequestedProvider,
			"model", d.RequestedModel,
			"effective_provider", d.EffectiveProvider)
	}
	metrics.RecordRoute(string(d.EffectiveProvider), string(d.Rule))
	s.logger.Info("Routed request",
		"provider", d.EffectiveProvider,
		"model", d.EffectiveModel,
		"rule", d.Rule,
		"reason", d.Reason)
	return d, nil
}

func (s *Service) call(ctx context.Context, d router.Decision, credential string, messages []providers.Message, params providers.Parameters) (*providers.RawResponse, normalizer.Result, error) {
	adapter, ok := s.registry.Get(d.EffectiveProvider)
	if !ok {
		return nil, normalizer.Result{}, providers.NewError(providers.ErrProviderUnavailable, d.EffectiveProvider,
			http.StatusUnprocessableEntity, "%s is not configured on this server", d.EffectiveProvider.DisplayName())
	}

	tokens := s.countTokens(promptText(messages, params.SystemPrompt))
	metrics.RecordPromptTokens(string(d.EffectiveProvider), tokens)
	s.logger.Debug("Sending completion",
		"provider", d.EffectiveProvider,
		"model", d.EffectiveModel,
		"messages", len(messages),
		"prompt_tokens", tokens)

	start := time.Now()
	raw, err := adapter.Send(ctx, providers.Request{
		Credential: credential,
		Model:      d.EffectiveModel,
		Messages:   messages,
		Params:     params,
	})
	metrics.RecordProviderCall(string(d.EffectiveProvider), d.EffectiveModel, time.Since(start).Seconds())
	if err != nil {
		metrics.RecordProviderError(string(d.EffectiveProvider), providers.KindLabel(err))
		s.logger.Warn("Provider call failed", "provider", d.EffectiveProvider, "model", d.EffectiveModel, "error", err)
		return nil, normalizer.Result{}, err
	}

	res := normalizer.Normalize(raw, d.EffectiveProvider, d.EffectiveModel)
	if res.Advisory() {
		metrics.RecordAdvisory(string(d.EffectiveProvider), string(res.Outcome), string(res.Rule))
		s.logger.Warn("Reply replaced by advisory",
			"provider", d.EffectiveProvider,
			"model", res.Message.Model,
			"outcome", res.Outcome,
			"rule", res.Rule)
	}
	return raw, res, nil
}

// credentialFor returns the user key for provider only when it passed
// verification. An empty result lets OpenRouter use the server key.
func credentialFor(provider providers.Kind, keys map[providers.Kind]string, states map[providers.Kind]router.CredentialState) string {
	if !states[provider].Usable() {
		return ""
	}
	return strings.TrimSpace(keys[provider])
}

func userContent(prompt, image string) providers.Content {
	if image == "" {
		return providers.TextContent(prompt)
	}
	if prompt == "" {
		return providers.ListContent(providers.ImageBlock(image))
	}
	return providers.ListContent(providers.TextBlock(prompt), providers.ImageBlock(image))
}

func promptText(messages []providers.Message, systemPrompt string) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	for _, m := range messages {
		b.WriteString("\n")
		b.WriteString(m.Content.PlainText())
	}
	return b.String()
}

func (s *Service) tiktokenCount(text string) int {
	tke, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		s.logger.Debug("Failed to get tiktoken encoding", "error", err)
		return 0
	}
	return len(tke.Encode(text, nil, nil))
}
