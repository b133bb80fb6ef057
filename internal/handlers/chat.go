package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Davincible/ecoswitch-go/internal/chat"
	"github.com/Davincible/ecoswitch-go/internal/providers"
	"github.com/Davincible/ecoswitch-go/internal/router"
)

// ChatService is implemented by *chat.Service.
type ChatService interface {
	Send(ctx context.Context, req chat.SendRequest) (*chat.SendResult, error)
	Complete(ctx context.Context, req chat.CompleteRequest) (*chat.CompleteResult, error)
	Settings() chat.Settings
}

type ChatHandler struct {
	svc      ChatService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewChatHandler(svc ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		svc:      svc,
		validate: newValidator(),
		logger:   logger,
	}
}

// sampling overrides the stored parameters field by field.
type sampling struct {
	Temperature      *float32 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens        *int     `json:"max_tokens,omitempty" validate:"omitempty,gte=1,lte=4096"`
	PresencePenalty  *float32 `json:"presence_penalty,omitempty" validate:"omitempty,gte=-2,lte=2"`
	FrequencyPenalty *float32 `json:"frequency_penalty,omitempty" validate:"omitempty,gte=-2,lte=2"`
	SystemPrompt     *string  `json:"system_prompt,omitempty"`
}

func (s sampling) apply(p providers.Parameters) providers.Parameters {
	if s.Temperature != nil {
		p.Temperature = *s.Temperature
	}
	if s.MaxTokens != nil {
		p.MaxTokens = *s.MaxTokens
	}
	if s.PresencePenalty != nil {
		p.PresencePenalty = *s.PresencePenalty
	}
	if s.FrequencyPenalty != nil {
		p.FrequencyPenalty = *s.FrequencyPenalty
	}
	if s.SystemPrompt != nil {
		p.SystemPrompt = *s.SystemPrompt
	}
	return p
}

type chatRequest struct {
	APIKey   string              `json:"apiKey"`
	Model    string              `json:"model"`
	Provider string              `json:"provider" validate:"omitempty,oneof=openai deepseek openrouter"`
	Messages []providers.Message `json:"messages" validate:"required,min=1"`
	Image    string              `json:"image,omitempty"`
	sampling
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionChoice struct {
	Index        int               `json:"index"`
	Message      completionMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

type completionResponse struct {
	ID       string             `json:"id"`
	Object   string             `json:"object"`
	Created  int64              `json:"created"`
	Model    string             `json:"model"`
	Choices  []completionChoice `json:"choices"`
	Provider providers.Kind     `json:"provider"`
	Routing  router.Decision    `json:"routing"`
}

// Chat serves POST /api/chat: a stateless completion over the supplied
// message list, answered in the chat-completions shape.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	messages := req.Messages
	if img := strings.TrimSpace(req.Image); img != "" {
		messages = attachImage(messages, img)
	}

	res, err := h.svc.Complete(r.Context(), chat.CompleteRequest{
		Provider:   providers.Kind(req.Provider),
		Model:      req.Model,
		Credential: req.APIKey,
		Messages:   messages,
		Params:     req.sampling.apply(h.svc.Settings().Parameters),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, toCompletion(res))
}

func toCompletion(res *chat.CompleteResult) completionResponse {
	out := completionResponse{
		Object:   "chat.completion",
		Model:    res.Message.Model,
		Provider: res.Message.Provider,
		Routing:  res.Decision,
	}
	finish := "stop"
	if res.Raw != nil {
		out.ID = res.Raw.ID
		out.Created = res.Raw.Created
		if len(res.Raw.Choices) > 0 && res.Raw.Choices[0].FinishReason != "" {
			finish = res.Raw.Choices[0].FinishReason
		}
	}
	if out.ID == "" {
		out.ID = "chatcmpl-" + uuid.NewString()
	}
	if out.Created == 0 {
		out.Created = time.Now().Unix()
	}
	out.Choices = []completionChoice{{
		Index:        0,
		Message:      completionMessage{Role: res.Message.Role, Content: res.Message.Content},
		FinishReason: finish,
	}}
	return out
}

// attachImage adds the image to the last user message, turning its
// content into a text plus image list.
func attachImage(messages []providers.Message, image string) []providers.Message {
	out := make([]providers.Message, len(messages))
	copy(out, messages)

	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Role != providers.RoleUser {
			continue
		}
		var blocks []providers.ContentBlock
		for _, b := range out[i].Content.Blocks() {
			if b.Type == providers.ContentTypeText && strings.TrimSpace(b.Text) == "" {
				continue
			}
			blocks = append(blocks, b)
		}
		blocks = append(blocks, providers.ImageBlock(image))
		out[i].Content = providers.ListContent(blocks...)
		return out
	}
	return append(out, providers.Message{Role: providers.RoleUser, Content: providers.ListContent(providers.ImageBlock(image))})
}

type sendRequest struct {
	ConversationID int64    `json:"conversation_id,omitempty" validate:"gte=0"`
	Prompt         string   `json:"prompt"`
	Image          string   `json:"image,omitempty"`
	Model          string   `json:"model,omitempty"`
	Provider       string   `json:"provider,omitempty" validate:"omitempty,oneof=openai deepseek openrouter"`
	Keys           keySet   `json:"keys"`
	Parameters     sampling `json:"parameters"`
}

// Send serves POST /api/send: a prompt inside a stored conversation.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	params := req.Parameters.apply(h.svc.Settings().Parameters)
	res, err := h.svc.Send(r.Context(), chat.SendRequest{
		ConversationID: req.ConversationID,
		Prompt:         req.Prompt,
		Image:          req.Image,
		Keys:           req.Keys.toMap(),
		Model:          req.Model,
		Provider:       providers.Kind(req.Provider),
		Params:         &params,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, res)
}
