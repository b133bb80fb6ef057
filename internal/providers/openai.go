package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIAdapter talks to the OpenAI chat completions API and is the only
// adapter that forwards image content.
type OpenAIAdapter struct {
	opts options
}

var _ Adapter = (*OpenAIAdapter)(nil)

func NewOpenAIAdapter(opts ...Option) *OpenAIAdapter {
	return &OpenAIAdapter{opts: newOptions(DefaultOpenAIBaseURL, opts)}
}

func (a *OpenAIAdapter) Kind() Kind { return OpenAI }

func (a *OpenAIAdapter) Send(ctx context.Context, req Request) (*RawResponse, error) {
	return sendCompatible(ctx, a.opts, OpenAI, req, true)
}

// NewOpenAIClient builds a go-openai client for an OpenAI-compatible API.
func NewOpenAIClient(key, baseURL string, httpClient *http.Client) *openai.Client {
	cfg := openai.DefaultConfig(key)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return openai.NewClientWithConfig(cfg)
}

func sendCompatible(ctx context.Context, o options, kind Kind, req Request, multimodal bool) (*RawResponse, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	client := NewOpenAIClient(req.Credential, o.baseURL, o.httpClient)

	messages := WithSystemPrompt(req.Messages, req.Params.SystemPrompt)
	chatReq := openai.ChatCompletionRequest{
		Model:            req.Model,
		Messages:         toChatMessages(messages, multimodal),
		Temperature:      wireTemperature(req.Params.Temperature),
		MaxTokens:        req.Params.MaxTokens,
		PresencePenalty:  req.Params.PresencePenalty,
		FrequencyPenalty: req.Params.FrequencyPenalty,
	}

	resp, err := client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, mapCompatibleError(kind, req.Model, err)
	}

	return fromChatResponse(resp), nil
}

// wireTemperature keeps an explicit 0 on the wire. go-openai omits a zero
// temperature, and the API would then apply its own default of 1.
func wireTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

func toChatMessages(messages []Message, multimodal bool) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{Role: normalizeRole(m.Role)}

		switch {
		case m.Content.IsText():
			msg.Content = m.Content.PlainText()
		case multimodal:
			parts := toChatParts(m.Content.Blocks())
			if len(parts) == 0 {
				msg.Content = flattenContent(m.Content)
			} else {
				msg.MultiContent = parts
			}
		default:
			msg.Content = flattenContent(m.Content)
		}

		out = append(out, msg)
	}
	return out
}

func toChatParts(blocks []ContentBlock) []openai.ChatMessagePart {
	parts := make([]openai.ChatMessagePart, 0, len(blocks))
	for _, b := range blocks {
		switch {
		case b.Type == ContentTypeText && b.Text != "":
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: b.Text,
			})
		case b.isImage():
			parts = append(parts, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: b.ImageURL.URL},
			})
		}
	}
	return parts
}

// flattenContent renders content for text-only providers. Images are
// dropped; content with no text at all is sent as its JSON encoding.
func flattenContent(c Content) string {
	if text := c.PlainText(); text != "" || c.IsText() {
		return text
	}
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return string(data)
}

func fromChatResponse(resp openai.ChatCompletionResponse) *RawResponse {
	raw := &RawResponse{
		ID:      resp.ID,
		Object:  resp.Object,
		Created: resp.Created,
		Model:   resp.Model,
		Choices: make([]RawChoice, 0, len(resp.Choices)),
	}
	for _, c := range resp.Choices {
		raw.Choices = append(raw.Choices, RawChoice{
			Index: c.Index,
			Message: &RawMessage{
				Role:    c.Message.Role,
				Content: StringContent(c.Message.Content),
			},
			FinishReason: string(c.FinishReason),
		})
	}
	return raw
}

// mapCompatibleError converts go-openai failures into the error taxonomy
// with the vendor-specific wording users see.
func mapCompatibleError(kind Kind, model string, err error) error {
	name := kind.DisplayName()

	if isTimeout(err) {
		if kind == DeepSeek {
			return NewError(ErrTimeout, kind, http.StatusGatewayTimeout,
				"DeepSeek Error: Request timed out. The DeepSeek API may be experiencing high traffic.")
		}
		return NewError(ErrTimeout, kind, http.StatusGatewayTimeout, "%s Error: Request timed out.", name)
	}

	status, detail := 0, err.Error()

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		detail = strings.Join([]string{fmt.Sprint(apiErr.Code), apiErr.Type, apiErr.Message}, " ")
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
		if len(reqErr.Body) > 0 {
			detail = string(reqErr.Body)
		}
	default:
		return NewError(ErrUnknown, kind, http.StatusBadGateway, "%s Error: %v", name, err)
	}

	message := detail
	if apiErr != nil && apiErr.Message != "" {
		message = apiErr.Message
	}

	if kind == DeepSeek {
		return mapDeepSeekError(model, status, detail, message)
	}
	return mapOpenAIError(model, status, detail, message)
}

func mapOpenAIError(model string, status int, detail, message string) error {
	switch {
	case strings.Contains(detail, "insufficient_quota"):
		return NewError(ErrRateLimited, OpenAI, http.StatusTooManyRequests,
			"OpenAI Error: Insufficient account balance. Please add funds to your OpenAI account.")
	case strings.Contains(detail, "model_not_found") || status == http.StatusNotFound:
		return NewError(ErrModelNotFound, OpenAI, http.StatusNotFound,
			"OpenAI Error: The model %q was not found or is not available with your account.", model)
	case strings.Contains(detail, "invalid_api_key") || status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewError(ErrCredentialRejected, OpenAI, http.StatusUnauthorized,
			"OpenAI Error: Invalid API key provided.")
	case strings.Contains(detail, "rate_limit") || status == http.StatusTooManyRequests:
		return NewError(ErrRateLimited, OpenAI, http.StatusTooManyRequests,
			"OpenAI Error: Rate limit exceeded. Please try again later.")
	default:
		return NewError(ErrUnknown, OpenAI, upstreamStatus(status), "OpenAI Error: %s", message)
	}
}

func mapDeepSeekError(model string, status int, detail, message string) error {
	switch {
	case strings.Contains(strings.ToLower(detail), "model not exist") || status == http.StatusNotFound:
		return NewError(ErrModelNotFound, DeepSeek, http.StatusNotFound,
			"DeepSeek Error: The model %q was not found or is not available with your account.", model)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewError(ErrCredentialRejected, DeepSeek, http.StatusUnauthorized,
			"DeepSeek Error: Invalid or expired API key.")
	case status == http.StatusTooManyRequests || status == http.StatusPaymentRequired:
		return NewError(ErrRateLimited, DeepSeek, http.StatusTooManyRequests,
			"DeepSeek Error: Rate limit exceeded or insufficient credits. Please try again later or add funds to your DeepSeek account.")
	default:
		return NewError(ErrUnknown, DeepSeek, upstreamStatus(status), "DeepSeek Error: %s", message)
	}
}

func upstreamStatus(status int) int {
	if status >= 400 && status < 600 {
		return status
	}
	return http.StatusBadGateway
}
