package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	// Sampling settings OpenRouter's free models are sent with.
	openRouterTopP      = 0.9
	openRouterTopK      = 40
	openRouterSeed      = 42
	openRouterMaxTokens = 800
)

var openRouterStop = []string{"\n\n\n"}

// OpenRouterAdapter calls the OpenRouter chat completions API with the
// routing headers it requires. The bearer is the caller's key when one is
// given, otherwise the process-wide fallback key.
type OpenRouterAdapter struct {
	opts options
}

var _ Adapter = (*OpenRouterAdapter)(nil)

func NewOpenRouterAdapter(opts ...Option) *OpenRouterAdapter {
	return &OpenRouterAdapter{opts: newOptions(DefaultOpenRouterBaseURL, opts)}
}

func (a *OpenRouterAdapter) Kind() Kind { return OpenRouter }

// HasFallbackKey reports whether a process-wide credential is configured.
func (a *OpenRouterAdapter) HasFallbackKey() bool { return a.opts.fallbackKey != "" }

// SetOpenRouterHeaders applies the headers OpenRouter expects on every call.
func SetOpenRouterHeaders(h http.Header, bearer, referer, title string) {
	h.Set("Content-Type", "application/json")
	h.Set("HTTP-Referer", referer)
	h.Set("X-Title", title)
	h.Set("OpenRouter-Data-Policy", "allow")
	h.Set("Authorization", "Bearer "+bearer)
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterRequest struct {
	Model            string              `json:"model"`
	Messages         []openRouterMessage `json:"messages"`
	Temperature      float32             `json:"temperature"`
	MaxTokens        int                 `json:"max_tokens"`
	PresencePenalty  float32             `json:"presence_penalty"`
	FrequencyPenalty float32             `json:"frequency_penalty"`
	TopP             float32             `json:"top_p"`
	TopK             int                 `json:"top_k"`
	Seed             int                 `json:"seed"`
	Stop             []string            `json:"stop"`
	Stream           bool                `json:"stream"`
	ResponseFormat   struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

func (a *OpenRouterAdapter) bearer(credential string) string {
	if key := strings.TrimSpace(credential); key != "" {
		return key
	}
	return a.opts.fallbackKey
}

func (a *OpenRouterAdapter) buildRequest(req Request) openRouterRequest {
	messages := WithSystemPrompt(req.Messages, req.Params.SystemPrompt)
	body := openRouterRequest{
		Model:            req.Model,
		Messages:         make([]openRouterMessage, 0, len(messages)),
		Temperature:      req.Params.Temperature,
		MaxTokens:        req.Params.MaxTokens,
		PresencePenalty:  req.Params.PresencePenalty,
		FrequencyPenalty: req.Params.FrequencyPenalty,
		TopP:             openRouterTopP,
		TopK:             openRouterTopK,
		Seed:             openRouterSeed,
		Stop:             openRouterStop,
	}
	body.ResponseFormat.Type = "text"
	if body.MaxTokens <= 0 {
		body.MaxTokens = openRouterMaxTokens
	}
	for _, m := range messages {
		body.Messages = append(body.Messages, openRouterMessage{
			Role:    normalizeRole(m.Role),
			Content: flattenContent(m.Content),
		})
	}
	return body
}

func (a *OpenRouterAdapter) Send(ctx context.Context, req Request) (*RawResponse, error) {
	bearer := a.bearer(req.Credential)
	if bearer == "" {
		return nil, NewError(ErrCredentialRejected, OpenRouter, http.StatusUnauthorized,
			"OpenRouter Error: No valid API key available. Please provide an OpenRouter API key.")
	}

	if a.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(a.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal openrouter request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.opts.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create openrouter request: %w", err)
	}
	SetOpenRouterHeaders(httpReq.Header, bearer, a.opts.referer, a.opts.title)
	httpReq.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := a.opts.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, NewError(ErrTimeout, OpenRouter, http.StatusGatewayTimeout,
				"OpenRouter Error: Request timed out.")
		}
		return nil, NewError(ErrUnknown, OpenRouter, http.StatusBadGateway,
			"OpenRouter Error: Failed to connect to OpenRouter API.")
	}

	body, err := decompressBody(resp)
	if err != nil {
		resp.Body.Close()
		return nil, NewError(ErrMalformedResponse, OpenRouter, http.StatusBadGateway,
			"OpenRouter Error: could not decode response: %v", err)
	}
	defer body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(body, 4096))
		return nil, mapOpenRouterError(resp.StatusCode, data)
	}

	var raw RawResponse
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, NewError(ErrMalformedResponse, OpenRouter, http.StatusBadGateway,
			"OpenRouter Error: could not decode response: %v", err)
	}
	return &raw, nil
}

func mapOpenRouterError(status int, body []byte) error {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return NewError(ErrCredentialRejected, OpenRouter, http.StatusUnauthorized,
			"OpenRouter Error: The provided API key is invalid. Please check your OpenRouter API key.")
	case http.StatusNotFound:
		return NewError(ErrModelNotFound, OpenRouter, http.StatusNotFound,
			"OpenRouter Error: Model not found. Please select a different model in settings.")
	case http.StatusTooManyRequests:
		return NewError(ErrRateLimited, OpenRouter, http.StatusTooManyRequests,
			"OpenRouter Error: Rate limit exceeded. Please try again later.")
	}

	if payload.Error.Message != "" {
		return NewError(ErrUnknown, OpenRouter, upstreamStatus(status), "OpenRouter Error: %s", payload.Error.Message)
	}
	return NewError(ErrUnknown, OpenRouter, upstreamStatus(status),
		"OpenRouter Error: Failed to get response from OpenRouter.")
}
