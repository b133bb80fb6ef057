package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionHandler(t *testing.T, captured *map[string]any, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "gpt-4o-2024-05-13",
			"choices": []any{
				map[string]any{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
		})
	}
}

func errorHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestOpenAIAdapter_Send(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(completionHandler(t, &captured, "Four."))
	defer srv.Close()

	adapter := NewOpenAIAdapter(WithBaseURL(srv.URL))
	assert.Equal(t, OpenAI, adapter.Kind())

	resp, err := adapter.Send(context.Background(), Request{
		Credential: "sk-test",
		Model:      "gpt-4o",
		Messages: []Message{
			{Role: RoleUser, Content: ListContent(TextBlock("what is this?"), ImageBlock("data:image/png;base64,AAAA"))},
		},
		Params: Parameters{Temperature: 0.7, MaxTokens: 100, SystemPrompt: "be brief"},
	})
	require.NoError(t, err)

	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "chatcmpl-1", resp.ID)
	assert.Equal(t, "gpt-4o-2024-05-13", resp.Model)
	assert.JSONEq(t, `"Four."`, string(resp.Choices[0].Message.Content))

	assert.Equal(t, "gpt-4o", captured["model"])
	msgs := captured["messages"].([]any)
	require.Len(t, msgs, 2, "system prompt should be prepended")

	system := msgs[0].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Equal(t, "be brief", system["content"])

	user := msgs[1].(map[string]any)
	parts, ok := user["content"].([]any)
	require.True(t, ok, "multimodal content should be sent as parts")
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].(map[string]any)["type"])
	assert.Equal(t, "image_url", parts[1].(map[string]any)["type"])
}

func TestOpenAIAdapter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    error
		message string
	}{
		{
			name:    "invalid key",
			status:  http.StatusUnauthorized,
			body:    `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`,
			kind:    ErrCredentialRejected,
			message: "OpenAI Error: Invalid API key provided.",
		},
		{
			name:    "model not found",
			status:  http.StatusNotFound,
			body:    `{"error":{"message":"The model does not exist","type":"invalid_request_error","code":"model_not_found"}}`,
			kind:    ErrModelNotFound,
			message: `OpenAI Error: The model "gpt-9" was not found or is not available with your account.`,
		},
		{
			name:    "insufficient quota",
			status:  http.StatusTooManyRequests,
			body:    `{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`,
			kind:    ErrRateLimited,
			message: "OpenAI Error: Insufficient account balance. Please add funds to your OpenAI account.",
		},
		{
			name:    "rate limit",
			status:  http.StatusTooManyRequests,
			body:    `{"error":{"message":"Slow down","type":"requests","code":"rate_limit_exceeded"}}`,
			kind:    ErrRateLimited,
			message: "OpenAI Error: Rate limit exceeded. Please try again later.",
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `{"error":{"message":"The server had an error","type":"server_error","code":null}}`,
			kind:    ErrUnknown,
			message: "OpenAI Error: The server had an error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(errorHandler(tt.status, tt.body))
			defer srv.Close()

			adapter := NewOpenAIAdapter(WithBaseURL(srv.URL))
			_, err := adapter.Send(context.Background(), Request{
				Credential: "sk-test",
				Model:      "gpt-9",
				Messages:   []Message{{Role: RoleUser, Content: TextContent("hi")}},
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)

			var perr *Error
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, OpenAI, perr.Provider)
			assert.Equal(t, tt.message, perr.Message)
		})
	}
}

func TestOpenAIAdapter_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	adapter := NewOpenAIAdapter(WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	_, err := adapter.Send(context.Background(), Request{
		Credential: "sk-test",
		Model:      "gpt-4o",
		Messages:   []Message{{Role: RoleUser, Content: TextContent("hi")}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestToChatMessages_TextOnlyFlattens(t *testing.T) {
	msgs := toChatMessages([]Message{
		{Role: "tool", Content: ListContent(TextBlock("first"), ImageBlock("http://img"), TextBlock("second"))},
		{Role: RoleUser, Content: BlockContent(ImageBlock("http://img"))},
	}, false)

	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role, "unknown roles map to user")
	assert.Equal(t, "first\nsecond", msgs[0].Content)
	assert.Empty(t, msgs[0].MultiContent)
	assert.JSONEq(t, `{"type":"image_url","image_url":{"url":"http://img"}}`, msgs[1].Content)
}

func TestOpenAIAdapter_ZeroTemperatureIsSent(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(completionHandler(t, &captured, "ok"))
	defer srv.Close()

	for _, adapter := range []Adapter{
		NewOpenAIAdapter(WithBaseURL(srv.URL)),
		NewDeepSeekAdapter(WithBaseURL(srv.URL)),
	} {
		captured = nil
		_, err := adapter.Send(context.Background(), Request{
			Credential: "sk-test",
			Model:      "gpt-4o",
			Messages:   []Message{{Role: RoleUser, Content: TextContent("hi")}},
			Params:     Parameters{Temperature: 0, MaxTokens: 10},
		})
		require.NoError(t, err, adapter.Kind())

		temp, ok := captured["temperature"]
		require.True(t, ok, "%s: temperature missing from request body", adapter.Kind())
		assert.InDelta(t, 0, temp.(float64), 1e-9)
	}
}
