package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeepSeekAdapter_SendsExactModelAsText(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(completionHandler(t, &captured, "hello from deepseek"))
	defer srv.Close()

	adapter := NewDeepSeekAdapter(WithBaseURL(srv.URL))
	assert.Equal(t, DeepSeek, adapter.Kind())

	resp, err := adapter.Send(context.Background(), Request{
		Credential: "sk-test",
		Model:      "deepseek-chat",
		Messages: []Message{
			{Role: RoleUser, Content: ListContent(TextBlock("describe"), ImageBlock("http://img"))},
		},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `"hello from deepseek"`, string(resp.Choices[0].Message.Content))

	assert.Equal(t, "deepseek-chat", captured["model"])
	msgs := captured["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "describe", msgs[0].(map[string]any)["content"], "blocks must be flattened to text")
}

func TestDeepSeekAdapter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    error
		message string
	}{
		{
			name:    "model not exist",
			status:  http.StatusBadRequest,
			body:    `{"error":{"message":"Model Not Exist","type":"invalid_request_error","code":"invalid_request_error"}}`,
			kind:    ErrModelNotFound,
			message: `DeepSeek Error: The model "deepseek-chat" was not found or is not available with your account.`,
		},
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"error":{"message":"Authentication Fails","type":"authentication_error","code":"invalid_request_error"}}`,
			kind:    ErrCredentialRejected,
			message: "DeepSeek Error: Invalid or expired API key.",
		},
		{
			name:    "insufficient balance",
			status:  http.StatusPaymentRequired,
			body:    `{"error":{"message":"Insufficient Balance","type":"unknown_error","code":"invalid_request_error"}}`,
			kind:    ErrRateLimited,
			message: "DeepSeek Error: Rate limit exceeded or insufficient credits. Please try again later or add funds to your DeepSeek account.",
		},
		{
			name:    "rate limited",
			status:  http.StatusTooManyRequests,
			body:    `{"error":{"message":"Too many requests","type":"rate_limit","code":"rate_limit"}}`,
			kind:    ErrRateLimited,
			message: "DeepSeek Error: Rate limit exceeded or insufficient credits. Please try again later or add funds to your DeepSeek account.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(errorHandler(tt.status, tt.body))
			defer srv.Close()

			_, err := NewDeepSeekAdapter(WithBaseURL(srv.URL)).Send(context.Background(), Request{
				Credential: "sk-test",
				Model:      "deepseek-chat",
				Messages:   []Message{{Role: RoleUser, Content: TextContent("hi")}},
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.message, err.Error())
		})
	}
}
