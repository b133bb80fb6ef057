package providers

import "encoding/json"

// RawResponse is the provider-native completion, kept loose enough that
// the normalizer can tell a null body from an empty or structured one.
type RawResponse struct {
	ID      string      `json:"id"`
	Object  string      `json:"object,omitempty"`
	Created int64       `json:"created,omitempty"`
	Model   string      `json:"model,omitempty"`
	Choices []RawChoice `json:"choices"`
}

type RawChoice struct {
	Index        int         `json:"index"`
	Message      *RawMessage `json:"message,omitempty"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

type RawMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// StringContent encodes s as a raw JSON content value.
func StringContent(s string) json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}
