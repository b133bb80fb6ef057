// Package normalizer turns a provider's raw completion into one displayable
// assistant message. It never fails: every anomaly becomes an advisory.
package normalizer

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/Davincible/ecoswitch-go/internal/providers"
)

const (
	NoChoicesAdvisory = "I couldn't generate a proper response. Please try again or adjust your settings."

	UnexpectedFormatAdvisory = "The model replied in an unexpected format. Please try again or switch to a different model."

	openRouterEmptyAdvisory = "The free OpenRouter model returned an empty or unusable response. " +
		"Free-tier models are often rate limited or filter some content. " +
		"Try simplifying your prompt, waiting a moment before retrying, or switching to a different model."

	genericEmptyAdvisory = "The model returned an empty or unusable response. " +
		"The provider may be rate limiting requests or filtering the content. " +
		"Try simplifying your prompt, waiting a moment before retrying, or switching to a different model."
)

// EmptyContentAdvisory is shown for empty or degenerate output.
func EmptyContentAdvisory(provider providers.Kind) string {
	if provider == providers.OpenRouter {
		return openRouterEmptyAdvisory
	}
	return genericEmptyAdvisory
}

// IsAdvisory reports whether content is one of the fixed advisory strings.
func IsAdvisory(content string) bool {
	switch content {
	case NoChoicesAdvisory, UnexpectedFormatAdvisory, openRouterEmptyAdvisory, genericEmptyAdvisory:
		return true
	}
	return false
}

// Message is the canonical assistant turn.
type Message struct {
	Role     string         `json:"role"`
	Content  string         `json:"content"`
	Provider providers.Kind `json:"provider"`
	Model    string         `json:"model"`
}

// Outcome records which normalization branch produced the content.
type Outcome string

const (
	OutcomeOK               Outcome = "ok"
	OutcomeNoChoices        Outcome = "no_choices"
	OutcomeEmpty            Outcome = "empty"
	OutcomeDegenerate       Outcome = "degenerate"
	OutcomeStringified      Outcome = "stringified"
	OutcomeUnexpectedFormat Outcome = "unexpected_format"
)

type Result struct {
	Message Message
	Outcome Outcome
	Rule    Rule
}

// Advisory reports whether the content was substituted.
func (r Result) Advisory() bool {
	switch r.Outcome {
	case OutcomeOK, OutcomeStringified:
		return false
	}
	return true
}

// Normalize is pure: the same inputs always produce the same result.
// effectiveModel is used when the response does not name its model.
func Normalize(raw *providers.RawResponse, provider providers.Kind, effectiveModel string) Result {
	msg := Message{
		Role:     providers.RoleAssistant,
		Provider: provider,
		Model:    effectiveModel,
	}
	if raw != nil && raw.Model != "" {
		msg.Model = raw.Model
	}

	if raw == nil || len(raw.Choices) == 0 || raw.Choices[0].Message == nil {
		msg.Content = NoChoicesAdvisory
		return Result{Message: msg, Outcome: OutcomeNoChoices}
	}

	content := bytes.TrimSpace(raw.Choices[0].Message.Content)
	if len(content) == 0 || bytes.Equal(content, []byte("null")) {
		msg.Content = EmptyContentAdvisory(provider)
		return Result{Message: msg, Outcome: OutcomeEmpty}
	}

	if content[0] != '"' {
		var buf bytes.Buffer
		if err := json.Compact(&buf, content); err != nil {
			msg.Content = UnexpectedFormatAdvisory
			return Result{Message: msg, Outcome: OutcomeUnexpectedFormat}
		}
		msg.Content = buf.String()
		return Result{Message: msg, Outcome: OutcomeStringified}
	}

	var text string
	if err := json.Unmarshal(content, &text); err != nil {
		msg.Content = UnexpectedFormatAdvisory
		return Result{Message: msg, Outcome: OutcomeUnexpectedFormat}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		msg.Content = EmptyContentAdvisory(provider)
		return Result{Message: msg, Outcome: OutcomeEmpty}
	}

	if rule, degenerate := Detect(text); degenerate {
		msg.Content = EmptyContentAdvisory(provider)
		return Result{Message: msg, Outcome: OutcomeDegenerate, Rule: rule}
	}

	msg.Content = text
	return Result{Message: msg, Outcome: OutcomeOK}
}
