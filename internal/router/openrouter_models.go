package router

import (
	"slices"
	"strings"
)

// DefaultOpenRouterModel is the free model every fallback lands on.
const DefaultOpenRouterModel = "deepseek/deepseek-v3-base:free"

const (
	openRouterDeepSeekVendor = "deepseek/"
	openRouterFreeSuffix     = ":free"
	bareDeepSeekV3Prefix     = "deepseek-v3"
)

var openRouterAllowList = []string{
	DefaultOpenRouterModel,
	"deepseek/deepseek-chat-v3-0324:free",
	"meta-llama/llama-3.3-70b-instruct:free",
}

// OpenRouterModels returns the vetted OpenRouter ids.
func OpenRouterModels() []string { return slices.Clone(openRouterAllowList) }

// NormalizeOpenRouterModel maps any requested string onto the allow-list.
// Bare deepseek-v3 names gain the vendor prefix and free suffix; anything
// still unknown becomes the default model.
func NormalizeOpenRouterModel(model string) string {
	m := strings.TrimSpace(model)
	if slices.Contains(openRouterAllowList, m) {
		return m
	}

	if strings.HasPrefix(m, bareDeepSeekV3Prefix) {
		candidate := openRouterDeepSeekVendor + m
		if !strings.HasSuffix(candidate, openRouterFreeSuffix) {
			candidate += openRouterFreeSuffix
		}
		if slices.Contains(openRouterAllowList, candidate) {
			return candidate
		}
	}

	return DefaultOpenRouterModel
}
