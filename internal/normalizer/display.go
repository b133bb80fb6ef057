package normalizer

import (
	"strings"
	"unicode"
)

// DisplayModelName returns a short human label for a model id.
func DisplayModelName(model string) string {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "llama-3"), strings.Contains(lower, "llama3"):
		return "Llama 3"
	case strings.Contains(lower, "gpt-4"):
		return "GPT-4"
	case strings.Contains(lower, "gpt-3.5"):
		return "GPT-3.5"
	case strings.Contains(lower, "deepseek"):
		return "DeepSeek"
	}

	name := model
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, ":free")

	words := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
