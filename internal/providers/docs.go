/*
Package providers holds the provider-neutral message model, the error
taxonomy, and one Adapter per upstream LLM vendor.

# Adapters

Every vendor implements the Adapter interface:

	type Adapter interface {
		Kind() Kind
		Send(ctx context.Context, req Request) (*RawResponse, error)
	}

Send performs exactly one network attempt. It never retries and never
falls back to another vendor; that decision belongs to the router.

  - OpenAIAdapter uses github.com/sashabaranov/go-openai and forwards
    image blocks as multi-part content.
  - DeepSeekAdapter uses the same client against DeepSeek's
    OpenAI-compatible base URL. Content is flattened to text.
  - OpenRouterAdapter speaks plain HTTP so it can attach the
    HTTP-Referer, X-Title and OpenRouter-Data-Policy headers and pick the
    bearer per request. gzip and brotli bodies are decoded.

# Content

Content mirrors the three JSON shapes a message body may take: a string,
a single {"type": ...} block, or a list mixing strings and blocks.
Decoding and re-encoding preserves the shape, which is what the
conversation store persists.

# Errors

Adapters return *Error values whose Kind is one of the Err* sentinels, so
callers branch with errors.Is:

	if errors.Is(err, providers.ErrRateLimited) { ... }

Message is already prefixed with the vendor name ("OpenAI Error: ...")
and is safe to show to end users.

# Raw responses

RawResponse keeps choices[].message.content as json.RawMessage. The
normalizer relies on this to tell a null body, an empty string and a
structured object apart.
*/
package providers
