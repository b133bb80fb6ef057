package providers

import "context"

// DeepSeekAdapter uses DeepSeek's OpenAI-compatible endpoint. It is text
// only: content blocks are flattened before sending.
type DeepSeekAdapter struct {
	opts options
}

var _ Adapter = (*DeepSeekAdapter)(nil)

func NewDeepSeekAdapter(opts ...Option) *DeepSeekAdapter {
	return &DeepSeekAdapter{opts: newOptions(DefaultDeepSeekBaseURL, opts)}
}

func (a *DeepSeekAdapter) Kind() Kind { return DeepSeek }

func (a *DeepSeekAdapter) Send(ctx context.Context, req Request) (*RawResponse, error) {
	return sendCompatible(ctx, a.opts, DeepSeek, req, false)
}
