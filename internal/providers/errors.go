package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error kinds. Every failure surfaced by a validator, the router or an
// adapter wraps exactly one of these.
var (
	ErrInvalidCredentialFormat = errors.New("invalid credential format")
	ErrCredentialRejected      = errors.New("credential rejected by provider")
	ErrNoProviderAvailable     = errors.New("no provider available")
	ErrProviderUnavailable     = errors.New("provider unavailable")
	ErrRateLimited             = errors.New("rate limited by provider")
	ErrModelNotFound           = errors.New("model not found")
	ErrTimeout                 = errors.New("provider timeout")
	ErrMalformedResponse       = errors.New("malformed provider response")
	ErrUnknown                 = errors.New("unknown provider error")
)

// Error carries a display-ready message alongside its kind.
type Error struct {
	Kind     error
	Provider Kind
	Status   int
	Message  string
}

func NewError(kind error, provider Kind, status int, format string, args ...any) *Error {
	return &Error{
		Kind:     kind,
		Provider: provider,
		Status:   status,
		Message:  fmt.Sprintf(format, args...),
	}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Provider != "" {
		return fmt.Sprintf("%s: %v", e.Provider.DisplayName(), e.Kind)
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// KindOf reports the taxonomy entry for err, or ErrUnknown.
func KindOf(err error) error {
	for _, k := range []error{
		ErrInvalidCredentialFormat,
		ErrCredentialRejected,
		ErrNoProviderAvailable,
		ErrProviderUnavailable,
		ErrRateLimited,
		ErrModelNotFound,
		ErrTimeout,
		ErrMalformedResponse,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrUnknown
}

// KindLabel is a short stable name for metrics labels.
func KindLabel(err error) string {
	switch KindOf(err) {
	case ErrInvalidCredentialFormat:
		return "invalid_format"
	case ErrCredentialRejected:
		return "auth"
	case ErrNoProviderAvailable:
		return "no_provider"
	case ErrProviderUnavailable:
		return "provider_unavailable"
	case ErrRateLimited:
		return "rate_limited"
	case ErrModelNotFound:
		return "model_not_found"
	case ErrTimeout:
		return "timeout"
	case ErrMalformedResponse:
		return "malformed"
	default:
		return "unknown"
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
