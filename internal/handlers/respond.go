// Package handlers exposes the chat pipeline, credential checks and
// conversation history over JSON HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Davincible/ecoswitch-go/internal/chat"
	"github.com/Davincible/ecoswitch-go/internal/conversation"
	"github.com/Davincible/ecoswitch-go/internal/providers"
)

// maxBodyBytes leaves room for base64 image data URLs.
const maxBodyBytes = 20 << 20

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// requestError is a client mistake detected before any work is done.
type requestError struct {
	label string
	msg   string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(label, format string, args ...any) error {
	return &requestError{label: label, msg: fmt.Sprintf(format, args...)}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and runs struct validation on it.
func decode(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return badRequest("invalid_request", "invalid request body: %v", err)
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return badRequest("validation_failed", "%v", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			if fe.Param() != "" {
				msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			} else {
				msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
			}
		}
		return badRequest("validation_failed", "%s", strings.Join(msgs, "; "))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to write response", "error", err)
	}
}

// writeError maps err to a status code and a {message, error} body.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, label, msg := classify(err)
	if label == "internal" {
		logger.Error("Request failed", "error", err)
	}
	writeJSON(w, logger, status, errorResponse{Message: msg, Error: label})
}

func classify(err error) (status int, label, msg string) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, reqErr.label, reqErr.msg
	case errors.Is(err, conversation.ErrNotFound):
		return http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, chat.ErrEmptyPrompt), errors.Is(err, chat.ErrInvalidProvider):
		return http.StatusBadRequest, "invalid_request", err.Error()
	}

	var perr *providers.Error
	kind := providers.KindOf(err)
	if !errors.As(err, &perr) && kind == providers.ErrUnknown && !errors.Is(err, providers.ErrUnknown) {
		return http.StatusInternalServerError, "internal", "internal server error"
	}
	return statusForKind(kind), providers.KindLabel(err), err.Error()
}

func statusForKind(kind error) int {
	switch kind {
	case providers.ErrInvalidCredentialFormat:
		return http.StatusBadRequest
	case providers.ErrCredentialRejected:
		return http.StatusUnauthorized
	case providers.ErrNoProviderAvailable, providers.ErrProviderUnavailable:
		return http.StatusUnprocessableEntity
	case providers.ErrModelNotFound:
		return http.StatusNotFound
	case providers.ErrRateLimited:
		return http.StatusTooManyRequests
	case providers.ErrTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
