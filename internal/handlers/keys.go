package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/Davincible/ecoswitch-go/internal/chat"
	"github.com/Davincible/ecoswitch-go/internal/credentials"
	"github.com/Davincible/ecoswitch-go/internal/providers"
	"github.com/Davincible/ecoswitch-go/internal/router"
)

// KeyVerifier is implemented by *credentials.Verifier.
type KeyVerifier interface {
	Validate(ctx context.Context, kind providers.Kind, key string) credentials.Result
	VerifyServer(ctx context.Context) bool
	CheckAll(ctx context.Context, keys map[providers.Kind]string) map[providers.Kind]router.CredentialState
}

// SettingsApplier receives the update emitted by a successful validation.
type SettingsApplier interface {
	ApplySettingsUpdate(ev *credentials.SettingsUpdate) chat.Settings
}

type KeysHandler struct {
	verifier KeyVerifier
	settings SettingsApplier
	validate *validator.Validate
	logger   *slog.Logger
}

func NewKeysHandler(verifier KeyVerifier, settings SettingsApplier, logger *slog.Logger) *KeysHandler {
	return &KeysHandler{
		verifier: verifier,
		settings: settings,
		validate: newValidator(),
		logger:   logger,
	}
}

type validateKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// ValidateKey serves POST /api/validate-key and its DeepSeek and
// OpenRouter siblings. A blank or malformed key is reported as invalid.
func (h *KeysHandler) ValidateKey(kind providers.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req validateKeyRequest
		if err := decode(w, r, h.validate, &req); err != nil {
			writeError(w, h.logger, err)
			return
		}

		res := h.verifier.Validate(r.Context(), kind, req.APIKey)
		if res.Valid && res.Update != nil {
			h.settings.ApplySettingsUpdate(res.Update)
		}

		h.logger.Info("Validated API key",
			"provider", kind,
			"key", credentials.Mask(req.APIKey),
			"valid", res.Valid)
		writeJSON(w, h.logger, http.StatusOK, res)
	}
}

type verifyServerResponse struct {
	Connected bool `json:"connected"`
}

// VerifyOpenRouter serves GET /api/verify-openrouter.
func (h *KeysHandler) VerifyOpenRouter(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, verifyServerResponse{Connected: h.verifier.VerifyServer(r.Context())})
}

type keySet struct {
	OpenAI     string `json:"openai,omitempty"`
	DeepSeek   string `json:"deepseek,omitempty"`
	OpenRouter string `json:"openrouter,omitempty"`
}

func (k keySet) toMap() map[providers.Kind]string {
	return map[providers.Kind]string{
		providers.OpenAI:     k.OpenAI,
		providers.DeepSeek:   k.DeepSeek,
		providers.OpenRouter: k.OpenRouter,
	}
}

type keyStatus struct {
	router.CredentialState
	Usable bool `json:"usable"`
}

type keysStatusResponse struct {
	Keys            map[providers.Kind]keyStatus `json:"keys"`
	ServerAvailable bool                         `json:"server_available"`
}

// KeysStatus serves POST /api/keys/status: every supplied key is checked
// concurrently and reported with the OpenRouter server fallback.
func (h *KeysHandler) KeysStatus(w http.ResponseWriter, r *http.Request) {
	var req keySet
	if err := decode(w, r, h.validate, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	states := h.verifier.CheckAll(r.Context(), req.toMap())
	out := keysStatusResponse{
		Keys:            make(map[providers.Kind]keyStatus, len(providers.Kinds())),
		ServerAvailable: h.verifier.VerifyServer(r.Context()),
	}
	for _, kind := range providers.Kinds() {
		st := states[kind]
		out.Keys[kind] = keyStatus{CredentialState: st, Usable: st.Usable()}
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}
