package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/Davincible/ecoswitch-go/internal/chat"
)

// SettingsService is implemented by *chat.Service.
type SettingsService interface {
	Settings() chat.Settings
	UpdateSettings(p chat.SettingsPatch) (chat.Settings, error)
}

type SettingsHandler struct {
	svc      SettingsService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewSettingsHandler(svc SettingsService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		svc:      svc,
		validate: newValidator(),
		logger:   logger,
	}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.svc.Settings())
}

func (h *SettingsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var patch chat.SettingsPatch
	if err := decode(w, r, h.validate, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	settings, err := h.svc.UpdateSettings(patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("Settings updated", "provider", settings.Provider, "model", settings.Model)
	writeJSON(w, h.logger, http.StatusOK, settings)
}
