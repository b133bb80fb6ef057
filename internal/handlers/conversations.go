package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Davincible/ecoswitch-go/internal/conversation"
	"github.com/Davincible/ecoswitch-go/internal/providers"
)

type ConversationsHandler struct {
	store    conversation.Store
	validate *validator.Validate
	logger   *slog.Logger
}

func NewConversationsHandler(store conversation.Store, logger *slog.Logger) *ConversationsHandler {
	return &ConversationsHandler{
		store:    store,
		validate: newValidator(),
		logger:   logger,
	}
}

type createConversationRequest struct {
	Title string `json:"title" validate:"max=200"`
	Model string `json:"model"`
}

func (h *ConversationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = conversation.DefaultTitle
	}

	conv, err := h.store.CreateConversation(r.Context(), title, req.Model)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, conv)
}

func (h *ConversationsHandler) List(w http.ResponseWriter, r *http.Request) {
	convs, err := h.store.ListConversations(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if convs == nil {
		convs = []conversation.Conversation{}
	}
	writeJSON(w, h.logger, http.StatusOK, convs)
}

func (h *ConversationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	conv, err := h.store.GetConversation(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if conv.Messages == nil {
		conv.Messages = []conversation.Message{}
	}
	writeJSON(w, h.logger, http.StatusOK, conv)
}

func (h *ConversationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.store.DeleteConversation(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConversationsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearConversations(r.Context()); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("Cleared conversation history")
	w.WriteHeader(http.StatusNoContent)
}

type appendMessageRequest struct {
	Role     string            `json:"role" validate:"required,oneof=user assistant system"`
	Content  providers.Content `json:"content"`
	Provider string            `json:"provider,omitempty" validate:"omitempty,oneof=openai deepseek openrouter"`
	Model    string            `json:"model,omitempty"`
}

func (h *ConversationsHandler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req appendMessageRequest
	if err := decode(w, r, h.validate, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Content.IsEmpty() {
		writeError(w, h.logger, badRequest("validation_failed", "content is required"))
		return
	}

	msg, err := h.store.AppendMessage(r.Context(), id, conversation.Message{
		Role:     req.Role,
		Content:  req.Content,
		Provider: providers.Kind(req.Provider),
		Model:    req.Model,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, msg)
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid_request", "invalid conversation id %q", raw)
	}
	return id, nil
}
