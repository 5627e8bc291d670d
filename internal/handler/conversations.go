package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rasil-ai/support-agent-platform/internal/agent"
	"github.com/rasil-ai/support-agent-platform/internal/middleware"
	"github.com/rasil-ai/support-agent-platform/internal/model"
	"github.com/rasil-ai/support-agent-platform/internal/store"
	"github.com/rasil-ai/support-agent-platform/pkg/logger"
)

// ConversationHandler exposes conversation state and the manual handoff
// operation to merchant dashboards.
type ConversationHandler struct {
	conversations store.ConversationStore
	settings      store.SettingsSource
	handoff       *agent.HandoffController
	logger        *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(
	conversations store.ConversationStore,
	settings store.SettingsSource,
	handoff *agent.HandoffController,
	log *logger.Logger,
) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		settings:      settings,
		handoff:       handoff,
		logger:        log,
	}
}

// Get handles GET /api/v1/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.conversations.Get(ctx, conversationID)
	if err != nil || conv.TenantID != tenantID {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// handoffRequest is the body for a manual handoff.
type handoffRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Handoff handles POST /api/v1/conversations/{id}/handoff
func (h *ConversationHandler) Handoff(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.conversations.Get(ctx, conversationID)
	if err != nil || conv.TenantID != tenantID {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	var req handoffRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	settings, err := h.settings.AgentSettings(ctx, conv.TenantID, conv.StoreID)
	if err != nil {
		settings = model.DefaultSettings()
	}

	if err := h.handoff.TriggerHandoff(ctx, conv, settings, model.HandoffReasonManual); err != nil {
		h.logger.Error("manual handoff failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to hand off conversation")
		return
	}

	writeJSON(w, http.StatusOK, conv)
}
