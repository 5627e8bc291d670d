package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rasil-ai/support-agent-platform/internal/agent"
	"github.com/rasil-ai/support-agent-platform/internal/middleware"
	"github.com/rasil-ai/support-agent-platform/internal/model"
	"github.com/rasil-ai/support-agent-platform/internal/store"
	"github.com/rasil-ai/support-agent-platform/pkg/logger"
)

// InboundHandler accepts stored inbound-message events over HTTP, as an
// alternative to the NATS consumer for pipelines that prefer a webhook.
type InboundHandler struct {
	conversations store.ConversationStore
	dispatcher    *agent.Dispatcher
	logger        *logger.Logger
}

// NewInboundHandler creates a new inbound handler.
func NewInboundHandler(conversations store.ConversationStore, dispatcher *agent.Dispatcher, log *logger.Logger) *InboundHandler {
	return &InboundHandler{
		conversations: conversations,
		dispatcher:    dispatcher,
		logger:        log,
	}
}

// inboundRequest mirrors the NATS inbound envelope.
type inboundRequest struct {
	Message         model.Message `json:"message"`
	Channel         model.Channel `json:"channel"`
	NewConversation bool          `json:"new_conversation"`
}

// Post handles POST /api/v1/messages/inbound
func (h *InboundHandler) Post(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)

	var req inboundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Channel.TenantID != tenantID || req.Message.TenantID != tenantID {
		writeError(w, http.StatusForbidden, "tenant mismatch")
		return
	}
	if err := middleware.ValidateMessageContent(req.Message.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.conversations.Get(ctx, req.Message.ConversationID)
	if err != nil || conv.TenantID != tenantID {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	// The dispatcher never propagates failures; accept and move on.
	h.dispatcher.OnInboundMessage(ctx, &req.Message, conv, &req.Channel, req.NewConversation)

	w.WriteHeader(http.StatusAccepted)
}
