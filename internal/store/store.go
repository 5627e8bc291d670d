// Package store defines the persistence boundary consumed by the agent
// engine, with in-memory and SQLite implementations.
package store

import (
	"context"
	"errors"

	"github.com/rasil-ai/support-agent-platform/internal/model"
)

var (
	// ErrConversationNotFound is returned when a conversation does not exist.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrOrderNotFound is returned when no order matches a lookup.
	ErrOrderNotFound = errors.New("order not found")
	// ErrSettingsNotFound is returned when no agent settings are configured.
	ErrSettingsNotFound = errors.New("agent settings not found")
)

// ConversationStore loads and saves conversation state, including the
// orchestration sub-record.
type ConversationStore interface {
	Get(ctx context.Context, id string) (*model.Conversation, error)
	Save(ctx context.Context, conv *model.Conversation) error
}

// MessageStore records conversation messages and serves recent history.
type MessageStore interface {
	Append(ctx context.Context, msg *model.Message) error
	// Recent returns up to limit most recent messages, oldest first.
	Recent(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
}

// KnowledgeSource serves active knowledge entries for a tenant, ordered by
// priority ascending.
type KnowledgeSource interface {
	ActiveEntries(ctx context.Context, tenantID string, limit int) ([]model.KnowledgeEntry, error)
}

// OrderLookup resolves an order reference for a tenant. Implementations try
// tenant+external ID, tenant+reference ID, then the store-scoped variants of
// both, first match wins.
type OrderLookup interface {
	Find(ctx context.Context, tenantID, storeID, ref string) (*model.Order, error)
}

// SettingsSource resolves agent settings for a tenant/store pair.
type SettingsSource interface {
	AgentSettings(ctx context.Context, tenantID, storeID string) (model.AgentSettings, error)
}
