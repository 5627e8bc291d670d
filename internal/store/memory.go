package store

import (
	"context"
	"sync"
	"time"

	"github.com/rasil-ai/support-agent-platform/internal/model"
)

// Memory is an in-memory store implementing every store interface. It backs
// tests and local development; production deployments use the SQLite store.
type Memory struct {
	mu            sync.RWMutex
	conversations map[string]*model.Conversation
	messages      map[string][]model.Message
	knowledge     map[string][]model.KnowledgeEntry
	orders        []model.Order
	settings      map[string]model.AgentSettings
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		conversations: make(map[string]*model.Conversation),
		messages:      make(map[string][]model.Message),
		knowledge:     make(map[string][]model.KnowledgeEntry),
		settings:      make(map[string]model.AgentSettings),
	}
}

// Get retrieves a conversation by ID.
func (m *Memory) Get(ctx context.Context, id string) (*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, ok := m.conversations[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	cp := *conv
	return &cp, nil
}

// Save upserts a conversation.
func (m *Memory) Save(ctx context.Context, conv *model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *conv
	cp.UpdatedAt = time.Now()
	m.conversations[conv.ID] = &cp
	return nil
}

// Append records a message.
func (m *Memory) Append(ctx context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], *msg)
	return nil
}

// Recent returns up to limit most recent messages, oldest first.
func (m *Memory) Recent(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := m.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// ActiveEntries returns active knowledge entries ordered by priority asc.
func (m *Memory) ActiveEntries(ctx context.Context, tenantID string, limit int) ([]model.KnowledgeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.KnowledgeEntry
	for _, e := range m.knowledge[tenantID] {
		if e.IsActive {
			out = append(out, e)
		}
	}
	// insertion sort by priority, stable and small
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Priority < out[j-1].Priority; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PutKnowledge adds a knowledge entry.
func (m *Memory) PutKnowledge(e model.KnowledgeEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.knowledge[e.TenantID] = append(m.knowledge[e.TenantID], e)
}

// Find resolves an order reference with the four-way preference order.
func (m *Memory) Find(ctx context.Context, tenantID, storeID, ref string) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type match func(o model.Order) bool
	preferences := []match{
		func(o model.Order) bool { return o.TenantID == tenantID && o.ExternalID == ref },
		func(o model.Order) bool { return o.TenantID == tenantID && o.ReferenceID == ref },
	}
	if storeID != "" {
		preferences = append(preferences,
			func(o model.Order) bool { return o.StoreID == storeID && o.ExternalID == ref },
			func(o model.Order) bool { return o.StoreID == storeID && o.ReferenceID == ref },
		)
	}

	for _, matches := range preferences {
		for i := range m.orders {
			if matches(m.orders[i]) {
				cp := m.orders[i]
				return &cp, nil
			}
		}
	}
	return nil, ErrOrderNotFound
}

// PutOrder adds an order.
func (m *Memory) PutOrder(o model.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, o)
}

// AgentSettings resolves settings for a tenant/store pair, falling back to
// tenant-level settings when no store-specific row exists.
func (m *Memory) AgentSettings(ctx context.Context, tenantID, storeID string) (model.AgentSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s, ok := m.settings[settingsKey(tenantID, storeID)]; ok {
		return s, nil
	}
	if s, ok := m.settings[settingsKey(tenantID, "")]; ok {
		return s, nil
	}
	return model.AgentSettings{}, ErrSettingsNotFound
}

// PutSettings stores settings for a tenant/store pair.
func (m *Memory) PutSettings(tenantID, storeID string, s model.AgentSettings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[settingsKey(tenantID, storeID)] = s
}

func settingsKey(tenantID, storeID string) string {
	return tenantID + "/" + storeID
}
