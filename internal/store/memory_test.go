package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasil-ai/support-agent-platform/internal/model"
)

func TestMemoryConversationRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrConversationNotFound)

	conv := &model.Conversation{ID: "c1", TenantID: "t1", Handler: model.HandlerAI}
	require.NoError(t, m.Save(ctx, conv))

	got, err := m.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, model.HandlerAI, got.Handler)
	assert.False(t, got.UpdatedAt.IsZero())

	// The returned value is a copy; mutating it must not leak into the store.
	got.Handler = model.HandlerHuman
	again, err := m.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, model.HandlerAI, again.Handler)
}

func TestMemoryRecentMessages(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, content := range []string{"a", "b", "c", "d"} {
		require.NoError(t, m.Append(ctx, &model.Message{
			ConversationID: "c1", Direction: model.DirectionIn, Content: content,
		}))
	}

	msgs, err := m.Recent(ctx, "c1", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	// Oldest first within the window.
	assert.Equal(t, "c", msgs[0].Content)
	assert.Equal(t, "d", msgs[1].Content)
}

func TestMemoryFindPreferenceOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	// Same reference as another tenant's external ID; tenant scoping wins.
	m.PutOrder(model.Order{TenantID: "other", ExternalID: "100", Status: model.OrderCancelled})
	m.PutOrder(model.Order{TenantID: "t1", ReferenceID: "100", Status: model.OrderShipped})
	m.PutOrder(model.Order{TenantID: "t1", ExternalID: "100", Status: model.OrderDelivered})

	got, err := m.Find(ctx, "t1", "", "100")
	require.NoError(t, err)
	// External ID match beats reference ID match within the tenant.
	assert.Equal(t, model.OrderDelivered, got.Status)

	_, err = m.Find(ctx, "t2", "", "100")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMemoryFindByStore(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.PutOrder(model.Order{TenantID: "t1", StoreID: "s1", ExternalID: "55", Status: model.OrderConfirmed})

	got, err := m.Find(ctx, "unknown-tenant", "s1", "55")
	require.NoError(t, err)
	assert.Equal(t, model.OrderConfirmed, got.Status)
}

func TestMemorySettingsFallback(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.AgentSettings(ctx, "t1", "s1")
	assert.ErrorIs(t, err, ErrSettingsNotFound)

	tenantWide := model.DefaultSettings()
	tenantWide.StoreName = "tenant-wide"
	m.PutSettings("t1", "", tenantWide)

	got, err := m.AgentSettings(ctx, "t1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "tenant-wide", got.StoreName)

	storeSpecific := model.DefaultSettings()
	storeSpecific.StoreName = "store-specific"
	m.PutSettings("t1", "s1", storeSpecific)

	got, err = m.AgentSettings(ctx, "t1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "store-specific", got.StoreName)
}

func TestMemoryActiveEntriesLimit(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		m.PutKnowledge(model.KnowledgeEntry{
			TenantID: "t1", Title: "e", Kind: model.KnowledgeArticle,
			Priority: 5 - i, IsActive: true,
		})
	}

	entries, err := m.ActiveEntries(ctx, "t1", 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 1, entries[0].Priority)
}
