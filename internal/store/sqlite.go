package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rasil-ai/support-agent-platform/internal/model"
)

// SQLite is a durable store over a SQLite database. The orchestration
// sub-record and agent settings are stored as JSON columns.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and bootstraps) a SQLite-backed store at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying handle, mainly for seeding in tools and tests.
func (s *SQLite) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			store_id TEXT NOT NULL DEFAULT '',
			customer_id TEXT NOT NULL,
			customer_name TEXT NOT NULL DEFAULT '',
			channel_ref TEXT NOT NULL DEFAULT '',
			channel TEXT NOT NULL DEFAULT '',
			handler TEXT NOT NULL DEFAULT 'ai',
			message_count INTEGER NOT NULL DEFAULT 0,
			welcome_sent INTEGER NOT NULL DEFAULT 0,
			orchestration TEXT NOT NULL DEFAULT '{}',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			tenant_id TEXT NOT NULL,
			direction TEXT NOT NULL,
			sender TEXT NOT NULL DEFAULT '',
			content_type TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS knowledge_entries (
			tenant_id TEXT NOT NULL,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			answer TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			priority INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1,
			keywords TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			tenant_id TEXT NOT NULL,
			store_id TEXT NOT NULL DEFAULT '',
			external_id TEXT NOT NULL,
			reference_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			total REAL NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT '',
			item_count INTEGER NOT NULL DEFAULT 0,
			has_shipping INTEGER NOT NULL DEFAULT 0,
			shipping_city TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS agent_settings (
			tenant_id TEXT NOT NULL,
			store_id TEXT NOT NULL DEFAULT '',
			settings TEXT NOT NULL,
			PRIMARY KEY (tenant_id, store_id)
		)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}
	return nil
}

// Get retrieves a conversation by ID.
func (s *SQLite) Get(ctx context.Context, id string) (*model.Conversation, error) {
	var (
		conv          model.Conversation
		orchestration string
		welcomeSent   int
		createdAt     int64
		updatedAt     int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, store_id, customer_id, customer_name, channel_ref, channel,
		       handler, message_count, welcome_sent, orchestration, created_at, updated_at
		FROM conversations WHERE id = ?
	`, id).Scan(
		&conv.ID, &conv.TenantID, &conv.StoreID, &conv.CustomerID, &conv.CustomerName,
		&conv.ChannelRef, &conv.Channel, &conv.Handler, &conv.MessageCount,
		&welcomeSent, &orchestration, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting conversation: %w", err)
	}

	conv.WelcomeSent = welcomeSent != 0
	conv.CreatedAt = time.Unix(createdAt, 0)
	conv.UpdatedAt = time.Unix(updatedAt, 0)

	// A malformed orchestration blob degrades to zero values rather than
	// failing the load.
	if err := json.Unmarshal([]byte(orchestration), &conv.Orchestration); err != nil {
		conv.Orchestration = model.OrchestrationState{}
	}

	return &conv, nil
}

// Save upserts a conversation.
func (s *SQLite) Save(ctx context.Context, conv *model.Conversation) error {
	orchestration, err := json.Marshal(conv.Orchestration)
	if err != nil {
		return fmt.Errorf("marshaling orchestration state: %w", err)
	}

	now := time.Now()
	createdAt := conv.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	welcomeSent := 0
	if conv.WelcomeSent {
		welcomeSent = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, tenant_id, store_id, customer_id, customer_name, channel_ref,
		                           channel, handler, message_count, welcome_sent, orchestration,
		                           created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			customer_name = excluded.customer_name,
			handler = excluded.handler,
			message_count = excluded.message_count,
			welcome_sent = excluded.welcome_sent,
			orchestration = excluded.orchestration,
			updated_at = excluded.updated_at
	`, conv.ID, conv.TenantID, conv.StoreID, conv.CustomerID, conv.CustomerName,
		conv.ChannelRef, conv.Channel, conv.Handler, conv.MessageCount, welcomeSent,
		string(orchestration), createdAt.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}
	return nil
}

// Append records a message.
func (s *SQLite) Append(ctx context.Context, msg *model.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, tenant_id, direction, sender, content_type, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ConversationID, msg.TenantID, msg.Direction, msg.Sender,
		msg.ContentType, msg.Content, msg.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("appending message: %w", err)
	}
	return nil
}

// Recent returns up to limit most recent messages, oldest first.
func (s *SQLite) Recent(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, tenant_id, direction, sender, content_type, content, created_at
		FROM messages WHERE conversation_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var (
			msg       model.Message
			createdAt int64
		)
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.TenantID, &msg.Direction,
			&msg.Sender, &msg.ContentType, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.CreatedAt = time.Unix(createdAt, 0)
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	// Newest-first from the query; flip to oldest-first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// ActiveEntries returns active knowledge entries ordered by priority asc.
func (s *SQLite) ActiveEntries(ctx context.Context, tenantID string, limit int) ([]model.KnowledgeEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tenant_id, title, content, answer, kind, category, priority, is_active, keywords
		FROM knowledge_entries WHERE tenant_id = ? AND is_active = 1
		ORDER BY priority ASC LIMIT ?
	`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying knowledge: %w", err)
	}
	defer rows.Close()

	var entries []model.KnowledgeEntry
	for rows.Next() {
		var (
			e        model.KnowledgeEntry
			isActive int
			keywords string
		)
		if err := rows.Scan(&e.TenantID, &e.Title, &e.Content, &e.Answer, &e.Kind,
			&e.Category, &e.Priority, &isActive, &keywords); err != nil {
			return nil, fmt.Errorf("scanning knowledge entry: %w", err)
		}
		e.IsActive = isActive != 0
		_ = json.Unmarshal([]byte(keywords), &e.Keywords)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Find resolves an order reference with the four-way preference order.
func (s *SQLite) Find(ctx context.Context, tenantID, storeID, ref string) (*model.Order, error) {
	type clause struct {
		where string
		args  []any
	}
	clauses := []clause{
		{"tenant_id = ? AND external_id = ?", []any{tenantID, ref}},
		{"tenant_id = ? AND reference_id = ?", []any{tenantID, ref}},
	}
	if storeID != "" {
		clauses = append(clauses,
			clause{"store_id = ? AND external_id = ?", []any{storeID, ref}},
			clause{"store_id = ? AND reference_id = ?", []any{storeID, ref}},
		)
	}

	for _, c := range clauses {
		var (
			o           model.Order
			hasShipping int
		)
		err := s.db.QueryRowContext(ctx, `
			SELECT tenant_id, store_id, external_id, reference_id, status, total, currency,
			       item_count, has_shipping, shipping_city
			FROM orders WHERE `+c.where+` LIMIT 1
		`, c.args...).Scan(&o.TenantID, &o.StoreID, &o.ExternalID, &o.ReferenceID,
			&o.Status, &o.Total, &o.Currency, &o.ItemCount, &hasShipping, &o.ShippingCity)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("querying order: %w", err)
		}
		o.HasShipping = hasShipping != 0
		return &o, nil
	}
	return nil, ErrOrderNotFound
}

// AgentSettings resolves settings for a tenant/store pair, falling back to
// the tenant-level row.
func (s *SQLite) AgentSettings(ctx context.Context, tenantID, storeID string) (model.AgentSettings, error) {
	for _, sid := range []string{storeID, ""} {
		var raw string
		err := s.db.QueryRowContext(ctx, `
			SELECT settings FROM agent_settings WHERE tenant_id = ? AND store_id = ?
		`, tenantID, sid).Scan(&raw)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return model.AgentSettings{}, fmt.Errorf("querying settings: %w", err)
		}
		var settings model.AgentSettings
		if err := json.Unmarshal([]byte(raw), &settings); err != nil {
			return model.AgentSettings{}, fmt.Errorf("decoding settings: %w", err)
		}
		return settings, nil
	}
	return model.AgentSettings{}, ErrSettingsNotFound
}

// PutSettings stores settings for a tenant/store pair.
func (s *SQLite) PutSettings(ctx context.Context, tenantID, storeID string, settings model.AgentSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO agent_settings (tenant_id, store_id, settings) VALUES (?, ?, ?)
		ON CONFLICT(tenant_id, store_id) DO UPDATE SET settings = excluded.settings
	`, tenantID, storeID, string(raw))
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
