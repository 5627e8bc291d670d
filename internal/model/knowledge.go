package model

// KnowledgeKind distinguishes long-form articles from Q&A pairs.
type KnowledgeKind string

const (
	KnowledgeArticle KnowledgeKind = "article"
	KnowledgeQNA     KnowledgeKind = "qna"
)

// KnowledgeEntry is a merchant-authored fact used to ground generated
// replies. Read-only to the engine.
type KnowledgeEntry struct {
	TenantID string        `json:"tenant_id"`
	Title    string        `json:"title"`
	Content  string        `json:"content"`
	Answer   string        `json:"answer,omitempty"`
	Kind     KnowledgeKind `json:"kind"`
	Category string        `json:"category,omitempty"`
	Priority int           `json:"priority"` // lower = higher priority
	IsActive bool          `json:"is_active"`
	Keywords []string      `json:"keywords,omitempty"`
}
