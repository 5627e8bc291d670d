// Package agent implements the conversational handoff and response
// orchestration engine: per-message orchestration, the AI/human handoff
// state machine, prompt assembly, tool execution and reply quality scoring.
package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/rasil-ai/support-agent-platform/internal/model"
	"github.com/rasil-ai/support-agent-platform/internal/store"
	"github.com/rasil-ai/support-agent-platform/pkg/logger"
)

const (
	defaultKnowledgeLimit  = 30
	defaultKnowledgeBudget = 6000
)

// KnowledgeRetriever selects and size-bounds knowledge entries for prompt
// injection. Articles and Q&A pairs are bounded independently: within each
// group entries are appended in priority order until the next rendered entry
// would cross the character budget, and the rest of that group is dropped.
type KnowledgeRetriever struct {
	source store.KnowledgeSource
	limit  int
	budget int
	log    *logger.Logger
}

// NewKnowledgeRetriever creates a retriever over the given source.
func NewKnowledgeRetriever(source store.KnowledgeSource, limit, budget int, log *logger.Logger) *KnowledgeRetriever {
	if limit <= 0 {
		limit = defaultKnowledgeLimit
	}
	if budget <= 0 {
		budget = defaultKnowledgeBudget
	}
	return &KnowledgeRetriever{source: source, limit: limit, budget: budget, log: log}
}

// Sections returns the rendered article lines and Q&A blocks for a tenant.
// A fetch failure degrades to empty sections; prompt building never fails on
// missing knowledge.
func (r *KnowledgeRetriever) Sections(ctx context.Context, tenantID string) (articles, qa []string) {
	entries, err := r.source.ActiveEntries(ctx, tenantID, r.limit)
	if err != nil {
		r.log.Warn("knowledge fetch failed, building prompt without knowledge",
			zap.String("tenant_id", tenantID), zap.Error(err))
		return nil, nil
	}

	var articleUsed, qaUsed int
	var articlesClosed, qaClosed bool

	for _, e := range entries {
		switch e.Kind {
		case model.KnowledgeArticle:
			if articlesClosed {
				continue
			}
			line := renderArticle(e)
			if articleUsed+len(line)+1 > r.budget {
				articlesClosed = true // group exhausted, rest is dropped
				continue
			}
			articles = append(articles, line)
			articleUsed += len(line) + 1
		case model.KnowledgeQNA:
			if qaClosed {
				continue
			}
			block := renderQA(e)
			if qaUsed+len(block)+1 > r.budget {
				qaClosed = true
				continue
			}
			qa = append(qa, block)
			qaUsed += len(block) + 1
		}
	}
	return articles, qa
}

func renderArticle(e model.KnowledgeEntry) string {
	return "[" + e.Title + "]: " + e.Content
}

func renderQA(e model.KnowledgeEntry) string {
	answer := e.Answer
	if answer == "" {
		answer = e.Content
	}
	return "Q: " + e.Title + "\nA: " + answer
}
