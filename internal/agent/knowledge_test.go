package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasil-ai/support-agent-platform/internal/model"
	"github.com/rasil-ai/support-agent-platform/internal/store"
	"github.com/rasil-ai/support-agent-platform/pkg/logger"
)

func article(tenant, title, content string, priority int) model.KnowledgeEntry {
	return model.KnowledgeEntry{
		TenantID: tenant,
		Title:    title,
		Content:  content,
		Kind:     model.KnowledgeArticle,
		Priority: priority,
		IsActive: true,
	}
}

func qna(tenant, question, answer string, priority int) model.KnowledgeEntry {
	return model.KnowledgeEntry{
		TenantID: tenant,
		Title:    question,
		Answer:   answer,
		Kind:     model.KnowledgeQNA,
		Priority: priority,
		IsActive: true,
	}
}

func TestSectionsRendering(t *testing.T) {
	mem := store.NewMemory()
	mem.PutKnowledge(article("t1", "Returns", "14 days, unused items only.", 1))
	mem.PutKnowledge(qna("t1", "Do you ship to Jeddah?", "Yes, 2-3 days.", 2))

	r := NewKnowledgeRetriever(mem, 0, 0, logger.NewNop())
	articles, qa := r.Sections(context.Background(), "t1")

	require.Len(t, articles, 1)
	assert.Equal(t, "[Returns]: 14 days, unused items only.", articles[0])
	require.Len(t, qa, 1)
	assert.Equal(t, "Q: Do you ship to Jeddah?\nA: Yes, 2-3 days.", qa[0])
}

func TestSectionsPriorityOrderAndInactive(t *testing.T) {
	mem := store.NewMemory()
	mem.PutKnowledge(article("t1", "B", "second", 5))
	mem.PutKnowledge(article("t1", "A", "first", 1))
	mem.PutKnowledge(model.KnowledgeEntry{
		TenantID: "t1", Title: "off", Content: "hidden",
		Kind: model.KnowledgeArticle, IsActive: false,
	})

	r := NewKnowledgeRetriever(mem, 0, 0, logger.NewNop())
	articles, _ := r.Sections(context.Background(), "t1")

	require.Len(t, articles, 2)
	assert.True(t, strings.HasPrefix(articles[0], "[A]"))
	assert.True(t, strings.HasPrefix(articles[1], "[B]"))
}

func TestSectionsBudgetClosesGroupAtFirstOverflow(t *testing.T) {
	mem := store.NewMemory()
	// Each rendered article is "[Tn]: " + content. Budget fits the first
	// entry; the second overflows so the group closes and the third, smaller
	// entry is dropped too. No entry is ever truncated mid-text.
	mem.PutKnowledge(article("t1", "T1", strings.Repeat("a", 40), 1))
	mem.PutKnowledge(article("t1", "T2", strings.Repeat("b", 40), 2))
	mem.PutKnowledge(article("t1", "T3", "tiny", 3))

	budget := len("[T1]: "+strings.Repeat("a", 40)) + 1
	r := NewKnowledgeRetriever(mem, 0, budget, logger.NewNop())
	articles, _ := r.Sections(context.Background(), "t1")

	require.Len(t, articles, 1)
	assert.Contains(t, articles[0], "[T1]")
}

func TestSectionsBudgetsAreIndependent(t *testing.T) {
	mem := store.NewMemory()
	big := strings.Repeat("x", 100)
	mem.PutKnowledge(article("t1", "A1", big, 1))
	mem.PutKnowledge(article("t1", "A2", big, 2))
	mem.PutKnowledge(qna("t1", "Q1", "short answer", 3))

	// Budget admits one big article; the Q&A group has its own budget and is
	// unaffected by the closed article group.
	budget := len("[A1]: "+big) + 1
	r := NewKnowledgeRetriever(mem, 0, budget, logger.NewNop())
	articles, qa := r.Sections(context.Background(), "t1")

	assert.Len(t, articles, 1)
	assert.Len(t, qa, 1)
}

func TestSectionsQNAFallsBackToContent(t *testing.T) {
	mem := store.NewMemory()
	e := qna("t1", "How long is delivery?", "", 1)
	e.Content = "Usually 3 days."
	mem.PutKnowledge(e)

	r := NewKnowledgeRetriever(mem, 0, 0, logger.NewNop())
	_, qa := r.Sections(context.Background(), "t1")

	require.Len(t, qa, 1)
	assert.Equal(t, "Q: How long is delivery?\nA: Usually 3 days.", qa[0])
}

func TestSectionsFetchFailureDegrades(t *testing.T) {
	r := NewKnowledgeRetriever(failingKnowledge{}, 0, 0, logger.NewNop())
	articles, qa := r.Sections(context.Background(), "t1")

	assert.Nil(t, articles)
	assert.Nil(t, qa)
}
