package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"pdfchat/internal/intent"
	"pdfchat/internal/model"
	"pdfchat/internal/vectorstore"
)

func chunk(file, text string) vectorstore.ScoredChunk {
	return vectorstore.ScoredChunk{
		ChunkRecord: vectorstore.ChunkRecord{FileName: file, Text: text},
		Score:       0.9,
	}
}

func TestBuildIncludesContextAndQuery(t *testing.T) {
	b := NewBuilder(6000, 5)
	out := b.Build("what is the refund policy?", []vectorstore.ScoredChunk{
		chunk("policy.pdf", "Refunds within 30 days."),
		chunk("faq.pdf", "Contact support for refunds."),
	}, nil, intent.FactualQuestion)

	assert.Contains(t, out, "[Document 1 - policy.pdf]")
	assert.Contains(t, out, "[Document 2 - faq.pdf]")
	assert.Contains(t, out, "Refunds within 30 days.")
	assert.Contains(t, out, "**USER QUESTION:**\nwhat is the refund policy?")
	assert.Contains(t, out, "**ANSWER:**")
}

func TestBuildEmptyContextPlaceholder(t *testing.T) {
	b := NewBuilder(6000, 5)
	out := b.Build("hello", nil, nil, intent.GeneralChat)
	assert.Contains(t, out, "No relevant context found in the documents.")
}

func TestBuildHistoryLimitedToRecentTurns(t *testing.T) {
	b := NewBuilder(6000, 2)
	history := []model.ConversationTurn{
		{Query: "first question", Answer: "first answer"},
		{Query: "second question", Answer: "second answer"},
		{Query: "third question", Answer: "third answer"},
	}
	out := b.Build("next", nil, history, intent.FactualQuestion)

	assert.NotContains(t, out, "first question")
	assert.Contains(t, out, "USER: second question")
	assert.Contains(t, out, "ASSISTANT: third answer")
}

func TestBuildIntentHintAppended(t *testing.T) {
	b := NewBuilder(6000, 5)
	out := b.Build("summarize the report", nil, nil, intent.Summarization)
	assert.Contains(t, out, "**DETECTED INTENT:** summarization")
	assert.Contains(t, out, intent.Summarization.StyleHint())
}

func TestBuildContextBudgetDropsTail(t *testing.T) {
	b := NewBuilder(40, 5)
	big := strings.Repeat("alpha beta gamma delta ", 20)
	out := b.Build("q", []vectorstore.ScoredChunk{
		chunk("a.pdf", big),
		chunk("b.pdf", "short tail chunk"),
	}, nil, intent.FactualQuestion)

	// The first chunk is always kept; the tail chunk falls outside the budget.
	assert.Contains(t, out, "[Document 1 - a.pdf]")
	assert.NotContains(t, out, "short tail chunk")
}
