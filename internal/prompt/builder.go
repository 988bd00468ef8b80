// Package prompt assembles the grounded prompt sent to the chat model.
package prompt

import (
	"fmt"
	"strings"

	"pdfchat/internal/intent"
	"pdfchat/internal/model"
	"pdfchat/internal/pkg/tokencount"
	"pdfchat/internal/vectorstore"
)

// NoDocumentsAnswer is returned without calling the model when retrieval
// finds nothing to ground an answer on.
const NoDocumentsAnswer = "I don't have any documents uploaded yet. Please upload a PDF document first so I can answer your questions about it."

const instructions = `**INSTRUCTIONS:**
1. Answer the question based primarily on the provided context from the documents.
2. If the context contains relevant information, use it to formulate your answer.
3. If the context doesn't fully answer the question, acknowledge what information is available and what is missing.
4. Be concise but thorough in your explanations.
5. If you're citing specific information, you can reference which document it came from.
6. Maintain conversation continuity by considering the chat history.
7. If the question is not related to the documents, politely redirect to document-related queries.`

// Builder renders retrieval results, history and the user query into a
// single prompt, trimming context to a token budget.
type Builder struct {
	maxContextTokens int
	maxHistoryTurns  int
}

func NewBuilder(maxContextTokens, maxHistoryTurns int) *Builder {
	if maxContextTokens <= 0 {
		maxContextTokens = 6000
	}
	if maxHistoryTurns <= 0 {
		maxHistoryTurns = 5
	}
	return &Builder{maxContextTokens: maxContextTokens, maxHistoryTurns: maxHistoryTurns}
}

// Build assembles the full prompt. Chunks arrive ordered by relevance; the
// lowest-ranked ones are dropped first when the context budget is exceeded.
func (b *Builder) Build(query string, chunks []vectorstore.ScoredChunk, history []model.ConversationTurn, it intent.Intent) string {
	var sb strings.Builder
	sb.WriteString("You are an intelligent AI assistant specialized in answering questions based on PDF documents.\n")
	sb.WriteString("Your task is to provide accurate, helpful, and contextual answers based on the information provided.\n\n")

	sb.WriteString("**CONTEXT FROM DOCUMENTS:**\n")
	sb.WriteString(b.renderContext(chunks))
	sb.WriteString("\n\n**CONVERSATION HISTORY:**\n")
	sb.WriteString(renderHistory(history, b.maxHistoryTurns))
	sb.WriteString("\n**USER QUESTION:**\n")
	sb.WriteString(query)
	sb.WriteString("\n\n")
	sb.WriteString(instructions)

	if it != "" {
		sb.WriteString("\n\n**DETECTED INTENT:** ")
		sb.WriteString(string(it))
		sb.WriteString("\n")
		sb.WriteString(it.StyleHint())
	}

	sb.WriteString("\n\n**ANSWER:**")
	return sb.String()
}

func (b *Builder) renderContext(chunks []vectorstore.ScoredChunk) string {
	if len(chunks) == 0 {
		return "No relevant context found in the documents."
	}

	var parts []string
	used := 0
	for i, c := range chunks {
		block := fmt.Sprintf("[Document %d - %s]\n%s\n", i+1, c.FileName, c.Text)
		cost := tokencount.Count(block)
		if used+cost > b.maxContextTokens && len(parts) > 0 {
			break
		}
		parts = append(parts, block)
		used += cost
	}
	return strings.Join(parts, "\n")
}

func renderHistory(history []model.ConversationTurn, maxTurns int) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}
	var sb strings.Builder
	for _, turn := range history {
		sb.WriteString("USER: ")
		sb.WriteString(turn.Query)
		sb.WriteString("\n")
		sb.WriteString("ASSISTANT: ")
		sb.WriteString(turn.Answer)
		sb.WriteString("\n")
	}
	return sb.String()
}
