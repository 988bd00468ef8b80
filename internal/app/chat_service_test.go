package app

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/model"
	"pdfchat/internal/prompt"
	"pdfchat/internal/vectorstore"
)

func newChatService(index *vectorstore.MemoryIndex) (*ChatService, *fakeTurnStore, *fakePublisher, *fakeLLM) {
	turns := &fakeTurnStore{}
	publisher := &fakePublisher{}
	llm := &fakeLLM{answer: "Grounded answer."}
	svc := NewChatService(turns, publisher, nil, &fakeEmbedder{}, index, llm, prompt.NewBuilder(6000, 5), 5, 5)
	return svc, turns, publisher, llm
}

func newCachedChatService(index *vectorstore.MemoryIndex) (*ChatService, *fakeTurnStore, *fakeCache) {
	turns := &fakeTurnStore{}
	cache := newFakeCache()
	llm := &fakeLLM{answer: "Grounded answer."}
	svc := NewChatService(turns, &fakePublisher{}, cache, &fakeEmbedder{}, index, llm, prompt.NewBuilder(6000, 5), 5, 5)
	return svc, turns, cache
}

func indexChunks(t *testing.T, index *vectorstore.MemoryIndex, userID uint, fileName string, texts ...string) {
	t.Helper()
	emb := &fakeEmbedder{}
	records := make([]vectorstore.ChunkRecord, len(texts))
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		records[i] = vectorstore.ChunkRecord{
			PointID:    uuid.NewString(),
			FileID:     "file-" + fileName,
			FileName:   fileName,
			ChunkIndex: i,
			UserID:     userID,
			Text:       text,
		}
		vec, err := emb.Embed(context.Background(), text)
		require.NoError(t, err)
		vectors[i] = vec
	}
	require.NoError(t, index.Upsert(context.Background(), records, vectors))
}

func TestAskAnswersFromRetrievedChunks(t *testing.T) {
	index := vectorstore.NewMemoryIndex()
	indexChunks(t, index, 1, "doc.pdf", "alpha facts", "beta facts")
	svc, _, publisher, llm := newChatService(index)

	res, err := svc.Ask(context.Background(), AskInput{UserID: 1, Query: "tell me about alpha"})
	require.NoError(t, err)

	assert.Equal(t, "Grounded answer.", res.Answer)
	require.NotEmpty(t, res.Sources)
	assert.Equal(t, "doc.pdf", res.Sources[0].FileName)
	assert.Contains(t, llm.lastPrompt, "alpha facts")

	require.Len(t, publisher.published, 1)
	turn := publisher.published[0]
	assert.Equal(t, uint(1), turn.UserID)
	assert.Equal(t, "tell me about alpha", turn.Query)
	assert.Equal(t, "Grounded answer.", turn.Answer)
	assert.NotEmpty(t, turn.SourceRefs())
}

func TestAskNoDocumentsSkipsModel(t *testing.T) {
	svc, _, publisher, llm := newChatService(vectorstore.NewMemoryIndex())

	res, err := svc.Ask(context.Background(), AskInput{UserID: 1, Query: "anything"})
	require.NoError(t, err)

	assert.Equal(t, prompt.NoDocumentsAnswer, res.Answer)
	assert.Empty(t, res.Sources)
	assert.Equal(t, 0, llm.calls, "no model call without context")
	assert.Empty(t, publisher.published, "no turn recorded without context")
}

func TestAskAgenticIntentTunesRetrieval(t *testing.T) {
	index := vectorstore.NewMemoryIndex()
	texts := make([]string, 12)
	for i := range texts {
		texts[i] = "alpha section"
	}
	indexChunks(t, index, 1, "long.pdf", texts...)
	svc, _, _, llm := newChatService(index)

	res, err := svc.Ask(context.Background(), AskInput{UserID: 1, Query: "summarize the alpha report", UseAgentic: true})
	require.NoError(t, err)

	assert.Equal(t, "summarization", res.Intent)
	assert.Equal(t, 10, res.TopK)
	assert.Len(t, res.Sources, 10)
	assert.Contains(t, llm.lastPrompt, "**DETECTED INTENT:** summarization")
}

func TestAskPlainPathHasNoIntent(t *testing.T) {
	index := vectorstore.NewMemoryIndex()
	indexChunks(t, index, 1, "doc.pdf", "alpha facts")
	svc, _, _, llm := newChatService(index)

	res, err := svc.Ask(context.Background(), AskInput{UserID: 1, Query: "summarize the alpha report"})
	require.NoError(t, err)

	assert.Empty(t, res.Intent)
	assert.Equal(t, 5, res.TopK)
	assert.NotContains(t, llm.lastPrompt, "**DETECTED INTENT:**")
}

func TestAskScopedToUser(t *testing.T) {
	index := vectorstore.NewMemoryIndex()
	indexChunks(t, index, 2, "theirs.pdf", "alpha private")
	svc, _, _, _ := newChatService(index)

	res, err := svc.Ask(context.Background(), AskInput{UserID: 1, Query: "alpha?"})
	require.NoError(t, err)
	assert.Equal(t, prompt.NoDocumentsAnswer, res.Answer)
}

func TestAskValidation(t *testing.T) {
	svc, _, _, _ := newChatService(vectorstore.NewMemoryIndex())

	_, err := svc.Ask(context.Background(), AskInput{UserID: 0, Query: "q"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Ask(context.Background(), AskInput{UserID: 1, Query: "   "})
	assert.ErrorIs(t, err, ErrQueryEmpty)
}

func TestAskPublishFailure(t *testing.T) {
	index := vectorstore.NewMemoryIndex()
	indexChunks(t, index, 1, "doc.pdf", "alpha facts")
	svc, _, publisher, _ := newChatService(index)
	publisher.fail = true

	_, err := svc.Ask(context.Background(), AskInput{UserID: 1, Query: "alpha?"})
	assert.ErrorIs(t, err, ErrTurnEnqueue)
}

func TestAskIncludesRecentHistory(t *testing.T) {
	index := vectorstore.NewMemoryIndex()
	indexChunks(t, index, 1, "doc.pdf", "alpha facts")
	svc, turns, _, llm := newChatService(index)
	turns.turns = []model.ConversationTurn{
		{UserID: 1, Query: "earlier question", Answer: "earlier answer"},
	}

	_, err := svc.Ask(context.Background(), AskInput{UserID: 1, Query: "follow up on alpha"})
	require.NoError(t, err)

	assert.Contains(t, llm.lastPrompt, "USER: earlier question")
	assert.Contains(t, llm.lastPrompt, "ASSISTANT: earlier answer")
}

func TestAskSkipHistoryOmitsPriorTurns(t *testing.T) {
	index := vectorstore.NewMemoryIndex()
	indexChunks(t, index, 1, "doc.pdf", "alpha facts")
	svc, turns, _, llm := newChatService(index)
	turns.turns = []model.ConversationTurn{
		{UserID: 1, Query: "earlier question", Answer: "earlier answer"},
	}

	_, err := svc.Ask(context.Background(), AskInput{UserID: 1, Query: "alpha?", SkipHistory: true})
	require.NoError(t, err)

	assert.NotContains(t, llm.lastPrompt, "earlier question")
}

func TestStreamAskForwardsChunks(t *testing.T) {
	index := vectorstore.NewMemoryIndex()
	indexChunks(t, index, 1, "doc.pdf", "alpha facts")
	svc, _, publisher, _ := newChatService(index)

	var streamed strings.Builder
	res, err := svc.StreamAsk(context.Background(), AskInput{UserID: 1, Query: "alpha?"}, func(chunk string) error {
		streamed.WriteString(chunk)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "Grounded answer.", strings.TrimSpace(streamed.String()))
	assert.Equal(t, res.Answer, strings.TrimSpace(streamed.String()))
	assert.Len(t, publisher.published, 1)
}

func TestStreamAskNoDocumentsEmitsCannedAnswer(t *testing.T) {
	svc, _, _, _ := newChatService(vectorstore.NewMemoryIndex())

	var streamed strings.Builder
	res, err := svc.StreamAsk(context.Background(), AskInput{UserID: 1, Query: "anything"}, func(chunk string) error {
		streamed.WriteString(chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, prompt.NoDocumentsAnswer, streamed.String())
	assert.Equal(t, prompt.NoDocumentsAnswer, res.Answer)
}

func TestHistoryAndClear(t *testing.T) {
	svc, turns, _, _ := newChatService(vectorstore.NewMemoryIndex())
	turns.turns = []model.ConversationTurn{
		{UserID: 1, Query: "q1", Answer: "a1"},
		{UserID: 1, Query: "q2", Answer: "a2"},
		{UserID: 2, Query: "other", Answer: "other"},
	}

	history, err := svc.History(1, 50)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	require.NoError(t, svc.ClearHistory(1))

	history, err = svc.History(1, 50)
	require.NoError(t, err)
	assert.Empty(t, history)

	other, err := svc.History(2, 50)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestAskConfigurableDefaultTopK(t *testing.T) {
	index := vectorstore.NewMemoryIndex()
	indexChunks(t, index, 1, "doc.pdf", "alpha one", "alpha two", "alpha three")
	llm := &fakeLLM{answer: "Grounded answer."}
	svc := NewChatService(&fakeTurnStore{}, &fakePublisher{}, nil, &fakeEmbedder{}, index, llm, prompt.NewBuilder(6000, 5), 2, 5)

	res, err := svc.Ask(context.Background(), AskInput{UserID: 1, Query: "alpha?"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TopK)
	assert.Len(t, res.Sources, 2)

	// Intents with a dedicated width are unaffected by the default.
	res, err = svc.Ask(context.Background(), AskInput{UserID: 1, Query: "summarize alpha", UseAgentic: true})
	require.NoError(t, err)
	assert.Equal(t, 10, res.TopK)
}

func TestHistoryCacheHit(t *testing.T) {
	svc, turns, cache := newCachedChatService(vectorstore.NewMemoryIndex())
	turns.turns = []model.ConversationTurn{
		{UserID: 1, Query: "q1", Answer: "a1"},
		{UserID: 1, Query: "q2", Answer: "a2"},
	}

	first, err := svc.History(1, 50)
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Equal(t, 1, turns.listCalls)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.History(1, 50)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, turns.listCalls, "second read served from cache")
	assert.GreaterOrEqual(t, cache.hits, 1)
}

func TestHistoryCachesFullWindow(t *testing.T) {
	svc, turns, cache := newCachedChatService(vectorstore.NewMemoryIndex())
	turns.turns = []model.ConversationTurn{
		{UserID: 1, Query: "q1", Answer: "a1"},
		{UserID: 1, Query: "q2", Answer: "a2"},
		{UserID: 1, Query: "q3", Answer: "a3"},
	}

	// A narrow read must not pin the cache to its own limit.
	narrow, err := svc.History(1, 1)
	require.NoError(t, err)
	require.Len(t, narrow, 1)
	assert.Equal(t, "q3", narrow[0].Query)

	wide, err := svc.History(1, 50)
	require.NoError(t, err)
	assert.Len(t, wide, 3)
	assert.Equal(t, 1, turns.listCalls, "wide read served from the cached window")
	assert.Len(t, cache.history[1], 3)
}

func TestHistoryDirtyBypassesCache(t *testing.T) {
	svc, turns, cache := newCachedChatService(vectorstore.NewMemoryIndex())
	turns.turns = []model.ConversationTurn{
		{UserID: 1, Query: "fresh", Answer: "fresh"},
	}
	cache.history[1] = []model.ConversationTurn{{UserID: 1, Query: "stale", Answer: "stale"}}
	cache.dirty[1] = true

	history, err := svc.History(1, 50)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "fresh", history[0].Query)
	assert.Equal(t, 1, turns.listCalls)
	assert.Equal(t, 0, cache.sets, "no refill while the dirty marker is up")
}

func TestAskInvalidatesHistoryCache(t *testing.T) {
	index := vectorstore.NewMemoryIndex()
	indexChunks(t, index, 1, "doc.pdf", "alpha facts")
	svc, _, cache := newCachedChatService(index)
	cache.history[1] = []model.ConversationTurn{{UserID: 1, Query: "old", Answer: "old"}}

	_, err := svc.Ask(context.Background(), AskInput{UserID: 1, Query: "alpha?", SkipHistory: true})
	require.NoError(t, err)

	assert.True(t, cache.dirty[1], "new turn marks the cache dirty")
	_, ok := cache.history[1]
	assert.False(t, ok, "cached history dropped on write")
}

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 0.123, roundScore(0.12345))
	assert.Equal(t, 0.9, roundScore(0.9))
	assert.Equal(t, 1.0, roundScore(0.99999))
}
