package app

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"pdfchat/internal/ai"
	"pdfchat/internal/intent"
	"pdfchat/internal/model"
	"pdfchat/internal/prompt"
	"pdfchat/internal/vectorstore"
)

var (
	ErrQueryEmpty  = errors.New("query is empty")
	ErrTurnEnqueue = errors.New("turn enqueue failed")
)

// LLMClient is the completion surface of the model client.
type LLMClient interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
	StreamComplete(ctx context.Context, messages []ai.ChatMessage, onChunk func(chunk string) error) (string, error)
}

// AsyncTurnPublisher hands a finished turn to the persistence queue.
type AsyncTurnPublisher interface {
	Publish(ctx context.Context, turn model.ConversationTurn) error
}

// HistoryCache mirrors the Redis-backed cache. Nil-safe: the service
// works without one.
type HistoryCache interface {
	GetHistory(ctx context.Context, userID uint) ([]model.ConversationTurn, bool, error)
	SetHistory(ctx context.Context, userID uint, turns []model.ConversationTurn) error
	DeleteHistory(ctx context.Context, userID uint) error
	MarkDirty(ctx context.Context, userID uint) error
	IsDirty(ctx context.Context, userID uint) (bool, error)
}

// TurnStore is the subset of the turn repository used here.
type TurnStore interface {
	ListByUserID(userID uint, limit int) ([]model.ConversationTurn, error)
	ListRecentByUserID(userID uint, limit int) ([]model.ConversationTurn, error)
	DeleteByUserID(userID uint) error
}

// ChatService answers queries over the user's indexed documents:
// classify, retrieve, prompt, complete, cite, enqueue for persistence.
type ChatService struct {
	turns           TurnStore
	publisher       AsyncTurnPublisher
	historyCache    HistoryCache
	embedder        Embedder
	index           vectorstore.Index
	llm             LLMClient
	builder         *prompt.Builder
	defaultTopK     int
	maxHistoryTurns int
}

// maxHistoryFetch bounds the window read from the store and cached in
// Redis; per-request limits trim on the way out.
const maxHistoryFetch = 200

type AskInput struct {
	UserID     uint
	Query      string
	UseAgentic bool
	// SkipHistory leaves prior turns out of the prompt.
	SkipHistory bool
}

type AskResult struct {
	Answer  string            `json:"answer"`
	Sources []model.SourceRef `json:"sources"`
	Intent  string            `json:"intent,omitempty"`
	TopK    int               `json:"top_k"`
}

func NewChatService(
	turns TurnStore,
	publisher AsyncTurnPublisher,
	historyCache HistoryCache,
	embedder Embedder,
	index vectorstore.Index,
	llm LLMClient,
	builder *prompt.Builder,
	defaultTopK int,
	maxHistoryTurns int,
) *ChatService {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	if maxHistoryTurns <= 0 {
		maxHistoryTurns = 5
	}
	return &ChatService{
		turns:           turns,
		publisher:       publisher,
		historyCache:    historyCache,
		embedder:        embedder,
		index:           index,
		llm:             llm,
		builder:         builder,
		defaultTopK:     defaultTopK,
		maxHistoryTurns: maxHistoryTurns,
	}
}

// topK resolves the retrieval width: intents with a dedicated width
// win, everything else uses the configured default.
func (s *ChatService) topK(detected intent.Intent) int {
	return detected.TopKOr(s.defaultTopK)
}

func (s *ChatService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	query, detected, err := s.prepare(input)
	if err != nil {
		return nil, err
	}

	hits, err := s.retrieve(ctx, query, detected, input.UserID)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return &AskResult{
			Answer:  prompt.NoDocumentsAnswer,
			Sources: []model.SourceRef{},
			Intent:  string(detected),
			TopK:    s.topK(detected),
		}, nil
	}

	var history []model.ConversationTurn
	if !input.SkipHistory {
		history, err = s.recentTurns(ctx, input.UserID)
		if err != nil {
			return nil, err
		}
	}

	built := s.builder.Build(query, hits, history, detected)
	answer, err := s.llm.Complete(ctx, []ai.ChatMessage{{Role: "user", Content: built}})
	if err != nil {
		return nil, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = "The model returned an empty response."
	}

	sources := sourceRefs(hits)
	if err := s.recordTurn(ctx, input.UserID, query, answer, detected, sources); err != nil {
		return nil, err
	}

	return &AskResult{
		Answer:  answer,
		Sources: sources,
		Intent:  string(detected),
		TopK:    s.topK(detected),
	}, nil
}

// StreamAsk behaves like Ask but forwards completion deltas to onChunk
// as they arrive. The returned result carries the full answer.
func (s *ChatService) StreamAsk(ctx context.Context, input AskInput, onChunk func(chunk string) error) (*AskResult, error) {
	query, detected, err := s.prepare(input)
	if err != nil {
		return nil, err
	}

	hits, err := s.retrieve(ctx, query, detected, input.UserID)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		if err := onChunk(prompt.NoDocumentsAnswer); err != nil {
			return nil, err
		}
		return &AskResult{
			Answer:  prompt.NoDocumentsAnswer,
			Sources: []model.SourceRef{},
			Intent:  string(detected),
			TopK:    s.topK(detected),
		}, nil
	}

	var history []model.ConversationTurn
	if !input.SkipHistory {
		history, err = s.recentTurns(ctx, input.UserID)
		if err != nil {
			return nil, err
		}
	}

	built := s.builder.Build(query, hits, history, detected)
	answer, err := s.llm.StreamComplete(ctx, []ai.ChatMessage{{Role: "user", Content: built}}, onChunk)
	if err != nil {
		return nil, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = "The model returned an empty response."
	}

	sources := sourceRefs(hits)
	if err := s.recordTurn(ctx, input.UserID, query, answer, detected, sources); err != nil {
		return nil, err
	}

	return &AskResult{
		Answer:  answer,
		Sources: sources,
		Intent:  string(detected),
		TopK:    s.topK(detected),
	}, nil
}

func (s *ChatService) History(userID uint, limit int) ([]model.ConversationTurn, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}

	ctx := context.Background()
	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, userID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, userID); cacheErr == nil && hit {
				return trimTurns(cached, limit), nil
			}
		}
	}

	// Fetch the full window so the cache never holds a view truncated
	// by one request's limit; trim per request on the way out.
	turns, err := s.turns.ListByUserID(userID, maxHistoryFetch)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, userID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, userID, turns)
		}
	}
	return trimTurns(turns, limit), nil
}

func (s *ChatService) ClearHistory(userID uint) error {
	if userID == 0 {
		return ErrInvalidInput
	}
	if err := s.turns.DeleteByUserID(userID); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(context.Background(), userID)
	}
	return nil
}

func (s *ChatService) prepare(input AskInput) (string, intent.Intent, error) {
	if input.UserID == 0 {
		return "", "", ErrInvalidInput
	}
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return "", "", ErrQueryEmpty
	}

	// Intent-driven retrieval is opt-in; the plain path uses the
	// default breadth and no style hint.
	var detected intent.Intent
	if input.UseAgentic {
		detected = intent.Classify(query)
	}
	return query, detected, nil
}

func (s *ChatService) retrieve(ctx context.Context, query string, detected intent.Intent, userID uint) ([]vectorstore.ScoredChunk, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.index.Search(ctx, vector, s.topK(detected), userID)
}

func (s *ChatService) recentTurns(ctx context.Context, userID uint) ([]model.ConversationTurn, error) {
	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, userID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, userID); cacheErr == nil && hit {
				return trimTurns(cached, s.maxHistoryTurns), nil
			}
		}
	}
	return s.turns.ListRecentByUserID(userID, s.maxHistoryTurns)
}

func (s *ChatService) recordTurn(ctx context.Context, userID uint, query, answer string, detected intent.Intent, sources []model.SourceRef) error {
	if s.publisher == nil {
		return ErrTurnEnqueue
	}

	turn := model.ConversationTurn{
		UserID:    userID,
		Query:     query,
		Answer:    answer,
		Intent:    string(detected),
		CreatedAt: time.Now(),
	}
	turn.SetSourceRefs(sources)

	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, userID)
		_ = s.historyCache.DeleteHistory(ctx, userID)
	}
	if err := s.publisher.Publish(ctx, turn); err != nil {
		return ErrTurnEnqueue
	}
	return nil
}

func sourceRefs(hits []vectorstore.ScoredChunk) []model.SourceRef {
	refs := make([]model.SourceRef, len(hits))
	for i, hit := range hits {
		refs[i] = model.SourceRef{
			FileName:       hit.FileName,
			ChunkIndex:     hit.ChunkIndex,
			RelevanceScore: roundScore(hit.Score),
		}
	}
	return refs
}

// roundScore keeps three decimal places, enough for display.
func roundScore(s float64) float64 {
	return math.Round(s*1000) / 1000
}

func trimTurns(turns []model.ConversationTurn, limit int) []model.ConversationTurn {
	if limit <= 0 || limit >= len(turns) {
		return turns
	}
	return turns[len(turns)-limit:]
}
