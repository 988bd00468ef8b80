package app

import (
	"context"
	"errors"
	"strings"

	"pdfchat/internal/ai"
	"pdfchat/internal/model"
)

// fakeEmbedder maps texts to small deterministic vectors so cosine
// ranking in the memory index is predictable: texts sharing a keyword
// land close together.
type fakeEmbedder struct {
	calls int
	fail  bool
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.fail {
		return nil, errors.New("embed failed")
	}
	f.calls++
	return embedText(text), nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if f.fail {
		return nil, errors.New("embed failed")
	}
	f.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = embedText(t)
	}
	return out, nil
}

func embedText(text string) []float32 {
	t := strings.ToLower(text)
	vec := make([]float32, 4)
	for i, kw := range []string{"alpha", "beta", "gamma", "delta"} {
		if strings.Contains(t, kw) {
			vec[i] = 1
		}
	}
	// Never return the zero vector: cosine against it is undefined.
	vec[0] += 0.01
	return vec
}

type fakeUserStore struct {
	users  []*model.User
	nextID uint
}

func (f *fakeUserStore) Create(user *model.User) error {
	f.nextID++
	user.ID = f.nextID
	f.users = append(f.users, user)
	return nil
}

func (f *fakeUserStore) GetByID(id uint) (*model.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetByUsername(username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetByEmail(email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

type fakeDocStore struct {
	docs   []model.Document
	nextID uint
}

func (f *fakeDocStore) Create(doc *model.Document) error {
	f.nextID++
	doc.ID = f.nextID
	f.docs = append(f.docs, *doc)
	return nil
}

func (f *fakeDocStore) ListByUserID(userID uint) ([]model.Document, error) {
	var out []model.Document
	for _, d := range f.docs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDocStore) GetByFileIDAndUserID(fileID string, userID uint) (*model.Document, error) {
	for _, d := range f.docs {
		if d.FileID == fileID && d.UserID == userID {
			doc := d
			return &doc, nil
		}
	}
	return nil, nil
}

func (f *fakeDocStore) DeleteByFileIDAndUserID(fileID string, userID uint) error {
	kept := f.docs[:0]
	for _, d := range f.docs {
		if d.FileID == fileID && d.UserID == userID {
			continue
		}
		kept = append(kept, d)
	}
	f.docs = kept
	return nil
}

func (f *fakeDocStore) DeleteByUserID(userID uint) error {
	kept := f.docs[:0]
	for _, d := range f.docs {
		if d.UserID == userID {
			continue
		}
		kept = append(kept, d)
	}
	f.docs = kept
	return nil
}

type fakeChunkStore struct {
	chunks []model.Chunk
}

func (f *fakeChunkStore) CreateBatch(chunks []model.Chunk) error {
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeChunkStore) DeleteByDocumentID(documentID uint) error {
	return f.DeleteByDocumentIDs([]uint{documentID})
}

func (f *fakeChunkStore) DeleteByDocumentIDs(documentIDs []uint) error {
	drop := make(map[uint]bool, len(documentIDs))
	for _, id := range documentIDs {
		drop[id] = true
	}
	kept := f.chunks[:0]
	for _, c := range f.chunks {
		if drop[c.DocumentID] {
			continue
		}
		kept = append(kept, c)
	}
	f.chunks = kept
	return nil
}

type fakeTurnStore struct {
	turns     []model.ConversationTurn
	listCalls int
}

func (f *fakeTurnStore) ListByUserID(userID uint, limit int) ([]model.ConversationTurn, error) {
	f.listCalls++
	var out []model.ConversationTurn
	for _, t := range f.turns {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeTurnStore) ListRecentByUserID(userID uint, limit int) ([]model.ConversationTurn, error) {
	all, _ := f.ListByUserID(userID, 0)
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (f *fakeTurnStore) DeleteByUserID(userID uint) error {
	kept := f.turns[:0]
	for _, t := range f.turns {
		if t.UserID == userID {
			continue
		}
		kept = append(kept, t)
	}
	f.turns = kept
	return nil
}

// fakeCache mirrors the Redis history cache, dirty marker included.
type fakeCache struct {
	history map[uint][]model.ConversationTurn
	dirty   map[uint]bool
	sets    int
	hits    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		history: make(map[uint][]model.ConversationTurn),
		dirty:   make(map[uint]bool),
	}
}

func (f *fakeCache) GetHistory(_ context.Context, userID uint) ([]model.ConversationTurn, bool, error) {
	turns, ok := f.history[userID]
	if ok {
		f.hits++
	}
	return turns, ok, nil
}

func (f *fakeCache) SetHistory(_ context.Context, userID uint, turns []model.ConversationTurn) error {
	f.sets++
	f.history[userID] = turns
	return nil
}

func (f *fakeCache) DeleteHistory(_ context.Context, userID uint) error {
	delete(f.history, userID)
	return nil
}

func (f *fakeCache) MarkDirty(_ context.Context, userID uint) error {
	f.dirty[userID] = true
	return nil
}

func (f *fakeCache) IsDirty(_ context.Context, userID uint) (bool, error) {
	return f.dirty[userID], nil
}

type fakePublisher struct {
	published []model.ConversationTurn
	fail      bool
}

func (f *fakePublisher) Publish(_ context.Context, turn model.ConversationTurn) error {
	if f.fail {
		return errors.New("publish failed")
	}
	f.published = append(f.published, turn)
	return nil
}

type fakeLLM struct {
	answer     string
	lastPrompt string
	calls      int
}

func (f *fakeLLM) Complete(_ context.Context, messages []ai.ChatMessage) (string, error) {
	f.calls++
	f.lastPrompt = messages[len(messages)-1].Content
	return f.answer, nil
}

func (f *fakeLLM) StreamComplete(_ context.Context, messages []ai.ChatMessage, onChunk func(string) error) (string, error) {
	f.calls++
	f.lastPrompt = messages[len(messages)-1].Content
	for _, part := range strings.SplitAfter(f.answer, " ") {
		if err := onChunk(part); err != nil {
			return "", err
		}
	}
	return f.answer, nil
}
