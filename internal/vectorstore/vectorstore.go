package vectorstore

import "context"

// ChunkRecord is the unit of indexing. The text and citation metadata
// travel with the vector as payload so search results need no second
// lookup.
type ChunkRecord struct {
	PointID    string
	FileID     string
	FileName   string
	ChunkIndex int
	UserID     uint
	Text       string
}

// ScoredChunk is a search hit with its cosine similarity score.
type ScoredChunk struct {
	ChunkRecord
	Score float64
}

// Index abstracts the vector database. Embedding generation happens
// elsewhere; implementations only store vectors and run nearest-neighbor
// search over them.
type Index interface {
	Upsert(ctx context.Context, records []ChunkRecord, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, topK int, userID uint) ([]ScoredChunk, error)
	DeleteByFileID(ctx context.Context, fileID string) error
	Clear(ctx context.Context) error
}
