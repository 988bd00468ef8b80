package vectorstore

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is a brute-force cosine similarity index. It backs tests
// and local development where no Qdrant server is available.
type MemoryIndex struct {
	mu      sync.RWMutex
	records []ChunkRecord
	vectors [][]float32
}

func NewMemoryIndex() *MemoryIndex { return &MemoryIndex{} }

func (m *MemoryIndex) Upsert(_ context.Context, records []ChunkRecord, vectors [][]float32) error {
	if len(records) != len(vectors) {
		return errors.New("records and vectors length mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	m.vectors = append(m.vectors, vectors...)
	return nil
}

func (m *MemoryIndex) Search(_ context.Context, vector []float32, topK int, userID uint) ([]ScoredChunk, error) {
	if topK <= 0 {
		topK = 5
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	scored := make([]ScoredChunk, 0, len(m.records))
	for i, rec := range m.records {
		if userID != 0 && rec.UserID != userID {
			continue
		}
		scored = append(scored, ScoredChunk{
			ChunkRecord: rec,
			Score:       cosineSimilarity(vector, m.vectors[i]),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

func (m *MemoryIndex) DeleteByFileID(_ context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	keptRecords := m.records[:0]
	keptVectors := m.vectors[:0]
	for i, rec := range m.records {
		if rec.FileID == fileID {
			continue
		}
		keptRecords = append(keptRecords, rec)
		keptVectors = append(keptVectors, m.vectors[i])
	}
	m.records = keptRecords
	m.vectors = keptVectors
	return nil
}

func (m *MemoryIndex) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	m.vectors = nil
	return nil
}

// Len reports the number of indexed chunks.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
