package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	qdrantPlatform "pdfchat/internal/platform/qdrant"
)

// QdrantIndex stores chunk vectors in a Qdrant collection with cosine
// distance. Scores returned by Search are cosine similarities as
// reported by Qdrant.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	vectorSize int
}

func NewQdrantIndex(client *qdrant.Client, collection string, vectorSize int) *QdrantIndex {
	return &QdrantIndex{
		client:     client,
		collection: collection,
		vectorSize: vectorSize,
	}
}

func (q *QdrantIndex) Upsert(ctx context.Context, records []ChunkRecord, vectors [][]float32) error {
	if len(records) != len(vectors) {
		return errors.New("records and vectors length mismatch")
	}
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, rec := range records {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(rec.PointID),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"file_id":     rec.FileID,
				"file_name":   rec.FileName,
				"chunk_index": rec.ChunkIndex,
				"user_id":     int64(rec.UserID),
				"text":        rec.Text,
			}),
		}
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upsert points failed: %w", err)
	}
	return nil
}

func (q *QdrantIndex) Search(ctx context.Context, vector []float32, topK int, userID uint) ([]ScoredChunk, error) {
	if topK <= 0 {
		topK = 5
	}
	limit := uint64(topK)

	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		Filter:         userFilter(userID),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query points failed: %w", err)
	}

	results := make([]ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		chunk := ScoredChunk{Score: float64(hit.GetScore())}
		if id := hit.GetId(); id != nil {
			chunk.PointID = id.GetUuid()
		}
		payload := hit.GetPayload()
		if v, ok := payload["file_id"]; ok {
			chunk.FileID = v.GetStringValue()
		}
		if v, ok := payload["file_name"]; ok {
			chunk.FileName = v.GetStringValue()
		}
		if v, ok := payload["chunk_index"]; ok {
			chunk.ChunkIndex = int(v.GetIntegerValue())
		}
		if v, ok := payload["user_id"]; ok {
			chunk.UserID = uint(v.GetIntegerValue())
		}
		if v, ok := payload["text"]; ok {
			chunk.Text = v.GetStringValue()
		}
		results = append(results, chunk)
	}
	return results, nil
}

func (q *QdrantIndex) DeleteByFileID(ctx context.Context, fileID string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{keywordCondition("file_id", fileID)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("delete points by file failed: %w", err)
	}
	return nil
}

// Clear drops and recreates the collection.
func (q *QdrantIndex) Clear(ctx context.Context) error {
	if err := q.client.DeleteCollection(ctx, q.collection); err != nil {
		return fmt.Errorf("delete collection failed: %w", err)
	}
	if err := qdrantPlatform.EnsureCollection(ctx, q.client, q.collection, q.vectorSize); err != nil {
		return fmt.Errorf("recreate collection failed: %w", err)
	}
	return nil
}

func userFilter(userID uint) *qdrant.Filter {
	if userID == 0 {
		return nil
	}
	return &qdrant.Filter{
		Must: []*qdrant.Condition{integerCondition("user_id", int64(userID))},
	}
}

func keywordCondition(key, value string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: key,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func integerCondition(key string, value int64) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: key,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Integer{Integer: value},
				},
			},
		},
	}
}
