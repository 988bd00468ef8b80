package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

// New connects to Qdrant over gRPC and verifies the server is reachable.
func New(ctx context.Context, host string, grpcPort int) (*qdrant.Client, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: grpcPort,
	})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant failed: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := client.ListCollections(checkCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping qdrant failed: %w", err)
	}

	return client, nil
}

// EnsureCollection creates the collection with cosine distance if it
// does not exist yet. Existing collections are left untouched.
func EnsureCollection(ctx context.Context, client *qdrant.Client, name string, vectorSize int) error {
	existing, err := client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections failed: %w", err)
	}
	for _, c := range existing {
		if c == name {
			return nil
		}
	}

	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(vectorSize),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s failed: %w", name, err)
	}
	return nil
}
