package vectorstore

import (
	"context"

	"github.com/poiesic/datachat/core"
)

// Result is a single ranked query hit.
type Result struct {
	ID       string
	Score    float32
	Metadata map[string]any
}

// Store is the narrow capability interface every vector backend
// implements. Implementations must be thread-safe; callers bound
// concurrency in front of the store, not inside it.
type Store interface {
	// Upsert writes triples into the index. Writing an existing ID
	// overwrites it, so replays are safe.
	Upsert(ctx context.Context, triples []core.Triple) error

	// Query returns up to topK results nearest to vector, restricted to
	// metadata matching filter, ordered by similarity score descending.
	Query(ctx context.Context, vector []float32, filter Filter, topK int) ([]Result, error)

	// Close releases backend resources.
	Close() error
}
