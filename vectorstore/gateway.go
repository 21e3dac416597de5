package vectorstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/datachat/ai"
	"github.com/poiesic/datachat/core"
)

// DefaultUpsertBatchSize is the number of triples written per store call.
const DefaultUpsertBatchSize = 100

// Gateway fronts a Store with chunked upserts and scoped retrieval.
type Gateway struct {
	store           Store
	embedder        ai.Embedder
	upsertBatchSize int
	logger          *slog.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway) error

// WithUpsertBatchSize sets the number of triples per upsert call.
// Default is DefaultUpsertBatchSize.
func WithUpsertBatchSize(size int) GatewayOption {
	return func(g *Gateway) error {
		if size < 1 {
			size = 1
		}
		g.upsertBatchSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
		return nil
	}
}

// NewGateway creates a gateway over the given store and embedder.
func NewGateway(store Store, embedder ai.Embedder, opts ...GatewayOption) (*Gateway, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	g := &Gateway{
		store:           store,
		embedder:        embedder,
		upsertBatchSize: DefaultUpsertBatchSize,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Upsert writes triples to the store in chunks of the configured batch
// size. Chunks are written sequentially; a failure leaves earlier chunks
// in place, which is safe because replaying the whole upsert is
// idempotent by ID.
func (g *Gateway) Upsert(ctx context.Context, triples []core.Triple) error {
	for start := 0; start < len(triples); start += g.upsertBatchSize {
		end := min(start+g.upsertBatchSize, len(triples))
		if err := g.store.Upsert(ctx, triples[start:end]); err != nil {
			g.logger.Error("upsert chunk failed", "offset", start, "size", end-start, "err", err)
			return fmt.Errorf("upsert chunk at %d: %w", start, err)
		}
	}
	g.logger.Debug("upserted triples", "count", len(triples))
	return nil
}

// Search embeds the query string and returns up to topK scoped results.
// The scope clause is always part of the filter, whether or not derived
// clauses are present.
func (g *Gateway) Search(ctx context.Context, query, scopeID string, clauses []Clause, topK int) ([]Result, error) {
	vector, err := g.embedder.EmbedText(ctx, query)
	if err != nil {
		g.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}

	results, err := g.store.Query(ctx, vector, ScopedFilter(scopeID, clauses), topK)
	if err != nil {
		g.logger.Error("error querying vector store", "scope", scopeID, "err", err)
		return nil, err
	}
	return results, nil
}
