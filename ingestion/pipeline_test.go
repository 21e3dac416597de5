package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/datachat/ai/mock"
	"github.com/poiesic/datachat/core"
	"github.com/poiesic/datachat/extract"
	"github.com/poiesic/datachat/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureStore records upserted triples for assertions.
type captureStore struct {
	mu      sync.Mutex
	triples []core.Triple
}

func (s *captureStore) Upsert(ctx context.Context, triples []core.Triple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triples = append(s.triples, triples...)
	return nil
}

func (s *captureStore) Query(ctx context.Context, vector []float32, filter vectorstore.Filter, topK int) ([]vectorstore.Result, error) {
	return nil, nil
}

func (s *captureStore) Close() error { return nil }

// captureFiles records file refs for assertions.
type captureFiles struct {
	refs []core.FileRef
}

func (f *captureFiles) AddFileRef(ctx context.Context, ref core.FileRef) error {
	f.refs = append(f.refs, ref)
	return nil
}

func newTestPipeline(t *testing.T, provider *mock.MockProvider, config Config, opts ...Option) (*Pipeline, *captureStore, *captureFiles) {
	t.Helper()

	store := &captureStore{}
	files := &captureFiles{}
	gateway, err := vectorstore.NewGateway(store, provider.Embedder())
	require.NoError(t, err)

	opts = append([]Option{WithConfig(config), WithFileRecorder(files)}, opts...)
	pipeline, err := NewPipeline(gateway, provider, opts...)
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	return pipeline, store, files
}

func fastConfig(opts ...ConfigOption) Config {
	base := []ConfigOption{WithBaseBackoff(time.Millisecond)}
	return DefaultConfig(append(base, opts...)...)
}

func makeRecords(n int) []core.Record {
	records := make([]core.Record, n)
	for i := range records {
		records[i] = core.Record{"city": fmt.Sprintf("city-%d", i), "price": int64(100000 + i)}
	}
	return records
}

func TestEmbedAllPreservesRecordOrder(t *testing.T) {
	provider := mock.NewMockProvider()
	pipeline, _, _ := newTestPipeline(t, provider,
		fastConfig(WithBatchSize(4), WithConcurrency(3)))

	records := makeRecords(25)
	triples, err := pipeline.EmbedAll(context.Background(), records, "conv-1", "file-a", "data.csv")
	require.NoError(t, err)
	require.Len(t, triples, 25)

	for i, triple := range triples {
		assert.Equal(t, core.TripleID("conv-1", "file-a", i), triple.ID)
		assert.Equal(t, i, triple.Metadata[core.MetaChunkIndex])
		assert.Equal(t, records[i]["city"], triple.Metadata["city"])
		assert.Equal(t, "conv-1", triple.Metadata[core.MetaScopeID])
		assert.Equal(t, "file-a", triple.Metadata[core.MetaFileID])
		assert.Equal(t, "data.csv", triple.Metadata[core.MetaSource])
		assert.NotEmpty(t, triple.Vector)
	}
}

func TestEmbedAllDeterministicAcrossBatching(t *testing.T) {
	records := makeRecords(10)

	embed := func(batchSize, concurrency int) []core.Triple {
		pipeline, _, _ := newTestPipeline(t, mock.NewMockProvider(),
			fastConfig(WithBatchSize(batchSize), WithConcurrency(concurrency)))
		triples, err := pipeline.EmbedAll(context.Background(), records, "conv-1", "file-a", "data.csv")
		require.NoError(t, err)
		return triples
	}

	assert.Equal(t, embed(10, 1), embed(3, 4))
}

func TestEmbedAllEmptyInput(t *testing.T) {
	provider := mock.NewMockProvider()
	pipeline, _, _ := newTestPipeline(t, provider, fastConfig())

	triples, err := pipeline.EmbedAll(context.Background(), nil, "conv-1", "file-a", "data.csv")
	require.NoError(t, err)
	assert.Empty(t, triples)
	assert.Zero(t, provider.MockEmbedder.CallCount())
}

func TestEmbedAllRetriesTransientFailures(t *testing.T) {
	provider := mock.NewMockProvider()

	var mu sync.Mutex
	failures := 2
	provider.MockEmbedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		mu.Lock()
		defer mu.Unlock()
		if failures > 0 {
			failures--
			return nil, errors.New("rate limited")
		}
		embeddings := make([][]float32, len(texts))
		for i := range embeddings {
			embeddings[i] = []float32{1, 0}
		}
		return embeddings, nil
	}

	pipeline, _, _ := newTestPipeline(t, provider,
		fastConfig(WithBatchSize(10), WithConcurrency(1), WithMaxRetries(3)))

	triples, err := pipeline.EmbedAll(context.Background(), makeRecords(5), "conv-1", "file-a", "data.csv")
	require.NoError(t, err)
	require.Len(t, triples, 5)
	assert.Equal(t, 0, triples[0].Metadata[core.MetaChunkIndex])
	assert.Equal(t, 4, triples[4].Metadata[core.MetaChunkIndex])
}

func TestEmbedAllFailsWhenRetriesExhausted(t *testing.T) {
	provider := mock.NewMockProvider()
	provider.MockEmbedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("provider down")
	}

	pipeline, _, _ := newTestPipeline(t, provider,
		fastConfig(WithBatchSize(2), WithConcurrency(2), WithMaxRetries(2)))

	triples, err := pipeline.EmbedAll(context.Background(), makeRecords(6), "conv-1", "file-a", "data.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingProvider)
	assert.Nil(t, triples)
}

func TestEmbedAllFailsFastOnEmbeddingCountMismatch(t *testing.T) {
	provider := mock.NewMockProvider()
	calls := 0
	provider.MockEmbedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		return [][]float32{{1, 0}}, nil
	}

	pipeline, _, _ := newTestPipeline(t, provider,
		fastConfig(WithBatchSize(10), WithConcurrency(1), WithMaxRetries(5)))

	triples, err := pipeline.EmbedAll(context.Background(), makeRecords(3), "conv-1", "file-a", "data.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingProvider)
	assert.Nil(t, triples)
	assert.Equal(t, 1, calls, "a short embedding batch is not a transient failure")
}

func TestIngestRejectsUnsupportedFormat(t *testing.T) {
	pipeline, store, _ := newTestPipeline(t, mock.NewMockProvider(), fastConfig())

	count, err := pipeline.Ingest(context.Background(), "conv-1", "notes.txt", "text/plain", []byte("hello"))
	assert.ErrorIs(t, err, extract.ErrUnsupportedFormat)
	assert.Zero(t, count)
	assert.Empty(t, store.triples)
}

func TestIngestCSVEndToEnd(t *testing.T) {
	csv := "city,bedrooms,price\nBerlin,3,500000\nHamburg,2,300000\n"
	pipeline, store, files := newTestPipeline(t, mock.NewMockProvider(),
		fastConfig(WithBatchSize(1), WithConcurrency(2)))

	count, err := pipeline.Ingest(context.Background(), "conv-1", "listings.csv", "text/csv", []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, store.triples, 2)

	fileID := core.FileIDFromContent([]byte(csv))
	byIndex := map[int]core.Triple{}
	for _, triple := range store.triples {
		byIndex[triple.Metadata[core.MetaChunkIndex].(int)] = triple
	}

	first := byIndex[0]
	assert.Equal(t, core.TripleID("conv-1", fileID, 0), first.ID)
	assert.Equal(t, "Berlin", first.Metadata["city"])
	assert.Equal(t, int64(3), first.Metadata["bedrooms"])
	assert.Equal(t, int64(500000), first.Metadata["price"])
	assert.Equal(t, "listings.csv", first.Metadata[core.MetaSource])

	second := byIndex[1]
	assert.Equal(t, core.TripleID("conv-1", fileID, 1), second.ID)
	assert.Equal(t, "Hamburg", second.Metadata["city"])
	assert.Equal(t, int64(300000), second.Metadata["price"])

	require.Len(t, files.refs, 1)
	assert.Equal(t, "conv-1", files.refs[0].ConversationId)
	assert.Equal(t, fileID, files.refs[0].FileId)
	assert.Equal(t, "listings.csv", files.refs[0].Filename)
}

func TestIngestReingestOverwritesSameIDs(t *testing.T) {
	csv := "city\nBerlin\n"
	pipeline, store, _ := newTestPipeline(t, mock.NewMockProvider(), fastConfig())

	_, err := pipeline.Ingest(context.Background(), "conv-1", "a.csv", "text/csv", []byte(csv))
	require.NoError(t, err)
	_, err = pipeline.Ingest(context.Background(), "conv-1", "a.csv", "text/csv", []byte(csv))
	require.NoError(t, err)

	// Same content produces the same triple IDs both times
	require.Len(t, store.triples, 2)
	assert.Equal(t, store.triples[0].ID, store.triples[1].ID)
}

func TestIngestEmptyFile(t *testing.T) {
	pipeline, store, files := newTestPipeline(t, mock.NewMockProvider(), fastConfig())

	count, err := pipeline.Ingest(context.Background(), "conv-1", "empty.csv", "text/csv", []byte("city,price\n"))
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, store.triples)
	assert.Empty(t, files.refs)
}

func TestMetadataTextTruncated(t *testing.T) {
	provider := mock.NewMockProvider()
	var embedded []string
	provider.MockEmbedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		embedded = append(embedded, texts...)
		embeddings := make([][]float32, len(texts))
		for i := range embeddings {
			embeddings[i] = []float32{1}
		}
		return embeddings, nil
	}

	pipeline, _, _ := newTestPipeline(t, provider,
		fastConfig(WithConcurrency(1), WithMaxTextChars(10)))

	records := []core.Record{{"description": "a very long description that exceeds the metadata limit"}}
	triples, err := pipeline.EmbedAll(context.Background(), records, "conv-1", "file-a", "data.json")
	require.NoError(t, err)
	require.Len(t, triples, 1)

	text := triples[0].Metadata[core.MetaText].(string)
	assert.Len(t, []rune(text), 10)

	// The full canonical text is still what gets embedded
	require.Len(t, embedded, 1)
	assert.Equal(t, records[0].CanonicalText(), embedded[0])
}
