// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/datachat/ai"
	"github.com/poiesic/datachat/core"
	"github.com/poiesic/datachat/extract"
	"github.com/poiesic/datachat/vectorstore"
)

// FileRecorder records which files a conversation has ingested.
// A nil recorder is allowed; the pipeline then skips file tracking.
type FileRecorder interface {
	AddFileRef(ctx context.Context, ref core.FileRef) error
}

// Pipeline orchestrates file ingestion: record extraction, batched
// concurrent embedding and vector store upserts.
type Pipeline struct {
	gateway  *vectorstore.Gateway
	embedder ai.Embedder
	files    FileRecorder
	pool     *ants.Pool
	config   Config
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConfig overrides the default pipeline configuration.
func WithConfig(config Config) Option {
	return func(p *Pipeline) {
		p.config = config
	}
}

// WithFileRecorder sets the store used to track ingested files.
func WithFileRecorder(files FileRecorder) Option {
	return func(p *Pipeline) {
		p.files = files
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(gateway *vectorstore.Gateway, provider ai.Provider, opts ...Option) (*Pipeline, error) {
	if gateway == nil {
		return nil, ErrGatewayRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	p := &Pipeline{
		gateway:  gateway,
		embedder: provider.Embedder(),
		config:   DefaultConfig(),
		logger:   slog.Default().With("component", "ingestion"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.config.Validate(); err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(p.config.Concurrency)
	if err != nil {
		return nil, err
	}
	p.pool = pool

	return p, nil
}

// Release shuts down the worker pool.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// Ingest extracts records from a file, embeds them and upserts the
// resulting triples into the conversation's scope. Returns the number
// of triples upserted. The operation is all-or-nothing: on any error
// nothing is reported as ingested.
func (p *Pipeline) Ingest(ctx context.Context, conversationID, filename, contentType string, raw []byte) (int, error) {
	if !extract.Supported(filename, contentType) {
		return 0, fmt.Errorf("%w: %s", extract.ErrUnsupportedFormat, filename)
	}

	records, err := extract.Extract(filename, contentType, raw)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		p.logger.Info("file contained no records", "filename", filename)
		return 0, nil
	}

	fileID := core.FileIDFromContent(raw)

	triples, err := p.EmbedAll(ctx, records, conversationID, fileID, filename)
	if err != nil {
		return 0, err
	}

	if err := p.gateway.Upsert(ctx, triples); err != nil {
		return 0, err
	}

	if p.files != nil {
		ref := core.FileRef{
			ConversationId: conversationID,
			FileId:         fileID,
			Filename:       filename,
			CreatedAt:      time.Now().UTC(),
		}
		if err := p.files.AddFileRef(ctx, ref); err != nil {
			return 0, err
		}
	}

	p.logger.Info("file ingested", "filename", filename, "file_id", fileID, "triples", len(triples))
	return len(triples), nil
}

// EmbedAll embeds every record and builds its triple. Records are
// processed in batches of BatchSize, up to Concurrency batches in
// parallel, each batch retried with backoff. The returned slice keeps
// record order: triple i always belongs to records[i] no matter how
// batches interleave.
func (p *Pipeline) EmbedAll(ctx context.Context, records []core.Record, scopeID, fileID, filename string) ([]core.Triple, error) {
	if len(records) == 0 {
		return nil, nil
	}

	triples := make([]core.Triple, len(records))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for start := 0; start < len(records); start += p.config.BatchSize {
		end := min(start+p.config.BatchSize, len(records))
		offset, batch := start, records[start:end]

		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			if err := p.embedBatch(ctx, batch, offset, scopeID, fileID, filename, triples); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			break
		}
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return triples, nil
}

// embedBatch embeds one batch and writes its triples into the shared
// result slice at the batch's global offset. Each batch owns a disjoint
// range of the slice, so no synchronization is needed on writes.
func (p *Pipeline) embedBatch(ctx context.Context, batch []core.Record, offset int, scopeID, fileID, filename string, triples []core.Triple) error {
	texts := make([]string, len(batch))
	for i, record := range batch {
		texts[i] = record.CanonicalText()
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		result, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		// A count mismatch is a provider contract violation, not a
		// transient fault; retrying would burn the backoff budget.
		if len(result) != len(texts) {
			return Permanent(fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result)))
		}
		embeddings = result
		return nil
	}, p.config.MaxRetries, p.config.BaseBackoff)
	if err != nil {
		return fmt.Errorf("%w: batch at %d: %w", ErrEmbeddingProvider, offset, err)
	}

	for i, record := range batch {
		index := offset + i
		triples[index] = core.Triple{
			ID:       core.TripleID(scopeID, fileID, index),
			Vector:   embeddings[i],
			Metadata: p.tripleMetadata(record, texts[i], scopeID, fileID, filename, index),
		}
	}
	return nil
}

// tripleMetadata assembles the queryable metadata for one record. The
// record's own fields come first so planner filters can match them;
// reserved keys always win over a colliding record field.
func (p *Pipeline) tripleMetadata(record core.Record, text, scopeID, fileID, filename string, index int) map[string]any {
	metadata := make(map[string]any, len(record)+5)
	for k, v := range record {
		metadata[k] = v
	}

	if runes := []rune(text); len(runes) > p.config.MaxTextChars {
		text = string(runes[:p.config.MaxTextChars])
	}

	metadata[core.MetaScopeID] = scopeID
	metadata[core.MetaFileID] = fileID
	metadata[core.MetaChunkIndex] = index
	metadata[core.MetaSource] = filename
	metadata[core.MetaText] = text
	return metadata
}
