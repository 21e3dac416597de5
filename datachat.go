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


package datachat

import (
	"log/slog"
	"path/filepath"

	"github.com/poiesic/datachat/ai"
	"github.com/poiesic/datachat/ai/openai"
	"github.com/poiesic/datachat/answer"
	"github.com/poiesic/datachat/ingestion"
	"github.com/poiesic/datachat/planner"
	"github.com/poiesic/datachat/storage"
	storagebadger "github.com/poiesic/datachat/storage/badger"
	"github.com/poiesic/datachat/vectorstore"
	vectorbadger "github.com/poiesic/datachat/vectorstore/badger"
)

// App wires storage, the vector store and the AI provider into the
// ingestion and answering pipelines.
type App struct {
	backend  *storagebadger.Backend
	repo     storage.ConversationRepository
	vectors  vectorstore.Store
	gateway  *vectorstore.Gateway
	provider ai.Provider
	logger   *slog.Logger
}

// AppOption configures an App.
type AppOption func(*appOptions)

type appOptions struct {
	aiConfig        *ai.Config
	vectors         vectorstore.Store
	upsertBatchSize int
}

// WithAIConfig overrides the default AI provider configuration.
func WithAIConfig(config *ai.Config) AppOption {
	return func(o *appOptions) {
		o.aiConfig = config
	}
}

// WithVectorStore uses the given store instead of the embedded one.
// The App takes ownership and closes it on Close.
func WithVectorStore(store vectorstore.Store) AppOption {
	return func(o *appOptions) {
		o.vectors = store
	}
}

// WithUpsertBatchSize sets the vector store upsert chunk size.
func WithUpsertBatchSize(size int) AppOption {
	return func(o *appOptions) {
		o.upsertBatchSize = size
	}
}

// NewApp opens the data directory and connects to the AI provider.
// Conversations and vectors live in separate databases under filePath
// unless a custom vector store is provided.
func NewApp(filePath string, opts ...AppOption) (*App, error) {
	options := &appOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := storagebadger.OpenBackend(filepath.Join(filePath, "chats"), false)
	if err != nil {
		return nil, err
	}
	repo := storagebadger.NewConversationRepository(backend)

	vectors := options.vectors
	if vectors == nil {
		vectors, err = vectorbadger.Open(filepath.Join(filePath, "vectors"), false)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		vectors.Close()
		backend.Close()
		return nil, err
	}

	var gatewayOpts []vectorstore.GatewayOption
	if options.upsertBatchSize > 0 {
		gatewayOpts = append(gatewayOpts, vectorstore.WithUpsertBatchSize(options.upsertBatchSize))
	}
	gateway, err := vectorstore.NewGateway(vectors, provider.Embedder(), gatewayOpts...)
	if err != nil {
		provider.Close()
		vectors.Close()
		backend.Close()
		return nil, err
	}

	return &App{
		backend:  backend,
		repo:     repo,
		vectors:  vectors,
		gateway:  gateway,
		provider: provider,
		logger:   slog.Default(),
	}, nil
}

// Close releases every resource the app owns.
func (a *App) Close() error {
	if err := a.provider.Close(); err != nil {
		a.logger.Error("error closing AI provider", "err", err)
	}
	if err := a.vectors.Close(); err != nil {
		a.logger.Error("error closing vector store", "err", err)
	}
	if err := a.repo.Close(); err != nil {
		a.logger.Error("error closing conversation repository", "err", err)
		return err
	}
	if err := a.backend.Close(); err != nil {
		a.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// ConversationRepository exposes conversation persistence.
func (a *App) ConversationRepository() storage.ConversationRepository {
	return a.repo
}

// Gateway exposes the vector store gateway.
func (a *App) Gateway() *vectorstore.Gateway {
	return a.gateway
}

// NewIngestionPipeline builds a pipeline that records ingested files on
// the app's conversation repository.
func (a *App) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	opts = append([]ingestion.Option{ingestion.WithFileRecorder(a.repo)}, opts...)
	return ingestion.NewPipeline(a.gateway, a.provider, opts...)
}

// NewAnswerStreamer builds a streamer with filter planning enabled.
func (a *App) NewAnswerStreamer(opts ...answer.Option) (*answer.Streamer, error) {
	p, err := planner.NewPlanner(a.provider.Chatter())
	if err != nil {
		return nil, err
	}
	opts = append([]answer.Option{answer.WithPlanner(p)}, opts...)
	return answer.NewStreamer(a.gateway, a.provider.Chatter(), a.repo, opts...)
}
