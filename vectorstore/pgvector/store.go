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


package pgvector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/poiesic/datachat/core"
	"github.com/poiesic/datachat/vectorstore"
)

const tableName = "datachat_vectors"

// Store implements vectorstore.Store on PostgreSQL with pgvector.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ vectorstore.Store = (*Store)(nil)

// Open connects to PostgreSQL using the given DSN and registers the
// pgvector types on every pooled connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vectorstore.ErrStoreUnavailable, err)
	}
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vectorstore.ErrStoreUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", vectorstore.ErrStoreUnavailable, err)
	}

	return &Store{
		pool:   pool,
		logger: slog.Default().With("component", "pgvector-store"),
	}, nil
}

// EnsureSchema creates the extension and the vectors table. Dims fixes
// the embedding dimensionality and must match the embedding model.
func (s *Store) EnsureSchema(ctx context.Context, dims int) error {
	if dims <= 0 {
		return fmt.Errorf("invalid embedding dimensionality %d", dims)
	}
	statements := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding VECTOR(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'
		)`, tableName, dims),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_scope_idx ON %s ((metadata->>'%s'))`,
			tableName, tableName, core.MetaScopeID),
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %w", vectorstore.ErrStoreUnavailable, err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Upsert writes triples in a single transaction. Existing IDs are
// overwritten so re-ingesting a file is idempotent.
func (s *Store) Upsert(ctx context.Context, triples []core.Triple) error {
	if len(triples) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", vectorstore.ErrStoreUnavailable, err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`INSERT INTO %s (id, embedding, metadata)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata`,
		tableName)

	for _, triple := range triples {
		vec := pgv.NewVector(triple.Vector)
		if _, err := tx.Exec(ctx, query, triple.ID, vec, triple.Metadata); err != nil {
			return fmt.Errorf("%w: %w", vectorstore.ErrStoreUnavailable, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", vectorstore.ErrStoreUnavailable, err)
	}
	return nil
}

// Query runs a cosine similarity search constrained by the filter,
// returning the topK nearest entries ordered by similarity descending.
func (s *Store) Query(ctx context.Context, vector []float32, filter vectorstore.Filter, topK int) ([]vectorstore.Result, error) {
	where, args := buildWhere(filter)
	args = append(args, pgv.NewVector(vector))
	vecArg := len(args)

	query := fmt.Sprintf(`SELECT id, metadata, 1 - (embedding <=> $%d) AS score
		FROM %s %s
		ORDER BY embedding <=> $%d`, vecArg, tableName, where, vecArg)
	if topK > 0 {
		args = append(args, topK)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vectorstore.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var results []vectorstore.Result
	for rows.Next() {
		var result vectorstore.Result
		if err := rows.Scan(&result.ID, &result.Metadata, &result.Score); err != nil {
			return nil, fmt.Errorf("%w: %w", vectorstore.ErrStoreUnavailable, err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", vectorstore.ErrStoreUnavailable, err)
	}
	return results, nil
}
