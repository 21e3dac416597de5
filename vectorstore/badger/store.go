package badger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/datachat/core"
	"github.com/poiesic/datachat/vectorstore"
)

// Store implements vectorstore.Store on an embedded BadgerDB.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ vectorstore.Store = (*Store)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens a vector store at the specified path.
// Creates the directory if it doesn't exist. Pass inMemory to run
// without a backing directory (used by tests).
func Open(filePath string, inMemory bool) (*Store, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vectorstore.ErrStoreUnavailable, err)
	}

	return &Store{
		db:     db,
		logger: slog.Default().With("component", "badger-vectorstore"),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert writes triples into the index. Vectors are normalized on write
// so queries can score with a plain dot product. Writing an existing ID
// overwrites it.
func (s *Store) Upsert(ctx context.Context, triples []core.Triple) error {
	if len(triples) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *badger.Txn) error {
		for _, triple := range triples {
			stored := entry{
				ID:       triple.ID,
				Vector:   normalizeVector(triple.Vector),
				Metadata: triple.Metadata,
			}
			value, err := marshalEntry(&stored)
			if err != nil {
				return err
			}
			if err := tx.Set(makeVectorKey(triple.ID), value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", vectorstore.ErrStoreUnavailable, err)
	}
	return nil
}

// Query scans the scope's vectors, scores matching entries by cosine
// similarity and returns the topK best, ordered by score descending.
func (s *Store) Query(ctx context.Context, vector []float32, filter vectorstore.Filter, topK int) ([]vectorstore.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := normalizeVector(vector)
	var results []vectorstore.Result

	err := s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = scanPrefix(filter)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var stored *entry
			err := iter.Item().Value(func(val []byte) error {
				var err error
				stored, err = unmarshalEntry(val)
				return err
			})
			if err != nil {
				return err
			}

			if len(stored.Vector) == 0 || !filter.Matches(stored.Metadata) {
				continue
			}

			results = append(results, vectorstore.Result{
				ID:       stored.ID,
				Score:    dotProduct(query, stored.Vector),
				Metadata: stored.Metadata,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vectorstore.ErrStoreUnavailable, err)
	}

	// Sort by similarity descending
	slices.SortFunc(results, func(a, b vectorstore.Result) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}
