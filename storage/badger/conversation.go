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


package badger

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/datachat/core"
	"github.com/poiesic/datachat/storage"
)

// ConversationRepository implements storage.ConversationRepository for
// BadgerDB.
type ConversationRepository struct {
	backend *Backend
}

var _ storage.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(backend *Backend) *ConversationRepository {
	return &ConversationRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *ConversationRepository) Close() error {
	return nil
}

// CreateConversation stores a new conversation.
func (r *ConversationRepository) CreateConversation(ctx context.Context, title string) (*core.Conversation, error) {
	if title == "" {
		title = core.PlaceholderTitle
	}

	now := time.Now().UTC()
	conversation := &core.Conversation{
		Id:        core.NewID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeConversationKey(conversation.Id)
		if err := tx.Set(key, storage.MarshalConversation(conversation)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return conversation, nil
}

// GetConversation retrieves a conversation by ID.
func (r *ConversationRepository) GetConversation(ctx context.Context, id string) (*core.Conversation, error) {
	var result *core.Conversation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readConversation(tx, id)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateConversation updates an existing conversation.
func (r *ConversationRepository) UpdateConversation(ctx context.Context, conversation *core.Conversation) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := readConversation(tx, conversation.Id); err != nil {
			return err
		}

		conversation.UpdatedAt = time.Now().UTC()
		key := makeConversationKey(conversation.Id)
		if err := tx.Set(key, storage.MarshalConversation(conversation)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListConversations returns conversations ordered by most recently
// updated first.
func (r *ConversationRepository) ListConversations(ctx context.Context, limit int) ([]*core.Conversation, error) {
	var results []*core.Conversation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(conversationPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var conversation *core.Conversation
			err := iter.Item().Value(func(val []byte) error {
				var err error
				conversation, err = storage.UnmarshalConversation(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, conversation)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.Conversation) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// AddTurn appends a turn to its conversation.
func (r *ConversationRepository) AddTurn(ctx context.Context, turn *core.Turn) (*core.Turn, error) {
	if err := core.ValidateTurn(turn); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		conversation, err := readConversation(tx, turn.ConversationId)
		if err != nil {
			return err
		}

		turn.Id = core.NewID()
		turn.CreatedAt = time.Now().UTC()

		if err := tx.Set(makeTurnKey(turn.Id), storage.MarshalTurn(turn)); err != nil {
			return err
		}

		// Time index entry stores the turn ID for lookup
		timeKey := makeTurnTimeKey(turn.ConversationId, turn.CreatedAt, turn.Id)
		if err := tx.Set(timeKey, []byte(turn.Id)); err != nil {
			return err
		}

		// A new turn counts as conversation activity
		conversation.UpdatedAt = turn.CreatedAt
		convKey := makeConversationKey(conversation.Id)
		if err := tx.Set(convKey, storage.MarshalConversation(conversation)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return turn, nil
}

// GetRecentTurns returns the conversation's most recent turns, newest
// first.
func (r *ConversationRepository) GetRecentTurns(ctx context.Context, conversationID string, limit int) ([]*core.Turn, error) {
	var results []*core.Turn
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Reverse iterator walks the time index newest first
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := makeTurnTimePrefix(conversationID)
		// Seek past the last possible key under the prefix
		startKey := append(slices.Clone(prefix), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}

			key := iter.Item().Key()
			if !bytes.HasPrefix(key, prefix) {
				break
			}

			var turnID string
			if err := iter.Item().Value(func(val []byte) error {
				turnID = string(val)
				return nil
			}); err != nil {
				return err
			}

			turn, err := readTurn(tx, turnID)
			if err != nil {
				return err
			}
			results = append(results, turn)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// AddFileRef records that a file was ingested into a conversation.
func (r *ConversationRepository) AddFileRef(ctx context.Context, ref core.FileRef) error {
	if ref.CreatedAt.IsZero() {
		ref.CreatedAt = time.Now().UTC()
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := readConversation(tx, ref.ConversationId); err != nil {
			return err
		}
		key := makeFileRefKey(ref.ConversationId, ref.FileId)
		if err := tx.Set(key, storage.MarshalFileRef(&ref)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListFileRefs returns the files ingested into a conversation, oldest
// first.
func (r *ConversationRepository) ListFileRefs(ctx context.Context, conversationID string) ([]*core.FileRef, error) {
	var results []*core.FileRef
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeFileRefPrefix(conversationID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var ref *core.FileRef
			err := iter.Item().Value(func(val []byte) error {
				var err error
				ref, err = storage.UnmarshalFileRef(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, ref)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.FileRef) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return results, nil
}

// readConversation loads a conversation inside a transaction.
// Returns storage.ErrNotFound if the key is missing.
func readConversation(tx *badger.Txn, id string) (*core.Conversation, error) {
	item, err := tx.Get(makeConversationKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var conversation *core.Conversation
	err = item.Value(func(val []byte) error {
		var err error
		conversation, err = storage.UnmarshalConversation(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conversation, nil
}

// readTurn loads a turn inside a transaction.
func readTurn(tx *badger.Txn, id string) (*core.Turn, error) {
	item, err := tx.Get(makeTurnKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var turn *core.Turn
	err = item.Value(func(val []byte) error {
		var err error
		turn, err = storage.UnmarshalTurn(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return turn, nil
}
