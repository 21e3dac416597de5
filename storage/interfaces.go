package storage

import (
	"context"

	"github.com/poiesic/datachat/core"
)

// ConversationRepository provides operations for managing conversations,
// their turns and the files ingested into them.
// Implementations must be thread-safe and support concurrent access.
type ConversationRepository interface {
	// CreateConversation stores a new conversation.
	// Generates an ID and timestamps; an empty title becomes the
	// placeholder title.
	CreateConversation(ctx context.Context, title string) (*core.Conversation, error)

	// GetConversation retrieves a conversation by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetConversation(ctx context.Context, id string) (*core.Conversation, error)

	// UpdateConversation updates an existing conversation and bumps its
	// UpdatedAt timestamp. Returns ErrNotFound if it doesn't exist.
	UpdateConversation(ctx context.Context, conversation *core.Conversation) error

	// ListConversations returns conversations ordered by most recently
	// updated first, up to limit. A non-positive limit returns all.
	ListConversations(ctx context.Context, limit int) ([]*core.Conversation, error)

	// AddTurn appends a turn to its conversation. Validates the turn,
	// generates an ID and timestamp, and bumps the conversation's
	// UpdatedAt. Returns ErrNotFound if the conversation doesn't exist.
	AddTurn(ctx context.Context, turn *core.Turn) (*core.Turn, error)

	// GetRecentTurns returns the conversation's most recent turns,
	// newest first, up to limit. A non-positive limit returns all.
	GetRecentTurns(ctx context.Context, conversationID string, limit int) ([]*core.Turn, error)

	// AddFileRef records that a file was ingested into a conversation.
	// Re-ingesting the same file overwrites the previous reference.
	AddFileRef(ctx context.Context, ref core.FileRef) error

	// ListFileRefs returns the files ingested into a conversation,
	// oldest first.
	ListFileRefs(ctx context.Context, conversationID string) ([]*core.FileRef, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
