package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/datachat/core"
	"github.com/poiesic/datachat/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) storage.ConversationRepository {
	t.Helper()
	repo, backend, err := NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})
	return repo
}

func TestCreateAndGetConversation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateConversation(ctx, "Berlin listings")
	require.NoError(t, err)
	assert.NotEmpty(t, created.Id)
	assert.Equal(t, "Berlin listings", created.Title)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.GetConversation(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, created.Id, got.Id)
	assert.Equal(t, created.Title, got.Title)
}

func TestCreateConversationDefaultsTitle(t *testing.T) {
	repo := newTestRepo(t)

	created, err := repo.CreateConversation(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, core.PlaceholderTitle, created.Title)
}

func TestGetConversationNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetConversation(context.Background(), core.NewID())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateConversation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateConversation(ctx, "")
	require.NoError(t, err)

	created.Title = "average prices"
	require.NoError(t, repo.UpdateConversation(ctx, created))

	got, err := repo.GetConversation(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, "average prices", got.Title)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestUpdateConversationNotFound(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.UpdateConversation(context.Background(), &core.Conversation{Id: core.NewID()})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListConversationsMostRecentFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.CreateConversation(ctx, "first")
	require.NoError(t, err)
	second, err := repo.CreateConversation(ctx, "second")
	require.NoError(t, err)

	// Activity on the first conversation moves it to the front
	time.Sleep(time.Millisecond)
	_, err = repo.AddTurn(ctx, &core.Turn{
		ConversationId: first.Id,
		Role:           core.RoleUser,
		Content:        "hello",
	})
	require.NoError(t, err)

	listed, err := repo.ListConversations(ctx, 0)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, first.Id, listed[0].Id)
	assert.Equal(t, second.Id, listed[1].Id)

	limited, err := repo.ListConversations(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, first.Id, limited[0].Id)
}

func TestAddTurnValidates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	conversation, err := repo.CreateConversation(ctx, "")
	require.NoError(t, err)

	_, err = repo.AddTurn(ctx, &core.Turn{
		ConversationId: conversation.Id,
		Role:           "NARRATOR",
		Content:        "hello",
	})
	assert.ErrorIs(t, err, core.ErrInvalidRole)

	_, err = repo.AddTurn(ctx, &core.Turn{
		ConversationId: core.NewID(),
		Role:           core.RoleUser,
		Content:        "hello",
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetRecentTurnsNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	conversation, err := repo.CreateConversation(ctx, "")
	require.NoError(t, err)

	contents := []string{"one", "two", "three"}
	for _, content := range contents {
		_, err := repo.AddTurn(ctx, &core.Turn{
			ConversationId: conversation.Id,
			Role:           core.RoleUser,
			Content:        content,
		})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	turns, err := repo.GetRecentTurns(ctx, conversation.Id, 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "three", turns[0].Content)
	assert.Equal(t, "two", turns[1].Content)

	all, err := repo.GetRecentTurns(ctx, conversation.Id, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGetRecentTurnsIsolatedPerConversation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a, err := repo.CreateConversation(ctx, "a")
	require.NoError(t, err)
	b, err := repo.CreateConversation(ctx, "b")
	require.NoError(t, err)

	_, err = repo.AddTurn(ctx, &core.Turn{ConversationId: a.Id, Role: core.RoleUser, Content: "for a"})
	require.NoError(t, err)
	_, err = repo.AddTurn(ctx, &core.Turn{ConversationId: b.Id, Role: core.RoleUser, Content: "for b"})
	require.NoError(t, err)

	turns, err := repo.GetRecentTurns(ctx, a.Id, 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "for a", turns[0].Content)
}

func TestFileRefs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	conversation, err := repo.CreateConversation(ctx, "")
	require.NoError(t, err)

	ref := core.FileRef{
		ConversationId: conversation.Id,
		FileId:         "abc123",
		Filename:       "listings.csv",
	}
	require.NoError(t, repo.AddFileRef(ctx, ref))

	// Re-ingesting the same file overwrites the reference
	require.NoError(t, repo.AddFileRef(ctx, ref))

	refs, err := repo.ListFileRefs(ctx, conversation.Id)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "listings.csv", refs[0].Filename)
	assert.False(t, refs[0].CreatedAt.IsZero())
}

func TestAddFileRefUnknownConversation(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.AddFileRef(context.Background(), core.FileRef{
		ConversationId: core.NewID(),
		FileId:         "abc123",
		Filename:       "listings.csv",
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
