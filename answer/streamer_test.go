package answer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/datachat/ai"
	"github.com/poiesic/datachat/ai/mock"
	"github.com/poiesic/datachat/core"
	"github.com/poiesic/datachat/planner"
	"github.com/poiesic/datachat/storage"
	storagebadger "github.com/poiesic/datachat/storage/badger"
	"github.com/poiesic/datachat/vectorstore"
	vectorbadger "github.com/poiesic/datachat/vectorstore/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	streamer *Streamer
	repo     storage.ConversationRepository
	provider *mock.MockProvider
	store    vectorstore.Store
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	repo, backend, err := storagebadger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})

	store, err := vectorbadger.Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	provider := mock.NewMockProvider()
	gateway, err := vectorstore.NewGateway(store, provider.Embedder())
	require.NoError(t, err)

	streamer, err := NewStreamer(gateway, provider.Chatter(), repo, opts...)
	require.NoError(t, err)
	t.Cleanup(streamer.Release)

	return &fixture{streamer: streamer, repo: repo, provider: provider, store: store}
}

func (f *fixture) newConversation(t *testing.T) *core.Conversation {
	t.Helper()
	conversation, err := f.repo.CreateConversation(context.Background(), "")
	require.NoError(t, err)
	return conversation
}

func collectTokens(tokens *[]string) ai.StreamFunc {
	return func(ctx context.Context, token []byte) error {
		*tokens = append(*tokens, string(token))
		return nil
	}
}

func TestStreamForwardsTokensInOrder(t *testing.T) {
	f := newFixture(t)
	f.provider.MockChatter.Tokens = []string{"The", " average", " price", " is", " 400k."}
	conversation := f.newConversation(t)

	var tokens []string
	result, err := f.streamer.Stream(context.Background(), conversation.Id, "average price?", collectTokens(&tokens))
	require.NoError(t, err)

	assert.Equal(t, f.provider.MockChatter.Tokens, tokens)
	assert.Equal(t, "The average price is 400k.", result.Answer)
}

func TestStreamPersistsUserTurnBeforeAnswering(t *testing.T) {
	f := newFixture(t)
	chatErr := errors.New("model down")
	f.provider.MockChatter.StreamCompletionFunc = func(ctx context.Context, messages []ai.Message, onToken ai.StreamFunc) (string, error) {
		return "", chatErr
	}
	conversation := f.newConversation(t)

	_, err := f.streamer.Stream(context.Background(), conversation.Id, "hello?", func(ctx context.Context, token []byte) error { return nil })
	assert.ErrorIs(t, err, chatErr)

	// The question survives even though the answer never arrived
	turns, err := f.repo.GetRecentTurns(context.Background(), conversation.Id, 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, core.RoleUser, turns[0].Role)
	assert.Equal(t, "hello?", turns[0].Content)
}

func TestStreamDeferredPersistence(t *testing.T) {
	f := newFixture(t)
	f.provider.MockChatter.Tokens = []string{"grounded answer"}
	conversation := f.newConversation(t)

	result, err := f.streamer.Stream(context.Background(), conversation.Id, "what is in the data?", func(ctx context.Context, token []byte) error { return nil })
	require.NoError(t, err)
	require.NoError(t, result.Wait(context.Background()))
	assert.True(t, result.Persisted())

	turns, err := f.repo.GetRecentTurns(context.Background(), conversation.Id, 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, core.RoleAssistant, turns[0].Role)
	assert.Equal(t, "grounded answer", turns[0].Content)
	assert.Equal(t, core.RoleUser, turns[1].Role)
}

func TestStreamCancellationSkipsPersistence(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.provider.MockChatter.StreamCompletionFunc = func(ctx context.Context, messages []ai.Message, onToken ai.StreamFunc) (string, error) {
		if err := onToken(ctx, []byte("partial")); err != nil {
			return "", err
		}
		// Client disconnects as the stream finishes
		cancel()
		return "partial", nil
	}
	conversation := f.newConversation(t)

	result, err := f.streamer.Stream(ctx, conversation.Id, "question?", func(ctx context.Context, token []byte) error { return nil })
	require.NoError(t, err)
	require.NoError(t, result.Wait(context.Background()))
	assert.False(t, result.Persisted())

	turns, err := f.repo.GetRecentTurns(context.Background(), conversation.Id, 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, core.RoleUser, turns[0].Role)
}

func TestStreamMidStreamFailureSkipsPersistence(t *testing.T) {
	f := newFixture(t)
	streamErr := errors.New("connection reset")
	f.provider.MockChatter.StreamCompletionFunc = func(ctx context.Context, messages []ai.Message, onToken ai.StreamFunc) (string, error) {
		if err := onToken(ctx, []byte("partial")); err != nil {
			return "", err
		}
		return "", streamErr
	}
	conversation := f.newConversation(t)

	_, err := f.streamer.Stream(context.Background(), conversation.Id, "question?", func(ctx context.Context, token []byte) error { return nil })
	assert.ErrorIs(t, err, streamErr)

	turns, err := f.repo.GetRecentTurns(context.Background(), conversation.Id, 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
}

func TestStreamRetrievalFailureAbortsBeforeStreaming(t *testing.T) {
	f := newFixture(t)
	f.provider.MockEmbedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedder down")
	}
	conversation := f.newConversation(t)

	var tokens []string
	_, err := f.streamer.Stream(context.Background(), conversation.Id, "question?", collectTokens(&tokens))
	assert.ErrorIs(t, err, ErrRetrievalFailed)
	assert.Empty(t, tokens)
}

func TestStreamRetitlesAfterFirstAnswer(t *testing.T) {
	f := newFixture(t)
	conversation := f.newConversation(t)
	require.Equal(t, core.PlaceholderTitle, conversation.Title)

	question := "what is the average price of three bedroom flats in Berlin?"
	result, err := f.streamer.Stream(context.Background(), conversation.Id, question, func(ctx context.Context, token []byte) error { return nil })
	require.NoError(t, err)
	require.NoError(t, result.Wait(context.Background()))

	updated, err := f.repo.GetConversation(context.Background(), conversation.Id)
	require.NoError(t, err)
	assert.Equal(t, core.TitleFromQuestion(question), updated.Title)
	assert.LessOrEqual(t, len([]rune(updated.Title)), core.TitleLimit)
}

func TestStreamKeepsExistingTitle(t *testing.T) {
	f := newFixture(t)
	conversation, err := f.repo.CreateConversation(context.Background(), "my analysis")
	require.NoError(t, err)

	result, err := f.streamer.Stream(context.Background(), conversation.Id, "another question", func(ctx context.Context, token []byte) error { return nil })
	require.NoError(t, err)
	require.NoError(t, result.Wait(context.Background()))

	updated, err := f.repo.GetConversation(context.Background(), conversation.Id)
	require.NoError(t, err)
	assert.Equal(t, "my analysis", updated.Title)
}

func TestStreamEmptyQuestion(t *testing.T) {
	f := newFixture(t)
	conversation := f.newConversation(t)

	_, err := f.streamer.Stream(context.Background(), conversation.Id, "   ", func(ctx context.Context, token []byte) error { return nil })
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestStreamUnknownConversation(t *testing.T) {
	f := newFixture(t)

	_, err := f.streamer.Stream(context.Background(), core.NewID(), "question?", func(ctx context.Context, token []byte) error { return nil })
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStreamIncludesRecentHistory(t *testing.T) {
	f := newFixture(t, WithHistoryTurns(2))
	conversation := f.newConversation(t)
	ctx := context.Background()

	seed := []struct {
		role    core.Role
		content string
	}{
		{core.RoleUser, "first question"},
		{core.RoleAssistant, "first answer"},
		{core.RoleUser, "second question"},
		{core.RoleAssistant, "second answer"},
	}
	for _, turn := range seed {
		_, err := f.repo.AddTurn(ctx, &core.Turn{
			ConversationId: conversation.Id,
			Role:           turn.role,
			Content:        turn.content,
		})
		require.NoError(t, err)
	}

	_, err := f.streamer.Stream(ctx, conversation.Id, "third question", func(ctx context.Context, token []byte) error { return nil })
	require.NoError(t, err)

	requests := f.provider.MockChatter.Requests()
	require.Len(t, requests, 1)
	messages := requests[0]

	// system prompt, two history turns, then the question
	require.Len(t, messages, 4)
	assert.Equal(t, ai.RoleSystem, messages[0].Role)
	assert.True(t, strings.Contains(messages[0].Content, "Retrieved rows"))
	assert.Equal(t, "second question", messages[1].Content)
	assert.Equal(t, ai.RoleUser, messages[1].Role)
	assert.Equal(t, "second answer", messages[2].Content)
	assert.Equal(t, ai.RoleAssistant, messages[2].Role)
	assert.Equal(t, "third question", messages[3].Content)
	assert.Equal(t, ai.RoleUser, messages[3].Role)
}

func TestStreamPlannerFailureFailsOpen(t *testing.T) {
	chatter := mock.NewMockChatter()
	chatter.CallToolFunc = func(ctx context.Context, messages []ai.Message, tool ai.ToolSpec) (json.RawMessage, error) {
		return nil, errors.New("planner model down")
	}
	p, err := planner.NewPlanner(chatter)
	require.NoError(t, err)

	f := newFixture(t, WithPlanner(p))
	conversation := f.newConversation(t)

	// Planning fails but the answer still streams
	result, err := f.streamer.Stream(context.Background(), conversation.Id, "3 bedroom flats?", func(ctx context.Context, token []byte) error { return nil })
	require.NoError(t, err)
	assert.True(t, result.Planning.FailedOpen)
	assert.NotEmpty(t, result.Answer)
}

func TestStreamGroundsOnRetrievedRows(t *testing.T) {
	f := newFixture(t)
	conversation := f.newConversation(t)
	ctx := context.Background()

	// Seed the conversation's scope with one row
	triple := core.Triple{
		ID:     core.TripleID(conversation.Id, "file-a", 0),
		Vector: []float32{1, 0, 0},
		Metadata: map[string]any{
			core.MetaScopeID: conversation.Id,
			core.MetaSource:  "listings.csv",
			core.MetaText:    `{"city":"Berlin","price":500000}`,
		},
	}
	require.NoError(t, f.store.Upsert(ctx, []core.Triple{triple}))

	result, err := f.streamer.Stream(ctx, conversation.Id, "what do we know?", func(ctx context.Context, token []byte) error { return nil })
	require.NoError(t, err)
	require.Len(t, result.Retrieved, 1)

	requests := f.provider.MockChatter.Requests()
	require.Len(t, requests, 1)
	assert.Contains(t, requests[0][0].Content, "listings.csv")
	assert.Contains(t, requests[0][0].Content, `"city":"Berlin"`)
	assert.Contains(t, requests[0][0].Content, "enumerate its attribute keys",
		"grounding instructions must ask for attribute-key enumeration")
}
