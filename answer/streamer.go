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


package answer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/datachat/ai"
	"github.com/poiesic/datachat/core"
	"github.com/poiesic/datachat/planner"
	"github.com/poiesic/datachat/storage"
	"github.com/poiesic/datachat/vectorstore"
)

const (
	// DefaultTopK is the number of rows retrieved per question.
	DefaultTopK = 5

	// DefaultHistoryTurns is the number of prior turns included in the
	// prompt.
	DefaultHistoryTurns = 5

	// persistWorkers sizes the deferred persistence pool.
	persistWorkers = 4
)

// Result is the outcome of one streamed answer. The full answer text is
// available as soon as Stream returns; Wait blocks until the deferred
// persistence of the assistant turn has finished or been skipped.
type Result struct {
	// Answer is the complete answer text.
	Answer string

	// Retrieved holds the rows the answer was grounded on.
	Retrieved []vectorstore.Result

	// Planning reports how filter derivation went.
	Planning planner.Outcome

	done       chan struct{}
	persisted  bool
	persistErr error
}

// Wait blocks until deferred persistence completes, reporting its
// error. Returns immediately if persistence was skipped.
func (r *Result) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.persistErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Persisted reports whether the assistant turn was written. Only valid
// after Wait has returned.
func (r *Result) Persisted() bool {
	return r.persisted
}

// Streamer orchestrates retrieval-grounded answer streaming.
type Streamer struct {
	gateway      *vectorstore.Gateway
	chatter      ai.Chatter
	repo         storage.ConversationRepository
	planner      *planner.Planner
	pool         *ants.Pool
	topK         int
	historyTurns int
	logger       *slog.Logger
}

// Option configures a Streamer.
type Option func(*Streamer)

// WithPlanner enables filter planning. Without one retrieval always
// runs unfiltered.
func WithPlanner(p *planner.Planner) Option {
	return func(s *Streamer) {
		s.planner = p
	}
}

// WithTopK sets the number of rows retrieved per question.
func WithTopK(topK int) Option {
	return func(s *Streamer) {
		if topK > 0 {
			s.topK = topK
		}
	}
}

// WithHistoryTurns sets the number of prior turns included in the prompt.
func WithHistoryTurns(turns int) Option {
	return func(s *Streamer) {
		if turns >= 0 {
			s.historyTurns = turns
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Streamer) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// NewStreamer creates a new answer streamer.
func NewStreamer(gateway *vectorstore.Gateway, chatter ai.Chatter, repo storage.ConversationRepository, opts ...Option) (*Streamer, error) {
	if gateway == nil {
		return nil, ErrGatewayRequired
	}
	if chatter == nil {
		return nil, ErrChatterRequired
	}
	if repo == nil {
		return nil, ErrRepositoryRequired
	}

	s := &Streamer{
		gateway:      gateway,
		chatter:      chatter,
		repo:         repo,
		topK:         DefaultTopK,
		historyTurns: DefaultHistoryTurns,
		logger:       slog.Default().With("component", "answer"),
	}
	for _, opt := range opts {
		opt(s)
	}

	pool, err := ants.NewPool(persistWorkers)
	if err != nil {
		return nil, err
	}
	s.pool = pool

	return s, nil
}

// Release shuts down the persistence worker pool.
func (s *Streamer) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// Stream answers a question within a conversation, forwarding tokens to
// onToken as they arrive. The user turn is persisted before retrieval
// starts; the assistant turn is persisted on a background worker after
// the stream ends, unless ctx was cancelled by then.
func (s *Streamer) Stream(ctx context.Context, conversationID, question string, onToken ai.StreamFunc) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	userTurn, err := s.repo.AddTurn(ctx, &core.Turn{
		ConversationId: conversationID,
		Role:           core.RoleUser,
		Content:        question,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{done: make(chan struct{})}

	if s.planner != nil {
		result.Planning = s.planner.DeriveFilters(ctx, question)
	}

	result.Retrieved, err = s.gateway.Search(ctx, question, conversationID, result.Planning.Clauses, s.topK)
	if err != nil {
		close(result.done)
		return nil, fmt.Errorf("%w: %w", ErrRetrievalFailed, err)
	}

	messages, err := s.buildMessages(ctx, conversationID, userTurn.Id, question, result.Retrieved)
	if err != nil {
		close(result.done)
		return nil, err
	}

	result.Answer, err = s.chatter.StreamCompletion(ctx, messages, onToken)
	if err != nil {
		close(result.done)
		return nil, err
	}

	// A cancelled stream means the client is gone: don't persist a turn
	// the user never saw complete.
	if ctx.Err() != nil {
		s.logger.Info("stream cancelled, skipping persistence", "conversation_id", conversationID)
		close(result.done)
		return result, nil
	}

	s.schedulePersist(ctx, conversationID, question, result)
	return result, nil
}

// schedulePersist hands the assistant turn and retitle to a background
// worker. The worker uses a context detached from the request so a
// client disconnect after stream completion can't lose the turn.
func (s *Streamer) schedulePersist(ctx context.Context, conversationID, question string, result *Result) {
	persistCtx := context.WithoutCancel(ctx)

	err := s.pool.Submit(func() {
		defer close(result.done)

		_, err := s.repo.AddTurn(persistCtx, &core.Turn{
			ConversationId: conversationID,
			Role:           core.RoleAssistant,
			Content:        result.Answer,
		})
		if err != nil {
			s.logger.Error("error persisting assistant turn", "conversation_id", conversationID, "err", err)
			result.persistErr = err
			return
		}
		result.persisted = true

		if err := s.maybeRetitle(persistCtx, conversationID, question); err != nil {
			s.logger.Error("error retitling conversation", "conversation_id", conversationID, "err", err)
			result.persistErr = err
		}
	})
	if err != nil {
		result.persistErr = err
		close(result.done)
	}
}

// maybeRetitle names a conversation after its first question.
func (s *Streamer) maybeRetitle(ctx context.Context, conversationID, question string) error {
	conversation, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if conversation.Title != "" && conversation.Title != core.PlaceholderTitle {
		return nil
	}

	conversation.Title = core.TitleFromQuestion(question)
	return s.repo.UpdateConversation(ctx, conversation)
}

// buildMessages assembles the prompt: grounding system message, recent
// history in chronological order, then the question. The just-persisted
// user turn is excluded from history; turns with unknown roles or empty
// content are skipped.
func (s *Streamer) buildMessages(ctx context.Context, conversationID, userTurnID, question string, retrieved []vectorstore.Result) ([]ai.Message, error) {
	messages := []ai.Message{{Role: ai.RoleSystem, Content: buildSystemPrompt(retrieved)}}

	turns, err := s.repo.GetRecentTurns(ctx, conversationID, s.historyTurns+1)
	if err != nil {
		return nil, err
	}
	slices.Reverse(turns)

	for _, turn := range turns {
		if turn.Id == userTurnID || strings.TrimSpace(turn.Content) == "" {
			continue
		}
		var role ai.MessageRole
		switch turn.Role {
		case core.RoleUser:
			role = ai.RoleUser
		case core.RoleAssistant:
			role = ai.RoleAssistant
		default:
			continue
		}
		messages = append(messages, ai.Message{Role: role, Content: turn.Content})
	}

	return append(messages, ai.Message{Role: ai.RoleUser, Content: question}), nil
}
