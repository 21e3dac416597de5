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


package planner

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/datachat/ai"
	"github.com/poiesic/datachat/vectorstore"
)

// ErrChatterRequired is returned when a chat service is not provided.
var ErrChatterRequired = errors.New("chat service required")

const plannerPrompt = `You translate a question about tabular data into structured retrieval filters.
Call the tool with only the constraints the question states explicitly.
Do not invent bounds the question does not mention. If the question has
no filterable constraints, call the tool with no arguments.`

// Outcome is the result of filter derivation. FailedOpen means planning
// failed and retrieval should proceed unfiltered; Err then holds the
// cause for logging.
type Outcome struct {
	Clauses    []vectorstore.Clause
	FailedOpen bool
	Err        error
}

// Planner derives metadata filters from questions via tool calling.
type Planner struct {
	chatter ai.Chatter
	schema  FieldSchema
	logger  *slog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithSchema overrides the default field schema.
func WithSchema(schema FieldSchema) Option {
	return func(p *Planner) {
		p.schema = schema
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
	}
}

// NewPlanner creates a new filter planner.
func NewPlanner(chatter ai.Chatter, opts ...Option) (*Planner, error) {
	if chatter == nil {
		return nil, ErrChatterRequired
	}

	p := &Planner{
		chatter: chatter,
		schema:  DefaultFieldSchema(),
		logger:  slog.Default().With("component", "planner"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// DeriveFilters asks the model for filter constraints matching the
// question. Never returns an error: failures degrade to an unfiltered
// outcome with FailedOpen set.
func (p *Planner) DeriveFilters(ctx context.Context, question string) Outcome {
	tool := ai.ToolSpec{
		Name:        "derive_filters",
		Description: "Declare structured filters implied by the user's question.",
		Parameters:  p.schema.toolParameters(),
	}
	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: plannerPrompt},
		{Role: ai.RoleUser, Content: question},
	}

	args, err := p.chatter.CallTool(ctx, messages, tool)
	if err != nil {
		p.logger.Warn("filter planning failed, retrieving unfiltered", "error", err)
		return Outcome{FailedOpen: true, Err: err}
	}
	if len(args) == 0 {
		// Model declined to call the tool
		return Outcome{}
	}

	clauses, err := p.parseArguments(args)
	if err != nil {
		p.logger.Warn("filter arguments unparsable, retrieving unfiltered", "error", err)
		return Outcome{FailedOpen: true, Err: err}
	}
	return Outcome{Clauses: clauses}
}

// parseArguments maps tool call arguments back onto filter clauses.
// Arguments that don't match the schema are ignored.
func (p *Planner) parseArguments(args json.RawMessage) ([]vectorstore.Clause, error) {
	var values map[string]any
	if err := json.Unmarshal(args, &values); err != nil {
		return nil, err
	}

	var clauses []vectorstore.Clause
	for _, field := range p.schema.Numeric {
		if v, ok := numericValue(values[field+minSuffix]); ok {
			clauses = append(clauses, vectorstore.Clause{Field: field, Op: vectorstore.OpGte, Value: v})
		}
		if v, ok := numericValue(values[field+maxSuffix]); ok {
			clauses = append(clauses, vectorstore.Clause{Field: field, Op: vectorstore.OpLte, Value: v})
		}
	}
	for _, field := range p.schema.Categorical {
		if s, ok := values[field].(string); ok && strings.TrimSpace(s) != "" {
			clauses = append(clauses, vectorstore.Clause{Field: field, Op: vectorstore.OpEq, Value: s})
		}
	}
	return clauses, nil
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
