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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/datachat"
	"github.com/poiesic/datachat/ai"
	"github.com/poiesic/datachat/answer"
	"github.com/poiesic/datachat/core"
	"github.com/poiesic/datachat/ingestion"
	"github.com/poiesic/datachat/vectorstore/pgvector"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "datachat",
		Usage: "Chat with your CSV and JSON files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the data directory",
				Value:   "./datachat-data",
				EnvVars: []string{"DATACHAT_DB"},
			},
			&cli.StringFlag{
				Name:    "openai-host",
				Usage:   "OpenAI-compatible API host URL",
				Value:   "https://api.openai.com/v1",
				EnvVars: []string{"OPENAI_HOST"},
			},
			&cli.StringFlag{
				Name:    "openai-token",
				Usage:   "API key for the OpenAI-compatible service",
				Value:   "none",
				EnvVars: []string{"OPENAI_API_KEY"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				Value:   "text-embedding-3-small",
				EnvVars: []string{"OPENAI_EMBEDDING_MODEL"},
			},
			&cli.StringFlag{
				Name:    "chat-model",
				Usage:   "Chat model name",
				Value:   "gpt-4o-mini",
				EnvVars: []string{"OPENAI_MODEL"},
			},
			&cli.StringFlag{
				Name:    "vector-backend",
				Usage:   "Vector store backend (badger or pgvector)",
				Value:   "badger",
				EnvVars: []string{"VECTOR_BACKEND"},
			},
			&cli.StringFlag{
				Name:    "pg-dsn",
				Usage:   "PostgreSQL DSN for the pgvector backend",
				EnvVars: []string{"PG_DSN"},
			},
			&cli.IntFlag{
				Name:    "embedding-dims",
				Usage:   "Embedding dimensionality, used to size the pgvector schema",
				Value:   1536,
				EnvVars: []string{"EMBEDDING_DIMS"},
			},
			&cli.IntFlag{
				Name:    "upsert-batch-size",
				Usage:   "Number of triples per vector store upsert",
				Value:   100,
				EnvVars: []string{"UPSERT_BATCH_SIZE", "CHROMA_UPSERT_BATCH"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "create",
				Usage:  "Create a new conversation",
				Action: createCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "title",
						Usage: "Conversation title",
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Ingest a CSV or JSON file into a conversation",
				ArgsUsage: "<file>",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "chat",
						Aliases:  []string{"c"},
						Usage:    "Conversation ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "content-type",
						Usage: "Override the file's content type",
					},
					&cli.IntFlag{
						Name:    "batch-size",
						Usage:   "Number of records embedded per provider call",
						Value:   ingestion.DefaultBatchSize,
						EnvVars: []string{"EMBED_BATCH_SIZE"},
					},
					&cli.IntFlag{
						Name:    "concurrency",
						Usage:   "Number of batches embedded in parallel",
						Value:   ingestion.DefaultConcurrency,
						EnvVars: []string{"EMBED_CONCURRENCY"},
					},
					&cli.IntFlag{
						Name:    "max-retries",
						Usage:   "Attempts per embedding call",
						Value:   ingestion.DefaultMaxRetries,
						EnvVars: []string{"EMBED_RETRIES"},
					},
					&cli.IntFlag{
						Name:    "retry-base-ms",
						Usage:   "Base backoff delay in milliseconds",
						Value:   int(ingestion.DefaultBaseBackoff / time.Millisecond),
						EnvVars: []string{"EMBED_RETRY_BASE_MS"},
					},
					&cli.IntFlag{
						Name:    "max-text-chars",
						Usage:   "Cap on record text kept in metadata",
						Value:   ingestion.DefaultMaxTextChars,
						EnvVars: []string{"MAX_CHUNK_TEXT_CHARS"},
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Ask a question about a conversation's data",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "chat",
						Aliases:  []string{"c"},
						Usage:    "Conversation ID",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Number of rows retrieved for grounding",
						Value: answer.DefaultTopK,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Inspect raw retrieval results for a query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "chat",
						Aliases:  []string{"c"},
						Usage:    "Conversation ID",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Number of rows to return",
						Value: answer.DefaultTopK,
					},
				},
			},
			{
				Name:   "chats",
				Usage:  "List conversations, most recently active first",
				Action: chatsCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum conversations to list (0 for all)",
						Value: 20,
					},
				},
			},
			{
				Name:   "history",
				Usage:  "Show a conversation's turns in order",
				Action: historyCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "chat",
						Aliases:  []string{"c"},
						Usage:    "Conversation ID",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum turns to show (0 for all)",
						Value: 50,
					},
				},
			},
			{
				Name:   "files",
				Usage:  "List the files ingested into a conversation",
				Action: filesCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "chat",
						Aliases:  []string{"c"},
						Usage:    "Conversation ID",
						Required: true,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// openApp builds the application from the global flags.
func openApp(c *cli.Context) (*datachat.App, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("openai-host")),
		ai.WithToken(c.String("openai-token")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithChatModel(c.String("chat-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, err
	}

	opts := []datachat.AppOption{
		datachat.WithAIConfig(aiConfig),
		datachat.WithUpsertBatchSize(c.Int("upsert-batch-size")),
	}

	switch backend := c.String("vector-backend"); backend {
	case "badger":
		// The default embedded store
	case "pgvector":
		dsn := c.String("pg-dsn")
		if dsn == "" {
			return nil, fmt.Errorf("pg-dsn is required for the pgvector backend")
		}
		store, err := pgvector.Open(c.Context, dsn)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(c.Context, c.Int("embedding-dims")); err != nil {
			store.Close()
			return nil, err
		}
		opts = append(opts, datachat.WithVectorStore(store))
	default:
		return nil, fmt.Errorf("unknown vector backend %q", backend)
	}

	return datachat.NewApp(c.String("db"), opts...)
}

func createCommand(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	conversation, err := app.ConversationRepository().CreateConversation(c.Context, c.String("title"))
	if err != nil {
		return err
	}

	fmt.Printf("%s\t%s\n", conversation.Id, conversation.Title)
	return nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one file argument")
	}
	path := c.Args().First()

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	config := ingestion.DefaultConfig(
		ingestion.WithBatchSize(c.Int("batch-size")),
		ingestion.WithConcurrency(c.Int("concurrency")),
		ingestion.WithMaxRetries(c.Int("max-retries")),
		ingestion.WithBaseBackoff(time.Duration(c.Int("retry-base-ms"))*time.Millisecond),
		ingestion.WithMaxTextChars(c.Int("max-text-chars")),
	)
	pipeline, err := app.NewIngestionPipeline(ingestion.WithConfig(config))
	if err != nil {
		return err
	}
	defer pipeline.Release()

	count, err := pipeline.Ingest(c.Context, c.String("chat"), filepath.Base(path), c.String("content-type"), raw)
	if err != nil {
		return err
	}

	fmt.Printf("ingested %d records from %s\n", count, filepath.Base(path))
	return nil
}

func askCommand(c *cli.Context) error {
	question := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("expected a question argument")
	}

	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	streamer, err := app.NewAnswerStreamer(answer.WithTopK(c.Int("top-k")))
	if err != nil {
		return err
	}
	defer streamer.Release()

	result, err := streamer.Stream(c.Context, c.String("chat"), question,
		func(ctx context.Context, token []byte) error {
			_, err := os.Stdout.Write(token)
			return err
		})
	if err != nil {
		return err
	}
	fmt.Println()

	// Make sure the turn is stored before the process exits
	return result.Wait(context.Background())
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("expected a query argument")
	}

	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	results, err := app.Gateway().Search(c.Context, query, c.String("chat"), nil, c.Int("top-k"))
	if err != nil {
		return err
	}

	for _, result := range results {
		text, _ := result.Metadata[core.MetaText].(string)
		fmt.Printf("%.4f\t%s\t%s\n", result.Score, result.ID, text)
	}
	return nil
}

func chatsCommand(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	conversations, err := app.ConversationRepository().ListConversations(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}

	for _, conversation := range conversations {
		fmt.Printf("%s\t%s\t%s\n", conversation.Id,
			conversation.UpdatedAt.Local().Format(time.DateTime), conversation.Title)
	}
	return nil
}

func historyCommand(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	turns, err := app.ConversationRepository().GetRecentTurns(c.Context, c.String("chat"), c.Int("limit"))
	if err != nil {
		return err
	}

	// Turns come back newest first; print chronologically
	for i := len(turns) - 1; i >= 0; i-- {
		turn := turns[i]
		fmt.Printf("[%s] %s: %s\n", turn.CreatedAt.Local().Format(time.DateTime), turn.Role, turn.Content)
	}
	return nil
}

func filesCommand(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	refs, err := app.ConversationRepository().ListFileRefs(c.Context, c.String("chat"))
	if err != nil {
		return err
	}

	for _, ref := range refs {
		fmt.Printf("%s\t%s\t%s\n", shortID(ref.FileId), ref.CreatedAt.Local().Format(time.DateTime), ref.Filename)
	}
	return nil
}

// shortID abbreviates an identifier for display.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
