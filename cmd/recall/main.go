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
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/recall"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage/badger"
)

func main() {
	app := &cli.App{
		Name:  "recall",
		Usage: "Local retrieval-augmented knowledge base",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add files to a collection as pending documents",
				ArgsUsage: "FILE [FILE...]",
				Action:    addCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
						EnvVars:  []string{"RECALL_DB"},
					},
					&cli.StringFlag{
						Name:    "collection",
						Aliases: []string{"c"},
						Usage:   "Collection to add the documents to",
						Value:   "default",
					},
				},
			},
			{
				Name:   "embed",
				Usage:  "Chunk and embed all pending documents",
				Action: embedCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
						EnvVars:  []string{"RECALL_DB"},
					},
					&cli.StringFlag{
						Name:    "collection",
						Aliases: []string{"c"},
						Usage:   "Restrict to one collection (default: all)",
					},
					&cli.BoolFlag{
						Name:  "reindex",
						Usage: "Reset the collection and embed everything again",
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of documents to embed concurrently",
						Value: 3,
					},
				}, aiFlags()...),
			},
			{
				Name:   "status",
				Usage:  "Show embedding progress and collection inventory",
				Action: statusCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
						EnvVars:  []string{"RECALL_DB"},
					},
					&cli.StringFlag{
						Name:    "collection",
						Aliases: []string{"c"},
						Usage:   "Restrict to one collection (default: all)",
					},
				}, aiFlags()...),
			},
			{
				Name:      "query",
				Usage:     "Retrieve relevant chunks without generating an answer",
				ArgsUsage: "QUERY",
				Action:    queryCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
						EnvVars:  []string{"RECALL_DB"},
					},
					&cli.StringSliceFlag{
						Name:    "collection",
						Aliases: []string{"c"},
						Usage:   "Collections to search (default: all)",
					},
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of chunks to return",
						Value:   5,
					},
				}, aiFlags()...),
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from the knowledge base",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
						EnvVars:  []string{"RECALL_DB"},
					},
					&cli.StringSliceFlag{
						Name:    "collection",
						Aliases: []string{"c"},
						Usage:   "Collections to search (default: all)",
					},
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of chunks to ground the answer on",
						Value:   5,
					},
					&cli.BoolFlag{
						Name:  "sources",
						Usage: "Print source attributions after the answer",
					},
				}, aiFlags()...),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// aiFlags are shared by every command that talks to the AI service.
func aiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Usage:   "OpenAI-compatible service host URL",
			Value:   "http://localhost:11434/v1",
			EnvVars: []string{"RECALL_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   "embeddinggemma",
			EnvVars: []string{"RECALL_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "completion-model",
			Usage:   "Completion model name",
			Value:   "qwen2.5:3b",
			EnvVars: []string{"RECALL_COMPLETION_MODEL"},
		},
		&cli.StringFlag{
			Name:    "api-token",
			Usage:   "API token for the AI service",
			EnvVars: []string{"RECALL_API_TOKEN"},
		},
	}
}

func openKnowledgeBase(c *cli.Context, extra ...recall.KnowledgeBaseOption) (*recall.KnowledgeBase, error) {
	config := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithCompletionModel(c.String("completion-model")),
		ai.WithAPIToken(c.String("api-token")),
	)

	opts := append([]recall.KnowledgeBaseOption{recall.WithAIConfig(config)}, extra...)
	return recall.Open(c.String("db"), opts...)
}

func addCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}

	ctx := context.Background()

	// Adding documents needs no AI service, so open the store directly.
	store, err := badger.NewStore(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	collection := c.String("collection")
	docs := make([]*core.Document, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}

		docs = append(docs, &core.Document{
			Id:         core.NewDocumentID(),
			Collection: collection,
			Name:       filepath.Base(path),
			Content:    string(content),
			SourceType: core.SourceFile,
			Metadata: map[string]string{
				core.MetaPath:     path,
				core.MetaFileSize: strconv.FormatInt(info.Size(), 10),
				core.MetaFileType: strings.TrimPrefix(filepath.Ext(path), "."),
			},
			EmbeddingStatus: core.StatusPending,
		})
	}

	if err := store.AddDocuments(ctx, docs...); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Added %d document(s) to collection %q. Run 'recall embed' to index them.\n",
		len(docs), collection)
	return nil
}

func embedCommand(c *cli.Context) error {
	ctx := context.Background()

	kb, err := openKnowledgeBase(c, recall.WithPoolSize(c.Int("pool-size")))
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer kb.Close()

	collection := c.String("collection")

	run := kb.TriggerEmbedding
	if c.Bool("reindex") {
		run = kb.Reindex
	}
	result, err := run(ctx, collection)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Processed %d document(s): %d succeeded, %d failed, %d chunks stored\n",
		result.Total, result.Successful, result.Failed, result.Chunks)
	if result.Failed > 0 {
		return fmt.Errorf("%d document(s) failed to embed", result.Failed)
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	ctx := context.Background()

	kb, err := openKnowledgeBase(c)
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer kb.Close()

	status, err := kb.Status(ctx, c.String("collection"))
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}

	fmt.Printf("Documents:   %d total (%d pending, %d processing, %d done, %d errored)\n",
		status.Documents.Total, status.Documents.Pending, status.Documents.Processing,
		status.Documents.Done, status.Documents.Errored)
	fmt.Printf("Progress:    %.0f%%\n", status.Progress*100)
	fmt.Printf("Chunks:      %d\n", status.Chunks)
	fmt.Printf("Collections: %s\n", strings.Join(status.Collections, ", "))
	fmt.Printf("Models:      %s (embedding), %s (completion)\n",
		status.EmbeddingModel, status.CompletionModel)
	return nil
}

// chunkOutput is the JSON shape of one retrieved chunk.
type chunkOutput struct {
	Document   string  `json:"document"`
	Collection string  `json:"collection"`
	Source     string  `json:"source"`
	Index      int     `json:"index"`
	Score      float32 `json:"score,omitempty"`
	Content    string  `json:"content"`
}

type queryOutput struct {
	Query   string        `json:"query"`
	Status  string        `json:"status"`
	Tier    string        `json:"tier"`
	Elapsed string        `json:"elapsed"`
	Chunks  []chunkOutput `json:"chunks"`
}

func queryCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("query text is required")
	}
	query := strings.Join(c.Args().Slice(), " ")

	ctx := context.Background()

	kb, err := openKnowledgeBase(c)
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer kb.Close()

	result := kb.Search(ctx, query, c.StringSlice("collection"), c.Int("top-k"))

	out := queryOutput{
		Query:   result.Query,
		Status:  string(result.Status),
		Tier:    string(result.Tier),
		Elapsed: result.Elapsed.String(),
		Chunks:  make([]chunkOutput, 0, len(result.Candidates)),
	}
	for _, cand := range result.Candidates {
		entry := chunkOutput{
			Document:   cand.Chunk.DocumentName,
			Collection: cand.Chunk.Collection,
			Source:     core.ChunkSourceRef(cand.Chunk).Locator(),
			Index:      cand.Chunk.Index,
			Content:    cand.Chunk.Content,
		}
		if cand.HasScore {
			entry.Score = cand.Score
		}
		out.Chunks = append(out.Chunks, entry)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	if result.Err != nil {
		return fmt.Errorf("search failed: %w", result.Err)
	}
	return nil
}

func askCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("question text is required")
	}
	question := strings.Join(c.Args().Slice(), " ")

	ctx := context.Background()

	kb, err := openKnowledgeBase(c, recall.WithTopK(c.Int("top-k")))
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer kb.Close()

	response := kb.AskStream(ctx, question, c.StringSlice("collection"), nil,
		func(_ context.Context, chunk []byte) error {
			_, err := os.Stdout.Write(chunk)
			return err
		})
	fmt.Println()

	if response.Err != nil {
		return fmt.Errorf("answering failed: %w", response.Err)
	}

	if c.Bool("sources") && len(response.Sources) > 0 {
		fmt.Println()
		for i, src := range response.Sources {
			fmt.Printf("Source %d: %s (%s)\n", i+1, src.DocumentName, src.Locator)
		}
	}

	fmt.Fprintf(os.Stderr, "\nRetrieved %d chunk(s) via %s tier in %s (total %s)\n",
		response.Metrics.ChunksRetrieved, response.Metrics.Tier,
		response.Metrics.RetrievalTime, response.Metrics.TotalTime)
	return nil
}

func setup(c *cli.Context) error {
	// Load .env if present so flags can pick up EnvVars defaults.
	_ = godotenv.Load()

	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
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

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
