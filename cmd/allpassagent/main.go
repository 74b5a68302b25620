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
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/totodo/allpassagent"
	"github.com/totodo/allpassagent/ai"
	"github.com/totodo/allpassagent/chat"
	"github.com/totodo/allpassagent/core"
	"github.com/totodo/allpassagent/reindex"
	"github.com/totodo/allpassagent/server"
	"github.com/totodo/allpassagent/vectorstore/pinecone"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "allpassagent",
		Usage: "Document agent: ingest documents, ask questions grounded in them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Usage:   "Directory for the database and uploaded files",
				Value:   "data",
			},
			&cli.StringFlag{
				Name:  "ai-host",
				Usage: "OpenAI-compatible service host URL (embeddings and chat)",
				Value: "http://localhost:11434/v1",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
				Value: "embeddinggemma",
			},
			&cli.StringFlag{
				Name:  "chat-model",
				Usage: "Chat model name",
				Value: "qwen2.5:7b",
			},
			&cli.StringFlag{
				Name:  "rerank-host",
				Usage: "Rerank service host URL",
				Value: "http://localhost:9100",
			},
			&cli.StringFlag{
				Name:  "rerank-model",
				Usage: "Rerank model name",
				Value: "bge-reranker-v2-m3",
			},
			&cli.StringFlag{
				Name:  "pinecone-host",
				Usage: "Pinecone index host URL (omit to use the in-process vector store)",
			},
			&cli.StringFlag{
				Name:  "pinecone-api-key",
				Usage: "Pinecone API key",
			},
			&cli.StringFlag{
				Name:  "pinecone-namespace",
				Usage: "Pinecone namespace",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server and the ingestion worker",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "HTTP listen address",
						Value: ":8080",
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Submit a local file and process it to completion",
				ArgsUsage: "<file>",
				Action:    ingestCommand,
			},
			{
				Name:      "ask",
				Usage:     "Ask a one-shot question, streaming the answer to stdout",
				ArgsUsage: "<question>",
				Action:    askCommand,
			},
			{
				Name:   "status",
				Usage:  "List documents and their processing status",
				Action: statusCommand,
			},
			{
				Name:   "reindex",
				Usage:  "Rebuild the vector index from the document store",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to embed in each batch",
						Value: 20,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// openSystem assembles the stack from the global flags.
func openSystem(c *cli.Context) (*allpassagent.System, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("ai-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithChatModel(c.String("chat-model")),
		ai.WithRerankHost(c.String("rerank-host")),
		ai.WithRerankModel(c.String("rerank-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := []allpassagent.Option{
		allpassagent.WithDataDir(c.String("data-dir")),
		allpassagent.WithAIConfig(aiConfig),
	}

	if host := c.String("pinecone-host"); host != "" {
		store, err := pinecone.NewStore(pinecone.Config{
			Host:      host,
			APIKey:    c.String("pinecone-api-key"),
			Namespace: c.String("pinecone-namespace"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create vector store: %w", err)
		}
		opts = append(opts, allpassagent.WithVectorStore(store))
	}

	return allpassagent.Open(opts...)
}

func serveCommand(c *cli.Context) error {
	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sys.Start(ctx); err != nil {
		return fmt.Errorf("failed to start ingestion worker: %w", err)
	}

	srv, err := sys.Server(server.WithAddr(c.String("addr")))
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one file argument")
	}
	path := c.Args().First()

	kind, err := core.MediaKindForFilename(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	ctx := context.Background()
	doc, err := sys.Pipeline.SubmitDocument(ctx, path, kind, data)
	if err != nil {
		return fmt.Errorf("submission failed: %w", err)
	}
	if err := sys.Pipeline.ProcessPending(ctx); err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}

	doc, err = sys.Docs.GetDocument(ctx, doc.Id)
	if err != nil {
		return err
	}
	fmt.Printf("%d\t%s\t%s\t%d pages\t%d chunks\t%d vectors\n",
		doc.Id, doc.Filename, doc.Status, doc.PageCount, doc.ChunkCount, doc.VectorCount)
	if doc.Status == core.StatusFailed {
		return fmt.Errorf("ingestion failed: %s", doc.Error)
	}
	return nil
}

func askCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("expected a question argument")
	}
	question := strings.Join(c.Args().Slice(), " ")

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	convo := core.ConversationContext{Message: question}
	for event, err := range sys.Chat.Events(context.Background(), convo) {
		if err != nil {
			return err
		}
		switch event.Type {
		case chat.EventContent:
			fmt.Print(event.Content)
		case chat.EventFinal:
			fmt.Println()
			for _, source := range event.Sources {
				fmt.Fprintf(os.Stderr, "source: %s (%s %d)\n", source.Filename, source.PageType, source.Page)
			}
			for _, rec := range event.Recommendations {
				fmt.Fprintf(os.Stderr, "follow-up: %s\n", rec.Question)
			}
		}
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	docs, err := sys.Docs.ListDocuments(context.Background())
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("no documents")
		return nil
	}
	for _, doc := range docs {
		line := fmt.Sprintf("%d\t%s\t%s\t%d chunks\t%d vectors",
			doc.Id, doc.Filename, doc.Status, doc.ChunkCount, doc.VectorCount)
		if doc.Error != "" {
			line += "\t" + doc.Error
		}
		fmt.Println(line)
	}
	return nil
}

func reindexCommand(c *cli.Context) error {
	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	reindexer, err := sys.Reindexer(
		reindex.WithBatchSize(c.Int("batch-size")),
		reindex.WithRetryAttempts(c.Int("max-retries")),
		reindex.WithRetryDelay(c.Duration("retry-delay")),
	)
	if err != nil {
		return err
	}

	report, err := reindexer.Run(context.Background())
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	fmt.Printf("documents: %d, reindexed: %d, requeued: %d, failed: %d\n",
		report.Documents, report.Reindexed, report.Requeued, report.Failed)
	return nil
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
