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

// Package recall is a local retrieval-augmented knowledge base.
//
// Documents are stored in named collections, chunked by content type,
// embedded, and retrieved through tiered search with optional LLM
// reranking. Questions are answered strictly from retrieved context
// with source attribution.
package recall

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/openai"
	"github.com/poiesic/recall/answer"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/ingestion"
	"github.com/poiesic/recall/search"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
)

// KnowledgeBase ties storage, the embedding pipeline, retrieval, and
// answering together behind one handle.
type KnowledgeBase struct {
	store     storage.Store
	provider  ai.AIProvider
	config    *ai.Config
	pipeline  *ingestion.Pipeline
	retriever *search.Retriever
	generator *answer.Generator
	logger    *slog.Logger
}

// KnowledgeBaseOption configures a KnowledgeBase.
type KnowledgeBaseOption func(*knowledgeBaseOptions)

type knowledgeBaseOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	poolSize int
	topK     int
	inMemory bool
}

// WithAIConfig sets the AI service configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) KnowledgeBaseOption {
	return func(o *knowledgeBaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProvider injects an AI provider directly, bypassing the OpenAI
// client construction. Primarily for tests and alternative backends.
func WithProvider(provider ai.AIProvider) KnowledgeBaseOption {
	return func(o *knowledgeBaseOptions) {
		o.provider = provider
	}
}

// WithPoolSize sets the embedding pipeline's worker pool size.
func WithPoolSize(size int) KnowledgeBaseOption {
	return func(o *knowledgeBaseOptions) {
		o.poolSize = size
	}
}

// WithTopK sets how many chunks are retrieved per question.
func WithTopK(topK int) KnowledgeBaseOption {
	return func(o *knowledgeBaseOptions) {
		o.topK = topK
	}
}

// WithInMemoryStorage keeps everything in memory. Primarily for tests.
func WithInMemoryStorage() KnowledgeBaseOption {
	return func(o *knowledgeBaseOptions) {
		o.inMemory = true
	}
}

// Open opens (or creates) a knowledge base at the given path.
func Open(filePath string, opts ...KnowledgeBaseOption) (*KnowledgeBase, error) {
	options := &knowledgeBaseOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	var (
		store storage.Store
		err   error
	)
	if options.inMemory {
		store, err = badger.NewMemoryStore()
	} else {
		store, err = badger.NewStore(filePath)
	}
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	var pipelineOpts []ingestion.Option
	if options.poolSize > 0 {
		pipelineOpts = append(pipelineOpts, ingestion.WithPoolSize(options.poolSize))
	}
	pipeline, err := ingestion.NewPipeline(store, provider.Embedder(), pipelineOpts...)
	if err != nil {
		provider.Close()
		store.Close()
		return nil, err
	}

	retriever, err := search.NewRetriever(store, provider.Embedder(),
		search.WithReranker(provider.Completer()))
	if err != nil {
		pipeline.Release()
		provider.Close()
		store.Close()
		return nil, err
	}

	var generatorOpts []answer.Option
	if options.topK > 0 {
		generatorOpts = append(generatorOpts, answer.WithTopK(options.topK))
	}
	generator, err := answer.NewGenerator(retriever, provider.Completer(), generatorOpts...)
	if err != nil {
		pipeline.Release()
		provider.Close()
		store.Close()
		return nil, err
	}

	return &KnowledgeBase{
		store:     store,
		provider:  provider,
		config:    options.aiConfig,
		pipeline:  pipeline,
		retriever: retriever,
		generator: generator,
		logger:    slog.Default(),
	}, nil
}

// AddDocuments adds documents to the knowledge base. They remain pending
// until the next embedding run picks them up.
func (kb *KnowledgeBase) AddDocuments(ctx context.Context, docs ...*core.Document) error {
	return kb.store.AddDocuments(ctx, docs...)
}

// TriggerEmbedding chunks and embeds every pending document in the
// collection. An empty collection processes all collections.
func (kb *KnowledgeBase) TriggerEmbedding(ctx context.Context, collection string) (*ingestion.BatchResult, error) {
	return kb.pipeline.ProcessPending(ctx, collection)
}

// Reindex resets the collection and embeds everything again.
func (kb *KnowledgeBase) Reindex(ctx context.Context, collection string) (*ingestion.BatchResult, error) {
	return kb.pipeline.Reindex(ctx, collection)
}

// Search retrieves the chunks most relevant to the query without
// generating an answer.
func (kb *KnowledgeBase) Search(ctx context.Context, query string, collections []string, topK int) *search.Result {
	return kb.retriever.Search(ctx, query, collections, topK)
}

// Ask answers the question from the knowledge base with source attribution.
func (kb *KnowledgeBase) Ask(ctx context.Context, query string, collections []string, history []ai.Message) *answer.Response {
	return kb.generator.GenerateWithMetadata(ctx, query, collections, history)
}

// AskStream answers the question, pushing response chunks through fn as
// they arrive.
func (kb *KnowledgeBase) AskStream(ctx context.Context, query string, collections []string, history []ai.Message, fn ai.StreamFunc) *answer.Response {
	return kb.generator.Stream(ctx, query, collections, history, fn)
}

// Status reports the embedding state of the knowledge base.
type Status struct {
	Documents       *ingestion.StatusSummary
	Progress        float64 // Fraction of documents fully embedded
	Chunks          int
	Collections     []string
	EmbeddingModel  string
	CompletionModel string
}

// Status summarizes documents, chunks, and models for the collection.
// An empty collection summarizes everything.
func (kb *KnowledgeBase) Status(ctx context.Context, collection string) (*Status, error) {
	summary, err := kb.pipeline.Summary(ctx, collection)
	if err != nil {
		return nil, err
	}

	var chunks int
	if collection != "" {
		info, err := kb.store.GetCollection(ctx, collection)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		if info != nil {
			chunks = info.Chunks
		}
	} else {
		chunks, err = kb.store.CountChunks(ctx, nil)
		if err != nil {
			return nil, err
		}
	}

	collections, err := kb.store.ListCollections(ctx)
	if err != nil {
		return nil, err
	}

	return &Status{
		Documents:       summary,
		Progress:        summary.Progress(),
		Chunks:          chunks,
		Collections:     collections,
		EmbeddingModel:  kb.config.EmbeddingModel,
		CompletionModel: kb.config.CompletionModel,
	}, nil
}

// Store exposes the underlying storage layer.
func (kb *KnowledgeBase) Store() storage.Store {
	return kb.store
}

// Retriever exposes the retrieval layer.
func (kb *KnowledgeBase) Retriever() *search.Retriever {
	return kb.retriever
}

// Close releases the pipeline, AI provider, and storage.
func (kb *KnowledgeBase) Close() error {
	kb.pipeline.Release()

	if err := kb.provider.Close(); err != nil {
		kb.logger.Error("error closing AI provider", "err", err)
	}

	if err := kb.store.Close(); err != nil {
		kb.logger.Error("error closing store", "err", err)
		return err
	}
	return nil
}
