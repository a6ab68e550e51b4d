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

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/chunker"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

const (
	// defaultPoolSize bounds concurrent document embedding. Local embedding
	// services degrade quickly past a handful of parallel batches.
	defaultPoolSize = 3

	defaultMaxRetries     = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
)

// Pipeline orchestrates chunking and embedding of stored documents.
// Documents are processed concurrently through a bounded worker pool.
type Pipeline struct {
	store          storage.Store
	embedder       ai.Embedder
	splitter       *chunker.Chunker
	pool           *ants.Pool
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent document processing.
// Default is 3.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithChunker sets a custom chunker.
func WithChunker(splitter *chunker.Chunker) Option {
	return func(p *Pipeline) error {
		if splitter != nil {
			p.splitter = splitter
		}
		return nil
	}
}

// WithMaxRetries sets how many times an embedding batch is attempted.
// Default is 3.
func WithMaxRetries(attempts int) Option {
	return func(p *Pipeline) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		p.maxRetries = attempts
		return nil
	}
}

// WithRetryBaseDelay sets the base delay between embedding retries.
// The delay doubles on each retry. Default is 500ms.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(p *Pipeline) error {
		if delay > 0 {
			p.retryBaseDelay = delay
		}
		return nil
	}
}

// NewPipeline creates a new embedding pipeline.
func NewPipeline(store storage.Store, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	pool, err := ants.NewPool(defaultPoolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:          store,
		embedder:       embedder,
		splitter:       chunker.New(),
		pool:           pool,
		maxRetries:     defaultMaxRetries,
		retryBaseDelay: defaultRetryBaseDelay,
		logger:         slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// ProcessDocument chunks and embeds a single document, walking its status
// from pending through processing to done. A failure at any step marks the
// document as errored and returns the cause. Returns the number of chunks
// stored.
func (p *Pipeline) ProcessDocument(ctx context.Context, doc *core.Document) (int, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return 0, err
	}

	if err := p.store.UpdateDocumentStatus(ctx, doc.Id, core.StatusProcessing); err != nil {
		return 0, err
	}

	count, err := p.embedDocument(ctx, doc)
	if err != nil {
		if statusErr := p.store.UpdateDocumentStatus(ctx, doc.Id, core.StatusError); statusErr != nil {
			p.logger.Error("failed to mark document as errored", "document", doc.Id, "err", statusErr)
		}
		return 0, err
	}

	if err := p.store.UpdateDocumentStatus(ctx, doc.Id, core.StatusDone); err != nil {
		return count, err
	}

	p.logger.Info("processed document", "document", doc.Id, "chunks", count)
	return count, nil
}

// embedDocument splits, embeds, and upserts the chunks for one document.
func (p *Pipeline) embedDocument(ctx context.Context, doc *core.Document) (int, error) {
	pieces := p.splitter.SplitDocument(doc)
	if len(pieces) == 0 {
		return 0, fmt.Errorf("%w: document %s", ErrNoChunks, doc.Id)
	}

	texts := make([]string, len(pieces))
	for i, piece := range pieces {
		texts[i] = piece.Content
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var embedErr error
		vectors, embedErr = p.embedder.EmbedTexts(ctx, texts)
		return embedErr
	}, p.maxRetries, p.retryBaseDelay)
	if err != nil {
		return 0, fmt.Errorf("failed to embed document %s: %w", doc.Id, err)
	}

	if len(vectors) != len(pieces) {
		return 0, fmt.Errorf("embedding result mismatch. expected %d, received %d", len(pieces), len(vectors))
	}

	chunks := make([]*core.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &core.Chunk{
			Id:           core.ChunkID(doc.Id, piece.Index),
			DocumentID:   doc.Id,
			DocumentName: doc.Name,
			Collection:   doc.Collection,
			Index:        piece.Index,
			Content:      piece.Content,
			Vector:       NormalizeVector(vectors[i]),
			Metadata:     buildChunkMetadata(doc, piece),
		}
	}

	if err := p.store.UpsertChunks(ctx, doc.Id, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// BatchResult summarizes one embedding run.
type BatchResult struct {
	Total      int // Documents picked up by the run
	Successful int
	Failed     int
	Chunks     int // Chunks stored across successful documents
}

// ProcessPending embeds every pending document in the collection, fanning
// the work out over the worker pool. An empty collection processes every
// collection. Per-document failures are recorded in the result, not
// returned as errors.
func (p *Pipeline) ProcessPending(ctx context.Context, collection string) (*BatchResult, error) {
	docs, err := p.store.ListPendingDocuments(ctx, collection)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Total: len(docs)}
	if len(docs) == 0 {
		return result, nil
	}

	p.logger.Info("embedding pending documents", "collection", collection, "count", len(docs))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, doc := range docs {
		doc := doc
		wg.Add(1)
		run := func() {
			defer wg.Done()

			count, procErr := p.ProcessDocument(ctx, doc)
			mu.Lock()
			defer mu.Unlock()
			if procErr != nil {
				p.logger.Error("error processing document", "document", doc.Id, "err", procErr)
				result.Failed++
				return
			}
			result.Successful++
			result.Chunks += count
		}

		if submitErr := p.pool.Submit(run); submitErr != nil {
			// Pool rejected the task (released or overloaded); run inline
			run()
		}
	}

	wg.Wait()
	return result, nil
}

// StatusSummary reports document counts per embedding status.
type StatusSummary struct {
	Total      int
	Pending    int
	Processing int
	Done       int
	Errored    int
}

// Progress returns the fraction of documents fully embedded, in [0, 1].
// An empty collection reports 0.
func (s *StatusSummary) Progress() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Done) / float64(s.Total)
}

// Summary reports the embedding status of the collection.
// An empty collection summarizes every collection.
func (p *Pipeline) Summary(ctx context.Context, collection string) (*StatusSummary, error) {
	counts, err := p.store.CountDocumentsByStatus(ctx, collection)
	if err != nil {
		return nil, err
	}

	summary := &StatusSummary{
		Pending:    counts[core.StatusPending],
		Processing: counts[core.StatusProcessing],
		Done:       counts[core.StatusDone],
		Errored:    counts[core.StatusError],
	}
	summary.Total = summary.Pending + summary.Processing + summary.Done + summary.Errored
	return summary, nil
}

// Reindex resets every document in the collection to pending and embeds
// them again. Chunk IDs are deterministic, so re-embedding overwrites
// chunks in place. Returns the batch result of the new run.
func (p *Pipeline) Reindex(ctx context.Context, collection string) (*BatchResult, error) {
	reset, err := p.store.ResetCollectionStatus(ctx, collection)
	if err != nil {
		return nil, err
	}
	p.logger.Info("reset documents for reindex", "collection", collection, "count", reset)

	return p.ProcessPending(ctx, collection)
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
