package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func newTestPipeline(t *testing.T, store storage.Store, embedder *mock.MockEmbedder, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithRetryBaseDelay(time.Millisecond)}, opts...)
	p, err := NewPipeline(store, embedder, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func pendingDocument(collection, content string) *core.Document {
	return &core.Document{
		Id:              core.NewDocumentID(),
		Collection:      collection,
		Name:            "test-doc",
		Content:         content,
		EmbeddingStatus: core.StatusPending,
	}
}

func TestNewPipelineValidation(t *testing.T) {
	store := newTestStore(t)

	_, err := NewPipeline(nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewPipeline(store, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestProcessDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := pendingDocument("docs", strings.Repeat("Python is great. ", 50))
	require.NoError(t, store.AddDocuments(ctx, doc))

	p := newTestPipeline(t, store, mock.NewMockEmbedder())
	count, err := p.ProcessDocument(ctx, doc)
	require.NoError(t, err)
	assert.Greater(t, count, 1)

	got, err := store.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusDone, got.EmbeddingStatus)
	assert.False(t, got.EmbeddedAt.IsZero())

	stored, err := store.CountChunks(ctx, []string{"docs"})
	require.NoError(t, err)
	assert.Equal(t, count, stored)

	// Chunks carry normalized vectors and attribution metadata
	chunk, err := store.GetChunk(ctx, core.ChunkID(doc.Id, 0))
	require.NoError(t, err)
	assert.NotEmpty(t, chunk.Vector)
	assert.Equal(t, "test-doc", chunk.DocumentName)
	assert.Equal(t, "text", chunk.Metadata.ContentType)
	assert.Greater(t, chunk.Metadata.WordCount, 0)
}

func TestProcessDocumentNoChunks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := pendingDocument("docs", "   \n\n   ")
	require.NoError(t, store.AddDocuments(ctx, doc))

	p := newTestPipeline(t, store, mock.NewMockEmbedder())
	_, err := p.ProcessDocument(ctx, doc)
	assert.ErrorIs(t, err, ErrNoChunks)

	got, err := store.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusError, got.EmbeddingStatus)
}

func TestProcessDocumentEmbeddingFailure(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := pendingDocument("docs", "some content worth embedding")
	require.NoError(t, store.AddDocuments(ctx, doc))

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}

	p := newTestPipeline(t, store, embedder)
	_, err := p.ProcessDocument(ctx, doc)
	require.Error(t, err)

	got, err := store.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusError, got.EmbeddingStatus)

	count, err := store.CountChunks(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestProcessDocumentRetriesEmbedding(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := pendingDocument("docs", "retry this content")
	require.NoError(t, store.AddDocuments(ctx, doc))

	attempts := 0
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("transient failure")
		}
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = []float32{1, 0, 0}
		}
		return vectors, nil
	}

	p := newTestPipeline(t, store, embedder)
	count, err := p.ProcessDocument(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 3, attempts)

	got, err := store.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusDone, got.EmbeddingStatus)
}

func TestProcessPendingAggregatesResults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	good1 := pendingDocument("docs", "first document content")
	good2 := pendingDocument("docs", "second document content")
	bad := pendingDocument("docs", "poisoned document content")
	require.NoError(t, store.AddDocuments(ctx, good1, good2, bad))

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		for _, text := range texts {
			if strings.Contains(text, "poisoned") {
				return nil, errors.New("embedding rejected")
			}
		}
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = []float32{1, 0, 0}
		}
		return vectors, nil
	}

	p := newTestPipeline(t, store, embedder)
	result, err := p.ProcessPending(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Chunks)

	got, err := store.GetDocument(ctx, bad.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusError, got.EmbeddingStatus)
}

func TestProcessPendingEmptyCollection(t *testing.T) {
	store := newTestStore(t)

	p := newTestPipeline(t, store, mock.NewMockEmbedder())
	result, err := p.ProcessPending(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
}

func TestReprocessIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := pendingDocument("docs", strings.Repeat("Python is great. ", 50))
	require.NoError(t, store.AddDocuments(ctx, doc))

	p := newTestPipeline(t, store, mock.NewMockEmbedder())
	first, err := p.ProcessDocument(ctx, doc)
	require.NoError(t, err)

	before, err := store.CountChunks(ctx, nil)
	require.NoError(t, err)

	// Reindex resets and re-embeds; the chunk count never grows
	result, err := p.Reindex(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, first, result.Chunks)

	after, err := store.CountChunks(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSummaryAndProgress(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	done := pendingDocument("docs", "done content")
	pending := pendingDocument("docs", "pending content")
	require.NoError(t, store.AddDocuments(ctx, done, pending))

	p := newTestPipeline(t, store, mock.NewMockEmbedder())
	_, err := p.ProcessDocument(ctx, done)
	require.NoError(t, err)

	summary, err := p.Summary(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Done)
	assert.Equal(t, 1, summary.Pending)
	assert.InDelta(t, 0.5, summary.Progress(), 1e-9)

	// No documents means no progress to report, not a finished collection
	empty := &StatusSummary{}
	assert.Equal(t, 0.0, empty.Progress())
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := NormalizeVector([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)

	assert.Empty(t, NormalizeVector(nil))
}
