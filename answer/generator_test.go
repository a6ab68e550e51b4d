package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/search"
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

func seedChunks(t *testing.T, store storage.Store, contents ...string) {
	t.Helper()
	embedder := mock.NewMockEmbedder()
	docID := core.NewDocumentID()

	chunks := make([]*core.Chunk, len(contents))
	for i, content := range contents {
		vector, err := embedder.EmbedText(context.Background(), content)
		require.NoError(t, err)
		chunks[i] = &core.Chunk{
			Id:           core.ChunkID(docID, i),
			DocumentID:   docID,
			DocumentName: "seed-doc",
			Collection:   "docs",
			Index:        i,
			Content:      content,
			Vector:       vector,
		}
	}
	require.NoError(t, store.UpsertChunks(context.Background(), docID, chunks))
}

func newTestGenerator(t *testing.T, store storage.Store, completer *mock.MockCompleter) *Generator {
	t.Helper()
	retriever, err := search.NewRetriever(store, mock.NewMockEmbedder())
	require.NoError(t, err)

	g, err := NewGenerator(retriever, completer)
	require.NoError(t, err)
	return g
}

func TestNewGeneratorValidation(t *testing.T) {
	store := newTestStore(t)
	retriever, err := search.NewRetriever(store, mock.NewMockEmbedder())
	require.NoError(t, err)

	_, err = NewGenerator(nil, mock.NewMockCompleter())
	assert.ErrorIs(t, err, ErrRetrieverRequired)

	_, err = NewGenerator(retriever, nil)
	assert.ErrorIs(t, err, ErrCompleterRequired)
}

func TestGenerateGroundedAnswer(t *testing.T) {
	store := newTestStore(t)
	seedChunks(t, store, "The capital of France is Paris.")

	completer := mock.NewMockCompleter()
	completer.Response = "Paris is the capital of France. (Source 1)"

	g := newTestGenerator(t, store, completer)
	response := g.GenerateWithMetadata(context.Background(), "What is the capital of France?", nil, nil)

	assert.Equal(t, StatusOK, response.Status)
	assert.Equal(t, "Paris is the capital of France. (Source 1)", response.Answer)
	require.NotEmpty(t, response.Sources)
	assert.Equal(t, "seed-doc", response.Sources[0].DocumentName)
	assert.Equal(t, 1, response.Metrics.ChunksRetrieved)
	assert.Equal(t, search.TierSimilarity, response.Metrics.Tier)
	assert.Greater(t, response.Metrics.TotalTime.Nanoseconds(), int64(0))
}

func TestGenerateEmptyKnowledgeBase(t *testing.T) {
	store := newTestStore(t)
	completer := mock.NewMockCompleter()

	g := newTestGenerator(t, store, completer)
	response := g.GenerateWithMetadata(context.Background(), "anything at all?", nil, nil)

	assert.Equal(t, StatusEmpty, response.Status)
	assert.Equal(t, noResultsMessage, response.Answer)
	assert.Empty(t, response.Sources)
	// The completion model is never consulted without context
	assert.Equal(t, 0, completer.CallCount())
}

func TestGenerateInvalidQuery(t *testing.T) {
	store := newTestStore(t)
	g := newTestGenerator(t, store, mock.NewMockCompleter())

	response := g.GenerateWithMetadata(context.Background(), "   ", nil, nil)
	assert.Equal(t, StatusInvalid, response.Status)
	assert.ErrorIs(t, response.Err, core.ErrEmptyQuery)

	_, err := g.Generate(context.Background(), "   ", nil, nil)
	assert.ErrorIs(t, err, core.ErrEmptyQuery)
}

func TestGenerateCompletionFailure(t *testing.T) {
	store := newTestStore(t)
	seedChunks(t, store, "some indexed content")

	completer := mock.NewMockCompleter()
	completer.CompleteFunc = func(ctx context.Context, messages []ai.Message, opts ...ai.CompleteOption) (string, error) {
		return "", errors.New("model unavailable")
	}

	g := newTestGenerator(t, store, completer)
	response := g.GenerateWithMetadata(context.Background(), "some indexed content", nil, nil)
	assert.Equal(t, StatusError, response.Status)
	assert.Error(t, response.Err)
	assert.Equal(t, processingErrorMessage, response.Answer)
}

func TestStreamDeliversChunks(t *testing.T) {
	store := newTestStore(t)
	seedChunks(t, store, "streaming source content")

	completer := mock.NewMockCompleter()
	completer.Response = "streamed answer"

	g := newTestGenerator(t, store, completer)

	var received strings.Builder
	response := g.Stream(context.Background(), "streaming source content", nil, nil,
		func(ctx context.Context, chunk []byte) error {
			received.Write(chunk)
			return nil
		})

	assert.Equal(t, StatusOK, response.Status)
	assert.Equal(t, "streamed answer", response.Answer)
	assert.Equal(t, "streamed answer", received.String())
}

func TestStreamEmptyKnowledgeBase(t *testing.T) {
	store := newTestStore(t)
	completer := mock.NewMockCompleter()
	g := newTestGenerator(t, store, completer)

	var received strings.Builder
	response := g.Stream(context.Background(), "anything?", nil, nil,
		func(ctx context.Context, chunk []byte) error {
			received.Write(chunk)
			return nil
		})

	assert.Equal(t, StatusEmpty, response.Status)
	assert.Equal(t, noResultsMessage, received.String())
	assert.Equal(t, 0, completer.CallCount())
}

func TestGeneratePassesContextToModel(t *testing.T) {
	store := newTestStore(t)
	seedChunks(t, store, "The moon orbits the earth.")

	var captured []ai.Message
	completer := mock.NewMockCompleter()
	completer.CompleteFunc = func(ctx context.Context, messages []ai.Message, opts ...ai.CompleteOption) (string, error) {
		captured = messages
		return "ok", nil
	}

	g := newTestGenerator(t, store, completer)
	history := []ai.Message{
		{Role: ai.RoleUser, Content: "earlier question"},
		{Role: ai.RoleAssistant, Content: "earlier answer"},
	}
	response := g.GenerateWithMetadata(context.Background(), "The moon orbits the earth.", nil, history)
	require.Equal(t, StatusOK, response.Status)

	require.Len(t, captured, 4)
	assert.Equal(t, ai.RoleSystem, captured[0].Role)
	assert.Equal(t, "earlier question", captured[1].Content)
	assert.Equal(t, "earlier answer", captured[2].Content)
	assert.Contains(t, captured[3].Content, "Source 1: seed-doc")
	assert.Contains(t, captured[3].Content, "Question: The moon orbits the earth.")
}
