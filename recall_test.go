package recall

import (
	"context"
	"strings"
	"testing"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/answer"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestKB(t *testing.T) (*KnowledgeBase, *mock.MockProvider) {
	t.Helper()
	provider := mock.NewMockProvider()

	kb, err := Open("", WithProvider(provider), WithInMemoryStorage())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = kb.Close()
	})
	return kb, provider.(*mock.MockProvider)
}

func TestEndToEndIngestAndAsk(t *testing.T) {
	kb, provider := openTestKB(t)
	ctx := context.Background()

	doc := &core.Document{
		Id:              core.NewDocumentID(),
		Collection:      "docs",
		Name:            "python-notes",
		Content:         strings.Repeat("Python is great. ", 50),
		EmbeddingStatus: core.StatusPending,
	}
	require.NoError(t, kb.AddDocuments(ctx, doc))

	result, err := kb.TriggerEmbedding(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Successful)
	assert.Greater(t, result.Chunks, 1)

	status, err := kb.Status(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Documents.Done)
	assert.Equal(t, 1.0, status.Progress)
	assert.Equal(t, result.Chunks, status.Chunks)
	assert.Equal(t, []string{"docs"}, status.Collections)

	provider.GetMockCompleter().Response = "Python is considered great. (Source 1)"
	response := kb.Ask(ctx, "What do the notes say about Python?", []string{"docs"}, nil)
	assert.Equal(t, answer.StatusOK, response.Status)
	assert.NotEmpty(t, response.Sources)
	assert.Contains(t, response.Answer, "Python")
}

func TestSearchWithoutAnswering(t *testing.T) {
	kb, _ := openTestKB(t)
	ctx := context.Background()

	doc := &core.Document{
		Id:              core.NewDocumentID(),
		Collection:      "docs",
		Name:            "facts",
		Content:         "The Rhine flows through Basel, Strasbourg, and Cologne.",
		EmbeddingStatus: core.StatusPending,
	}
	require.NoError(t, kb.AddDocuments(ctx, doc))
	_, err := kb.TriggerEmbedding(ctx, "")
	require.NoError(t, err)

	result := kb.Search(ctx, "Which cities does the Rhine flow through?", nil, 3)
	assert.Equal(t, search.StatusOK, result.Status)
	assert.NotEmpty(t, result.Candidates)
}

func TestAskEmptyKnowledgeBase(t *testing.T) {
	kb, provider := openTestKB(t)

	response := kb.Ask(context.Background(), "anything?", nil, nil)
	assert.Equal(t, answer.StatusEmpty, response.Status)
	assert.NotEmpty(t, response.Answer)
	assert.Equal(t, 0, provider.GetMockCompleter().CallCount())
}

func TestReindexKeepsChunkCountStable(t *testing.T) {
	kb, _ := openTestKB(t)
	ctx := context.Background()

	doc := &core.Document{
		Id:              core.NewDocumentID(),
		Collection:      "docs",
		Name:            "stable",
		Content:         strings.Repeat("Stability matters. ", 60),
		EmbeddingStatus: core.StatusPending,
	}
	require.NoError(t, kb.AddDocuments(ctx, doc))

	_, err := kb.TriggerEmbedding(ctx, "docs")
	require.NoError(t, err)

	before, err := kb.Store().CountChunks(ctx, nil)
	require.NoError(t, err)

	_, err = kb.Reindex(ctx, "docs")
	require.NoError(t, err)

	after, err := kb.Store().CountChunks(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAskStream(t *testing.T) {
	kb, provider := openTestKB(t)
	ctx := context.Background()

	doc := &core.Document{
		Id:              core.NewDocumentID(),
		Collection:      "docs",
		Name:            "stream-doc",
		Content:         "Streaming delivers tokens incrementally.",
		EmbeddingStatus: core.StatusPending,
	}
	require.NoError(t, kb.AddDocuments(ctx, doc))
	_, err := kb.TriggerEmbedding(ctx, "")
	require.NoError(t, err)

	provider.GetMockCompleter().Response = "Tokens arrive as they are generated."

	var received strings.Builder
	response := kb.AskStream(ctx, "How does streaming work?", nil, nil,
		func(ctx context.Context, chunk []byte) error {
			received.Write(chunk)
			return nil
		})

	assert.Equal(t, answer.StatusOK, response.Status)
	assert.Equal(t, response.Answer, received.String())
}
