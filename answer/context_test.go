package answer

import (
	"strings"
	"testing"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(name, content string, index int) *core.RetrievalCandidate {
	return &core.RetrievalCandidate{Chunk: &core.Chunk{
		DocumentName: name,
		Collection:   "docs",
		Index:        index,
		Content:      content,
	}}
}

func TestAssembleContextLabelsSources(t *testing.T) {
	block, sources := assembleContext([]*core.RetrievalCandidate{
		candidate("doc-a", "first passage", 0),
		candidate("doc-b", "second passage", 3),
	})

	assert.Contains(t, block, "Source 1: doc-a")
	assert.Contains(t, block, "Source 2: doc-b")
	assert.Contains(t, block, "first passage")

	require.Len(t, sources, 2)
	assert.Equal(t, "doc-a", sources[0].DocumentName)
	assert.Equal(t, 3, sources[1].ChunkIndex)
	assert.Equal(t, "Document: doc-b", sources[1].Locator)
}

func TestAssembleContextTruncatesChunks(t *testing.T) {
	long := strings.Repeat("a", contextChunkLimit*2)
	block, sources := assembleContext([]*core.RetrievalCandidate{
		candidate("doc", long, 0),
	})

	assert.LessOrEqual(t, strings.Count(block, "a"), contextChunkLimit)
	require.Len(t, sources, 1)
	// Previews are bounded separately
	assert.LessOrEqual(t, len(sources[0].Preview), previewLimit+3)
	assert.True(t, strings.HasSuffix(sources[0].Preview, "..."))
}

func TestAssembleContextRespectsTotalBudget(t *testing.T) {
	big := strings.Repeat("b", contextChunkLimit)
	var candidates []*core.RetrievalCandidate
	for i := 0; i < 10; i++ {
		candidates = append(candidates, candidate("doc", big, i))
	}

	block, sources := assembleContext(candidates)
	assert.LessOrEqual(t, len(block), contextTotalLimit)
	assert.Less(t, len(sources), 10)
	// The first chunk always makes it in
	assert.GreaterOrEqual(t, len(sources), 1)
}

func TestBoundHistoryMessageCount(t *testing.T) {
	counter := &tokenCounter{} // heuristic path

	var history []ai.Message
	for i := 0; i < 25; i++ {
		history = append(history, ai.Message{Role: ai.RoleUser, Content: "short"})
	}

	bounded := counter.boundHistory(history)
	assert.Len(t, bounded, maxHistoryMessages)
}

func TestBoundHistoryTokenBudget(t *testing.T) {
	counter := &tokenCounter{}

	// Each message is far over the token budget on its own
	huge := strings.Repeat("word ", maxHistoryTokens*4)
	history := []ai.Message{
		{Role: ai.RoleUser, Content: huge},
		{Role: ai.RoleAssistant, Content: "recent short answer"},
	}

	bounded := counter.boundHistory(history)
	require.Len(t, bounded, 1)
	assert.Equal(t, "recent short answer", bounded[0].Content)
}

func TestBoundHistoryEmpty(t *testing.T) {
	counter := newTokenCounter()
	assert.Empty(t, counter.boundHistory(nil))
}
