package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepositoryRefLocator(t *testing.T) {
	t.Run("line range", func(t *testing.T) {
		ref := RepositoryRef{
			Owner: "o", Repo: "r", Branch: "main", Path: "README.md",
			StartLine: 1, EndLine: 5,
		}
		assert.Equal(t, "https://github.com/o/r/blob/main/README.md#L1-L5", ref.Locator())
	})

	t.Run("single line", func(t *testing.T) {
		ref := RepositoryRef{
			Owner: "o", Repo: "r", Branch: "dev", Path: "main.go",
			StartLine: 42,
		}
		assert.Equal(t, "https://github.com/o/r/blob/dev/main.go#L42", ref.Locator())
	})

	t.Run("no line anchors", func(t *testing.T) {
		ref := RepositoryRef{Owner: "o", Repo: "r", Branch: "main", Path: "doc.md"}
		assert.Equal(t, "https://github.com/o/r/blob/main/doc.md", ref.Locator())
	})

	t.Run("empty branch defaults to main", func(t *testing.T) {
		ref := RepositoryRef{Owner: "o", Repo: "r", Path: "doc.md"}
		assert.Equal(t, "https://github.com/o/r/blob/main/doc.md", ref.Locator())
	})

	t.Run("incomplete coordinates fall back to document name", func(t *testing.T) {
		ref := RepositoryRef{Owner: "o", DocumentName: "orphan.go"}
		assert.Equal(t, "GitHub: orphan.go", ref.Locator())
	})
}

func TestWebRefLocator(t *testing.T) {
	ref := WebRef{URL: "https://example.com/docs"}
	assert.Equal(t, "https://example.com/docs", ref.Locator())
}

func TestUploadRefLocator(t *testing.T) {
	ref := UploadRef{Name: "notes.txt"}
	assert.Equal(t, "Document: notes.txt", ref.Locator())
}

func TestUnknownRefLocator(t *testing.T) {
	t.Run("prefers url", func(t *testing.T) {
		ref := UnknownRef{URL: "https://example.com", Name: "x"}
		assert.Equal(t, "https://example.com", ref.Locator())
	})

	t.Run("name fallback", func(t *testing.T) {
		ref := UnknownRef{Name: "x"}
		assert.Equal(t, "Document: x", ref.Locator())
	})
}

func TestChunkSourceRef(t *testing.T) {
	t.Run("repository chunk", func(t *testing.T) {
		chunk := &Chunk{
			DocumentName: "README.md",
			Metadata: ChunkMetadata{
				SourceType: SourceRepository,
				Owner:      "o", Repo: "r", Branch: "main", Path: "README.md",
				StartLine: 1, EndLine: 5,
			},
		}
		ref := ChunkSourceRef(chunk)
		assert.IsType(t, RepositoryRef{}, ref)
		assert.Equal(t, "https://github.com/o/r/blob/main/README.md#L1-L5", ref.Locator())
	})

	t.Run("web chunk", func(t *testing.T) {
		chunk := &Chunk{
			Metadata: ChunkMetadata{SourceType: SourceWebsite, URL: "https://example.com"},
		}
		assert.Equal(t, "https://example.com", ChunkSourceRef(chunk).Locator())
	})

	t.Run("upload chunk", func(t *testing.T) {
		chunk := &Chunk{
			DocumentName: "upload.pdf",
			Metadata:     ChunkMetadata{SourceType: SourceFile},
		}
		assert.Equal(t, "Document: upload.pdf", ChunkSourceRef(chunk).Locator())
	})

	t.Run("unknown chunk with stored url", func(t *testing.T) {
		chunk := &Chunk{
			DocumentName: "mystery",
			Metadata:     ChunkMetadata{SourceType: SourceUnknown, URL: "https://somewhere"},
		}
		assert.Equal(t, "https://somewhere", ChunkSourceRef(chunk).Locator())
	})
}
