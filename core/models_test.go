package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDFromContent(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		id1 := IDFromContent("hello world")
		id2 := IDFromContent("hello world")
		assert.Equal(t, id1, id2)
	})

	t.Run("different content different id", func(t *testing.T) {
		assert.NotEqual(t, IDFromContent("hello"), IDFromContent("world"))
	})
}

func TestChunkID(t *testing.T) {
	t.Run("stable across runs", func(t *testing.T) {
		assert.Equal(t, ChunkID("doc-1", 0), ChunkID("doc-1", 0))
	})

	t.Run("varies by index", func(t *testing.T) {
		assert.NotEqual(t, ChunkID("doc-1", 0), ChunkID("doc-1", 1))
	})

	t.Run("varies by document", func(t *testing.T) {
		assert.NotEqual(t, ChunkID("doc-1", 0), ChunkID("doc-2", 0))
	})

	t.Run("no collision between doc-1 index 10 and doc-11 index 0", func(t *testing.T) {
		// The separator prevents ambiguous concatenation.
		assert.NotEqual(t, ChunkID("doc-1", 10), ChunkID("doc-11", 0))
	})
}

func TestNewDocumentID(t *testing.T) {
	a := NewDocumentID()
	b := NewDocumentID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestResolveSourceType(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want SourceType
	}{
		{
			name: "repository coordinates win over declared type",
			doc: Document{
				SourceType: SourceFile,
				Metadata:   map[string]string{MetaOwner: "o", MetaRepo: "r"},
			},
			want: SourceRepository,
		},
		{
			name: "declared website type",
			doc:  Document{SourceType: SourceWebsite},
			want: SourceWebsite,
		},
		{
			name: "declared file type",
			doc:  Document{SourceType: SourceFile},
			want: SourceFile,
		},
		{
			name: "url metadata implies website",
			doc:  Document{Metadata: map[string]string{MetaURL: "https://example.com"}},
			want: SourceWebsite,
		},
		{
			name: "no signals",
			doc:  Document{},
			want: SourceUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.doc.ResolveSourceType())
		})
	}
}
