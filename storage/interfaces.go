package storage

import (
	"context"

	"github.com/poiesic/recall/core"
)

// DocumentRepository provides operations for managing source documents.
// Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	// AddDocuments adds one or more documents to storage.
	// Sets CreatedAt/UpdatedAt timestamps if not already set and resolves
	// the source type from metadata when unset.
	AddDocuments(ctx context.Context, docs ...*core.Document) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id string) (*core.Document, error)

	// ListPendingDocuments retrieves documents with pending embedding status.
	// An empty collection matches every collection.
	ListPendingDocuments(ctx context.Context, collection string) ([]*core.Document, error)

	// UpdateDocumentStatus transitions a document's embedding status.
	// A transition to done also stamps EmbeddedAt.
	// Returns ErrNotFound if the document doesn't exist.
	UpdateDocumentStatus(ctx context.Context, id string, status core.EmbeddingStatus) error

	// ResetCollectionStatus marks every document in the collection as pending
	// so the next embedding run reprocesses them. An empty collection matches
	// every collection. Returns the number of documents reset.
	ResetCollectionStatus(ctx context.Context, collection string) (int, error)

	// CountDocumentsByStatus returns document counts grouped by embedding status.
	// An empty collection matches every collection.
	CountDocumentsByStatus(ctx context.Context, collection string) (map[core.EmbeddingStatus]int, error)

	// ListCollections returns the distinct collection names present in storage.
	ListCollections(ctx context.Context) ([]string, error)

	// GetCollection summarizes a single collection by name.
	// Returns ErrNotFound if no document belongs to it.
	GetCollection(ctx context.Context, name string) (*CollectionInfo, error)
}

// CollectionInfo summarizes one collection's contents.
type CollectionInfo struct {
	Name      string
	Documents int
	Chunks    int
}

// ChunkRepository provides operations for managing embedded chunks.
type ChunkRepository interface {
	// UpsertChunks stores the chunks for a document, replacing any previous
	// chunks it had. Chunk IDs are deterministic per (document, index), so
	// re-ingesting a document overwrites in place; chunks beyond the new
	// count are deleted.
	UpsertChunks(ctx context.Context, documentID string, chunks []*core.Chunk) error

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// CountChunks returns the number of stored chunks across the given
	// collections. Nil or empty collections matches every collection.
	CountChunks(ctx context.Context, collections []string) (int, error)
}

// ChunkSearcher provides retrieval operations over stored chunks.
type ChunkSearcher interface {
	// SimilaritySearch finds the chunks most similar to the given vector,
	// restricted to the given collections (nil means all). Results are
	// ordered by cosine similarity, highest first, up to limit. Chunks
	// without vectors are skipped.
	SimilaritySearch(ctx context.Context, vector []float32, collections []string, limit int) ([]*core.RetrievalCandidate, error)

	// BasicSearch returns up to limit embedded chunks without vector
	// scoring, most recently updated first. Used as a fallback when
	// similarity search fails or returns nothing.
	BasicSearch(ctx context.Context, collections []string, limit int) ([]*core.RetrievalCandidate, error)

	// ScanChunks returns up to limit embedded chunks in document order.
	// This is the last-resort retrieval tier.
	ScanChunks(ctx context.Context, collections []string, limit int) ([]*core.RetrievalCandidate, error)
}

// Store combines all storage operations behind a single interface.
type Store interface {
	DocumentRepository
	ChunkRepository
	ChunkSearcher

	// Close closes the storage backend and releases resources.
	Close() error
}
