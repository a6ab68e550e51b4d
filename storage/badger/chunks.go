package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/timshannon/badgerhold/v4"
)

// UpsertChunks stores the chunks for a document, replacing any previous
// chunks it had. Chunk IDs are deterministic per (document, index), so
// re-ingesting the same document overwrites its chunks in place instead
// of accumulating duplicates.
func (s *Store) UpsertChunks(ctx context.Context, documentID string, chunks []*core.Chunk) error {
	if documentID == "" {
		return fmt.Errorf("%w: missing document id", core.ErrInvalidChunk)
	}

	now := time.Now()
	for i, chunk := range chunks {
		if chunk == nil || chunk.Content == "" {
			return fmt.Errorf("%w: empty chunk at index %d", core.ErrInvalidChunk, i)
		}
		if chunk.Id == 0 {
			chunk.Id = core.ChunkID(documentID, chunk.Index)
		}
		chunk.DocumentID = documentID
		chunk.UpdatedAt = now

		if err := s.db.Upsert(uint64(chunk.Id), chunk); err != nil {
			return fmt.Errorf("failed to upsert chunk %d of %s: %w", chunk.Index, documentID, err)
		}
	}

	// Drop chunks left over from a longer previous version of the document.
	err := s.db.DeleteMatching(&core.Chunk{},
		badgerhold.Where("DocumentID").Eq(documentID).And("Index").Ge(len(chunks)))
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete stale chunks of %s: %w", documentID, err)
	}

	s.logger.Debug("upserted chunks", "document", documentID, "count", len(chunks))
	return nil
}

// GetChunk retrieves a single chunk by ID.
func (s *Store) GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	var chunk core.Chunk
	if err := s.db.Get(uint64(id), &chunk); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chunk %d: %w", id, err)
	}
	return &chunk, nil
}

// CountChunks returns the number of stored chunks across the given
// collections. Nil or empty collections matches every collection.
func (s *Store) CountChunks(ctx context.Context, collections []string) (int, error) {
	count, err := s.db.Count(&core.Chunk{}, chunkCollectionQuery(collections))
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(count), nil
}

// chunkCollectionQuery builds a query restricting chunks to the given
// collections. Nil or empty collections returns a nil query (match all).
func chunkCollectionQuery(collections []string) *badgerhold.Query {
	if len(collections) == 0 {
		return nil
	}
	values := make([]any, len(collections))
	for i, c := range collections {
		values[i] = c
	}
	return badgerhold.Where("Collection").In(values...)
}
