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

package badger

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/timshannon/badgerhold/v4"
)

// SimilaritySearch finds the chunks most similar to the given vector using
// brute-force cosine similarity. Chunks without vectors are skipped.
func (s *Store) SimilaritySearch(ctx context.Context, vector []float32, collections []string, limit int) ([]*core.RetrievalCandidate, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: non-positive limit", storage.ErrInvalidQuery)
	}

	var candidates []*core.RetrievalCandidate
	err := s.db.ForEach(chunkCollectionQuery(collections), func(chunk *core.Chunk) error {
		if len(chunk.Vector) != len(vector) {
			return nil
		}
		candidates = append(candidates, &core.RetrievalCandidate{
			Chunk:    chunk,
			Score:    cosineSimilarity(vector, chunk.Vector),
			HasScore: true,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	slices.SortFunc(candidates, func(a, b *core.RetrievalCandidate) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	s.logger.Debug("similarity search", "results", len(candidates), "limit", limit)
	return candidates, nil
}

// BasicSearch returns up to limit embedded chunks without vector scoring,
// most recently updated first.
func (s *Store) BasicSearch(ctx context.Context, collections []string, limit int) ([]*core.RetrievalCandidate, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: non-positive limit", storage.ErrInvalidQuery)
	}

	var chunks []core.Chunk
	query := chunkCollectionQuery(collections)
	if query == nil {
		query = allChunksQuery()
	}
	if err := s.db.Find(&chunks, query.SortBy("UpdatedAt").Reverse()); err != nil {
		return nil, fmt.Errorf("basic search failed: %w", err)
	}

	candidates := make([]*core.RetrievalCandidate, 0, limit)
	for i := range chunks {
		if len(chunks[i].Vector) == 0 {
			continue
		}
		candidates = append(candidates, &core.RetrievalCandidate{Chunk: &chunks[i]})
		if len(candidates) == limit {
			break
		}
	}
	return candidates, nil
}

// ScanChunks returns up to limit embedded chunks in document order.
func (s *Store) ScanChunks(ctx context.Context, collections []string, limit int) ([]*core.RetrievalCandidate, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: non-positive limit", storage.ErrInvalidQuery)
	}

	var chunks []core.Chunk
	query := chunkCollectionQuery(collections)
	if query == nil {
		query = allChunksQuery()
	}
	if err := s.db.Find(&chunks, query.SortBy("DocumentID", "Index")); err != nil {
		return nil, fmt.Errorf("chunk scan failed: %w", err)
	}

	candidates := make([]*core.RetrievalCandidate, 0, limit)
	for i := range chunks {
		if len(chunks[i].Vector) == 0 {
			continue
		}
		candidates = append(candidates, &core.RetrievalCandidate{Chunk: &chunks[i]})
		if len(candidates) == limit {
			break
		}
	}
	return candidates, nil
}

// cosineSimilarity computes the cosine similarity between two vectors of
// equal length. Returns 0 when either vector has zero magnitude.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// allChunksQuery matches every stored chunk. Chunks always carry content,
// so a non-empty content criterion is a match-all that still supports sorting.
func allChunksQuery() *badgerhold.Query {
	return badgerhold.Where("Content").Ne("")
}
