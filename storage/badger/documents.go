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
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/timshannon/badgerhold/v4"
)

// AddDocuments adds documents to storage, stamping timestamps and resolving
// source types from metadata.
func (s *Store) AddDocuments(ctx context.Context, docs ...*core.Document) error {
	now := time.Now()

	for _, doc := range docs {
		if err := core.ValidateDocument(doc); err != nil {
			return err
		}

		doc.SourceType = doc.ResolveSourceType()
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		doc.UpdatedAt = now

		if err := s.db.Upsert(doc.Id, doc); err != nil {
			return fmt.Errorf("failed to add document %s: %w", doc.Id, err)
		}
	}

	s.logger.Debug("added documents", "count", len(docs))
	return nil
}

// GetDocument retrieves a single document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*core.Document, error) {
	var doc core.Document
	if err := s.db.Get(id, &doc); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return &doc, nil
}

// ListPendingDocuments retrieves documents awaiting embedding.
// An empty collection matches every collection.
func (s *Store) ListPendingDocuments(ctx context.Context, collection string) ([]*core.Document, error) {
	query := badgerhold.Where("EmbeddingStatus").Eq(core.StatusPending)
	if collection != "" {
		query = query.And("Collection").Eq(collection)
	}

	var docs []core.Document
	if err := s.db.Find(&docs, query.SortBy("CreatedAt")); err != nil {
		return nil, fmt.Errorf("failed to list pending documents: %w", err)
	}

	result := make([]*core.Document, len(docs))
	for i := range docs {
		result[i] = &docs[i]
	}
	return result, nil
}

// UpdateDocumentStatus transitions a document's embedding status.
// A transition to done also stamps EmbeddedAt.
func (s *Store) UpdateDocumentStatus(ctx context.Context, id string, status core.EmbeddingStatus) error {
	if err := core.ValidateStatus(status); err != nil {
		return err
	}

	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	doc.EmbeddingStatus = status
	doc.UpdatedAt = time.Now()
	if status == core.StatusDone {
		doc.EmbeddedAt = doc.UpdatedAt
	}

	if err := s.db.Upsert(doc.Id, doc); err != nil {
		return fmt.Errorf("failed to update document %s status: %w", id, err)
	}

	s.logger.Debug("updated document status", "id", id, "status", status)
	return nil
}

// ResetCollectionStatus marks every document in the collection as pending.
// An empty collection matches every collection.
func (s *Store) ResetCollectionStatus(ctx context.Context, collection string) (int, error) {
	var query *badgerhold.Query
	if collection != "" {
		query = badgerhold.Where("Collection").Eq(collection)
	}

	var docs []core.Document
	if err := s.db.Find(&docs, query); err != nil {
		return 0, fmt.Errorf("failed to list documents for reset: %w", err)
	}

	now := time.Now()
	count := 0
	for i := range docs {
		doc := &docs[i]
		if doc.EmbeddingStatus == core.StatusPending {
			continue
		}
		doc.EmbeddingStatus = core.StatusPending
		doc.UpdatedAt = now
		if err := s.db.Upsert(doc.Id, doc); err != nil {
			return count, fmt.Errorf("failed to reset document %s: %w", doc.Id, err)
		}
		count++
	}

	s.logger.Debug("reset collection status", "collection", collection, "count", count)
	return count, nil
}

// CountDocumentsByStatus returns document counts grouped by embedding status.
// An empty collection matches every collection.
func (s *Store) CountDocumentsByStatus(ctx context.Context, collection string) (map[core.EmbeddingStatus]int, error) {
	var query *badgerhold.Query
	if collection != "" {
		query = badgerhold.Where("Collection").Eq(collection)
	}

	counts := make(map[core.EmbeddingStatus]int)
	err := s.db.ForEach(query, func(doc *core.Document) error {
		counts[doc.EmbeddingStatus]++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	return counts, nil
}

// ListCollections returns the distinct collection names present in storage,
// sorted alphabetically.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	err := s.db.ForEach(nil, func(doc *core.Document) error {
		seen[doc.Collection] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	collections := make([]string, 0, len(seen))
	for name := range seen {
		collections = append(collections, name)
	}
	sort.Strings(collections)
	return collections, nil
}

// GetCollection summarizes a single collection by name.
func (s *Store) GetCollection(ctx context.Context, name string) (*storage.CollectionInfo, error) {
	documents, err := s.db.Count(&core.Document{}, badgerhold.Where("Collection").Eq(name))
	if err != nil {
		return nil, fmt.Errorf("failed to count documents in %s: %w", name, err)
	}
	if documents == 0 {
		return nil, storage.ErrNotFound
	}

	chunks, err := s.CountChunks(ctx, []string{name})
	if err != nil {
		return nil, err
	}

	return &storage.CollectionInfo{
		Name:      name,
		Documents: int(documents),
		Chunks:    chunks,
	}, nil
}
