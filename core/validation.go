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


package core

import (
	"fmt"
	"strings"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Id must not be empty
//   - Collection must not be empty
//   - Content must not be empty
//   - EmbeddingStatus, if set, must be a known value
//
// NOT validated (populated by the pipeline):
//   - EmbeddedAt (zero until the first status transition)
//   - Metadata (free-form, source dependent)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if doc.Id == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidDocument)
	}
	if doc.Collection == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyCollection)
	}
	if doc.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContent)
	}
	if doc.EmbeddingStatus != "" {
		if err := ValidateStatus(doc.EmbeddingStatus); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
	}
	return nil
}

// ValidateStatus checks that a status is one of the known lifecycle values.
func ValidateStatus(status EmbeddingStatus) error {
	switch status {
	case StatusPending, StatusProcessing, StatusDone, StatusError:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
}

// ValidateQuery rejects empty or whitespace-only query strings before any
// provider call is made.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return ErrEmptyQuery
	}
	return nil
}
