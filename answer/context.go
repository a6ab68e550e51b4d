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

package answer

import (
	"fmt"
	"strings"

	"github.com/poiesic/recall/core"
)

const (
	// contextChunkLimit caps how much of a single chunk enters the context.
	contextChunkLimit = 800

	// contextTotalLimit caps the whole assembled context block.
	contextTotalLimit = 4000

	// previewLimit caps the content preview carried in source attributions.
	previewLimit = 200
)

// Attribution points an answer back at one source chunk.
type Attribution struct {
	DocumentName string
	Collection   string
	Locator      string // Resolved source reference (URL, repo path, document name)
	Preview      string
	ChunkIndex   int
}

// assembleContext renders retrieval candidates into a labeled context block
// for the completion prompt, together with attributions for the chunks that
// made it in. Chunks are included in candidate order until the total budget
// is exhausted.
func assembleContext(candidates []*core.RetrievalCandidate) (string, []Attribution) {
	var (
		b       strings.Builder
		sources []Attribution
	)

	for i, candidate := range candidates {
		chunk := candidate.Chunk

		content := chunk.Content
		if len(content) > contextChunkLimit {
			content = content[:contextChunkLimit]
		}

		locator := core.ChunkSourceRef(chunk).Locator()
		entry := fmt.Sprintf("Source %d: %s (%s)\n%s\n\n", i+1, chunk.DocumentName, locator, content)
		if b.Len()+len(entry) > contextTotalLimit && b.Len() > 0 {
			break
		}

		b.WriteString(entry)
		sources = append(sources, Attribution{
			DocumentName: chunk.DocumentName,
			Collection:   chunk.Collection,
			Locator:      locator,
			Preview:      preview(chunk.Content),
			ChunkIndex:   chunk.Index,
		})
	}

	return strings.TrimSpace(b.String()), sources
}

// preview returns the head of the content for display in source listings.
func preview(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= previewLimit {
		return content
	}
	return content[:previewLimit] + "..."
}
