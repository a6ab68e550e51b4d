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

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
)

const rerankPassageLimit = 500

const rerankSystemPrompt = `You rank context passages by how relevant they are to a question.

Respond with ONLY a JSON array of passage numbers, best match first, at most %d entries.
Example: [2, 0, 3]

Do not include any explanation or text outside the JSON array.`

// rerank asks the LLM to order the candidates by relevance to the query
// and keeps the topK best. Any failure, from the call itself to an
// unparseable response, falls back to the tier order.
func (r *Retriever) rerank(ctx context.Context, query string, candidates []*core.RetrievalCandidate, topK int, monitor SearchMonitor) []*core.RetrievalCandidate {
	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: fmt.Sprintf(rerankSystemPrompt, topK)},
		{Role: ai.RoleUser, Content: formatRerankRequest(query, candidates)},
	}

	response, err := r.completer.Complete(ctx, messages,
		ai.WithTemperature(0),
		ai.WithMaxTokens(100),
		ai.WithJSONMode(),
	)
	if err != nil {
		r.logger.Warn("rerank call failed, keeping tier order", "err", err)
		return candidates
	}

	order, err := parseRerankOrder(response, len(candidates))
	if err != nil {
		r.logger.Warn("unparseable rerank response, keeping tier order", "response", response, "err", err)
		return candidates
	}
	monitor.AfterRerank(order)

	reranked := make([]*core.RetrievalCandidate, 0, topK)
	for _, idx := range order {
		reranked = append(reranked, candidates[idx])
		if len(reranked) == topK {
			break
		}
	}
	if len(reranked) == 0 {
		return candidates
	}
	return reranked
}

// formatRerankRequest renders the query and numbered passages for the LLM.
// Passage content is truncated so long chunks don't crowd out the rest.
func formatRerankRequest(query string, candidates []*core.RetrievalCandidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nPassages:\n", query)
	for i, candidate := range candidates {
		content := candidate.Chunk.Content
		if len(content) > rerankPassageLimit {
			content = content[:rerankPassageLimit]
		}
		locator := core.ChunkSourceRef(candidate.Chunk).Locator()
		fmt.Fprintf(&b, "%d: [%s] %s\n", i, locator, content)
	}
	return b.String()
}

// parseRerankOrder extracts a valid index ordering from an LLM response.
// The result is a subset permutation of [0, count): every index in range,
// no duplicates.
func parseRerankOrder(response string, count int) ([]int, error) {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	// Narrow to the first JSON array in the response
	start := strings.Index(cleaned, "[")
	if start < 0 {
		return nil, fmt.Errorf("no JSON array in response")
	}
	if end := strings.LastIndex(cleaned, "]"); end > start {
		cleaned = cleaned[start : end+1]
	} else {
		// Truncated output lost the closing bracket; repair it
		cleaned = cleaned[start:]
	}
	cleaned = repairRankArray(cleaned)

	var order []int
	if err := json.Unmarshal([]byte(cleaned), &order); err != nil {
		return nil, err
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("empty ordering")
	}

	seen := make(map[int]bool, len(order))
	for _, idx := range order {
		if idx < 0 || idx >= count {
			return nil, fmt.Errorf("index %d out of range [0, %d)", idx, count)
		}
		if seen[idx] {
			return nil, fmt.Errorf("duplicate index %d", idx)
		}
		seen[idx] = true
	}
	return order, nil
}

// repairRankArray fixes the truncation damage models inflict on rank
// arrays when they hit a token limit: a dangling comma or partially
// emitted number before a missing closing bracket.
func repairRankArray(s string) string {
	if strings.HasSuffix(s, "]") {
		return s
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ",")
	return strings.TrimSpace(s) + "]"
}
