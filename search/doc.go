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

// Package search provides tiered retrieval over embedded chunks.
//
// The Retriever type implements a three-tier retrieval strategy:
//   - Similarity search using vector embeddings
//   - Basic search over recently embedded chunks
//   - A full chunk scan as the last resort
//
// Each tier is tried in order; a tier that fails or returns nothing hands
// off to the next one, so retrieval degrades rather than breaking outright.
// Candidates can optionally be reranked by an LLM before being returned.
package search
