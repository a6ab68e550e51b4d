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
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/search"
)

// Status classifies an answering outcome.
type Status string

const (
	StatusOK      Status = "ok"
	StatusEmpty   Status = "empty"   // Nothing retrievable; canned answer returned
	StatusInvalid Status = "invalid" // Unusable query
	StatusError   Status = "error"
)

// Metrics captures answering timings for display and logging.
type Metrics struct {
	ChunksRetrieved int
	Tier            search.Tier
	RetrievalTime   time.Duration
	GenerationTime  time.Duration
	TotalTime       time.Duration
}

// Response is the full outcome of one answering operation.
type Response struct {
	Status  Status
	Query   string
	Answer  string
	Sources []Attribution
	Metrics Metrics
	Err     error // Cause when Status is StatusError
}

// Generator produces grounded answers from retrieved chunks.
type Generator struct {
	retriever *search.Retriever
	completer ai.Completer
	counter   *tokenCounter
	topK      int
	logger    *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
		return nil
	}
}

// WithTopK sets how many chunks are retrieved per question.
// Default is 5.
func WithTopK(topK int) Option {
	return func(g *Generator) error {
		if topK > 0 {
			g.topK = topK
		}
		return nil
	}
}

// NewGenerator creates a new answer generator.
func NewGenerator(retriever *search.Retriever, completer ai.Completer, opts ...Option) (*Generator, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if completer == nil {
		return nil, ErrCompleterRequired
	}

	g := &Generator{
		retriever: retriever,
		completer: completer,
		counter:   newTokenCounter(),
		topK:      5,
		logger:    slog.Default().With("component", "answer"),
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Generate answers the query from the knowledge base and returns the
// answer text. See GenerateWithMetadata for the full response.
func (g *Generator) Generate(ctx context.Context, query string, collections []string, history []ai.Message) (string, error) {
	response := g.GenerateWithMetadata(ctx, query, collections, history)
	if response.Status == StatusError || response.Status == StatusInvalid {
		return "", response.Err
	}
	return response.Answer, nil
}

// GenerateWithMetadata answers the query and reports sources and timings.
// Failures surface as a response status, never as a panic or a bare error:
// an empty knowledge base yields the canned no-results answer without
// calling the completion model at all.
func (g *Generator) GenerateWithMetadata(ctx context.Context, query string, collections []string, history []ai.Message) *Response {
	return g.run(ctx, query, collections, history, nil)
}

// Stream answers the query, pushing response chunks through fn as they
// arrive. The returned response carries the full answer text.
func (g *Generator) Stream(ctx context.Context, query string, collections []string, history []ai.Message, fn ai.StreamFunc) *Response {
	return g.run(ctx, query, collections, history, fn)
}

func (g *Generator) run(ctx context.Context, query string, collections []string, history []ai.Message, fn ai.StreamFunc) *Response {
	start := time.Now()
	response := &Response{Query: query}

	sr := g.retriever.Search(ctx, query, collections, g.topK)
	response.Metrics.RetrievalTime = sr.Elapsed
	response.Metrics.Tier = sr.Tier
	response.Metrics.ChunksRetrieved = len(sr.Candidates)

	switch sr.Status {
	case search.StatusInvalid:
		response.Status = StatusInvalid
		response.Err = sr.Err
		response.Metrics.TotalTime = time.Since(start)
		return response
	case search.StatusError:
		response.Status = StatusError
		response.Err = sr.Err
		response.Answer = processingErrorMessage
		response.Metrics.TotalTime = time.Since(start)
		return response
	case search.StatusEmpty:
		// Nothing to ground an answer in; don't bother the model
		response.Status = StatusEmpty
		response.Answer = noResultsMessage
		if fn != nil {
			if err := fn(ctx, []byte(noResultsMessage)); err != nil {
				g.logger.Warn("stream callback rejected no-results message", "err", err)
			}
		}
		response.Metrics.TotalTime = time.Since(start)
		return response
	}

	contextBlock, sources := assembleContext(sr.Candidates)
	messages := buildMessages(query, contextBlock, history, g.counter)

	generationStart := time.Now()
	var (
		text string
		err  error
	)
	if fn != nil {
		text, err = g.completer.Stream(ctx, messages, fn)
	} else {
		text, err = g.completer.Complete(ctx, messages)
	}
	response.Metrics.GenerationTime = time.Since(generationStart)
	response.Metrics.TotalTime = time.Since(start)

	if err != nil {
		g.logger.Error("answer generation failed", "err", err)
		response.Status = StatusError
		response.Err = err
		response.Answer = processingErrorMessage
		return response
	}

	response.Status = StatusOK
	response.Answer = text
	response.Sources = sources
	g.logger.Debug("generated answer",
		"chunks", response.Metrics.ChunksRetrieved,
		"retrieval", response.Metrics.RetrievalTime,
		"generation", response.Metrics.GenerationTime)
	return response
}
