package answer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	"github.com/poiesic/recall/ai"
)

const systemPrompt = `You are a careful assistant that answers questions using ONLY the provided context.

Rules:
- Answer from the context passages alone. Do not use outside knowledge.
- Cite the sources you used by their number, e.g. "(Source 2)".
- If the context does not contain the answer, say so plainly instead of guessing.
- Keep answers concise and factual.`

// processingErrorMessage is the answer of last resort. Callers always get
// text back, even when retrieval or generation broke underneath them.
const processingErrorMessage = "Sorry, something went wrong while processing your question. Please try again."

// noResultsMessage is returned when retrieval produced nothing to answer from.
const noResultsMessage = "I couldn't find anything relevant in the knowledge base for that question. " +
	"Try rephrasing it, or add documents covering the topic first."

const (
	// maxHistoryMessages bounds how many conversation turns are replayed.
	maxHistoryMessages = 10

	// maxHistoryTokens bounds the replayed history's token footprint.
	maxHistoryTokens = 1000
)

// tokenCounter counts prompt tokens, degrading to a character heuristic
// when the encoding is unavailable (e.g. no cached vocabulary files).
type tokenCounter struct {
	encoding *tiktoken.Tiktoken
}

func newTokenCounter() *tokenCounter {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return &tokenCounter{}
	}
	return &tokenCounter{encoding: enc}
}

func (t *tokenCounter) count(text string) int {
	if t.encoding == nil {
		// Rough heuristic: ~4 characters per token
		return len(text) / 4
	}
	return len(t.encoding.Encode(text, nil, nil))
}

// boundHistory trims conversation history to the most recent turns that fit
// both the message and token budgets.
func (t *tokenCounter) boundHistory(history []ai.Message) []ai.Message {
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}

	total := 0
	for i := len(history) - 1; i >= 0; i-- {
		total += t.count(history[i].Content)
		if total > maxHistoryTokens {
			return history[i+1:]
		}
	}
	return history
}

// buildMessages composes the completion request: system rules, bounded
// history, then the context block and question as the final user turn.
func buildMessages(query, contextBlock string, history []ai.Message, counter *tokenCounter) []ai.Message {
	bounded := counter.boundHistory(history)

	messages := make([]ai.Message, 0, len(bounded)+2)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: systemPrompt})
	messages = append(messages, bounded...)
	messages = append(messages, ai.Message{
		Role:    ai.RoleUser,
		Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextBlock, query),
	})
	return messages
}
