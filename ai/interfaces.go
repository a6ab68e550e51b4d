package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat conversation sent to a Completer.
type Message struct {
	Role    Role
	Content string
}

// StreamFunc receives incremental response fragments during streaming
// generation. Returning an error stops the stream.
type StreamFunc func(ctx context.Context, chunk []byte) error

// Completer generates chat completions.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete generates a full response for the conversation in one call.
	Complete(ctx context.Context, messages []Message, opts ...CompleteOption) (string, error)

	// Stream generates a response incrementally, invoking fn for each
	// fragment as it arrives. The complete response text is also returned
	// once the stream finishes.
	Stream(ctx context.Context, messages []Message, fn StreamFunc, opts ...CompleteOption) (string, error)
}

// CompleteOptions holds tunables for a single completion call.
type CompleteOptions struct {
	// Temperature controls sampling randomness. Negative means provider default.
	Temperature float64
	// MaxTokens bounds the response length. Zero means provider default.
	MaxTokens int
	// JSONMode asks the model to emit valid JSON.
	JSONMode bool
}

// CompleteOption configures a completion call.
type CompleteOption func(*CompleteOptions)

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) CompleteOption {
	return func(o *CompleteOptions) { o.Temperature = temperature }
}

// WithMaxTokens bounds the response length.
func WithMaxTokens(maxTokens int) CompleteOption {
	return func(o *CompleteOptions) { o.MaxTokens = maxTokens }
}

// WithJSONMode asks the model to respond with valid JSON.
func WithJSONMode() CompleteOption {
	return func(o *CompleteOptions) { o.JSONMode = true }
}

// ApplyCompleteOptions folds the given options into a CompleteOptions with
// "unset" defaults.
func ApplyCompleteOptions(opts ...CompleteOption) CompleteOptions {
	options := CompleteOptions{Temperature: -1}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and Completer instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Completer returns the chat completion service.
	// The returned Completer is safe for concurrent use.
	Completer() Completer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
