package chunker

import (
	"strings"

	"github.com/poiesic/recall/core"
)

// ContentType selects the splitting strategy for a piece of text.
type ContentType string

const (
	Text     ContentType = "text"
	Code     ContentType = "code"
	Markdown ContentType = "markdown"
)

// Config holds the chunking parameters for one content type.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	// Separators are tried in order; splitting on a later separator is
	// skipped for any part that already fits within ChunkSize.
	Separators []string
}

// TextConfig returns the default configuration for plain text.
func TextConfig() Config {
	return Config{
		ChunkSize:    500,
		ChunkOverlap: 100,
		Separators:   []string{"\n\n", "\n", ".", " "},
	}
}

// CodeConfig returns the default configuration for source code.
// Declaration boundaries are preferred over raw line breaks.
func CodeConfig() Config {
	return Config{
		ChunkSize:    300,
		ChunkOverlap: 50,
		Separators:   []string{"\nclass ", "\nfunc ", "\ndef ", "\n", " "},
	}
}

// MarkdownConfig returns the default configuration for markdown.
// Heading markers are preferred over paragraph and sentence breaks.
func MarkdownConfig() Config {
	return Config{
		ChunkSize:    400,
		ChunkOverlap: 80,
		Separators:   []string{"\n## ", "\n### ", "\n\n", "\n", ".", " "},
	}
}

// Chunk is one ordered segment of a split document.
type Chunk struct {
	Content     string
	Index       int
	ContentType ContentType
	CharCount   int
	WordCount   int
	HasCode     bool
	HasMarkdown bool
}

// Chunker splits raw text into overlapping, retrievable segments.
// It is a pure function of its configuration: no side effects, safe for
// concurrent use.
type Chunker struct {
	text     Config
	code     Config
	markdown Config
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithTextConfig overrides the plain-text configuration.
func WithTextConfig(cfg Config) Option {
	return func(c *Chunker) { c.text = cfg }
}

// WithCodeConfig overrides the source-code configuration.
func WithCodeConfig(cfg Config) Option {
	return func(c *Chunker) { c.code = cfg }
}

// WithMarkdownConfig overrides the markdown configuration.
func WithMarkdownConfig(cfg Config) Option {
	return func(c *Chunker) { c.markdown = cfg }
}

// New creates a Chunker with per-content-type defaults.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		text:     TextConfig(),
		code:     CodeConfig(),
		markdown: MarkdownConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Split divides text into ordered chunks using the configuration for the
// given content type. Empty or whitespace-only input yields zero chunks.
// An unrecognized content type falls back to plain-text handling.
func (c *Chunker) Split(text string, contentType ContentType) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	cfg := c.configFor(contentType)
	if contentType != Text && contentType != Code && contentType != Markdown {
		contentType = Text
	}

	cleaned := cleanText(text)
	pieces := assemble(splitBySeparators(cleaned, cfg.Separators, cfg.ChunkSize), cfg)

	chunks := make([]Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, Chunk{
			Content:     piece,
			Index:       i,
			ContentType: contentType,
			CharCount:   len(piece),
			WordCount:   len(strings.Fields(piece)),
			HasCode:     ContainsCode(piece),
			HasMarkdown: ContainsMarkdown(piece),
		})
	}
	return chunks
}

// SplitDocument splits a document's content, choosing the content type from
// the document's source and signature scanning.
func (c *Chunker) SplitDocument(doc *core.Document) []Chunk {
	return c.Split(doc.Content, DetectContentType(doc))
}

func (c *Chunker) configFor(contentType ContentType) Config {
	switch contentType {
	case Code:
		return c.code
	case Markdown:
		return c.markdown
	default:
		return c.text
	}
}

// cleanText normalizes whitespace without destroying the newline structure
// the separator hierarchy depends on: runs of spaces and tabs collapse to a
// single space, runs of three or more newlines collapse to a paragraph break.
func cleanText(text string) string {
	text = horizontalSpaceRe.ReplaceAllString(text, " ")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// splitBySeparators breaks text into parts using the separator hierarchy.
// Each separator is applied only to parts still larger than the chunk size;
// a part that no separator can break (a single oversized token) is returned
// intact rather than truncated.
func splitBySeparators(text string, separators []string, chunkSize int) []string {
	if len(text) <= chunkSize || len(separators) == 0 {
		return []string{text}
	}

	sep := separators[0]
	if !strings.Contains(text, sep) {
		return splitBySeparators(text, separators[1:], chunkSize)
	}

	var parts []string
	for i, piece := range strings.Split(text, sep) {
		// Keep the separator attached to the part that follows it so
		// re-assembly reproduces the original text.
		if i > 0 {
			piece = sep + piece
		}
		if piece == "" {
			continue
		}
		parts = append(parts, splitBySeparators(piece, separators[1:], chunkSize)...)
	}
	return parts
}

// assemble merges parts back into chunks, closing a chunk once appending the
// next part would exceed the size budget. Each new chunk starts with an
// overlap window drawn from the tail of the previous chunk.
func assemble(parts []string, cfg Config) []string {
	var chunks []string
	var current string

	for _, part := range parts {
		if len(current)+len(part) > cfg.ChunkSize && current != "" {
			if trimmed := strings.TrimSpace(current); trimmed != "" {
				chunks = append(chunks, trimmed)
			}
			current = overlapTail(current, cfg.ChunkOverlap) + part
		} else {
			current += part
		}
	}

	if trimmed := strings.TrimSpace(current); trimmed != "" {
		chunks = append(chunks, trimmed)
	}
	return chunks
}

// overlapTail returns the last n characters of text, preserving
// cross-boundary context for the next chunk.
func overlapTail(text string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(text) <= n {
		return text
	}
	return text[len(text)-n:]
}
