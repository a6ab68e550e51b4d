package core

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ID is a unique identifier for stored chunks.
// It is derived from content so that re-processing a document produces
// the same IDs and overwrites rather than duplicates.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ChunkID derives the storage ID for a chunk from its document and position.
// The (documentID, index) pair is the chunk's natural key; hashing it makes
// chunk upserts idempotent across re-embedding runs.
func ChunkID(documentID string, index int) ID {
	return IDFromContent(documentID + "#" + strconv.Itoa(index))
}

// NewDocumentID returns a fresh identifier for a document.
func NewDocumentID() string {
	return uuid.NewString()
}

// SourceType identifies where a document's content originated.
type SourceType string

const (
	// SourceFile is an uploaded file.
	SourceFile SourceType = "file"
	// SourceWebsite is a crawled web page.
	SourceWebsite SourceType = "website"
	// SourceRepository is a file crawled from a code repository.
	SourceRepository SourceType = "github"
	// SourceUnknown is content whose origin could not be determined.
	SourceUnknown SourceType = "unknown"
)

// EmbeddingStatus tracks a document's position in the embedding lifecycle.
// Transitions are one-way per attempt: pending -> processing -> done|error.
// Re-indexing resets a document back to pending.
type EmbeddingStatus string

const (
	StatusPending    EmbeddingStatus = "pending"
	StatusProcessing EmbeddingStatus = "processing"
	StatusDone       EmbeddingStatus = "done"
	StatusError      EmbeddingStatus = "error"
)

// Document metadata keys populated by the crawlers and upload handlers.
const (
	MetaOwner     = "owner"
	MetaRepo      = "repo"
	MetaBranch    = "branch"
	MetaPath      = "path"
	MetaSHA       = "sha"
	MetaStartLine = "start_line"
	MetaEndLine   = "end_line"
	MetaURL       = "url"
	MetaTitle     = "title"
	MetaDepth     = "depth"
	MetaFileSize  = "size"
	MetaFileType  = "file_type"
)

// Document is a unit of ingested content belonging to a named collection.
// Documents are created by ingestion and mutated only through status
// transitions while the embedding pipeline processes them.
type Document struct {
	Id              string
	Collection      string
	Name            string
	Content         string
	SourceType      SourceType
	Metadata        map[string]string // Crawler/upload metadata (URL, repo coordinates, line anchors, ...)
	EmbeddingStatus EmbeddingStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
	EmbeddedAt      time.Time // When the embedding status last changed
}

// ResolveSourceType determines the effective source type of a document.
// Repository coordinates in the metadata win over the declared type, since
// crawled repository files sometimes arrive typed as plain files.
func (d *Document) ResolveSourceType() SourceType {
	if d.Metadata[MetaOwner] != "" && d.Metadata[MetaRepo] != "" {
		return SourceRepository
	}
	switch d.SourceType {
	case SourceFile, SourceWebsite, SourceRepository:
		return d.SourceType
	}
	if d.Metadata[MetaURL] != "" {
		return SourceWebsite
	}
	return SourceUnknown
}

// ChunkMetadata carries everything needed to rank a chunk and attribute it
// back to its source. Populated by the embedding pipeline at upsert time.
type ChunkMetadata struct {
	ContentType string // "text", "code" or "markdown"
	CharCount   int
	WordCount   int
	HasCode     bool
	HasMarkdown bool

	SourceType SourceType

	// Repository attribution
	Owner     string
	Repo      string
	Branch    string
	Path      string
	StartLine int
	EndLine   int

	// Web attribution
	URL   string
	Title string
	Depth int

	// Upload attribution
	FileSize int64
	FileType string
}

// Chunk is a contiguous slice of a document's text, the unit of embedding
// and retrieval. The Vector is populated by the embedding pipeline.
type Chunk struct {
	Id           ID
	DocumentID   string
	DocumentName string
	Collection   string
	Index        int // Zero-based position within the document
	Content      string
	Vector       []float32
	Metadata     ChunkMetadata
	UpdatedAt    time.Time
}

// RetrievalCandidate is a chunk projected with an optional similarity score.
// Ephemeral: produced by retrieval, never persisted.
type RetrievalCandidate struct {
	Chunk    *Chunk
	Score    float32
	HasScore bool // False when the chunk came from a non-similarity fallback tier
}
