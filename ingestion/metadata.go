package ingestion

import (
	"strconv"

	"github.com/poiesic/recall/chunker"
	"github.com/poiesic/recall/core"
)

// buildChunkMetadata projects document source metadata and chunk statistics
// into the metadata stored with each chunk. Attribution fields are filled
// only for the document's resolved source type.
func buildChunkMetadata(doc *core.Document, ck chunker.Chunk) core.ChunkMetadata {
	meta := core.ChunkMetadata{
		ContentType: string(ck.ContentType),
		CharCount:   ck.CharCount,
		WordCount:   ck.WordCount,
		HasCode:     ck.HasCode,
		HasMarkdown: ck.HasMarkdown,
		SourceType:  doc.ResolveSourceType(),
	}

	switch meta.SourceType {
	case core.SourceRepository:
		meta.Owner = doc.Metadata[core.MetaOwner]
		meta.Repo = doc.Metadata[core.MetaRepo]
		meta.Branch = doc.Metadata[core.MetaBranch]
		meta.Path = doc.Metadata[core.MetaPath]
		meta.StartLine = atoiOrZero(doc.Metadata[core.MetaStartLine])
		meta.EndLine = atoiOrZero(doc.Metadata[core.MetaEndLine])
	case core.SourceWebsite:
		meta.URL = doc.Metadata[core.MetaURL]
		meta.Title = doc.Metadata[core.MetaTitle]
		meta.Depth = atoiOrZero(doc.Metadata[core.MetaDepth])
	case core.SourceFile:
		meta.FileSize = int64(atoiOrZero(doc.Metadata[core.MetaFileSize]))
		meta.FileType = doc.Metadata[core.MetaFileType]
	default:
		meta.URL = doc.Metadata[core.MetaURL]
	}

	return meta
}

// atoiOrZero parses numeric metadata values, treating anything malformed
// or missing as zero.
func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
