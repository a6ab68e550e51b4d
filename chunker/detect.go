package chunker

import (
	"regexp"
	"strings"

	"github.com/poiesic/recall/core"
)

var (
	horizontalSpaceRe = regexp.MustCompile(`[ \t]+`)
	blankRunRe        = regexp.MustCompile(`\n\s*\n\s*\n+`)
)

// Structural signatures used to classify content. A small fixed set:
// declarations and imports for code, headings/emphasis/fences/links for
// markdown.
var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*(func|def)\s+\w+\s*\(`),
	regexp.MustCompile(`(?m)^\s*class\s+\w+`),
	regexp.MustCompile(`(?m)^\s*(import|from)\s+["\w.]`),
	regexp.MustCompile(`(?m)^\s*(return|package)\s+\w`),
}

var markdownPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^#{1,6}\s+`),
	regexp.MustCompile(`\*\*[^*\n]+\*\*`),
	regexp.MustCompile(`\[[^\]\n]+\]\([^)\n]+\)`),
	regexp.MustCompile("```"),
	regexp.MustCompile("`[^`\n]+`"),
}

// ContainsCode reports whether text carries code signatures.
func ContainsCode(text string) bool {
	for _, pattern := range codePatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// ContainsMarkdown reports whether text carries markdown signatures.
func ContainsMarkdown(text string) bool {
	for _, pattern := range markdownPatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// DetectContentType picks the splitting strategy for a document.
// Repository files are classified by path extension; everything else is
// classified by scanning the content for code signatures first, then
// markdown signatures.
func DetectContentType(doc *core.Document) ContentType {
	if doc.ResolveSourceType() == core.SourceRepository {
		path := doc.Metadata[core.MetaPath]
		if path == "" {
			path = doc.Name
		}
		if isMarkdownPath(path) {
			return Markdown
		}
		return Code
	}

	switch {
	case ContainsCode(doc.Content):
		return Code
	case ContainsMarkdown(doc.Content):
		return Markdown
	default:
		return Text
	}
}

func isMarkdownPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".markdown")
}
