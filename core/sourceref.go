package core

import "fmt"

// SourceRef is a resolved pointer back to a chunk's origin. It is derived
// from chunk metadata at response time and never stored. Each variant knows
// how to render itself as a human-resolvable locator.
type SourceRef interface {
	// Locator renders the reference as a URL or a labeled document name.
	Locator() string

	sourceRef()
}

// RepositoryRef points at a file (and optionally a line range) in a hosted
// code repository.
type RepositoryRef struct {
	Owner     string
	Repo      string
	Branch    string
	Path      string
	StartLine int
	EndLine   int

	// DocumentName is the fallback label when the repository coordinates
	// are incomplete.
	DocumentName string
}

func (r RepositoryRef) sourceRef() {}

// Locator builds a blob URL with a #L line anchor when line metadata exists.
func (r RepositoryRef) Locator() string {
	if r.Owner == "" || r.Repo == "" || r.Path == "" {
		return "GitHub: " + r.DocumentName
	}
	branch := r.Branch
	if branch == "" {
		branch = "main"
	}
	base := fmt.Sprintf("https://github.com/%s/%s/blob/%s/%s", r.Owner, r.Repo, branch, r.Path)
	switch {
	case r.StartLine > 0 && r.EndLine > 0:
		return fmt.Sprintf("%s#L%d-L%d", base, r.StartLine, r.EndLine)
	case r.StartLine > 0:
		return fmt.Sprintf("%s#L%d", base, r.StartLine)
	}
	return base
}

// WebRef points at a crawled web page.
type WebRef struct {
	URL string
}

func (r WebRef) sourceRef() {}

func (r WebRef) Locator() string {
	return r.URL
}

// UploadRef labels an uploaded file, which has no external URL.
type UploadRef struct {
	Name string
}

func (r UploadRef) sourceRef() {}

func (r UploadRef) Locator() string {
	return "Document: " + r.Name
}

// UnknownRef is the fallback for content whose origin could not be
// classified: use the stored URL when there is one, the name otherwise.
type UnknownRef struct {
	URL  string
	Name string
}

func (r UnknownRef) sourceRef() {}

func (r UnknownRef) Locator() string {
	if r.URL != "" {
		return r.URL
	}
	return "Document: " + r.Name
}

// ChunkSourceRef resolves a chunk's metadata into the matching SourceRef
// variant. The switch is exhaustive over SourceType values.
func ChunkSourceRef(c *Chunk) SourceRef {
	m := c.Metadata
	switch m.SourceType {
	case SourceRepository:
		return RepositoryRef{
			Owner:        m.Owner,
			Repo:         m.Repo,
			Branch:       m.Branch,
			Path:         m.Path,
			StartLine:    m.StartLine,
			EndLine:      m.EndLine,
			DocumentName: c.DocumentName,
		}
	case SourceWebsite:
		return WebRef{URL: m.URL}
	case SourceFile:
		return UploadRef{Name: c.DocumentName}
	default:
		return UnknownRef{URL: m.URL, Name: c.DocumentName}
	}
}
