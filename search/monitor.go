package search

import "github.com/poiesic/recall/core"

// SearchMonitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps and results during retrieval.
type SearchMonitor interface {
	Start(query string)
	AfterEmbedding(vector []float32)
	AfterTier(tier Tier, candidates []*core.RetrievalCandidate)
	AfterRerank(order []int)
	Finish(results []*core.RetrievalCandidate)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                                   {}
func (n *noopMonitor) AfterEmbedding(_ []float32)                       {}
func (n *noopMonitor) AfterTier(_ Tier, _ []*core.RetrievalCandidate)   {}
func (n *noopMonitor) AfterRerank(_ []int)                              {}
func (n *noopMonitor) Finish(_ []*core.RetrievalCandidate)              {}
