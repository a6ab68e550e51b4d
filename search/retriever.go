package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// Tier names the retrieval strategy that produced a set of candidates.
type Tier string

const (
	TierSimilarity Tier = "similarity"
	TierBasic      Tier = "basic"
	TierScan       Tier = "scan"
	TierNone       Tier = "none"
)

const defaultTopK = 5

// Retriever finds the chunks most relevant to a query using tiered
// retrieval with optional LLM reranking.
type Retriever struct {
	store     storage.Store
	embedder  ai.Embedder
	completer ai.Completer // nil disables reranking
	logger    *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithReranker enables LLM reranking of retrieval candidates using the
// given completer. Without a completer, candidates keep their tier order.
func WithReranker(completer ai.Completer) Option {
	return func(r *Retriever) error {
		r.completer = completer
		return nil
	}
}

// NewRetriever creates a new retriever.
func NewRetriever(store storage.Store, embedder ai.Embedder, opts ...Option) (*Retriever, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Retriever{
		store:    store,
		embedder: embedder,
		logger:   slog.Default().With("component", "search"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Retrieve finds up to topK chunks relevant to the query across the given
// collections (nil means all). A non-positive topK uses the default of 5.
func (r *Retriever) Retrieve(ctx context.Context, query string, collections []string, topK int) ([]*core.RetrievalCandidate, error) {
	return r.RetrieveWithMonitor(ctx, query, collections, topK, nil)
}

// RetrieveWithMonitor is Retrieve with observation hooks.
// The monitor receives callbacks at each stage of the retrieval process.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, query string, collections []string, topK int, monitor SearchMonitor) ([]*core.RetrievalCandidate, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	if err := core.ValidateQuery(query); err != nil {
		return nil, err
	}

	monitor.Start(query)

	// Over-fetch so the reranker has alternatives to choose from
	candidates, tier := r.tieredSearch(ctx, query, collections, topK*2, monitor)
	if len(candidates) == 0 {
		monitor.Finish(nil)
		return nil, nil
	}

	if r.completer != nil && len(candidates) > 1 {
		candidates = r.rerank(ctx, query, candidates, topK, monitor)
	}
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	r.logger.Debug("retrieval complete", "tier", tier, "results", len(candidates))
	monitor.Finish(candidates)
	return candidates, nil
}

// tieredSearch walks the retrieval tiers until one of them yields
// candidates. Tier failures are logged and absorbed; only an empty result
// from the final tier is terminal.
func (r *Retriever) tieredSearch(ctx context.Context, query string, collections []string, limit int, monitor SearchMonitor) ([]*core.RetrievalCandidate, Tier) {
	vector, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed, skipping similarity tier", "err", err)
		vector = nil
	} else {
		monitor.AfterEmbedding(vector)
	}

	return r.searchTiers(ctx, vector, collections, limit, monitor)
}

// searchTiers runs the retrieval tiers for an already-computed vector.
// An empty vector skips the similarity tier.
func (r *Retriever) searchTiers(ctx context.Context, vector []float32, collections []string, limit int, monitor SearchMonitor) ([]*core.RetrievalCandidate, Tier) {
	if len(vector) > 0 {
		candidates, simErr := r.store.SimilaritySearch(ctx, vector, collections, limit)
		if simErr != nil {
			r.logger.Warn("similarity search failed, falling back", "err", simErr)
		} else if len(candidates) > 0 {
			monitor.AfterTier(TierSimilarity, candidates)
			return candidates, TierSimilarity
		}
	}

	candidates, err := r.store.BasicSearch(ctx, collections, limit)
	if err != nil {
		r.logger.Warn("basic search failed, falling back", "err", err)
	} else if len(candidates) > 0 {
		monitor.AfterTier(TierBasic, candidates)
		return candidates, TierBasic
	}

	candidates, err = r.store.ScanChunks(ctx, collections, limit)
	if err != nil {
		r.logger.Error("chunk scan failed", "err", err)
		return nil, TierNone
	}
	if len(candidates) > 0 {
		monitor.AfterTier(TierScan, candidates)
		return candidates, TierScan
	}
	return nil, TierNone
}

// FindSimilarChunks finds the chunks most similar to an already-stored
// chunk, using its stored vector. The chunk itself is excluded from the
// results.
func (r *Retriever) FindSimilarChunks(ctx context.Context, id core.ID, limit int) ([]*core.RetrievalCandidate, error) {
	if limit <= 0 {
		limit = defaultTopK
	}

	chunk, err := r.store.GetChunk(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(chunk.Vector) == 0 {
		return nil, nil
	}

	// Fetch one extra so the chunk itself can be dropped. The stored vector
	// rides the same tier ladder as a fresh query, so a broken similarity
	// tier degrades instead of failing the lookup.
	candidates, _ := r.searchTiers(ctx, chunk.Vector, []string{chunk.Collection}, limit+1, &noopMonitor{})

	results := make([]*core.RetrievalCandidate, 0, limit)
	for _, candidate := range candidates {
		if candidate.Chunk.Id == id {
			continue
		}
		results = append(results, candidate)
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

// Result is the outcome of one search operation. Failures surface as a
// status and cause rather than an error so that callers on the answering
// path can always render something.
type Result struct {
	Status     ResultStatus
	Query      string
	Candidates []*core.RetrievalCandidate
	Tier       Tier
	Elapsed    time.Duration
	Stats      *Stats
	Err        error // Cause when Status is StatusError
}

// Stats aggregates store-wide chunk counts captured alongside a search.
type Stats struct {
	TotalChunks        int
	ChunksByCollection map[string]int
}

// ResultStatus classifies a search outcome.
type ResultStatus string

const (
	StatusOK      ResultStatus = "ok"
	StatusEmpty   ResultStatus = "empty"
	StatusInvalid ResultStatus = "invalid"
	StatusError   ResultStatus = "error"
)

// Search retrieves candidates for the query and wraps the outcome in a
// Result. It never returns an error.
func (r *Retriever) Search(ctx context.Context, query string, collections []string, topK int) *Result {
	start := time.Now()
	result := &Result{Query: query}

	if err := core.ValidateQuery(query); err != nil {
		result.Status = StatusInvalid
		result.Err = err
		result.Elapsed = time.Since(start)
		return result
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	monitor := &tierRecorder{}
	candidates, err := r.RetrieveWithMonitor(ctx, query, collections, topK, monitor)
	result.Elapsed = time.Since(start)
	result.Tier = monitor.tier
	result.Stats = r.gatherStats(ctx)

	switch {
	case err != nil:
		result.Status = StatusError
		result.Err = err
	case len(candidates) == 0:
		result.Status = StatusEmpty
		result.Tier = TierNone
	default:
		result.Status = StatusOK
		result.Candidates = candidates
	}
	return result
}

// gatherStats counts stored chunks per collection. Stats are observability
// only, so count failures are logged and produce a nil result.
func (r *Retriever) gatherStats(ctx context.Context) *Stats {
	total, err := r.store.CountChunks(ctx, nil)
	if err != nil {
		r.logger.Debug("chunk count failed", "err", err)
		return nil
	}

	stats := &Stats{
		TotalChunks:        total,
		ChunksByCollection: map[string]int{},
	}

	collections, err := r.store.ListCollections(ctx)
	if err != nil {
		r.logger.Debug("collection listing failed", "err", err)
		return stats
	}
	for _, collection := range collections {
		count, err := r.store.CountChunks(ctx, []string{collection})
		if err != nil {
			continue
		}
		stats.ChunksByCollection[collection] = count
	}
	return stats
}

// tierRecorder captures which tier produced the candidates.
type tierRecorder struct {
	noopMonitor
	tier Tier
}

func (t *tierRecorder) AfterTier(tier Tier, _ []*core.RetrievalCandidate) {
	t.tier = tier
}
