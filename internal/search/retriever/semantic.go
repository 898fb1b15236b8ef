package retriever

import (
	"context"
	"math"

	"rental-search/internal/common/logger"
	"rental-search/internal/common/metrics"
	"rental-search/internal/models"
	"rental-search/internal/search/embedding"
	"rental-search/internal/search/vector"
)

const CodeSemanticMatch = "SEMANTIC_MATCH"

// Semantic embeds the query and searches the vector index. Without a working
// embedding provider the whole request goes to the keyword retriever.
type Semantic struct {
	embedder embedding.Provider
	index    vector.Index
	keyword  Text
	logger   logger.Logger
}

// NewSemantic accepts a nil embedder when embeddings are disabled.
func NewSemantic(embedder embedding.Provider, index vector.Index, kw Text, log logger.Logger) *Semantic {
	return &Semantic{
		embedder: embedder,
		index:    index,
		keyword:  kw,
		logger:   log.WithFields(map[string]interface{}{"component": "semantic-retriever"}),
	}
}

func (r *Semantic) Retrieve(ctx context.Context, query string, f *models.SearchFilters) ([]models.RankedResult, error) {
	if r.embedder == nil || r.index == nil {
		metrics.RetrieverFallbacks.WithLabelValues("semantic", "keyword").Inc()
		return r.keyword.Retrieve(ctx, query, f)
	}

	vec, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.Warn("embedding unavailable, delegating to keyword retriever", map[string]interface{}{"error": err})
		metrics.RetrieverFallbacks.WithLabelValues("semantic", "keyword").Inc()
		return r.keyword.Retrieve(ctx, query, f)
	}

	neighbors, err := r.index.NearestNeighbors(ctx, vec, f)
	if err != nil {
		return nil, err
	}

	out := make([]models.RankedResult, 0, len(neighbors))
	for i, n := range neighbors {
		score := math.Max(0.6, 1-n.Distance-float64(i)*0.01)
		out = append(out, result(n.ID, score, models.SourceSemantic, models.Because("similar to what you described", CodeSemanticMatch)))
	}
	return out, nil
}
