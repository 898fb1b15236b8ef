package retriever

import (
	"context"
	"strings"

	"rental-search/internal/common/logger"
	"rental-search/internal/common/metrics"
	"rental-search/internal/models"
	"rental-search/internal/search/keyword"
	"rental-search/internal/search/store"
)

const (
	CodeKeywordMatch = "KEYWORD_MATCH"
	CodeTitleMatch   = "TITLE_MATCH"
)

// Keyword searches the text index and falls back to the listing store's
// full-text search when the index fails. sortBy does not apply; results are
// always in relevance order.
type Keyword struct {
	index    keyword.Index
	fallback TextSearcher
	logger   logger.Logger
}

// NewKeyword accepts a nil index, in which case every call uses the fallback.
func NewKeyword(index keyword.Index, fallback TextSearcher, log logger.Logger) *Keyword {
	return &Keyword{
		index:    index,
		fallback: fallback,
		logger:   log.WithFields(map[string]interface{}{"component": "keyword-retriever"}),
	}
}

func (r *Keyword) Retrieve(ctx context.Context, query string, f *models.SearchFilters) ([]models.RankedResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.RankedResult{}, nil
	}

	if r.index != nil {
		hits, err := r.index.Search(ctx, query, f)
		if err == nil {
			return fromIndexHits(hits), nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Warn("keyword index failed, using full-text fallback", map[string]interface{}{"error": err})
		metrics.RetrieverFallbacks.WithLabelValues("keyword_index", "full_text").Inc()
	}

	hits, err := r.fallback.FullTextSearch(ctx, query, f)
	if err != nil {
		return nil, err
	}
	return fromTextHits(hits), nil
}

func fromIndexHits(hits []keyword.Hit) []models.RankedResult {
	out := make([]models.RankedResult, 0, len(hits))
	for _, h := range hits {
		e := models.Because("keyword match", CodeKeywordMatch)
		if h.TitleMatch {
			e = models.Because("title matches your search", CodeTitleMatch)
		}
		out = append(out, result(h.ID, h.Score, models.SourceKeyword, e))
	}
	return out
}

// fromTextHits normalises ts_rank by the best rank on the page.
func fromTextHits(hits []store.TextHit) []models.RankedResult {
	best := 0.0
	for _, h := range hits {
		if h.Rank > best {
			best = h.Rank
		}
	}

	out := make([]models.RankedResult, 0, len(hits))
	for _, h := range hits {
		score := 1.0
		if best > 0 {
			score = h.Rank / best
		}
		out = append(out, result(h.ID, score, models.SourceKeyword, models.Because("keyword match", CodeKeywordMatch)))
	}
	return out
}
