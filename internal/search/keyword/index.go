// Package keyword is the Keyword Index: full-text search over the listing
// documents held in Elasticsearch.
package keyword

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	apperrors "rental-search/internal/common/errors"
	"rental-search/internal/common/logger"
	"rental-search/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	// ErrIndexUnavailable means the engine could not be reached or the index
	// is missing. Callers fall back to the listing store.
	ErrIndexUnavailable = errors.New("keyword index unavailable")
	ErrQueryFailed      = errors.New("keyword query failed")
)

// Hit is one scored document. Score is normalised to [0,1] by the response
// max_score.
type Hit struct {
	ID         string
	Score      float64
	TitleMatch bool
}

// Index searches a listing index.
type Index interface {
	Search(ctx context.Context, text string, f *models.SearchFilters) ([]Hit, error)
}

type ElasticIndex struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewElasticIndex(client *elasticsearch.Client, index string, log logger.Logger) *ElasticIndex {
	return &ElasticIndex{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "keyword-index", "index": index}),
	}
}

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		MaxScore *float64 `json:"max_score"`
		Hits     []struct {
			ID        string              `json:"_id"`
			Score     *float64            `json:"_score"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

func (ix *ElasticIndex) Search(ctx context.Context, text string, f *models.SearchFilters) ([]Hit, error) {
	if ix == nil || ix.client == nil {
		return nil, ErrIndexUnavailable
	}

	body, err := json.Marshal(buildQuery(text, f))
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", ErrQueryFailed, err)
	}

	from, size := f.Offset, f.Limit
	if size <= 0 {
		size = models.DefaultLimit
	}
	req := esapi.SearchRequest{
		Index: []string{ix.index},
		Body:  bytes.NewReader(body),
		From:  &from,
		Size:  &size,
	}

	start := time.Now()
	res, err := req.Do(ctx, ix.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexUnavailable, apperrors.NewExternalServiceUnavailableError("elasticsearch", err))
	}
	defer res.Body.Close()

	if res.IsError() {
		if res.StatusCode == http.StatusNotFound || res.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: %w", ErrIndexUnavailable,
				apperrors.NewExternalServiceUnavailableError("elasticsearch", errors.New(res.Status())))
		}
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, apperrors.NewSearchQueryFailedError("keyword", errors.New(res.String())))
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrQueryFailed, err)
	}

	maxScore := 0.0
	if r.Hits.MaxScore != nil {
		maxScore = *r.Hits.MaxScore
	}

	hits := make([]Hit, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		score := 1.0
		if h.Score != nil && maxScore > 0 {
			score = *h.Score / maxScore
		}
		hits = append(hits, Hit{
			ID:         h.ID,
			Score:      score,
			TitleMatch: len(h.Highlight["title"]) > 0,
		})
	}

	ix.logger.Debug("keyword query executed", map[string]interface{}{
		"hits":       len(hits),
		"took":       r.Took,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return hits, nil
}
