// Package retriever turns listing store, keyword index and vector index
// results into scored, explained RankedResults.
package retriever

import (
	"context"

	"rental-search/internal/models"
	"rental-search/internal/search/store"
)

// ListingSearcher is the structured side of the listing store.
type ListingSearcher interface {
	Search(ctx context.Context, f *models.SearchFilters) ([]models.Listing, error)
}

// TextSearcher is the listing store's own full-text search.
type TextSearcher interface {
	FullTextSearch(ctx context.Context, text string, f *models.SearchFilters) ([]store.TextHit, error)
}

// Text is a retriever driven by free text. Keyword and Semantic both
// implement it, which lets Semantic hand a request to Keyword unchanged.
type Text interface {
	Retrieve(ctx context.Context, query string, f *models.SearchFilters) ([]models.RankedResult, error)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func result(id string, score float64, source models.Source, e models.Explanation) models.RankedResult {
	return models.RankedResult{
		ApartmentID: id,
		Score:       clamp01(score),
		Source:      source,
	}.WithExplanation(e)
}
