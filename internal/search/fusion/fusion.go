// Package fusion merges ranked lists from different retrievers into one
// deduplicated list.
package fusion

import (
	"sort"

	"rental-search/internal/models"
)

const DefaultTopN = 20

// Merge combines lists in order. A listing seen more than once keeps its
// highest score and the union of all explanations; a keyword or semantic
// source tag replaces a structured one. weights[i] scales list i before
// merging (missing or non-positive weights count as 1) and scaled scores are
// capped at 1. The result is sorted by score descending, stable on first
// appearance, and cut to topN (DefaultTopN when topN <= 0).
func Merge(lists [][]models.RankedResult, weights []float64, topN int) []models.RankedResult {
	if topN <= 0 {
		topN = DefaultTopN
	}

	merged := make([]models.RankedResult, 0)
	index := make(map[string]int)

	for li, list := range lists {
		w := weightAt(weights, li)
		for _, r := range list {
			incoming := r.WithExplanation(r.Explanation())
			incoming.Score = clamp01(r.Score * w)

			pos, seen := index[r.ApartmentID]
			if !seen {
				index[r.ApartmentID] = len(merged)
				merged = append(merged, incoming)
				continue
			}

			existing := merged[pos]
			if incoming.Score > existing.Score {
				existing.Score = incoming.Score
			}
			existing = existing.WithExplanation(existing.Explanation().Merge(incoming.Explanation()))
			if existing.Source == models.SourceStructured && incoming.Source != models.SourceStructured && incoming.Source != "" {
				existing.Source = incoming.Source
			}
			merged[pos] = existing
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	if len(merged) > topN {
		merged = merged[:topN]
	}
	return merged
}

func weightAt(weights []float64, i int) float64 {
	if i < len(weights) && weights[i] > 0 {
		return weights[i]
	}
	return 1
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
