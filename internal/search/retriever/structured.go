package retriever

import (
	"context"
	"fmt"
	"math"
	"strings"

	"rental-search/internal/common/logger"
	"rental-search/internal/models"
)

const (
	CodeWithinBudget   = "WITHIN_BUDGET"
	CodeRoomsMatch     = "ROOMS_MATCH"
	CodeDistrictMatch  = "DISTRICT_MATCH"
	CodeAmenityMatch   = "AMENITY_MATCH"
	CodeFurnishedMatch = "FURNISHED_MATCH"
	CodeNearLocation   = "NEAR_LOCATION"
	CodeCommuteOK      = "COMMUTE_OK"
	CodeFilterMatch    = "FILTER_MATCH"
)

// Structured runs attribute and geo queries against the listing store.
type Structured struct {
	store  ListingSearcher
	logger logger.Logger
}

func NewStructured(s ListingSearcher, log logger.Logger) *Structured {
	return &Structured{
		store:  s,
		logger: log.WithFields(map[string]interface{}{"component": "structured-retriever"}),
	}
}

// Retrieve keeps the store ordering. Scores decay by position from 1.0 to a
// floor of 0.5 so structured hits stay comparable with the other sources.
func (r *Structured) Retrieve(ctx context.Context, f *models.SearchFilters) ([]models.RankedResult, error) {
	listings, err := r.store.Search(ctx, f)
	if err != nil {
		return nil, err
	}

	out := make([]models.RankedResult, 0, len(listings))
	for i, l := range listings {
		score := math.Max(0.5, 1-float64(i)*0.02)
		out = append(out, result(l.ID, score, models.SourceStructured, explainListing(l, f)))
	}
	return out, nil
}

// explainListing names the filters a listing satisfied.
func explainListing(l models.Listing, f *models.SearchFilters) models.Explanation {
	var e models.Explanation

	if b := f.Budget; b != nil && (b.Min != nil || b.Max != nil) {
		e = e.Merge(models.Because("within your budget", CodeWithinBudget))
	}

	if f.Rooms != nil && l.Rooms >= *f.Rooms {
		e = e.Merge(models.Because(fmt.Sprintf("has %d+ rooms", *f.Rooms), CodeRoomsMatch))
	}

	if d := strings.TrimSpace(f.District); d != "" && l.District != "" {
		e = e.Merge(models.Because("located in "+l.District, CodeDistrictMatch))
	}

	if matched := matchedAmenities(l.Amenities, f.Amenities); len(matched) > 0 {
		e = e.Merge(models.Because("has "+strings.Join(matched, ", "), CodeAmenityMatch))
	}

	if f.Furnished != nil && *f.Furnished && l.Furnished != nil && *l.Furnished {
		e = e.Merge(models.Because("furnished", CodeFurnishedMatch))
	}

	if f.Location != nil && l.DistanceMeters != nil {
		e = e.Merge(models.Because(fmt.Sprintf("%.1f km from your location", *l.DistanceMeters/1000), CodeNearLocation))
	}

	if f.HasCommuteFilter() {
		if minutes := l.Commute.MinutesFor(f.UniversityID, ""); minutes != nil {
			e = e.Merge(models.Because(fmt.Sprintf("%.0f min to %s", *minutes, f.UniversityID), CodeCommuteOK))
		}
	}

	if e.IsEmpty() {
		return models.Because("matches your filters", CodeFilterMatch)
	}
	return e
}

func matchedAmenities(have, want []string) []string {
	if len(want) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(have))
	for _, a := range have {
		set[strings.ToLower(a)] = struct{}{}
	}
	var out []string
	for _, w := range want {
		if _, ok := set[strings.ToLower(w)]; ok {
			out = append(out, w)
		}
	}
	return out
}
