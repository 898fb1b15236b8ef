package keyword

import (
	"fmt"
	"strings"

	"rental-search/internal/models"
)

// searchFields are the analysed text fields, boosted title first.
var searchFields = []string{"title^3", "description^2", "district", "amenities"}

// buildQuery translates the query text and filters into an Elasticsearch
// search body. Pagination is passed separately on the request.
func buildQuery(text string, f *models.SearchFilters) map[string]interface{} {
	mustClauses := []interface{}{}
	filterClauses := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"status": "active"}},
	}

	if text = strings.TrimSpace(text); text != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": searchFields,
				"type":   "best_fields",
			},
		})
	} else {
		mustClauses = append(mustClauses, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	if b := f.Budget; b != nil && (b.Min != nil || b.Max != nil) {
		priceRange := map[string]interface{}{}
		if b.Min != nil {
			priceRange["gte"] = *b.Min
		}
		if b.Max != nil {
			priceRange["lte"] = *b.Max
		}
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{"price": priceRange},
		})
	}

	if f.Rooms != nil {
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{"rooms": map[string]interface{}{"gte": *f.Rooms}},
		})
	}

	if f.Furnished != nil {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"furnished": *f.Furnished},
		})
	}

	if d := strings.TrimSpace(f.District); d != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"wildcard": map[string]interface{}{
				"district.keyword": map[string]interface{}{
					"value":            "*" + escapeWildcard(d) + "*",
					"case_insensitive": true,
				},
			},
		})
	}

	// terms on an array field already means "at least one of".
	if len(f.Amenities) > 0 {
		filterClauses = append(filterClauses, map[string]interface{}{
			"terms": map[string]interface{}{"amenities": f.Amenities},
		})
	}

	if f.Location != nil {
		radius := f.RadiusMeters
		if radius <= 0 {
			radius = models.DefaultRadiusMeters
		}
		filterClauses = append(filterClauses, map[string]interface{}{
			"geo_distance": map[string]interface{}{
				"distance": fmt.Sprintf("%gm", radius),
				"location": map[string]interface{}{"lat": f.Location.Lat, "lon": f.Location.Lng},
			},
		})
	}

	// commute_best.<uni> holds the fastest cached mode; listings without it stay.
	if f.HasCommuteFilter() {
		field := "commute_best." + f.UniversityID
		filterClauses = append(filterClauses, map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					map[string]interface{}{"bool": map[string]interface{}{
						"must_not": map[string]interface{}{"exists": map[string]interface{}{"field": field}},
					}},
					map[string]interface{}{"range": map[string]interface{}{
						field: map[string]interface{}{"lte": *f.MaxCommuteMinutes},
					}},
				},
				"minimum_should_match": 1,
			},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   mustClauses,
				"filter": filterClauses,
			},
		},
		"highlight": map[string]interface{}{
			"fields": map[string]interface{}{"title": map[string]interface{}{}},
		},
		"_source": false,
	}
}

func escapeWildcard(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)
	return r.Replace(s)
}
