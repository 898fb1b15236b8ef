// internal/workers/search/parse-search-filters/models.go
package parsesearchfilters

import "rental-search/internal/models"

type Input struct {
	RawFilters map[string]interface{} `json:"rawFilters"`
}

type Output struct {
	Filters *models.SearchFilters `json:"filters"`
}
