// internal/workers/search/rank-apartments/models.go
package rankapartments

import "rental-search/internal/models"

type Input struct {
	Candidates  []models.Candidate     `json:"candidates"`
	Preferences models.UserPreferences `json:"preferences"`
	Context     *models.RankContext    `json:"context,omitempty"`
}

type Output struct {
	RankedApartments []models.RankedResult `json:"rankedApartments"`
}
