// internal/workers/search/search-listings/models.go
package searchlistings

import "rental-search/internal/models"

const (
	ModeStructured = "structured"
	ModeKeyword    = "keyword"
	ModeSemantic   = "semantic"
	ModeHybrid     = "hybrid"
)

type Input struct {
	Mode        string                  `json:"mode"`
	Query       string                  `json:"query"`
	Filters     map[string]interface{}  `json:"filters"`
	Preferences *models.UserPreferences `json:"preferences,omitempty"`
	UserID      string                  `json:"userId,omitempty"`
	SessionID   string                  `json:"sessionId,omitempty"`
	RequestID   string                  `json:"requestId,omitempty"`
}

type Output struct {
	Mode       string                `json:"mode"`
	Results    []models.RankedResult `json:"results"`
	Ranked     bool                  `json:"ranked"`
	TotalCount *int                  `json:"totalCount,omitempty"`
}
