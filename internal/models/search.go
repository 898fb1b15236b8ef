// internal/models/search.go
package models

type SortMode string

const (
	SortRelevance SortMode = "relevance"
	SortPriceAsc  SortMode = "price_asc"
	SortPriceDesc SortMode = "price_desc"
	SortDistance  SortMode = "distance"
	SortNewest    SortMode = "newest"
)

// ValidSortModes lists every accepted sortBy value.
var ValidSortModes = []SortMode{SortRelevance, SortPriceAsc, SortPriceDesc, SortDistance, SortNewest}

func (s SortMode) Valid() bool {
	for _, m := range ValidSortModes {
		if s == m {
			return true
		}
	}
	return false
}

const (
	DefaultLimit        = 20
	MaxLimit            = 100
	DefaultRadiusMeters = 5000
)

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PriceRange is an inclusive budget band in HUF. Either bound may be absent.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// SearchFilters is the normalized search request shared by every retriever.
type SearchFilters struct {
	Query             string      `json:"query,omitempty"`
	Location          *GeoPoint   `json:"location,omitempty"`
	RadiusMeters      float64     `json:"radius,omitempty"`
	Budget            *PriceRange `json:"budget,omitempty"`
	Rooms             *int        `json:"rooms,omitempty"`
	Amenities         []string    `json:"amenities,omitempty"`
	Furnished         *bool       `json:"furnished,omitempty"`
	UniversityID      string      `json:"universityId,omitempty"`
	MaxCommuteMinutes *int        `json:"maxCommute,omitempty"`
	District          string      `json:"district,omitempty"`
	SortBy            SortMode    `json:"sortBy"`
	Limit             int         `json:"limit"`
	Offset            int         `json:"offset"`
}

// Clone returns a deep copy so callers can adjust paging without sharing state.
func (f SearchFilters) Clone() SearchFilters {
	out := f
	if f.Location != nil {
		loc := *f.Location
		out.Location = &loc
	}
	if f.Budget != nil {
		b := PriceRange{}
		if f.Budget.Min != nil {
			v := *f.Budget.Min
			b.Min = &v
		}
		if f.Budget.Max != nil {
			v := *f.Budget.Max
			b.Max = &v
		}
		out.Budget = &b
	}
	if f.Rooms != nil {
		v := *f.Rooms
		out.Rooms = &v
	}
	if f.Furnished != nil {
		v := *f.Furnished
		out.Furnished = &v
	}
	if f.MaxCommuteMinutes != nil {
		v := *f.MaxCommuteMinutes
		out.MaxCommuteMinutes = &v
	}
	if f.Amenities != nil {
		out.Amenities = append([]string(nil), f.Amenities...)
	}
	return out
}

// HasCommuteFilter reports whether commute filtering applies.
func (f SearchFilters) HasCommuteFilter() bool {
	return f.UniversityID != "" && f.MaxCommuteMinutes != nil
}

type Source string

const (
	SourceStructured Source = "structured"
	SourceKeyword    Source = "keyword"
	SourceSemantic   Source = "semantic"
	SourceHybrid     Source = "hybrid"
)
