// internal/models/listing.go
package models

import "time"

// Listing is the row shape returned by structured retrieval.
type Listing struct {
	ID                string       `json:"id"`
	Title             string       `json:"title"`
	Price             float64      `json:"price"`
	Rooms             int          `json:"rooms"`
	District          string       `json:"district"`
	Amenities         []string     `json:"amenities"`
	Furnished         *bool        `json:"furnished,omitempty"`
	CompletenessScore *float64     `json:"completenessScore,omitempty"`
	MediaQualityScore *float64     `json:"mediaQualityScore,omitempty"`
	DistanceMeters    *float64     `json:"distanceMeters,omitempty"`
	Commute           CommuteCache `json:"commute,omitempty"`
	CreatedAt         time.Time    `json:"createdAt"`
}

// Candidate is the ranking-relevant projection of a listing. Candidates are
// built per request and never written back.
type Candidate struct {
	ID                string   `json:"id"`
	Title             string   `json:"title,omitempty"`
	Price             float64  `json:"price"`
	Rooms             int      `json:"rooms"`
	Bedrooms          *int     `json:"bedrooms,omitempty"`
	Bathrooms         *int     `json:"bathrooms,omitempty"`
	District          string   `json:"district"`
	Amenities         []string `json:"amenities"`
	OwnerVerified     bool     `json:"ownerVerified"`
	MediaQualityScore *float64 `json:"mediaQualityScore,omitempty"`
	CompletenessScore *float64 `json:"completenessScore,omitempty"`
	CommuteMinutes    *float64 `json:"commuteMinutes,omitempty"`
	MarketScore       *float64 `json:"marketScore,omitempty"`
	Views             int      `json:"views"`
	Saves             int      `json:"saves"`
	Messages          int      `json:"messages"`
	Furnished         *bool    `json:"furnished,omitempty"`
	HasElevator       *bool    `json:"hasElevator,omitempty"`
}

// BedroomCount falls back to the room count for listings that never filled
// in bedrooms separately.
func (c Candidate) BedroomCount() int {
	if c.Bedrooms != nil {
		return *c.Bedrooms
	}
	return c.Rooms
}
