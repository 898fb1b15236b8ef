package vector

import (
	"context"
	"fmt"
	"strings"

	"rental-search/internal/common/logger"
	"rental-search/internal/models"

	"github.com/qdrant/go-client/qdrant"
)

// Payload keys written by the indexing pipeline.
const (
	payloadApartmentID = "apartment_id"
	payloadStatus      = "status"
	payloadPrice       = "price"
	payloadRooms       = "rooms"
	payloadFurnished   = "furnished"
	payloadAmenities   = "amenities"
	payloadDistrict    = "district"
	payloadLocation    = "location"
	payloadCommuteBest = "commute_best"
)

// overfetch widens the candidate window when a filter is applied after retrieval.
const overfetch = 3

type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	logger     logger.Logger
}

func NewQdrantIndex(client *qdrant.Client, collection string, log logger.Logger) *QdrantIndex {
	return &QdrantIndex{
		client:     client,
		collection: collection,
		logger:     log.WithFields(map[string]interface{}{"component": "vector-index", "backend": "qdrant", "collection": collection}),
	}
}

func (ix *QdrantIndex) NearestNeighbors(ctx context.Context, vec []float32, f *models.SearchFilters) ([]Neighbor, error) {
	district := strings.ToLower(strings.TrimSpace(f.District))

	limit, offset := uint64(f.Limit), uint64(f.Offset)
	if district != "" {
		limit, offset = uint64(f.Offset+f.Limit)*overfetch, 0
	}

	points, err := ix.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: ix.collection,
		Query:          qdrant.NewQuery(vec...),
		Filter:         buildFilter(f),
		Limit:          qdrant.PtrOf(limit),
		Offset:         qdrant.PtrOf(offset),
		WithPayload:    qdrant.NewWithPayloadInclude(payloadApartmentID, payloadDistrict),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query failed: %w", err)
	}

	out := make([]Neighbor, 0, len(points))
	for _, p := range points {
		if district != "" && !strings.Contains(strings.ToLower(p.Payload[payloadDistrict].GetStringValue()), district) {
			continue
		}
		id := pointID(p)
		if id == "" {
			continue
		}
		// Cosine similarity in [-1,1] maps to distance in [0,2].
		out = append(out, Neighbor{ID: id, Distance: 1 - float64(p.Score)})
	}

	if district != "" {
		out = page(out, f.Offset, f.Limit)
	}

	ix.logger.Debug("vector query executed", map[string]interface{}{"neighbors": len(out)})
	return out, nil
}

// buildFilter expresses every filter Qdrant can evaluate natively. District
// substring matching is left to the caller.
func buildFilter(f *models.SearchFilters) *qdrant.Filter {
	must := []*qdrant.Condition{qdrant.NewMatch(payloadStatus, "active")}

	if b := f.Budget; b != nil && (b.Min != nil || b.Max != nil) {
		must = append(must, qdrant.NewRange(payloadPrice, &qdrant.Range{Gte: b.Min, Lte: b.Max}))
	}
	if f.Rooms != nil {
		rooms := float64(*f.Rooms)
		must = append(must, qdrant.NewRange(payloadRooms, &qdrant.Range{Gte: &rooms}))
	}
	if f.Furnished != nil {
		must = append(must, qdrant.NewMatchBool(payloadFurnished, *f.Furnished))
	}
	if len(f.Amenities) > 0 {
		must = append(must, qdrant.NewMatchKeywords(payloadAmenities, f.Amenities...))
	}
	if f.Location != nil {
		radius := f.RadiusMeters
		if radius <= 0 {
			radius = models.DefaultRadiusMeters
		}
		must = append(must, qdrant.NewGeoRadius(payloadLocation, f.Location.Lat, f.Location.Lng, float32(radius)))
	}
	if f.HasCommuteFilter() {
		field := payloadCommuteBest + "." + f.UniversityID
		max := float64(*f.MaxCommuteMinutes)
		must = append(must, qdrant.NewFilterAsCondition(&qdrant.Filter{
			Should: []*qdrant.Condition{
				qdrant.NewIsEmpty(field),
				qdrant.NewRange(field, &qdrant.Range{Lte: &max}),
			},
		}))
	}

	return &qdrant.Filter{Must: must}
}

func pointID(p *qdrant.ScoredPoint) string {
	if v, ok := p.Payload[payloadApartmentID]; ok && v.GetStringValue() != "" {
		return v.GetStringValue()
	}
	if uuid := p.GetId().GetUuid(); uuid != "" {
		return uuid
	}
	if n := p.GetId().GetNum(); n != 0 {
		return fmt.Sprintf("%d", n)
	}
	return ""
}

func page(in []Neighbor, offset, limit int) []Neighbor {
	if offset >= len(in) {
		return nil
	}
	end := offset + limit
	if end > len(in) {
		end = len(in)
	}
	return in[offset:end]
}
