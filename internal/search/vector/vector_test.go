package vector

import (
	"context"
	"errors"
	"testing"

	"rental-search/internal/common/logger"
	"rental-search/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// ==========================
// pgvector text format
// ==========================

func TestVectorToString(t *testing.T) {
	assert.Equal(t, "[]", VectorToString(nil))
	assert.Equal(t, "[0.5,-0.25,1]", VectorToString([]float32{0.5, -0.25, 1}))
}

// ==========================
// PostgresIndex
// ==========================

func TestPostgresIndex_NearestNeighbors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ix := NewPostgresIndex(db, logger.NewTestLogger(t))
	f := &models.SearchFilters{Rooms: intPtr(2), Limit: 5, Offset: 5}

	mock.ExpectQuery(`(?s)SELECT a.id, e.embedding <=> \$1::vector AS distance.*JOIN apartments a ON a.id = e.apartment_id.*a.rooms >= \$2.*ORDER BY distance ASC, a.id ASC\s+LIMIT \$3 OFFSET \$4`).
		WithArgs("[0.6,0.8]", 2, 5, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "distance"}).
			AddRow("apt-4", 0.12).
			AddRow("apt-7", 0.31))

	out, err := ix.NearestNeighbors(context.Background(), []float32{0.6, 0.8}, f)
	require.NoError(t, err)
	assert.Equal(t, []Neighbor{{ID: "apt-4", Distance: 0.12}, {ID: "apt-7", Distance: 0.31}}, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresIndex_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New(`type "vector" does not exist`))

	_, err = NewPostgresIndex(db, logger.NewNoOpLogger()).
		NearestNeighbors(context.Background(), []float32{1}, &models.SearchFilters{Limit: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "QUERY_EXECUTION_FAILED")
}

// ==========================
// Qdrant filter
// ==========================

func TestBuildFilter(t *testing.T) {
	f := &models.SearchFilters{
		Budget:            &models.PriceRange{Max: floatPtr(180000)},
		Rooms:             intPtr(1),
		Amenities:         []string{"wifi", "balcony"},
		Location:          &models.GeoPoint{Lat: 47.49, Lng: 19.06},
		UniversityID:      "elte",
		MaxCommuteMinutes: intPtr(20),
		District:          "VII",
	}

	filter := buildFilter(f)
	require.Len(t, filter.Must, 6, "status, price, rooms, amenities, geo, commute; district is post-filtered")

	assert.Equal(t, "status", filter.Must[0].GetField().GetKey())
	assert.Equal(t, "active", filter.Must[0].GetField().GetMatch().GetKeyword())

	price := filter.Must[1].GetField()
	assert.Equal(t, "price", price.GetKey())
	assert.Nil(t, price.GetRange().Gte)
	assert.Equal(t, 180000.0, price.GetRange().GetLte())

	assert.Equal(t, []string{"wifi", "balcony"}, filter.Must[3].GetField().GetMatch().GetKeywords().GetStrings())

	geo := filter.Must[4].GetField().GetGeoRadius()
	assert.Equal(t, float32(models.DefaultRadiusMeters), geo.GetRadius())
	assert.Equal(t, 19.06, geo.GetCenter().GetLon())

	commute := filter.Must[5].GetFilter()
	require.Len(t, commute.Should, 2)
	assert.Equal(t, "commute_best.elte", commute.Should[0].GetIsEmpty().GetKey())
	assert.Equal(t, 20.0, commute.Should[1].GetField().GetRange().GetLte())
}

func TestPointID(t *testing.T) {
	withPayload := &qdrant.ScoredPoint{
		Id:      qdrant.NewIDUUID("7b1c0c44-6a3e-4c1e-9d7e-2f1f0b8f5a10"),
		Payload: map[string]*qdrant.Value{"apartment_id": qdrant.NewValueString("apt-9")},
	}
	assert.Equal(t, "apt-9", pointID(withPayload))

	uuidOnly := &qdrant.ScoredPoint{Id: qdrant.NewIDUUID("7b1c0c44-6a3e-4c1e-9d7e-2f1f0b8f5a10")}
	assert.Equal(t, "7b1c0c44-6a3e-4c1e-9d7e-2f1f0b8f5a10", pointID(uuidOnly))

	numeric := &qdrant.ScoredPoint{Id: qdrant.NewIDNum(42)}
	assert.Equal(t, "42", pointID(numeric))
}

func TestPage(t *testing.T) {
	in := []Neighbor{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	assert.Equal(t, []Neighbor{{ID: "b"}, {ID: "c"}}, page(in, 1, 5))
	assert.Nil(t, page(in, 3, 5))
	assert.Equal(t, []Neighbor{{ID: "a"}}, page(in, 0, 1))
}
