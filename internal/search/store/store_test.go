package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"rental-search/internal/common/logger"
	"rental-search/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// ==========================
// Test helpers
// ==========================

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func createTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, createTestLogger(t)), mock
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func boolPtr(v bool) *bool        { return &v }

var listingCols = []string{
	"id", "title", "price", "rooms", "district", "amenities", "furnished",
	"completeness_score", "media_quality_score", "commute_cache", "created_at", "distance",
}

// ==========================
// Predicate
// ==========================

func TestBuildPredicate(t *testing.T) {
	f := &models.SearchFilters{
		Budget:            &models.PriceRange{Min: floatPtr(100000), Max: floatPtr(200000)},
		Rooms:             intPtr(1),
		Furnished:         boolPtr(true),
		District:          "VIII_",
		Amenities:         []string{"wifi", "balcony"},
		Location:          &models.GeoPoint{Lat: 47.5, Lng: 19.04},
		RadiusMeters:      1500,
		UniversityID:      "elte",
		MaxCommuteMinutes: intPtr(30),
	}

	p := BuildPredicate(f)
	where := p.Where()

	assert.Contains(t, where, "a.status = 'active'")
	assert.Contains(t, where, "a.price >= $1")
	assert.Contains(t, where, "a.price <= $2")
	assert.Contains(t, where, "a.rooms >= $3")
	assert.Contains(t, where, "a.furnished = $4")
	assert.Contains(t, where, "a.district ILIKE '%' || $5 || '%'")
	assert.Contains(t, where, "a.amenities && $6::text[]")
	assert.Contains(t, where, "ST_DWithin(a.location, ST_SetSRID(ST_MakePoint($7, $8), 4326)::geography, $9)")
	assert.Contains(t, where, "a.commute_cache -> $10")
	assert.Contains(t, where, `WHEN 'string' THEN CASE WHEN (m.val #>> '{}') ~ '^[0-9]+(\.[0-9]+)?$'`,
		"string minutes are read the same way models.ParseCommuteCache reads them")
	assert.Contains(t, where, `WHEN 'string' THEN CASE WHEN (m.val ->> 'minutes') ~ '^[0-9]+(\.[0-9]+)?$'`)
	assert.Contains(t, where, "<= $11")

	args := p.Args()
	require.Len(t, args, 11)
	assert.Equal(t, 100000.0, args[0])
	assert.Equal(t, 200000.0, args[1])
	assert.Equal(t, 1, args[2])
	assert.Equal(t, true, args[3])
	assert.Equal(t, `VIII\_`, args[4], "LIKE wildcards are escaped")
	assert.Equal(t, 19.04, args[6])
	assert.Equal(t, 47.5, args[7])
	assert.Equal(t, 1500.0, args[8])
	assert.Equal(t, "elte", args[9])
	assert.Equal(t, 30, args[10])
}

func TestBuildPredicate_LeadingArgsAndEmptyFilters(t *testing.T) {
	p := BuildPredicate(&models.SearchFilters{}, "balcony")
	assert.Equal(t, "a.status = 'active'", p.Where())
	assert.Equal(t, []interface{}{"balcony"}, p.Args())
	assert.Equal(t, "$2", p.Arg(10))
}

func TestOrderBy(t *testing.T) {
	tests := []struct {
		sort     models.SortMode
		expected string
	}{
		{models.SortRelevance, "a.completeness_score DESC NULLS LAST, a.media_quality_score DESC NULLS LAST, a.created_at DESC, a.id ASC"},
		{models.SortPriceAsc, "a.price ASC, a.id ASC"},
		{models.SortPriceDesc, "a.price DESC, a.id ASC"},
		{models.SortDistance, "distance ASC NULLS LAST, a.id ASC"},
		{models.SortNewest, "a.created_at DESC, a.id ASC"},
	}
	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			assert.Equal(t, tt.expected, orderBy(tt.sort))
		})
	}
}

// ==========================
// Search
// ==========================

func TestStore_Search_BudgetAndRooms(t *testing.T) {
	s, mock := createTestStore(t)
	created := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	f := &models.SearchFilters{
		Budget: &models.PriceRange{Min: floatPtr(100000), Max: floatPtr(200000)},
		Rooms:  intPtr(1),
		SortBy: models.SortRelevance,
		Limit:  20,
	}

	mock.ExpectQuery(`(?s)SELECT .* NULL::float8 AS distance\s+FROM apartments a\s+WHERE a.status = 'active' AND a.price >= \$1 AND a.price <= \$2 AND a.rooms >= \$3\s+ORDER BY a.completeness_score DESC NULLS LAST.*LIMIT \$4 OFFSET \$5`).
		WithArgs(100000.0, 200000.0, 1, 20, 0).
		WillReturnRows(sqlmock.NewRows(listingCols).
			AddRow("apt-1", "Bright studio", 150000.0, 1, "VIII", "{wifi,balcony}", true, 0.9, 0.8,
				`{"elte":{"transit":{"minutes":15}}}`, created, nil).
			AddRow("apt-2", nil, 200000.0, 2, nil, "{}", nil, nil, nil, nil, created, nil))

	listings, err := s.Search(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, listings, 2)

	assert.Equal(t, "apt-1", listings[0].ID)
	assert.Equal(t, []string{"wifi", "balcony"}, listings[0].Amenities)
	assert.True(t, *listings[0].Furnished)
	assert.Equal(t, 0.9, *listings[0].CompletenessScore)
	assert.Equal(t, 15.0, *listings[0].Commute.MinutesFor("elte", "transit"))
	assert.Nil(t, listings[0].DistanceMeters)

	assert.Equal(t, "", listings[1].Title)
	assert.Nil(t, listings[1].Furnished)
	assert.Nil(t, listings[1].CompletenessScore)
	assert.Nil(t, listings[1].Commute)

	for _, l := range listings {
		assert.GreaterOrEqual(t, l.Price, 100000.0)
		assert.LessOrEqual(t, l.Price, 200000.0)
		assert.GreaterOrEqual(t, l.Rooms, 1)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Search_DistanceSortAndPagination(t *testing.T) {
	s, mock := createTestStore(t)

	f := &models.SearchFilters{
		Location:     &models.GeoPoint{Lat: 47.5, Lng: 19.04},
		RadiusMeters: 5000,
		SortBy:       models.SortDistance,
		Limit:        10,
		Offset:       10,
	}

	mock.ExpectQuery(`(?s)ST_Distance\(a.location, ST_SetSRID\(ST_MakePoint\(\$4, \$5\), 4326\)::geography\) AS distance.*ORDER BY distance ASC NULLS LAST, a.id ASC\s+LIMIT \$6 OFFSET \$7`).
		WithArgs(19.04, 47.5, 5000.0, 19.04, 47.5, 10, 10).
		WillReturnRows(sqlmock.NewRows(listingCols).
			AddRow("apt-11", "Room", 90000.0, 1, "IX", "{}", false, nil, nil, nil, time.Now(), 812.5))

	listings, err := s.Search(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, 812.5, *listings[0].DistanceMeters)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Search_QueryError(t *testing.T) {
	s, mock := createTestStore(t)

	mock.ExpectQuery(`(?s)SELECT`).WillReturnError(errors.New("connection reset"))

	_, err := s.Search(context.Background(), &models.SearchFilters{Limit: 20})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "QUERY_EXECUTION_FAILED")
}

// ==========================
// Count
// ==========================

func TestStore_Count(t *testing.T) {
	s, mock := createTestStore(t)

	f := &models.SearchFilters{District: "belváros", Limit: 5, Offset: 40}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM apartments a WHERE a.status = 'active' AND a.district ILIKE '%' || $1 || '%'`)).
		WithArgs("belváros").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(57))

	n, err := s.Count(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 57, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Full-text fallback
// ==========================

func TestStore_FullTextSearch(t *testing.T) {
	s, mock := createTestStore(t)

	f := &models.SearchFilters{Amenities: []string{"elevator"}, Limit: 20}

	mock.ExpectQuery(`(?s)ts_rank\(.*plainto_tsquery\('simple', \$1\)\) AS rank.*a.amenities && \$2::text\[\].*@@ plainto_tsquery\('simple', \$1\).*ORDER BY rank DESC, a.id ASC\s+LIMIT \$3 OFFSET \$4`).
		WithArgs("quiet balcony", pq.Array([]string{"elevator"}), 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "rank"}).
			AddRow("apt-3", 0.42).
			AddRow("apt-9", 0.21))

	hits, err := s.FullTextSearch(context.Background(), "  quiet balcony ", f)
	require.NoError(t, err)
	assert.Equal(t, []TextHit{{ID: "apt-3", Rank: 0.42}, {ID: "apt-9", Rank: 0.21}}, hits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FullTextSearch_EmptyQuery(t *testing.T) {
	s, mock := createTestStore(t)
	hits, err := s.FullTextSearch(context.Background(), "   ", &models.SearchFilters{Limit: 20})
	require.NoError(t, err)
	assert.Nil(t, hits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Candidates
// ==========================

func TestStore_Candidates(t *testing.T) {
	s, mock := createTestStore(t)

	cols := []string{
		"id", "title", "price", "rooms", "bedrooms", "bathrooms", "district", "amenities",
		"owner_verified", "media_quality_score", "completeness_score", "commute_cache",
		"normalized_score", "views_count", "saves_count", "messages_count", "furnished", "has_elevator",
	}

	mock.ExpectQuery(`(?s)LEFT JOIN LATERAL .*apartment_market_snapshots.*WHERE a.id::text = ANY\(\$1\)`).
		WithArgs(pq.Array([]string{"apt-2", "apt-1", "missing"})).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("apt-1", "Studio", 150000.0, 1, nil, 1, "VIII", "{wifi}", true, 0.9, 0.85,
				`{"elte":{"transit":{"minutes":25},"bike":{"minutes":12}}}`, 0.8, 120, 7, 3, true, nil).
			AddRow("apt-2", "Flat", 230000.0, 3, 2, 1, "XI", "{}", false, nil, nil, nil, nil, nil, nil, nil, false, true))

	candidates, err := s.Candidates(context.Background(), []string{"apt-2", "apt-1", "missing"}, "elte", "")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "apt-2", candidates[0].ID, "input order is preserved")
	assert.Equal(t, 2, *candidates[0].Bedrooms)
	assert.Nil(t, candidates[0].CommuteMinutes)
	assert.Nil(t, candidates[0].MarketScore)
	assert.Equal(t, 0, candidates[0].Views)
	assert.True(t, *candidates[0].HasElevator)

	c := candidates[1]
	assert.Nil(t, c.Bedrooms)
	assert.Equal(t, 1, c.BedroomCount())
	assert.True(t, c.OwnerVerified)
	assert.Equal(t, 12.0, *c.CommuteMinutes, "fastest mode when none requested")
	assert.Equal(t, 0.8, *c.MarketScore)
	assert.Equal(t, 7, c.Saves)
	assert.Nil(t, c.HasElevator)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Candidates_Empty(t *testing.T) {
	s, mock := createTestStore(t)
	out, err := s.Candidates(context.Background(), nil, "", "")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}
