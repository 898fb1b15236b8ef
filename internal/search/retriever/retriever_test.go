package retriever

import (
	"context"
	"errors"
	"testing"

	"rental-search/internal/common/logger"
	"rental-search/internal/models"
	"rental-search/internal/search/embedding"
	"rental-search/internal/search/keyword"
	"rental-search/internal/search/store"
	"rental-search/internal/search/vector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fakes
// ==========================

type fakeStore struct {
	listings  []models.Listing
	textHits  []store.TextHit
	err       error
	textErr   error
	textCalls int
}

func (s *fakeStore) Search(ctx context.Context, f *models.SearchFilters) ([]models.Listing, error) {
	return s.listings, s.err
}

func (s *fakeStore) FullTextSearch(ctx context.Context, text string, f *models.SearchFilters) ([]store.TextHit, error) {
	s.textCalls++
	return s.textHits, s.textErr
}

type fakeIndex struct {
	hits []keyword.Hit
	err  error
}

func (i *fakeIndex) Search(ctx context.Context, text string, f *models.SearchFilters) ([]keyword.Hit, error) {
	return i.hits, i.err
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (e *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return e.vec, e.err
}

type fakeVectorIndex struct {
	neighbors []vector.Neighbor
	err       error
	gotVec    []float32
}

func (v *fakeVectorIndex) NearestNeighbors(ctx context.Context, vec []float32, f *models.SearchFilters) ([]vector.Neighbor, error) {
	v.gotVec = vec
	return v.neighbors, v.err
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

// ==========================
// Structured
// ==========================

func TestStructured_ScoresAndReasons(t *testing.T) {
	dist := 1200.0
	listings := make([]models.Listing, 30)
	for i := range listings {
		listings[i] = models.Listing{ID: string(rune('a' + i%26)), Rooms: 2}
	}
	listings[0] = models.Listing{
		ID:             "apt-1",
		Price:          150000,
		Rooms:          2,
		District:       "VIII",
		Amenities:      []string{"wifi", "elevator"},
		Furnished:      boolPtr(true),
		DistanceMeters: &dist,
		Commute:        models.CommuteCache{"elte": {"transit": 18, "bike": 11}},
	}

	f := &models.SearchFilters{
		Budget:            &models.PriceRange{Min: floatPtr(100000), Max: floatPtr(200000)},
		Rooms:             intPtr(1),
		District:          "viii",
		Amenities:         []string{"wifi", "balcony"},
		Furnished:         boolPtr(true),
		Location:          &models.GeoPoint{Lat: 47.49, Lng: 19.07},
		UniversityID:      "elte",
		MaxCommuteMinutes: intPtr(30),
	}

	r := NewStructured(&fakeStore{listings: listings}, logger.NewTestLogger(t))
	out, err := r.Retrieve(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, out, 30)

	first := out[0]
	assert.Equal(t, "apt-1", first.ApartmentID)
	assert.Equal(t, 1.0, first.Score)
	assert.Equal(t, models.SourceStructured, first.Source)
	assert.Equal(t, []string{
		CodeWithinBudget, CodeRoomsMatch, CodeDistrictMatch, CodeAmenityMatch,
		CodeFurnishedMatch, CodeNearLocation, CodeCommuteOK,
	}, first.ReasonCodes)
	assert.Contains(t, first.Reasons, "has wifi")
	assert.Contains(t, first.Reasons, "1.2 km from your location")
	assert.Contains(t, first.Reasons, "11 min to elte")

	assert.InDelta(t, 0.98, out[1].Score, 1e-9)
	assert.InDelta(t, 0.5, out[25].Score, 1e-9)
	assert.InDelta(t, 0.5, out[29].Score, 1e-9, "score floor")
}

func TestStructured_GenericReason(t *testing.T) {
	r := NewStructured(&fakeStore{listings: []models.Listing{{ID: "apt-1"}}}, logger.NewNoOpLogger())
	out, err := r.Retrieve(context.Background(), &models.SearchFilters{})
	require.NoError(t, err)
	assert.Equal(t, []string{"matches your filters"}, out[0].Reasons)
	assert.Equal(t, []string{CodeFilterMatch}, out[0].ReasonCodes)
	assert.Equal(t, []string{}, out[0].TradeOffs)
}

func TestStructured_StoreError(t *testing.T) {
	r := NewStructured(&fakeStore{err: errors.New("db down")}, logger.NewNoOpLogger())
	_, err := r.Retrieve(context.Background(), &models.SearchFilters{})
	assert.Error(t, err)
}

// ==========================
// Keyword
// ==========================

func TestKeyword_IndexHits(t *testing.T) {
	idx := &fakeIndex{hits: []keyword.Hit{
		{ID: "apt-1", Score: 1, TitleMatch: true},
		{ID: "apt-2", Score: 0.4},
	}}
	fs := &fakeStore{}
	r := NewKeyword(idx, fs, logger.NewTestLogger(t))

	out, err := r.Retrieve(context.Background(), "balcony", &models.SearchFilters{Limit: 20})
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, []string{CodeTitleMatch}, out[0].ReasonCodes)
	assert.Equal(t, []string{"keyword match"}, out[1].Reasons)
	assert.Equal(t, 0.4, out[1].Score)
	assert.Equal(t, models.SourceKeyword, out[1].Source)
	assert.Equal(t, 0, fs.textCalls)
}

func TestKeyword_FallsBackToFullText(t *testing.T) {
	tests := []struct {
		name  string
		index keyword.Index
	}{
		{"index unavailable", &fakeIndex{err: keyword.ErrIndexUnavailable}},
		{"no index configured", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &fakeStore{textHits: []store.TextHit{{ID: "apt-3", Rank: 0.4}, {ID: "apt-4", Rank: 0.1}}}
			r := NewKeyword(tt.index, fs, logger.NewNoOpLogger())

			out, err := r.Retrieve(context.Background(), "quiet", &models.SearchFilters{Limit: 20})
			require.NoError(t, err)
			require.Len(t, out, 2)
			assert.Equal(t, 1, fs.textCalls)
			assert.Equal(t, 1.0, out[0].Score)
			assert.InDelta(t, 0.25, out[1].Score, 1e-9)
			assert.Equal(t, []string{CodeKeywordMatch}, out[1].ReasonCodes)
		})
	}
}

func TestKeyword_EmptyQuery(t *testing.T) {
	fs := &fakeStore{}
	r := NewKeyword(&fakeIndex{}, fs, logger.NewNoOpLogger())
	out, err := r.Retrieve(context.Background(), "  ", &models.SearchFilters{})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 0, fs.textCalls)
}

func TestKeyword_BothPathsFail(t *testing.T) {
	fs := &fakeStore{textErr: errors.New("db down")}
	r := NewKeyword(&fakeIndex{err: keyword.ErrIndexUnavailable}, fs, logger.NewNoOpLogger())
	_, err := r.Retrieve(context.Background(), "flat", &models.SearchFilters{})
	assert.Error(t, err)
}

// ==========================
// Semantic
// ==========================

func TestSemantic_Scores(t *testing.T) {
	vi := &fakeVectorIndex{neighbors: []vector.Neighbor{
		{ID: "apt-1", Distance: 0.05},
		{ID: "apt-2", Distance: 0.2},
		{ID: "apt-3", Distance: 0.7},
		{ID: "apt-4", Distance: -0.2},
	}}
	r := NewSemantic(&fakeEmbedder{vec: []float32{1, 0}}, vi, NewKeyword(nil, &fakeStore{}, logger.NewNoOpLogger()), logger.NewTestLogger(t))

	out, err := r.Retrieve(context.Background(), "cosy flat", &models.SearchFilters{Limit: 20})
	require.NoError(t, err)
	require.Len(t, out, 4)

	assert.Equal(t, []float32{1, 0}, vi.gotVec)
	assert.InDelta(t, 0.95, out[0].Score, 1e-9)
	assert.InDelta(t, 0.79, out[1].Score, 1e-9)
	assert.InDelta(t, 0.6, out[2].Score, 1e-9, "floor")
	assert.Equal(t, 1.0, out[3].Score, "clamped")
	for _, r := range out {
		assert.Equal(t, models.SourceSemantic, r.Source)
		assert.Equal(t, []string{CodeSemanticMatch}, r.ReasonCodes)
	}
}

func TestSemantic_DelegatesToKeyword(t *testing.T) {
	fs := &fakeStore{textHits: []store.TextHit{{ID: "apt-9", Rank: 0.3}}}
	kw := NewKeyword(nil, fs, logger.NewNoOpLogger())
	f := &models.SearchFilters{Limit: 20}

	expected, err := kw.Retrieve(context.Background(), "quiet", f)
	require.NoError(t, err)

	tests := []struct {
		name     string
		embedder embedding.Provider
	}{
		{"embedder unavailable", &fakeEmbedder{err: embedding.ErrUnavailable}},
		{"embedder absent", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vi := &fakeVectorIndex{}
			r := NewSemantic(tt.embedder, vi, kw, logger.NewNoOpLogger())

			out, err := r.Retrieve(context.Background(), "quiet", f)
			require.NoError(t, err)
			assert.Equal(t, expected, out)
			assert.Nil(t, vi.gotVec, "vector index is not consulted")
		})
	}
}

func TestSemantic_IndexError(t *testing.T) {
	r := NewSemantic(&fakeEmbedder{vec: []float32{1}}, &fakeVectorIndex{err: errors.New("qdrant down")},
		NewKeyword(nil, &fakeStore{}, logger.NewNoOpLogger()), logger.NewNoOpLogger())
	_, err := r.Retrieve(context.Background(), "flat", &models.SearchFilters{})
	assert.Error(t, err)
}
