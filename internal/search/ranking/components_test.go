package ranking

import (
	"math/rand"
	"testing"

	"rental-search/internal/models"

	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func boolPtr(v bool) *bool        { return &v }

// ==========================
// Constraint
// ==========================

func TestScoreConstraint(t *testing.T) {
	tests := []struct {
		name      string
		price     float64
		furnished *bool
		prefs     models.UserPreferences
		expected  float64
		codes     []string
		tradeOffs []string
	}{
		{
			name:     "no budget stated",
			price:    500000,
			expected: 1,
		},
		{
			name:     "within budget",
			price:    180000,
			prefs:    models.UserPreferences{BudgetMax: floatPtr(200000)},
			expected: 1,
			codes:    []string{CodeWithinBudget},
		},
		{
			name:      "over budget by a quarter",
			price:     250000,
			prefs:     models.UserPreferences{BudgetMax: floatPtr(200000)},
			expected:  0.75,
			tradeOffs: []string{"over budget by 50,000 HUF"},
		},
		{
			name:      "overage penalty is capped",
			price:     1000000,
			prefs:     models.UserPreferences{BudgetMax: floatPtr(200000)},
			expected:  0.3,
			tradeOffs: []string{"over budget by 800,000 HUF"},
		},
		{
			name:      "over budget and not furnished",
			price:     250000,
			furnished: boolPtr(false),
			prefs:     models.UserPreferences{BudgetMax: floatPtr(200000), MustHaveFurnished: true},
			expected:  0.15,
			tradeOffs: []string{"over budget by 50,000 HUF", "not furnished"},
		},
		{
			name:     "unknown furnishing is not penalised",
			price:    150000,
			prefs:    models.UserPreferences{BudgetMax: floatPtr(200000), MustHaveFurnished: true},
			expected: 1,
			codes:    []string{CodeWithinBudget},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, e := scoreConstraint(models.Candidate{Price: tt.price, Furnished: tt.furnished}, tt.prefs)
			assert.InDelta(t, tt.expected, score, 1e-9)
			assert.ElementsMatch(t, tt.codes, e.Codes())
			assert.Equal(t, append([]string{}, tt.tradeOffs...), e.TradeOffs())
		})
	}
}

// ==========================
// Preference
// ==========================

func TestScorePreference(t *testing.T) {
	c := models.Candidate{
		Rooms:     2,
		District:  "VIII. kerület",
		Amenities: []string{"WiFi", "balcony", "dishwasher"},
	}

	tests := []struct {
		name     string
		cand     models.Candidate
		prefs    models.UserPreferences
		expected float64
		codes    []string
	}{
		{"neutral", c, models.UserPreferences{}, 0.5, nil},
		{"bedrooms from rooms", c, models.UserPreferences{PreferredBedrooms: intPtr(2)}, 0.7, []string{CodeBedroomsMatch}},
		{"too few bedrooms", models.Candidate{Rooms: 3, Bedrooms: intPtr(1)}, models.UserPreferences{PreferredBedrooms: intPtr(2)}, 0.3, nil},
		{"district substring", c, models.UserPreferences{PreferredDistricts: []string{"xi", "viii"}}, 0.65, []string{CodeDistrictMatch}},
		{"half the amenities", c, models.UserPreferences{PreferredAmenities: []string{"wifi", "parking"}}, 0.6, []string{CodeAmenitiesMatch}},
		{
			"everything",
			c,
			models.UserPreferences{
				PreferredBedrooms:  intPtr(1),
				PreferredDistricts: []string{"VIII"},
				PreferredAmenities: []string{"wifi", "balcony"},
			},
			1.0,
			[]string{CodeBedroomsMatch, CodeDistrictMatch, CodeAmenitiesMatch},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, e := scorePreference(tt.cand, tt.prefs)
			assert.InDelta(t, tt.expected, score, 1e-9)
			assert.Equal(t, append([]string{}, tt.codes...), e.Codes())
		})
	}
}

// ==========================
// Accessibility
// ==========================

func TestScoreAccessibility(t *testing.T) {
	tests := []struct {
		name     string
		minutes  *float64
		limit    *int
		expected float64
		tradeOff bool
	}{
		{"unknown commute", nil, nil, 0.5, false},
		{"half the default limit", floatPtr(15), nil, 0.875, false},
		{"exactly at limit", floatPtr(20), intPtr(20), 0.75, false},
		{"over limit", floatPtr(45), nil, 0.3, true},
		{"far over limit", floatPtr(90), nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, e := scoreAccessibility(models.Candidate{CommuteMinutes: tt.minutes}, models.UserPreferences{MaxCommuteMinutes: tt.limit})
			assert.InDelta(t, tt.expected, score, 1e-9)
			assert.Equal(t, tt.tradeOff, len(e.TradeOffs()) > 0)
			if tt.minutes != nil && !tt.tradeOff {
				assert.Equal(t, []string{CodeShortCommute}, e.Codes())
			}
		})
	}
}

// ==========================
// Trust, market, engagement
// ==========================

func TestScoreTrust(t *testing.T) {
	score, e := scoreTrust(models.Candidate{})
	assert.InDelta(t, 0.4, score, 1e-9)
	assert.True(t, e.IsEmpty())

	score, e = scoreTrust(models.Candidate{
		OwnerVerified:     true,
		CompletenessScore: floatPtr(0.9),
		MediaQualityScore: floatPtr(0.9),
	})
	assert.InDelta(t, 0.9, score, 1e-9)
	assert.Equal(t, []string{CodeVerifiedOwner, CodeCompleteListing, CodeHighQualityMedia}, e.Codes())

	score, _ = scoreTrust(models.Candidate{CompletenessScore: floatPtr(0), MediaQualityScore: floatPtr(0)})
	assert.InDelta(t, 0.15, score, 1e-9)
}

func TestScoreMarket(t *testing.T) {
	score, e := scoreMarket(models.Candidate{})
	assert.Equal(t, 0.5, score)
	assert.True(t, e.IsEmpty())

	score, e = scoreMarket(models.Candidate{MarketScore: floatPtr(0.85)})
	assert.Equal(t, 0.85, score)
	assert.Equal(t, []string{CodeFairPrice}, e.Codes())

	score, e = scoreMarket(models.Candidate{MarketScore: floatPtr(0.2)})
	assert.Equal(t, 0.2, score)
	assert.Equal(t, []string{"priced above similar listings"}, e.TradeOffs())
}

func TestScoreEngagement(t *testing.T) {
	score, e := scoreEngagement(models.Candidate{})
	assert.InDelta(t, 0.4, score, 1e-9)
	assert.True(t, e.IsEmpty())

	score, e = scoreEngagement(models.Candidate{Views: 99, Saves: 6, Messages: 3})
	assert.InDelta(t, 0.94, score, 1e-9)
	assert.Equal(t, []string{CodePopular}, e.Codes())

	score, _ = scoreEngagement(models.Candidate{Views: 1000000, Saves: 500, Messages: 500})
	assert.InDelta(t, 1.0, score, 1e-9)

	score, _ = scoreEngagement(models.Candidate{Views: -10, Saves: -3})
	assert.InDelta(t, 0.4, score, 1e-9)
}

// ==========================
// Bounds
// ==========================

func TestScoresStayInUnitInterval(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	maybe := func(v float64) *float64 {
		if rng.Intn(4) == 0 {
			return nil
		}
		return &v
	}

	for i := 0; i < 2000; i++ {
		c := models.Candidate{
			ID:                "apt",
			Price:             rng.Float64() * 800000,
			Rooms:             rng.Intn(6),
			District:          []string{"V", "VIII", "XI", ""}[rng.Intn(4)],
			Amenities:         []string{"wifi", "balcony"}[:rng.Intn(3)],
			OwnerVerified:     rng.Intn(2) == 0,
			MediaQualityScore: maybe(rng.Float64()*1.4 - 0.2),
			CompletenessScore: maybe(rng.Float64()*1.4 - 0.2),
			CommuteMinutes:    maybe(rng.Float64() * 200),
			MarketScore:       maybe(rng.Float64()*1.4 - 0.2),
			Views:             rng.Intn(100000) - 10,
			Saves:             rng.Intn(100) - 5,
			Messages:          rng.Intn(50) - 5,
			Furnished:         []*bool{nil, boolPtr(true), boolPtr(false)}[rng.Intn(3)],
		}
		prefs := models.UserPreferences{
			BudgetMax:          maybe(rng.Float64() * 400000),
			PreferredBedrooms:  []*int{nil, intPtr(1), intPtr(4)}[rng.Intn(3)],
			PreferredDistricts: []string{"viii"},
			PreferredAmenities: []string{"wifi", "parking", "balcony"},
			MaxCommuteMinutes:  []*int{nil, intPtr(10), intPtr(0)}[rng.Intn(3)],
			MustHaveFurnished:  rng.Intn(2) == 0,
		}
		w := models.RankingWeights{
			Constraint:    rng.Float64(),
			Preference:    rng.Float64(),
			Accessibility: rng.Float64(),
			Trust:         rng.Float64(),
			Market:        rng.Float64(),
			Engagement:    rng.Float64() + 0.01,
		}

		r := scoreCandidate(c, prefs, w, models.SourceStructured)
		for name, v := range map[string]float64{
			"final":         r.Score,
			"constraint":    r.Components.Constraint,
			"preference":    r.Components.Preference,
			"accessibility": r.Components.Accessibility,
			"trust":         r.Components.Trust,
			"market":        r.Components.Market,
			"engagement":    r.Components.Engagement,
		} {
			if v < 0 || v > 1 {
				t.Fatalf("%s score %v out of range for candidate %+v", name, v, c)
			}
		}
	}
}
