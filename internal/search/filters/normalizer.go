// Package filters turns raw, partial search requests into fully defaulted
// models.SearchFilters.
package filters

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"rental-search/internal/common/validation"
	"rental-search/internal/models"
)

var rawSchema = validation.MustCompile(map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"query":        map[string]interface{}{"type": "string"},
		"district":     map[string]interface{}{"type": "string"},
		"universityId": map[string]interface{}{"type": "string"},
		"sortBy": map[string]interface{}{
			"type": "string",
			"enum": []interface{}{"relevance", "price_asc", "price_desc", "distance", "newest"},
		},
		"location": map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"lat", "lng"},
		},
		"budget":     map[string]interface{}{"type": "object"},
		"amenities":  map[string]interface{}{"type": []interface{}{"array", "string"}},
		"furnished":  map[string]interface{}{"type": []interface{}{"boolean", "string", "null"}},
		"radius":     numeric,
		"rooms":      numeric,
		"maxCommute": numeric,
		"limit":      numeric,
		"offset":     numeric,
	},
})

// numbers may arrive as JSON numbers or numeric strings from form posts
var numeric = map[string]interface{}{"type": []interface{}{"number", "string", "null"}}

// Normalize validates raw filter input and returns a fully defaulted
// SearchFilters. On failure the error is a *ValidationError listing every
// invalid field.
func Normalize(raw map[string]interface{}) (*models.SearchFilters, error) {
	if raw == nil {
		raw = map[string]interface{}{}
	}

	v := &violations{}
	result, err := rawSchema.Validate(raw)
	if err != nil {
		return nil, fmt.Errorf("validate filters: %w", err)
	}
	v.list = append(v.list, result.Errors...)

	f := &models.SearchFilters{}

	if s, ok := raw["query"].(string); ok {
		f.Query = strings.TrimSpace(s)
	}
	if s, ok := raw["district"].(string); ok {
		f.District = strings.TrimSpace(s)
	}
	if s, ok := raw["universityId"].(string); ok {
		f.UniversityID = strings.TrimSpace(s)
	}
	if s, ok := raw["sortBy"].(string); ok && !v.has("sortBy") {
		f.SortBy = models.SortMode(strings.TrimSpace(s))
	}

	if !v.has("location") {
		if loc, ok := raw["location"].(map[string]interface{}); ok {
			lat, latOK := numberField(v, "location.lat", loc["lat"])
			lng, lngOK := numberField(v, "location.lng", loc["lng"])
			if latOK && lngOK && lat != nil && lng != nil {
				f.Location = &models.GeoPoint{Lat: *lat, Lng: *lng}
			} else {
				if lat != nil {
					checkLatitude(v, *lat)
				}
				if lng != nil {
					checkLongitude(v, *lng)
				}
			}
		}
	}

	if r, ok := numberField(v, "radius", raw["radius"]); ok && r != nil {
		f.RadiusMeters = *r
	}

	if !v.has("budget") {
		if b, ok := raw["budget"].(map[string]interface{}); ok {
			min, minOK := numberField(v, "budget.min", b["min"])
			max, maxOK := numberField(v, "budget.max", b["max"])
			if minOK && maxOK && (min != nil || max != nil) {
				f.Budget = &models.PriceRange{Min: min, Max: max}
			}
		}
	}

	if n, ok := intField(v, "rooms", raw["rooms"]); ok {
		f.Rooms = n
	}
	if n, ok := intField(v, "maxCommute", raw["maxCommute"]); ok {
		f.MaxCommuteMinutes = n
	}
	f.Limit = models.DefaultLimit
	if n, ok := intField(v, "limit", raw["limit"]); ok && n != nil {
		f.Limit = *n
	}
	if n, ok := intField(v, "offset", raw["offset"]); ok && n != nil {
		f.Offset = *n
	}

	if !v.has("amenities") {
		f.Amenities = parseAmenities(raw["amenities"])
	}

	if !v.has("furnished") {
		if b, ok := parseBool(raw["furnished"]); ok {
			f.Furnished = b
		} else {
			v.add("furnished", "INVALID_TYPE", "must be true or false")
		}
	}

	if f.SortBy == "" {
		f.SortBy = models.SortRelevance
	}
	if f.Location != nil && f.RadiusMeters == 0 {
		f.RadiusMeters = models.DefaultRadiusMeters
	}

	check(f, v)

	if err := v.err(); err != nil {
		return nil, err
	}
	return f, nil
}

// ApplyDefaults fills sortBy, limit and the default radius when a center is
// given. A zero Limit on a typed value is treated as unset.
func ApplyDefaults(f *models.SearchFilters) {
	if f.SortBy == "" {
		f.SortBy = models.SortRelevance
	}
	if f.Limit == 0 {
		f.Limit = models.DefaultLimit
	}
	if f.Location != nil && f.RadiusMeters == 0 {
		f.RadiusMeters = models.DefaultRadiusMeters
	}
	if len(f.Amenities) > 0 {
		f.Amenities = parseAmenities(f.Amenities)
	}
}

// Validate checks an already typed SearchFilters after applying defaults.
func Validate(f *models.SearchFilters) error {
	if f == nil {
		return &ValidationError{Fields: []validation.ValidationError{{
			Field: "(root)", Message: "filters are required", Code: "REQUIRED_FIELD_MISSING",
		}}}
	}
	ApplyDefaults(f)
	v := &violations{}
	check(f, v)
	return v.err()
}

func check(f *models.SearchFilters, v *violations) {
	if !v.has("limit") && (f.Limit < 1 || f.Limit > models.MaxLimit) {
		v.add("limit", "OUT_OF_RANGE", "must be between 1 and %d, got %d", models.MaxLimit, f.Limit)
	}
	if !v.has("offset") && f.Offset < 0 {
		v.add("offset", "OUT_OF_RANGE", "must not be negative, got %d", f.Offset)
	}
	if !v.has("sortBy") && !f.SortBy.Valid() {
		v.add("sortBy", "INVALID_ENUM_VALUE", "must be one of %v", models.ValidSortModes)
	}

	if f.Location != nil {
		checkLatitude(v, f.Location.Lat)
		checkLongitude(v, f.Location.Lng)
	}
	if !v.has("radius") && f.RadiusMeters < 0 {
		v.add("radius", "OUT_OF_RANGE", "must not be negative, got %g", f.RadiusMeters)
	}

	if b := f.Budget; b != nil && !v.has("budget") {
		if b.Min != nil && *b.Min < 0 {
			v.add("budget.min", "OUT_OF_RANGE", "must not be negative, got %g", *b.Min)
		}
		if b.Max != nil && *b.Max < 0 {
			v.add("budget.max", "OUT_OF_RANGE", "must not be negative, got %g", *b.Max)
		}
		if b.Min != nil && b.Max != nil && *b.Min > *b.Max {
			v.add("budget", "MIN_GREATER_THAN_MAX", "min (%g) must not exceed max (%g)", *b.Min, *b.Max)
		}
	}

	if f.Rooms != nil && !v.has("rooms") && *f.Rooms < 0 {
		v.add("rooms", "OUT_OF_RANGE", "must not be negative, got %d", *f.Rooms)
	}
	if f.MaxCommuteMinutes != nil && !v.has("maxCommute") && *f.MaxCommuteMinutes <= 0 {
		v.add("maxCommute", "OUT_OF_RANGE", "must be positive, got %d", *f.MaxCommuteMinutes)
	}
}

func checkLatitude(v *violations, lat float64) {
	if !v.has("location.lat") && (lat < -90 || lat > 90) {
		v.add("location.lat", "OUT_OF_RANGE", "latitude must be between -90 and 90, got %g", lat)
	}
}

func checkLongitude(v *violations, lng float64) {
	if !v.has("location.lng") && (lng < -180 || lng > 180) {
		v.add("location.lng", "OUT_OF_RANGE", "longitude must be between -180 and 180, got %g", lng)
	}
}

// numberField parses an optional number. ok is false when a violation was recorded.
func numberField(v *violations, field string, raw interface{}) (*float64, bool) {
	if raw == nil || v.has(field) {
		return nil, !v.has(field)
	}

	var n float64
	switch x := raw.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, true
		}
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), 64)
		if err != nil {
			v.add(field, "INVALID_TYPE", "must be a number, got %q", x)
			return nil, false
		}
		n = parsed
	default:
		v.add(field, "INVALID_TYPE", "must be a number, got %T", raw)
		return nil, false
	}

	if math.IsNaN(n) || math.IsInf(n, 0) {
		v.add(field, "INVALID_TYPE", "must be a finite number")
		return nil, false
	}
	return &n, true
}

func intField(v *violations, field string, raw interface{}) (*int, bool) {
	n, ok := numberField(v, field, raw)
	if !ok || n == nil {
		return nil, ok
	}
	if *n != math.Trunc(*n) {
		v.add(field, "INVALID_TYPE", "must be a whole number, got %g", *n)
		return nil, false
	}
	if *n >= float64(math.MaxInt) || *n < float64(math.MinInt) {
		v.add(field, "OUT_OF_RANGE", "must fit in an integer, got %g", *n)
		return nil, false
	}
	i := int(*n)
	return &i, true
}

func parseBool(raw interface{}) (*bool, bool) {
	switch x := raw.(type) {
	case nil:
		return nil, true
	case bool:
		return &x, true
	case string:
		s := strings.TrimSpace(strings.ToLower(x))
		if s == "" {
			return nil, true
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, false
		}
		return &b, true
	default:
		return nil, false
	}
}

// parseAmenities accepts a list or a comma separated string and returns
// trimmed, lower-cased, deduplicated values.
func parseAmenities(raw interface{}) []string {
	var items []string
	switch x := raw.(type) {
	case string:
		items = strings.Split(x, ",")
	case []string:
		items = x
	case []interface{}:
		for _, it := range x {
			if s, ok := it.(string); ok {
				items = append(items, s)
			}
		}
	}

	var out []string
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		s := strings.ToLower(strings.TrimSpace(it))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
