// internal/models/commute.go
package models

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
)

// numericMinutes is the only string form read as minutes. The listing
// store's SQL commute filter accepts the same pattern.
var numericMinutes = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// CommuteCache maps university id to transport mode to travel minutes.
type CommuteCache map[string]map[string]float64

// ParseCommuteCache accepts the loosely typed jsonb stored per listing. Both
// {"uni":{"transit":{"minutes":12}}} and {"uni":{"transit":12}} are read;
// anything unreadable is skipped rather than failing the row.
func ParseCommuteCache(raw []byte) CommuteCache {
	if len(raw) == 0 {
		return nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}

	out := make(CommuteCache, len(doc))
	for uni, rawModes := range doc {
		var modes map[string]json.RawMessage
		if err := json.Unmarshal(rawModes, &modes); err != nil {
			continue
		}
		for mode, v := range modes {
			minutes, ok := parseMinutes(v)
			if !ok {
				continue
			}
			if out[uni] == nil {
				out[uni] = make(map[string]float64)
			}
			out[uni][mode] = minutes
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseMinutes(v json.RawMessage) (float64, bool) {
	if string(bytes.TrimSpace(v)) == "null" {
		return 0, false
	}

	var n float64
	if err := json.Unmarshal(v, &n); err == nil {
		return n, validMinutes(n)
	}

	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if !numericMinutes.MatchString(s) {
			return 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		return n, err == nil && validMinutes(n)
	}

	var obj struct {
		Minutes json.RawMessage `json:"minutes"`
	}
	if err := json.Unmarshal(v, &obj); err == nil && len(obj.Minutes) > 0 {
		return parseMinutes(obj.Minutes)
	}
	return 0, false
}

func validMinutes(n float64) bool {
	return n >= 0 && !math.IsNaN(n) && !math.IsInf(n, 0)
}

// MinutesFor returns the cached minutes for a mode, or the fastest mode when
// mode is empty. Nil means unknown.
func (c CommuteCache) MinutesFor(universityID, mode string) *float64 {
	modes, ok := c[universityID]
	if !ok || len(modes) == 0 {
		return nil
	}
	if mode != "" {
		if m, ok := modes[mode]; ok {
			return &m
		}
		return nil
	}
	best := math.Inf(1)
	for _, m := range modes {
		if m < best {
			best = m
		}
	}
	return &best
}
