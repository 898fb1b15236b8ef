package ranking

import (
	"fmt"
	"math"
	"strings"

	"rental-search/internal/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	CodeWithinBudget     = "WITHIN_BUDGET"
	CodeBedroomsMatch    = "BEDROOMS_MATCH"
	CodeDistrictMatch    = "DISTRICT_MATCH"
	CodeAmenitiesMatch   = "AMENITIES_MATCH"
	CodeShortCommute     = "SHORT_COMMUTE"
	CodeVerifiedOwner    = "VERIFIED_OWNER"
	CodeCompleteListing  = "COMPLETE_LISTING"
	CodeHighQualityMedia = "HIGH_QUALITY_MEDIA"
	CodeFairPrice        = "FAIR_PRICE"
	CodePopular          = "POPULAR"
)

// DefaultCommuteLimit applies when the user stated no commute limit.
const DefaultCommuteLimit = 30.0

// Amounts in trade-offs are printed with thousands separators.
var printer = message.NewPrinter(language.English)

// scoreConstraint handles the hard requirements: budget ceiling and furnishing.
func scoreConstraint(c models.Candidate, p models.UserPreferences) (float64, models.Explanation) {
	score := 1.0
	var e models.Explanation

	if p.BudgetMax != nil && *p.BudgetMax > 0 {
		max := *p.BudgetMax
		if c.Price > max {
			over := c.Price - max
			score -= clamp(over/max, 0, 0.7)
			e = e.Merge(models.TradeOff(printer.Sprintf("over budget by %d HUF", int64(math.Round(over)))))
		} else if p.BudgetMin == nil || c.Price >= *p.BudgetMin {
			e = e.Merge(models.Because("within your budget", CodeWithinBudget))
		}
	}

	if p.MustHaveFurnished && c.Furnished != nil && !*c.Furnished {
		score *= 0.2
		e = e.Merge(models.TradeOff("not furnished"))
	}

	return clamp01(score), e
}

// scorePreference rewards soft wants around a neutral 0.5.
func scorePreference(c models.Candidate, p models.UserPreferences) (float64, models.Explanation) {
	score := 0.5
	var e models.Explanation

	if p.PreferredBedrooms != nil {
		want := *p.PreferredBedrooms
		if c.BedroomCount() >= want {
			score += 0.2
			e = e.Merge(models.Because(fmt.Sprintf("has %d+ bedrooms", want), CodeBedroomsMatch))
		} else {
			score -= 0.2
			e = e.Merge(models.TradeOff(fmt.Sprintf("fewer than %d bedrooms", want)))
		}
	}

	if district := matchDistrict(c.District, p.PreferredDistricts); district != "" {
		score += 0.15
		e = e.Merge(models.Because("in your preferred district "+c.District, CodeDistrictMatch))
	}

	if wanted := nonEmpty(p.PreferredAmenities); len(wanted) > 0 {
		have := make(map[string]struct{}, len(c.Amenities))
		for _, a := range c.Amenities {
			have[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
		}
		matched := 0
		for _, a := range wanted {
			if _, ok := have[a]; ok {
				matched++
			}
		}
		if matched > 0 {
			score += 0.2 * float64(matched) / float64(len(wanted))
			e = e.Merge(models.Because(fmt.Sprintf("has %d of %d preferred amenities", matched, len(wanted)), CodeAmenitiesMatch))
		}
	}

	return clamp01(score), e
}

// scoreAccessibility compares the commute with the user's limit.
func scoreAccessibility(c models.Candidate, p models.UserPreferences) (float64, models.Explanation) {
	if c.CommuteMinutes == nil {
		return 0.5, models.Explanation{}
	}

	limit := DefaultCommuteLimit
	if p.MaxCommuteMinutes != nil && *p.MaxCommuteMinutes > 0 {
		limit = float64(*p.MaxCommuteMinutes)
	}

	minutes := *c.CommuteMinutes
	ratio := minutes / limit
	if ratio <= 1 {
		return clamp01(1 - ratio*0.25), models.Because(fmt.Sprintf("%.0f min commute", minutes), CodeShortCommute)
	}
	return clamp01(0.5 - (ratio-1)*0.4), models.TradeOff(fmt.Sprintf("commute exceeds your limit (%.0f min)", minutes))
}

func scoreTrust(c models.Candidate) (float64, models.Explanation) {
	score := 0.4
	var e models.Explanation

	if c.OwnerVerified {
		score += 0.3
		e = e.Merge(models.Because("verified owner", CodeVerifiedOwner))
	}
	if c.CompletenessScore != nil {
		score += (*c.CompletenessScore - 0.5) * 0.3
		if *c.CompletenessScore > 0.8 {
			e = e.Merge(models.Because("complete listing details", CodeCompleteListing))
		}
	}
	if c.MediaQualityScore != nil {
		score += (*c.MediaQualityScore - 0.5) * 0.2
		if *c.MediaQualityScore > 0.8 {
			e = e.Merge(models.Because("high-quality photos", CodeHighQualityMedia))
		}
	}

	return clamp01(score), e
}

func scoreMarket(c models.Candidate) (float64, models.Explanation) {
	score := 0.5
	if c.MarketScore != nil {
		score = clamp01(*c.MarketScore)
	}

	switch {
	case score > 0.7:
		return score, models.Because("fair price for the area", CodeFairPrice)
	case score < 0.4:
		return score, models.TradeOff("priced above similar listings")
	default:
		return score, models.Explanation{}
	}
}

func scoreEngagement(c models.Candidate) (float64, models.Explanation) {
	views := math.Max(float64(c.Views), 0)
	saves := math.Max(float64(c.Saves), 0)
	messages := math.Max(float64(c.Messages), 0)

	score := 0.4 +
		math.Min(0.3, math.Log10(views+1)*0.15) +
		math.Min(0.2, saves*0.02) +
		math.Min(0.2, messages*0.04)

	var e models.Explanation
	if c.Saves > 5 || c.Messages > 2 {
		e = models.Because("popular with other renters", CodePopular)
	}
	return clamp01(score), e
}

func matchDistrict(district string, preferred []string) string {
	d := strings.ToLower(strings.TrimSpace(district))
	if d == "" {
		return ""
	}
	for _, p := range preferred {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && (strings.Contains(d, p) || strings.Contains(p, d)) {
			return p
		}
	}
	return ""
}

func nonEmpty(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		s = strings.ToLower(strings.TrimSpace(s))
		if _, dup := seen[s]; s == "" || dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, 0, 1)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
