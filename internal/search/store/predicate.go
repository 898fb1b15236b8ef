package store

import (
	"fmt"
	"strings"

	"rental-search/internal/models"

	"github.com/lib/pq"
)

// Predicate accumulates WHERE clauses and their positional arguments.
type Predicate struct {
	clauses []string
	args    []interface{}
}

// NewPredicate starts a predicate whose first placeholder is $start+1, so
// callers can reserve leading arguments (query text, vectors).
func NewPredicate(leading ...interface{}) *Predicate {
	return &Predicate{args: append([]interface{}(nil), leading...)}
}

// Arg appends a value and returns its placeholder.
func (p *Predicate) Arg(v interface{}) string {
	p.args = append(p.args, v)
	return fmt.Sprintf("$%d", len(p.args))
}

func (p *Predicate) Add(clause string) {
	p.clauses = append(p.clauses, clause)
}

// Where renders the clauses joined with AND, or TRUE when empty.
func (p *Predicate) Where() string {
	if len(p.clauses) == 0 {
		return "TRUE"
	}
	return strings.Join(p.clauses, " AND ")
}

func (p *Predicate) Args() []interface{} {
	return p.args
}

// geoPoint renders the filter center as a geography literal.
func (p *Predicate) geoPoint(loc *models.GeoPoint) string {
	return fmt.Sprintf("ST_SetSRID(ST_MakePoint(%s, %s), 4326)::geography", p.Arg(loc.Lng), p.Arg(loc.Lat))
}

// BuildPredicate translates filters into SQL over the apartments table
// aliased as "a". Pagination and ordering are not included.
func BuildPredicate(f *models.SearchFilters, leading ...interface{}) *Predicate {
	p := NewPredicate(leading...)
	p.Add("a.status = 'active'")

	if b := f.Budget; b != nil {
		if b.Min != nil {
			p.Add("a.price >= " + p.Arg(*b.Min))
		}
		if b.Max != nil {
			p.Add("a.price <= " + p.Arg(*b.Max))
		}
	}

	if f.Rooms != nil {
		p.Add("a.rooms >= " + p.Arg(*f.Rooms))
	}

	if f.Furnished != nil {
		p.Add("a.furnished = " + p.Arg(*f.Furnished))
	}

	if d := strings.TrimSpace(f.District); d != "" {
		p.Add("a.district ILIKE '%' || " + p.Arg(escapeLike(d)) + " || '%'")
	}

	if len(f.Amenities) > 0 {
		p.Add("a.amenities && " + p.Arg(pq.Array(f.Amenities)) + "::text[]")
	}

	if f.Location != nil {
		radius := f.RadiusMeters
		if radius <= 0 {
			radius = models.DefaultRadiusMeters
		}
		center := p.geoPoint(f.Location)
		p.Add(fmt.Sprintf("ST_DWithin(a.location, %s, %s)", center, p.Arg(radius)))
	}

	if f.HasCommuteFilter() {
		uni := p.Arg(f.UniversityID)
		max := p.Arg(*f.MaxCommuteMinutes)
		// A listing without usable minutes for the university is kept.
		p.Add(fmt.Sprintf(`(a.commute_cache IS NULL
		OR jsonb_typeof(a.commute_cache -> %[1]s) IS DISTINCT FROM 'object'
		OR NOT EXISTS (SELECT 1 FROM jsonb_each(a.commute_cache -> %[1]s) AS m(mode, val) WHERE %[3]s IS NOT NULL)
		OR EXISTS (SELECT 1 FROM jsonb_each(a.commute_cache -> %[1]s) AS m(mode, val) WHERE %[3]s <= %[2]s))`,
			uni, max, commuteMinutesExpr))
	}

	return p
}

// commuteMinutesExpr reads minutes from either {"mode":n} or
// {"mode":{"minutes":n}}, where n is a number or a plain decimal string.
const commuteMinutesExpr = `CASE jsonb_typeof(m.val)
			WHEN 'number' THEN (m.val #>> '{}')::numeric
			WHEN 'string' THEN CASE WHEN (m.val #>> '{}') ~ '^[0-9]+(\.[0-9]+)?$' THEN (m.val #>> '{}')::numeric END
			WHEN 'object' THEN CASE jsonb_typeof(m.val -> 'minutes')
				WHEN 'number' THEN (m.val ->> 'minutes')::numeric
				WHEN 'string' THEN CASE WHEN (m.val ->> 'minutes') ~ '^[0-9]+(\.[0-9]+)?$' THEN (m.val ->> 'minutes')::numeric END
			END
		END`

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// orderBy maps the sort mode to an ORDER BY list. Every ordering ends in
// a.id so pages never overlap.
func orderBy(sort models.SortMode) string {
	switch sort {
	case models.SortPriceAsc:
		return "a.price ASC, a.id ASC"
	case models.SortPriceDesc:
		return "a.price DESC, a.id ASC"
	case models.SortDistance:
		return "distance ASC NULLS LAST, a.id ASC"
	case models.SortNewest:
		return "a.created_at DESC, a.id ASC"
	default:
		return "a.completeness_score DESC NULLS LAST, a.media_quality_score DESC NULLS LAST, a.created_at DESC, a.id ASC"
	}
}
