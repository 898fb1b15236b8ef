// Package store is the read-only listing store over Postgres: structured
// attribute/geo search, counts, the full-text fallback and candidate
// projection for ranking.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	apperrors "rental-search/internal/common/errors"
	"rental-search/internal/common/logger"
	"rental-search/internal/models"

	"github.com/lib/pq"
)

// Store reads listings from the apartments table.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "listing-store"}),
	}
}

// TextHit is one full-text fallback match with its ts_rank score.
type TextHit struct {
	ID   string
	Rank float64
}

const listingColumns = `a.id, a.title, a.price, a.rooms, a.district, a.amenities, a.furnished,
		a.completeness_score, a.media_quality_score, a.commute_cache, a.created_at`

// Search runs the structured query: filters, ordering, then LIMIT/OFFSET.
func (s *Store) Search(ctx context.Context, f *models.SearchFilters) ([]models.Listing, error) {
	p := BuildPredicate(f)

	distance := "NULL::float8"
	if f.Location != nil {
		distance = fmt.Sprintf("ST_Distance(a.location, %s)", p.geoPoint(f.Location))
	}

	query := fmt.Sprintf(`SELECT %s, %s AS distance
		FROM apartments a
		WHERE %s
		ORDER BY %s
		LIMIT %s OFFSET %s`,
		listingColumns, distance, p.Where(), orderBy(f.SortBy), p.Arg(f.Limit), p.Arg(f.Offset))

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, p.Args()...)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("structured_search", err)
	}
	defer rows.Close()

	var out []models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("structured_search", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("structured_search", err)
	}

	s.logger.Debug("structured query executed", map[string]interface{}{
		"rows":       len(out),
		"sortBy":     f.SortBy,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return out, nil
}

func scanListing(rows *sql.Rows) (models.Listing, error) {
	var (
		l            models.Listing
		title        sql.NullString
		district     sql.NullString
		amenities    pq.StringArray
		furnished    sql.NullBool
		completeness sql.NullFloat64
		media        sql.NullFloat64
		commute      []byte
		distance     sql.NullFloat64
	)
	if err := rows.Scan(&l.ID, &title, &l.Price, &l.Rooms, &district, &amenities, &furnished,
		&completeness, &media, &commute, &l.CreatedAt, &distance); err != nil {
		return l, err
	}
	l.Title = title.String
	l.District = district.String
	l.Amenities = []string(amenities)
	l.Furnished = nullBool(furnished)
	l.CompletenessScore = nullFloat(completeness)
	l.MediaQualityScore = nullFloat(media)
	l.DistanceMeters = nullFloat(distance)
	l.Commute = models.ParseCommuteCache(commute)
	return l, nil
}

// Count returns the number of listings matching f, ignoring pagination.
func (s *Store) Count(ctx context.Context, f *models.SearchFilters) (int, error) {
	p := BuildPredicate(f)
	query := fmt.Sprintf("SELECT COUNT(*) FROM apartments a WHERE %s", p.Where())

	var n int
	if err := s.db.QueryRowContext(ctx, query, p.Args()...).Scan(&n); err != nil {
		return 0, apperrors.NewQueryExecutionFailedError("structured_count", err)
	}
	return n, nil
}

const tsDocument = `to_tsvector('simple', coalesce(a.title, '') || ' ' || coalesce(a.description, ''))`

// FullTextSearch ranks title and description matches with ts_rank. It backs
// the keyword retriever when the search engine is unreachable.
func (s *Store) FullTextSearch(ctx context.Context, text string, f *models.SearchFilters) ([]TextHit, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	p := BuildPredicate(f, text)
	p.Add(tsDocument + " @@ plainto_tsquery('simple', $1)")

	query := fmt.Sprintf(`SELECT a.id, ts_rank(%s, plainto_tsquery('simple', $1)) AS rank
		FROM apartments a
		WHERE %s
		ORDER BY rank DESC, a.id ASC
		LIMIT %s OFFSET %s`,
		tsDocument, p.Where(), p.Arg(f.Limit), p.Arg(f.Offset))

	rows, err := s.db.QueryContext(ctx, query, p.Args()...)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("full_text_search", err)
	}
	defer rows.Close()

	var hits []TextHit
	for rows.Next() {
		var h TextHit
		if err := rows.Scan(&h.ID, &h.Rank); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("full_text_search", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("full_text_search", err)
	}
	return hits, nil
}

// Candidates loads ranking projections for ids, in the order given. Commute
// minutes are resolved for universityID and mode (fastest mode when empty).
// Unknown ids are skipped.
func (s *Store) Candidates(ctx context.Context, ids []string, universityID, mode string) ([]models.Candidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT a.id, a.title, a.price, a.rooms, a.bedrooms, a.bathrooms, a.district, a.amenities,
			a.owner_verified, a.media_quality_score, a.completeness_score, a.commute_cache,
			ms.normalized_score, a.views_count, a.saves_count, a.messages_count,
			a.furnished, a.has_elevator
		FROM apartments a
		LEFT JOIN LATERAL (
			SELECT s.normalized_score
			FROM apartment_market_snapshots s
			WHERE s.apartment_id = a.id
			ORDER BY s.computed_at DESC
			LIMIT 1
		) ms ON TRUE
		WHERE a.id::text = ANY($1)`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("candidates", err)
	}
	defer rows.Close()

	byID := make(map[string]models.Candidate, len(ids))
	for rows.Next() {
		var (
			c            models.Candidate
			title        sql.NullString
			district     sql.NullString
			bedrooms     sql.NullInt64
			bathrooms    sql.NullInt64
			amenities    pq.StringArray
			verified     sql.NullBool
			media        sql.NullFloat64
			completeness sql.NullFloat64
			commute      []byte
			market       sql.NullFloat64
			views        sql.NullInt64
			saves        sql.NullInt64
			messages     sql.NullInt64
			furnished    sql.NullBool
			elevator     sql.NullBool
		)
		if err := rows.Scan(&c.ID, &title, &c.Price, &c.Rooms, &bedrooms, &bathrooms, &district, &amenities,
			&verified, &media, &completeness, &commute, &market, &views, &saves, &messages,
			&furnished, &elevator); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("candidates", err)
		}
		c.Title = title.String
		c.District = district.String
		c.Bedrooms = nullInt(bedrooms)
		c.Bathrooms = nullInt(bathrooms)
		c.Amenities = []string(amenities)
		c.OwnerVerified = verified.Valid && verified.Bool
		c.MediaQualityScore = nullFloat(media)
		c.CompletenessScore = nullFloat(completeness)
		c.CommuteMinutes = models.ParseCommuteCache(commute).MinutesFor(universityID, mode)
		c.MarketScore = nullFloat(market)
		c.Views = int(views.Int64)
		c.Saves = int(saves.Int64)
		c.Messages = int(messages.Int64)
		c.Furnished = nullBool(furnished)
		c.HasElevator = nullBool(elevator)
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("candidates", err)
	}

	out := make([]models.Candidate, 0, len(byID))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
			delete(byID, id)
		}
	}
	return out, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullBool(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
