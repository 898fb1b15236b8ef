package ranking

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "rental-search/internal/common/errors"
	"rental-search/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresWeightStore reads the ranking_weights history table.
type PostgresWeightStore struct {
	db *sql.DB
}

func NewPostgresWeightStore(db *sql.DB) *PostgresWeightStore {
	return &PostgresWeightStore{db: db}
}

func (s *PostgresWeightStore) LatestWeights(ctx context.Context) (*models.RankingWeights, error) {
	query := `SELECT constraint_weight, preference_weight, accessibility_weight,
			trust_weight, market_weight, engagement_weight, created_at
		FROM ranking_weights
		ORDER BY created_at DESC
		LIMIT 1`

	var w models.RankingWeights
	err := s.db.QueryRowContext(ctx, query).Scan(
		&w.Constraint, &w.Preference, &w.Accessibility,
		&w.Trust, &w.Market, &w.Engagement, &w.LoadedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoWeights
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("ranking_weights", err)
	}
	return &w, nil
}

// PostgresAnalyticsSink appends ranked results to ranking_events.
type PostgresAnalyticsSink struct {
	db *sql.DB
}

func NewPostgresAnalyticsSink(db *sql.DB) *PostgresAnalyticsSink {
	return &PostgresAnalyticsSink{db: db}
}

// LogRankingEvents writes one row per result in a single transaction.
// Position is 1-based.
func (s *PostgresAnalyticsSink) LogRankingEvents(ctx context.Context, results []models.RankedResult, rc models.RankContext) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewPersistenceFailedError("ranking_events", err)
	}
	defer tx.Rollback()

	const insert = `INSERT INTO ranking_events
		(id, apartment_id, position, score, components, reason_codes, user_id, session_id, query, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())`

	for i, r := range results {
		components, err := json.Marshal(r.Components)
		if err != nil {
			return apperrors.NewPersistenceFailedError("ranking_events", fmt.Errorf("encode components: %w", err))
		}
		if _, err := tx.ExecContext(ctx, insert,
			uuid.New().String(),
			r.ApartmentID,
			i+1,
			r.Score,
			components,
			pq.Array(r.ReasonCodes),
			nullString(rc.UserID),
			nullString(rc.SessionID),
			nullString(rc.Query),
			string(r.Source),
		); err != nil {
			return apperrors.NewPersistenceFailedError("ranking_events", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistenceFailedError("ranking_events", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
