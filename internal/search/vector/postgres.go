package vector

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "rental-search/internal/common/errors"
	"rental-search/internal/common/logger"
	"rental-search/internal/models"
	"rental-search/internal/search/store"
)

// PostgresIndex searches apartment_embeddings with the pgvector cosine
// operator, applying the structured predicate in the same statement.
type PostgresIndex struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresIndex(db *sql.DB, log logger.Logger) *PostgresIndex {
	return &PostgresIndex{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "vector-index", "backend": "postgres"}),
	}
}

func (ix *PostgresIndex) NearestNeighbors(ctx context.Context, vec []float32, f *models.SearchFilters) ([]Neighbor, error) {
	p := store.BuildPredicate(f, VectorToString(vec))

	query := fmt.Sprintf(`SELECT a.id, e.embedding <=> $1::vector AS distance
		FROM apartment_embeddings e
		JOIN apartments a ON a.id = e.apartment_id
		WHERE %s
		ORDER BY distance ASC, a.id ASC
		LIMIT %s OFFSET %s`,
		p.Where(), p.Arg(f.Limit), p.Arg(f.Offset))

	rows, err := ix.db.QueryContext(ctx, query, p.Args()...)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("vector_search", err)
	}
	defer rows.Close()

	var out []Neighbor
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.ID, &n.Distance); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("vector_search", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("vector_search", err)
	}
	return out, nil
}
