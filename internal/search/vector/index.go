// Package vector finds the listings whose stored embeddings are closest to a
// query vector. Two backends exist: pgvector in the listing database and a
// Qdrant collection.
package vector

import (
	"context"
	"strconv"
	"strings"

	"rental-search/internal/models"
)

// Neighbor is one listing and its cosine distance to the query (0 = identical).
type Neighbor struct {
	ID       string
	Distance float64
}

// Index returns the nearest listings matching f, closest first, honouring
// f.Limit and f.Offset.
type Index interface {
	NearestNeighbors(ctx context.Context, vec []float32, f *models.SearchFilters) ([]Neighbor, error)
}

// VectorToString renders vec in pgvector's text format.
func VectorToString(vec []float32) string {
	var b strings.Builder
	b.Grow(len(vec)*8 + 2)
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
