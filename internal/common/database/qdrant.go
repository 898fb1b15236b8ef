// internal/common/database/qdrant.go
package database

import (
	"context"
	"fmt"

	"rental-search/internal/common/config"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantClient wraps the Qdrant gRPC client used as the alternative
// listing-embedding index.
type QdrantClient struct {
	Client *qdrant.Client
}

// NewQdrant creates a new Qdrant client
func NewQdrant(cfg config.QdrantConfig) (*QdrantClient, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantClient{Client: client}, nil
}

// Ping checks the server is reachable.
func (c *QdrantClient) Ping(ctx context.Context) error {
	if _, err := c.Client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}
	return nil
}

// Close closes the Qdrant connection
func (c *QdrantClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}
