// cmd/search-manager/wire.go
package main

import (
	"time"

	"rental-search/internal/common/config"
	"rental-search/internal/common/database"
	"rental-search/internal/common/logger"
	"rental-search/internal/models"
	"rental-search/internal/search/embedding"
	"rental-search/internal/search/keyword"
	"rental-search/internal/search/ranking"
	"rental-search/internal/search/retriever"
	"rental-search/internal/search/service"
	"rental-search/internal/search/store"
	"rental-search/internal/search/vector"
)

type clients struct {
	postgres *database.PostgresClient
	elastic  *database.ElasticsearchClient
	redis    *database.RedisClient
	qdrant   *database.QdrantClient
}

type app struct {
	service *service.Service
	engine  *ranking.Engine
}

func buildApp(cfg *config.Config, c clients, log logger.Logger) *app {
	listings := store.New(c.postgres.DB, log)

	var index keyword.Index
	if c.elastic != nil {
		index = keyword.NewElasticIndex(c.elastic.Client, cfg.Search.IndexName, log)
	}
	keywordRetriever := retriever.NewKeyword(index, listings, log)

	// A nil interface, not a typed nil, tells the semantic retriever that
	// embeddings are off.
	var embedder embedding.Provider
	if cfg.Embedding.Enabled {
		embedder = newEmbedder(cfg, c, log)
	}

	var vectors vector.Index
	switch cfg.Search.VectorBackend {
	case "qdrant":
		vectors = vector.NewQdrantIndex(c.qdrant.Client, cfg.Search.VectorCollection, log)
	default:
		vectors = vector.NewPostgresIndex(c.postgres.DB, log)
	}

	engine := ranking.NewEngine(
		ranking.NewWeightCache(ranking.NewPostgresWeightStore(c.postgres.DB), log),
		ranking.NewPostgresAnalyticsSink(c.postgres.DB),
		ranking.Options{
			AnalyticsTopK:    cfg.Ranking.AnalyticsTopK,
			AnalyticsTimeout: config.GetDuration(cfg.Ranking.AnalyticsTimeout),
		},
		log,
	)

	svc := service.New(service.Dependencies{
		Store:      listings,
		Structured: retriever.NewStructured(listings, log),
		Keyword:    keywordRetriever,
		Semantic:   retriever.NewSemantic(embedder, vectors, keywordRetriever, log),
		Ranker:     engine,
		Cache:      c.redis.Client,
	}, service.Config{
		RetrieverTimeout: config.GetDuration(cfg.Search.RetrieverTimeout),
		FusionTopN:       cfg.Search.FusionTopN,
		SourceWeights: map[models.Source]float64{
			models.SourceStructured: cfg.Search.SourceWeight(string(models.SourceStructured)),
			models.SourceKeyword:    cfg.Search.SourceWeight(string(models.SourceKeyword)),
			models.SourceSemantic:   cfg.Search.SourceWeight(string(models.SourceSemantic)),
		},
		CountCacheTTL: time.Duration(cfg.Search.CountCacheTTL) * time.Second,
		SlowSearch:    config.GetDuration(cfg.Search.SlowSearchMs),
	}, log)

	return &app{service: svc, engine: engine}
}

func newEmbedder(cfg *config.Config, c clients, log logger.Logger) embedding.Provider {
	provider := embedding.NewHTTPProvider(embedding.HTTPConfig{
		BaseURL:   cfg.Embedding.BaseURL,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
		Timeout:   config.GetDuration(cfg.Embedding.Timeout),
	}, log)

	if cfg.Embedding.CacheTTL <= 0 || c.redis == nil {
		return provider
	}
	return embedding.NewCachedProvider(provider, c.redis.Client, cfg.Embedding.Model,
		time.Duration(cfg.Embedding.CacheTTL)*time.Second, log)
}
