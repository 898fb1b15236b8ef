// Package service exposes the search and ranking operations over injected
// retrievers, listing store and ranking engine.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "rental-search/internal/common/errors"
	"rental-search/internal/common/logger"
	"rental-search/internal/common/metrics"
	"rental-search/internal/models"
	"rental-search/internal/search/filters"
	"rental-search/internal/search/fusion"
	"rental-search/internal/search/retriever"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type StructuredRetriever interface {
	Retrieve(ctx context.Context, f *models.SearchFilters) ([]models.RankedResult, error)
}

// ListingStore is the part of the listing store used outside retrieval.
type ListingStore interface {
	Count(ctx context.Context, f *models.SearchFilters) (int, error)
	Candidates(ctx context.Context, ids []string, universityID, mode string) ([]models.Candidate, error)
}

type Ranker interface {
	Rank(ctx context.Context, candidates []models.Candidate, prefs models.UserPreferences, rc *models.RankContext) []models.RankedResult
}

type Config struct {
	RetrieverTimeout time.Duration
	FusionTopN       int
	SourceWeights    map[models.Source]float64
	CountCacheTTL    time.Duration
	SlowSearch       time.Duration
}

type Dependencies struct {
	Store      ListingStore
	Structured StructuredRetriever
	Keyword    retriever.Text
	Semantic   retriever.Text
	Ranker     Ranker
	// Cache is optional; without it counts are never cached.
	Cache redis.Cmdable
}

type Service struct {
	deps   Dependencies
	cfg    Config
	logger logger.Logger
}

func New(deps Dependencies, cfg Config, log logger.Logger) *Service {
	if cfg.RetrieverTimeout <= 0 {
		cfg.RetrieverTimeout = 3 * time.Second
	}
	if cfg.FusionTopN <= 0 {
		cfg.FusionTopN = fusion.DefaultTopN
	}
	return &Service{
		deps:   deps,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "search-service"}),
	}
}

// StructuredSearch runs the attribute/geo retriever alone.
func (s *Service) StructuredSearch(ctx context.Context, f models.SearchFilters) ([]models.RankedResult, error) {
	f = f.Clone()
	if err := filters.Validate(&f); err != nil {
		return nil, err
	}
	defer s.observe(ctx, models.SourceStructured, "", time.Now())

	return s.runBranch(ctx, models.SourceStructured, func(ctx context.Context) ([]models.RankedResult, error) {
		return s.deps.Structured.Retrieve(ctx, &f)
	}), nil
}

// KeywordSearch runs the text retriever with its store fallback.
func (s *Service) KeywordSearch(ctx context.Context, query string, f models.SearchFilters) ([]models.RankedResult, error) {
	f = f.Clone()
	if err := filters.Validate(&f); err != nil {
		return nil, err
	}
	defer s.observe(ctx, models.SourceKeyword, query, time.Now())

	return s.runBranch(ctx, models.SourceKeyword, func(ctx context.Context) ([]models.RankedResult, error) {
		return s.deps.Keyword.Retrieve(ctx, query, &f)
	}), nil
}

// SemanticSearch runs the vector retriever, which hands off to keyword
// search when embeddings are unavailable.
func (s *Service) SemanticSearch(ctx context.Context, query string, f models.SearchFilters) ([]models.RankedResult, error) {
	f = f.Clone()
	if err := filters.Validate(&f); err != nil {
		return nil, err
	}
	defer s.observe(ctx, models.SourceSemantic, query, time.Now())

	return s.runBranch(ctx, models.SourceSemantic, func(ctx context.Context) ([]models.RankedResult, error) {
		return s.deps.Semantic.Retrieve(ctx, query, &f)
	}), nil
}

// HybridSearch fans out to all three retrievers and fuses what comes back.
// An empty query is a plain structured search.
func (s *Service) HybridSearch(ctx context.Context, query string, f models.SearchFilters) ([]models.RankedResult, error) {
	if strings.TrimSpace(query) == "" {
		return s.StructuredSearch(ctx, f)
	}
	f = f.Clone()
	if err := filters.Validate(&f); err != nil {
		return nil, err
	}
	defer s.observe(ctx, models.SourceHybrid, query, time.Now())

	branches := []struct {
		source models.Source
		run    func(ctx context.Context) ([]models.RankedResult, error)
	}{
		{models.SourceStructured, func(ctx context.Context) ([]models.RankedResult, error) {
			sf := f.Clone()
			return s.deps.Structured.Retrieve(ctx, &sf)
		}},
		{models.SourceKeyword, func(ctx context.Context) ([]models.RankedResult, error) {
			kf := f.Clone()
			return s.deps.Keyword.Retrieve(ctx, query, &kf)
		}},
		{models.SourceSemantic, func(ctx context.Context) ([]models.RankedResult, error) {
			vf := f.Clone()
			return s.deps.Semantic.Retrieve(ctx, query, &vf)
		}},
	}

	lists := make([][]models.RankedResult, len(branches))
	weights := make([]float64, len(branches))

	var wg sync.WaitGroup
	for i, b := range branches {
		weights[i] = s.sourceWeight(b.source)
		wg.Add(1)
		go func(i int, source models.Source, run func(context.Context) ([]models.RankedResult, error)) {
			defer wg.Done()
			lists[i] = s.runBranch(ctx, source, run)
		}(i, b.source, b.run)
	}
	wg.Wait()

	return fusion.Merge(lists, weights, s.cfg.FusionTopN), nil
}

// MergeResults fuses caller-supplied lists; weights may be nil.
func (s *Service) MergeResults(lists [][]models.RankedResult, weights []float64) []models.RankedResult {
	return fusion.Merge(lists, weights, s.cfg.FusionTopN)
}

// RankApartments scores candidates against the user's preferences. rc may be nil.
func (s *Service) RankApartments(ctx context.Context, candidates []models.Candidate, prefs models.UserPreferences, rc *models.RankContext) []models.RankedResult {
	return s.deps.Ranker.Rank(ctx, candidates, prefs, rc)
}

// SearchAndRank runs a hybrid search and ranks the fused listings.
func (s *Service) SearchAndRank(ctx context.Context, query string, f models.SearchFilters, prefs models.UserPreferences, rc *models.RankContext) ([]models.RankedResult, error) {
	retrieved, err := s.HybridSearch(ctx, query, f)
	if err != nil {
		return nil, err
	}
	return s.RankRetrieved(ctx, retrieved, query, f, prefs, rc), nil
}

// RankRetrieved loads retrieved listings as ranking candidates and ranks
// them. Each ranked result keeps the source tag and reasons it was retrieved
// with. If candidates cannot be loaded the retrieval results are returned
// unchanged.
func (s *Service) RankRetrieved(ctx context.Context, retrieved []models.RankedResult, query string, f models.SearchFilters, prefs models.UserPreferences, rc *models.RankContext) []models.RankedResult {
	if len(retrieved) == 0 {
		return []models.RankedResult{}
	}

	ids := make([]string, len(retrieved))
	byID := make(map[string]models.RankedResult, len(retrieved))
	for i, r := range retrieved {
		ids[i] = r.ApartmentID
		byID[r.ApartmentID] = r
	}

	universityID := prefs.UniversityID
	if universityID == "" {
		universityID = f.UniversityID
	}

	candidates, err := s.deps.Store.Candidates(ctx, ids, universityID, prefs.CommuteMode)
	if err != nil {
		s.logger.Warn("failed to load ranking candidates, returning retrieval order", map[string]interface{}{
			"error":      err,
			"candidates": len(ids),
		})
		metrics.RetrieverFailures.WithLabelValues("candidates", "error").Inc()
		return retrieved
	}

	if prefs.MaxCommuteMinutes == nil && f.MaxCommuteMinutes != nil {
		limit := *f.MaxCommuteMinutes
		prefs.MaxCommuteMinutes = &limit
	}

	rankCtx := models.RankContext{Query: query, Source: models.SourceHybrid}
	if rc != nil {
		rankCtx = *rc
		if rankCtx.Query == "" {
			rankCtx.Query = query
		}
		if rankCtx.Source == "" {
			rankCtx.Source = models.SourceHybrid
		}
	}

	ranked := s.deps.Ranker.Rank(ctx, candidates, prefs, &rankCtx)
	for i, r := range ranked {
		origin, ok := byID[r.ApartmentID]
		if !ok {
			continue
		}
		r = r.WithExplanation(r.Explanation().Merge(origin.Explanation()))
		r.Source = origin.Source
		ranked[i] = r
	}
	return ranked
}

// runBranch runs one retriever under the per-retriever timeout. Errors,
// timeouts and panics are logged and yield an empty list.
func (s *Service) runBranch(ctx context.Context, source models.Source, run func(context.Context) ([]models.RankedResult, error)) []models.RankedResult {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RetrieverTimeout)
	defer cancel()

	type outcome struct {
		results  []models.RankedResult
		err      error
		panicked bool
	}
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("retriever panicked: %v", r), panicked: true}
			}
		}()
		results, err := run(ctx)
		ch <- outcome{results: results, err: err}
	}()

	select {
	case o := <-ch:
		if o.err != nil {
			reason := "error"
			if o.panicked {
				reason = "panic"
			}
			s.branchFailed(source, reason, o.err)
			return []models.RankedResult{}
		}
		if o.results == nil {
			return []models.RankedResult{}
		}
		return o.results
	case <-ctx.Done():
		s.branchFailed(source, "timeout", ctx.Err())
		return []models.RankedResult{}
	}
}

func (s *Service) branchFailed(source models.Source, reason string, err error) {
	metrics.RetrieverFailures.WithLabelValues(string(source), reason).Inc()

	stdErr := apperrors.NewRetrievalFailedError(string(source), err)
	if reason == "timeout" {
		stdErr = apperrors.NewSearchTimeoutError(string(source))
	}
	s.logger.Warn("retriever contributed no results", map[string]interface{}{
		"source":    source,
		"reason":    reason,
		"errorCode": string(stdErr.Code),
		"details":   stdErr.Details,
	})
}

func (s *Service) sourceWeight(source models.Source) float64 {
	if w, ok := s.cfg.SourceWeights[source]; ok && w > 0 {
		return w
	}
	return 1
}

func (s *Service) observe(ctx context.Context, mode models.Source, query string, start time.Time) {
	elapsed := time.Since(start)
	metrics.SearchRequests.WithLabelValues(string(mode)).Inc()
	metrics.SearchDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())

	fields := map[string]interface{}{
		"requestId":  requestID(ctx),
		"mode":       mode,
		"durationMs": elapsed.Milliseconds(),
	}
	if query != "" {
		fields["queryLength"] = len(query)
	}
	if s.cfg.SlowSearch > 0 && elapsed > s.cfg.SlowSearch {
		s.logger.Warn("slow search", fields)
		return
	}
	s.logger.Debug("search completed", fields)
}

type requestIDKey struct{}

// WithRequestID tags ctx so search logs can be correlated; an empty id
// generates one.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.New().String()
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
