// Package ranking scores candidate listings on six weighted components and
// explains every score.
package ranking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"rental-search/internal/common/logger"
	"rental-search/internal/common/metrics"
	"rental-search/internal/models"
)

const (
	DefaultAnalyticsTopK    = 5
	DefaultAnalyticsTimeout = 2 * time.Second
)

// AnalyticsSink records what was shown to a user. Calls are best-effort.
type AnalyticsSink interface {
	LogRankingEvents(ctx context.Context, results []models.RankedResult, rc models.RankContext) error
}

type Options struct {
	AnalyticsTopK    int
	AnalyticsTimeout time.Duration
}

type Engine struct {
	weights *WeightCache
	sink    AnalyticsSink
	topK    int
	timeout time.Duration
	logger  logger.Logger

	pending sync.WaitGroup
}

// NewEngine accepts a nil sink to disable analytics.
func NewEngine(weights *WeightCache, sink AnalyticsSink, opts Options, log logger.Logger) *Engine {
	if opts.AnalyticsTopK <= 0 {
		opts.AnalyticsTopK = DefaultAnalyticsTopK
	}
	if opts.AnalyticsTimeout <= 0 {
		opts.AnalyticsTimeout = DefaultAnalyticsTimeout
	}
	return &Engine{
		weights: weights,
		sink:    sink,
		topK:    opts.AnalyticsTopK,
		timeout: opts.AnalyticsTimeout,
		logger:  log.WithFields(map[string]interface{}{"component": "ranking-engine"}),
	}
}

// Rank scores every candidate and returns them by final score, descending,
// ties in input order. It never fails; weight store problems fall back to
// default weights. rc may be nil.
func (e *Engine) Rank(ctx context.Context, candidates []models.Candidate, prefs models.UserPreferences, rc *models.RankContext) []models.RankedResult {
	start := time.Now()
	w := e.weights.Get(ctx)

	source := models.SourceStructured
	if rc != nil && rc.Source != "" {
		source = rc.Source
	}

	results := make([]models.RankedResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, scoreCandidate(c, prefs, w, source))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	metrics.RankedResults.Observe(float64(len(results)))
	e.logger.Info("ranking completed", map[string]interface{}{
		"candidates": len(candidates),
		"durationMs": time.Since(start).Milliseconds(),
	})

	e.logAsync(results, rc)
	return results
}

// InvalidateWeights forces the next Rank to reload weights.
func (e *Engine) InvalidateWeights() {
	e.weights.Invalidate()
}

// Weights exposes the engine's cache for inspection.
func (e *Engine) Weights() *WeightCache {
	return e.weights
}

// Wait blocks until in-flight analytics writes finish.
func (e *Engine) Wait() {
	e.pending.Wait()
}

// Flush is Wait bounded by ctx.
func (e *Engine) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func scoreCandidate(c models.Candidate, prefs models.UserPreferences, w models.RankingWeights, source models.Source) models.RankedResult {
	constraint, ce := scoreConstraint(c, prefs)
	preference, pe := scorePreference(c, prefs)
	access, ae := scoreAccessibility(c, prefs)
	trust, te := scoreTrust(c)
	market, me := scoreMarket(c)
	engagement, ee := scoreEngagement(c)

	total := constraint*w.Constraint +
		preference*w.Preference +
		access*w.Accessibility +
		trust*w.Trust +
		market*w.Market +
		engagement*w.Engagement

	final := 0.0
	if sum := w.Sum(); sum > 0 {
		final = total / sum
	}

	return models.RankedResult{
		ApartmentID: c.ID,
		Score:       round3(clamp01(final)),
		Components: models.ComponentScores{
			Constraint:    round3(constraint),
			Preference:    round3(preference),
			Accessibility: round3(access),
			Trust:         round3(trust),
			Market:        round3(market),
			Engagement:    round3(engagement),
		},
		Source: source,
	}.WithExplanation(ce.Merge(pe, ae, te, me, ee))
}

// logAsync hands the top results to the sink without blocking the caller.
func (e *Engine) logAsync(results []models.RankedResult, rc *models.RankContext) {
	if e.sink == nil || len(results) == 0 {
		return
	}

	k := e.topK
	var rankCtx models.RankContext
	if rc != nil {
		rankCtx = *rc
		if rc.AnalyticsTopK > 0 {
			k = rc.AnalyticsTopK
		}
	}
	if k > len(results) {
		k = len(results)
	}
	top := make([]models.RankedResult, k)
	copy(top, results[:k])

	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				metrics.AnalyticsEvents.WithLabelValues("failed").Inc()
				e.logger.Warn("analytics sink panicked", map[string]interface{}{"panic": fmt.Sprint(r)})
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()

		if err := e.sink.LogRankingEvents(ctx, top, rankCtx); err != nil {
			metrics.AnalyticsEvents.WithLabelValues("failed").Inc()
			e.logger.Warn("failed to log ranking events", map[string]interface{}{
				"error":   err,
				"results": len(top),
			})
			return
		}
		metrics.AnalyticsEvents.WithLabelValues("logged").Inc()
	}()
}
