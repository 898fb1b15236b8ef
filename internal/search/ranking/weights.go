package ranking

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"rental-search/internal/common/logger"
	"rental-search/internal/common/metrics"
	"rental-search/internal/models"

	"golang.org/x/sync/singleflight"
)

// ErrNoWeights means the weight store holds no snapshot yet.
var ErrNoWeights = errors.New("no ranking weights stored")

// weightsLoadTimeout bounds a shared reload independently of the caller that
// happened to start it.
const weightsLoadTimeout = 5 * time.Second

// WeightStore returns the most recent weight snapshot.
type WeightStore interface {
	LatestWeights(ctx context.Context) (*models.RankingWeights, error)
}

type CacheState int32

const (
	StateUnloaded CacheState = iota
	StateCached
	StateInvalidated
)

func (s CacheState) String() string {
	switch s {
	case StateCached:
		return "cached"
	case StateInvalidated:
		return "invalidated"
	default:
		return "unloaded"
	}
}

// WeightCache holds the weights used by one Engine. Reads are lock-free;
// concurrent misses share a single store query. mu orders state changes so a
// reload that started before an Invalidate never marks the cache fresh.
type WeightCache struct {
	store      WeightStore
	current    atomic.Pointer[models.RankingWeights]
	state      atomic.Int32
	generation atomic.Uint64
	mu         sync.Mutex
	group      singleflight.Group
	logger     logger.Logger
}

// NewWeightCache accepts a nil store, in which case defaults are always used.
func NewWeightCache(store WeightStore, log logger.Logger) *WeightCache {
	return &WeightCache{
		store:  store,
		logger: log.WithFields(map[string]interface{}{"component": "ranking-weights"}),
	}
}

// Get returns the cached weights, loading them first when the cache is
// unloaded or invalidated. It never fails: store problems yield defaults.
func (c *WeightCache) Get(ctx context.Context) models.RankingWeights {
	if CacheState(c.state.Load()) == StateCached {
		if w := c.current.Load(); w != nil {
			return *w
		}
	}

	v, _, _ := c.group.Do("weights", func() (interface{}, error) {
		gen := c.generation.Load()

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), weightsLoadTimeout)
		defer cancel()
		w := c.load(loadCtx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation.Load() == gen {
			c.current.Store(&w)
			c.state.Store(int32(StateCached))
		}
		return w, nil
	})
	return v.(models.RankingWeights)
}

// Invalidate makes the next Get re-query the store, including when a reload
// is already in flight.
func (c *WeightCache) Invalidate() {
	c.mu.Lock()
	c.generation.Add(1)
	c.state.Store(int32(StateInvalidated))
	c.mu.Unlock()
	c.group.Forget("weights")
}

func (c *WeightCache) State() CacheState {
	return CacheState(c.state.Load())
}

// Snapshot returns the last loaded weights without touching the store.
func (c *WeightCache) Snapshot() (models.RankingWeights, bool) {
	if w := c.current.Load(); w != nil {
		return *w, true
	}
	return models.RankingWeights{}, false
}

func (c *WeightCache) load(ctx context.Context) models.RankingWeights {
	defaults := models.DefaultRankingWeights()
	defaults.LoadedAt = time.Now().UTC()

	if c.store == nil {
		metrics.RankingWeightsReloads.WithLabelValues("default").Inc()
		return defaults
	}

	w, err := c.store.LatestWeights(ctx)
	switch {
	case errors.Is(err, ErrNoWeights) || (err == nil && w == nil):
		c.logger.Info("no stored ranking weights, using defaults", nil)
		metrics.RankingWeightsReloads.WithLabelValues("empty").Inc()
		return defaults
	case err != nil:
		c.logger.Warn("failed to load ranking weights, using defaults", map[string]interface{}{"error": err})
		metrics.RankingWeightsReloads.WithLabelValues("error").Inc()
		return defaults
	case !w.Valid():
		c.logger.Warn("stored ranking weights are invalid, using defaults", map[string]interface{}{"weights": *w})
		metrics.RankingWeightsReloads.WithLabelValues("invalid").Inc()
		return defaults
	}

	loaded := *w
	if loaded.LoadedAt.IsZero() {
		loaded.LoadedAt = time.Now().UTC()
	}
	metrics.RankingWeightsReloads.WithLabelValues("loaded").Inc()
	return loaded
}
