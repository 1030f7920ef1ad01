package appraisal

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/kantei/internal/contracts"
	"github.com/wonny/kantei/pkg/redis"
)

// cacheEntry JSON 에서 빠지는 내부 필드까지 보존
type cacheEntry struct {
	Appraisal contracts.Appraisal       `json:"appraisal"`
	Sentinel  bool                      `json:"sentinel"`
	Details   map[string]forecastDetail `json:"details"`
}

type forecastDetail struct {
	Driver      contracts.Driver `json:"driver"`
	IncomePrice float64          `json:"income_price"`
	CostPrice   float64          `json:"cost_price"`
	CapRate     float64          `json:"cap_rate"`
}

func newCacheEntry(a contracts.Appraisal) cacheEntry {
	e := cacheEntry{
		Appraisal: a,
		Sentinel:  a.Valuation.Sentinel,
		Details:   make(map[string]forecastDetail, len(a.Forecasts)),
	}
	for name, fc := range a.Forecasts {
		e.Details[name] = forecastDetail{Driver: fc.Driver, IncomePrice: fc.IncomePrice, CostPrice: fc.CostPrice, CapRate: fc.CapRate}
	}
	return e
}

func (e cacheEntry) restore() contracts.Appraisal {
	a := e.Appraisal
	a.Valuation.Sentinel = e.Sentinel
	forecasts := make(map[string]contracts.ScenarioForecast, len(a.Forecasts))
	for name, fc := range a.Forecasts {
		d := e.Details[name]
		fc.Scenario = name
		fc.Driver, fc.IncomePrice, fc.CostPrice, fc.CapRate = d.Driver, d.IncomePrice, d.CostPrice, d.CapRate
		forecasts[name] = fc
	}
	a.Forecasts = forecasts
	return a
}

// CachedPipeline Redis 캐시를 앞에 둔 파이프라인
// 키 = 레코드 해시 + 설정 해시. 캐시 장애는 로그만 남기고 계산으로 폴백
type CachedPipeline struct {
	*Pipeline
	cache *redis.Cache
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachedPipeline wraps p with cache. ttl <= 0 uses redis.TTLDaily
func NewCachedPipeline(p *Pipeline, cache *redis.Cache, ttl time.Duration, log zerolog.Logger) *CachedPipeline {
	if ttl <= 0 {
		ttl = redis.TTLDaily
	}
	return &CachedPipeline{
		Pipeline: p,
		cache:    cache,
		ttl:      ttl,
		log:      log.With().Str("component", "appraisal.cache").Logger(),
	}
}

// AppraiseCached returns the cached appraisal when present, computing and storing it otherwise
func (c *CachedPipeline) AppraiseCached(ctx context.Context, record map[string]any) (contracts.Appraisal, bool) {
	if !c.cache.Enabled() {
		return c.Appraise(record), false
	}

	recordHash, err := RecordHash(record)
	if err != nil {
		c.log.Warn().Err(err).Msg("record not hashable, skipping cache")
		return c.Appraise(record), false
	}
	key := redis.AppraisalKey(recordHash, c.ConfigHash())

	var entry cacheEntry
	found, err := c.cache.Get(ctx, key, &entry)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache get failed")
	}
	if found {
		return entry.restore(), true
	}

	a := c.Appraise(record)
	if err := c.cache.Set(ctx, key, newCacheEntry(a), c.ttl); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
	return a, false
}
