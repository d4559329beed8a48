// Package market computes area-level context statistics independent of any
// single subject property. Context changes slowly, so results are cached
// under a geography key with a longer TTL than per-subject valuations.
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"

	"github.com/stevenovak55/bmnboston-sub004/config"
	"github.com/stevenovak55/bmnboston-sub004/internal/cache"
	"github.com/stevenovak55/bmnboston-sub004/internal/models"
)

// Snapshot is the raw material one geography query returns.
type Snapshot struct {
	ClosedPrices   []float64
	DaysOnMarket   []float64
	ActiveListings int
	ClosedSales    int
	LookbackMonths int
}

// Source is the repository surface the calculator consumes.
type Source interface {
	MarketSnapshot(ctx context.Context, cities []string, state, propertyType string, lookbackMonths int) (Snapshot, error)
}

// Calculator produces MarketContext values for a geography.
type Calculator struct {
	source Source
	cache  *cache.Cache
	ttl    time.Duration
	logger *logrus.Logger
	now    func() time.Time
}

// NewCalculator wires the calculator. A nil clock falls back to time.Now,
// mirroring the nil-logger fallback.
func NewCalculator(source Source, resultCache *cache.Cache, cfg *config.Config, logger *logrus.Logger, clock func() time.Time) *Calculator {
	if logger == nil {
		logger = logrus.New()
	}
	if clock == nil {
		clock = time.Now
	}
	ttl := time.Duration(cfg.Engine.MarketCacheTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Calculator{
		source: source,
		cache:  resultCache,
		ttl:    ttl,
		logger: logger,
		now:    clock,
	}
}

// Compute returns the market context for a geography, serving from cache
// when possible. The geography widens to the configured market area when
// the city belongs to one.
func (c *Calculator) Compute(ctx context.Context, city, state, propertyType string, lookbackMonths int) (models.MarketContext, error) {
	key := cache.MarketFingerprint(city, state, propertyType)
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			if mc, ok := cached.(models.MarketContext); ok {
				return mc, nil
			}
		}
	}

	cities := []string{city}
	if area := config.AreaForCity(city, state); area != nil {
		cities = area.Cities
	}

	snap, err := c.source.MarketSnapshot(ctx, cities, state, propertyType, lookbackMonths)
	if err != nil {
		return Unknown(city, state, propertyType, c.now()), fmt.Errorf("market snapshot failed: %w", err)
	}

	mc := c.classify(city, state, propertyType, snap)
	if c.cache != nil {
		c.cache.Set(key, mc, c.ttl)
	}
	return mc, nil
}

// Unknown is the degraded context used when the market path times out or
// fails; the valuation path is never blocked by it.
func Unknown(city, state, propertyType string, at time.Time) models.MarketContext {
	return models.MarketContext{
		City:           city,
		State:          state,
		PropertyType:   propertyType,
		Classification: models.MarketUnknown,
		ComputedAt:     at,
	}
}

func (c *Calculator) classify(city, state, propertyType string, snap Snapshot) models.MarketContext {
	mc := models.MarketContext{
		City:           city,
		State:          state,
		PropertyType:   propertyType,
		ActiveListings: snap.ActiveListings,
		ClosedSales:    snap.ClosedSales,
		Classification: models.MarketUnknown,
		ComputedAt:     c.now(),
	}

	if len(snap.ClosedPrices) > 0 {
		median, err := stats.Median(snap.ClosedPrices)
		if err == nil {
			m := int(median)
			mc.MedianSalePrice = &m
		}
	}
	if len(snap.DaysOnMarket) > 0 {
		avg, err := stats.Mean(snap.DaysOnMarket)
		if err == nil {
			mc.AvgDaysOnMarket = &avg
		}
	}

	if snap.ClosedSales == 0 || snap.LookbackMonths <= 0 {
		return mc
	}

	// Absorption: months of standing inventory at the recent sales pace.
	salesPerMonth := float64(snap.ClosedSales) / float64(snap.LookbackMonths)
	moi := float64(snap.ActiveListings) / salesPerMonth
	mc.MonthsOfInventory = &moi

	score := 100 - moi*10
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	mc.TemperatureScore = score

	switch {
	case moi < 3:
		mc.Classification = models.MarketHot
	case moi < 6:
		mc.Classification = models.MarketBalanced
	default:
		mc.Classification = models.MarketCold
	}
	return mc
}
