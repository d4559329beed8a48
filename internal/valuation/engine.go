package valuation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stevenovak55/bmnboston-sub004/config"
	"github.com/stevenovak55/bmnboston-sub004/internal/cache"
	"github.com/stevenovak55/bmnboston-sub004/internal/criteria"
	"github.com/stevenovak55/bmnboston-sub004/internal/geo"
	"github.com/stevenovak55/bmnboston-sub004/internal/market"
	"github.com/stevenovak55/bmnboston-sub004/internal/models"
	"github.com/stevenovak55/bmnboston-sub004/internal/scoring"
)

// ContextCalculator is the optional market-context capability. Whether it
// is present is resolved once at engine construction, never re-checked per
// call.
type ContextCalculator interface {
	Compute(ctx context.Context, city, state, propertyType string, lookbackMonths int) (models.MarketContext, error)
}

// HistorySink records computed valuations. Failures are soft: the valuation
// succeeded independent of whether it was recorded.
type HistorySink interface {
	Append(ctx context.Context, rec models.ValuationHistoryRecord) error
}

// Engine runs the full comparable matching and valuation pipeline for one
// request. It is constructed once with all dependencies injected and is
// safe for concurrent use; the result cache is its only shared mutable
// state.
type Engine struct {
	cfg        *config.Config
	normalizer *criteria.Normalizer
	selector   *geo.Selector
	scorer     *scoring.Scorer
	aggregator *Aggregator
	market     ContextCalculator
	hasMarket  bool
	cache      *cache.Cache
	history    HistorySink
	logger     *logrus.Logger
	now        func() time.Time

	cacheTTL      time.Duration
	repoTimeout   time.Duration
	marketTimeout time.Duration
}

// Request is one valuation invocation.
type Request struct {
	Subject models.SubjectProperty
	Raw     models.RawFilterParams
	OwnerID string
	ARV     *models.ARVOverrides
	Note    string
}

func NewEngine(
	cfg *config.Config,
	normalizer *criteria.Normalizer,
	selector *geo.Selector,
	scorer *scoring.Scorer,
	aggregator *Aggregator,
	marketCalc ContextCalculator,
	resultCache *cache.Cache,
	historySink HistorySink,
	logger *logrus.Logger,
	clock func() time.Time,
) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		cfg:           cfg,
		normalizer:    normalizer,
		selector:      selector,
		scorer:        scorer,
		aggregator:    aggregator,
		market:        marketCalc,
		hasMarket:     marketCalc != nil,
		cache:         resultCache,
		history:       historySink,
		logger:        logger,
		now:           clock,
		cacheTTL:      time.Duration(cfg.Engine.CacheTTLMinutes) * time.Minute,
		repoTimeout:   time.Duration(cfg.Engine.RepoTimeoutSeconds) * time.Second,
		marketTimeout: time.Duration(cfg.Engine.MarketTimeoutSeconds) * time.Second,
	}
}

// Run executes one valuation. Coordinate validation happens before any
// computation; cache, market and history failures degrade rather than fail.
func (e *Engine) Run(ctx context.Context, req Request) (*models.ValuationResponse, error) {
	if err := validateSubject(req.Subject); err != nil {
		return nil, err
	}

	f := e.normalizer.Normalize(req.Raw)
	fingerprint := cache.Fingerprint(req.Subject.ListingID, f)

	if e.cache != nil {
		if cached, ok := e.cache.Get(fingerprint); ok {
			if resp, ok := cached.(models.ValuationResponse); ok {
				resp.CacheHit = true
				e.logger.WithField("fingerprint", fingerprint[:12]).Debug("Valuation served from cache")
				return &resp, nil
			}
		}
	}

	// The market path has no data dependency on candidate selection; run
	// it concurrently and join after scoring.
	marketCh := e.startMarketContext(ctx, req.Subject, f)

	selectCtx, cancel := context.WithTimeout(ctx, e.repoTimeout)
	defer cancel()
	candidates, err := e.selector.Select(selectCtx, req.Subject, f)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrSelectorTimeout
		}
		return nil, err
	}

	scored := e.scorer.ScoreAll(req.Subject, candidates, f)
	if len(scored) > f.Limit {
		scored = scored[:f.Limit]
	}
	summary := e.aggregator.Summarize(req.Subject, scored, f, req.ARV)

	resp := models.ValuationResponse{
		Comparables:     scored,
		Summary:         summary,
		MarketContext:   <-marketCh,
		FiltersApplied:  f,
		SubjectProperty: req.Subject,
	}

	if e.cache != nil {
		e.cache.Set(fingerprint, resp, e.cacheTTL)
	}
	e.recordHistory(ctx, req, f, summary)

	e.logger.WithFields(logrus.Fields{
		"subject":     req.Subject.ListingID,
		"comparables": summary.ComparablesUsed,
		"confidence":  summary.ConfidenceScore,
	}).Info("Valuation computed")

	return &resp, nil
}

// startMarketContext launches the market path with its own timeout. A slow
// or failing calculator degrades to an unknown classification.
func (e *Engine) startMarketContext(ctx context.Context, subject models.SubjectProperty, f models.FilterCriteria) <-chan models.MarketContext {
	out := make(chan models.MarketContext, 1)
	if !e.hasMarket {
		out <- market.Unknown(subject.City, subject.State, subject.PropertyType, e.now())
		return out
	}

	go func() {
		marketCtx, cancel := context.WithTimeout(ctx, e.marketTimeout)
		defer cancel()

		done := make(chan models.MarketContext, 1)
		go func() {
			mc, err := e.market.Compute(marketCtx, subject.City, subject.State, subject.PropertyType, f.LookbackMonths)
			if err != nil {
				e.logger.WithError(err).Warn("Market context degraded")
			}
			done <- mc
		}()

		select {
		case mc := <-done:
			out <- mc
		case <-marketCtx.Done():
			e.logger.Warn("Market context timed out")
			out <- market.Unknown(subject.City, subject.State, subject.PropertyType, e.now())
		}
	}()
	return out
}

// recordHistory appends the valuation to the per-property time series.
// Persistence failure is logged and absorbed.
func (e *Engine) recordHistory(ctx context.Context, req Request, f models.FilterCriteria, summary models.ValuationSummary) {
	if e.history == nil {
		return
	}

	filterSnapshot, _ := json.Marshal(f)
	rec := models.ValuationHistoryRecord{
		OwnerID:          req.OwnerID,
		ListingID:        req.Subject.ListingID,
		LowValue:         summary.LowValue,
		MidValue:         summary.MidValue,
		HighValue:        summary.HighValue,
		WeightedMidValue: summary.WeightedMidValue,
		ComparableCount:  summary.ComparablesUsed,
		TopComparables:   summary.TopComparables,
		ConfidenceScore:  summary.ConfidenceScore,
		ConfidenceLevel:  summary.ConfidenceLevel,
		AvgPricePerSqft:  summary.AvgPricePerSqft,
		SnapshotVersion:  models.SnapshotVersion,
		FilterSnapshot:   string(filterSnapshot),
		ARVMode:          req.ARV != nil,
		Note:             req.Note,
		ComputedAt:       e.now(),
	}
	if req.ARV != nil {
		overrides, _ := json.Marshal(req.ARV)
		rec.ARVOverrides = string(overrides)
	}

	if err := e.history.Append(ctx, rec); err != nil {
		e.logger.WithError(err).WithField("subject", req.Subject.ListingID).
			Error("Failed to append valuation history")
	}
}

func validateSubject(s models.SubjectProperty) error {
	if s.Latitude == 0 && s.Longitude == 0 {
		return &InvalidInputError{Field: "lat/lng", Reason: "subject coordinates are required"}
	}
	if s.Latitude < -90 || s.Latitude > 90 {
		return &InvalidInputError{Field: "lat", Reason: "latitude must be within [-90, 90]"}
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return &InvalidInputError{Field: "lng", Reason: "longitude must be within [-180, 180]"}
	}
	return nil
}

// Criteria exposes normalization for callers that need the applied filters
// without running a valuation.
func (e *Engine) Criteria(raw models.RawFilterParams) models.FilterCriteria {
	return e.normalizer.Normalize(raw)
}
