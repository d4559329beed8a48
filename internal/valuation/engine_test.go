package valuation

import (
	"context"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/stevenovak55/bmnboston-sub004/config"
	"github.com/stevenovak55/bmnboston-sub004/internal/cache"
	"github.com/stevenovak55/bmnboston-sub004/internal/criteria"
	"github.com/stevenovak55/bmnboston-sub004/internal/geo"
	"github.com/stevenovak55/bmnboston-sub004/internal/models"
	"github.com/stevenovak55/bmnboston-sub004/internal/scoring"
)

type MockCandidateSource struct {
	mock.Mock
}

func (m *MockCandidateSource) PropertiesInBound(ctx context.Context, bound orb.Bound, subject models.SubjectProperty, f models.FilterCriteria) ([]models.Property, error) {
	args := m.Called(ctx, bound, subject, f)
	return args.Get(0).([]models.Property), args.Error(1)
}

type MockMarket struct {
	mock.Mock
}

func (m *MockMarket) Compute(ctx context.Context, city, state, propertyType string, lookbackMonths int) (models.MarketContext, error) {
	args := m.Called(ctx, city, state, propertyType, lookbackMonths)
	return args.Get(0).(models.MarketContext), args.Error(1)
}

type MockHistory struct {
	mock.Mock
}

func (m *MockHistory) Append(ctx context.Context, rec models.ValuationHistoryRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func engineConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Engine.TopN = 5
	cfg.Engine.TargetSampleSize = 8
	cfg.Engine.CacheTTLMinutes = 30
	cfg.Engine.RepoTimeoutSeconds = 5
	cfg.Engine.MarketTimeoutSeconds = 1
	cfg.Filters.RadiusMiles = 5
	cfg.Filters.TolerancePct = 15
	cfg.Filters.LookbackMonths = 6
	cfg.Filters.YearWindow = 10
	cfg.Filters.Limit = 25
	return cfg
}

func newTestEngine(t *testing.T, source geo.CandidateSource, marketCalc ContextCalculator, resultCache *cache.Cache, sink HistorySink) *Engine {
	t.Helper()
	cfg := engineConfig()
	logger := logrus.New()
	return NewEngine(
		cfg,
		criteria.NewNormalizer(cfg, logger),
		geo.NewSelector(source, logger),
		scoring.NewScorer(scoring.DefaultWeights(), 64, 4, logger),
		NewAggregator(cfg.Engine.TargetSampleSize, logger),
		marketCalc,
		resultCache,
		sink,
		logger,
		func() time.Time { return time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC) },
	)
}

func subjectFixture() models.SubjectProperty {
	return models.SubjectProperty{
		ListingID:    "MLS100",
		Latitude:     42.3601,
		Longitude:    -71.0589,
		Price:        500000,
		Beds:         3,
		Baths:        2,
		LivingArea:   2000,
		PropertyType: "Condominium",
		YearBuilt:    2000,
		City:         "Boston",
		State:        "MA",
	}
}

func inventoryFixture() []models.Property {
	lat, lon := 42.3650, -71.0600
	sqft := 1950
	year := 1998
	return []models.Property{
		{
			ListingID:  "CMP1",
			Price:      480000,
			Beds:       3,
			Baths:      2,
			LivingArea: &sqft,
			YearBuilt:  &year,
			Status:     models.StatusClosed,
			Latitude:   &lat,
			Longitude:  &lon,
		},
	}
}

func TestRun_RejectsBadCoordinates(t *testing.T) {
	e := newTestEngine(t, &MockCandidateSource{}, nil, nil, nil)

	tests := []struct {
		name    string
		subject models.SubjectProperty
	}{
		{"missing", models.SubjectProperty{ListingID: "X"}},
		{"lat out of range", models.SubjectProperty{Latitude: 97, Longitude: -71}},
		{"lng out of range", models.SubjectProperty{Latitude: 42, Longitude: -200}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Run(context.Background(), Request{Subject: tt.subject})
			assert.Error(t, err)
			assert.True(t, IsInvalidInput(err))
		})
	}
}

func TestRun_FullPipeline(t *testing.T) {
	source := &MockCandidateSource{}
	source.On("PropertiesInBound", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(inventoryFixture(), nil)

	marketCalc := &MockMarket{}
	marketCalc.On("Compute", mock.Anything, "Boston", "MA", "Condominium", 6).
		Return(models.MarketContext{City: "Boston", Classification: models.MarketHot}, nil)

	sink := &MockHistory{}
	sink.On("Append", mock.Anything, mock.Anything).Return(nil)

	e := newTestEngine(t, source, marketCalc, nil, sink)
	resp, err := e.Run(context.Background(), Request{
		Subject: subjectFixture(),
		Raw:     models.RawFilterParams{"statuses": "Closed"},
		OwnerID: "agent-7",
	})

	assert.NoError(t, err)
	assert.Len(t, resp.Comparables, 1)
	assert.Equal(t, 1, resp.Summary.ComparablesUsed)
	assert.NotNil(t, resp.Summary.WeightedMidValue)
	assert.Equal(t, models.MarketHot, resp.MarketContext.Classification)
	assert.Equal(t, []string{models.StatusClosed}, resp.FiltersApplied.Statuses)
	assert.False(t, resp.CacheHit)
	sink.AssertCalled(t, "Append", mock.Anything, mock.MatchedBy(func(rec models.ValuationHistoryRecord) bool {
		return rec.ListingID == "MLS100" && rec.OwnerID == "agent-7" && rec.ComparableCount == 1
	}))
}

func TestRun_SecondCallServedFromCache(t *testing.T) {
	source := &MockCandidateSource{}
	source.On("PropertiesInBound", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(inventoryFixture(), nil).Once()

	c := cache.New(time.Minute, logrus.New())
	defer c.Close()

	e := newTestEngine(t, source, nil, c, nil)

	// Two payloads that differ only in key arrival order.
	first, err := e.Run(context.Background(), Request{
		Subject: subjectFixture(),
		Raw:     models.RawFilterParams{"radius_miles": "5", "statuses": "Closed"},
	})
	assert.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := e.Run(context.Background(), Request{
		Subject: subjectFixture(),
		Raw:     models.RawFilterParams{"statuses": "Closed", "radius_miles": "5"},
	})
	assert.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Summary, second.Summary)
	source.AssertNumberOfCalls(t, "PropertiesInBound", 1)
}

func TestRun_EmptyCandidateSetDoesNotRaise(t *testing.T) {
	source := &MockCandidateSource{}
	source.On("PropertiesInBound", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]models.Property{}, nil)

	e := newTestEngine(t, source, nil, nil, nil)
	resp, err := e.Run(context.Background(), Request{Subject: subjectFixture()})

	assert.NoError(t, err)
	assert.Empty(t, resp.Comparables)
	assert.Equal(t, 0, resp.Summary.ComparablesUsed)
	assert.Equal(t, 0.0, resp.Summary.ConfidenceScore)
	assert.Nil(t, resp.Summary.WeightedMidValue)
}

func TestRun_SelectorTimeoutIsFatal(t *testing.T) {
	source := &MockCandidateSource{}
	source.On("PropertiesInBound", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]models.Property{}, context.DeadlineExceeded)

	e := newTestEngine(t, source, nil, nil, nil)
	_, err := e.Run(context.Background(), Request{Subject: subjectFixture()})

	assert.ErrorIs(t, err, ErrSelectorTimeout)
}

func TestRun_SlowMarketContextDegrades(t *testing.T) {
	source := &MockCandidateSource{}
	source.On("PropertiesInBound", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(inventoryFixture(), nil)

	marketCalc := &MockMarket{}
	marketCalc.On("Compute", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { time.Sleep(3 * time.Second) }).
		Return(models.MarketContext{Classification: models.MarketHot}, nil)

	e := newTestEngine(t, source, marketCalc, nil, nil)
	resp, err := e.Run(context.Background(), Request{Subject: subjectFixture()})

	assert.NoError(t, err)
	assert.Equal(t, models.MarketUnknown, resp.MarketContext.Classification)
	// The primary result is untouched by the degraded context path.
	assert.Equal(t, 1, resp.Summary.ComparablesUsed)
}

func TestRun_HistoryFailureIsSoft(t *testing.T) {
	source := &MockCandidateSource{}
	source.On("PropertiesInBound", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(inventoryFixture(), nil)

	sink := &MockHistory{}
	sink.On("Append", mock.Anything, mock.Anything).Return(assert.AnError)

	e := newTestEngine(t, source, nil, nil, sink)
	resp, err := e.Run(context.Background(), Request{Subject: subjectFixture()})

	assert.NoError(t, err)
	assert.Equal(t, 1, resp.Summary.ComparablesUsed)
}
