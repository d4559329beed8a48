// Package history keeps an append-only audit trail of computed valuations
// per listing and computes value trends over it.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/stevenovak55/bmnboston-sub004/internal/models"
	"github.com/stevenovak55/bmnboston-sub004/internal/money"
)

var ErrInsufficientHistory = errors.New("not enough history to compute a trend")

// Trend directions.
const (
	TrendUp   = "up"
	TrendDown = "down"
	TrendFlat = "flat"
)

// Trend compares the oldest and newest valuation of a listing inside a
// lookback window.
type Trend struct {
	ListingID      string    `json:"listing_id"`
	Direction      string    `json:"trend_direction"`
	ValueChangePct float64   `json:"value_change_pct"`
	FirstValue     int       `json:"first_value"`
	LastValue      int       `json:"last_value"`
	FirstAt        time.Time `json:"first_at"`
	LastAt         time.Time `json:"last_at"`
	Records        int       `json:"records"`
}

// Tracker is the valuation history repository. Records are append-only;
// nothing here updates or deletes.
type Tracker struct {
	orm    *gorm.DB
	logger *logrus.Logger
	now    func() time.Time
}

// NewTracker wires the tracker. A nil clock falls back to time.Now.
func NewTracker(orm *gorm.DB, logger *logrus.Logger, clock func() time.Time) *Tracker {
	if logger == nil {
		logger = logrus.New()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Tracker{orm: orm, logger: logger, now: clock}
}

// Append inserts one history row. Zero-valued stamps are filled in so
// callers only describe the valuation itself.
func (t *Tracker) Append(ctx context.Context, rec models.ValuationHistoryRecord) error {
	if rec.SnapshotVersion == 0 {
		rec.SnapshotVersion = models.SnapshotVersion
	}
	if rec.ComputedAt.IsZero() {
		rec.ComputedAt = t.now()
	}

	if err := t.orm.WithContext(ctx).Create(&rec).Error; err != nil {
		t.logger.WithError(err).WithField("listing_id", rec.ListingID).
			Error("Failed to record valuation history")
		return fmt.Errorf("failed to record history: %w", err)
	}
	return nil
}

// ListForListing returns the listing's history for an owner, newest first.
func (t *Tracker) ListForListing(ctx context.Context, ownerID, listingID string, limit int) ([]models.ValuationHistoryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []models.ValuationHistoryRecord
	err := t.orm.WithContext(ctx).
		Where("owner_id = ? AND listing_id = ?", ownerID, listingID).
		Order("computed_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return records, nil
}

// flatDeadbandPct keeps sub-1% moves from reading as a direction.
const flatDeadbandPct = 1.0

// ComputeTrend compares the oldest and newest weighted mid value inside the
// window. Records without a weighted mid value (empty comparable sets) are
// skipped. ARV-mode records are excluded so repair-adjusted values never mix
// with as-is ones.
func (t *Tracker) ComputeTrend(ctx context.Context, ownerID, listingID string, windowDays int) (*Trend, error) {
	if windowDays <= 0 {
		windowDays = 365
	}
	since := t.now().AddDate(0, 0, -windowDays)

	var records []models.ValuationHistoryRecord
	err := t.orm.WithContext(ctx).
		Where("owner_id = ? AND listing_id = ? AND computed_at >= ? AND arv_mode = ? AND weighted_mid_value IS NOT NULL",
			ownerID, listingID, since, false).
		Order("computed_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if len(records) < 2 {
		return nil, ErrInsufficientHistory
	}

	first := records[0]
	last := records[len(records)-1]
	changePct := money.PercentChange(*first.WeightedMidValue, *last.WeightedMidValue)

	direction := TrendFlat
	switch {
	case changePct >= flatDeadbandPct:
		direction = TrendUp
	case changePct <= -flatDeadbandPct:
		direction = TrendDown
	}

	return &Trend{
		ListingID:      listingID,
		Direction:      direction,
		ValueChangePct: changePct,
		FirstValue:     *first.WeightedMidValue,
		LastValue:      *last.WeightedMidValue,
		FirstAt:        first.ComputedAt,
		LastAt:         last.ComputedAt,
		Records:        len(records),
	}, nil
}
