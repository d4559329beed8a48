package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/stevenovak55/bmnboston-sub004/internal/models"
)

func setupTracker(t *testing.T, clock func() time.Time) *Tracker {
	t.Helper()
	orm, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, orm.AutoMigrate(&models.ValuationHistoryRecord{}))
	return NewTracker(orm, nil, clock)
}

func record(ownerID, listingID string, mid int, computedAt time.Time) models.ValuationHistoryRecord {
	return models.ValuationHistoryRecord{
		OwnerID:          ownerID,
		ListingID:        listingID,
		WeightedMidValue: &mid,
		ComparableCount:  6,
		ConfidenceLevel:  models.ConfidenceMedium,
		ComputedAt:       computedAt,
	}
}

func TestAppendStampsDefaults(t *testing.T) {
	tracker := setupTracker(t, nil)
	ctx := context.Background()

	rec := record("agent-1", "73301000", 500000, time.Time{})
	require.NoError(t, tracker.Append(ctx, rec))

	records, err := tracker.ListForListing(ctx, "agent-1", "73301000", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.SnapshotVersion, records[0].SnapshotVersion)
	assert.False(t, records[0].ComputedAt.IsZero())
}

func TestListForListingNewestFirst(t *testing.T) {
	tracker := setupTracker(t, nil)
	ctx := context.Background()
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, tracker.Append(ctx, record("agent-1", "73301000", 500000, base)))
	require.NoError(t, tracker.Append(ctx, record("agent-1", "73301000", 510000, base.AddDate(0, 1, 0))))
	require.NoError(t, tracker.Append(ctx, record("agent-1", "99999999", 400000, base)))
	require.NoError(t, tracker.Append(ctx, record("agent-2", "73301000", 450000, base)))

	records, err := tracker.ListForListing(ctx, "agent-1", "73301000", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 510000, *records[0].WeightedMidValue)
	assert.Equal(t, 500000, *records[1].WeightedMidValue)
}

func TestComputeTrendUp(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	tracker := setupTracker(t, func() time.Time { return now })

	require.NoError(t, tracker.Append(ctx, record("agent-1", "73301000", 300000, now.AddDate(0, 0, -180))))
	require.NoError(t, tracker.Append(ctx, record("agent-1", "73301000", 315000, now.AddDate(0, 0, -90))))
	require.NoError(t, tracker.Append(ctx, record("agent-1", "73301000", 330000, now)))

	trend, err := tracker.ComputeTrend(ctx, "agent-1", "73301000", 365)
	require.NoError(t, err)
	assert.Equal(t, TrendUp, trend.Direction)
	assert.Equal(t, 10.0, trend.ValueChangePct)
	assert.Equal(t, 300000, trend.FirstValue)
	assert.Equal(t, 330000, trend.LastValue)
	assert.Equal(t, 3, trend.Records)
}

func TestComputeTrendDownAndFlat(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	tracker := setupTracker(t, func() time.Time { return now })

	require.NoError(t, tracker.Append(ctx, record("agent-1", "A1", 400000, now.AddDate(0, 0, -60))))
	require.NoError(t, tracker.Append(ctx, record("agent-1", "A1", 380000, now)))

	trend, err := tracker.ComputeTrend(ctx, "agent-1", "A1", 365)
	require.NoError(t, err)
	assert.Equal(t, TrendDown, trend.Direction)
	assert.Equal(t, -5.0, trend.ValueChangePct)

	require.NoError(t, tracker.Append(ctx, record("agent-1", "B2", 400000, now.AddDate(0, 0, -60))))
	require.NoError(t, tracker.Append(ctx, record("agent-1", "B2", 400000, now)))

	trend, err = tracker.ComputeTrend(ctx, "agent-1", "B2", 365)
	require.NoError(t, err)
	assert.Equal(t, TrendFlat, trend.Direction)
	assert.Equal(t, 0.0, trend.ValueChangePct)

	// Sub-1% moves stay flat.
	require.NoError(t, tracker.Append(ctx, record("agent-1", "C3", 400000, now.AddDate(0, 0, -60))))
	require.NoError(t, tracker.Append(ctx, record("agent-1", "C3", 402000, now)))

	trend, err = tracker.ComputeTrend(ctx, "agent-1", "C3", 365)
	require.NoError(t, err)
	assert.Equal(t, TrendFlat, trend.Direction)
	assert.Equal(t, 0.5, trend.ValueChangePct)
}

func TestComputeTrendWindowAndExclusions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	tracker := setupTracker(t, func() time.Time { return now })

	// Outside the 90 day window.
	require.NoError(t, tracker.Append(ctx, record("agent-1", "73301000", 250000, now.AddDate(0, 0, -200))))

	// ARV runs never mix with as-is values.
	arvRec := record("agent-1", "73301000", 900000, now.AddDate(0, 0, -30))
	arvRec.ARVMode = true
	require.NoError(t, tracker.Append(ctx, arvRec))

	require.NoError(t, tracker.Append(ctx, record("agent-1", "73301000", 300000, now.AddDate(0, 0, -80))))
	require.NoError(t, tracker.Append(ctx, record("agent-1", "73301000", 309000, now)))

	trend, err := tracker.ComputeTrend(ctx, "agent-1", "73301000", 90)
	require.NoError(t, err)
	assert.Equal(t, 300000, trend.FirstValue)
	assert.Equal(t, 309000, trend.LastValue)
	assert.Equal(t, TrendUp, trend.Direction)
	assert.Equal(t, 3.0, trend.ValueChangePct)
	assert.Equal(t, 2, trend.Records)
}

func TestComputeTrendInsufficientHistory(t *testing.T) {
	tracker := setupTracker(t, nil)
	ctx := context.Background()

	_, err := tracker.ComputeTrend(ctx, "agent-1", "73301000", 365)
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	require.NoError(t, tracker.Append(ctx, record("agent-1", "73301000", 300000, time.Now())))
	_, err = tracker.ComputeTrend(ctx, "agent-1", "73301000", 365)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}
