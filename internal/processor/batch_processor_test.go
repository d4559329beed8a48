package processor

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/stevenovak55/bmnboston-sub004/config"
	"github.com/stevenovak55/bmnboston-sub004/internal/models"
	"github.com/stevenovak55/bmnboston-sub004/internal/queue"
)

type purgeSpy struct {
	mu    sync.Mutex
	calls int
}

func (s *purgeSpy) PurgeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
}

func (s *purgeSpy) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testORM(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()
	orm, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	// A plain :memory: database exists per connection; cap the pool at one
	// connection so the processor goroutines see the migrated schema.
	sqlDB, err := orm.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	if migrate {
		require.NoError(t, orm.AutoMigrate(&models.Property{}))
	}
	return orm
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.BatchProcessing.ProcessorCount = 2
	cfg.BatchProcessing.MaxRetries = 2
	cfg.BatchProcessing.RetryDelay = 0
	return cfg
}

func TestProcessBatchUpsertsAndPurges(t *testing.T) {
	orm := testORM(t, true)
	spy := &purgeSpy{}
	p := NewBatchProcessor(orm, queue.NewListingQueue(10, logrus.New()), spy, testConfig(), logrus.New())

	batch := []*models.Property{
		{ListingID: "73301000", City: "Boston", State: "MA", Price: 500000},
		{ListingID: "73301001", City: "Boston", State: "MA", Price: 650000},
	}
	require.NoError(t, p.processBatch(batch))
	assert.Equal(t, 1, spy.count())

	var count int64
	require.NoError(t, orm.Model(&models.Property{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	// Re-importing the same listing updates it in place.
	require.NoError(t, p.processBatch([]*models.Property{
		{ListingID: "73301000", City: "Boston", State: "MA", Price: 525000},
	}))
	assert.Equal(t, 2, spy.count())

	require.NoError(t, orm.Model(&models.Property{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	var updated models.Property
	require.NoError(t, orm.Where("listing_id = ?", "73301000").First(&updated).Error)
	assert.Equal(t, 525000, updated.Price)
}

func TestProcessBatchRetriesThenFails(t *testing.T) {
	// No migration, so every upsert fails.
	orm := testORM(t, false)
	spy := &purgeSpy{}
	p := NewBatchProcessor(orm, queue.NewListingQueue(10, logrus.New()), spy, testConfig(), logrus.New())

	err := p.processBatch([]*models.Property{{ListingID: "73301000"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to process batch after 2 attempts")
	assert.Equal(t, 0, spy.count())
}

func TestProcessorDrainsQueue(t *testing.T) {
	orm := testORM(t, true)
	q := queue.NewListingQueue(10, logrus.New())
	p := NewBatchProcessor(orm, q, nil, testConfig(), logrus.New())

	p.Start()
	q.Start()
	defer p.Stop()

	require.NoError(t, q.Push([]*models.Property{{ListingID: "73301000", Price: 500000}}))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var count int64
		require.NoError(t, orm.Model(&models.Property{}).Count(&count).Error)
		if count == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("batch was not processed before deadline")
}
