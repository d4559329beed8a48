package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/stevenovak55/bmnboston-sub004/config"
	"github.com/stevenovak55/bmnboston-sub004/internal/database"
	"github.com/stevenovak55/bmnboston-sub004/internal/models"
	"github.com/stevenovak55/bmnboston-sub004/internal/queue"
)

// Invalidator drops cached valuation results after inventory changes.
// Any committed listing mutation can move comparables, so the whole cache
// goes, not single entries.
type Invalidator interface {
	PurgeAll()
}

// BatchProcessor drains the listing queue and writes batches to the
// database with transaction and retry handling.
type BatchProcessor struct {
	db          *gorm.DB
	logger      *logrus.Logger
	config      *config.Config
	queue       *queue.ListingQueue
	invalidator Invalidator
	waitGroup   sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewBatchProcessor creates a new batch processor instance. invalidator may
// be nil when no result cache is wired.
func NewBatchProcessor(db *gorm.DB, listingQueue *queue.ListingQueue, invalidator Invalidator, cfg *config.Config, logger *logrus.Logger) *BatchProcessor {
	if logger == nil {
		logger = logrus.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchProcessor{
		db:          db,
		queue:       listingQueue,
		invalidator: invalidator,
		config:      cfg,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins processing batches from the queue.
func (p *BatchProcessor) Start() {
	for i := 0; i < p.config.BatchProcessing.ProcessorCount; i++ {
		p.waitGroup.Add(1)
		go p.processLoop()
	}
}

// Stop gracefully shuts down the processor.
func (p *BatchProcessor) Stop() {
	p.cancel()
	p.waitGroup.Wait()
}

func (p *BatchProcessor) processLoop() {
	defer p.waitGroup.Done()

	p.queue.Subscribe(func(batch []*models.Property) error {
		return p.processBatch(batch)
	})
}

// processBatch upserts one batch inside a transaction, retrying on failure.
// The valuation cache is purged only after a commit: a failed batch changed
// nothing, so cached results stay valid.
func (p *BatchProcessor) processBatch(batch []*models.Property) error {
	var err error
	for attempt := 0; attempt <= p.config.BatchProcessing.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying batch processing, attempt %d of %d", attempt, p.config.BatchProcessing.MaxRetries)
			time.Sleep(time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second)
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			if err := database.UpsertProperties(tx, batch); err != nil {
				return fmt.Errorf("failed to upsert listing batch: %w", err)
			}
			return nil
		})

		if err == nil {
			if p.invalidator != nil {
				p.invalidator.PurgeAll()
			}
			p.logger.Infof("Successfully processed batch of %d listings", len(batch))
			return nil
		}

		p.logger.Errorf("Batch processing failed: %v", err)
	}

	return fmt.Errorf("failed to process batch after %d attempts: %w", p.config.BatchProcessing.MaxRetries, err)
}
