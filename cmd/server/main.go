package main

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stevenovak55/bmnboston-sub004/config"
	"github.com/stevenovak55/bmnboston-sub004/internal/api"
	"github.com/stevenovak55/bmnboston-sub004/internal/cache"
	"github.com/stevenovak55/bmnboston-sub004/internal/criteria"
	"github.com/stevenovak55/bmnboston-sub004/internal/database"
	"github.com/stevenovak55/bmnboston-sub004/internal/geo"
	"github.com/stevenovak55/bmnboston-sub004/internal/history"
	"github.com/stevenovak55/bmnboston-sub004/internal/market"
	"github.com/stevenovak55/bmnboston-sub004/internal/processor"
	"github.com/stevenovak55/bmnboston-sub004/internal/queue"
	"github.com/stevenovak55/bmnboston-sub004/internal/scoring"
	"github.com/stevenovak55/bmnboston-sub004/internal/session"
	"github.com/stevenovak55/bmnboston-sub004/internal/valuation"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	logger.Infof("Using database at: %s", cfg.Server.DBPath)
	db, err := database.NewDatabase(cfg.Server.DBPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	if err := config.LoadMarketAreas(); err != nil {
		logger.WithError(err).Error("Failed to load market areas, proceeding without")
	}
	logger.Infof("Loaded %d market areas", len(config.GetMarketAreas()))

	resultCache := cache.New(time.Minute, logger)
	defer resultCache.Close()
	marketCache := cache.New(time.Minute, logger)
	defer marketCache.Close()

	// Listing import pipeline. The processor purges the result cache after
	// every committed batch.
	listingQueue := queue.NewListingQueue(cfg.BatchProcessing.MaxBatchSize, logger)
	batchProcessor := processor.NewBatchProcessor(db.GetORM(), listingQueue, resultCache, cfg, logger)
	batchProcessor.Start()
	listingQueue.Start()
	defer batchProcessor.Stop()
	defer listingQueue.Close()

	marketCalc := market.NewCalculator(db, marketCache, cfg, logger, nil)
	tracker := history.NewTracker(db.GetORM(), logger, nil)
	engine := valuation.NewEngine(
		cfg,
		criteria.NewNormalizer(cfg, logger),
		geo.NewSelector(db, logger),
		scoring.NewScorer(scoring.WeightsFromConfig(cfg), cfg.Engine.ParallelThreshold, cfg.Engine.ScoreWorkers, logger),
		valuation.NewAggregator(cfg.Engine.TargetSampleSize, logger),
		marketCalc,
		resultCache,
		tracker,
		logger,
		nil,
	)

	handler := api.NewHandler(
		cfg,
		engine,
		marketCalc,
		session.NewStore(db.GetORM(), logger),
		tracker,
		listingQueue,
		resultCache,
		logger,
	)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	api.SetupRoutes(router, handler)

	logger.Infof("Starting server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
