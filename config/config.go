package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// Server configuration
	Server struct {
		Port   string `env:"SERVER_PORT" envDefault:"5250"`
		DBPath string `env:"DB_PATH" envDefault:"database/listings.db"`
	}

	// Engine configuration for the comparable matching pipeline
	Engine struct {
		// Number of top comparables feeding the weighted estimate
		TopN int `env:"ENGINE_TOP_N" envDefault:"5"`

		// Comparable count at which sample confidence saturates
		TargetSampleSize int `env:"ENGINE_TARGET_SAMPLE" envDefault:"8"`

		// TTL for cached valuation responses (minutes)
		CacheTTLMinutes int `env:"ENGINE_CACHE_TTL" envDefault:"30"`

		// TTL for cached market context (hours); market stats move slowly
		MarketCacheTTLHours int `env:"ENGINE_MARKET_CACHE_TTL" envDefault:"6"`

		// Timeout for repository candidate queries (seconds)
		RepoTimeoutSeconds int `env:"ENGINE_REPO_TIMEOUT" envDefault:"10"`

		// Timeout for the market context path (seconds); on expiry the
		// response degrades to an unknown classification
		MarketTimeoutSeconds int `env:"ENGINE_MARKET_TIMEOUT" envDefault:"5"`

		// Candidate count above which scoring fans out to workers
		ParallelThreshold int `env:"ENGINE_PARALLEL_THRESHOLD" envDefault:"64"`

		// Number of scoring workers when fanning out
		ScoreWorkers int `env:"ENGINE_SCORE_WORKERS" envDefault:"4"`

		// Similarity weight overrides; must sum to 1 with the others
		WeightPrice      float64 `env:"WEIGHT_PRICE" envDefault:"0.30"`
		WeightLivingArea float64 `env:"WEIGHT_LIVING_AREA" envDefault:"0.30"`
		WeightDistance   float64 `env:"WEIGHT_DISTANCE" envDefault:"0.15"`
		WeightBeds       float64 `env:"WEIGHT_BEDS" envDefault:"0.06"`
		WeightBaths      float64 `env:"WEIGHT_BATHS" envDefault:"0.06"`
		WeightYearBuilt  float64 `env:"WEIGHT_YEAR_BUILT" envDefault:"0.08"`
		WeightAmenities  float64 `env:"WEIGHT_AMENITIES" envDefault:"0.05"`
	}

	// Filter defaults applied by the normalizer when a field is absent
	Filters struct {
		RadiusMiles    float64 `env:"FILTER_DEFAULT_RADIUS" envDefault:"5"`
		TolerancePct   float64 `env:"FILTER_DEFAULT_TOLERANCE" envDefault:"15"`
		LookbackMonths int     `env:"FILTER_DEFAULT_LOOKBACK" envDefault:"6"`
		YearWindow     int     `env:"FILTER_DEFAULT_YEAR_WINDOW" envDefault:"10"`
		Limit          int     `env:"FILTER_DEFAULT_LIMIT" envDefault:"25"`
	}

	// BatchProcessing configuration for the listing import pipeline
	BatchProcessing struct {
		// Maximum number of listings to accumulate before processing
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"100"`

		// Maximum time to wait before processing a non-full batch (in seconds)
		MaxBatchWaitTime int `env:"BATCH_WAIT_TIME" envDefault:"30"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
