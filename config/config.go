package config

import (
	"os"
	"strconv"
	"time"

	"catalot/lotworker/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Target site
	CategoryURL string
	BaseURL     string
	AssetDomain string

	// Crawl behaviour
	MaxPages     int
	PageDelay    time.Duration
	ItemDelay    time.Duration
	NavTimeout   time.Duration
	WaitTimeout  time.Duration
	FetchRetries int
	ImageLimit   int

	// Browser
	Headless    bool
	ChromeBin   string
	ProxyURL    string
	Screenshots bool

	// Static fetcher politeness
	RespectRobots bool
	RatePerSecond float64
	RateBurst     int

	// Diagnostics
	DebugDir string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration
	MemcacheAddr  string
	BlockCooldown time.Duration

	// Worker configuration
	CrawlInterval time.Duration

	// HTTP API
	HTTPPort string

	// Output
	OutputDir string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "1000"))
	maxPages, _ := strconv.Atoi(getEnv("MAX_PAGES", "0"))
	imageLimit, _ := strconv.Atoi(getEnv("IMAGE_LIMIT", "10"))
	retries, _ := strconv.Atoi(getEnv("FETCH_RETRIES", "3"))
	pageDelay, _ := strconv.Atoi(getEnv("PAGE_DELAY_SECONDS", "3"))
	itemDelay, _ := strconv.Atoi(getEnv("ITEM_DELAY_SECONDS", "3"))
	navTimeout, _ := strconv.Atoi(getEnv("NAV_TIMEOUT_SECONDS", "20"))
	waitTimeout, _ := strconv.Atoi(getEnv("WAIT_TIMEOUT_SECONDS", "10"))
	blockCooldown, _ := strconv.Atoi(getEnv("BLOCK_COOLDOWN_SECONDS", "900"))
	crawlInterval, _ := strconv.Atoi(getEnv("CRAWL_INTERVAL_SECONDS", "3600"))
	ratePerSecond, _ := strconv.ParseFloat(getEnv("RATE_PER_SECOND", "0.5"), 64)
	rateBurst, _ := strconv.Atoi(getEnv("RATE_BURST", "1"))

	return Config{
		CategoryURL:          getEnv("CATEGORY_URL", ""),
		BaseURL:              getEnv("BASE_URL", "https://www.catawiki.com"),
		AssetDomain:          getEnv("ASSET_DOMAIN", "assets.catawiki"),
		MaxPages:             maxPages,
		PageDelay:            time.Duration(pageDelay) * time.Second,
		ItemDelay:            time.Duration(itemDelay) * time.Second,
		NavTimeout:           time.Duration(navTimeout) * time.Second,
		WaitTimeout:          time.Duration(waitTimeout) * time.Second,
		FetchRetries:         retries,
		ImageLimit:           imageLimit,
		Headless:             getEnv("HEADLESS", "true") == "true",
		ChromeBin:            getEnv("CHROME_BIN", ""),
		ProxyURL:             getEnv("PROXY_URL", ""),
		Screenshots:          getEnv("SCREENSHOTS", "false") == "true",
		RespectRobots:        getEnv("RESPECT_ROBOTS", "true") == "true",
		RatePerSecond:        ratePerSecond,
		RateBurst:            rateBurst,
		DebugDir:             getEnv("DEBUG_DIR", "debug"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "lots"),
		RedisStreamCount:     streamCount,
		RedisStreamMaxLength: streamMaxLen,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", "localhost:11211"),
		BlockCooldown:        time.Duration(blockCooldown) * time.Second,
		CrawlInterval:        time.Duration(crawlInterval) * time.Second,
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		OutputDir:            getEnv("OUTPUT_DIR", "output"),
		Environment:          getEnv("LOTWORKER_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for invalid combinations
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.NewConfiguration("BASE_URL must not be empty", nil)
	}
	if c.AssetDomain == "" {
		return errors.NewConfiguration("ASSET_DOMAIN must not be empty", nil)
	}
	if c.FetchRetries < 1 {
		return errors.NewConfiguration("FETCH_RETRIES must be at least 1", nil)
	}
	if c.ImageLimit < 1 {
		return errors.NewConfiguration("IMAGE_LIMIT must be at least 1", nil)
	}
	if c.MaxPages < 0 {
		return errors.NewConfiguration("MAX_PAGES must not be negative", nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
