package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Clark-Hu/reactive-movies/internal/retry"
)

// Service names one of the three processes the binary can run.
type Service string

const (
	MovieInfo  Service = "movieinfo"
	Reviews    Service = "reviews"
	Aggregator Service = "aggregator"
)

var defaultPorts = map[Service]string{
	MovieInfo:  "8080",
	Reviews:    "8081",
	Aggregator: "8082",
}

// Config captures all runtime configuration derived from environment variables.
// Only the fields relevant to Service are validated.
type Config struct {
	Service             Service
	Port                string
	DBURL               string
	MovieInfoURL        string
	ReviewsURL          string
	UpstreamTimeoutSecs int
	RetryMax            int
	RetryBackoff        string
	RetryBaseMillis     int
	RetryCapMillis      int
	ReadTimeoutSecs     int
	WriteTimeoutSecs    int
	IdleTimeoutSecs     int
	DBMaxConns          int
	DBMinConns          int
	DBMaxIdleSecs       int
	DBMaxLifeSecs       int
	DBConnTimeoutSecs   int
	DBStatementCache    int
}

// Load reads configuration for svc from environment variables, applying defaults and validation.
func Load(svc Service) (Config, error) {
	port, ok := defaultPorts[svc]
	if !ok {
		return Config{}, fmt.Errorf("unknown service %q", svc)
	}

	cfg := Config{
		Service:             svc,
		Port:                getEnv("PORT", port),
		DBURL:               os.Getenv("DB_URL"),
		MovieInfoURL:        getEnv("MOVIEINFO_URL", "http://localhost:8080/movieinfos"),
		ReviewsURL:          getEnv("REVIEWS_URL", "http://localhost:8081/reviews"),
		UpstreamTimeoutSecs: getEnvInt("UPSTREAM_TIMEOUT_SECS", 5),
		RetryMax:            getEnvInt("RETRY_MAX", 3),
		RetryBackoff:        getEnv("RETRY_BACKOFF", string(retry.BackoffExp)),
		RetryBaseMillis:     getEnvInt("RETRY_BASE_MS", 500),
		RetryCapMillis:      getEnvInt("RETRY_CAP_MS", 5000),
		ReadTimeoutSecs:     getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:    getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:     getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		DBMaxConns:          getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:          getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:       getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:       getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs:   getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:    getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
	}

	switch svc {
	case MovieInfo, Reviews:
		if err := cfg.validateDB(); err != nil {
			return Config{}, err
		}
	case Aggregator:
		if err := cfg.validateUpstreams(); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func (cfg Config) validateDB() error {
	if cfg.DBURL == "" {
		return fmt.Errorf("DB_URL is required")
	}
	if cfg.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	return nil
}

func (cfg Config) validateUpstreams() error {
	if cfg.MovieInfoURL == "" {
		return fmt.Errorf("MOVIEINFO_URL is required")
	}
	if cfg.ReviewsURL == "" {
		return fmt.Errorf("REVIEWS_URL is required")
	}
	if cfg.UpstreamTimeoutSecs <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT_SECS must be positive")
	}
	if cfg.RetryMax < 0 {
		return fmt.Errorf("RETRY_MAX must be non-negative")
	}
	if _, err := retry.ParseBackoff(cfg.RetryBackoff); err != nil {
		return fmt.Errorf("RETRY_BACKOFF: %w", err)
	}
	if cfg.RetryBaseMillis < 0 {
		return fmt.Errorf("RETRY_BASE_MS must be non-negative")
	}
	if cfg.RetryCapMillis < cfg.RetryBaseMillis {
		return fmt.Errorf("RETRY_CAP_MS cannot be below RETRY_BASE_MS")
	}
	return nil
}

// RetryPolicy builds the upstream retry policy from the RETRY_* variables.
func (cfg Config) RetryPolicy() (retry.Policy, error) {
	backoff, err := retry.ParseBackoff(cfg.RetryBackoff)
	if err != nil {
		return retry.Policy{}, fmt.Errorf("RETRY_BACKOFF: %w", err)
	}
	p := retry.Default()
	p.Backoff = backoff
	p.MaxRetries = cfg.RetryMax
	p.Base = time.Duration(cfg.RetryBaseMillis) * time.Millisecond
	p.Cap = time.Duration(cfg.RetryCapMillis) * time.Millisecond
	return p, nil
}

// MovieLookupBudget bounds one aggregated lookup: the info call and the
// review call, each with every retry spent on a timed-out attempt.
func (cfg Config) MovieLookupBudget() time.Duration {
	p, err := cfg.RetryPolicy()
	if err != nil {
		p = retry.Default()
	}
	return 2 * p.Budget(time.Duration(cfg.UpstreamTimeoutSecs)*time.Second)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}
