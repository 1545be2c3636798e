package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr  string
	AppEnv    string
	LogLevel  string
	LogFormat string

	DBDriver       string
	PostgresDSN    string
	SQLitePath     string
	DBMaxOpenConns int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitFailClosed         bool
	RateLimitMaxKeys            int
	RateLimitSalt               string
	RateLimitAnalyzeRequests    int
	RateLimitAnalyzeWindowSecs  int
	RateLimitDeletionRequests   int
	RateLimitDeletionWindowSecs int
	RateLimitStatusRequests     int
	RateLimitStatusWindowSecs   int
	RateLimitGraceSeconds       int

	IPHashSalt       string
	TrustEdgeHeaders bool

	GeoIPLocationDB     string
	GeoIPASNDB          string
	GeoIPRefreshSeconds int

	AnalyzeTimeoutMS int
	MaxPayloadBytes  int

	DeletionBatchSize       int
	DeletionIntervalSeconds int
	StatsIntervalSeconds    int

	DetachedWorkers   int
	DetachedQueueSize int

	ShutdownTimeoutSeconds int
	MetricsEnabled         bool
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:                    addr,
		AppEnv:                      envDefault("APP_ENV", "development"),
		LogLevel:                    envDefault("LOG_LEVEL", "info"),
		LogFormat:                   envDefault("LOG_FORMAT", "json"),
		DBDriver:                    envDefault("DB_DRIVER", "postgres"),
		PostgresDSN:                 os.Getenv("POSTGRES_DSN"),
		SQLitePath:                  envDefault("SQLITE_PATH", "identiscope.db"),
		DBMaxOpenConns:              envIntDefault("DB_MAX_OPEN_CONNS", 20),
		RedisAddr:                   os.Getenv("REDIS_ADDR"),
		RedisPassword:               os.Getenv("REDIS_PASSWORD"),
		RedisDB:                     envIntDefault("REDIS_DB", 0),
		RateLimitFailClosed:         envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:            envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RateLimitSalt:               os.Getenv("RATE_LIMIT_SALT"),
		RateLimitAnalyzeRequests:    envIntDefault("RATE_LIMIT_ANALYZE_REQUESTS", 10),
		RateLimitAnalyzeWindowSecs:  envIntDefault("RATE_LIMIT_ANALYZE_WINDOW_SECONDS", 60),
		RateLimitDeletionRequests:   envIntDefault("RATE_LIMIT_DELETION_REQUESTS", 5),
		RateLimitDeletionWindowSecs: envIntDefault("RATE_LIMIT_DELETION_WINDOW_SECONDS", 3600),
		RateLimitStatusRequests:     envIntDefault("RATE_LIMIT_STATUS_REQUESTS", 60),
		RateLimitStatusWindowSecs:   envIntDefault("RATE_LIMIT_STATUS_WINDOW_SECONDS", 60),
		RateLimitGraceSeconds:       envIntDefault("RATE_LIMIT_GRACE_SECONDS", 10),
		IPHashSalt:                  os.Getenv("IP_HASH_SALT"),
		TrustEdgeHeaders:            envBoolDefault("TRUST_EDGE_HEADERS", false),
		GeoIPLocationDB:             os.Getenv("GEOIP_LOCATION_DB"),
		GeoIPASNDB:                  os.Getenv("GEOIP_ASN_DB"),
		GeoIPRefreshSeconds:         envIntDefault("GEOIP_REFRESH_SECONDS", 86400),
		AnalyzeTimeoutMS:            envIntDefault("ANALYZE_TIMEOUT_MS", 5000),
		MaxPayloadBytes:             envIntDefault("MAX_PAYLOAD_BYTES", 50*1024),
		DeletionBatchSize:           envIntDefault("DELETION_BATCH_SIZE", 50),
		DeletionIntervalSeconds:     envIntDefault("DELETION_INTERVAL_SECONDS", 60),
		StatsIntervalSeconds:        envIntDefault("STATS_INTERVAL_SECONDS", 300),
		DetachedWorkers:             envIntDefault("DETACHED_WORKERS", 4),
		DetachedQueueSize:           envIntDefault("DETACHED_QUEUE_SIZE", 1024),
		ShutdownTimeoutSeconds:      envIntDefault("SHUTDOWN_TIMEOUT_SECONDS", 10),
		MetricsEnabled:              envBoolDefault("METRICS_ENABLED", true),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func (c Config) AnalyzeTimeout() time.Duration {
	if c.AnalyzeTimeoutMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.AnalyzeTimeoutMS) * time.Millisecond
}

func (c Config) ShutdownTimeout() time.Duration {
	return seconds(c.ShutdownTimeoutSeconds, 10*time.Second)
}

func (c Config) DeletionInterval() time.Duration {
	return seconds(c.DeletionIntervalSeconds, time.Minute)
}

func (c Config) StatsInterval() time.Duration {
	return seconds(c.StatsIntervalSeconds, 5*time.Minute)
}

func (c Config) GeoIPRefresh() time.Duration {
	return seconds(c.GeoIPRefreshSeconds, 0)
}

func seconds(n int, def time.Duration) time.Duration {
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}
