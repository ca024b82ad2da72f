package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	BaaSURL       string
	BaaSKey       string
	BaaSJWTSecret string
	BaaSRPS       int

	SyncWorkers  int
	SyncBatch    int
	SyncSchedule string

	CacheTTL          time.Duration
	ServiceFeeBps     int
	CashoutMinMinor   int64
	DefaultCurrency   string
	FeatureDuration   time.Duration
	ReviewQueueLimit  int
	CashoutQueueLimit int
	AdminTimezone     string
}

// Load reads the environment, seeded from .env when one exists.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer; using default")
		}
		return def
	}
	atoi64 := func(k string, def int64) int64 {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer; using default")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/rentbay?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),

		BaaSURL:       env("BAAS_URL", ""),
		BaaSKey:       env("BAAS_SERVICE_KEY", ""),
		BaaSJWTSecret: env("BAAS_JWT_SECRET", ""),
		BaaSRPS:       atoi("BAAS_RPS", 5),

		SyncWorkers:  atoi("SYNC_WORKERS", 8),
		SyncBatch:    atoi("SYNC_BATCH", 500),
		SyncSchedule: env("SYNC_SCHEDULE", ""),

		CacheTTL:          time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		ServiceFeeBps:     atoi("SHORTLET_SERVICE_FEE_BPS", 500),
		CashoutMinMinor:   atoi64("REFERRAL_CASHOUT_MIN_MINOR", 500_000),
		DefaultCurrency:   env("DEFAULT_CURRENCY", "NGN"),
		FeatureDuration:   7 * 24 * time.Hour,
		ReviewQueueLimit:  atoi("ADMIN_QUEUE_LIMIT", 100),
		CashoutQueueLimit: atoi("ADMIN_QUEUE_LIMIT", 100),
		AdminTimezone:     env("ADMIN_TZ", "UTC"),
	}
	if c.BaaSJWTSecret == "" {
		log.Warn().Msg("BAAS_JWT_SECRET is empty; authenticated routes will reject every token")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
