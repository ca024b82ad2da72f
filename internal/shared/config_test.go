package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("CACHE_TTL_SECONDS", "")
	t.Setenv("SHORTLET_SERVICE_FEE_BPS", "")
	t.Setenv("SYNC_SCHEDULE", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("ADMIN_TZ", "")

	c := Load()
	assert.Equal(t, "prod", c.AppEnv)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, 300*time.Second, c.CacheTTL)
	assert.Equal(t, 500, c.ServiceFeeBps)
	assert.Equal(t, "NGN", c.DefaultCurrency)
	assert.Empty(t, c.SyncSchedule)
	assert.Equal(t, 7*24*time.Hour, c.FeatureDuration)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "UTC", c.AdminTimezone)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SYNC_WORKERS", "2")
	t.Setenv("SYNC_SCHEDULE", "@every 5m")
	t.Setenv("REFERRAL_CASHOUT_MIN_MINOR", "100")
	t.Setenv("BAAS_RPS", "nope")

	c := Load()
	assert.Equal(t, "dev", c.AppEnv)
	assert.Equal(t, 3, c.RedisDB)
	assert.Equal(t, 2, c.SyncWorkers)
	assert.Equal(t, "@every 5m", c.SyncSchedule)
	assert.Equal(t, int64(100), c.CashoutMinMinor)
	assert.Equal(t, 5, c.BaaSRPS, "bad ints fall back to the default")
}
