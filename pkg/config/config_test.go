package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(overrides map[string]interface{}) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestDefaults(t *testing.T) {
	cfg, err := fromViper(newViper(nil))
	require.NoError(t, err)

	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, BackendMemory, cfg.Registration.StoreBackend)
	assert.Equal(t, BackendMemory, cfg.Registration.SeatBackend)
	assert.Zero(t, cfg.Registration.CreditMin)
	assert.Zero(t, cfg.Registration.CreditMax)
	assert.Equal(t, "2025-12-31T23:59:59", cfg.Registration.Deadline)
	assert.Equal(t, 15*time.Minute, cfg.Slips.SignedURLTTL)
	assert.Equal(t, 5, cfg.Persistence.RetryAttempts)
	assert.False(t, cfg.UsesPostgres())
	assert.False(t, cfg.UsesRedis())
}

func TestBackendSelection(t *testing.T) {
	cfg, err := fromViper(newViper(map[string]interface{}{
		"STORE_BACKEND":         "Postgres",
		"SEAT_BACKEND":          "redis",
		"CATALOG_CACHE_TTL":     "not-a-duration",
		"ALLOWED_ORIGINS":       "http://a.test, ,http://b.test",
		"CATALOG_CACHE_ENABLED": true,
	}))
	require.NoError(t, err)

	assert.True(t, cfg.UsesPostgres())
	assert.True(t, cfg.UsesRedis())
	assert.Equal(t, time.Minute, cfg.Catalog.CacheTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestValidationFailures(t *testing.T) {
	cases := map[string]map[string]interface{}{
		"unknown store":                    {"STORE_BACKEND": "sqlite"},
		"unknown seats":                    {"SEAT_BACKEND": "etcd"},
		"min above max":                    {"CREDIT_MIN": 40, "CREDIT_MAX": 30},
		"negative max":                     {"CREDIT_MAX": -1},
		"negative min":                     {"CREDIT_MIN": -2},
		"prod dev secret":                  {"ENV": EnvProduction},
		"redis store with memory seats":    {"STORE_BACKEND": BackendRedis},
		"postgres store with memory seats": {"STORE_BACKEND": BackendPostgres},
		"memory store with redis seats":    {"SEAT_BACKEND": BackendRedis},
	}
	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := fromViper(newViper(overrides))
			assert.Error(t, err)
		})
	}
}

func TestPersistentBackendsAccepted(t *testing.T) {
	for _, pair := range [][2]string{
		{BackendRedis, BackendRedis},
		{BackendPostgres, BackendPostgres},
		{BackendRedis, BackendPostgres},
	} {
		cfg, err := fromViper(newViper(map[string]interface{}{
			"STORE_BACKEND": pair[0],
			"SEAT_BACKEND":  pair[1],
			"CREDIT_MIN":    15,
		}))
		require.NoError(t, err, "store=%s seats=%s", pair[0], pair[1])
		assert.Equal(t, 15, cfg.Registration.CreditMin)
		assert.Zero(t, cfg.Registration.CreditMax)
	}
}
