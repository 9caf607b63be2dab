package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Backend names accepted by STORE_BACKEND and SEAT_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Registration RegistrationConfig
	Catalog      CatalogConfig
	Slips        SlipsConfig
	Persistence  PersistenceConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RegistrationConfig selects ledger backends and the credit rules.
type RegistrationConfig struct {
	StoreBackend string
	SeatBackend  string
	// CreditMin and CreditMax override the catalog's rules when positive.
	CreditMin int
	CreditMax int
	// Deadline is the raw default submission deadline, parsed by the ledger.
	Deadline string
}

// CatalogConfig controls caching of filtered catalog pages.
type CatalogConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// SlipsConfig configures registration slip export.
type SlipsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
}

// PersistenceConfig tunes the background retry queue for failed writes.
type PersistenceConfig struct {
	RetryWorkers  int
	RetryAttempts int
	RetryDelay    time.Duration
	QueueSize     int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Registration = RegistrationConfig{
		StoreBackend: strings.ToLower(v.GetString("STORE_BACKEND")),
		SeatBackend:  strings.ToLower(v.GetString("SEAT_BACKEND")),
		CreditMin:    v.GetInt("CREDIT_MIN"),
		CreditMax:    v.GetInt("CREDIT_MAX"),
		Deadline:     v.GetString("REGISTRATION_DEADLINE"),
	}

	cfg.Catalog = CatalogConfig{
		CacheEnabled: v.GetBool("CATALOG_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("CATALOG_CACHE_TTL"), time.Minute),
	}

	cfg.Slips = SlipsConfig{
		StorageDir:      v.GetString("SLIPS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("SLIPS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("SLIPS_SIGNED_URL_TTL"), 15*time.Minute),
		CleanupInterval: parseDuration(v.GetString("SLIPS_CLEANUP_INTERVAL"), time.Hour),
	}

	cfg.Persistence = PersistenceConfig{
		RetryWorkers:  v.GetInt("PERSIST_RETRY_WORKERS"),
		RetryAttempts: v.GetInt("PERSIST_RETRY_ATTEMPTS"),
		RetryDelay:    parseDuration(v.GetString("PERSIST_RETRY_DELAY"), 2*time.Second),
		QueueSize:     v.GetInt("PERSIST_RETRY_QUEUE_SIZE"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	for name, backend := range map[string]string{
		"STORE_BACKEND": c.Registration.StoreBackend,
		"SEAT_BACKEND":  c.Registration.SeatBackend,
	} {
		switch backend {
		case BackendMemory, BackendRedis, BackendPostgres:
		default:
			return fmt.Errorf("config: %s must be one of memory, redis, postgres (got %q)", name, backend)
		}
	}
	// Seat counts and selections must survive a restart together, otherwise
	// restored selections stop holding their seats.
	if (c.Registration.StoreBackend == BackendMemory) != (c.Registration.SeatBackend == BackendMemory) {
		return fmt.Errorf("config: STORE_BACKEND %q and SEAT_BACKEND %q must both be memory or both be persistent",
			c.Registration.StoreBackend, c.Registration.SeatBackend)
	}
	lo, hi := c.Registration.CreditMin, c.Registration.CreditMax
	if lo < 0 || hi < 0 || (lo > 0 && hi > 0 && lo > hi) {
		return fmt.Errorf("config: invalid credit bounds %d..%d", lo, hi)
	}
	if c.Env == EnvProduction && c.JWT.Secret == "dev_secret" {
		return errors.New("config: JWT_SECRET must be set in production")
	}
	return nil
}

// UsesPostgres reports whether any backend needs a database connection.
func (c *Config) UsesPostgres() bool {
	return c.Registration.StoreBackend == BackendPostgres || c.Registration.SeatBackend == BackendPostgres
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Catalog.CacheEnabled || c.Registration.StoreBackend == BackendRedis || c.Registration.SeatBackend == BackendRedis
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "aims_registration")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("SEAT_BACKEND", BackendMemory)
	v.SetDefault("CREDIT_MIN", 0)
	v.SetDefault("CREDIT_MAX", 0)
	v.SetDefault("REGISTRATION_DEADLINE", "2025-12-31T23:59:59")

	v.SetDefault("CATALOG_CACHE_ENABLED", false)
	v.SetDefault("CATALOG_CACHE_TTL", "1m")

	v.SetDefault("SLIPS_STORAGE_DIR", "./slips")
	v.SetDefault("SLIPS_SIGNED_URL_SECRET", "dev_slips_secret")
	v.SetDefault("SLIPS_SIGNED_URL_TTL", "15m")
	v.SetDefault("SLIPS_CLEANUP_INTERVAL", "1h")

	v.SetDefault("PERSIST_RETRY_WORKERS", 1)
	v.SetDefault("PERSIST_RETRY_ATTEMPTS", 5)
	v.SetDefault("PERSIST_RETRY_DELAY", "2s")
	v.SetDefault("PERSIST_RETRY_QUEUE_SIZE", 256)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
