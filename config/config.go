package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cache backends accepted by CACHE_BACKEND.
const (
	CacheRedis    = "redis"
	CachePostgres = "postgres"
	CacheMemory   = "memory"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	HTTPAddr string

	CacheBackend  string
	CacheTTL      time.Duration
	CacheTimeout  time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RequestTimeout time.Duration
	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	MaxResults     int
	ResultsPerPage int
	SearchRadius   float64
	TopResults     int

	CSVOutputPath string
	ChromeBin     string

	LogLevel       string
	LogFormat      string
	LogHistorySize int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":5000")

	v.SetDefault("CACHE_BACKEND", CacheRedis)
	v.SetDefault("CACHE_TTL", 30*time.Minute)
	v.SetDefault("CACHE_TIMEOUT", 2*time.Second)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "valuation")
	v.SetDefault("POSTGRES_PASSWORD", "valuation123")
	v.SetDefault("POSTGRES_DB", "valuation_db")
	v.SetDefault("POSTGRES_SSLMODE", "disable")

	v.SetDefault("REQUEST_TIMEOUT", 60*time.Second)
	v.SetDefault("MAX_CONCURRENCY", 3)
	v.SetDefault("RATE_LIMIT_MS", 500)
	v.SetDefault("MAX_RETRIES", 3)
	v.SetDefault("MAX_RESULTS", 1000)
	v.SetDefault("RESULTS_PER_PAGE", 499)
	v.SetDefault("SEARCH_RADIUS", 0.25)
	v.SetDefault("TOP_RESULTS", 100)

	v.SetDefault("CSV_OUTPUT_PATH", "./output/valuations.csv")
	v.SetDefault("CHROME_BIN", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("LOG_HISTORY_SIZE", 256)
}

// Load reads the .env file, if any, and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// FromViper builds a Config from an already-populated viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		HTTPAddr: v.GetString("HTTP_ADDR"),

		CacheBackend:  strings.ToLower(v.GetString("CACHE_BACKEND")),
		CacheTTL:      v.GetDuration("CACHE_TTL"),
		CacheTimeout:  v.GetDuration("CACHE_TIMEOUT"),
		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		PostgresHost:     v.GetString("POSTGRES_HOST"),
		PostgresPort:     v.GetString("POSTGRES_PORT"),
		PostgresUser:     v.GetString("POSTGRES_USER"),
		PostgresPassword: v.GetString("POSTGRES_PASSWORD"),
		PostgresDB:       v.GetString("POSTGRES_DB"),
		PostgresSSLMode:  v.GetString("POSTGRES_SSLMODE"),

		RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
		MaxConcurrency: v.GetInt("MAX_CONCURRENCY"),
		RateLimitMs:    v.GetInt("RATE_LIMIT_MS"),
		MaxRetries:     v.GetInt("MAX_RETRIES"),
		MaxResults:     v.GetInt("MAX_RESULTS"),
		ResultsPerPage: v.GetInt("RESULTS_PER_PAGE"),
		SearchRadius:   v.GetFloat64("SEARCH_RADIUS"),
		TopResults:     v.GetInt("TOP_RESULTS"),

		CSVOutputPath: v.GetString("CSV_OUTPUT_PATH"),
		ChromeBin:     v.GetString("CHROME_BIN"),

		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFormat:      v.GetString("LOG_FORMAT"),
		LogHistorySize: v.GetInt("LOG_HISTORY_SIZE"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}
