package common

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DBDriver      string
	SqliteFile    string
	DatabaseURL   string
	SessionSecret string
	CacheBackend  string
	CacheDir      string
	CacheTTL      time.Duration
	RedisURL      string
	MediaRoot     string
}

// LoadConfig reads the environment, after loading a .env file when one exists.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Could not read .env file: %v", err)
	}

	get := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	ttl, err := time.ParseDuration(get("CACHE_TTL", "20s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}

	cfg := &Config{
		Port:          get("PORT", "8080"),
		DBDriver:      get("DB_DRIVER", "sqlite"),
		SqliteFile:    get("sqlite_db", "yatube.db"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		CacheBackend:  get("CACHE_BACKEND", "file"),
		CacheDir:      get("CACHE_DIR", "cache"),
		CacheTTL:      ttl,
		RedisURL:      get("REDIS_URL", "localhost:6379"),
		MediaRoot:     get("MEDIA_ROOT", "media"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET environment variable not set")
	}
	switch c.DBDriver {
	case "sqlite":
		if c.SqliteFile == "" {
			return errors.New("sqlite_db not set")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	switch c.CacheBackend {
	case "file", "redis":
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	if c.CacheTTL <= 0 {
		return errors.New("CACHE_TTL must be positive")
	}
	return nil
}
