package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/helpinghands/console/pkg/database"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server        ServerConfig
	Backend       BackendConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	AWS           AWSConfig
	Cache         CacheConfig
	Notifications NotificationsConfig
	Lists         ListsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all (e.g. http://localhost:3000,http://localhost:3001)
	LoginURL           string // where a session-less profile request is sent after a short delay
	LoginRedirectSec   int
}

// BackendConfig points at the volunteer backend REST API.
type BackendConfig struct {
	BaseURL      string
	TimeoutSec   int
	ServiceToken string // bearer token for worker-initiated calls
	TimeZone     string // zone that event dates and times are expressed in
}

// Location resolves TimeZone, falling back to the local zone.
func (c BackendConfig) Location() *time.Location {
	if c.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/console?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
	// MaxConnLifetimeMin recycles connections; 0 keeps the pgx default.
	MaxConnLifetimeMin int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT validation settings. Tokens are issued by the backend with the same secret.
type JWTConfig struct {
	Secret    string
	Issuer    string
	LeewaySec int
	// WorkerTokenMin is the lifetime of tokens the worker mints to call the backend.
	WorkerTokenMin int
}

// AWSConfig holds AWS credentials and the report archive bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	ReportsBucket        string
	PresignExpireMinutes int
}

// CacheConfig controls the redis-held collection and view caches.
type CacheConfig struct {
	CollectionTTLSec int
	ViewStateTTLSec  int
	SessionTTLSec    int
}

// NotificationsConfig controls the worker's periodic notification run.
type NotificationsConfig struct {
	IntervalMin int // 0 disables the periodic run
}

// ListsConfig holds list view defaults.
type ListsConfig struct {
	DefaultPageSize int
	AuditPageSize   int
	LoadConcurrency int
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Pool returns the pgx pool settings.
func (c DatabaseConfig) Pool() database.PoolConfig {
	return database.PoolConfig{
		DSN:             c.DSN(),
		MaxConns:        int32(c.MaxConns),
		MinConns:        int32(c.MinConns),
		MaxConnLifetime: time.Duration(c.MaxConnLifetimeMin) * time.Minute,
	}
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 60),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001"),
			LoginURL:           getEnv("LOGIN_URL", "/login"),
			LoginRedirectSec:   getEnvInt("LOGIN_REDIRECT_SEC", 3),
		},
		Backend: BackendConfig{
			BaseURL:      getEnv("BACKEND_URL", "http://localhost:5000"),
			TimeoutSec:   getEnvInt("BACKEND_TIMEOUT_SEC", 15),
			ServiceToken: getEnv("BACKEND_SERVICE_TOKEN", ""),
			TimeZone:     getEnv("EVENT_TIMEZONE", ""),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "console"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 5),
			MinConns: getEnvInt("DB_MIN_CONNS", 0),

			MaxConnLifetimeMin: getEnvInt("DB_MAX_CONN_LIFETIME_MIN", 0),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:         getEnv("JWT_SECRET", "change-me-in-production"),
			Issuer:         getEnv("JWT_ISSUER", ""),
			LeewaySec:      getEnvInt("JWT_LEEWAY_SEC", 30),
			WorkerTokenMin: getEnvInt("JWT_WORKER_TOKEN_MIN", 15),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ReportsBucket:        getEnv("AWS_S3_REPORTS_BUCKET", "console-reports"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Cache: CacheConfig{
			CollectionTTLSec: getEnvInt("CACHE_COLLECTION_TTL_SEC", 300),
			ViewStateTTLSec:  getEnvInt("CACHE_VIEW_STATE_TTL_SEC", 86400),
			SessionTTLSec:    getEnvInt("CACHE_SESSION_TTL_SEC", 86400),
		},
		Notifications: NotificationsConfig{
			IntervalMin: getEnvInt("NOTIFICATIONS_INTERVAL_MIN", 15),
		},
		Lists: ListsConfig{
			DefaultPageSize: getEnvInt("LIST_PAGE_SIZE", 10),
			AuditPageSize:   getEnvInt("AUDIT_PAGE_SIZE", 25),
			LoadConcurrency: getEnvInt("LOAD_CONCURRENCY", 5),
		},
	}
	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("BACKEND_URL is required")
	}
	return cfg, nil
}

// Origins splits CORSAllowedOrigins into trimmed entries.
func (c ServerConfig) Origins() []string {
	return splitTrim(c.CORSAllowedOrigins, ",")
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
