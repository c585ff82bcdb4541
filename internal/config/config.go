package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Lockout  LockoutConfig
	Audit    AuditConfig
	Admin    AdminConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	AutoMigrate       bool
}

// RedisConfig selects the external lockout store. An empty Host keeps
// lockout state in process memory.
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TrustedProxies []string
	LoginRateLimit int // requests per minute per IP on login routes
}

// LockoutConfig holds the failed-login lockout policy
type LockoutConfig struct {
	Threshold     int
	Window        time.Duration
	Duration      time.Duration
	SweepInterval time.Duration
	DigestLength  int
	// Timing padding applied to rejected logins
	TimingDelayBaseMs   int
	TimingDelayRandomMs int
}

type AuditConfig struct {
	WriteTimeout   time.Duration
	RetryQueueSize int
	MaxRetryTime   time.Duration
}

type AdminConfig struct {
	Token string
}

// Load reads configuration from the environment and an optional .env file
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "gatehouse"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Host:      getEnv("REDIS_HOST", ""),
			Port:      getEnvAsInt("REDIS_PORT", 6379),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "gatehouse:lockout:"),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
			LoginRateLimit: getEnvAsInt("LOGIN_RATE_LIMIT", 20),
		},
		Lockout: LockoutConfig{
			Threshold:           getEnvAsInt("LOCKOUT_THRESHOLD", 5),
			Window:              getEnvAsDuration("LOCKOUT_WINDOW", 10*time.Minute),
			Duration:            getEnvAsDuration("LOCKOUT_DURATION", 30*time.Minute),
			SweepInterval:       getEnvAsDuration("LOCKOUT_SWEEP_INTERVAL", 1*time.Minute),
			DigestLength:        getEnvAsInt("SECRET_DIGEST_LENGTH", 32),
			TimingDelayBaseMs:   getEnvAsInt("TIMING_DELAY_BASE_MS", 200),
			TimingDelayRandomMs: getEnvAsInt("TIMING_DELAY_RANDOM_MS", 100),
		},
		Audit: AuditConfig{
			WriteTimeout:   getEnvAsDuration("AUDIT_WRITE_TIMEOUT", 3*time.Second),
			RetryQueueSize: getEnvAsInt("AUDIT_RETRY_QUEUE_SIZE", 1024),
			MaxRetryTime:   getEnvAsDuration("AUDIT_MAX_RETRY_TIME", 2*time.Minute),
		},
		Admin: AdminConfig{
			Token: getEnv("ADMIN_TOKEN", ""),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateAdminToken(cfg.Admin.Token, env); err != nil {
		return nil, err
	}

	if err := cfg.Lockout.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects lockout policies that could never lock or never unlock
func (c *LockoutConfig) Validate() error {
	if c.Threshold <= 0 {
		return fmt.Errorf("LOCKOUT_THRESHOLD must be positive (got %d)", c.Threshold)
	}
	if c.Window <= 0 {
		return fmt.Errorf("LOCKOUT_WINDOW must be positive (got %s)", c.Window)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("LOCKOUT_DURATION must be positive (got %s)", c.Duration)
	}
	if c.DigestLength <= 0 {
		return fmt.Errorf("SECRET_DIGEST_LENGTH must be positive (got %d)", c.DigestLength)
	}
	return nil
}

// validateAdminToken enforces a minimum strength for the operator token
func validateAdminToken(token, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(token) < minLength {
		return fmt.Errorf("ADMIN_TOKEN must be at least %d characters in %s environment (got %d)",
			minLength, env, len(token))
	}

	weakTokens := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	tokenLower := strings.ToLower(token)
	for _, weak := range weakTokens {
		if tokenLower == weak {
			return fmt.Errorf("ADMIN_TOKEN cannot be a common weak value")
		}
	}

	return nil
}

// DSN returns the libpq connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Enabled reports whether an external Redis lockout store is configured
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

// Addr returns the host:port of the Redis server
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return []string{}
	}
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
