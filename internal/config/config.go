package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "dev-secret"

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Storage      StorageConfig
	Cache        CacheConfig
	Bootstrap    BootstrapConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	PublicURL             string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret               string
	AccessTokenTTLMinutes   int
	PasswordResetTTLMinutes int
	BcryptCost              int
}

// NotificationConfig configures outbound email. An empty SMTPHost selects the log notifier.
type NotificationConfig struct {
	EmailFrom    string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
}

// StorageConfig configures the attachment file store.
type StorageConfig struct {
	MediaDir       string
	PublicBaseURL  string
	MaxFiles       int
	MaxFileSizeMiB int
}

// CacheConfig configures the public tracking lookup cache.
type CacheConfig struct {
	TrackingTTLSeconds int
}

// BootstrapConfig carries the initial general manager account used by provision-admin.
type BootstrapConfig struct {
	AdminUsername     string
	AdminEmail        string
	AdminName         string
	AdminPassword     string
	AdminPasswordFile string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "complaint-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			PublicURL:             getEnv("APP_PUBLIC_URL", "http://localhost:8080"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:               getEnv("AUTH_JWT_SECRET", devJWTSecret),
			AccessTokenTTLMinutes:   getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			PasswordResetTTLMinutes: getEnvAsInt("AUTH_PASSWORD_RESET_TTL_MINUTES", 30),
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			EmailFrom:    getEnv("NOTIFY_EMAIL_FROM", "noreply@campus.example"),
			SMTPHost:     os.Getenv("SMTP_HOST"),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername: os.Getenv("SMTP_USERNAME"),
			SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		},
		Storage: StorageConfig{
			MediaDir:       getEnv("STORAGE_MEDIA_DIR", "media"),
			PublicBaseURL:  getEnv("STORAGE_PUBLIC_BASE_URL", "/media"),
			MaxFiles:       getEnvAsInt("STORAGE_MAX_FILES", 5),
			MaxFileSizeMiB: getEnvAsInt("STORAGE_MAX_FILE_SIZE_MIB", 10),
		},
		Cache: CacheConfig{
			TrackingTTLSeconds: getEnvAsInt("CACHE_TRACKING_TTL_SECONDS", 60),
		},
		Bootstrap: BootstrapConfig{
			AdminUsername:     os.Getenv("BOOTSTRAP_ADMIN_USERNAME"),
			AdminEmail:        os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
			AdminName:         getEnv("BOOTSTRAP_ADMIN_NAME", "General Manager"),
			AdminPassword:     os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
			AdminPasswordFile: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD_FILE"),
		},
	}

	return cfg, nil
}

// Validate rejects configurations that are unsafe to serve with.
func (c *Config) Validate() error {
	if c.App.IsProduction() {
		if c.Auth.JWTSecret == devJWTSecret {
			return errors.New("config: AUTH_JWT_SECRET must be set in production")
		}
		if c.Postgres.DSN == "" {
			return errors.New("config: POSTGRES_DSN is required in production")
		}
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("config: AUTH_BCRYPT_COST %d out of range", c.Auth.BcryptCost)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsProduction reports whether the service runs in production mode.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// MaxFileSize returns the per-file upload limit in bytes.
func (s StorageConfig) MaxFileSize() int64 {
	return int64(s.MaxFileSizeMiB) << 20
}

// TrackingTTL returns the tracking cache TTL.
func (c CacheConfig) TrackingTTL() time.Duration {
	return time.Duration(c.TrackingTTLSeconds) * time.Second
}

// ResolveAdminPassword prefers the mounted secret file over the plain variable.
func (b BootstrapConfig) ResolveAdminPassword() (string, error) {
	if b.AdminPasswordFile != "" {
		raw, err := os.ReadFile(b.AdminPasswordFile)
		if err != nil {
			return "", fmt.Errorf("read admin password file: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	return b.AdminPassword, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
