package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
	}

	Server struct {
		Port        string
		GinMode     string
		Environment string
		LogLevel    string
	}

	// StorageType selects the repository backend ("postgres" or "memory")
	StorageType string

	Auth struct {
		JWTSecret string
		Issuer    string
		TokenTTL  time.Duration
	}

	RateLimit struct {
		RequestsPerMinute int
		Burst             int
	}

	Cache struct {
		RedisURL  string
		NearbyTTL time.Duration
	}

	SMTP struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
	}

	ObjectStore struct {
		Endpoint  string
		AccessKey string
		SecretKey string
		Bucket    string
		UseSSL    bool
	}

	Tracing struct {
		OTLPEndpoint string
	}

	CORS struct {
		AllowOrigins []string
	}
}

// Load loads configuration from environment variables
func Load() *Config {
	_ = godotenv.Load()

	config := &Config{}

	config.DB.Host = getEnv("DB_HOST", "localhost")
	config.DB.Port = getEnv("DB_PORT", "5432")
	config.DB.User = getEnv("DB_USER", "bienestar")
	config.DB.Password = getEnv("DB_PASSWORD", "bienestar_password")
	config.DB.Name = getEnv("DB_NAME", "bienestar_db")
	config.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	config.Server.Port = getEnv("PORT", "8080")
	config.Server.GinMode = getEnv("GIN_MODE", "debug")
	config.Server.Environment = getEnv("APP_ENV", "development")
	config.Server.LogLevel = getEnv("LOG_LEVEL", "info")

	config.StorageType = getEnv("STORAGE_TYPE", "postgres")

	config.Auth.JWTSecret = getEnv("JWT_SECRET", "change-me-in-production")
	config.Auth.Issuer = getEnv("JWT_ISSUER", "bienestar-api")
	config.Auth.TokenTTL = getEnvAsDuration("JWT_TTL", 24*time.Hour)

	config.RateLimit.RequestsPerMinute = getEnvAsInt("AUTH_RATE_LIMIT_PER_MINUTE", 20)
	config.RateLimit.Burst = getEnvAsInt("AUTH_RATE_LIMIT_BURST", 5)

	config.Cache.RedisURL = getEnv("REDIS_URL", "")
	config.Cache.NearbyTTL = getEnvAsDuration("NEARBY_CACHE_TTL", 5*time.Minute)

	config.SMTP.Host = getEnv("SMTP_HOST", "")
	config.SMTP.Port = getEnvAsInt("SMTP_PORT", 587)
	config.SMTP.Username = getEnv("SMTP_USERNAME", "")
	config.SMTP.Password = getEnv("SMTP_PASSWORD", "")
	config.SMTP.From = getEnv("SMTP_FROM", "Bienestar <noreply@bienestar.local>")

	config.ObjectStore.Endpoint = getEnv("MINIO_ENDPOINT", "")
	config.ObjectStore.AccessKey = getEnv("MINIO_ACCESS_KEY", "")
	config.ObjectStore.SecretKey = getEnv("MINIO_SECRET_KEY", "")
	config.ObjectStore.Bucket = getEnv("MINIO_BUCKET", "venue-photos")
	config.ObjectStore.UseSSL = getEnvAsBool("MINIO_USE_SSL", false)

	config.Tracing.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	config.CORS.AllowOrigins = splitList(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:3001"))

	return config
}

// GetDatabaseURL returns the database connection URL
func (c *Config) GetDatabaseURL() string {
	return "postgres://" + c.DB.User + ":" + c.DB.Password + "@" + c.DB.Host + ":" + c.DB.Port + "/" + c.DB.Name + "?sslmode=" + c.DB.SSLMode
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("15m", "24h")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
