package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Environment string

	Server struct {
		Host    string
		Port    string
		GinMode string
	}

	Log struct {
		Level string
	}

	Storage struct {
		Type       string
		Key        string
		SQLitePath string
	}

	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
	}

	MinIO struct {
		Endpoint  string
		AccessKey string
		SecretKey string
		Bucket    string
		UseSSL    bool
	}

	Auth struct {
		Provider       string
		GoogleClientID string
		SessionSecret  string
		SessionTTL     time.Duration
	}

	CORS struct {
		AllowOrigins string
		AllowMethods string
		AllowHeaders string
	}
}

// DefaultSessionSecret signs development sessions; production must override it
const DefaultSessionSecret = "campuscast-dev-secret"

// Load loads configuration from environment variables
func Load() *Config {
	_ = godotenv.Load()

	config := &Config{}

	config.Environment = getEnv("ENVIRONMENT", "development")

	config.Server.Host = getEnv("HOST", "127.0.0.1")
	config.Server.Port = getEnv("PORT", "8080")
	config.Server.GinMode = getEnv("GIN_MODE", "debug")

	config.Log.Level = getEnv("LOG_LEVEL", "info")

	config.Storage.Type = getEnv("STORAGE_TYPE", "sqlite")
	config.Storage.Key = getEnv("STORAGE_KEY", "campuscast_shared_events")
	config.Storage.SQLitePath = getEnv("SQLITE_PATH", "./campuscast.db")

	config.DB.Host = getEnv("DB_HOST", "localhost")
	config.DB.Port = getEnv("DB_PORT", "5432")
	config.DB.User = getEnv("DB_USER", "campuscast")
	config.DB.Password = getEnv("DB_PASSWORD", "campuscast_password")
	config.DB.Name = getEnv("DB_NAME", "campuscast_db")
	config.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	config.MinIO.Endpoint = getEnv("MINIO_ENDPOINT", "localhost:9000")
	config.MinIO.AccessKey = getEnv("MINIO_ACCESS_KEY", "minioadmin")
	config.MinIO.SecretKey = getEnv("MINIO_SECRET_KEY", "minioadmin")
	config.MinIO.Bucket = getEnv("MINIO_BUCKET", "campuscast")
	config.MinIO.UseSSL = getEnvAsBool("MINIO_USE_SSL", false)

	config.Auth.Provider = getEnv("AUTH_PROVIDER", "local")
	config.Auth.GoogleClientID = getEnv("GOOGLE_CLIENT_ID", "")
	config.Auth.SessionSecret = getEnv("SESSION_SECRET", DefaultSessionSecret)
	config.Auth.SessionTTL = getEnvAsDuration("SESSION_TTL", 7*24*time.Hour)

	config.CORS.AllowOrigins = getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")
	config.CORS.AllowMethods = getEnv("CORS_ALLOW_METHODS", "GET,POST,PUT,PATCH,DELETE,HEAD,OPTIONS")
	config.CORS.AllowHeaders = getEnv("CORS_ALLOW_HEADERS", "Origin,Content-Length,Content-Type,Authorization")

	return config
}

// GetDatabaseURL returns the database connection URL
func (c *Config) GetDatabaseURL() string {
	return "postgres://" + c.DB.User + ":" + c.DB.Password + "@" + c.DB.Host + ":" + c.DB.Port + "/" + c.DB.Name + "?sslmode=" + c.DB.SSLMode
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as bool or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as time.Duration or returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
