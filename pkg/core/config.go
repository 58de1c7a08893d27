package core

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config contains the complete configuration for a memtier client.
//
// Example:
//
//	config := &core.Config{
//	    LLM: core.LLMConfig{
//	        APIKey: "sk-...",
//	        Model:  "gpt-4o-mini",
//	    },
//	    Embedder: core.EmbedderConfig{
//	        APIKey:     "sk-...",
//	        Model:      "text-embedding-3-small",
//	        Dimensions: 1536,
//	    },
//	    Database: core.DatabaseConfig{
//	        Provider:   "sqlite",
//	        SQLitePath: "./memtier.db",
//	    },
//	}
type Config struct {
	// LLM contains LLM provider configuration.
	LLM LLMConfig `json:"llm"`

	// Embedder contains embedding provider configuration.
	Embedder EmbedderConfig `json:"embedder"`

	// Database contains storage backend configuration.
	Database DatabaseConfig `json:"database"`

	// Cache contains session cache configuration.
	Cache CacheConfig `json:"cache"`
}

// LLMConfig contains configuration for the LLM provider.
type LLMConfig struct {
	// APIKey is the API key for the LLM provider.
	APIKey string `json:"api_key"`

	// Model is the model name to use (e.g., "gpt-4o-mini").
	Model string `json:"model"`

	// BaseURL is the base URL for the API (optional, uses provider default if empty).
	BaseURL string `json:"base_url,omitempty"`
}

// EmbedderConfig contains configuration for the embedding provider.
type EmbedderConfig struct {
	// APIKey is the API key for the embedding provider.
	APIKey string `json:"api_key"`

	// Model is the embedding model name (e.g., "text-embedding-3-small").
	Model string `json:"model"`

	// BaseURL is the base URL for the API (optional, uses provider default if empty).
	BaseURL string `json:"base_url,omitempty"`

	// Dimensions is the dimension of the embedding vectors (e.g., 1536).
	Dimensions int `json:"dimensions,omitempty"`
}

// DatabaseConfig contains configuration for the storage backend.
//
// Supported providers: sqlite, postgres
type DatabaseConfig struct {
	// Provider is the storage backend name (sqlite, postgres).
	Provider string `json:"provider"`

	// SQLitePath is the database file path for the sqlite provider.
	SQLitePath string `json:"sqlite_path,omitempty"`

	// Postgres connection settings for the postgres provider.
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	DBName   string `json:"db_name,omitempty"`
	SSLMode  string `json:"ssl_mode,omitempty"`
}

// CacheConfig contains configuration for the session context cache.
type CacheConfig struct {
	// TTL is the session entry lease duration.
	TTL time.Duration `json:"ttl"`

	// MaxMessages caps the ranked recent-message buffer per session.
	MaxMessages int `json:"max_messages"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for a .env or .env.example file (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - DATABASE_PROVIDER (sqlite, postgres)
//   - SQLITE_PATH
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD,
//     POSTGRES_DATABASE, POSTGRES_SSLMODE
//   - LLM_API_KEY, LLM_MODEL, LLM_BASE_URL
//   - EMBEDDING_API_KEY, EMBEDDING_MODEL, EMBEDDING_BASE_URL, EMBEDDING_DIMS
//   - CACHE_TTL_MINUTES, CACHE_MAX_MESSAGES
func LoadConfigFromEnv() (*Config, error) {
	if envPath, found := FindEnvFile(); found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	provider := getEnvOrDefault("DATABASE_PROVIDER", "sqlite")

	database := DatabaseConfig{Provider: provider}
	switch provider {
	case "postgres":
		port, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))
		database.Host = getEnvOrDefault("POSTGRES_HOST", "localhost")
		database.Port = port
		database.User = getEnvOrDefault("POSTGRES_USER", "postgres")
		database.Password = os.Getenv("POSTGRES_PASSWORD")
		database.DBName = getEnvOrDefault("POSTGRES_DATABASE", "memtier")
		database.SSLMode = getEnvOrDefault("POSTGRES_SSLMODE", "disable")
	default:
		database.SQLitePath = getEnvOrDefault("SQLITE_PATH", "./memtier.db")
	}

	dims, _ := strconv.Atoi(getEnvOrDefault("EMBEDDING_DIMS", "1536"))
	ttlMinutes, _ := strconv.Atoi(getEnvOrDefault("CACHE_TTL_MINUTES", "30"))
	maxMessages, _ := strconv.Atoi(getEnvOrDefault("CACHE_MAX_MESSAGES", "15"))

	config := &Config{
		LLM: LLMConfig{
			APIKey:  os.Getenv("LLM_API_KEY"),
			Model:   getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
			BaseURL: os.Getenv("LLM_BASE_URL"),
		},
		Embedder: EmbedderConfig{
			APIKey:     os.Getenv("EMBEDDING_API_KEY"),
			Model:      getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
			BaseURL:    os.Getenv("EMBEDDING_BASE_URL"),
			Dimensions: dims,
		},
		Database: database,
		Cache: CacheConfig{
			TTL:         time.Duration(ttlMinutes) * time.Minute,
			MaxMessages: maxMessages,
		},
	}

	return config, nil
}

// Validate validates the configuration.
//
// Returns an error if a required field is missing, nil otherwise.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	if c.Embedder.APIKey == "" {
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	switch c.Database.Provider {
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return NewMemoryError("Validate", ErrInvalidConfig)
		}
	case "postgres":
		if c.Database.Host == "" || c.Database.DBName == "" {
			return NewMemoryError("Validate", ErrInvalidConfig)
		}
	default:
		return NewMemoryError("Validate", ErrInvalidConfig)
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files.
//
// The search checks the current directory, then up to 5 directory levels
// up, returning the first file found.
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
