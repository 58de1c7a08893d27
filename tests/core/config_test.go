package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealmind/memtier/pkg/core"
)

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_PROVIDER", "")
	t.Setenv("LLM_API_KEY", "test-llm-key")
	t.Setenv("EMBEDDING_API_KEY", "test-embedding-key")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("EMBEDDING_MODEL", "")
	t.Setenv("EMBEDDING_DIMS", "")
	t.Setenv("CACHE_TTL_MINUTES", "")
	t.Setenv("CACHE_MAX_MESSAGES", "")

	config, err := core.LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", config.Database.Provider)
	assert.Equal(t, "./memtier.db", config.Database.SQLitePath)
	assert.Equal(t, "gpt-4o-mini", config.LLM.Model)
	assert.Equal(t, "text-embedding-3-small", config.Embedder.Model)
	assert.Equal(t, 1536, config.Embedder.Dimensions)
	assert.Equal(t, 30*time.Minute, config.Cache.TTL)
	assert.Equal(t, 15, config.Cache.MaxMessages)
}

func TestLoadConfigFromEnvPostgres(t *testing.T) {
	t.Setenv("DATABASE_PROVIDER", "postgres")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("POSTGRES_USER", "memtier")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DATABASE", "memtier_prod")

	config, err := core.LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "postgres", config.Database.Provider)
	assert.Equal(t, "db.internal", config.Database.Host)
	assert.Equal(t, 5433, config.Database.Port)
	assert.Equal(t, "memtier", config.Database.User)
	assert.Equal(t, "memtier_prod", config.Database.DBName)
	assert.Equal(t, "disable", config.Database.SSLMode)
}

func TestValidate(t *testing.T) {
	valid := &core.Config{
		LLM:      core.LLMConfig{APIKey: "k"},
		Embedder: core.EmbedderConfig{APIKey: "k"},
		Database: core.DatabaseConfig{Provider: "sqlite", SQLitePath: "./x.db"},
	}
	assert.NoError(t, valid.Validate())

	missingKey := *valid
	missingKey.LLM.APIKey = ""
	assert.ErrorIs(t, missingKey.Validate(), core.ErrInvalidConfig)

	badProvider := *valid
	badProvider.Database = core.DatabaseConfig{Provider: "oracle"}
	assert.ErrorIs(t, badProvider.Validate(), core.ErrInvalidConfig)

	postgresNoHost := *valid
	postgresNoHost.Database = core.DatabaseConfig{Provider: "postgres"}
	assert.ErrorIs(t, postgresNoHost.Validate(), core.ErrInvalidConfig)
}
