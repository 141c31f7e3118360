package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var requiredKeys = []string{
	"PG_HOST", "PG_USER", "PG_PASS", "PG_DB_NAME",
	"AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT", "ASSEMBLYAI_API_KEY",
}

func setRequired(t *testing.T) {
	t.Helper()
	for _, key := range requiredKeys {
		t.Setenv(key, "test-"+key)
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, 5432, cfg.PGPort)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, 3000, cfg.PromptBudget)
	assert.Equal(t, 3*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.PollDeadline)
	assert.Equal(t, 24*time.Hour, cfg.UploadTTL)
	assert.Equal(t, "https://api.assemblyai.com/v2", cfg.AssemblyAIBaseURL)
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("PG_PASS", "")
	t.Setenv("ASSEMBLYAI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	// missing keys come back sorted so the startup log is stable
	assert.Equal(t, []string{"ASSEMBLYAI_API_KEY", "PG_PASS"}, cfgErr.Missing)
	assert.Contains(t, err.Error(), "ASSEMBLYAI_API_KEY, PG_PASS")
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("CHUNK_SIZE", "128")
	t.Setenv("TRANSCRIBE_POLL_INTERVAL", "500ms")
	t.Setenv("UPLOAD_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ServerAddr)
	assert.Equal(t, 128, cfg.ChunkSize)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, time.Hour, cfg.UploadTTL)
}

func TestLoadBadNumericFallsBack(t *testing.T) {
	setRequired(t)
	t.Setenv("PG_PORT", "not-a-port")
	t.Setenv("TRANSCRIBE_POLL_DEADLINE", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.PGPort)
	assert.Equal(t, 5*time.Minute, cfg.PollDeadline)
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{PGHost: "db", PGPort: 5433, PGUser: "brain", PGPass: "secret", PGDBName: "vectors"}
	assert.Equal(t, "host=db port=5433 user=brain password=secret dbname=vectors sslmode=disable", cfg.PostgresDSN())
}
