package studymcq

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1000, cfg.ChunkSizeWords)
	assert.Equal(t, 10000, cfg.MaxContentChars)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.Model)
	assert.Equal(t, DefaultWeights(), cfg.Weights)
}

func TestParseConfigYAML(t *testing.T) {
	cfg := DefaultConfig()
	err := parseConfigYAML([]byte(`
db_path: /var/lib/studymcq/bot.db
chunk_size_words: 500
state_idle_ttl: 2h
weights:
  unattempted: 0.8
  offset: 0.1
defaults:
  quiz_time: "20:00"
  timezone: Europe/Paris
llm:
  model: gpt-4o-mini
  timeout: 30s
`), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/studymcq/bot.db", cfg.DBPath)
	assert.Equal(t, 500, cfg.ChunkSizeWords)
	assert.Equal(t, 2*time.Hour, cfg.StateIdleTTL)
	assert.Equal(t, Weights{Unattempted: 0.8, Offset: 0.1}, cfg.Weights)
	assert.Equal(t, "20:00", cfg.Defaults.QuizTime)
	assert.Equal(t, 5, cfg.Defaults.DailyQuestions)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 4096, cfg.LLM.MaxTokens)
	assert.NoError(t, cfg.Validate())
}

func TestParseConfigYAMLUnknownField(t *testing.T) {
	cfg := DefaultConfig()
	err := parseConfigYAML([]byte("chunk_words: 500\n"), &cfg)
	assert.Error(t, err)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_path: from-file.db\nport: \"9000\"\n"), 0644))

	t.Setenv("DB_PATH", "from-env.db")
	t.Setenv("PORT", "")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("CHUNK_SIZE_WORDS", "250")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.DBPath)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "groq-key", cfg.LLM.APIKey)
	assert.Equal(t, 250, cfg.ChunkSizeWords)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero chunk size", func(c *Config) { c.ChunkSizeWords = 0 }},
		{"zero content cap", func(c *Config) { c.MaxContentChars = 0 }},
		{"negative ttl", func(c *Config) { c.StateIdleTTL = -time.Second }},
		{"zero weight", func(c *Config) { c.Weights.Offset = 0 }},
		{"max below min per chunk", func(c *Config) { c.Defaults.MinPerChunk, c.Defaults.MaxPerChunk = 5, 3 }},
		{"daily default out of range", func(c *Config) { c.Defaults.DailyQuestions = 50 }},
		{"bad quiz time", func(c *Config) { c.Defaults.QuizTime = "9am" }},
		{"unknown timezone", func(c *Config) { c.Defaults.Timezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
