package studymcq

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// SettingsDefaults are the per-user values used until a user overrides them.
type SettingsDefaults struct {
	DailyQuestions    int    `yaml:"daily_questions"`
	MinDailyQuestions int    `yaml:"min_daily_questions"`
	MaxDailyQuestions int    `yaml:"max_daily_questions"`
	QuizTime          string `yaml:"quiz_time"`
	Timezone          string `yaml:"timezone"`
	MinPerChunk       int    `yaml:"min_questions_per_chunk"`
	MaxPerChunk       int    `yaml:"max_questions_per_chunk"`
}

// LLMConfig points the question maker at an OpenAI-compatible endpoint.
type LLMConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Config holds application configuration.
type Config struct {
	BotToken        string           `yaml:"bot_token"`
	DBPath          string           `yaml:"db_path"`
	Port            string           `yaml:"port"`
	SessionSecret   string           `yaml:"session_secret"`
	ChunkSizeWords  int              `yaml:"chunk_size_words"`
	MaxContentChars int              `yaml:"max_content_chars"`
	StateIdleTTL    time.Duration    `yaml:"state_idle_ttl"`
	GenerationLogs  string           `yaml:"generation_log_dir"`
	Weights         Weights          `yaml:"weights"`
	Defaults        SettingsDefaults `yaml:"defaults"`
	LLM             LLMConfig        `yaml:"llm"`
}

// DefaultSettings returns the documented per-user defaults.
func DefaultSettings() SettingsDefaults {
	return SettingsDefaults{
		DailyQuestions:    5,
		MinDailyQuestions: 1,
		MaxDailyQuestions: 20,
		QuizTime:          "09:00",
		Timezone:          "UTC",
		MinPerChunk:       3,
		MaxPerChunk:       5,
	}
}

// DefaultConfig returns a Config populated with defaults only.
func DefaultConfig() Config {
	return Config{
		DBPath:          "mcq_bot.db",
		Port:            "8180",
		ChunkSizeWords:  1000,
		MaxContentChars: 10000,
		StateIdleTTL:    24 * time.Hour,
		GenerationLogs:  "log",
		Weights:         DefaultWeights(),
		Defaults:        DefaultSettings(),
		LLM: LLMConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.3-70b-versatile",
			Temperature: 0.7,
			MaxTokens:   4096,
			Timeout:     2 * time.Minute,
		},
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file and the environment.
// A missing .env file is not an error; a missing YAML file is, when a path is given.
func LoadConfig(path string) (Config, error) {
	if err := godotenv.Load(); err != nil {
		VerboseLog("No .env file loaded: %v", err)
	}

	cfg := DefaultConfig()
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := parseConfigYAML(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseConfigYAML(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.BotToken = getEnv("BOT_TOKEN", cfg.BotToken)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.SessionSecret = getEnv("SESSION_SECRET", cfg.SessionSecret)
	cfg.LLM.APIKey = getEnv("GROQ_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.ChunkSizeWords = getEnvInt("CHUNK_SIZE_WORDS", cfg.ChunkSizeWords)
	cfg.StateIdleTTL = getEnvDuration("STATE_IDLE_TTL", cfg.StateIdleTTL)
	cfg.GenerationLogs = getEnv("GENERATION_LOG_DIR", cfg.GenerationLogs)
}

// Validate rejects configurations the core cannot run with.
func (cfg Config) Validate() error {
	var errs []error
	if cfg.ChunkSizeWords <= 0 {
		errs = append(errs, fmt.Errorf("chunk_size_words must be positive, got %d", cfg.ChunkSizeWords))
	}
	if cfg.MaxContentChars <= 0 {
		errs = append(errs, fmt.Errorf("max_content_chars must be positive, got %d", cfg.MaxContentChars))
	}
	if cfg.StateIdleTTL < 0 {
		errs = append(errs, fmt.Errorf("state_idle_ttl must not be negative"))
	}
	if cfg.Weights.Unattempted <= 0 || cfg.Weights.Offset <= 0 {
		errs = append(errs, fmt.Errorf("selection weights must be positive"))
	}
	d := cfg.Defaults
	if d.MinPerChunk < 1 || d.MaxPerChunk < d.MinPerChunk {
		errs = append(errs, fmt.Errorf("questions per chunk defaults must satisfy 1 <= min <= max, got %d/%d", d.MinPerChunk, d.MaxPerChunk))
	}
	if d.MinDailyQuestions < 1 || d.MaxDailyQuestions < d.MinDailyQuestions {
		errs = append(errs, fmt.Errorf("daily question limits must satisfy 1 <= min <= max"))
	} else if d.DailyQuestions < d.MinDailyQuestions || d.DailyQuestions > d.MaxDailyQuestions {
		errs = append(errs, fmt.Errorf("daily_questions default %d outside [%d, %d]", d.DailyQuestions, d.MinDailyQuestions, d.MaxDailyQuestions))
	}
	if !validQuizTime(d.QuizTime) {
		errs = append(errs, fmt.Errorf("quiz_time default %q is not HH:MM", d.QuizTime))
	}
	if _, err := time.LoadLocation(d.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone default: %w", err))
	}
	return errors.Join(errs...)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("[WARN] Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("[WARN] Error converting environment variable %s to duration: %v", key, err)
		return defaultValue
	}
	return d
}
