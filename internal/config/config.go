package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	ProviderGoogleAI = "googleai"
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"

	MethodAll      = "all"
	MethodSelected = "selected"

	FormatText = "txt"
	FormatHTML = "html"
)

type Config struct {
	LLM        LLMConfig        `yaml:"llm" toml:"llm"`
	Generation GenerationConfig `yaml:"generation" toml:"generation"`
	Limits     LimitsConfig     `yaml:"limits" toml:"limits"`
	Processing ProcessingConfig `yaml:"processing" toml:"processing"`
	Responses  ResponsesConfig  `yaml:"responses" toml:"responses"`
	Log        LogConfig        `yaml:"log" toml:"log"`
}

type LLMConfig struct {
	Provider string `yaml:"provider" toml:"provider" validate:"oneof=googleai openai ollama"`
	Model    string `yaml:"model" toml:"model" validate:"required"`
	BaseURL  string `yaml:"base_url" toml:"base_url" validate:"omitempty,url"`
	APIKey   string `yaml:"api_key" toml:"api_key"`
}

// GenerationConfig holds the per-question selections the user can change during a session.
type GenerationConfig struct {
	Temperature float64 `yaml:"temperature" toml:"temperature" validate:"gte=0,lte=1"`
	TopP        float64 `yaml:"top_p" toml:"top_p" validate:"gte=0,lte=1"`
	MaxTokens   int     `yaml:"max_tokens" toml:"max_tokens" validate:"gte=1"`
	Language    string  `yaml:"language" toml:"language" validate:"oneof=English Spanish French German Chinese Japanese"`
	Mode        string  `yaml:"mode" toml:"mode" validate:"oneof='Q&A' Summary 'Key Points' Comparison"`
}

type LimitsConfig struct {
	CharCap        int   `yaml:"char_cap" toml:"char_cap" validate:"gte=1"`
	ContextWindow  int   `yaml:"context_window" toml:"context_window" validate:"gte=1,lte=100"`
	MaxUploadBytes int64 `yaml:"max_upload_bytes" toml:"max_upload_bytes" validate:"gte=1"`
}

type ProcessingConfig struct {
	Method string `yaml:"method" toml:"method" validate:"omitempty,oneof=all selected"`
}

type ResponsesConfig struct {
	Save   bool   `yaml:"save" toml:"save"`
	Dir    string `yaml:"dir" toml:"dir"`
	Format string `yaml:"format" toml:"format" validate:"omitempty,oneof=txt html"`
}

type LogConfig struct {
	Level      string `yaml:"level" toml:"level" validate:"omitempty,oneof=debug info warn error"`
	File       string `yaml:"file" toml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days" validate:"gte=0"`
}

// Default mirrors the selections the chat UI starts with.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: ProviderGoogleAI,
			Model:    "gemini-2.0-flash",
		},
		Generation: GenerationConfig{
			Temperature: 0.7,
			TopP:        0.9,
			MaxTokens:   8192,
			Language:    "English",
			Mode:        "Q&A",
		},
		Limits: LimitsConfig{
			CharCap:        7500,
			ContextWindow:  10,
			MaxUploadBytes: 1 << 30,
		},
		Processing: ProcessingConfig{
			Method: MethodAll,
		},
		Responses: ResponsesConfig{
			Dir:    ".",
			Format: FormatText,
		},
		Log: LogConfig{
			Level:      "debug",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// LoadConfig reads defaults, then the config file at path (YAML or TOML by extension,
// skipped when it does not exist), then .env and environment overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, using system environment")
	}
	overrideByEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Debug().Str("path", path).Msg("config file not found, using defaults")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("decode toml config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode yaml config: %w", err)
		}
	}
	return nil
}

var validate = validator.New()

// Validate checks every field constraint and wraps failures in ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func overrideByEnv(cfg *Config) {
	cfg.LLM.Provider = getEnv("DOCCHAT_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.Model = getEnv("DOCCHAT_MODEL", cfg.LLM.Model)
	cfg.LLM.BaseURL = getEnv("DOCCHAT_BASE_URL", cfg.LLM.BaseURL)

	// provider specific keys first, the generic one wins
	switch cfg.LLM.Provider {
	case ProviderGoogleAI:
		cfg.LLM.APIKey = getEnv("GOOGLE_API_KEY", cfg.LLM.APIKey)
		cfg.LLM.APIKey = getEnv("GEMINI_API_KEY", cfg.LLM.APIKey)
	case ProviderOpenAI:
		cfg.LLM.APIKey = getEnv("OPENAI_API_KEY", cfg.LLM.APIKey)
	}
	cfg.LLM.APIKey = getEnv("DOCCHAT_API_KEY", cfg.LLM.APIKey)

	cfg.Generation.Temperature = getEnvAsFloat("DOCCHAT_TEMPERATURE", cfg.Generation.Temperature)
	cfg.Generation.TopP = getEnvAsFloat("DOCCHAT_TOP_P", cfg.Generation.TopP)
	cfg.Generation.MaxTokens = getEnvAsInt("DOCCHAT_MAX_TOKENS", cfg.Generation.MaxTokens)
	cfg.Generation.Language = getEnv("DOCCHAT_LANGUAGE", cfg.Generation.Language)

	cfg.Limits.ContextWindow = getEnvAsInt("DOCCHAT_CONTEXT_WINDOW", cfg.Limits.ContextWindow)
	cfg.Limits.CharCap = getEnvAsInt("DOCCHAT_CHAR_CAP", cfg.Limits.CharCap)

	cfg.Responses.Dir = getEnv("DOCCHAT_RESPONSES_DIR", cfg.Responses.Dir)
	cfg.Log.Level = getEnv("DOCCHAT_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("DOCCHAT_LOG_FILE", cfg.Log.File)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("ignoring non-integer env value")
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("ignoring non-numeric env value")
		return fallback
	}
	return parsed
}
