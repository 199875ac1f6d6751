package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config stores runtime configuration loaded from environment variables.
// OpenAIKey may be empty in openai mode; generation requests then fail with
// "OpenAI API key not configured" instead of the server refusing to start.
type Config struct {
	Port               string   `validate:"required,numeric"`
	LogLevel           string   `validate:"oneof=debug info warn error"`
	GenerationMode     string   `validate:"oneof=local openai"`
	OpenAIEndpoint     string   `validate:"required,url"`
	OpenAIModel        string   `validate:"required"`
	MaxUploadBytes     int64    `validate:"gt=0"`
	CORSAllowedOrigins []string `validate:"dive,required"`

	OpenAIKey string
}

// Load reads configuration from the environment, providing sensible defaults.
func Load() (Config, error) {
	// Load .env file if it exists (useful for development)
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds and validates a Config using getenv for lookups.
func FromEnv(getenv func(string) string) (Config, error) {
	env := func(key, fallback string) string {
		if val := strings.TrimSpace(getenv(key)); val != "" {
			return val
		}
		return fallback
	}

	maxUpload, err := strconv.ParseInt(env("MAX_UPLOAD_BYTES", "10485760"), 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
	}

	cfg := Config{
		Port:               env("PORT", "8080"),
		LogLevel:           strings.ToLower(env("LOG_LEVEL", "info")),
		GenerationMode:     strings.ToLower(env("GENERATION_MODE", "local")),
		OpenAIKey:          getenv("OPENAI_API_KEY"),
		OpenAIEndpoint:     env("OPENAI_API_ENDPOINT", "https://api.openai.com/v1"),
		OpenAIModel:        env("OPENAI_MODEL", "gpt-3.5-turbo"),
		MaxUploadBytes:     maxUpload,
		CORSAllowedOrigins: splitList(env("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
