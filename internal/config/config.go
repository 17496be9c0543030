// Package config derives the runtime configuration from the process
// environment, with an optional .env file layered underneath.
package config

import (
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/ljankila/lingoscene/internal/ai"
	"github.com/ljankila/lingoscene/internal/errors"
	"github.com/ljankila/lingoscene/internal/models"
)

// Store backends accepted by LINGOSCENE_STORE_BACKEND.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// ErrUnknownBackend is returned by Load for a backend name outside the
// accepted set.
var ErrUnknownBackend = errors.NewSentinel("unknown store backend")

type Config struct {
	StoreBackend string     `env:"LINGOSCENE_STORE_BACKEND" envDefault:"file"`
	StorePath    string     `env:"LINGOSCENE_STORE_PATH" envDefault:"lingoscene.json"`
	LogLevel     slog.Level `env:"LINGOSCENE_LOG_LEVEL" envDefault:"info"`

	GeminiAPIKey   string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey   string `env:"OPENAI_API_KEY"`
	DeepSeekAPIKey string `env:"DEEPSEEK_API_KEY"`
}

// Load reads .env when present and parses the environment. A missing
// .env file is not an error since production deployments configure the
// environment directly.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, "load .env")
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, errors.Wrap(err, "parse environment")
	}

	switch cfg.StoreBackend {
	case BackendFile, BackendSQLite:
	default:
		return Config{}, errors.Wrap(ErrUnknownBackend, "parse environment",
			slog.String("backend", cfg.StoreBackend))
	}
	return cfg, nil
}

// APIKeys collects the vendor keys keyed by provider name, matching the
// shape the session layer persists.
func (c Config) APIKeys() models.APIKeys {
	keys := models.APIKeys{}
	if c.GeminiAPIKey != "" {
		keys[ai.ProviderGemini] = c.GeminiAPIKey
	}
	if c.OpenAIAPIKey != "" {
		keys[ai.ProviderOpenAI] = c.OpenAIAPIKey
	}
	if c.DeepSeekAPIKey != "" {
		keys[ai.ProviderDeepSeek] = c.DeepSeekAPIKey
	}
	return keys
}
