package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type Config struct {
	// HTTP
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":3000"`
	GinMode  string `env:"GIN_MODE" envDefault:"release"`

	// Record store
	DataDir           string `env:"DATA_DIR" envDefault:"data"`
	RecordsStrictLoad bool   `env:"RECORDS_STRICT_LOAD" envDefault:"false"`

	// Interaction log, empty disables it
	InteractionLogPath string `env:"INTERACTION_LOG_PATH" envDefault:"logs/interactions.jsonl"`

	// Raw upstream proxy. When ChatAPIURL is set the LLM client is not used.
	ChatAPIURL     string        `env:"CHAT_API_URL"`
	ChatAPIKey     string        `env:"CHAT_API_KEY"`
	ChatAPITimeout time.Duration `env:"CHAT_API_TIMEOUT" envDefault:"60s"`

	// LLM settings
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string      `env:"OPENAI_BASE_URL"`
	OpenAIModel      string      `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Prompts
	SystemPromptPath string `env:"SYSTEM_PROMPT_PATH" envDefault:"prompts/system_prompt.txt"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogDir   string `env:"LOG_DIR" envDefault:"logs"`

	// Daily report, evaluated in UTC
	ReportCron string `env:"REPORT_CRON" envDefault:"0 21 * * *"`
}

// Load parses the environment without exiting on failure.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	switch cfg.LLMProvider {
	case ProviderOpenAI, ProviderYandex:
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		return nil, fmt.Errorf("unknown GIN_MODE %q", cfg.GinMode)
	}
	if cfg.ChatAPITimeout <= 0 {
		return nil, fmt.Errorf("CHAT_API_TIMEOUT must be positive, got %s", cfg.ChatAPITimeout)
	}
	return cfg, nil
}

func New() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
