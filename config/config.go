package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
)

const (
	StorageBackendRedis  = "redis"
	StorageBackendMemory = "memory"

	ReplyProviderOpenAI = "openai"
	ReplyProviderEcho   = "echo"
)

var (
	ErrUnknownStorageBackend = errors.New("unknown storage backend")
	ErrUnknownReplyProvider  = errors.New("unknown reply provider")
	ErrOpenAIAPIKeyMissing   = errors.New("openai api key is required for the openai provider")
)

type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Pretty bool   `yaml:"pretty" env:"LOG_PRETTY" env-default:"false"`
	File   string `yaml:"file" env:"LOG_FILE"`
}

type Redis struct {
	Endpoint string `yaml:"endpoint" env:"REDIS_ENDPOINT" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Storage struct {
	Backend     string `yaml:"backend" env:"STORAGE_BACKEND" env-default:"redis"`
	Redis       Redis  `yaml:"redis"`
	KeyPrefix   string `yaml:"key_prefix" env:"STORAGE_KEY_PREFIX" env-default:"chatHistory_"`
	SessionName string `yaml:"session_name" env:"STORAGE_SESSION_NAME" env-default:"session"`
}

type Reply struct {
	Provider string        `yaml:"provider" env:"REPLY_PROVIDER" env-default:"openai"`
	Timeout  time.Duration `yaml:"timeout" env:"REPLY_TIMEOUT" env-default:"60s"`
}

type OpenAI struct {
	OpenAIAPIKey     string  `yaml:"api_key" env:"OPENAI_API_KEY"`
	OpenAIModel      string  `yaml:"openai_model" env:"OPENAI_MODEL" env-default:"gpt-4o-mini"`
	OpenAIBaseURL    string  `yaml:"open_ai_base_url" env:"OPENAI_BASE_URL"`
	ModelTemperature float32 `yaml:"model_temperature" env:"MODEL_TEMPERATURE" env-default:"1"`
	MaxHistoryTokens int     `yaml:"max_history_tokens" env:"OPENAI_MAX_HISTORY_TOKENS" env-default:"3500"`
	Persona          string  `yaml:"persona" env:"OPENAI_PERSONA"`
}

type Telegram struct {
	TelegramAPIToken  string  `yaml:"api_token" env:"TELEGRAM_APITOKEN"`
	AllowedTelegramID []int64 `yaml:"allowed_telegram_id" env:"ALLOWED_TELEGRAM_ID" env-separator:","`
}

type Metrics struct {
	Addr string `yaml:"addr" env:"METRICS_ADDR"`
}

type Config struct {
	Language string   `yaml:"language" env:"CHAT_LANGUAGE" env-default:"en"`
	Log      Log      `yaml:"log"`
	Storage  Storage  `yaml:"storage"`
	Reply    Reply    `yaml:"reply"`
	OpenAI   OpenAI   `yaml:"openai"`
	Telegram Telegram `yaml:"telegram"`
	Metrics  Metrics  `yaml:"metrics"`
}

// LoadConfig reads the YAML file at cfgPath (when set) and overlays the
// environment on top of it.
func LoadConfig(cfgPath string) (*Config, error) {
	var cfg Config
	if cfgPath != "" {
		if err := cleanenv.ReadConfig(cfgPath, &cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", cfgPath)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to read config from env")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageBackendRedis, StorageBackendMemory:
	default:
		return errors.Wrap(ErrUnknownStorageBackend, fmt.Sprintf("%q", c.Storage.Backend))
	}
	switch c.Reply.Provider {
	case ReplyProviderEcho:
	case ReplyProviderOpenAI:
		if c.OpenAI.OpenAIAPIKey == "" {
			return ErrOpenAIAPIKeyMissing
		}
	default:
		return errors.Wrap(ErrUnknownReplyProvider, fmt.Sprintf("%q", c.Reply.Provider))
	}
	return nil
}
