package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 90 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

// MaxUploadBytes is the hard ceiling for uploaded lab files.
const MaxUploadBytes = 10 * 1024 * 1024

type Config struct {
	ListenAddr string `yaml:"listen_addr"`

	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	LLMMaxTokens    int    `yaml:"llm_max_tokens"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`

	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds"`

	StoreDriver    string `yaml:"store_driver"`
	DBPath         string `yaml:"db_path"`
	DatabaseURL    string `yaml:"database_url"`
	MongoURI       string `yaml:"mongo_uri"`
	MongoDatabase  string `yaml:"mongo_database"`
	InstallationID string `yaml:"installation_id"`

	DefaultLanguage string `yaml:"default_language"`
	MaxUploadBytes  int64  `yaml:"max_upload_bytes"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	SlackBotToken        string `yaml:"slack_bot_token"`
	SlackAppToken        string `yaml:"slack_app_token"`
	ReviewChannelID      string `yaml:"review_channel_id"`
	ReviewDigestSchedule string `yaml:"review_digest_schedule"`
	Timezone             string `yaml:"timezone"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

// LoadConfig reads .env, config.yaml and the environment, in that order of
// increasing precedence, and exits on invalid settings.
func LoadConfig() Config {
	if err := godotenv.Load(); err == nil {
		logrus.Info("Loaded environment from .env")
	}

	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			logrus.Fatalf("Error parsing %s: %v", configPath, err)
		}
		logrus.Infof("Loaded config from %s", configPath)
	}

	envOverride(&cfg.ListenAddr, "LISTEN_ADDR")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverrideInt(&cfg.LLMMaxTokens, "LLM_MAX_TOKENS")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")
	envOverride(&cfg.StoreDriver, "STORE_DRIVER")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.DatabaseURL, "DATABASE_URL")
	envOverride(&cfg.MongoURI, "MONGO_URI")
	envOverride(&cfg.MongoDatabase, "MONGO_DATABASE")
	envOverride(&cfg.InstallationID, "INSTALLATION_ID")
	envOverride(&cfg.DefaultLanguage, "DEFAULT_LANGUAGE")
	envOverrideInt64(&cfg.MaxUploadBytes, "MAX_UPLOAD_BYTES")
	envOverride(&cfg.LogLevel, "LOG_LEVEL")
	envOverrideBool(&cfg.LogJSON, "LOG_JSON")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	envOverride(&cfg.ReviewChannelID, "REVIEW_CHANNEL_ID")
	envOverrideAllowEmpty(&cfg.ReviewDigestSchedule, "REVIEW_DIGEST_SCHEDULE")
	envOverride(&cfg.Timezone, "TIMEZONE")

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "anthropic"
	}
	if cfg.LLMMaxTokens == 0 {
		cfg.LLMMaxTokens = 2048
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = "sqlite"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./medcare.db"
	}
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = "medcare"
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = MaxUploadBytes
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			logrus.Fatalf("anthropic_api_key is required when llm_provider=anthropic")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logrus.Fatalf("openai_api_key is required when llm_provider=openai")
		}
	default:
		logrus.Fatalf("llm_provider must be 'anthropic' or 'openai', got '%s'", cfg.LLMProvider)
	}

	switch cfg.StoreDriver {
	case "sqlite":
	case "postgres":
		if cfg.DatabaseURL == "" {
			logrus.Fatalf("database_url is required when store_driver=postgres")
		}
	case "mongo":
		if cfg.MongoURI == "" {
			logrus.Fatalf("mongo_uri is required when store_driver=mongo")
		}
	default:
		logrus.Fatalf("store_driver must be 'sqlite', 'postgres' or 'mongo', got '%s'", cfg.StoreDriver)
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			logrus.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	if cfg.LLMMaxTokens < 256 {
		logrus.Fatalf("invalid llm_max_tokens '%d': must be >= 256", cfg.LLMMaxTokens)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 5 {
		logrus.Fatalf("invalid external_http_timeout_seconds '%d': must be >= 5", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.MaxUploadBytes < 1 || cfg.MaxUploadBytes > MaxUploadBytes {
		logrus.Fatalf("invalid max_upload_bytes '%d': must be between 1 and %d", cfg.MaxUploadBytes, MaxUploadBytes)
	}
	if (cfg.SlackBotToken == "") != (cfg.SlackAppToken == "") {
		logrus.Fatalf("slack_bot_token and slack_app_token must be set together")
	}

	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideAllowEmpty(field *string, envKey string) {
	if val, ok := os.LookupEnv(envKey); ok {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			logrus.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideInt64(field *int64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			logrus.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = strings.EqualFold(val, "true") || val == "1"
	}
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackAppToken != ""
}

func (c Config) ExternalHTTPTimeout() time.Duration {
	return time.Duration(c.ExternalHTTPTimeoutSeconds) * time.Second
}
