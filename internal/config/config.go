package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"

	configPathEnv     = "DAILY_DIGEST_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	storageDriverEnv  = "STORAGE_DRIVER"
	oracleProviderEnv = "ORACLE_PROVIDER"
	openAIKeyEnv      = "OPENAI_API_KEY"
	workersAITokenEnv = "WORKERS_AI_TOKEN"
	workersAIAcctEnv  = "WORKERS_AI_ACCOUNT"
	resendAPIKeyEnv   = "RESEND_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	httpAddrEnv       = "HTTP_ADDR"
	logLevelEnv       = "LOG_LEVEL"

	workersAIEndpointTemplate = "https://api.cloudflare.com/client/v4/accounts/%s/ai/run"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverDynamoDB = "dynamodb"
)

// Oracle providers.
const (
	ProviderOpenAI    = "openai"
	ProviderWorkersAI = "workers-ai"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	HTTP          HTTPConfig         `yaml:"http"`
	Storage       StorageConfig      `yaml:"storage"`
	Oracle        OracleConfig       `yaml:"oracle"`
	Classifier    ClassifierConfig   `yaml:"classifier"`
	Briefing      BriefingConfig     `yaml:"briefing"`
	Email         EmailConfig        `yaml:"email"`
	Notifications NotificationConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Feeds         []FeedConfig       `yaml:"feeds"`
}

// LoggingConfig selects level and handler format ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// StorageConfig picks the key-value backend for users, articles, and briefings.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	// DSN is used by the postgres driver.
	DSN string `yaml:"dsn"`
	// Path is used by the sqlite driver.
	Path string `yaml:"path"`
	// Table and Region are used by the dynamodb driver.
	Table  string `yaml:"table"`
	Region string `yaml:"region"`
}

// OracleConfig selects the inference provider.
type OracleConfig struct {
	Provider string        `yaml:"provider"`
	ChatGPT  ChatGPTConfig `yaml:"chatgpt"`
	ML       MLConfig      `yaml:"workersAi"`
	Breaker  BreakerConfig `yaml:"breaker"`
}

// ChatGPTConfig defines how to contact an OpenAI-compatible API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// MLConfig describes a Workers-AI style inference endpoint.
type MLConfig struct {
	InferenceURL string `yaml:"inferenceUrl"`
	AccountID    string `yaml:"accountId"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
}

// BreakerConfig tunes the circuit breaker around the oracle.
type BreakerConfig struct {
	Enabled          bool    `yaml:"enabled"`
	MaxRequests      uint32  `yaml:"maxRequests"`
	IntervalSeconds  int     `yaml:"intervalSeconds"`
	TimeoutSeconds   int     `yaml:"timeoutSeconds"`
	FailureThreshold float64 `yaml:"failureThreshold"`
	MinRequests      uint32  `yaml:"minRequests"`
}

// ClassifierConfig bounds oracle fan-out.
type ClassifierConfig struct {
	BatchSize   int `yaml:"batchSize"`
	WindowHours int `yaml:"windowHours"`
}

// Window returns the recency window.
func (c ClassifierConfig) Window() time.Duration {
	return time.Duration(c.WindowHours) * time.Hour
}

// BriefingConfig controls retention and links in emails.
type BriefingConfig struct {
	TTLHours int    `yaml:"ttlHours"`
	BaseURL  string `yaml:"baseUrl"`
}

// TTL returns the briefing retention.
func (b BriefingConfig) TTL() time.Duration {
	return time.Duration(b.TTLHours) * time.Hour
}

// EmailConfig configures the Resend transport.
type EmailConfig struct {
	From     string `yaml:"from"`
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
}

// NotificationConfig encapsulates side channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SchedulerConfig defines how often configured feeds are polled by `serve`.
// A zero interval disables polling.
type SchedulerConfig struct {
	IntervalMinutes int            `yaml:"intervalMinutes"`
	Timezone        string         `yaml:"timezone"`
	location        *time.Location `yaml:"-"`
}

// Interval returns the polling interval.
func (s SchedulerConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// FeedConfig describes a feed polled by the scheduler.
type FeedConfig struct {
	Name    string            `yaml:"name"`
	URL     string            `yaml:"url"`
	Scanner string            `yaml:"scanner"`
	Options map[string]string `yaml:"options"`
}

// FeedURLs lists the configured feed locations.
func (c Config) FeedURLs() []string {
	urls := make([]string, 0, len(c.Feeds))
	for _, feed := range c.Feeds {
		if feed.URL != "" {
			urls = append(urls, feed.URL)
		}
	}
	return urls
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		fileCfg, err := ReadFile(path)
		if err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// ReadFile parses a YAML config file without applying defaults.
func ReadFile(path string) (Config, error) {
	var fileCfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileCfg, &fileError{op: "read", path: path, err: err}
	}
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return fileCfg, &fileError{op: "parse", path: path, err: err}
	}
	return fileCfg, nil
}

type fileError struct {
	op   string
	path string
	err  error
}

func (e *fileError) Error() string {
	return "cannot " + e.op + " " + e.path + ": " + e.err.Error()
}

func (e *fileError) Unwrap() error { return e.err }

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Storage.DSN = v
		if os.Getenv(storageDriverEnv) == "" {
			c.Storage.Driver = DriverPostgres
		}
	}

	if v := os.Getenv(storageDriverEnv); v != "" {
		c.Storage.Driver = v
	}

	if v := os.Getenv(oracleProviderEnv); v != "" {
		c.Oracle.Provider = v
	}

	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.Oracle.ChatGPT.APIKey = v
	}

	if v := os.Getenv(workersAITokenEnv); v != "" {
		c.Oracle.ML.APIKey = v
	}

	if v := os.Getenv(workersAIAcctEnv); v != "" {
		c.Oracle.ML.AccountID = v
	}

	if v := os.Getenv(resendAPIKeyEnv); v != "" {
		c.Email.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

// WorkersAIEndpoint returns the inference URL, deriving it from the account id when unset.
func (m MLConfig) WorkersAIEndpoint() string {
	if m.InferenceURL != "" || m.AccountID == "" {
		return m.InferenceURL
	}
	return fmt.Sprintf(workersAIEndpointTemplate, m.AccountID)
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}
	if len(override.HTTP.AllowedOrigins) > 0 {
		base.HTTP.AllowedOrigins = override.HTTP.AllowedOrigins
	}

	if override.Storage.Driver != "" {
		base.Storage.Driver = override.Storage.Driver
	}
	if override.Storage.DSN != "" {
		base.Storage.DSN = override.Storage.DSN
	}
	if override.Storage.Path != "" {
		base.Storage.Path = override.Storage.Path
	}
	if override.Storage.Table != "" {
		base.Storage.Table = override.Storage.Table
	}
	if override.Storage.Region != "" {
		base.Storage.Region = override.Storage.Region
	}

	if override.Oracle.Provider != "" {
		base.Oracle.Provider = override.Oracle.Provider
	}
	if override.Oracle.ChatGPT.Endpoint != "" {
		base.Oracle.ChatGPT.Endpoint = override.Oracle.ChatGPT.Endpoint
	}
	if override.Oracle.ChatGPT.Model != "" {
		base.Oracle.ChatGPT.Model = override.Oracle.ChatGPT.Model
	}
	if override.Oracle.ChatGPT.APIKey != "" {
		base.Oracle.ChatGPT.APIKey = override.Oracle.ChatGPT.APIKey
	}
	if override.Oracle.ChatGPT.SystemPrompt != "" {
		base.Oracle.ChatGPT.SystemPrompt = override.Oracle.ChatGPT.SystemPrompt
	}
	if override.Oracle.ML.InferenceURL != "" {
		base.Oracle.ML.InferenceURL = override.Oracle.ML.InferenceURL
	}
	if override.Oracle.ML.AccountID != "" {
		base.Oracle.ML.AccountID = override.Oracle.ML.AccountID
	}
	if override.Oracle.ML.Model != "" {
		base.Oracle.ML.Model = override.Oracle.ML.Model
	}
	if override.Oracle.ML.APIKey != "" {
		base.Oracle.ML.APIKey = override.Oracle.ML.APIKey
	}
	if override.Oracle.Breaker != (BreakerConfig{}) {
		base.Oracle.Breaker = override.Oracle.Breaker
	}

	if override.Classifier.BatchSize > 0 {
		base.Classifier.BatchSize = override.Classifier.BatchSize
	}
	if override.Classifier.WindowHours > 0 {
		base.Classifier.WindowHours = override.Classifier.WindowHours
	}

	if override.Briefing.TTLHours > 0 {
		base.Briefing.TTLHours = override.Briefing.TTLHours
	}
	if override.Briefing.BaseURL != "" {
		base.Briefing.BaseURL = override.Briefing.BaseURL
	}

	if override.Email.From != "" {
		base.Email.From = override.Email.From
	}
	if override.Email.Endpoint != "" {
		base.Email.Endpoint = override.Email.Endpoint
	}
	if override.Email.APIKey != "" {
		base.Email.APIKey = override.Email.APIKey
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Scheduler.IntervalMinutes > 0 {
		base.Scheduler.IntervalMinutes = override.Scheduler.IntervalMinutes
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		HTTP: HTTPConfig{
			Addr:           ":8787",
			AllowedOrigins: []string{"*"},
		},
		Storage: StorageConfig{
			Driver: DriverSQLite,
			Path:   defaultSQLitePath(),
			Table:  "daily-digest",
		},
		Oracle: OracleConfig{
			Provider: ProviderWorkersAI,
			ChatGPT: ChatGPTConfig{
				Endpoint:     "https://api.openai.com/v1/chat/completions",
				Model:        "gpt-4o-mini",
				SystemPrompt: "You classify and summarize news articles. Follow the requested answer format exactly.",
			},
			ML: MLConfig{
				Model: "@cf/meta/llama-3.3-70b-instruct-fp8-fast",
			},
			Breaker: BreakerConfig{
				Enabled:          true,
				MaxRequests:      5,
				IntervalSeconds:  30,
				TimeoutSeconds:   60,
				FailureThreshold: 0.8,
				MinRequests:      10,
			},
		},
		Classifier: ClassifierConfig{BatchSize: 20, WindowHours: 24},
		Briefing:   BriefingConfig{TTLHours: 7 * 24, BaseURL: "http://localhost:3000"},
		Email:      EmailConfig{From: "Daily Digest <digest@example.com>"},
		Scheduler:  SchedulerConfig{Timezone: defaultTimezone, location: tz},
	}
}

func defaultSQLitePath() string {
	path, err := xdg.DataFile(filepath.Join("daily-digest", "digest.db"))
	if err != nil {
		return filepath.Join(os.TempDir(), "daily-digest", "digest.db")
	}
	return path
}
