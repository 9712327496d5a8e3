package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"NewsIngestor/internal/domain"
)

const (
	configPathEnv        = "NEWS_INGESTOR_CONFIG"
	databaseDSNEnv       = "DATABASE_DSN"
	databaseDriverEnv    = "DATABASE_DRIVER"
	natsURLEnv           = "NATS_URL"
	queueBackendEnv      = "QUEUE_BACKEND"
	workerConcurrencyEnv = "WORKER_CONCURRENCY"
	telegramTokenEnv     = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv    = "TELEGRAM_CHAT_ID"
	chatGPTAPIKeyEnv     = "CHATGPT_API_KEY"
	chatGPTModelEnv      = "CHATGPT_MODEL"
	classifierAPIKeyEnv  = "CLASSIFIER_API_KEY"
	logLevelEnv          = "LOG_LEVEL"
	httpAddrEnv          = "HTTP_ADDR"
)

// Queue backends.
const (
	BackendSQL  = "sql"
	BackendNATS = "nats"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Queue         QueueConfig        `yaml:"queue"`
	Worker        WorkerConfig       `yaml:"worker"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Extractor     ExtractorConfig    `yaml:"extractor"`
	Normalizer    NormalizerConfig   `yaml:"normalizer"`
	Enrichment    EnrichmentConfig   `yaml:"enrichment"`
	Summarizer    SummarizerConfig   `yaml:"summarizer"`
	HTTP          HTTPConfig         `yaml:"http"`
	Notifications NotificationConfig `yaml:"notifications"`
	Sources       []domain.Source    `yaml:"sources"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes the SQL connection shared by the store and the
// SQL queue.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// QueueConfig describes the job queue and its retry policy.
type QueueConfig struct {
	Backend      string        `yaml:"backend"`
	LockDuration time.Duration `yaml:"lockDuration"`
	MaxAttempts  int           `yaml:"maxAttempts"`
	BackoffBase  time.Duration `yaml:"backoffBase"`
	PollInterval time.Duration `yaml:"pollInterval"`
	NATS         NATSConfig    `yaml:"nats"`
}

// NATSConfig configures the JetStream backend.
type NATSConfig struct {
	URL             string        `yaml:"url"`
	Stream          string        `yaml:"stream"`
	Subject         string        `yaml:"subject"`
	Consumer        string        `yaml:"consumer"`
	DuplicateWindow time.Duration `yaml:"duplicateWindow"`
}

// WorkerConfig tunes the worker pool and the page fetcher.
type WorkerConfig struct {
	Concurrency  int           `yaml:"concurrency"`
	JobTimeout   time.Duration `yaml:"jobTimeout"`
	FetchTimeout time.Duration `yaml:"fetchTimeout"`
	MaxBodyBytes int64         `yaml:"maxBodyBytes"`
	UserAgent    string        `yaml:"userAgent"`
}

// SchedulerConfig defines how often feeds are polled.
type SchedulerConfig struct {
	PollInterval  time.Duration `yaml:"pollInterval"`
	SourceTimeout time.Duration `yaml:"sourceTimeout"`
	SourcesFile   string        `yaml:"sourcesFile"`
	SeenCapacity  int           `yaml:"seenCapacity"`
	RunOnStart    bool          `yaml:"runOnStart"`
}

// ExtractorConfig holds the acceptance thresholds of the extractor chain.
type ExtractorConfig struct {
	Stages             []string `yaml:"stages"`
	MinContentLength   int      `yaml:"minContentLength"`
	MinParagraphLength int      `yaml:"minParagraphLength"`
}

// NormalizerConfig controls cleaning and fingerprinting.
type NormalizerConfig struct {
	HashPrefixLength   int      `yaml:"hashPrefixLength"`
	BoilerplateMarkers []string `yaml:"boilerplateMarkers"`
}

// EnrichmentConfig scopes relevance scoring and the optional remote classifier.
type EnrichmentConfig struct {
	Query      domain.QueryContext `yaml:"query"`
	Classifier ClassifierConfig    `yaml:"classifier"`
}

// ClassifierConfig describes the remote topic classifier.
type ClassifierConfig struct {
	URL      string  `yaml:"url"`
	APIKey   string  `yaml:"apiKey"`
	MinScore float64 `yaml:"minScore"`
}

// SummarizerConfig defines how to contact an OpenAI-compatible API.
type SummarizerConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Enabled reports whether summaries should be requested remotely.
func (s SummarizerConfig) Enabled() bool {
	return s.Endpoint != "" && s.APIKey != "" && s.Model != ""
}

// HTTPConfig configures the submission and metrics server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send alerts.
type TelegramConfig struct {
	BotToken    string `yaml:"botToken"`
	ChatID      int64  `yaml:"chatId"`
	APIEndpoint string `yaml:"apiEndpoint"`
}

// Enabled reports whether alerts should be sent.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != 0
}

// Load reads YAML configuration, applies environment overrides and
// validates the result. An empty path falls back to NEWS_INGESTOR_CONFIG;
// with neither set only defaults and environment are used.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := Decode(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode overlays YAML onto cfg. Fields absent from raw keep their values.
func Decode(raw []byte, cfg *Config) error {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	return yaml.Unmarshal(raw, cfg)
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(natsURLEnv); v != "" {
		c.Queue.NATS.URL = v
	}
	if v := os.Getenv(queueBackendEnv); v != "" {
		c.Queue.Backend = v
	}
	if v := os.Getenv(workerConcurrencyEnv); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", workerConcurrencyEnv, err)
		}
		c.Worker.Concurrency = n
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: %s: %w", telegramChatIDEnv, err)
		}
		c.Notifications.Telegram.ChatID = id
	}
	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.Summarizer.APIKey = v
	}
	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.Summarizer.Model = v
	}
	if v := os.Getenv(classifierAPIKeyEnv); v != "" {
		c.Enrichment.Classifier.APIKey = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
	return nil
}

// Validate reports every problem at once. A process must not start with an
// invalid configuration.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		add("database.driver: unknown driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		add("database.dsn: required")
	}

	switch c.Queue.Backend {
	case BackendSQL:
	case BackendNATS:
		if c.Queue.NATS.URL == "" {
			add("queue.nats.url: required for the nats backend")
		}
	default:
		add("queue.backend: unknown backend %q", c.Queue.Backend)
	}
	if c.Queue.LockDuration <= 0 {
		add("queue.lockDuration: must be positive")
	}
	if c.Queue.MaxAttempts < 1 {
		add("queue.maxAttempts: must be at least 1")
	}
	if c.Queue.BackoffBase <= 0 {
		add("queue.backoffBase: must be positive")
	}
	if c.Queue.PollInterval <= 0 {
		add("queue.pollInterval: must be positive")
	}

	if c.Worker.Concurrency < 1 {
		add("worker.concurrency: must be at least 1")
	}
	if c.Worker.JobTimeout <= 0 {
		add("worker.jobTimeout: must be positive")
	}
	if c.Worker.FetchTimeout <= 0 {
		add("worker.fetchTimeout: must be positive")
	}
	if c.Worker.MaxBodyBytes <= 0 {
		add("worker.maxBodyBytes: must be positive")
	}

	// cron's @every cannot go below one second.
	if c.Scheduler.PollInterval < time.Second {
		add("scheduler.pollInterval: must be at least 1s")
	}
	if c.Scheduler.SourceTimeout <= 0 {
		add("scheduler.sourceTimeout: must be positive")
	}
	if c.Scheduler.SeenCapacity < 1 {
		add("scheduler.seenCapacity: must be at least 1")
	}

	if c.Extractor.MinContentLength < 1 {
		add("extractor.minContentLength: must be at least 1")
	}
	if c.Extractor.MinParagraphLength < 1 {
		add("extractor.minParagraphLength: must be at least 1")
	}
	for _, stage := range c.Extractor.Stages {
		switch domain.ExtractorKind(stage) {
		case domain.ExtractorStructured, domain.ExtractorReadability, domain.ExtractorHeuristic:
		default:
			add("extractor.stages: unknown stage %q", stage)
		}
	}
	if c.Normalizer.HashPrefixLength < 1 {
		add("normalizer.hashPrefixLength: must be at least 1")
	}

	if c.Enrichment.Classifier.URL != "" {
		if err := domain.ValidateSourceURL(c.Enrichment.Classifier.URL); err != nil {
			add("enrichment.classifier.url: %v", err)
		}
	}
	if c.HTTP.Addr == "" {
		add("http.addr: required")
	}

	for i, s := range c.Sources {
		if err := s.Validate(); err != nil {
			add("sources[%d]: %v", i, err)
		}
	}

	return errors.Join(errs...)
}

// Default returns the built-in configuration before file and environment
// overrides.
func Default() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "newsingestor.db"},
		Queue: QueueConfig{
			Backend:      BackendSQL,
			LockDuration: 30 * time.Second,
			MaxAttempts:  domain.DefaultMaxAttempts,
			BackoffBase:  domain.DefaultBackoffBase,
			PollInterval: time.Second,
			NATS: NATSConfig{
				Stream:          "INGEST",
				Subject:         "ingest.jobs",
				Consumer:        "ingest-workers",
				DuplicateWindow: 10 * time.Minute,
			},
		},
		Worker: WorkerConfig{
			Concurrency:  5,
			JobTimeout:   20 * time.Second,
			FetchTimeout: 15 * time.Second,
			MaxBodyBytes: 10 << 20,
			UserAgent:    "NewsIngestor/1.0 (+https://github.com/newsingestor)",
		},
		Scheduler: SchedulerConfig{
			PollInterval:  5 * time.Minute,
			SourceTimeout: time.Minute,
			SeenCapacity:  1000,
			RunOnStart:    true,
		},
		Extractor: ExtractorConfig{
			Stages:             []string{"structured", "readability", "heuristic"},
			MinContentLength:   200,
			MinParagraphLength: 50,
		},
		Normalizer: NormalizerConfig{HashPrefixLength: 10000},
		Enrichment: EnrichmentConfig{Classifier: ClassifierConfig{MinScore: 0.3}},
		Summarizer: SummarizerConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You summarize news articles in two or three neutral sentences.",
			Timeout:      20 * time.Second,
		},
		HTTP: HTTPConfig{Addr: ":8080"},
	}
}
