// Package config loads and validates harvester configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/crawler"
)

// EnvPrefix namespaces environment overrides, e.g. HARVESTER_CRAWL_BATCH_SIZE.
const EnvPrefix = "HARVESTER"

// Provider names.
const (
	ProviderS3       = "s3"
	ProviderGCS      = "gcs"
	ProviderLocal    = "local"
	ProviderMemory   = "memory"
	ProviderRedis    = "redis"
	ProviderPostgres = "postgres"
	ProviderSQS      = "sqs"
	ProviderPubSub   = "pubsub"
	ProviderKafka    = "kafka"
	ProviderNoop     = "noop"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Crawl      CrawlConfig      `mapstructure:"crawl"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// CatalogConfig describes the remote catalog API.
type CatalogConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// CrawlConfig governs the batch loop.
type CrawlConfig struct {
	BatchSize           int           `mapstructure:"batch_size"`
	FlushInterval       int           `mapstructure:"flush_interval"`
	BatchDelay          time.Duration `mapstructure:"batch_delay"`
	RetryDelay          time.Duration `mapstructure:"retry_delay"`
	RetryMode           string        `mapstructure:"retry_mode"`
	RetryMaxDelay       time.Duration `mapstructure:"retry_max_delay"`
	RetryAlertAfter     int           `mapstructure:"retry_alert_after"`
	EndOfSpaceThreshold int64         `mapstructure:"end_of_space_threshold"`
	TargetCategory      string        `mapstructure:"target_category"`
}

// CheckpointConfig selects and configures the checkpoint backend. The static
// S3 keys are optional; the default AWS credential chain applies otherwise.
type CheckpointConfig struct {
	Provider        string         `mapstructure:"provider"`
	Bucket          string         `mapstructure:"bucket"`
	Key             string         `mapstructure:"key"`
	Region          string         `mapstructure:"region"`
	Endpoint        string         `mapstructure:"endpoint"`
	AccessKeyID     string         `mapstructure:"access_key_id"`
	SecretAccessKey string         `mapstructure:"secret_access_key"`
	Local           LocalConfig    `mapstructure:"local"`
	Memory          MemoryConfig   `mapstructure:"memory"`
	Redis           RedisConfig    `mapstructure:"redis"`
	Postgres        PostgresConfig `mapstructure:"postgres"`
}

// LocalConfig points at a directory on disk.
type LocalConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// MemoryConfig seeds the in-process checkpoint store.
type MemoryConfig struct {
	Start int64 `mapstructure:"start"`
}

// RedisConfig addresses the Redis server holding the checkpoint key.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PostgresConfig addresses the checkpoint table.
type PostgresConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// QueueConfig selects and configures the work queue.
type QueueConfig struct {
	Provider string       `mapstructure:"provider"`
	SQS      SQSConfig    `mapstructure:"sqs"`
	PubSub   PubSubConfig `mapstructure:"pubsub"`
	Kafka    KafkaConfig  `mapstructure:"kafka"`
}

// SQSConfig identifies the SQS queue.
type SQSConfig struct {
	Name     string `mapstructure:"name"`
	URL      string `mapstructure:"url"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// KafkaConfig lists brokers and the destination topic.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// MetricsConfig controls the status server. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// legacyEnv maps environment names used by earlier deployments onto keys.
var legacyEnv = map[string]string{
	"checkpoint.bucket": "S3_BUCKET_NAME",
	"checkpoint.key":    "S3_KEY",
	"checkpoint.region": "AWS_REGION",
	"queue.sqs.region":  "AWS_REGION",
	"queue.sqs.name":    "SQS_QUEUE_NAME",
}

// Load builds a Config from an optional .env file, an optional config file and
// the environment.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Queue.Kafka.Brokers = splitList(cfg.Queue.Kafka.Brokers)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.base_url", "https://boardgamegeek.com/xmlapi2/thing")
	v.SetDefault("catalog.user_agent", "bgg-catalog-harvester/1.0")
	v.SetDefault("catalog.timeout", 30*time.Second)
	v.SetDefault("catalog.requests_per_second", 0)
	v.SetDefault("crawl.batch_size", 20)
	v.SetDefault("crawl.flush_interval", 100)
	v.SetDefault("crawl.batch_delay", time.Second)
	v.SetDefault("crawl.retry_delay", time.Second)
	v.SetDefault("crawl.retry_mode", string(crawler.RetryModeFixed))
	v.SetDefault("crawl.retry_max_delay", time.Minute)
	v.SetDefault("crawl.retry_alert_after", 30)
	v.SetDefault("crawl.end_of_space_threshold", 452300)
	v.SetDefault("crawl.target_category", crawler.DefaultTargetCategory)
	v.SetDefault("checkpoint.provider", ProviderS3)
	v.SetDefault("checkpoint.bucket", "boardgame-app")
	v.SetDefault("checkpoint.key", "bgg-scraper/bgg_start_id.txt")
	v.SetDefault("checkpoint.region", "us-east-1")
	v.SetDefault("checkpoint.endpoint", "")
	v.SetDefault("checkpoint.access_key_id", "")
	v.SetDefault("checkpoint.secret_access_key", "")
	v.SetDefault("checkpoint.local.base_dir", "data/checkpoint")
	v.SetDefault("checkpoint.memory.start", 1)
	v.SetDefault("checkpoint.redis.addr", "localhost:6379")
	v.SetDefault("checkpoint.redis.password", "")
	v.SetDefault("checkpoint.redis.db", 0)
	v.SetDefault("checkpoint.postgres.dsn", "")
	v.SetDefault("checkpoint.postgres.table", "crawl_checkpoints")
	v.SetDefault("queue.provider", ProviderSQS)
	v.SetDefault("queue.sqs.name", "bgg_game_data_scraper_queue")
	v.SetDefault("queue.sqs.url", "")
	v.SetDefault("queue.sqs.region", "us-east-1")
	v.SetDefault("queue.sqs.endpoint", "")
	v.SetDefault("queue.pubsub.project_id", "")
	v.SetDefault("queue.pubsub.topic_id", "")
	v.SetDefault("queue.kafka.brokers", []string{})
	v.SetDefault("queue.kafka.topic", "bgg-game-ids")
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "")
}

// bindLegacyEnv lets HARVESTER_* names win while still honouring the old ones.
func bindLegacyEnv(v *viper.Viper) error {
	for key, legacy := range legacyEnv {
		modern := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, modern, legacy); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// splitList accepts both YAML lists and a comma separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url is required")
	}
	if c.Catalog.Timeout <= 0 {
		return fmt.Errorf("catalog.timeout must be > 0")
	}
	if c.Catalog.RequestsPerSecond < 0 {
		return fmt.Errorf("catalog.requests_per_second must be >= 0")
	}
	if c.Crawl.BatchSize <= 0 {
		return fmt.Errorf("crawl.batch_size must be > 0")
	}
	if c.Crawl.FlushInterval <= 0 {
		return fmt.Errorf("crawl.flush_interval must be > 0")
	}
	if c.Crawl.BatchDelay < 0 || c.Crawl.RetryDelay < 0 || c.Crawl.RetryMaxDelay < 0 {
		return fmt.Errorf("crawl delays must be >= 0")
	}
	if _, err := crawler.ParseRetryMode(c.Crawl.RetryMode); err != nil {
		return fmt.Errorf("crawl.retry_mode: %w", err)
	}
	if c.Crawl.RetryAlertAfter < 0 {
		return fmt.Errorf("crawl.retry_alert_after must be >= 0")
	}
	if c.Crawl.EndOfSpaceThreshold < 0 {
		return fmt.Errorf("crawl.end_of_space_threshold must be >= 0")
	}
	if strings.TrimSpace(c.Crawl.TargetCategory) == "" {
		return fmt.Errorf("crawl.target_category is required")
	}
	if err := c.Checkpoint.validate(); err != nil {
		return err
	}
	return c.Queue.validate()
}

func (c CheckpointConfig) validate() error {
	switch c.Provider {
	case ProviderS3, ProviderGCS:
		if c.Bucket == "" || c.Key == "" {
			return fmt.Errorf("checkpoint.bucket and checkpoint.key are required for provider %q", c.Provider)
		}
	case ProviderLocal:
		if c.Local.BaseDir == "" || c.Key == "" {
			return fmt.Errorf("checkpoint.local.base_dir and checkpoint.key are required for provider %q", c.Provider)
		}
	case ProviderRedis:
		if c.Redis.Addr == "" || c.Key == "" {
			return fmt.Errorf("checkpoint.redis.addr and checkpoint.key are required for provider %q", c.Provider)
		}
	case ProviderPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("checkpoint.postgres.dsn is required for provider %q", c.Provider)
		}
	case ProviderMemory:
		if c.Memory.Start < 0 {
			return fmt.Errorf("checkpoint.memory.start must be >= 0")
		}
	default:
		return fmt.Errorf("unknown checkpoint.provider %q", c.Provider)
	}
	return nil
}

func (c QueueConfig) validate() error {
	switch c.Provider {
	case ProviderSQS:
		if c.SQS.Name == "" && c.SQS.URL == "" {
			return fmt.Errorf("queue.sqs.name or queue.sqs.url is required")
		}
	case ProviderPubSub:
		if c.PubSub.ProjectID == "" || c.PubSub.TopicID == "" {
			return fmt.Errorf("queue.pubsub.project_id and queue.pubsub.topic_id are required")
		}
	case ProviderKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("queue.kafka.brokers is required")
		}
	case ProviderMemory, ProviderNoop:
	default:
		return fmt.Errorf("unknown queue.provider %q", c.Provider)
	}
	return nil
}

// RetryConfig converts the crawl settings into a crawler.RetryConfig.
func (c Config) RetryConfig() crawler.RetryConfig {
	mode, _ := crawler.ParseRetryMode(c.Crawl.RetryMode)
	return crawler.RetryConfig{
		Mode:       mode,
		Delay:      c.Crawl.RetryDelay,
		MaxDelay:   c.Crawl.RetryMaxDelay,
		AlertAfter: c.Crawl.RetryAlertAfter,
	}
}
