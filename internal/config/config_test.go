package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/crawler"
)

// clearEnv blanks variables that would otherwise leak in from the host.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"AWS_REGION", "S3_BUCKET_NAME", "S3_KEY", "SQS_QUEUE_NAME"} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://boardgamegeek.com/xmlapi2/thing", cfg.Catalog.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, 20, cfg.Crawl.BatchSize)
	assert.Equal(t, 100, cfg.Crawl.FlushInterval)
	assert.Equal(t, time.Second, cfg.Crawl.BatchDelay)
	assert.Equal(t, time.Second, cfg.Crawl.RetryDelay)
	assert.Equal(t, "fixed", cfg.Crawl.RetryMode)
	assert.Equal(t, int64(452300), cfg.Crawl.EndOfSpaceThreshold)
	assert.Equal(t, "boardgame", cfg.Crawl.TargetCategory)
	assert.Equal(t, ProviderS3, cfg.Checkpoint.Provider)
	assert.Equal(t, "boardgame-app", cfg.Checkpoint.Bucket)
	assert.Equal(t, "bgg-scraper/bgg_start_id.txt", cfg.Checkpoint.Key)
	assert.Equal(t, "us-east-1", cfg.Checkpoint.Region)
	assert.Equal(t, ProviderSQS, cfg.Queue.Provider)
	assert.Equal(t, "bgg_game_data_scraper_queue", cfg.Queue.SQS.Name)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.False(t, cfg.Logging.Development)
}

func TestLoadWithFileOverrides(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
catalog:
  user_agent: test-agent
  timeout: 5s
  requests_per_second: 0.5
crawl:
  batch_size: 10
  flush_interval: 50
  batch_delay: 250ms
  retry_mode: exponential
  retry_delay: 2s
  retry_max_delay: 30s
  retry_alert_after: 5
  end_of_space_threshold: 500000
checkpoint:
  provider: local
  key: cursor.txt
  local:
    base_dir: /tmp/harvester
queue:
  provider: kafka
  kafka:
    brokers: ["kafka-1:9092", "kafka-2:9092"]
    topic: ids
logging:
  development: true
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-agent", cfg.Catalog.UserAgent)
	assert.Equal(t, 5*time.Second, cfg.Catalog.Timeout)
	assert.InDelta(t, 0.5, cfg.Catalog.RequestsPerSecond, 0.0001)
	assert.Equal(t, 10, cfg.Crawl.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Crawl.BatchDelay)
	assert.Equal(t, int64(500000), cfg.Crawl.EndOfSpaceThreshold)
	assert.Equal(t, ProviderLocal, cfg.Checkpoint.Provider)
	assert.Equal(t, "/tmp/harvester", cfg.Checkpoint.Local.BaseDir)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Queue.Kafka.Brokers)
	assert.Equal(t, "debug", cfg.Logging.Level)

	assert.Equal(t, crawler.RetryConfig{
		Mode:       crawler.RetryModeExponential,
		Delay:      2 * time.Second,
		MaxDelay:   30 * time.Second,
		AlertAfter: 5,
	}, cfg.RetryConfig())
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HARVESTER_CRAWL_BATCH_SIZE", "40")
	t.Setenv("HARVESTER_CHECKPOINT_PROVIDER", "memory")
	t.Setenv("HARVESTER_QUEUE_PROVIDER", "noop")
	t.Setenv("HARVESTER_CRAWL_RETRY_DELAY", "3s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Crawl.BatchSize)
	assert.Equal(t, ProviderMemory, cfg.Checkpoint.Provider)
	assert.Equal(t, ProviderNoop, cfg.Queue.Provider)
	assert.Equal(t, 3*time.Second, cfg.Crawl.RetryDelay)
}

func TestLoadLegacyEnvNames(t *testing.T) {
	clearEnv(t)
	t.Setenv("S3_BUCKET_NAME", "legacy-bucket")
	t.Setenv("S3_KEY", "legacy/key.txt")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("SQS_QUEUE_NAME", "legacy-queue")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "legacy-bucket", cfg.Checkpoint.Bucket)
	assert.Equal(t, "legacy/key.txt", cfg.Checkpoint.Key)
	assert.Equal(t, "eu-west-1", cfg.Checkpoint.Region)
	assert.Equal(t, "eu-west-1", cfg.Queue.SQS.Region)
	assert.Equal(t, "legacy-queue", cfg.Queue.SQS.Name)
}

func TestLoadPrefixedEnvBeatsLegacy(t *testing.T) {
	clearEnv(t)
	t.Setenv("S3_BUCKET_NAME", "legacy-bucket")
	t.Setenv("HARVESTER_CHECKPOINT_BUCKET", "modern-bucket")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "modern-bucket", cfg.Checkpoint.Bucket)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func validConfig() Config {
	return Config{
		Catalog: CatalogConfig{BaseURL: "https://example.com/thing", Timeout: time.Second},
		Crawl: CrawlConfig{
			BatchSize:      20,
			FlushInterval:  100,
			RetryMode:      "fixed",
			TargetCategory: "boardgame",
		},
		Checkpoint: CheckpointConfig{Provider: ProviderMemory},
		Queue:      QueueConfig{Provider: ProviderNoop},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, validConfig().Validate())

	cases := map[string]func(*Config){
		"missing base url":      func(c *Config) { c.Catalog.BaseURL = "" },
		"zero timeout":          func(c *Config) { c.Catalog.Timeout = 0 },
		"negative rps":          func(c *Config) { c.Catalog.RequestsPerSecond = -1 },
		"zero batch":            func(c *Config) { c.Crawl.BatchSize = 0 },
		"zero flush":            func(c *Config) { c.Crawl.FlushInterval = 0 },
		"negative delay":        func(c *Config) { c.Crawl.BatchDelay = -time.Second },
		"bad retry mode":        func(c *Config) { c.Crawl.RetryMode = "linear" },
		"negative alert":        func(c *Config) { c.Crawl.RetryAlertAfter = -1 },
		"negative threshold":    func(c *Config) { c.Crawl.EndOfSpaceThreshold = -1 },
		"empty category":        func(c *Config) { c.Crawl.TargetCategory = " " },
		"unknown checkpoint":    func(c *Config) { c.Checkpoint.Provider = "ftp" },
		"s3 without bucket":     func(c *Config) { c.Checkpoint = CheckpointConfig{Provider: ProviderS3, Key: "k"} },
		"local without dir":     func(c *Config) { c.Checkpoint = CheckpointConfig{Provider: ProviderLocal, Key: "k"} },
		"redis without addr":    func(c *Config) { c.Checkpoint = CheckpointConfig{Provider: ProviderRedis, Key: "k"} },
		"postgres without dsn":  func(c *Config) { c.Checkpoint = CheckpointConfig{Provider: ProviderPostgres} },
		"unknown queue":         func(c *Config) { c.Queue.Provider = "rabbit" },
		"sqs without name":      func(c *Config) { c.Queue = QueueConfig{Provider: ProviderSQS} },
		"pubsub without topic":  func(c *Config) { c.Queue = QueueConfig{Provider: ProviderPubSub, PubSub: PubSubConfig{ProjectID: "p"}} },
		"kafka without brokers": func(c *Config) { c.Queue = QueueConfig{Provider: ProviderKafka} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a:1", "b:2", "c:3"}, splitList([]string{"a:1, b:2", " c:3 ", ""}))
	assert.Nil(t, splitList(nil))
}
