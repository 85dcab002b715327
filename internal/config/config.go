package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

const (
	defaultDBDriver        = "mysql"
	defaultDBHost          = "127.0.0.1"
	defaultMySQLPort       = 3306
	defaultPostgresPort    = 5432
	defaultDBUser          = "root"
	defaultDBName          = "cryptonews"
	defaultHandoffPath     = "unsent_to_discord.json"
	defaultDigestPath      = "crypto_news.html"
	defaultDigestLimit     = 100
	defaultCronSpec        = "*/15 * * * *"
	defaultBindAddr        = ":8082"
	defaultBatchSize       = 10
	defaultBatchDelay      = 5 * time.Second
	defaultMaxRetries      = 3
	defaultRetryDelay      = 5 * time.Second
	defaultNotifyTimeout   = 15 * time.Second
	defaultFetchTimeout    = 20 * time.Second
	defaultMarkMode        = "snapshot"
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultSummaryMinRunes = 600
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	WebhookURL string

	DBDriver string
	DBHost   string
	DBPort   int
	DBUser   string
	DBPass   string
	DBName   string

	HandoffPath string
	DigestPath  string
	DigestLimit int
	SourcesFile string

	CronSpec string
	BindAddr string

	BatchSize     int
	BatchDelay    time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	NotifyTimeout time.Duration
	FetchTimeout  time.Duration
	MarkMode      string

	OpenAIKey       string
	OpenAIModel     string
	OpenAIBase      string
	SummaryMinRunes int
}

// Load reads environment variables, filling in reasonable defaults.
func Load() Config {
	driver := stringWithDefault("DB_DRIVER", defaultDBDriver)
	return Config{
		WebhookURL:      os.Getenv("DISCORD_WEBHOOK_URL"),
		DBDriver:        driver,
		DBHost:          stringWithDefault("DB_HOST", defaultDBHost),
		DBPort:          intWithDefault("DB_PORT", defaultPort(driver)),
		DBUser:          stringWithDefault("DB_USER", defaultDBUser),
		DBPass:          os.Getenv("DB_PASSWORD"),
		DBName:          stringWithDefault("DB_NAME", defaultDBName),
		HandoffPath:     stringWithDefault("HANDOFF_PATH", defaultHandoffPath),
		DigestPath:      stringWithDefault("DIGEST_PATH", defaultDigestPath),
		DigestLimit:     intWithDefault("DIGEST_LIMIT", defaultDigestLimit),
		SourcesFile:     os.Getenv("SOURCES_FILE"),
		CronSpec:        stringWithDefault("CRON_SPEC", defaultCronSpec),
		BindAddr:        stringWithDefault("BIND_ADDR", defaultBindAddr),
		BatchSize:       intWithDefault("NOTIFY_BATCH_SIZE", defaultBatchSize),
		BatchDelay:      durationWithDefault("NOTIFY_BATCH_DELAY", defaultBatchDelay),
		MaxRetries:      intWithDefault("NOTIFY_MAX_RETRIES", defaultMaxRetries),
		RetryDelay:      durationWithDefault("NOTIFY_RETRY_DELAY", defaultRetryDelay),
		NotifyTimeout:   durationWithDefault("NOTIFY_TIMEOUT", defaultNotifyTimeout),
		FetchTimeout:    durationWithDefault("FETCH_TIMEOUT", defaultFetchTimeout),
		MarkMode:        stringWithDefault("EXPORT_MARK_MODE", defaultMarkMode),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     stringWithDefault("OPENAI_MODEL", defaultOpenAIModel),
		OpenAIBase:      os.Getenv("OPENAI_BASE_URL"),
		SummaryMinRunes: intWithDefault("SUMMARY_MIN_RUNES", defaultSummaryMinRunes),
	}
}

// defaultPort is the usual server port for driver.
func defaultPort(driver string) int {
	if driver == "postgres" {
		return defaultPostgresPort
	}
	return defaultMySQLPort
}

func stringWithDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationWithDefault(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			return d
		}
		log.Printf("invalid %s=%s, using default %s", key, v, fallback)
	}
	return fallback
}

func intWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
		log.Printf("invalid %s=%s, using default %d", key, v, fallback)
	}
	return fallback
}
