package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired   = errors.New("missing required configuration")
	ErrNoCollections     = errors.New("no collections configured")
	ErrUnknownCollection = errors.New("unknown collection")
)

type Config struct {
	CredentialsPath string `envconfig:"GOOGLE_DRIVE_CREDENTIALS_PATH"`

	// Collection sources, highest precedence first.
	CollectionsFile string          `envconfig:"COLLECTIONS_FILE"`
	CollectionsJSON CollectionsJSON `envconfig:"COLLECTIONS_CONFIG"`
	Legacy          Legacy          `ignored:"true"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	LogFile   string `envconfig:"LOG_FILE"`

	// Pipeline tunables
	EmbedBatchSize        int           `envconfig:"EMBED_BATCH_SIZE" default:"100"`
	EmbedMaxRetries       int           `envconfig:"EMBED_MAX_RETRIES" default:"3"`
	EmbedRetryDelay       time.Duration `envconfig:"EMBED_RETRY_DELAY" default:"1s"`
	EmbedConcurrency      int           `envconfig:"EMBED_CONCURRENCY" default:"1"`
	UpsertBatchSize       int           `envconfig:"UPSERT_BATCH_SIZE" default:"100"`
	ClearPageSize         int           `envconfig:"CLEAR_PAGE_SIZE" default:"1000"`
	CollectionConcurrency int           `envconfig:"SYNC_COLLECTION_CONCURRENCY" default:"1"`

	DriveMaxDownloadMB     int64   `envconfig:"DRIVE_MAX_DOWNLOAD_MB" default:"50"`
	DriveRequestsPerSecond float64 `envconfig:"DRIVE_REQUESTS_PER_SECOND" default:"8"`
	DriveBurst             int     `envconfig:"DRIVE_BURST" default:"10"`

	// Run history
	EnableHistory bool   `envconfig:"ENABLE_HISTORY" default:"false"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	DBHost        string `envconfig:"DB_HOST" default:"localhost"`
	DBPort        int    `envconfig:"DB_PORT" default:"5432"`
	DBUser        string `envconfig:"DB_USER" default:"drivesync"`
	DBPass        string `envconfig:"DB_PASS" default:"password"`
	DBName        string `envconfig:"DB_NAME" default:"drivesync"`

	// Outcome events
	EnableNotify bool   `envconfig:"ENABLE_NOTIFY" default:"false"`
	NSQDHost     string `envconfig:"NSQD_HOST" default:"localhost:4150"`
	NSQDHTTP     string `envconfig:"NSQD_HTTP" default:"localhost:4151"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`

	Collections []Collection `ignored:"true"`
}

func Load() (*Config, error) {
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := envconfig.Process("", &cfg.Legacy); err != nil {
		return nil, err
	}

	collections, err := cfg.loadCollections()
	if err != nil {
		return nil, err
	}
	cfg.Collections = collections

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.CredentialsPath == "" {
		return fmt.Errorf("%w: GOOGLE_DRIVE_CREDENTIALS_PATH", ErrMissingRequired)
	}
	if len(c.Collections) == 0 {
		return ErrNoCollections
	}
	for _, col := range c.Collections {
		if err := col.Validate(); err != nil {
			return err
		}
	}
	if c.EnableHistory && c.DatabaseURL == "" && c.DBHost == "" {
		return fmt.Errorf("%w: DATABASE_URL or DB_HOST", ErrMissingRequired)
	}
	if c.EnableNotify && c.NSQDHost == "" {
		return fmt.Errorf("%w: NSQD_HOST", ErrMissingRequired)
	}
	return nil
}

// DSN returns the Postgres connection string for the run history database.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName)
}

// Select narrows the configured collections to the one matching name, either by
// display name or by store collection name. An empty name selects everything.
func (c *Config) Select(name string) ([]Collection, error) {
	if name == "" {
		return c.Collections, nil
	}
	available := make([]string, 0, len(c.Collections))
	for _, col := range c.Collections {
		if col.Name == name || col.StoreCollection() == name {
			return []Collection{col}, nil
		}
		available = append(available, col.Name)
	}
	return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownCollection, name, available)
}
