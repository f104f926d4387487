package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"

	"github.com/sagerock/google-drive-to-qdrant/features/history"
	"github.com/sagerock/google-drive-to-qdrant/internal/config"
	"github.com/sagerock/google-drive-to-qdrant/internal/drive"
	"github.com/sagerock/google-drive-to-qdrant/internal/retry"
	"github.com/sagerock/google-drive-to-qdrant/internal/vector"
)

// Dependencies are the process-wide clients of one run. DB and NSQProducer are
// nil unless history or notifications are enabled.
type Dependencies struct {
	Drive       *drive.Client
	DB          *sql.DB
	NSQProducer *nsq.Producer
}

func (d *Dependencies) Close() {
	if d.NSQProducer != nil {
		d.NSQProducer.Stop()
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			slog.Warn("failed to close database", "error", err)
		}
	}
}

func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	deps := &Dependencies{}
	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second

	if cfg.EnableHistory {
		db, err := OpenDB(ctx, cfg.DSN(), cfg.BootstrapRetryAttempts, retryDelay)
		if err != nil {
			return nil, err
		}
		deps.DB = db
	}

	dc, err := drive.NewClient(ctx, cfg.CredentialsPath,
		drive.WithRateLimiter(drive.NewRateLimiter(cfg.DriveRequestsPerSecond, cfg.DriveBurst)),
		drive.WithMaxDownload(cfg.DriveMaxDownloadMB<<20),
	)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("drive client error: %w", err)
	}
	deps.Drive = dc

	if cfg.EnableNotify {
		producer, err := nsq.NewProducer(cfg.NSQDHost, nsq.NewConfig())
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("nsq producer error: %w", err)
		}
		deps.NSQProducer = producer
		createTopics(ctx, cfg.NSQDHTTP)
	}

	return deps, nil
}

// OpenDB connects to Postgres, retrying the ping, and applies migrations.
func OpenDB(ctx context.Context, dsn string, attempts int, delay time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	_, err = retry.Do(ctx, max(attempts, 1), func(int) time.Duration { return delay }, func(ctx context.Context, attempt int) error {
		if err := db.PingContext(ctx); err != nil {
			slog.WarnContext(ctx, "failed to ping db, retrying...", "attempt", attempt)
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if err := history.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func createTopics(ctx context.Context, nsqdHTTP string) {
	for _, topic := range []string{config.TopicCollectionResult, config.TopicRunResult} {
		url := fmt.Sprintf("http://%s/topic/create?topic=%s", nsqdHTTP, topic)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
		if err != nil {
			slog.WarnContext(ctx, "failed to build NSQ topic request", "topic", topic, "error", err)
			continue
		}
		resp, err := http.DefaultClient.Do(req) // #nosec G107 -- URL is built from NSQ config, not user input
		if err != nil {
			slog.WarnContext(ctx, "failed to create NSQ topic", "topic", topic, "error", err)
			continue
		}
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.WarnContext(ctx, "failed to close NSQ topic creation response body", "error", closeErr)
		}
	}
}

// EnsureCollectionWithRetry creates the collection, retrying while the store
// is still starting up.
func EnsureCollectionWithRetry(ctx context.Context, store vector.Store, name string, dimension, attempts int, delay time.Duration) error {
	_, err := retry.Do(ctx, max(attempts, 1), func(int) time.Duration { return delay }, func(ctx context.Context, _ int) error {
		return store.Create(ctx, name, dimension)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	return err
}
