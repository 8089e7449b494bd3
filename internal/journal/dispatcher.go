package journal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-history/internal/adapter"
	"github.com/feral-file/ff-history/internal/domain"
	"github.com/feral-file/ff-history/internal/logger"
	"github.com/feral-file/ff-history/internal/uow"
)

// HookName is the after-commit hook the dispatcher registers on a session
const HookName = "journal.dispatch"

const (
	DEFAULT_POOL_SIZE         = 4
	DEFAULT_QUEUE_SIZE        = 1000
	DEFAULT_MAX_RETRY_ELAPSED = 5 * time.Minute
	DEFAULT_INITIAL_INTERVAL  = 500 * time.Millisecond
	DEFAULT_MAX_INTERVAL      = 30 * time.Second
)

// Config controls the publishing pool and retries
type Config struct {
	PoolSize        int
	QueueSize       int
	MaxRetryElapsed time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Dispatcher publishes the revisions of committed sessions from a bounded worker pool.
// Publishing happens after commit, so a failure never affects what was recorded.
type Dispatcher struct {
	ctx       context.Context
	cfg       Config
	publisher Publisher
	json      adapter.JSON
	canon     adapter.Canonicalizer
	clock     adapter.Clock
	pool      pond.Pool
}

// NewDispatcher creates a dispatcher. Its pool stops taking work when ctx is cancelled.
func NewDispatcher(ctx context.Context, cfg Config, publisher Publisher, jsonAdapter adapter.JSON, canon adapter.Canonicalizer, clock adapter.Clock) *Dispatcher {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DEFAULT_POOL_SIZE
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DEFAULT_QUEUE_SIZE
	}
	if cfg.MaxRetryElapsed <= 0 {
		cfg.MaxRetryElapsed = DEFAULT_MAX_RETRY_ELAPSED
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = DEFAULT_INITIAL_INTERVAL
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = DEFAULT_MAX_INTERVAL
	}

	pool := pond.NewPool(
		cfg.PoolSize,
		pond.WithQueueSize(cfg.QueueSize),
		pond.WithContext(ctx),
	)

	logger.InfoCtx(ctx, "Journal worker pool created",
		zap.Int("workers", cfg.PoolSize),
		zap.Int("queue_size", cfg.QueueSize))

	return &Dispatcher{
		ctx:       ctx,
		cfg:       cfg,
		publisher: publisher,
		json:      jsonAdapter,
		canon:     canon,
		clock:     clock,
		pool:      pool,
	}
}

// Attach registers the dispatcher on the session
func (d *Dispatcher) Attach(s *uow.Session) {
	s.OnAfterCommit(HookName, d.afterCommit)
}

func (d *Dispatcher) afterCommit(ctx context.Context, c *uow.Commit) {
	for _, event := range c.Events {
		rev, ok := event.(domain.Revision)
		if !ok {
			continue
		}
		if err := d.Prepare(&rev); err != nil {
			logger.ErrorCtx(ctx, errors.New("failed to prepare revision"), zap.Error(err),
				zap.String("table", rev.Table),
				zap.String("key", rev.KeyString()),
				zap.Int64("version", rev.Version))
			continue
		}
		d.pool.SubmitErr(func() error {
			return d.publish(&rev)
		})
	}
}

// Prepare assigns the revision ID and the snapshot digest
func (d *Dispatcher) Prepare(rev *domain.Revision) error {
	digest, err := Digest(d.json, d.canon, rev.Snapshot)
	if err != nil {
		return err
	}
	rev.Digest = digest
	rev.ID = ulid.MustNewDefault(d.clock.Now()).String()
	return nil
}

// Digest returns the hex SHA-256 of the canonical JSON form of snapshot
func Digest(jsonAdapter adapter.JSON, canon adapter.Canonicalizer, snapshot any) (string, error) {
	data, err := jsonAdapter.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	canonical, err := canon.Canonicalize(data)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize snapshot: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func (d *Dispatcher) publish(rev *domain.Revision) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.cfg.InitialInterval
	b.MaxInterval = d.cfg.MaxInterval
	b.MaxElapsedTime = d.cfg.MaxRetryElapsed

	operation := func() error {
		return d.publisher.PublishRevision(d.ctx, rev)
	}

	var attemptCount int
	notifyOnError := func(err error, duration time.Duration) {
		attemptCount++
		logger.WarnCtx(d.ctx, "Revision publish failed, retrying",
			zap.Error(err),
			zap.String("id", rev.ID),
			zap.Int("attempt", attemptCount),
			zap.Duration("next_retry_in", duration))
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, d.ctx), notifyOnError); err != nil {
		logger.ErrorCtx(d.ctx, errors.New("failed to publish revision"), zap.Error(err),
			zap.String("id", rev.ID),
			zap.String("subject", rev.Subject()),
			zap.Int("attempts", attemptCount+1))
		return err
	}
	return nil
}

// Stop waits for queued revisions to be published and stops the pool
func (d *Dispatcher) Stop() {
	logger.InfoCtx(d.ctx, "Shutting down journal worker pool",
		zap.Uint64("submitted", d.pool.SubmittedTasks()),
		zap.Uint64("waiting", d.pool.WaitingTasks()))

	d.pool.StopAndWait()

	logger.InfoCtx(d.ctx, "Journal worker pool shutdown complete",
		zap.Uint64("total_completed", d.pool.CompletedTasks()),
		zap.Uint64("total_failed", d.pool.FailedTasks()))
}
