package service

import (
	"context"
	"sync"
	"time"

	"shoply/internal/metrics"
	"shoply/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cleanupLeaseKey = "shoply:cleanup:lease"

// cleanupStore is the slice of the notification repository the scheduler
// needs.
type cleanupStore interface {
	CountExpired(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteExpiredBatch(ctx context.Context, cutoff time.Time, limit int) (int64, error)
	Stats(ctx context.Context, cutoff time.Time) (*repository.CleanupStats, error)
}

type CleanupResult struct {
	Deleted int64  `json:"deleted"`
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
}

// CleanupService deletes read, non-ORDER_UPDATE notifications past the
// retention cutoff in bounded batches. The in-process guard gives
// single-flight and rate-limit semantics within one instance; the optional
// Redis lease extends that across instances. Note ORDER_UPDATE rows are
// never deleted, so order history grows without bound.
type CleanupService struct {
	store         cleanupStore
	rdb           *redis.Client
	logger        *zap.Logger
	retention     time.Duration
	minInterval   time.Duration
	batchSize     int
	lazyThreshold int64

	mu         sync.Mutex
	inProgress bool
	lastRun    time.Time
}

func NewCleanupService(store cleanupStore, rdb *redis.Client, retention, minInterval time.Duration, batchSize int, lazyThreshold int64, logger *zap.Logger) *CleanupService {
	return &CleanupService{
		store:         store,
		rdb:           rdb,
		logger:        logger,
		retention:     retention,
		minInterval:   minInterval,
		batchSize:     batchSize,
		lazyThreshold: lazyThreshold,
	}
}

// SmartCleanup runs one bounded cleanup pass. It skips when a pass is in
// flight or the previous pass completed within the rate-limit interval.
// The returned error is informational: callers log and swallow it.
func (s *CleanupService) SmartCleanup(ctx context.Context) (*CleanupResult, error) {
	s.mu.Lock()
	if s.inProgress {
		s.mu.Unlock()
		metrics.CleanupRunsTotal.WithLabelValues("skipped").Inc()
		return &CleanupResult{Skipped: true, Reason: "cleanup already in progress"}, nil
	}
	if !s.lastRun.IsZero() && time.Since(s.lastRun) < s.minInterval {
		s.mu.Unlock()
		metrics.CleanupRunsTotal.WithLabelValues("skipped").Inc()
		return &CleanupResult{Skipped: true, Reason: "cleanup ran recently"}, nil
	}
	s.inProgress = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inProgress = false
		s.mu.Unlock()
	}()

	if !s.acquireLease(ctx) {
		metrics.CleanupRunsTotal.WithLabelValues("skipped").Inc()
		return &CleanupResult{Skipped: true, Reason: "another instance holds the cleanup lease"}, nil
	}

	cutoff := time.Now().Add(-s.retention)
	var deleted int64
	for {
		n, err := s.store.DeleteExpiredBatch(ctx, cutoff, s.batchSize)
		deleted += n
		if err != nil {
			// no per-batch retry: report what we got and wait for the next trigger
			metrics.CleanupRunsTotal.WithLabelValues("error").Inc()
			return &CleanupResult{Deleted: deleted}, err
		}
		if n < int64(s.batchSize) {
			break
		}
	}

	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()

	metrics.CleanupRunsTotal.WithLabelValues("run").Inc()
	metrics.CleanupDeletedTotal.Add(float64(deleted))
	s.logger.Info("cleanup completed", zap.Int64("deleted", deleted))
	return &CleanupResult{Deleted: deleted}, nil
}

// acquireLease takes the cross-instance lease when Redis is configured.
// Redis errors fail open: a broken cache must not stop cleanup entirely.
func (s *CleanupService) acquireLease(ctx context.Context) bool {
	if s.rdb == nil {
		return true
	}
	ok, err := s.rdb.SetNX(ctx, cleanupLeaseKey, 1, s.minInterval).Result()
	if err != nil {
		s.logger.Warn("cleanup lease check failed, proceeding", zap.Error(err))
		return true
	}
	return ok
}

// LazyCleanup is the opportunistic trigger wired into read paths. It only
// pays the cost of a count; the actual pass runs in the background and only
// past the high-water mark, so ordinary traffic stays cheap.
func (s *CleanupService) LazyCleanup(ctx context.Context) {
	cutoff := time.Now().Add(-s.retention)
	count, err := s.store.CountExpired(ctx, cutoff)
	if err != nil {
		s.logger.Warn("lazy cleanup count failed", zap.Error(err))
		return
	}
	if count < s.lazyThreshold {
		return
	}
	go func() {
		if _, err := s.SmartCleanup(context.Background()); err != nil {
			s.logger.Warn("lazy cleanup failed", zap.Error(err))
		}
	}()
}

// Stats reports totals for the admin endpoint.
func (s *CleanupService) Stats(ctx context.Context) (*repository.CleanupStats, error) {
	cutoff := time.Now().Add(-s.retention)
	stats, err := s.store.Stats(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if !s.lastRun.IsZero() {
		t := s.lastRun
		stats.LastRun = &t
	}
	s.mu.Unlock()
	return stats, nil
}

// Run drives periodic cleanup until ctx is cancelled; errors are logged and
// swallowed, never propagated.
func (s *CleanupService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SmartCleanup(ctx); err != nil {
				s.logger.Warn("scheduled cleanup failed", zap.Error(err))
			}
		}
	}
}
