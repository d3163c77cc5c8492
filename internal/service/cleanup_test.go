package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"shoply/internal/repository"

	"go.uber.org/zap"
)

// stubStore scripts batch results and can block mid-pass to expose the
// single-flight guard.
type stubStore struct {
	batches  []int64
	calls    int
	entered  chan struct{}
	release  chan struct{}
	batchErr error
}

func (s *stubStore) CountExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for _, b := range s.batches {
		total += b
	}
	return total, nil
}

func (s *stubStore) DeleteExpiredBatch(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	if s.entered != nil {
		s.entered <- struct{}{}
		<-s.release
	}
	if s.batchErr != nil {
		return 0, s.batchErr
	}
	if s.calls >= len(s.batches) {
		return 0, nil
	}
	n := s.batches[s.calls]
	s.calls++
	return n, nil
}

func (s *stubStore) Stats(ctx context.Context, cutoff time.Time) (*repository.CleanupStats, error) {
	return &repository.CleanupStats{}, nil
}

func newTestCleanup(store cleanupStore) *CleanupService {
	return NewCleanupService(store, nil, 30*24*time.Hour, 6*time.Hour, 500, 1000, zap.NewNop())
}

func TestSmartCleanupDrainsBatches(t *testing.T) {
	store := &stubStore{batches: []int64{500, 500, 120}}
	svc := newTestCleanup(store)

	res, err := svc.SmartCleanup(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped {
		t.Fatalf("unexpected skip: %s", res.Reason)
	}
	if res.Deleted != 1120 {
		t.Errorf("deleted = %d, want 1120", res.Deleted)
	}
	if store.calls != 3 {
		t.Errorf("batch calls = %d, want 3", store.calls)
	}
}

func TestSmartCleanupSingleFlight(t *testing.T) {
	store := &stubStore{
		batches: []int64{10},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := newTestCleanup(store)

	done := make(chan *CleanupResult)
	go func() {
		res, _ := svc.SmartCleanup(context.Background())
		done <- res
	}()
	<-store.entered // first pass is inside a batch

	second, err := svc.SmartCleanup(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !second.Skipped {
		t.Error("concurrent pass should have been skipped")
	}

	store.entered = nil
	close(store.release)
	first := <-done
	if first.Skipped || first.Deleted != 10 {
		t.Errorf("first pass: %+v", first)
	}
}

func TestSmartCleanupRecencySkip(t *testing.T) {
	store := &stubStore{batches: []int64{1}}
	svc := newTestCleanup(store)

	if res, _ := svc.SmartCleanup(context.Background()); res.Skipped {
		t.Fatalf("first pass skipped: %s", res.Reason)
	}
	res, err := svc.SmartCleanup(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Skipped {
		t.Error("pass within the rate-limit interval should be skipped")
	}
}

func TestSmartCleanupErrorDoesNotSetLastRun(t *testing.T) {
	store := &stubStore{batchErr: errors.New("lock wait timeout")}
	svc := newTestCleanup(store)

	if _, err := svc.SmartCleanup(context.Background()); err == nil {
		t.Fatal("expected batch error")
	}

	// a failed pass must not start the rate-limit clock
	store.batchErr = nil
	store.batches = []int64{5}
	res, err := svc.SmartCleanup(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped {
		t.Errorf("retry after failure was skipped: %s", res.Reason)
	}
	if res.Deleted != 5 {
		t.Errorf("deleted = %d, want 5", res.Deleted)
	}
}

func TestLazyCleanupBelowThreshold(t *testing.T) {
	store := &stubStore{
		batches: []int64{999},
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	close(store.release)
	svc := newTestCleanup(store)

	svc.LazyCleanup(context.Background())
	select {
	case <-store.entered:
		t.Error("count below the high-water mark must not trigger a pass")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLazyCleanupAboveThreshold(t *testing.T) {
	store := &stubStore{
		batches: []int64{1200},
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	close(store.release)
	svc := newTestCleanup(store)

	svc.LazyCleanup(context.Background())
	select {
	case <-store.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("count past the high-water mark should start a background pass")
	}
}

func TestStatsIncludesLastRun(t *testing.T) {
	store := &stubStore{batches: []int64{1}}
	svc := newTestCleanup(store)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.LastRun != nil {
		t.Error("last run should be unset before any pass")
	}

	if _, err := svc.SmartCleanup(context.Background()); err != nil {
		t.Fatal(err)
	}
	stats, err = svc.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.LastRun == nil {
		t.Error("last run should be set after a successful pass")
	}
}
