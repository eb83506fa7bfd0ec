package release

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"tourbook/pkg/clock"
	"tourbook/pkg/config"
	"tourbook/pkg/logger"
	"tourbook/pkg/model"
)

type mockReleaser struct {
	mu          sync.Mutex
	releaseFunc func(ctx context.Context, resourceKey string, dates []time.Time, bookingRef string) error
	calls       int
}

func (m *mockReleaser) Release(ctx context.Context, resourceKey string, dates []time.Time, bookingRef string) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.releaseFunc != nil {
		return m.releaseFunc(ctx, resourceKey, dates, bookingRef)
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Log:                  logger.Discard(),
		ReleaseSweepInterval: 30 * time.Second,
		ReleaseMaxBackoff:    10 * time.Minute,
		ReleaseBatchSize:     10,
	}
}

func TestSweepOnce_RemovesReleasedTasks(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC)
	queue := NewMemoryQueue(clock.Fixed(now))
	releaser := &mockReleaser{}
	sweeper := NewSweeper(queue, releaser, clock.Fixed(now), testConfig())

	task := &model.ReleaseTask{
		ResourceKey:   "room:h1:r1",
		Dates:         []time.Time{time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC)},
		BookingRef:    "b1",
		NextAttemptAt: now,
	}
	if err := queue.Enqueue(ctx, task); err != nil {
		t.Fatal(err)
	}

	released, err := sweeper.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce failed: %v", err)
	}
	if released != 1 || releaser.calls != 1 {
		t.Errorf("released = %d, calls = %d, want 1 and 1", released, releaser.calls)
	}
	if count, _ := queue.Count(ctx); count != 0 {
		t.Errorf("expected empty queue, got %d", count)
	}
}

func TestSweepOnce_RetriesWithBackoffUntilSuccess(t *testing.T) {
	ctx := context.Background()
	clk := clock.Fixed(time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC))
	queue := NewMemoryQueue(clk)
	failures := 3
	releaser := &mockReleaser{
		releaseFunc: func(context.Context, string, []time.Time, string) error {
			if failures > 0 {
				failures--
				return errors.New("storage unavailable")
			}
			return nil
		},
	}
	cfg := testConfig()
	sweeper := NewSweeper(queue, releaser, clk, cfg)

	if err := queue.Enqueue(ctx, &model.ReleaseTask{ResourceKey: "tour:t1", BookingRef: "b1", NextAttemptAt: clk.Now()}); err != nil {
		t.Fatal(err)
	}

	for attempt := 1; attempt <= 3; attempt++ {
		if released, _ := sweeper.SweepOnce(ctx); released != 0 {
			t.Fatalf("attempt %d: expected failure", attempt)
		}

		if released, _ := sweeper.SweepOnce(ctx); released != 0 || releaser.calls != attempt {
			t.Fatalf("attempt %d: task must not be retried before its backoff elapses", attempt)
		}

		due, _ := queue.Due(ctx, clk.Now().Add(sweeper.Backoff(attempt)), 10)
		if len(due) != 1 || due[0].Attempts != attempt || due[0].LastError == "" {
			t.Fatalf("attempt %d: unexpected task state %+v", attempt, due)
		}
		clk.Advance(sweeper.Backoff(attempt))
	}

	released, err := sweeper.SweepOnce(ctx)
	if err != nil || released != 1 {
		t.Fatalf("expected final attempt to succeed, released=%d err=%v", released, err)
	}
	if count, _ := queue.Count(ctx); count != 0 {
		t.Errorf("expected empty queue, got %d", count)
	}
}

func TestBackoff(t *testing.T) {
	sweeper := NewSweeper(NewMemoryQueue(clock.System()), &mockReleaser{}, clock.System(), testConfig())

	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{1, 30 * time.Second},
		{2, time.Minute},
		{3, 2 * time.Minute},
		{5, 8 * time.Minute},
		{6, 10 * time.Minute},
		{60, 10 * time.Minute},
	}

	for _, tt := range tests {
		if got := sweeper.Backoff(tt.attempts); got != tt.want {
			t.Errorf("Backoff(%d) = %s, want %s", tt.attempts, got, tt.want)
		}
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.ReleaseSweepInterval = time.Millisecond
	sweeper := NewSweeper(NewMemoryQueue(clock.System()), &mockReleaser{}, clock.System(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestEnqueue_StampsFromQueueClock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC)
	queue := NewMemoryQueue(clock.Fixed(now))

	if err := queue.Enqueue(ctx, &model.ReleaseTask{ResourceKey: "tour:t1", BookingRef: "b1"}); err != nil {
		t.Fatal(err)
	}

	due, err := queue.Due(ctx, now, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 {
		t.Fatalf("expected the task to be due at the queue's now, got %d", len(due))
	}
	if !due[0].CreatedAt.Equal(now) || !due[0].NextAttemptAt.Equal(now) {
		t.Errorf("CreatedAt = %s, NextAttemptAt = %s, want both %s", due[0].CreatedAt, due[0].NextAttemptAt, now)
	}
}
