package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *countingSweeper) SweepOverdue(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return 3, s.err
}

func (s *countingSweeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fixedLocker struct {
	ok       bool
	err      error
	released []string
}

func (l *fixedLocker) TryLock(context.Context, string, time.Duration) (string, bool, error) {
	if !l.ok || l.err != nil {
		return "", false, l.err
	}
	return "token-1", true, nil
}

func (l *fixedLocker) Unlock(_ context.Context, key, token string) error {
	l.released = append(l.released, key+"="+token)
	return nil
}

// blockingSweeper holds the sweep open until release is closed.
type blockingSweeper struct {
	started chan struct{}
	release chan struct{}
}

func (s *blockingSweeper) SweepOverdue(ctx context.Context) (int, error) {
	close(s.started)
	select {
	case <-s.release:
	case <-ctx.Done():
	}
	return 0, nil
}

func TestOverdueWorker_RunHonoursLock(t *testing.T) {
	tests := []struct {
		name     string
		locker   *fixedLocker
		want     int
		released []string
	}{
		{"no locker", nil, 1, nil},
		{"lock acquired", &fixedLocker{ok: true}, 1, []string{"lock:overdue_sweep=token-1"}},
		{"lock held elsewhere", &fixedLocker{ok: false}, 0, nil},
		{"lock error", &fixedLocker{err: errors.New("redis down")}, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &countingSweeper{}
			var locker Locker
			if tt.locker != nil {
				locker = tt.locker
			}
			NewOverdueWorker(s, locker, "@hourly").run(context.Background())
			assert.Equal(t, tt.want, s.count())
			if tt.locker != nil {
				assert.Equal(t, tt.released, tt.locker.released)
			}
		})
	}
}

func TestOverdueWorker_ReleasesLockAfterFailedSweep(t *testing.T) {
	locker := &fixedLocker{ok: true}
	s := &countingSweeper{err: errors.New("db gone")}
	NewOverdueWorker(s, locker, "@hourly").run(context.Background())
	assert.Equal(t, []string{"lock:overdue_sweep=token-1"}, locker.released)
}

func TestOverdueWorker_SweepErrorIsLogged(t *testing.T) {
	s := &countingSweeper{err: errors.New("db gone")}
	NewOverdueWorker(s, nil, "@hourly").run(context.Background())
	assert.Equal(t, 1, s.count())
}

func TestOverdueWorker_StartSweepsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &countingSweeper{}
	require.NoError(t, NewOverdueWorker(s, nil, "@every 1h").Start(ctx))
	assert.Eventually(t, func() bool { return s.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestOverdueWorker_StartDoesNotWaitForSweep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &blockingSweeper{started: make(chan struct{}), release: make(chan struct{})}
	defer close(s.release)

	done := make(chan error, 1)
	go func() { done <- NewOverdueWorker(s, nil, "@every 1h").Start(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start blocked on the first sweep")
	}
	select {
	case <-s.started:
	case <-time.After(time.Second):
		t.Fatal("first sweep never started")
	}
}

func TestOverdueWorker_InvalidSchedule(t *testing.T) {
	s := &countingSweeper{}
	err := NewOverdueWorker(s, nil, "every tuesday").Start(context.Background())
	require.Error(t, err)
	assert.Zero(t, s.count())
}

func TestOverdueWorker_SkipsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &countingSweeper{}
	NewOverdueWorker(s, nil, "@hourly").run(ctx)
	assert.Zero(t, s.count())
}
