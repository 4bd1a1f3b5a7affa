package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type blockingSweeper struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	at      time.Time
}

func (b *blockingSweeper) Sweep(_ context.Context, now time.Time) (int, error) {
	b.calls.Add(1)
	b.at = now
	if b.started != nil {
		close(b.started)
		<-b.release
	}
	return 1, nil
}

type recordingPlanner struct {
	lookahead time.Duration
	err       error
}

func (p *recordingPlanner) PlanWindowReminders(_ context.Context, _ time.Time, lookahead time.Duration) (int, error) {
	p.lookahead = lookahead
	return 0, p.err
}

func TestRunMissedSweep_UsesClock(t *testing.T) {
	sweeper := &blockingSweeper{}
	s := NewCheckInScheduler(sweeper, &recordingPlanner{}, time.Hour, zap.NewNop())
	fixed := time.Date(2024, time.June, 7, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.RunMissedSweep(context.Background()))
	assert.Equal(t, fixed, sweeper.at)
	assert.Equal(t, fixed, s.lastSweepTime)
}

func TestRunMissedSweep_SkipsWhileRunning(t *testing.T) {
	sweeper := &blockingSweeper{started: make(chan struct{}), release: make(chan struct{})}
	s := NewCheckInScheduler(sweeper, &recordingPlanner{}, time.Hour, zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.RunMissedSweep(context.Background()))
	}()

	<-sweeper.started
	require.NoError(t, s.RunMissedSweep(context.Background()))
	close(sweeper.release)
	wg.Wait()

	assert.Equal(t, int32(1), sweeper.calls.Load())
}

func TestRunReminderPlanning(t *testing.T) {
	planner := &recordingPlanner{}
	s := NewCheckInScheduler(&blockingSweeper{}, planner, 6*time.Hour, zap.NewNop())

	require.NoError(t, s.RunReminderPlanning(context.Background()))
	assert.Equal(t, 6*time.Hour, planner.lookahead)

	planner.err = assert.AnError
	assert.ErrorIs(t, s.RunReminderPlanning(context.Background()), assert.AnError)

	// 出错后不会卡住后续执行
	planner.err = nil
	assert.NoError(t, s.RunReminderPlanning(context.Background()))
}

func TestRunEvery_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32

	done := make(chan struct{})
	go func() {
		RunEvery(ctx, "test", time.Hour, time.Second, zap.NewNop(), func(context.Context) error {
			if runs.Add(1) == 1 {
				cancel()
			}
			return nil
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop after cancel")
	}
	assert.Equal(t, int32(1), runs.Load())
}
