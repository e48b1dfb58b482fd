package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mtlprog/worklens/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fireRecorder struct {
	mu    sync.Mutex
	fires []fire
	done  chan struct{}
}

type fire struct {
	taskID string
	delay  time.Duration
}

func newFireRecorder() *fireRecorder {
	return &fireRecorder{done: make(chan struct{}, 16)}
}

func (r *fireRecorder) callback(_ context.Context, taskID string, delay time.Duration) {
	r.mu.Lock()
	r.fires = append(r.fires, fire{taskID: taskID, delay: delay})
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *fireRecorder) wait(t *testing.T) fire {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for scheduler fire")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fires[len(r.fires)-1]
}

func (r *fireRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fires)
}

func TestScheduler_FiresAfterDelay(t *testing.T) {
	rec := newFireRecorder()
	s := scheduler.New(rec.callback)
	defer s.Close()

	s.Schedule("task-1", 10*time.Millisecond)
	assert.True(t, s.Pending("task-1"))

	fired := rec.wait(t)
	assert.Equal(t, "task-1", fired.taskID)
	assert.Equal(t, 10*time.Millisecond, fired.delay)
	assert.False(t, s.Pending("task-1"))
}

func TestScheduler_ReplacesPendingEntry(t *testing.T) {
	rec := newFireRecorder()
	s := scheduler.New(rec.callback)
	defer s.Close()

	// The first schedule is far out; the replacement fires first and the
	// original must never fire.
	s.Schedule("task-1", time.Hour)
	s.Schedule("task-1", 10*time.Millisecond)

	fired := rec.wait(t)
	assert.Equal(t, 10*time.Millisecond, fired.delay)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestScheduler_Cancel(t *testing.T) {
	rec := newFireRecorder()
	s := scheduler.New(rec.callback)
	defer s.Close()

	s.Schedule("task-1", 20*time.Millisecond)
	s.Cancel("task-1")
	assert.False(t, s.Pending("task-1"))

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
}

func TestScheduler_IndependentTasks(t *testing.T) {
	rec := newFireRecorder()
	s := scheduler.New(rec.callback)
	defer s.Close()

	s.Schedule("task-1", 10*time.Millisecond)
	s.Schedule("task-2", 15*time.Millisecond)

	rec.wait(t)
	rec.wait(t)

	require.Equal(t, 2, rec.count())
}

func TestScheduler_CloseDropsPending(t *testing.T) {
	rec := newFireRecorder()
	s := scheduler.New(rec.callback)

	s.Schedule("task-1", 20*time.Millisecond)
	s.Close()

	assert.False(t, s.Pending("task-1"))
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, rec.count())

	// Scheduling after close is a no-op.
	s.Schedule("task-2", time.Millisecond)
	assert.False(t, s.Pending("task-2"))
}
