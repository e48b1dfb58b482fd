// Package scheduler provides a lifecycle-managed delay queue for background
// task polling. A single goroutine drains a min-heap keyed by fire time, so
// tracking many tasks does not cost one OS timer per task. At most one
// pending schedule exists per task id; scheduling again replaces the
// previous entry.
package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Callback is invoked when a task's timer fires. firedDelay is the delay the
// entry was scheduled with, so the callback can derive the next backoff step.
type Callback func(ctx context.Context, taskID string, firedDelay time.Duration)

type entry struct {
	taskID    string
	fireAt    time.Time
	delay     time.Duration
	index     int
	cancelled bool
}

type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].fireAt.Before(h[j].fireAt) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *entryHeap) Push(x any)         { e := x.(*entry); e.index = len(*h); *h = append(*h, e) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Scheduler owns the delay queue and its worker goroutine.
type Scheduler struct {
	cb     Callback
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	heap    entryHeap
	entries map[string]*entry
	wake    chan struct{}
	closed  bool
}

// New creates a Scheduler and starts its worker goroutine.
func New(cb Callback) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cb:      cb,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*entry),
		wake:    make(chan struct{}, 1),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Schedule queues a fire for taskID after delay. Any pending entry for the
// same task id is replaced, guaranteeing a single in-flight schedule per task.
func (s *Scheduler) Schedule(taskID string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if prev, ok := s.entries[taskID]; ok {
		prev.cancelled = true
	}

	e := &entry{
		taskID: taskID,
		fireAt: time.Now().Add(delay),
		delay:  delay,
	}
	heap.Push(&s.heap, e)
	s.entries[taskID] = e
	s.notify()
}

// Cancel drops any pending entry for taskID.
func (s *Scheduler) Cancel(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[taskID]; ok {
		e.cancelled = true
		delete(s.entries, taskID)
		s.notify()
	}
}

// Pending reports whether taskID has a queued fire.
func (s *Scheduler) Pending(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[taskID]
	return ok
}

// Close stops the worker, drops pending entries, and waits for in-flight
// callbacks to return.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.entries = make(map[string]*entry)
	s.heap = nil
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		due, wait := s.collectDue()

		for _, e := range due {
			s.wg.Add(1)
			go func(e *entry) {
				defer s.wg.Done()
				s.cb(s.ctx, e.taskID, e.delay)
			}(e)
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		var fire <-chan time.Time
		if wait >= 0 {
			timer.Reset(wait)
			fire = timer.C
		}

		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		case <-fire:
		}
	}
}

// collectDue pops expired entries and returns how long to sleep until the
// next fire, or -1 when the queue is empty.
func (s *Scheduler) collectDue() ([]*entry, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var due []*entry
	for s.heap.Len() > 0 {
		e := s.heap[0]
		if e.cancelled {
			heap.Pop(&s.heap)
			continue
		}
		if e.fireAt.After(now) {
			break
		}
		heap.Pop(&s.heap)
		delete(s.entries, e.taskID)
		due = append(due, e)
	}

	wait := time.Duration(-1)
	if s.heap.Len() > 0 {
		wait = time.Until(s.heap[0].fireAt)
		if wait < 0 {
			wait = 0
		}
	}

	return due, wait
}
