// Package scheduler runs every automation callback on a single event loop
// backed by an ordered, cancellable delay queue.
package scheduler

import (
	"container/heap"
	"context"
	"runtime/debug"
	"sync"
	"time"

	"ignite/internal/logger"
)

// Handle identifies a posted task. The zero Handle refers to nothing.
type Handle uint64

// Valid reports whether h was returned by Post
func (h Handle) Valid() bool { return h != 0 }

// Task is a unit of work run on the loop goroutine
type Task func(ctx context.Context)

// Scheduler is the part of Loop that components post work through
type Scheduler interface {
	Post(delay time.Duration, name string, fn Task) Handle
	Cancel(h Handle)
	Now() time.Time
}

var _ Scheduler = (*Loop)(nil)

// Clock supplies the loop's notion of now
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RealClock is the wall clock
var RealClock Clock = realClock{}

type task struct {
	handle   Handle
	name     string
	deadline time.Time
	seq      uint64
	fn       Task
	index    int
}

type taskHeap []*task

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *taskHeap) Push(x interface{}) {
	t := x.(*task)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Loop is a single-goroutine scheduler. Post and Cancel are safe from any
// goroutine; tasks always run on the goroutine that drives the loop.
type Loop struct {
	mu      sync.Mutex
	clock   Clock
	queue   taskHeap
	pending map[Handle]*task
	nextID  uint64
	seq     uint64
	wake    chan struct{}
}

// New creates a loop driven by clock. A nil clock means the wall clock.
func New(clock Clock) *Loop {
	if clock == nil {
		clock = RealClock
	}
	return &Loop{
		clock:   clock,
		pending: make(map[Handle]*task),
		wake:    make(chan struct{}, 1),
	}
}

// Now returns the loop clock's current time
func (l *Loop) Now() time.Time {
	return l.clock.Now()
}

// Post schedules fn to run after delay. Tasks with equal deadlines run in post order.
func (l *Loop) Post(delay time.Duration, name string, fn Task) Handle {
	if delay < 0 {
		delay = 0
	}

	l.mu.Lock()
	l.nextID++
	l.seq++
	t := &task{
		handle:   Handle(l.nextID),
		name:     name,
		deadline: l.clock.Now().Add(delay),
		seq:      l.seq,
		fn:       fn,
	}
	heap.Push(&l.queue, t)
	l.pending[t.handle] = t
	l.mu.Unlock()

	logger.Debug("scheduler").
		Str("task", name).
		Uint64("handle", uint64(t.handle)).
		Dur("delay", delay).
		Msg("Task posted")

	l.signal()
	return t.handle
}

// Cancel removes a pending task. Cancelling a fired, cancelled or unknown handle is a no-op.
func (l *Loop) Cancel(h Handle) {
	if !h.Valid() {
		return
	}

	l.mu.Lock()
	t, ok := l.pending[h]
	if ok {
		delete(l.pending, h)
		heap.Remove(&l.queue, t.index)
	}
	l.mu.Unlock()

	if ok {
		logger.Debug("scheduler").
			Str("task", t.name).
			Uint64("handle", uint64(h)).
			Msg("Task cancelled")
		l.signal()
	}
}

// IsPending reports whether h is queued and has not fired
func (l *Loop) IsPending(h Handle) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.pending[h]
	return ok
}

// Len returns the number of queued tasks
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// NextDeadline returns the earliest queued deadline
func (l *Loop) NextDeadline() (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return time.Time{}, false
	}
	return l.queue[0].deadline, true
}

// RunDue runs every task whose deadline is not after now, including tasks
// posted by those tasks that are already due. It returns how many ran.
func (l *Loop) RunDue(ctx context.Context) int {
	ran := 0
	for {
		t := l.popDue()
		if t == nil {
			return ran
		}
		l.runTask(ctx, t)
		ran++
	}
}

// Run drives the loop in real time until ctx is cancelled
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.RunDue(ctx)

		var timerC <-chan time.Time
		var timer *time.Timer
		if deadline, ok := l.NextDeadline(); ok {
			timer = time.NewTimer(deadline.Sub(l.clock.Now()))
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case <-l.wake:
		case <-timerC:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// RunUntilIdle drives the loop in real time until the queue is empty or ctx is cancelled
func (l *Loop) RunUntilIdle(ctx context.Context) error {
	for {
		l.RunDue(ctx)

		deadline, ok := l.NextDeadline()
		if !ok {
			return nil
		}

		timer := time.NewTimer(deadline.Sub(l.clock.Now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-l.wake:
		case <-timer.C:
		}
		timer.Stop()
	}
}

func (l *Loop) popDue() *task {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil
	}
	if l.queue[0].deadline.After(l.clock.Now()) {
		return nil
	}
	t := heap.Pop(&l.queue).(*task)
	delete(l.pending, t.handle)
	return t
}

func (l *Loop) runTask(ctx context.Context, t *task) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic("scheduler", r, string(debug.Stack()))
		}
	}()
	logger.Debug("scheduler").Str("task", t.name).Msg("Task running")
	t.fn(ctx)
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
