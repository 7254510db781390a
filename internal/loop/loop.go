// Package loop provides the single event loop that owns all kiosk state.
//
// Capture and attendance state is only ever touched from functions running
// on the loop. Timers and remote-call completions never mutate state
// directly: they post a function back onto the loop, so every state change
// happens in a deterministic order and no locking is required.
package loop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kozaktomas/bundy-kiosk/internal/constants"
)

// ErrStopped is returned by Do once the loop has stopped running.
var ErrStopped = errors.New("event loop stopped")

// Timer is a cancelable scheduled callback. Stop is idempotent and must be
// called from the loop; stopping a timer that already fired is a no-op.
type Timer interface {
	Stop()
}

// Scheduler is the subset of the loop that components depend on.
type Scheduler interface {
	// Post queues fn to run on the loop. Safe to call from any goroutine.
	Post(fn func())
	// AfterFunc runs fn on the loop after d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
	// Now returns the loop's notion of the current time.
	Now() time.Time
}

// Runner is a Scheduler that can also run a function synchronously on the
// loop, used by callers living on other goroutines (HTTP handlers, CLI).
type Runner interface {
	Scheduler
	Do(ctx context.Context, fn func()) error
}

// Loop is the production Scheduler backed by a single goroutine.
type Loop struct {
	tasks    chan func()
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a loop. Nothing runs until Run is called.
func New() *Loop {
	return &Loop{
		tasks: make(chan func(), constants.LoopQueueSize),
		done:  make(chan struct{}),
	}
}

// Run executes posted functions in order until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stopOnce.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post queues fn. After the loop has stopped, fn is dropped.
func (l *Loop) Post(fn func()) {
	select {
	case l.tasks <- fn:
	case <-l.done:
	}
}

// Do runs fn on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Now returns the wall clock time.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules fn on the loop. The stop flag is checked on the loop
// itself, so a timer stopped after its deadline passed but before its
// callback was dequeued still never fires.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	lt := &loopTimer{}
	lt.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if lt.stopped {
				return
			}
			lt.stopped = true
			fn()
		})
	})
	return lt
}

type loopTimer struct {
	t       *time.Timer
	stopped bool // loop goroutine only
}

func (t *loopTimer) Stop() {
	t.stopped = true
	t.t.Stop()
}
