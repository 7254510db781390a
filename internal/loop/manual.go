package loop

import (
	"context"
	"sync"
	"time"
)

// Manual is a Scheduler driven by hand with a virtual clock. Time only moves
// when Advance is called, which makes countdown and auto-reset behaviour
// reproducible in tests. Post is safe from any goroutine so fake remote
// services can complete asynchronously; the posted work runs when the
// driving goroutine calls RunPending, Advance or RunUntil.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	queue  []func()
	timers []*manualTimer
	seq    uint64
	wake   chan struct{}
}

// NewManual creates a manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start, wake: make(chan struct{}, 1)}
}

type manualTimer struct {
	m       *Manual
	at      time.Time
	seq     uint64
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	t.m.removeTimer(t)
}

// Post queues fn.
func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// AfterFunc schedules fn at Now()+d on the virtual clock.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, at: m.now.Add(d), seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Do runs fn immediately on the calling goroutine, which is the loop.
func (m *Manual) Do(_ context.Context, fn func()) error {
	fn()
	return nil
}

// Pending reports how many timers are scheduled and not stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// RunPending runs queued work, including work queued while running, until
// the queue is empty.
func (m *Manual) RunPending() {
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}
		fn := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		fn()
	}
}

// Advance moves the clock forward by d, firing due timers in deadline order
// (ties in scheduling order) and draining posted work after each one.
func (m *Manual) Advance(d time.Duration) {
	m.RunPending()
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDue(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			m.RunPending()
			return
		}
		next.stopped = true
		m.removeTimer(next)
		m.now = next.at
		m.mu.Unlock()

		next.fn()
		m.RunPending()
	}
}

// RunUntil drains posted work until cond holds or timeout (wall clock)
// elapses. It is used to wait for goroutines that post results back.
func (m *Manual) RunUntil(cond func() bool, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		m.RunPending()
		if cond() {
			return true
		}
		select {
		case <-m.wake:
		case <-deadline:
			m.RunPending()
			return cond()
		}
	}
}

func (m *Manual) nextDue(target time.Time) *manualTimer {
	var next *manualTimer
	for _, t := range m.timers {
		if t.at.After(target) {
			continue
		}
		if next == nil || t.at.Before(next.at) || (t.at.Equal(next.at) && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

func (m *Manual) removeTimer(t *manualTimer) {
	for i, other := range m.timers {
		if other == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}
