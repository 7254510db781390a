package loop

import (
	"context"
	"errors"
	"testing"
	"time"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return l
}

func TestLoop_RunsPostedInOrder(t *testing.T) {
	l := startLoop(t)

	var got []int
	for i := range 5 {
		l.Post(func() { got = append(got, i) })
	}
	if err := l.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	for i, v := range got {
		if v != i {
			t.Fatalf("expected in-order execution, got %v", got)
		}
	}
	if len(got) != 5 {
		t.Errorf("expected 5 tasks to run, got %d", len(got))
	}
}

func TestLoop_TimerFires(t *testing.T) {
	l := startLoop(t)

	fired := make(chan struct{})
	l.Do(context.Background(), func() {
		l.AfterFunc(10*time.Millisecond, func() { close(fired) })
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestLoop_StoppedTimerNeverFires(t *testing.T) {
	l := startLoop(t)

	fired := make(chan struct{}, 1)
	l.Do(context.Background(), func() {
		timer := l.AfterFunc(5*time.Millisecond, func() { fired <- struct{}{} })
		// Block the loop past the deadline so the callback is already queued.
		time.Sleep(30 * time.Millisecond)
		timer.Stop()
		timer.Stop()
	})

	// Let any queued callback drain.
	time.Sleep(20 * time.Millisecond)
	l.Do(context.Background(), func() {})

	select {
	case <-fired:
		t.Error("stopped timer fired")
	default:
	}
}

func TestLoop_StopAfterFireIsNoop(t *testing.T) {
	l := startLoop(t)

	fired := make(chan struct{})
	var timer Timer
	l.Do(context.Background(), func() {
		timer = l.AfterFunc(time.Millisecond, func() { close(fired) })
	})
	<-fired
	l.Do(context.Background(), func() { timer.Stop() })
}

func TestLoop_DoAfterStop(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx)
	}()
	cancel()
	<-done

	err := l.Do(context.Background(), func() {})
	if !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}

func TestManual_AdvanceFiresInDeadlineOrder(t *testing.T) {
	m := NewManual(time.Unix(0, 0))

	var got []string
	m.AfterFunc(3*time.Second, func() { got = append(got, "c") })
	m.AfterFunc(time.Second, func() { got = append(got, "a") })
	m.AfterFunc(2*time.Second, func() { got = append(got, "b") })

	m.Advance(1500 * time.Millisecond)
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("expected only 'a' after 1.5s, got %v", got)
	}

	m.Advance(2 * time.Second)
	if len(got) != 3 || got[1] != "b" || got[2] != "c" {
		t.Errorf("expected a,b,c, got %v", got)
	}
	if m.Now() != time.Unix(0, 0).Add(3500*time.Millisecond) {
		t.Errorf("unexpected virtual time %v", m.Now())
	}
}

func TestManual_TimerScheduledByTimerFiresInSameAdvance(t *testing.T) {
	m := NewManual(time.Unix(0, 0))

	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		if ticks < 3 {
			m.AfterFunc(time.Second, tick)
		}
	}
	m.AfterFunc(time.Second, tick)

	m.Advance(10 * time.Second)
	if ticks != 3 {
		t.Errorf("expected 3 chained ticks, got %d", ticks)
	}
}

func TestManual_StopPreventsFire(t *testing.T) {
	m := NewManual(time.Unix(0, 0))

	fired := false
	timer := m.AfterFunc(time.Second, func() { fired = true })
	timer.Stop()
	timer.Stop()

	m.Advance(5 * time.Second)
	if fired {
		t.Error("stopped timer fired")
	}
	if m.Pending() != 0 {
		t.Errorf("expected no pending timers, got %d", m.Pending())
	}
}

func TestManual_RunUntilWaitsForPostedWork(t *testing.T) {
	m := NewManual(time.Unix(0, 0))

	done := false
	go func() {
		time.Sleep(5 * time.Millisecond)
		m.Post(func() { done = true })
	}()

	if !m.RunUntil(func() bool { return done }, 2*time.Second) {
		t.Fatal("RunUntil timed out")
	}
}
