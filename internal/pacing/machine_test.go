package pacing

import (
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

type manualClock struct {
	created chan *manualTicker
}

func newManualClock() *manualClock {
	return &manualClock{created: make(chan *manualTicker, 16)}
}

func (c *manualClock) NewTicker(time.Duration) Ticker {
	t := &manualTicker{c: make(chan time.Time)}
	c.created <- t
	return t
}

type manualTicker struct {
	c       chan time.Time
	stopped atomic.Bool
}

func (t *manualTicker) C() <-chan time.Time { return t.c }
func (t *manualTicker) Stop()               { t.stopped.Store(true) }

type harness struct {
	t       *testing.T
	m       *Machine
	clock   *manualClock
	changes chan State
}

func newHarness(t *testing.T, bodies int) *harness {
	h := &harness{t: t, clock: newManualClock(), changes: make(chan State, 64)}
	h.m = New(bodies, Options{Clock: h.clock, OnChange: func(s State) { h.changes <- s }})
	return h
}

func (h *harness) next() State {
	h.t.Helper()
	select {
	case s := <-h.changes:
		return s
	case <-time.After(2 * time.Second):
		h.t.Fatalf("timed out waiting for state change")
		return State{}
	}
}

func (h *harness) ticker() *manualTicker {
	h.t.Helper()
	select {
	case tk := <-h.clock.created:
		return tk
	case <-time.After(2 * time.Second):
		h.t.Fatalf("expected a countdown ticker")
		return nil
	}
}

// advance delivers one tick per simulated second and checks the countdown.
func (h *harness) advance(tk *manualTicker, seconds int) State {
	h.t.Helper()
	var last State
	for i := 0; i < seconds; i++ {
		before := h.m.State().TimeRemaining
		tk.c <- time.Now()
		last = h.next()
		if last.TimeRemaining != before-1 {
			h.t.Fatalf("expected remaining %d after tick, got %d", before-1, last.TimeRemaining)
		}
		if last.TimeRemaining > 0 && last.CanContinue {
			h.t.Fatalf("continue unlocked early at %d", last.TimeRemaining)
		}
	}
	return last
}

func TestResetLevelYieldsInitialState(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t, 3)
	if !h.m.NextBody() {
		t.Fatalf("expected first advance to succeed")
	}
	tk := h.ticker()
	h.next()

	h.m.ResetLevel()
	st := h.next()
	if st != (State{BodyIndex: 0, CanContinue: true, TimeRemaining: 0}) {
		t.Fatalf("unexpected reset state %#v", st)
	}
	if !tk.stopped.Load() {
		t.Fatalf("expected countdown ticker to be stopped on reset")
	}
	h.m.Close()
}

func TestNextBodyDuringCooldownIsNoop(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t, 3)
	h.m.NextBody()
	h.ticker()
	first := h.next()
	if first.BodyIndex != 1 || first.CanContinue || first.TimeRemaining != 10 {
		t.Fatalf("unexpected state after advance %#v", first)
	}

	if h.m.NextBody() {
		t.Fatalf("expected advance during cooldown to be rejected")
	}
	if got := h.m.State(); got != first {
		t.Fatalf("rejected advance changed state: %#v", got)
	}
	if len(h.clock.created) != 0 {
		t.Fatalf("rejected advance started another countdown")
	}
	h.m.Close()
}

func TestThreeBodyLessonReachesCompletion(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t, 3)

	for body := 1; body <= 2; body++ {
		if !h.m.NextBody() {
			t.Fatalf("advance to body %d rejected", body)
		}
		tk := h.ticker()
		h.next()
		st := h.advance(tk, 10)
		if st.BodyIndex != body || !st.CanContinue || st.TimeRemaining != 0 {
			t.Fatalf("unexpected state after cooldown %#v", st)
		}
	}

	if !h.m.IsLastBody() {
		t.Fatalf("expected to be on the last body")
	}
	if h.m.NextBody() {
		t.Fatalf("expected advance past the last body to be rejected")
	}
	if !h.m.CanComplete() {
		t.Fatalf("expected completion to be eligible")
	}
	h.m.Close()
	if h.m.CanComplete() {
		t.Fatalf("closed machine should not offer completion")
	}
}

func TestCanContinueStaysTrueUntilNextAdvance(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t, 4)
	h.m.NextBody()
	tk := h.ticker()
	h.next()
	h.advance(tk, 10)

	time.Sleep(20 * time.Millisecond)
	if st := h.m.State(); !st.CanContinue || st.TimeRemaining != 0 {
		t.Fatalf("expected settled state, got %#v", st)
	}
	if !tk.stopped.Load() {
		// Stop runs as the countdown goroutine exits.
		time.Sleep(50 * time.Millisecond)
		if !tk.stopped.Load() {
			t.Fatalf("expected ticker released after countdown")
		}
	}
	if h.m.CanComplete() {
		t.Fatalf("body 1 of 4 should not be completable")
	}
	h.m.Close()
}

func TestCloseCancelsCountdown(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t, 2)
	h.m.NextBody()
	tk := h.ticker()
	h.next()
	h.m.Close()
	if !tk.stopped.Load() {
		t.Fatalf("expected ticker stopped on close")
	}
	if h.m.NextBody() {
		t.Fatalf("expected closed machine to reject advances")
	}
	select {
	case st := <-h.changes:
		t.Fatalf("unexpected state change after close %#v", st)
	default:
	}
}

func TestCloseWaitsForFinalCountdownCallback(t *testing.T) {
	defer goleak.VerifyNone(t)
	clock := newManualClock()
	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	m := New(2, Options{Cooldown: time.Second, Clock: clock, OnChange: func(s State) {
		if s.BodyIndex == 1 && s.CanContinue {
			close(entered)
			<-release
			finished.Store(true)
		}
	}})

	if !m.NextBody() {
		t.Fatalf("expected advance to succeed")
	}
	tk := <-clock.created
	tk.c <- time.Now()
	<-entered

	closed := make(chan struct{})
	go func() {
		m.Close()
		close(closed)
	}()
	select {
	case <-closed:
		t.Fatalf("Close returned while the countdown callback was still running")
	case <-time.After(100 * time.Millisecond):
	}
	close(release)
	<-closed
	if !finished.Load() {
		t.Fatalf("expected the final callback to finish before Close returned")
	}
}

func TestSingleBodyLessonIsCompletableImmediately(t *testing.T) {
	m := New(1, Options{Clock: newManualClock()})
	defer m.Close()
	if m.NextBody() {
		t.Fatalf("single body lesson cannot advance")
	}
	if !m.CanComplete() {
		t.Fatalf("expected single body lesson to be completable")
	}
}

func TestRealClockCountdown(t *testing.T) {
	defer goleak.VerifyNone(t)
	done := make(chan State, 8)
	m := New(2, Options{Cooldown: time.Second, OnChange: func(s State) {
		if s.CanContinue {
			done <- s
		}
	}})
	m.NextBody()
	select {
	case st := <-done:
		if st.BodyIndex != 1 || st.TimeRemaining != 0 {
			t.Fatalf("unexpected state %#v", st)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("countdown never finished")
	}
	m.Close()
}
