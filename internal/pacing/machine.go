package pacing

import (
	"context"
	"sync"
	"time"
)

// DefaultCooldown is how long a learner must stay on a body before moving on.
const DefaultCooldown = 10 * time.Second

const tickInterval = time.Second

// State is a snapshot of one lesson visit.
type State struct {
	BodyIndex     int
	CanContinue   bool
	TimeRemaining int
}

type Options struct {
	Cooldown time.Duration
	Clock    Clock
	// OnChange receives every state transition, including countdown ticks.
	// It runs outside the machine's lock, possibly on the countdown
	// goroutine, so it must not call back into the machine synchronously.
	OnChange func(State)
}

// Machine gates forward progress through a lesson behind a per-body
// countdown. At most one countdown runs at a time and none survives Reset
// or Close.
type Machine struct {
	mu       sync.Mutex
	bodies   int
	cooldown int
	clock    Clock
	onChange func(State)

	state  State
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

func New(bodyCount int, opts Options) *Machine {
	cooldown := opts.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	secs := int(cooldown / tickInterval)
	if secs < 1 {
		secs = 1
	}
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}
	if bodyCount < 0 {
		bodyCount = 0
	}
	return &Machine{
		bodies:   bodyCount,
		cooldown: secs,
		clock:    clock,
		onChange: opts.OnChange,
		state:    State{CanContinue: true},
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) BodyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bodies
}

// IsLastBody reports whether the learner is on the final body. An empty
// lesson counts as already on its last body.
func (m *Machine) IsLastBody() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isLastLocked()
}

// CanComplete reports whether the level may be submitted as completed.
func (m *Machine) CanComplete() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed && m.isLastLocked() && m.state.CanContinue
}

// ResetLevel returns to the first body and cancels any running countdown.
func (m *Machine) ResetLevel() {
	m.mu.Lock()
	done := m.stopLocked()
	m.state = State{CanContinue: true}
	st := m.state
	m.mu.Unlock()
	wait(done)
	m.notify(st)
}

// NextBody advances one body and starts the cooldown. It returns false and
// changes nothing while a cooldown is running, on the last body, or after
// Close.
func (m *Machine) NextBody() bool {
	m.mu.Lock()
	if m.closed || !m.state.CanContinue || m.isLastLocked() {
		m.mu.Unlock()
		return false
	}
	done := m.stopLocked()
	m.state.BodyIndex++
	m.state.CanContinue = false
	m.state.TimeRemaining = m.cooldown
	m.startLocked()
	st := m.state
	m.mu.Unlock()
	wait(done)
	m.notify(st)
	return true
}

// Close cancels the countdown and waits for its goroutine to exit. The
// machine ignores further transitions.
func (m *Machine) Close() {
	m.mu.Lock()
	m.closed = true
	done := m.stopLocked()
	m.mu.Unlock()
	wait(done)
}

func (m *Machine) isLastLocked() bool {
	return m.state.BodyIndex >= m.bodies-1
}

func (m *Machine) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	m.gen++
	m.cancel = cancel
	done := make(chan struct{})
	m.done = done
	ticker := m.clock.NewTicker(tickInterval)
	go m.run(ctx, m.gen, ticker, done)
}

// stopLocked invalidates the running countdown. Any tick already waiting on
// the lock sees a stale generation and leaves state alone.
func (m *Machine) stopLocked() chan struct{} {
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	done := m.done
	m.done = nil
	return done
}

func (m *Machine) run(ctx context.Context, gen uint64, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if !m.tick(gen) {
				return
			}
		}
	}
}

func (m *Machine) tick(gen uint64) bool {
	m.mu.Lock()
	if gen != m.gen || m.closed {
		m.mu.Unlock()
		return false
	}
	m.state.TimeRemaining--
	finished := m.state.TimeRemaining <= 0
	if finished {
		m.state.TimeRemaining = 0
		m.state.CanContinue = true
		m.gen++
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		// done stays set until run exits, so Close and ResetLevel still wait
		// for the final notify below.
	}
	st := m.state
	m.mu.Unlock()
	m.notify(st)
	return !finished
}

func (m *Machine) notify(st State) {
	if m.onChange != nil {
		m.onChange(st)
	}
}

func wait(done chan struct{}) {
	if done != nil {
		<-done
	}
}
