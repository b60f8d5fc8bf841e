// Package resilience provides fault-tolerance primitives: a circuit breaker,
// exponential-backoff retry, and a context-bound timeout helper.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the phase of a circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig controls failure thresholds and recovery timing.
// OnStateChange, if set, runs outside the breaker's lock.
type BreakerConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	HalfOpenProbes   int
	OnStateChange    func(name string, from, to State)
}

func (c *BreakerConfig) applyDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 30 * time.Second
	}
	if c.HalfOpenProbes <= 0 {
		c.HalfOpenProbes = 1
	}
}

// Breaker trips open after FailureThreshold consecutive failures, then lets
// HalfOpenProbes calls through once ResetTimeout has elapsed.
type Breaker struct {
	name   string
	cfg    BreakerConfig
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probes   int
}

// NewBreaker creates a closed Breaker, filling in defaults for zero values.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	cfg.applyDefaults()
	return &Breaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
		now:    time.Now,
	}
}

// Do runs fn when the breaker admits the call and records the outcome.
func (b *Breaker) Do(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	from := b.setState(StateClosed)
	b.mu.Unlock()
	b.notify(from, StateClosed)
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	from := b.state
	if b.state == StateOpen {
		if wait := b.cfg.ResetTimeout - b.now().Sub(b.openedAt); wait > 0 {
			b.mu.Unlock()
			return fmt.Errorf("%w: %s (retry after %v)", ErrCircuitOpen, b.name, wait)
		}
		b.setState(StateHalfOpen)
	}
	if b.state == StateHalfOpen {
		if b.probes >= b.cfg.HalfOpenProbes {
			b.mu.Unlock()
			return fmt.Errorf("%w: %s (half-open probe limit reached)", ErrCircuitOpen, b.name)
		}
		b.probes++
	}
	to := b.state
	b.mu.Unlock()
	b.notify(from, to)
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	from := b.state
	switch {
	case err == nil:
		b.failures = 0
		if b.state == StateHalfOpen {
			b.setState(StateClosed)
		}
	default:
		b.failures++
		if b.state == StateHalfOpen || (b.state == StateClosed && b.failures >= b.cfg.FailureThreshold) {
			b.setState(StateOpen)
		}
	}
	to := b.state
	b.mu.Unlock()
	b.notify(from, to)
}

// setState must be called with mu held. It returns the previous state.
func (b *Breaker) setState(to State) State {
	from := b.state
	b.state = to
	b.probes = 0
	switch to {
	case StateOpen:
		b.openedAt = b.now()
	case StateClosed:
		b.failures = 0
	}
	return from
}

func (b *Breaker) notify(from, to State) {
	if from == to {
		return
	}
	b.logger.Info("circuit state changed", "from", from.String(), "to", to.String())
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.name, from, to)
	}
}
