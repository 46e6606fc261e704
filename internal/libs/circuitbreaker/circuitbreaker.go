// Package circuitbreaker implements a three-state (closed/open/half-open)
// breaker, keyed per dependency name so that, e.g., Binance and
// CoinMarketCap failures are tracked independently.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State is one of the breaker's three lifecycle states.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// ErrOpen is returned by Call when Allow refuses the call: the breaker is
// open and the recovery timeout has not yet elapsed, or a half-open trial
// call is already in flight.
var ErrOpen = errors.New("circuitbreaker: open")

// Breaker is a single named circuit, safe for concurrent use.
type Breaker struct {
	failureThreshold int
	failureWindow    time.Duration
	recoveryTimeout  time.Duration

	mu          sync.Mutex
	state       State
	failures    []time.Time
	openedAt    time.Time
	halfOpenHit bool
}

// Config carries the thresholds from config.CircuitBreakerConfig.
type Config struct {
	FailureThreshold int
	FailureWindow    time.Duration
	RecoveryTimeout  time.Duration
}

func New(cfg Config) *Breaker {
	return &Breaker{
		failureThreshold: cfg.FailureThreshold,
		failureWindow:    cfg.FailureWindow,
		recoveryTimeout:  cfg.RecoveryTimeout,
		state:            Closed,
	}
}

// Allow reports whether a call should proceed, transitioning Open->HalfOpen
// once the recovery timeout has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if time.Since(b.openedAt) >= b.recoveryTimeout {
			b.state = HalfOpen
			b.halfOpenHit = false
			return true
		}
		return false
	case HalfOpen:
		if b.halfOpenHit {
			return false
		}
		b.halfOpenHit = true
		return true
	default:
		return true
	}
}

// Success records a successful call, closing the breaker if it was
// half-open: a single trial success restores normal operation.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = nil
	b.state = Closed
}

// Failure records a failed call, opening the breaker if the failure
// threshold within the failure window has been reached, or immediately
// reopening it from half-open (a trial call that fails extends the outage).
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == HalfOpen {
		b.trip()
		return
	}

	now := time.Now()
	b.failures = append(b.failures, now)
	b.failures = trim(b.failures, now, b.failureWindow)

	if len(b.failures) >= b.failureThreshold {
		b.trip()
	}
}

func (b *Breaker) trip() {
	b.state = Open
	b.openedAt = time.Now()
	b.failures = nil
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func trim(failures []time.Time, now time.Time, window time.Duration) []time.Time {
	cut := 0
	for i, t := range failures {
		if now.Sub(t) <= window {
			cut = i
			break
		}
		cut = i + 1
	}
	return failures[cut:]
}

// Call runs fn only if Allow() permits it, recording the outcome.
func (b *Breaker) Call(fn func() error) error {
	if !b.Allow() {
		return ErrOpen
	}

	if err := fn(); err != nil {
		b.Failure()
		return err
	}

	b.Success()
	return nil
}

// Registry hands out per-dependency breakers, creating them lazily from a
// shared Config — one circuit breaker per external dependency.
type Registry struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]*Breaker
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg, breakers: make(map[string]*Breaker)}
}

func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := New(r.cfg)
	r.breakers[name] = b
	return b
}
