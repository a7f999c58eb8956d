package breaker

import (
	"fmt"
	"sync"
	"time"

	"github.com/brokerops/charterlink/pkg/logger"
)

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
	}
	return "unknown"
}

type Config struct {
	FailureThreshold int
	SuccessThreshold int
	ResetTimeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		ResetTimeout:     60 * time.Second,
	}
}

// Metrics is a point-in-time snapshot of one breaker's health, exposed to
// callers as a health signal and embedded in rejection errors.
type Metrics struct {
	Service              string    `json:"service"`
	State                string    `json:"state"`
	ConsecutiveFailures  int       `json:"consecutive_failures"`
	ConsecutiveSuccesses int       `json:"consecutive_successes"`
	RejectedCalls        int64     `json:"rejected_calls"`
	LastFailure          time.Time `json:"last_failure,omitzero"`
}

// OpenError is returned for calls rejected while the circuit is open.
type OpenError struct {
	Service string
	Metrics Metrics
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit open for %s (%d consecutive failures)",
		e.Service, e.Metrics.ConsecutiveFailures)
}

// StateChange is emitted on every transition.
type StateChange struct {
	Service string
	From    State
	To      State
}

// Breaker guards one named external service with the usual
// closed/open/half-open protocol. All state is mutated under the mutex,
// synchronously with the call whose outcome triggered the change.
type Breaker struct {
	name string
	cfg  Config

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	rejected    int64
	lastFailure time.Time

	onStateChange func(StateChange)
	logger        *logger.Logger
	now           func() time.Time
}

func New(name string, cfg Config, log *logger.Logger) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = DefaultConfig().SuccessThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultConfig().ResetTimeout
	}
	return &Breaker{
		name:   name,
		cfg:    cfg,
		state:  StateClosed,
		logger: log.WithService(name),
		now:    time.Now,
	}
}

// OnStateChange registers a transition callback, invoked outside the
// breaker's lock.
func (b *Breaker) OnStateChange(fn func(StateChange)) {
	b.mu.Lock()
	b.onStateChange = fn
	b.mu.Unlock()
}

// Allow reports whether a call may proceed. While open it rejects with an
// OpenError until the reset timeout has elapsed, at which point one
// half-open probe window begins.
func (b *Breaker) Allow() error {
	b.mu.Lock()

	if b.state == StateOpen {
		if b.now().Sub(b.lastFailure) >= b.cfg.ResetTimeout {
			change := b.transition(StateHalfOpen)
			b.successes = 0
			b.mu.Unlock()
			b.emit(change)
			return nil
		}
		b.rejected++
		metrics := b.metricsLocked()
		b.mu.Unlock()
		b.logger.Warn("call rejected, circuit open",
			"consecutive_failures", metrics.ConsecutiveFailures,
			"rejected_calls", metrics.RejectedCalls,
		)
		return &OpenError{Service: b.name, Metrics: metrics}
	}

	b.mu.Unlock()
	return nil
}

// RecordSuccess notes a successful call outcome.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	var change *StateChange

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			c := b.transition(StateClosed)
			b.failures = 0
			b.successes = 0
			change = &c
		}
	}

	b.mu.Unlock()
	if change != nil {
		b.emit(*change)
	}
}

// RecordFailure notes a failed call outcome.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	b.lastFailure = b.now()
	var change *StateChange

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			c := b.transition(StateOpen)
			change = &c
		}
	case StateHalfOpen:
		b.failures++
		c := b.transition(StateOpen)
		change = &c
	}

	b.mu.Unlock()
	if change != nil {
		b.emit(*change)
	}
}

// Execute runs op under the breaker. isFailure decides which errors count
// toward the failure threshold; errors that do not count are propagated
// but recorded as successes, since the dependency itself answered.
func (b *Breaker) Execute(op func() error, isFailure func(error) bool) error {
	if err := b.Allow(); err != nil {
		return err
	}
	err := op()
	if err != nil && (isFailure == nil || isFailure(err)) {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return err
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.metricsLocked()
}

func (b *Breaker) metricsLocked() Metrics {
	return Metrics{
		Service:              b.name,
		State:                b.state.String(),
		ConsecutiveFailures:  b.failures,
		ConsecutiveSuccesses: b.successes,
		RejectedCalls:        b.rejected,
		LastFailure:          b.lastFailure,
	}
}

// transition must be called with the lock held; the returned change is
// emitted after release.
func (b *Breaker) transition(to State) StateChange {
	change := StateChange{Service: b.name, From: b.state, To: to}
	b.state = to
	return change
}

func (b *Breaker) emit(change StateChange) {
	b.logger.Info("circuit state changed",
		"from", change.From.String(),
		"to", change.To.String(),
	)
	b.mu.Lock()
	fn := b.onStateChange
	b.mu.Unlock()
	if fn != nil {
		fn(change)
	}
}
