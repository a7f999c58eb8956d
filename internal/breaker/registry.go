package breaker

import (
	"sync"

	"github.com/brokerops/charterlink/pkg/logger"
)

// Registry hands out one breaker per named external service. It replaces
// a process-wide singleton: callers share breakers by sharing the
// registry reference.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	defaults Config
	logger   *logger.Logger
}

func NewRegistry(defaults Config, log *logger.Logger) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		defaults: defaults,
		logger:   log,
	}
}

func (r *Registry) Get(service string) *Breaker {
	r.mu.RLock()
	b, exists := r.breakers[service]
	r.mu.RUnlock()

	if exists {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, exists = r.breakers[service]; exists {
		return b
	}

	b = New(service, r.defaults, r.logger)
	r.breakers[service] = b
	return b
}

// Metrics snapshots every registered breaker.
func (r *Registry) Metrics() map[string]Metrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Metrics, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.Metrics()
	}
	return out
}

// Healthy reports whether no breaker is currently open.
func (r *Registry) Healthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.breakers {
		if b.State() == StateOpen {
			return false
		}
	}
	return true
}
