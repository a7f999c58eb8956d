package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// ServiceLimiter keeps one rate limiter per named external service so
// independent dependencies never share a quota.
type ServiceLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	defaults RateLimitConfig
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

func DefaultConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		BurstSize:         20,
	}
}

func NewServiceLimiter(config RateLimitConfig) *ServiceLimiter {
	return &ServiceLimiter{
		limiters: make(map[string]*rate.Limiter),
		defaults: config,
	}
}

func NewServiceLimiterWithDefaults() *ServiceLimiter {
	return NewServiceLimiter(DefaultConfig())
}

func (p *ServiceLimiter) GetLimiter(service string) *rate.Limiter {
	p.mu.RLock()
	limiter, exists := p.limiters[service]
	p.mu.RUnlock()

	if exists {
		return limiter
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if limiter, exists = p.limiters[service]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Limit(p.defaults.RequestsPerSecond), p.defaults.BurstSize)
	p.limiters[service] = limiter
	return limiter
}

func (p *ServiceLimiter) SetServiceLimit(service string, rps float64, burst int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.limiters[service] = rate.NewLimiter(rate.Limit(rps), burst)
}

func (p *ServiceLimiter) Wait(ctx context.Context, service string) error {
	return p.GetLimiter(service).Wait(ctx)
}
