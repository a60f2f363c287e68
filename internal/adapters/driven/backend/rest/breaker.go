package rest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
	"github.com/Dev-KrishnaPathak/Patiently/internal/logger"
)

// BreakerConfig configures the per-operation circuit breakers.
type BreakerConfig struct {
	// MinRequests is how many calls a window must see before it can trip.
	MinRequests uint32

	// FailureRatio trips the breaker once failures reach this share of calls.
	FailureRatio float64

	// OpenTimeout is how long an open breaker rejects calls.
	OpenTimeout time.Duration

	// HalfOpenMaxCalls is how many probes are let through when half-open.
	HalfOpenMaxCalls uint32
}

// DefaultBreakerConfig returns the breaker settings used by NewClient.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MinRequests:      5,
		FailureRatio:     0.6,
		OpenTimeout:      15 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

func (c BreakerConfig) normalize() BreakerConfig {
	def := DefaultBreakerConfig()
	if c.MinRequests == 0 {
		c.MinRequests = def.MinRequests
	}
	if c.FailureRatio <= 0 || c.FailureRatio > 1 {
		c.FailureRatio = def.FailureRatio
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = def.OpenTimeout
	}
	if c.HalfOpenMaxCalls == 0 {
		c.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	return c
}

// breakers holds one circuit breaker per backend operation, so a failing
// upload endpoint does not stop analysis polls.
type breakers struct {
	cfg BreakerConfig

	mu  sync.Mutex
	set map[string]*gobreaker.CircuitBreaker[any]
}

func newBreakers(cfg BreakerConfig) *breakers {
	return &breakers{
		cfg: cfg.normalize(),
		set: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

// execute runs fn through the breaker for op. An open breaker is reported
// as a NetworkError so callers back off the same way they do for
// transport failures.
func (b *breakers) execute(op string, fn func() error) error {
	_, err := b.get(op).Execute(func() (any, error) {
		return nil, fn()
	})
	if isCircuitOpen(err) {
		return &domain.NetworkError{Op: op, Err: err}
	}
	return err
}

// state returns the breaker state for op.
func (b *breakers) state(op string) gobreaker.State {
	return b.get(op).State()
}

func (b *breakers) get(op string) *gobreaker.CircuitBreaker[any] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.set[op]; ok {
		return cb
	}

	cfg := b.cfg
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        op,
		MaxRequests: cfg.HalfOpenMaxCalls,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	b.set[op] = cb
	return cb
}

// countsAsSuccess decides whether an error should count against the
// backend's health. Not-ready answers, client errors and caller
// cancellations say nothing about the backend being down.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, domain.ErrNotReady) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var serverErr *domain.ServerError
	if errors.As(err, &serverErr) {
		return serverErr.StatusCode < 500
	}
	return false
}

func isCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
