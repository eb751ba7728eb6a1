package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerSettings tunes every breaker a registry creates.
type BreakerSettings struct {
	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32
	// Interval clears the failure counts while closed. Zero never clears them.
	Interval time.Duration
	// OpenTimeout is how long a breaker stays open before probing.
	OpenTimeout time.Duration
	// FailureThreshold is the number of consecutive failures that opens a breaker.
	FailureThreshold uint32
}

// BreakerRegistry owns one circuit breaker per logical target. It is safe for
// concurrent use and meant to be shared by every gateway in the process.
type BreakerRegistry struct {
	settings BreakerSettings
	logger   *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[[]byte]
}

// NewBreakerRegistry creates an empty registry.
// If logger is nil, a default logger will be used.
func NewBreakerRegistry(settings BreakerSettings, logger *slog.Logger) *BreakerRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 1
	}
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 1
	}
	return &BreakerRegistry{
		settings: settings,
		logger:   logger.With(slog.String("component", "circuit_breaker")),
		breakers: make(map[string]*gobreaker.CircuitBreaker[[]byte]),
	}
}

// For returns the breaker for target, creating it on first use.
func (r *BreakerRegistry) For(target string) *gobreaker.CircuitBreaker[[]byte] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[target]; ok {
		return cb
	}

	threshold := r.settings.FailureThreshold
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        target,
		MaxRequests: r.settings.MaxRequests,
		Interval:    r.settings.Interval,
		Timeout:     r.settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A caller giving up says nothing about the target's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			level := slog.LevelInfo
			if to == gobreaker.StateOpen {
				level = slog.LevelWarn
			}
			r.logger.Log(context.Background(), level, "circuit breaker state changed",
				slog.String("target", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	r.breakers[target] = cb
	return cb
}

// State reports the current state of target's breaker. Targets that were
// never called are closed.
func (r *BreakerRegistry) State(target string) gobreaker.State {
	r.mu.Lock()
	cb, ok := r.breakers[target]
	r.mu.Unlock()
	if !ok {
		return gobreaker.StateClosed
	}
	return cb.State()
}
