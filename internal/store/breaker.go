package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/joeblew999/plat-iftar/internal/logging"
	"github.com/joeblew999/plat-iftar/internal/metrics"
	"github.com/joeblew999/plat-iftar/internal/service"
)

// BreakerConfig configures the circuit breaker around a remote store.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig trips after five consecutive backend failures and
// probes again after 30s.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// Breaker wraps a service.Store so that a failing backend fails fast with
// service.ErrUnavailable instead of piling up timeouts.
type Breaker struct {
	next service.Store
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreaker wraps next.
func NewBreaker(next service.Store, cfg BreakerConfig) *Breaker {
	log := logging.With("store")
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			ev := log.Info()
			if to == gobreaker.StateOpen {
				ev = log.Warn()
			}
			ev.Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
		// Only backend failures count against the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, service.ErrUnavailable)
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

// State returns the breaker state name.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

func (b *Breaker) List(ctx context.Context, f service.ListFilter) ([]service.Location, error) {
	v, err := b.cb.Execute(func() (any, error) { return b.next.List(ctx, f) })
	if err != nil {
		return nil, breakerErr(err)
	}
	return v.([]service.Location), nil
}

func (b *Breaker) Get(ctx context.Context, id string) (service.Location, error) {
	v, err := b.cb.Execute(func() (any, error) { return b.next.Get(ctx, id) })
	if err != nil {
		return service.Location{}, breakerErr(err)
	}
	return v.(service.Location), nil
}

func (b *Breaker) Create(ctx context.Context, fields service.LocationFields) (service.Location, error) {
	v, err := b.cb.Execute(func() (any, error) { return b.next.Create(ctx, fields) })
	if err != nil {
		return service.Location{}, breakerErr(err)
	}
	return v.(service.Location), nil
}

func (b *Breaker) Update(ctx context.Context, id string, fields service.LocationFields) (int64, error) {
	v, err := b.cb.Execute(func() (any, error) { return b.next.Update(ctx, id, fields) })
	if err != nil {
		return 0, breakerErr(err)
	}
	return v.(int64), nil
}

func (b *Breaker) Delete(ctx context.Context, id string) (int64, error) {
	v, err := b.cb.Execute(func() (any, error) { return b.next.Delete(ctx, id) })
	if err != nil {
		return 0, breakerErr(err)
	}
	return v.(int64), nil
}

func breakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", service.ErrUnavailable, err)
	}
	return err
}
