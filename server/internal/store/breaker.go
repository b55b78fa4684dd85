package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fieldwatch/fieldwatch/pkg/types"
)

// Breaker fails reads fast with ErrUnavailable after repeated backend errors.
type Breaker struct {
	next Store
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker wraps s. The breaker opens after failures consecutive errors
// and stays open for openFor before letting one trial read through.
func WithBreaker(s Store, name string, failures int, openFor time.Duration) *Breaker {
	if failures < 1 {
		failures = 1
	}
	return &Breaker{
		next: s,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: openFor,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= uint32(failures)
			},
			IsSuccessful: func(err error) bool {
				return err == nil ||
					errors.Is(err, ErrNotFound) ||
					errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("store: breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

func (b *Breaker) Get(ctx context.Context, k types.Key) (json.RawMessage, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Get(ctx, k)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	raw, _ := v.(json.RawMessage)
	return raw, nil
}

func (b *Breaker) Close(ctx context.Context) error {
	return b.next.Close(ctx)
}

// State reports the breaker state ("closed", "half-open", "open").
func (b *Breaker) State() string {
	return b.cb.State().String()
}
