package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects calls
var ErrCircuitOpen = errors.New("circuit breaker is open")

// breakerCompleter wraps a completer with a circuit breaker.
// Only provider side failures count toward tripping; parse errors do not reach here.
type breakerCompleter struct {
	inner   completer
	breaker *gobreaker.CircuitBreaker
}

func newBreakerCompleter(name string, inner completer, cfg BreakerConfig, logger logrus.FieldLogger) *breakerCompleter {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// caller cancellation says nothing about provider health
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("backend circuit breaker state changed")
		},
	}
	return &breakerCompleter{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (b *breakerCompleter) complete(ctx context.Context, req completion) (string, error) {
	out, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.complete(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		return "", err
	}
	text, _ := out.(string)
	return text, nil
}

func (b *breakerCompleter) close() error {
	return b.inner.close()
}

// State returns the breaker state name
func (b *breakerCompleter) State() string {
	return b.breaker.State().String()
}
