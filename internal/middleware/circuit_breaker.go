package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Youmanvi/roomledger/internal/infrastructure/observability"
	"github.com/Youmanvi/roomledger/internal/pkg/errors"
)

// WithCircuitBreaker returns a middleware that protects activity execution
// with a circuit breaker. Only transient and unclassified failures count
// against the breaker; a sold-out day is a valid answer, not an outage.
func WithCircuitBreaker(logger *observability.Logger, name string, threshold float64, timeout time.Duration) ActivityMiddleware {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    timeout,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= threshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			customErr, ok := errors.As(err)
			return ok && customErr.IsPermanent()
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("activity circuit breaker state changed")
		},
	})

	return func(next ActivityFunc) ActivityFunc {
		return func(ctx context.Context, input []byte) ([]byte, error) {
			result, err := cb.Execute(func() (interface{}, error) {
				return next(ctx, input)
			})

			if err != nil {
				if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
					return nil, errors.NewTransientError(
						"CIRCUIT_BREAKER_OPEN",
						fmt.Sprintf("circuit breaker open for activity: %s", name),
						err,
					)
				}
				return nil, err
			}

			output, _ := result.([]byte)
			return output, nil
		}
	}
}
