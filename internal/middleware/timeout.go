package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/Youmanvi/roomledger/internal/pkg/errors"
)

// WithTimeout returns a middleware that bounds one activity attempt. A
// non-positive timeout disables the bound.
func WithTimeout(timeout time.Duration) ActivityMiddleware {
	return func(next ActivityFunc) ActivityFunc {
		if timeout <= 0 {
			return next
		}
		return func(ctx context.Context, input []byte) ([]byte, error) {
			timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			type result struct {
				output []byte
				err    error
			}
			resultChan := make(chan result, 1)

			go func() {
				output, err := next(timeoutCtx, input)
				resultChan <- result{output, err}
			}()

			select {
			case res := <-resultChan:
				return res.output, res.err
			case <-timeoutCtx.Done():
				return nil, errors.NewTimeoutError("ACTIVITY_TIMEOUT", fmt.Sprintf("activity execution exceeded %s", timeout))
			}
		}
	}
}
