package middleware

import (
	"context"
	"time"

	"github.com/Youmanvi/roomledger/internal/infrastructure/observability"
)

// WithEventRecording returns a middleware that appends every execution to
// the activity audit trail. Write failures are logged and never fail the
// activity.
func WithEventRecording(writer observability.ActivityEventWriter, logger *observability.Logger, activityName string) ActivityMiddleware {
	return func(next ActivityFunc) ActivityFunc {
		if writer == nil {
			return next
		}
		return func(ctx context.Context, input []byte) ([]byte, error) {
			start := time.Now()
			output, err := next(ctx, input)

			event := observability.NewActivityEvent(traceIDFrom(ctx), activityName, start, time.Since(start), err)
			if werr := writer.WriteEvent(event); werr != nil {
				logger.Logger.Warn().Err(werr).Str("activity", activityName).Msg("failed to record activity event")
			}
			return output, err
		}
	}
}
