package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/Youmanvi/roomledger/internal/domain"
	"github.com/Youmanvi/roomledger/internal/infrastructure/observability"
	"github.com/Youmanvi/roomledger/internal/pkg/errors"
)

// WithLogging returns a middleware that logs activity execution and records
// activity metrics. metrics may be nil.
func WithLogging(logger *observability.Logger, metrics *observability.Metrics, activityName string) ActivityMiddleware {
	return func(next ActivityFunc) ActivityFunc {
		return func(ctx context.Context, input []byte) ([]byte, error) {
			start := time.Now()

			actLogger := logger.WithTraceID(traceIDFrom(ctx)).WithActivityName(activityName)
			actLogger.Logger.Debug().Int("input_bytes", len(input)).Msg("activity started")

			output, err := next(ctx, input)
			duration := time.Since(start)
			metrics.RecordActivityExecution(duration, err)

			if err != nil {
				event := actLogger.Logger.Error()
				if customErr, ok := errors.As(err); ok {
					event = event.Str("code", customErr.Code).Bool("transient", customErr.IsTransient())
					if customErr.HasDate() {
						event = event.Str("date", customErr.Date.Format(domain.DateLayout))
					}
				}
				event.Err(err).Dur("duration_ms", duration).Msg("activity failed")
				return nil, err
			}

			actLogger.Logger.Info().
				Dur("duration_ms", duration).
				Int("output_bytes", len(output)).
				Msg("activity completed")
			return output, nil
		}
	}
}

// traceIDFrom returns the active span's trace ID, or a fresh correlation ID
// when the call is not traced.
func traceIDFrom(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return uuid.NewString()
}
