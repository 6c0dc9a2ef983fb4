package middleware

import (
	"context"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Youmanvi/roomledger/internal/pkg/errors"
)

// gRPC status codes that should be treated as transient/retryable
var transientGRPCCodes = map[codes.Code]bool{
	codes.Unavailable:        true, // 14 - Service temporarily unavailable
	codes.ResourceExhausted:  true, // 8 - Resource exhausted (quota, rate limits)
	codes.Aborted:            true, // 10 - Request aborted (transaction conflicts)
	codes.DeadlineExceeded:   true, // 4 - Request deadline exceeded
	codes.Internal:           true, // 13 - Internal server error (transient)
	codes.Unknown:            true, // 2 - Unknown errors (might be transient)
}

// grpcCodes maps ledger and intake error codes onto gRPC status codes.
var grpcCodes = map[string]codes.Code{
	errors.CodeInsufficientInventory:  codes.FailedPrecondition,
	errors.CodeCapacityBelowBooked:    codes.FailedPrecondition,
	errors.CodeCapacityAboveRoomType:  codes.InvalidArgument,
	errors.CodeUnknownRoomType:        codes.NotFound,
	errors.CodeLockTimeout:            codes.Aborted,
	errors.CodeInvalidReservationSpan: codes.InvalidArgument,
	errors.CodeInvalidArgument:        codes.InvalidArgument,
	errors.CodeUnknownToken:           codes.NotFound,
	errors.CodeReservationNotFound:    codes.NotFound,
	errors.CodeInvalidTransition:      codes.FailedPrecondition,
	"ACTIVITY_TIMEOUT":                codes.DeadlineExceeded,
	"CIRCUIT_BREAKER_OPEN":            codes.Unavailable,
}

// WithGRPCErrorHandling returns middleware that classifies gRPC errors as transient
// when appropriate, enabling automatic retries for resource conflicts
func WithGRPCErrorHandling() ActivityMiddleware {
	return func(next ActivityFunc) ActivityFunc {
		return func(ctx context.Context, input []byte) ([]byte, error) {
			output, err := next(ctx, input)
			if err == nil {
				return output, nil
			}

			// Errors already carrying a classification pass through
			if _, ok := errors.As(err); ok {
				return nil, err
			}

			st, ok := status.FromError(err)
			if !ok {
				return nil, err
			}

			code := st.Code()
			if transientGRPCCodes[code] {
				return nil, errors.NewTransientError(
					fmt.Sprintf("GRPC_%s", code.String()),
					fmt.Sprintf("gRPC error (transient): %s", st.Message()),
					err,
				)
			}
			return nil, errors.NewPermanentError(
				fmt.Sprintf("GRPC_%s", code.String()),
				fmt.Sprintf("gRPC error (permanent): %s", st.Message()),
				err,
			)
		}
	}
}

// IsTransientGRPCError checks if an error is a gRPC error with a transient status code
func IsTransientGRPCError(err error) bool {
	if err == nil {
		return false
	}

	st, ok := status.FromError(err)
	if !ok {
		return false
	}

	return transientGRPCCodes[st.Code()]
}

// GetGRPCStatusCode extracts the gRPC status code from an error, if present
func GetGRPCStatusCode(err error) (codes.Code, bool) {
	if err == nil {
		return codes.OK, false
	}

	st, ok := status.FromError(err)
	if !ok {
		return codes.Unknown, false
	}

	return st.Code(), true
}

// GRPCCode returns the status code a transport adapter should answer with.
func GRPCCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if customErr, ok := errors.As(err); ok {
		if code, known := grpcCodes[customErr.Code]; known {
			return code
		}
		if customErr.IsTransient() {
			return codes.Unavailable
		}
		return codes.Internal
	}
	if st, ok := status.FromError(err); ok {
		return st.Code()
	}
	return codes.Unknown
}

// ToStatus converts err into a gRPC status error. Dated inventory errors keep
// their date in the message.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		if _, custom := errors.As(err); !custom {
			return err
		}
	}
	return status.Error(GRPCCode(err), err.Error())
}
