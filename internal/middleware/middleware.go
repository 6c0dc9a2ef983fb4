package middleware

import "context"

// ActivityFunc is the signature of an activity function
type ActivityFunc func(ctx context.Context, input []byte) ([]byte, error)

// ActivityMiddleware is a function that wraps an ActivityFunc
type ActivityMiddleware func(ActivityFunc) ActivityFunc

// ApplyMiddleware wraps activity so the first middleware runs outermost.
func ApplyMiddleware(activity ActivityFunc, middlewares ...ActivityMiddleware) ActivityFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] == nil {
			continue
		}
		activity = middlewares[i](activity)
	}
	return activity
}

// Chain folds middlewares into one, outermost first.
func Chain(middlewares ...ActivityMiddleware) ActivityMiddleware {
	return func(next ActivityFunc) ActivityFunc {
		return ApplyMiddleware(next, middlewares...)
	}
}
