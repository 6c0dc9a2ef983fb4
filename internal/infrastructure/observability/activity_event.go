package observability

import (
	"time"

	"github.com/Youmanvi/roomledger/internal/pkg/errors"
)

// Activity event outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeTransient = "transient"
	OutcomePermanent = "permanent"
	OutcomeTimeout   = "timeout"
	OutcomeUnknown   = "unknown"
)

// ActivityEvent is one activity execution kept in the audit trail
type ActivityEvent struct {
	ID         int64      `json:"id,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
	TraceID    string     `json:"trace_id"`
	Activity   string     `json:"activity"`
	Outcome    string     `json:"outcome"`
	Code       string     `json:"code,omitempty"`
	Date       *time.Time `json:"date,omitempty"`
	DurationMs int64      `json:"duration_ms"`
	Message    string     `json:"message,omitempty"`
}

// ActivityEventWriter receives activity events
type ActivityEventWriter interface {
	WriteEvent(event *ActivityEvent) error
}

// NewActivityEvent builds the event for one finished activity call
func NewActivityEvent(traceID, activity string, start time.Time, duration time.Duration, err error) *ActivityEvent {
	event := &ActivityEvent{
		Timestamp:  start,
		TraceID:    traceID,
		Activity:   activity,
		Outcome:    OutcomeSuccess,
		DurationMs: duration.Milliseconds(),
	}
	if err == nil {
		return event
	}

	event.Message = err.Error()
	customErr, ok := errors.As(err)
	if !ok {
		event.Outcome = OutcomeUnknown
		return event
	}

	event.Code = customErr.Code
	switch {
	case customErr.IsTimeout():
		event.Outcome = OutcomeTimeout
	case customErr.IsTransient():
		event.Outcome = OutcomeTransient
	default:
		event.Outcome = OutcomePermanent
	}
	if customErr.HasDate() {
		d := customErr.Date
		event.Date = &d
	}
	return event
}
