package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the classification of an error
type ErrorType int

const (
	// ErrorTypeTransient indicates a temporary failure that can be retried
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent indicates a permanent failure that should not be retried
	ErrorTypePermanent
	// ErrorTypeTimeout indicates a timeout error
	ErrorTypeTimeout
)

// Error codes shared by the ledger, batch engine and intake.
const (
	CodeInsufficientInventory  = "INSUFFICIENT_INVENTORY"
	CodeCapacityBelowBooked    = "CAPACITY_BELOW_BOOKED"
	CodeCapacityAboveRoomType  = "CAPACITY_ABOVE_ROOM_TYPE"
	CodeUnknownRoomType        = "UNKNOWN_ROOM_TYPE"
	CodeLockTimeout            = "LOCK_TIMEOUT"
	CodeInvalidReservationSpan = "INVALID_RESERVATION_SPAN"
	CodeInvalidArgument        = "INVALID_ARGUMENT"
	CodeUnknownToken           = "UNKNOWN_TOKEN"
	CodeReservationNotFound    = "RESERVATION_NOT_FOUND"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeStorageUnavailable     = "STORAGE_UNAVAILABLE"
)

// Sentinels for errors.Is. Matching is by Code, so any error built with the
// same code (and any date) matches its sentinel.
var (
	ErrInsufficientInventory  = &CustomError{Type: ErrorTypePermanent, Code: CodeInsufficientInventory}
	ErrCapacityBelowBooked    = &CustomError{Type: ErrorTypePermanent, Code: CodeCapacityBelowBooked}
	ErrCapacityAboveRoomType  = &CustomError{Type: ErrorTypePermanent, Code: CodeCapacityAboveRoomType}
	ErrUnknownRoomType        = &CustomError{Type: ErrorTypePermanent, Code: CodeUnknownRoomType}
	ErrLockTimeout            = &CustomError{Type: ErrorTypeTransient, Code: CodeLockTimeout}
	ErrInvalidReservationSpan = &CustomError{Type: ErrorTypePermanent, Code: CodeInvalidReservationSpan}
	ErrInvalidArgument        = &CustomError{Type: ErrorTypePermanent, Code: CodeInvalidArgument}
	ErrUnknownToken           = &CustomError{Type: ErrorTypePermanent, Code: CodeUnknownToken}
	ErrReservationNotFound    = &CustomError{Type: ErrorTypePermanent, Code: CodeReservationNotFound}
	ErrInvalidTransition      = &CustomError{Type: ErrorTypePermanent, Code: CodeInvalidTransition}
)

// CustomError is a custom error with classification and context
type CustomError struct {
	Type    ErrorType
	Message string
	Cause   error
	Code    string
	// Date is the offending calendar day for inventory-safety errors.
	Date time.Time
}

// NewTransientError creates a new transient error
func NewTransientError(code, message string, cause error) *CustomError {
	return &CustomError{
		Type:    ErrorTypeTransient,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewPermanentError creates a new permanent error
func NewPermanentError(code, message string, cause error) *CustomError {
	return &CustomError{
		Type:    ErrorTypePermanent,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(code, message string) *CustomError {
	return &CustomError{
		Type:    ErrorTypeTimeout,
		Code:    code,
		Message: message,
	}
}

// InsufficientInventory reports the first day of a requested stay that
// cannot absorb the requested quantity.
func InsufficientInventory(roomTypeID string, date time.Time, available, requested int) *CustomError {
	return &CustomError{
		Type:    ErrorTypePermanent,
		Code:    CodeInsufficientInventory,
		Message: fmt.Sprintf("room type %s has %d available on %s, %d requested", roomTypeID, available, formatDate(date), requested),
		Date:    date,
	}
}

// CapacityBelowBooked reports a day whose committed rooms would exceed its total.
func CapacityBelowBooked(roomTypeID string, date time.Time, total, committed int) *CustomError {
	return &CustomError{
		Type:    ErrorTypePermanent,
		Code:    CodeCapacityBelowBooked,
		Message: fmt.Sprintf("room type %s on %s: total %d below committed %d", roomTypeID, formatDate(date), total, committed),
		Date:    date,
	}
}

// CapacityAboveRoomType reports a day total above the physical room count.
func CapacityAboveRoomType(roomTypeID string, date time.Time, total, capacity int) *CustomError {
	return &CustomError{
		Type:    ErrorTypePermanent,
		Code:    CodeCapacityAboveRoomType,
		Message: fmt.Sprintf("room type %s on %s: total %d above capacity %d", roomTypeID, formatDate(date), total, capacity),
		Date:    date,
	}
}

// UnknownRoomType reports a caller referencing a room type the ledger never registered.
func UnknownRoomType(roomTypeID string) *CustomError {
	return NewPermanentError(CodeUnknownRoomType, fmt.Sprintf("unknown room type %q", roomTypeID), nil)
}

// LockTimeout reports that a day lock could not be acquired within the wait budget.
func LockTimeout(roomTypeID string, date time.Time, wait time.Duration) *CustomError {
	return &CustomError{
		Type:    ErrorTypeTransient,
		Code:    CodeLockTimeout,
		Message: fmt.Sprintf("lock on room type %s for %s not acquired within %s", roomTypeID, formatDate(date), wait),
		Date:    date,
	}
}

// InvalidReservationSpan reports a zero or negative night count.
func InvalidReservationSpan(nights int) *CustomError {
	return NewPermanentError(CodeInvalidReservationSpan, fmt.Sprintf("reservation must span at least one night, got %d", nights), nil)
}

// InvalidArgument reports malformed caller input.
func InvalidArgument(message string) *CustomError {
	return NewPermanentError(CodeInvalidArgument, message, nil)
}

// Error implements the error interface
func (e *CustomError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CustomError) Unwrap() error {
	return e.Cause
}

// Is matches errors carrying the same code.
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// IsTransient returns true if the error is transient
func (e *CustomError) IsTransient() bool {
	return e.Type == ErrorTypeTransient
}

// IsPermanent returns true if the error is permanent
func (e *CustomError) IsPermanent() bool {
	return e.Type == ErrorTypePermanent
}

// IsTimeout returns true if the error is a timeout
func (e *CustomError) IsTimeout() bool {
	return e.Type == ErrorTypeTimeout
}

// HasDate reports whether the error names an offending day.
func (e *CustomError) HasDate() bool {
	return !e.Date.IsZero()
}

// ClassifyError attempts to classify a regular error
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	if customErr, ok := As(err); ok {
		return customErr.Type
	}

	// Default to permanent for unknown errors
	return ErrorTypePermanent
}

// As unwraps err looking for a *CustomError.
func As(err error) (*CustomError, bool) {
	for err != nil {
		if customErr, ok := err.(*CustomError); ok {
			return customErr, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// CodeOf returns the code of the first CustomError in the chain, or "".
func CodeOf(err error) string {
	if customErr, ok := As(err); ok {
		return customErr.Code
	}
	return ""
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
