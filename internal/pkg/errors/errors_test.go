package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomError_IsMatchesByCode(t *testing.T) {
	date := time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC)
	err := InsufficientInventory("deluxe", date, 0, 1)

	assert.True(t, stderrors.Is(err, ErrInsufficientInventory))
	assert.False(t, stderrors.Is(err, ErrCapacityBelowBooked))

	wrapped := fmt.Errorf("reserve: %w", err)
	assert.True(t, stderrors.Is(wrapped, ErrInsufficientInventory))

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, date, got.Date)
	assert.True(t, got.HasDate())
	assert.Contains(t, got.Error(), "2025-11-18")
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"lock timeout is transient", LockTimeout("deluxe", time.Now(), time.Second), ErrorTypeTransient},
		{"unknown room type is permanent", UnknownRoomType("x"), ErrorTypePermanent},
		{"timeout", NewTimeoutError("ACTIVITY_TIMEOUT", "slow"), ErrorTypeTimeout},
		{"wrapped transient", fmt.Errorf("outer: %w", NewTransientError("X", "y", nil)), ErrorTypeTransient},
		{"plain error", stderrors.New("boom"), ErrorTypePermanent},
		{"nil", nil, ErrorTypePermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeInvalidReservationSpan, CodeOf(InvalidReservationSpan(0)))
	assert.Equal(t, "", CodeOf(stderrors.New("plain")))
	assert.Equal(t, "", CodeOf(nil))
}

func TestCustomError_ErrorIncludesCause(t *testing.T) {
	err := NewPermanentError("STORE", "save failed", stderrors.New("disk full"))
	assert.Equal(t, "[STORE] save failed: disk full", err.Error())
	assert.Equal(t, "disk full", stderrors.Unwrap(err).Error())
}
