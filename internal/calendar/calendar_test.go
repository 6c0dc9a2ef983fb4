package calendar

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Youmanvi/roomledger/internal/domain"
)

type failingProvider struct {
	calls atomic.Int32
}

func (p *failingProvider) IsHoliday(context.Context, time.Time) (bool, error) {
	p.calls.Add(1)
	return false, errors.New("calendar service down")
}

func TestGenerate_FourteenDayWindow(t *testing.T) {
	ctx := context.Background()
	holidays := NewStaticHolidays(domain.MustDate("2025-11-27"))
	w, err := Generate(ctx, domain.MustDate("2025-11-17"), 14, NewClassifier(holidays, nil))
	require.NoError(t, err)

	require.Equal(t, 14, w.Len())
	assert.Equal(t, domain.MustDate("2025-11-17"), w.Days[0].Date)
	assert.Equal(t, domain.MustDate("2025-11-30"), w.Days[13].Date)
	assert.Equal(t, domain.MustDate("2025-12-01"), w.End())

	for i, d := range w.Days {
		assert.Equal(t, i, d.Index)
	}

	// 2025-11-17 is a Monday, 2025-11-22 a Saturday
	assert.Equal(t, time.Monday, w.Days[0].Weekday)
	assert.Equal(t, domain.DayClassWeekday, w.Days[0].Class)
	assert.True(t, w.Days[5].IsWeekend)
	assert.Equal(t, domain.DayClassWeekend, w.Days[5].Class)

	assert.True(t, w.Days[10].IsHoliday)
	assert.Equal(t, domain.DayClassHoliday, w.Days[10].Class)
}

func TestGenerate_IsDeterministic(t *testing.T) {
	ctx := context.Background()
	c := NewClassifier(NewStaticHolidays(domain.MustDate("2025-12-25")), nil)
	a, err := Generate(ctx, domain.MustDate("2025-12-20"), 10, c)
	require.NoError(t, err)
	b, err := Generate(ctx, domain.MustDate("2025-12-20"), 10, c)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerate_RejectsEmptySpan(t *testing.T) {
	_, err := Generate(context.Background(), domain.MustDate("2025-11-17"), 0, nil)
	assert.Error(t, err)
}

func TestWindow_IndexOf(t *testing.T) {
	w, err := Generate(context.Background(), domain.MustDate("2025-11-17"), 14, nil)
	require.NoError(t, err)

	i, ok := w.IndexOf(domain.MustDate("2025-11-19"))
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok = w.IndexOf(domain.MustDate("2025-12-01"))
	assert.False(t, ok)
	_, ok = w.IndexOf(domain.MustDate("2025-11-16"))
	assert.False(t, ok)
}

func TestClassifier_FailsOpenWhenProviderErrors(t *testing.T) {
	c := NewClassifier(&failingProvider{}, nil)
	ctx := context.Background()

	assert.Equal(t, domain.DayClassWeekday, c.Classify(ctx, domain.MustDate("2025-12-25")))
	assert.Equal(t, domain.DayClassWeekend, c.Classify(ctx, domain.MustDate("2025-12-27")))
}

func TestClassifier_CustomWeekend(t *testing.T) {
	c := NewClassifier(nil, nil).WithWeekendDays(time.Friday, time.Saturday, time.Sunday)
	ctx := context.Background()

	assert.Equal(t, domain.DayClassWeekend, c.Classify(ctx, domain.MustDate("2025-12-05")))
	assert.Equal(t, domain.DayClassWeekday, c.Classify(ctx, domain.MustDate("2025-12-04")))
}

func TestParseWeekdays(t *testing.T) {
	days, err := ParseWeekdays([]string{"Fri", "saturday", " sun "})
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Friday, time.Saturday, time.Sunday}, days)

	_, err = ParseWeekdays([]string{"someday"})
	assert.Error(t, err)
}

func TestBreakerHolidayProvider_OpensAndFailsFast(t *testing.T) {
	inner := &failingProvider{}
	p := NewBreakerHolidayProvider(inner, BreakerSettings{Threshold: 0.5, Timeout: time.Minute}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := p.IsHoliday(ctx, domain.MustDate("2025-12-25"))
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, p.State())

	_, err := p.IsHoliday(ctx, domain.MustDate("2025-12-25"))
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), inner.calls.Load())

	// classification still succeeds while the breaker is open
	c := NewClassifier(p, nil)
	assert.Equal(t, domain.DayClassWeekday, c.Classify(ctx, domain.MustDate("2025-12-25")))
}

func TestParseStaticHolidays(t *testing.T) {
	h, err := ParseStaticHolidays([]string{"2025-12-25", "2026-01-01"})
	require.NoError(t, err)
	ok, err := h.IsHoliday(context.Background(), domain.MustDate("2026-01-01"))
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = ParseStaticHolidays([]string{"25/12/2025"})
	assert.Error(t, err)
}
