package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Youmanvi/roomledger/internal/domain"
	"github.com/Youmanvi/roomledger/internal/infrastructure/observability"
)

// StaticHolidays is an in-memory holiday table
type StaticHolidays struct {
	dates map[time.Time]struct{}
}

// NewStaticHolidays builds a table from the given days.
func NewStaticHolidays(dates ...time.Time) *StaticHolidays {
	h := &StaticHolidays{dates: make(map[time.Time]struct{}, len(dates))}
	for _, d := range dates {
		h.dates[domain.Day(d)] = struct{}{}
	}
	return h
}

// ParseStaticHolidays builds a table from YYYY-MM-DD strings.
func ParseStaticHolidays(values []string) (*StaticHolidays, error) {
	dates := make([]time.Time, 0, len(values))
	for _, v := range values {
		d, err := domain.ParseDate(v)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return NewStaticHolidays(dates...), nil
}

// IsHoliday implements HolidayProvider
func (h *StaticHolidays) IsHoliday(_ context.Context, date time.Time) (bool, error) {
	_, ok := h.dates[domain.Day(date)]
	return ok, nil
}

// BreakerSettings configures the holiday provider circuit breaker
type BreakerSettings struct {
	Name      string
	Threshold float64
	Timeout   time.Duration
}

// BreakerHolidayProvider guards a remote holiday calendar with a circuit
// breaker. While the breaker is open lookups fail fast and the classifier
// degrades to weekday/weekend.
type BreakerHolidayProvider struct {
	next HolidayProvider
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerHolidayProvider wraps next with a circuit breaker
func NewBreakerHolidayProvider(next HolidayProvider, settings BreakerSettings, logger *observability.Logger) *BreakerHolidayProvider {
	if settings.Name == "" {
		settings.Name = "holiday-calendar"
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Interval:    settings.Timeout,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= settings.Threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Logger.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("holiday calendar breaker state changed")
			}
		},
	})

	return &BreakerHolidayProvider{next: next, cb: cb}
}

// IsHoliday implements HolidayProvider
func (p *BreakerHolidayProvider) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	result, err := p.cb.Execute(func() (interface{}, error) {
		return p.next.IsHoliday(ctx, date)
	})
	if err != nil {
		return false, fmt.Errorf("holiday calendar unavailable: %w", err)
	}
	return result.(bool), nil
}

// State exposes the breaker state.
func (p *BreakerHolidayProvider) State() gobreaker.State {
	return p.cb.State()
}
