package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Youmanvi/roomledger/internal/domain"
	"github.com/Youmanvi/roomledger/internal/infrastructure/observability"
)

// HolidayProvider answers whether a date is a public holiday
type HolidayProvider interface {
	IsHoliday(ctx context.Context, date time.Time) (bool, error)
}

// Classifier tags dates as weekday, weekend or holiday.
//
// Holiday status is advisory: when the provider fails the classifier falls
// back to the weekday/weekend split instead of failing the caller.
type Classifier struct {
	holidays HolidayProvider
	logger   *observability.Logger
	weekend  map[time.Weekday]bool
}

// NewClassifier creates a classifier with a Saturday/Sunday weekend. A nil
// provider classifies weekdays and weekends only.
func NewClassifier(holidays HolidayProvider, logger *observability.Logger) *Classifier {
	return &Classifier{
		holidays: holidays,
		logger:   logger,
		weekend:  map[time.Weekday]bool{time.Saturday: true, time.Sunday: true},
	}
}

// WithWeekendDays replaces the set of days treated as weekend.
func (c *Classifier) WithWeekendDays(days ...time.Weekday) *Classifier {
	c.weekend = make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		c.weekend[d] = true
	}
	return c
}

// IsWeekend reports whether date falls on a configured weekend day.
func (c *Classifier) IsWeekend(date time.Time) bool {
	return c.weekend[date.Weekday()]
}

// Classify returns the class of date. Holidays take precedence over weekends.
func (c *Classifier) Classify(ctx context.Context, date time.Time) domain.DayClass {
	date = domain.Day(date)
	if c.holidays != nil {
		holiday, err := c.holidays.IsHoliday(ctx, date)
		if err != nil {
			if c.logger != nil {
				c.logger.Logger.Warn().
					Err(err).
					Str("date", date.Format(domain.DateLayout)).
					Msg("holiday lookup failed, classifying without holidays")
			}
		} else if holiday {
			return domain.DayClassHoliday
		}
	}
	if c.IsWeekend(date) {
		return domain.DayClassWeekend
	}
	return domain.DayClassWeekday
}

// ParseWeekdays converts names such as "saturday" or "sat" into weekdays.
func ParseWeekdays(names []string) ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(names))
	for _, n := range names {
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", n)
		}
		out = append(out, wd)
	}
	return out, nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}
