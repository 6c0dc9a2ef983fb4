package calendar

import (
	"context"
	"time"

	"github.com/Youmanvi/roomledger/internal/domain"
	"github.com/Youmanvi/roomledger/internal/pkg/errors"
)

// DayDescriptor is one column of a calendar window
type DayDescriptor struct {
	Index     int             `json:"index"`
	Date      time.Time       `json:"date"`
	Weekday   time.Weekday    `json:"weekday"`
	IsWeekend bool            `json:"is_weekend"`
	IsHoliday bool            `json:"is_holiday"`
	Class     domain.DayClass `json:"class"`
}

// Window is an ordered run of consecutive days starting at Start
type Window struct {
	Start time.Time
	Days  []DayDescriptor
}

// Generate expands start and spanDays into an ordered window. It has no side
// effects; the classifier is only consulted for holiday lookups.
func Generate(ctx context.Context, start time.Time, spanDays int, classifier *Classifier) (Window, error) {
	if spanDays < 1 {
		return Window{}, errors.InvalidArgument("calendar window must span at least one day")
	}
	if classifier == nil {
		classifier = NewClassifier(nil, nil)
	}

	start = domain.Day(start)
	days := make([]DayDescriptor, spanDays)
	for i := range days {
		date := domain.AddDays(start, i)
		class := classifier.Classify(ctx, date)
		days[i] = DayDescriptor{
			Index:     i,
			Date:      date,
			Weekday:   date.Weekday(),
			IsWeekend: classifier.IsWeekend(date),
			IsHoliday: class == domain.DayClassHoliday,
			Class:     class,
		}
	}

	return Window{Start: start, Days: days}, nil
}

// Len returns the number of columns.
func (w Window) Len() int {
	return len(w.Days)
}

// End returns the first day after the window.
func (w Window) End() time.Time {
	return domain.AddDays(w.Start, len(w.Days))
}

// IndexOf returns the column of date, or false when date is outside the window.
func (w Window) IndexOf(date time.Time) (int, bool) {
	i := domain.DaysBetween(w.Start, date)
	if i < 0 || i >= len(w.Days) {
		return 0, false
	}
	return i, true
}

// Dates returns the window's days in order.
func (w Window) Dates() []time.Time {
	out := make([]time.Time, len(w.Days))
	for i, d := range w.Days {
		out[i] = d.Date
	}
	return out
}
