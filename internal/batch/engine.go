// Package batch applies operator edits to the days of a range that match a
// day filter. Each day is applied on its own: failures are reported per day
// and never undo the days that succeeded.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Youmanvi/roomledger/internal/calendar"
	"github.com/Youmanvi/roomledger/internal/domain"
	"github.com/Youmanvi/roomledger/internal/infrastructure/observability"
	"github.com/Youmanvi/roomledger/internal/pkg/errors"
)

// MaxRangeDays caps the number of days one batch may expand to.
const MaxRangeDays = 731

// DayFilter selects which days of the range a batch touches
type DayFilter string

const (
	FilterAll               DayFilter = "all"
	FilterWeekdayOnly       DayFilter = "weekday_only"
	FilterWeekendAndHoliday DayFilter = "weekend_and_holiday"
)

// Matches reports whether a day of the given class passes the filter.
// Holidays falling on a weekday are not weekdays.
func (f DayFilter) Matches(class domain.DayClass) bool {
	switch f {
	case FilterAll:
		return true
	case FilterWeekdayOnly:
		return class == domain.DayClassWeekday
	case FilterWeekendAndHoliday:
		return class == domain.DayClassWeekend || class == domain.DayClassHoliday
	default:
		return false
	}
}

// MutationKind names the ledger setter a batch invokes
type MutationKind string

const (
	SetPrice       MutationKind = "set_price"
	SetCapacity    MutationKind = "set_capacity"
	SetMaintenance MutationKind = "set_maintenance"
	SetHeld        MutationKind = "set_held"
)

// Mutation is the change applied to every selected day. Price is used by
// set_price, Count by the other kinds.
type Mutation struct {
	Kind  MutationKind    `json:"kind"`
	Price decimal.Decimal `json:"price"`
	Count int             `json:"count"`
}

// Request is one operator batch action
type Request struct {
	RoomTypeID string           `json:"room_type_id"`
	Range      domain.DateRange `json:"range"`
	Filter     DayFilter        `json:"filter"`
	Mutation   Mutation         `json:"mutation"`
}

// Rejection names a day the mutation could not be applied to
type Rejection struct {
	Date    time.Time `json:"date"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Result lists the applied and rejected days in date order. Days removed by
// the filter appear in neither list.
type Result struct {
	Applied  []time.Time `json:"applied"`
	Rejected []Rejection `json:"rejected"`
}

// Ledger is the subset of the stock ledger a batch drives.
type Ledger interface {
	RoomType(roomTypeID string) (domain.RoomType, error)
	SetPrice(ctx context.Context, roomTypeID string, date time.Time, price decimal.Decimal) error
	SetCapacity(ctx context.Context, roomTypeID string, r domain.DateRange, total int) error
	SetMaintenance(ctx context.Context, roomTypeID string, date time.Time, count int) error
	SetHeld(ctx context.Context, roomTypeID string, date time.Time, count int) error
}

// Engine is the BatchMutationEngine
type Engine struct {
	ledger     Ledger
	classifier *calendar.Classifier
	metrics    *observability.Metrics
	logger     *observability.Logger
	tracer     trace.Tracer
}

// NewEngine creates a batch engine. A nil classifier uses a Saturday/Sunday
// weekend without holidays.
func NewEngine(ledger Ledger, classifier *calendar.Classifier, metrics *observability.Metrics, logger *observability.Logger) *Engine {
	if classifier == nil {
		classifier = calendar.NewClassifier(nil, logger)
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Engine{
		ledger:     ledger,
		classifier: classifier,
		metrics:    metrics,
		logger:     logger.WithComponent("batch"),
		tracer:     observability.GetTracer("roomledger/batch"),
	}
}

// Apply runs the batch. Call-level problems (unknown room type, malformed
// request) return an error and touch nothing; per-day invariant failures
// land in Result.Rejected.
func (e *Engine) Apply(ctx context.Context, req Request) (Result, error) {
	ctx, span := e.tracer.Start(ctx, "batch.Apply", trace.WithAttributes(
		attribute.String("room_type_id", req.RoomTypeID),
		attribute.String("filter", string(req.Filter)),
		attribute.String("mutation", string(req.Mutation.Kind)),
	))
	defer span.End()

	start := time.Now()
	result, err := e.apply(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Logger.Warn().Err(err).Str("room_type_id", req.RoomTypeID).Msg("batch rejected")
		return result, err
	}

	e.metrics.RecordBatch(string(req.Mutation.Kind), len(result.Applied), len(result.Rejected), time.Since(start))
	span.SetAttributes(
		attribute.Int("applied", len(result.Applied)),
		attribute.Int("rejected", len(result.Rejected)),
	)
	e.logger.Logger.Info().
		Str("room_type_id", req.RoomTypeID).
		Str("mutation", string(req.Mutation.Kind)).
		Str("filter", string(req.Filter)).
		Int("applied", len(result.Applied)).
		Int("rejected", len(result.Rejected)).
		Dur("duration", time.Since(start)).
		Msg("batch applied")
	return result, nil
}

func (e *Engine) apply(ctx context.Context, req Request) (Result, error) {
	if err := validate(req); err != nil {
		return Result{}, err
	}
	if _, err := e.ledger.RoomType(req.RoomTypeID); err != nil {
		return Result{}, err
	}

	window, err := calendar.Generate(ctx, req.Range.From, req.Range.Days(), e.classifier)
	if err != nil {
		return Result{}, err
	}

	result := Result{Applied: []time.Time{}, Rejected: []Rejection{}}
	for _, day := range window.Days {
		if !req.Filter.Matches(day.Class) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("batch interrupted before %s: %w", day.Date.Format(domain.DateLayout), err)
		}

		if err := e.applyDay(ctx, req, day.Date); err != nil {
			result.Rejected = append(result.Rejected, Rejection{
				Date:    day.Date,
				Code:    errors.CodeOf(err),
				Message: err.Error(),
			})
			continue
		}
		result.Applied = append(result.Applied, day.Date)
	}
	return result, nil
}

func (e *Engine) applyDay(ctx context.Context, req Request, date time.Time) error {
	m := req.Mutation
	switch m.Kind {
	case SetPrice:
		return e.ledger.SetPrice(ctx, req.RoomTypeID, date, m.Price)
	case SetCapacity:
		return e.ledger.SetCapacity(ctx, req.RoomTypeID, domain.DateRange{From: date, To: date}, m.Count)
	case SetMaintenance:
		return e.ledger.SetMaintenance(ctx, req.RoomTypeID, date, m.Count)
	case SetHeld:
		return e.ledger.SetHeld(ctx, req.RoomTypeID, date, m.Count)
	default:
		return errors.InvalidArgument(fmt.Sprintf("unknown mutation %q", m.Kind))
	}
}

func validate(req Request) error {
	if req.RoomTypeID == "" {
		return errors.InvalidArgument("room type ID cannot be empty")
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() {
		return errors.InvalidArgument("date range must have both ends")
	}
	days := req.Range.Days()
	if days < 1 {
		return errors.InvalidArgument("date range end precedes its start")
	}
	if days > MaxRangeDays {
		return errors.InvalidArgument(fmt.Sprintf("date range spans %d days, limit is %d", days, MaxRangeDays))
	}

	switch req.Filter {
	case FilterAll, FilterWeekdayOnly, FilterWeekendAndHoliday:
	default:
		return errors.InvalidArgument(fmt.Sprintf("unknown day filter %q", req.Filter))
	}

	switch req.Mutation.Kind {
	case SetPrice:
		if req.Mutation.Price.IsNegative() {
			return errors.InvalidArgument("price cannot be negative")
		}
	case SetCapacity, SetMaintenance, SetHeld:
		if req.Mutation.Count < 0 {
			return errors.InvalidArgument("room count cannot be negative")
		}
	default:
		return errors.InvalidArgument(fmt.Sprintf("unknown mutation %q", req.Mutation.Kind))
	}
	return nil
}
