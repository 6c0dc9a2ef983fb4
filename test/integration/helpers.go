package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Youmanvi/roomledger/internal/activities"
	"github.com/Youmanvi/roomledger/internal/batch"
	"github.com/Youmanvi/roomledger/internal/calendar"
	"github.com/Youmanvi/roomledger/internal/domain"
	"github.com/Youmanvi/roomledger/internal/infrastructure/backend"
	"github.com/Youmanvi/roomledger/internal/infrastructure/observability"
	"github.com/Youmanvi/roomledger/internal/infrastructure/storage"
	"github.com/Youmanvi/roomledger/internal/intake"
	"github.com/Youmanvi/roomledger/internal/ledger"
	"github.com/Youmanvi/roomledger/internal/middleware"
	"github.com/Youmanvi/roomledger/internal/workflows"
	"github.com/Youmanvi/roomledger/test/fixtures"
)

// TestHarness wires the ledger, intake and batch engine behind a running
// task hub worker.
type TestHarness struct {
	DB           *sql.DB
	Ledger       *ledger.Ledger
	Intake       *intake.Service
	Reservations *storage.ReservationRepository
	DayRecords   *storage.DayRecordRepository
	RoomTypes    *storage.RoomTypeRepository
	Events       *storage.ActivityEventRepository
	Logger       *observability.Logger
	Metrics      *observability.Metrics
	Hub          *backend.TaskHub
	Client       *workflows.Client
	DBFile       string
}

// NewTestHarness creates a harness with one deluxe room type of the given
// capacity and a Friday/Saturday/Sunday weekend.
func NewTestHarness(ctx context.Context, capacity int) (*TestHarness, error) {
	dbFile := fmt.Sprintf("%s/test-roomledger-%d.db", os.TempDir(), time.Now().UnixNano())
	db, err := storage.Open(dbFile)
	if err != nil {
		return nil, err
	}

	logger := observability.NewNopLogger()
	metrics := observability.NewMetricsWithRegistry(prometheus.NewRegistry())

	dayRecords, err := storage.NewDayRecordRepository(db, 100, time.Hour, logger)
	if err != nil {
		return nil, err
	}
	reservations, err := storage.NewReservationRepository(db)
	if err != nil {
		return nil, err
	}
	roomTypes, err := storage.NewRoomTypeRepository(db)
	if err != nil {
		return nil, err
	}
	events, err := storage.NewActivityEventRepository(db, 100, time.Hour, logger)
	if err != nil {
		return nil, err
	}

	deluxe := fixtures.DeluxeRoomType(capacity)
	if err := roomTypes.Seed(ctx, deluxe); err != nil {
		return nil, err
	}
	l := ledger.New(
		ledger.WithStore(dayRecords),
		ledger.WithRoomTypeStore(roomTypes),
		ledger.WithLockTimeout(time.Second),
		ledger.WithMetrics(metrics),
		ledger.WithLogger(logger),
	)
	if err := l.RegisterRoomType(deluxe); err != nil {
		return nil, err
	}

	classifier := calendar.NewClassifier(
		calendar.NewStaticHolidays(domain.MustDate("2025-12-25")),
		logger,
	).WithWeekendDays(time.Friday, time.Saturday, time.Sunday)

	svc := intake.NewService(l, reservations, logger)
	deps := &activities.ActivityDeps{
		Logger:   logger,
		Metrics:  metrics,
		Ledger:   l,
		Batch:    batch.NewEngine(l, classifier, metrics, logger),
		Capacity: l,
		Intake:   svc,
		Events:   events,
		RetryPolicy: middleware.RetryPolicy{
			MaxAttempts:       3,
			InitialBackoff:    10 * time.Millisecond,
			MaxBackoff:        50 * time.Millisecond,
			BackoffMultiplier: 2,
		},
		TimeoutDuration:  10 * time.Second,
		BreakerThreshold: 0.5,
		BreakerTimeout:   time.Minute,
	}

	registry := workflows.NewWorkflowRegistry()
	activities.AddActivities(registry, deps)

	hub, err := backend.StartTaskHub(ctx, backend.NewInMemoryBackend(backend.NewLogger(logger)), registry, backend.NewLogger(logger))
	if err != nil {
		return nil, err
	}

	return &TestHarness{
		DB:           db,
		Ledger:       l,
		Intake:       svc,
		Reservations: reservations,
		DayRecords:   dayRecords,
		RoomTypes:    roomTypes,
		Events:       events,
		Logger:       logger,
		Metrics:      metrics,
		Hub:          hub,
		Client:       workflows.NewClient(hub.Client),
		DBFile:       dbFile,
	}, nil
}

// Stop stops the worker and cleans up the temporary database
func (h *TestHarness) Stop(ctx context.Context) error {
	err := h.Hub.Shutdown(ctx)
	h.DayRecords.Close()
	h.Events.Close()
	h.DB.Close()
	os.Remove(h.DBFile)
	return err
}

// Available returns the sellable rooms of the deluxe room type on date
func (h *TestHarness) Available(date string) int {
	rec, err := h.Ledger.Read(fixtures.DeluxeRoomTypeID, domain.MustDate(date))
	if err != nil {
		return -1
	}
	return rec.Available()
}
