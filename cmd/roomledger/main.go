package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/Youmanvi/roomledger/internal/activities"
	"github.com/Youmanvi/roomledger/internal/batch"
	"github.com/Youmanvi/roomledger/internal/calendar"
	"github.com/Youmanvi/roomledger/internal/domain"
	"github.com/Youmanvi/roomledger/internal/infrastructure/backend"
	"github.com/Youmanvi/roomledger/internal/infrastructure/config"
	"github.com/Youmanvi/roomledger/internal/infrastructure/observability"
	"github.com/Youmanvi/roomledger/internal/infrastructure/storage"
	"github.com/Youmanvi/roomledger/internal/intake"
	"github.com/Youmanvi/roomledger/internal/inventory"
	"github.com/Youmanvi/roomledger/internal/layout"
	"github.com/Youmanvi/roomledger/internal/ledger"
	"github.com/Youmanvi/roomledger/internal/middleware"
	"github.com/Youmanvi/roomledger/internal/workflows"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(&cfg.Observability)
	if err := run(cfg, logger); err != nil {
		logger.Logger.Fatal().Err(err).Msg("roomledger stopped with error")
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitializeTracing(ctx, &cfg.Observability, cfg.App.Name)
	if err != nil {
		return err
	}
	defer observability.ShutdownTracing(context.Background(), tp)

	metrics := observability.NewMetrics()
	var metricsServer *http.Server
	if cfg.Observability.MetricsEnabled {
		metricsServer = startMetricsServer(cfg.App.MetricsPort, logger)
	}

	// Storage
	db, err := storage.Open(cfg.Storage.SQLiteFile)
	if err != nil {
		return err
	}
	defer db.Close()

	dayRecords, err := storage.NewDayRecordRepository(db, cfg.Storage.BatchSize, cfg.Storage.FlushInterval, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := dayRecords.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("final day record flush failed")
		}
	}()

	reservations, err := storage.NewReservationRepository(db)
	if err != nil {
		return err
	}
	roomTypes, err := storage.NewRoomTypeRepository(db)
	if err != nil {
		return err
	}
	holidays, err := storage.NewHolidayRepository(db)
	if err != nil {
		return err
	}
	events, err := storage.NewActivityEventRepository(db, cfg.Storage.BatchSize, cfg.Storage.FlushInterval, logger)
	if err != nil {
		return err
	}
	defer events.Close()

	if pruned, err := events.PruneOldEvents(ctx, cfg.Storage.EventRetention); err != nil {
		logger.Logger.Warn().Err(err).Msg("failed to prune activity events")
	} else if pruned > 0 {
		logger.Logger.Info().Int64("events", pruned).Msg("pruned old activity events")
	}

	// Ledger
	l := ledger.New(
		ledger.WithStore(dayRecords),
		ledger.WithRoomTypeStore(roomTypes),
		ledger.WithLockTimeout(cfg.Ledger.LockTimeout),
		ledger.WithMetrics(metrics),
		ledger.WithLogger(logger),
	)
	if err := loadLedger(ctx, cfg, l, roomTypes, dayRecords, logger); err != nil {
		return err
	}

	// Calendar
	classifier, err := newClassifier(ctx, cfg, holidays, logger)
	if err != nil {
		return err
	}

	// Intake. Stored reservations are the record of what was sold, so the
	// booked rooms are rebuilt from them before traffic is served.
	svc := intake.NewService(l, reservations, logger)
	if _, err := svc.RestoreTokens(ctx); err != nil {
		return err
	}

	resolver, err := inventory.NewResolver(cfg.Ledger.LimitedThreshold)
	if err != nil {
		return err
	}
	logOutlook(ctx, cfg, l, svc, classifier, resolver, logger)

	// Durable orchestrations
	deps := &activities.ActivityDeps{
		Logger:   logger,
		Metrics:  metrics,
		Ledger:   l,
		Batch:    batch.NewEngine(l, classifier, metrics, logger),
		Capacity: l,
		Intake:   svc,
		Events:   events,
		RetryPolicy: middleware.RetryPolicy{
			MaxAttempts:       cfg.Activities.RetryMaxAttempts,
			InitialBackoff:    time.Duration(cfg.Activities.RetryBackoffMs) * time.Millisecond,
			MaxBackoff:        30 * time.Second,
			BackoffMultiplier: 2.0,
		},
		TimeoutDuration:  time.Duration(cfg.Activities.TimeoutSeconds) * time.Second,
		BreakerThreshold: cfg.Activities.CircuitBreakerThreshold,
		BreakerTimeout:   cfg.Activities.CircuitBreakerTimeout,
	}
	registry := workflows.NewWorkflowRegistry()
	activities.AddActivities(registry, deps)

	hubLogger := backend.NewLogger(logger)
	be, err := backend.NewSQLiteBackend(cfg.Storage.WorkflowFile, hubLogger)
	if err != nil {
		return err
	}
	hub, err := backend.StartTaskHub(ctx, be, registry, hubLogger)
	if err != nil {
		return err
	}

	logger.Logger.Info().
		Str("app", cfg.App.Name).
		Int("room_types", len(l.RoomTypes())).
		Msg("roomledger started")

	<-ctx.Done()
	logger.Logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := hub.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("task hub shutdown failed")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error().Err(err).Msg("metrics server shutdown failed")
		}
	}
	return nil
}

func startMetricsServer(port int, logger *observability.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return server
}

// loadLedger seeds configured room types, registers every stored room type
// and replays the persisted day records. A stored capacity wins over the
// configured one.
func loadLedger(ctx context.Context, cfg *config.Config, l *ledger.Ledger, roomTypes *storage.RoomTypeRepository, dayRecords *storage.DayRecordRepository, logger *observability.Logger) error {
	for _, seed := range cfg.Catalog.RoomTypes {
		price, err := decimal.NewFromString(seed.BasePrice)
		if err != nil {
			return fmt.Errorf("invalid base price for room type %s: %w", seed.ID, err)
		}
		rt, err := domain.NewRoomType(seed.ID, seed.Name, seed.Capacity, price)
		if err != nil {
			return err
		}
		if err := roomTypes.Seed(ctx, *rt); err != nil {
			return err
		}
	}

	stored, err := roomTypes.List(ctx)
	if err != nil {
		return err
	}
	for _, rt := range stored {
		if err := l.RegisterRoomType(rt); err != nil {
			return err
		}
	}

	records, err := dayRecords.LoadAll(ctx)
	if err != nil {
		return err
	}
	if err := l.Load(records); err != nil {
		return err
	}

	logger.Logger.Info().
		Int("room_types", len(stored)).
		Int("day_records", len(records)).
		Msg("ledger loaded")
	return nil
}

// newClassifier stores the configured holidays and reads them back through
// a circuit breaker, so a failing holiday table degrades to weekday/weekend.
func newClassifier(ctx context.Context, cfg *config.Config, holidays *storage.HolidayRepository, logger *observability.Logger) (*calendar.Classifier, error) {
	for _, value := range cfg.Calendar.Holidays {
		date, err := domain.ParseDate(value)
		if err != nil {
			return nil, err
		}
		if err := holidays.Add(ctx, date, "configured"); err != nil {
			return nil, err
		}
	}

	weekend, err := calendar.ParseWeekdays(cfg.Calendar.WeekendDays)
	if err != nil {
		return nil, err
	}

	provider := calendar.NewBreakerHolidayProvider(holidays, calendar.BreakerSettings{
		Threshold: cfg.Calendar.BreakerThreshold,
		Timeout:   cfg.Calendar.BreakerTimeout,
	}, logger)
	return calendar.NewClassifier(provider, logger).WithWeekendDays(weekend...), nil
}

// logOutlook logs the status mix and booking lanes of every room type over
// the default window starting today.
func logOutlook(ctx context.Context, cfg *config.Config, l *ledger.Ledger, svc *intake.Service, classifier *calendar.Classifier, resolver *inventory.Resolver, logger *observability.Logger) {
	window, err := calendar.Generate(ctx, time.Now(), cfg.Calendar.DefaultWindowSpanInDays, classifier)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("failed to build outlook window")
		return
	}
	engine := layout.NewEngine()

	for _, rt := range l.RoomTypes() {
		log := logger.WithRoomType(rt.ID)

		records, err := l.ReadRange(rt.ID, window.Start, window.Len())
		if err != nil {
			log.Logger.Warn().Err(err).Msg("failed to read outlook")
			continue
		}
		days, err := resolver.Project(window, records)
		if err != nil {
			log.Logger.Warn().Err(err).Msg("failed to project outlook")
			continue
		}
		counts := make(map[domain.InventoryStatus]int, 4)
		for _, d := range days {
			counts[d.Status]++
		}

		stays, err := svc.ListForWindow(ctx, rt.ID, window)
		if err != nil {
			log.Logger.Warn().Err(err).Msg("failed to list reservations")
			continue
		}
		lanes, attention := 0, 0
		for _, p := range engine.Layout(window, stays) {
			if p.Span == nil {
				continue
			}
			if p.Span.Lane+1 > lanes {
				lanes = p.Span.Lane + 1
			}
			if p.Span.Attention {
				attention++
			}
		}

		log.Logger.Info().
			Str("from", window.Start.Format(domain.DateLayout)).
			Int("days", window.Len()).
			Int("open", counts[domain.InventoryStatusOpen]).
			Int("limited", counts[domain.InventoryStatusLimited]).
			Int("sold_out", counts[domain.InventoryStatusSoldOut]).
			Int("closed", counts[domain.InventoryStatusClosed]).
			Int("reservations", len(stays)).
			Int("lanes", lanes).
			Int("needs_attention", attention).
			Msg("inventory outlook")
	}
}
