package integration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Youmanvi/roomledger/internal/calendar"
	"github.com/Youmanvi/roomledger/internal/domain"
	"github.com/Youmanvi/roomledger/internal/infrastructure/observability"
	"github.com/Youmanvi/roomledger/internal/infrastructure/storage"
	"github.com/Youmanvi/roomledger/internal/intake"
	"github.com/Youmanvi/roomledger/internal/ledger"
	"github.com/Youmanvi/roomledger/internal/pkg/errors"
	"github.com/Youmanvi/roomledger/test/fixtures"
)

// process is one run of the engine over a database file
type process struct {
	ledger     *ledger.Ledger
	intake     *intake.Service
	dayRecords *storage.DayRecordRepository
}

func startProcess(t *testing.T, ctx context.Context, dbFile string, capacity int) *process {
	t.Helper()
	db, err := storage.Open(dbFile)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := observability.NewNopLogger()
	dayRecords, err := storage.NewDayRecordRepository(db, 100, time.Hour, logger)
	require.NoError(t, err)
	reservations, err := storage.NewReservationRepository(db)
	require.NoError(t, err)

	l := ledger.New(ledger.WithStore(dayRecords), ledger.WithLogger(logger))
	require.NoError(t, l.RegisterRoomType(fixtures.DeluxeRoomType(capacity)))
	records, err := dayRecords.LoadAll(ctx)
	require.NoError(t, err)
	require.NoError(t, l.Load(records))

	svc := intake.NewService(l, reservations, logger)
	_, err = svc.RestoreTokens(ctx)
	require.NoError(t, err)

	return &process{ledger: l, intake: svc, dayRecords: dayRecords}
}

func TestRestartWithoutFlushKeepsBookings(t *testing.T) {
	ctx := context.Background()
	dbFile := filepath.Join(t.TempDir(), "roomledger.db")

	first := startProcess(t, ctx, dbFile, 1)
	_, err := first.intake.Create(ctx, fixtures.StayRequest("2025-11-17", 1, 1))
	require.NoError(t, err)

	// the first process dies with its day records still buffered
	second := startProcess(t, ctx, dbFile, 1)
	rec, err := second.ledger.Read(fixtures.DeluxeRoomTypeID, domain.MustDate("2025-11-17"))
	require.NoError(t, err)
	assert.Equal(t, 1, rec.BookedRooms)

	_, err = second.intake.Create(ctx, fixtures.StayRequest("2025-11-17", 1, 1))
	assert.ErrorIs(t, err, errors.ErrInsufficientInventory)

	window, err := calendar.Generate(ctx, domain.MustDate("2025-11-17"), 7, nil)
	require.NoError(t, err)
	held, err := second.intake.ListForWindow(ctx, fixtures.DeluxeRoomTypeID, window)
	require.NoError(t, err)
	assert.Len(t, held, 1)

	// the rebuilt count reaches the store on the next flush
	require.NoError(t, second.dayRecords.Flush(ctx))
	stored, err := second.dayRecords.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 1, stored[0].BookedRooms)
}

func TestRestartDropsBookingWithoutReservation(t *testing.T) {
	ctx := context.Background()
	dbFile := filepath.Join(t.TempDir(), "roomledger.db")

	first := startProcess(t, ctx, dbFile, 1)
	// a hold whose reservation was never stored
	_, err := first.ledger.ReserveHold(ctx, "lost", fixtures.DeluxeRoomTypeID, domain.MustDate("2025-11-17"), 1, 1)
	require.NoError(t, err)
	require.NoError(t, first.dayRecords.Flush(ctx))

	second := startProcess(t, ctx, dbFile, 1)
	rec, err := second.ledger.Read(fixtures.DeluxeRoomTypeID, domain.MustDate("2025-11-17"))
	require.NoError(t, err)
	assert.Equal(t, 0, rec.BookedRooms)

	_, err = second.intake.Create(ctx, fixtures.StayRequest("2025-11-17", 1, 1))
	assert.NoError(t, err)
}
