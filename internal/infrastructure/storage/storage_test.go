package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Youmanvi/roomledger/internal/domain"
	"github.com/Youmanvi/roomledger/internal/pkg/errors"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func dayRecord(date string, booked int, version int64) domain.DayRecord {
	return domain.DayRecord{
		RoomTypeID:  "deluxe",
		Date:        domain.MustDate(date),
		TotalRooms:  10,
		BookedRooms: booked,
		Price:       decimal.RequireFromString("325.50"),
		Version:     version,
		UpdatedAt:   time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDayRecordRepository_FlushAndLoad(t *testing.T) {
	ctx := context.Background()
	repo, err := NewDayRecordRepository(openTestDB(t), 100, time.Hour, nil)
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.SaveDayRecords(ctx, []domain.DayRecord{
		dayRecord("2025-11-17", 1, 1),
		dayRecord("2025-11-18", 1, 1),
	}))
	// a stale write arriving late is ignored
	require.NoError(t, repo.SaveDayRecords(ctx, []domain.DayRecord{dayRecord("2025-11-17", 3, 2)}))
	require.NoError(t, repo.SaveDayRecords(ctx, []domain.DayRecord{dayRecord("2025-11-17", 2, 1)}))

	records, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records, "nothing is written before a flush")

	require.NoError(t, repo.Flush(ctx))
	records, err = repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, domain.MustDate("2025-11-17"), records[0].Date)
	assert.Equal(t, 3, records[0].BookedRooms)
	assert.Equal(t, int64(2), records[0].Version)
	assert.True(t, decimal.RequireFromString("325.50").Equal(records[0].Price))
	assert.True(t, records[0].UpdatedAt.Equal(time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)))
}

func TestDayRecordRepository_VersionGuardAcrossFlushes(t *testing.T) {
	ctx := context.Background()
	repo, err := NewDayRecordRepository(openTestDB(t), 100, time.Hour, nil)
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.SaveDayRecords(ctx, []domain.DayRecord{dayRecord("2025-11-17", 4, 5)}))
	require.NoError(t, repo.Flush(ctx))
	require.NoError(t, repo.SaveDayRecords(ctx, []domain.DayRecord{dayRecord("2025-11-17", 1, 3)}))
	require.NoError(t, repo.Flush(ctx))

	records, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 4, records[0].BookedRooms)
}

func TestDayRecordRepository_BatchSizeTriggersFlush(t *testing.T) {
	ctx := context.Background()
	repo, err := NewDayRecordRepository(openTestDB(t), 2, time.Hour, nil)
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.SaveDayRecords(ctx, []domain.DayRecord{
		dayRecord("2025-11-17", 1, 1),
		dayRecord("2025-11-18", 1, 1),
	}))

	records, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestDayRecordRepository_CloseFlushes(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo, err := NewDayRecordRepository(db, 100, time.Hour, nil)
	require.NoError(t, err)

	require.NoError(t, repo.SaveDayRecords(ctx, []domain.DayRecord{dayRecord("2025-11-17", 1, 1)}))
	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close())

	reopened, err := NewDayRecordRepository(db, 100, time.Hour, nil)
	require.NoError(t, err)
	defer reopened.Close()
	records, err := reopened.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func newReservation(t *testing.T, id, roomType, start string, nights int) *domain.Reservation {
	t.Helper()
	r, err := domain.NewReservation(id, roomType, "guest-"+id, domain.MustDate(start), nights, 1)
	require.NoError(t, err)
	r.TokenID = "tok-" + id
	return r
}

func TestReservationRepository_SaveGetUpdate(t *testing.T) {
	ctx := context.Background()
	repo, err := NewReservationRepository(openTestDB(t))
	require.NoError(t, err)

	res := newReservation(t, "r1", "deluxe", "2025-11-15", 5)
	require.NoError(t, repo.Save(ctx, res))
	assert.Error(t, repo.Save(ctx, res), "duplicate id")

	got, err := repo.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.MustDate("2025-11-15"), got.StartDate)
	assert.Equal(t, 5, got.Nights)
	assert.Equal(t, domain.ReservationStatusPending, got.Status)
	assert.Equal(t, "tok-r1", got.TokenID)

	require.NoError(t, got.TransitionTo(domain.ReservationStatusRefundFlagged))
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusRefundFlagged, got.Status)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrReservationNotFound)
	assert.ErrorIs(t, repo.Update(ctx, newReservation(t, "missing", "deluxe", "2025-11-15", 1)), errors.ErrReservationNotFound)
}

func TestReservationRepository_ListIntersecting(t *testing.T) {
	ctx := context.Background()
	repo, err := NewReservationRepository(openTestDB(t))
	require.NoError(t, err)

	for _, r := range []*domain.Reservation{
		newReservation(t, "before", "deluxe", "2025-11-10", 7),  // ends 11-17, outside
		newReservation(t, "clipped", "deluxe", "2025-11-15", 5), // overlaps start
		newReservation(t, "inside", "deluxe", "2025-11-20", 2),
		newReservation(t, "after", "deluxe", "2025-12-01", 2),
		newReservation(t, "suite", "suite", "2025-11-20", 2),
	} {
		require.NoError(t, repo.Save(ctx, r))
	}

	from, to := domain.MustDate("2025-11-17"), domain.MustDate("2025-12-01")
	got, err := repo.ListIntersecting(ctx, "deluxe", from, to)
	require.NoError(t, err)
	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"clipped", "inside"}, ids)

	all, err := repo.ListIntersecting(ctx, "", from, to)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestReservationRepository_ListHoldingInventory(t *testing.T) {
	ctx := context.Background()
	repo, err := NewReservationRepository(openTestDB(t))
	require.NoError(t, err)

	active := newReservation(t, "active", "deluxe", "2025-11-17", 1)
	cancelled := newReservation(t, "cancelled", "deluxe", "2025-11-17", 1)
	cancelled.Status = domain.ReservationStatusCancelled
	require.NoError(t, repo.Save(ctx, active))
	require.NoError(t, repo.Save(ctx, cancelled))

	got, err := repo.ListHoldingInventory(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "active", got[0].ID)
}

func TestRoomTypeRepository(t *testing.T) {
	ctx := context.Background()
	repo, err := NewRoomTypeRepository(openTestDB(t))
	require.NoError(t, err)

	rt, err := domain.NewRoomType("deluxe", "Deluxe", 10, decimal.NewFromInt(300))
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, *rt))
	rt.Capacity = 12
	require.NoError(t, repo.Upsert(ctx, *rt))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 12, list[0].Capacity)
	assert.True(t, decimal.NewFromInt(300).Equal(list[0].BasePrice))
}

func TestRoomTypeRepository_SeedKeepsStoredCapacity(t *testing.T) {
	ctx := context.Background()
	repo, err := NewRoomTypeRepository(openTestDB(t))
	require.NoError(t, err)

	rt, err := domain.NewRoomType("deluxe", "Deluxe", 10, decimal.NewFromInt(300))
	require.NoError(t, err)
	require.NoError(t, repo.Seed(ctx, *rt))

	changed := *rt
	changed.Capacity = 4
	require.NoError(t, repo.Upsert(ctx, changed))

	// restarting with the same seed leaves the changed capacity alone
	reseeded := *rt
	reseeded.Name = "Deluxe King"
	require.NoError(t, repo.Seed(ctx, reseeded))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 4, list[0].Capacity)
	assert.Equal(t, "Deluxe King", list[0].Name)
}

func TestHolidayRepository(t *testing.T) {
	ctx := context.Background()
	repo, err := NewHolidayRepository(openTestDB(t))
	require.NoError(t, err)

	xmas := domain.MustDate("2025-12-25")
	require.NoError(t, repo.Add(ctx, xmas, "Christmas"))

	ok, err := repo.IsHoliday(ctx, xmas.Add(15*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IsHoliday(ctx, domain.MustDate("2025-12-24"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Remove(ctx, xmas))
	ok, err = repo.IsHoliday(ctx, xmas)
	require.NoError(t, err)
	assert.False(t, ok)
}
