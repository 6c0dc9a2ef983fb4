package intake

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Youmanvi/roomledger/internal/calendar"
	"github.com/Youmanvi/roomledger/internal/domain"
	"github.com/Youmanvi/roomledger/internal/ledger"
	"github.com/Youmanvi/roomledger/internal/pkg/errors"
)

func setup(t *testing.T, capacity int) (*Service, *ledger.Ledger, *MemoryRepository) {
	t.Helper()
	l := ledger.New()
	require.NoError(t, l.RegisterRoomType(domain.RoomType{
		ID: "deluxe", Name: "Deluxe", Capacity: capacity, BasePrice: decimal.NewFromInt(300),
	}))
	repo := NewMemoryRepository()
	return NewService(l, repo, nil), l, repo
}

func booked(t *testing.T, l *ledger.Ledger, date string) int {
	t.Helper()
	rec, err := l.Read("deluxe", domain.MustDate(date))
	require.NoError(t, err)
	return rec.BookedRooms
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, l, _ := setup(t, 5)

	res, err := svc.Create(ctx, CreateRequest{
		RoomTypeID: "deluxe",
		GuestID:    "guest-1",
		StartDate:  "2025-11-17",
		Nights:     2,
		Quantity:   2,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.NotEmpty(t, res.TokenID)
	assert.Equal(t, domain.ReservationStatusPending, res.Status)
	assert.Equal(t, 2, booked(t, l, "2025-11-17"))
	assert.Equal(t, 2, booked(t, l, "2025-11-18"))
	assert.Equal(t, 0, booked(t, l, "2025-11-19"))

	stored, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.TokenID, stored.TokenID)
}

func TestCreate_IsIdempotentPerReservationID(t *testing.T) {
	ctx := context.Background()
	svc, l, _ := setup(t, 5)
	req := CreateRequest{ReservationID: "r-1", RoomTypeID: "deluxe", GuestID: "g", StartDate: "2025-11-17", Nights: 1}

	first, err := svc.Create(ctx, req)
	require.NoError(t, err)
	second, err := svc.Create(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.TokenID, second.TokenID)
	assert.Equal(t, 1, booked(t, l, "2025-11-17"))
}

func TestCreate_ValidationNeverReachesLedger(t *testing.T) {
	ctx := context.Background()
	svc, l, _ := setup(t, 5)

	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"zero nights", CreateRequest{RoomTypeID: "deluxe", GuestID: "g", StartDate: "2025-11-17", Nights: 0}, errors.ErrInvalidReservationSpan},
		{"negative nights", CreateRequest{RoomTypeID: "deluxe", GuestID: "g", StartDate: "2025-11-17", Nights: -2}, errors.ErrInvalidReservationSpan},
		{"missing guest", CreateRequest{RoomTypeID: "deluxe", StartDate: "2025-11-17", Nights: 1}, errors.ErrInvalidArgument},
		{"bad date", CreateRequest{RoomTypeID: "deluxe", GuestID: "g", StartDate: "17/11/2025", Nights: 1}, errors.ErrInvalidArgument},
		{"negative quantity", CreateRequest{RoomTypeID: "deluxe", GuestID: "g", StartDate: "2025-11-17", Nights: 1, Quantity: -1}, errors.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 0, booked(t, l, "2025-11-17"))
}

func TestCreate_InsufficientInventoryNamesDate(t *testing.T) {
	ctx := context.Background()
	svc, _, repo := setup(t, 1)

	_, err := svc.Create(ctx, CreateRequest{RoomTypeID: "deluxe", GuestID: "a", StartDate: "2025-11-18", Nights: 1})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateRequest{ReservationID: "late", RoomTypeID: "deluxe", GuestID: "b", StartDate: "2025-11-17", Nights: 3})
	require.ErrorIs(t, err, errors.ErrInsufficientInventory)
	ce, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, domain.MustDate("2025-11-18"), ce.Date)

	_, err = repo.Get(ctx, "late")
	assert.ErrorIs(t, err, errors.ErrReservationNotFound)
}

type failingSaveRepo struct {
	*MemoryRepository
}

func (f failingSaveRepo) Save(context.Context, *domain.Reservation) error {
	return stderrors.New("disk full")
}

func TestCreate_ReleasesHoldWhenRecordFails(t *testing.T) {
	ctx := context.Background()
	l := ledger.New()
	require.NoError(t, l.RegisterRoomType(domain.RoomType{ID: "deluxe", Capacity: 2}))
	svc := NewService(l, failingSaveRepo{NewMemoryRepository()}, nil)

	_, err := svc.Create(ctx, CreateRequest{RoomTypeID: "deluxe", GuestID: "g", StartDate: "2025-11-17", Nights: 2})
	require.Error(t, err)
	assert.Equal(t, 0, booked(t, l, "2025-11-17"))
	assert.Equal(t, 0, booked(t, l, "2025-11-18"))
}

func TestTransition_CancelReleasesOnce(t *testing.T) {
	ctx := context.Background()
	svc, l, _ := setup(t, 3)

	res, err := svc.Create(ctx, CreateRequest{RoomTypeID: "deluxe", GuestID: "g", StartDate: "2025-11-17", Nights: 1, Quantity: 2})
	require.NoError(t, err)

	_, err = svc.Transition(ctx, res.ID, domain.ReservationStatusRefundFlagged)
	require.NoError(t, err)
	assert.Equal(t, 2, booked(t, l, "2025-11-17"), "refund flag alone keeps the rooms")

	got, err := svc.Transition(ctx, res.ID, domain.ReservationStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusCancelled, got.Status)
	assert.Equal(t, 0, booked(t, l, "2025-11-17"))

	// replaying the cancellation is a no-op
	_, err = svc.Transition(ctx, res.ID, domain.ReservationStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 0, booked(t, l, "2025-11-17"))
}

func TestTransition_CheckoutKeepsInventory(t *testing.T) {
	ctx := context.Background()
	svc, l, _ := setup(t, 3)

	res, err := svc.Create(ctx, CreateRequest{RoomTypeID: "deluxe", GuestID: "g", StartDate: "2025-11-17", Nights: 1})
	require.NoError(t, err)

	_, err = svc.Transition(ctx, res.ID, domain.ReservationStatusCheckedIn)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, res.ID, domain.ReservationStatusCheckedOut)
	require.NoError(t, err)
	assert.Equal(t, 1, booked(t, l, "2025-11-17"))

	_, err = svc.Transition(ctx, res.ID, domain.ReservationStatusCancelled)
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)

	_, err = svc.Transition(ctx, "missing", domain.ReservationStatusCancelled)
	assert.ErrorIs(t, err, errors.ErrReservationNotFound)
}

func TestListForWindow(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t, 5)

	for _, req := range []CreateRequest{
		{ReservationID: "a", RoomTypeID: "deluxe", GuestID: "g", StartDate: "2025-11-15", Nights: 5},
		{ReservationID: "b", RoomTypeID: "deluxe", GuestID: "g", StartDate: "2025-11-10", Nights: 2},
	} {
		_, err := svc.Create(ctx, req)
		require.NoError(t, err)
	}

	w, err := calendar.Generate(ctx, domain.MustDate("2025-11-17"), 14, nil)
	require.NoError(t, err)
	got, err := svc.ListForWindow(ctx, "deluxe", w)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestRestoreTokens(t *testing.T) {
	ctx := context.Background()
	svc, l, repo := setup(t, 5)
	res, err := svc.Create(ctx, CreateRequest{RoomTypeID: "deluxe", GuestID: "g", StartDate: "2025-11-17", Nights: 1})
	require.NoError(t, err)

	// a fresh process: same persisted day records, empty token registry
	snapshot, err := l.ReadRange("deluxe", domain.MustDate("2025-11-17"), 1)
	require.NoError(t, err)
	restarted := ledger.New()
	require.NoError(t, restarted.RegisterRoomType(domain.RoomType{ID: "deluxe", Capacity: 5}))
	require.NoError(t, restarted.Load(snapshot))

	svc2 := NewService(restarted, repo, nil)
	n, err := svc2.RestoreTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc2.Transition(ctx, res.ID, domain.ReservationStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 0, booked(t, restarted, "2025-11-17"))
}

func TestRestoreTokens_RecountsBookingsLostBeforeFlush(t *testing.T) {
	ctx := context.Background()
	svc, _, repo := setup(t, 1)
	res, err := svc.Create(ctx, CreateRequest{RoomTypeID: "deluxe", GuestID: "g", StartDate: "2025-11-17", Nights: 2})
	require.NoError(t, err)
	assert.Equal(t, res.ID, res.TokenID)

	// a fresh process whose day records never saw the booking
	restarted := ledger.New()
	require.NoError(t, restarted.RegisterRoomType(domain.RoomType{ID: "deluxe", Capacity: 1}))
	svc2 := NewService(restarted, repo, nil)
	_, err = svc2.RestoreTokens(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, booked(t, restarted, "2025-11-17"))
	assert.Equal(t, 1, booked(t, restarted, "2025-11-18"))

	_, err = svc2.Create(ctx, CreateRequest{RoomTypeID: "deluxe", GuestID: "h", StartDate: "2025-11-18", Nights: 1})
	assert.ErrorIs(t, err, errors.ErrInsufficientInventory)
}

func TestHold_RepeatBooksOnce(t *testing.T) {
	ctx := context.Background()
	svc, l, _ := setup(t, 3)
	res, err := svc.Draft(CreateRequest{RoomTypeID: "deluxe", GuestID: "g", StartDate: "2025-11-17", Nights: 1, Quantity: 2})
	require.NoError(t, err)

	first, err := svc.Hold(ctx, res)
	require.NoError(t, err)
	second, err := svc.Hold(ctx, res)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, booked(t, l, "2025-11-17"))
}

func TestAbandonHold(t *testing.T) {
	ctx := context.Background()
	svc, l, _ := setup(t, 3)

	// an unrecorded hold is returned
	res, err := svc.Draft(CreateRequest{ReservationID: "r-1", RoomTypeID: "deluxe", GuestID: "g", StartDate: "2025-11-17", Nights: 1})
	require.NoError(t, err)
	token, err := svc.Hold(ctx, res)
	require.NoError(t, err)
	require.NoError(t, svc.AbandonHold(ctx, token))
	assert.Equal(t, 0, booked(t, l, "2025-11-17"))

	// a hold that never committed is ignored
	require.NoError(t, svc.AbandonHold(ctx, ledger.ReservationToken{ID: "r-2", RoomTypeID: "deluxe", StartDate: domain.MustDate("2025-11-17"), Nights: 1, Quantity: 1}))

	// a stored reservation keeps its rooms
	stored, err := svc.Create(ctx, CreateRequest{ReservationID: "r-3", RoomTypeID: "deluxe", GuestID: "g", StartDate: "2025-11-17", Nights: 1})
	require.NoError(t, err)
	require.NoError(t, svc.AbandonHold(ctx, TokenFor(stored)))
	assert.Equal(t, 1, booked(t, l, "2025-11-17"))
}

func TestDraftDefaultsQuantity(t *testing.T) {
	svc, _, _ := setup(t, 5)
	res, err := svc.Draft(CreateRequest{RoomTypeID: "deluxe", GuestID: "g", StartDate: "2025-11-17", Nights: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Quantity)
	assert.True(t, res.StartDate.Equal(time.Date(2025, 11, 17, 0, 0, 0, 0, time.UTC)))
}
