package reservation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Youmanvi/roomledger/internal/domain"
	"github.com/Youmanvi/roomledger/internal/intake"
	"github.com/Youmanvi/roomledger/internal/ledger"
	"github.com/Youmanvi/roomledger/internal/pkg/errors"
)

func newService(t *testing.T) (*intake.Service, *ledger.Ledger) {
	t.Helper()
	l := ledger.New()
	rt, err := domain.NewRoomType("deluxe", "Deluxe", 2, decimal.NewFromInt(300))
	require.NoError(t, err)
	require.NoError(t, l.RegisterRoomType(*rt))
	return intake.NewService(l, intake.NewMemoryRepository(), nil), l
}

func draft(t *testing.T, svc *intake.Service, req intake.CreateRequest) DraftOutput {
	t.Helper()
	input, err := json.Marshal(req)
	require.NoError(t, err)
	out, err := DraftActivity(svc)(context.Background(), input)
	require.NoError(t, err)
	var output DraftOutput
	require.NoError(t, json.Unmarshal(out, &output))
	return output
}

func TestDraftActivity(t *testing.T) {
	svc, _ := newService(t)

	output := draft(t, svc, intake.CreateRequest{RoomTypeID: "deluxe", GuestID: "G-1", StartDate: "2025-11-17", Nights: 2})
	require.NotNil(t, output.Reservation)
	assert.NotEmpty(t, output.Reservation.ID)
	assert.Equal(t, 1, output.Reservation.Quantity)
	assert.Equal(t, domain.ReservationStatusPending, output.Reservation.Status)

	output = draft(t, svc, intake.CreateRequest{RoomTypeID: "deluxe", GuestID: "G-1", StartDate: "2025-11-17", Nights: 0})
	assert.Nil(t, output.Reservation)
	require.NotNil(t, output.Rejection)
	assert.Equal(t, errors.CodeInvalidReservationSpan, output.Rejection.Code)
}

func TestRecordAndTransitionActivities(t *testing.T) {
	svc, l := newService(t)
	ctx := context.Background()

	output := draft(t, svc, intake.CreateRequest{RoomTypeID: "deluxe", GuestID: "G-1", StartDate: "2025-11-17", Nights: 2, Quantity: 2})
	res := output.Reservation
	_, err := svc.Hold(ctx, res)
	require.NoError(t, err)

	input, err := json.Marshal(res)
	require.NoError(t, err)
	out, err := RecordActivity(svc)(ctx, input)
	require.NoError(t, err)
	assert.JSONEq(t, `{"reservation_id":"`+res.ID+`"}`, string(out))

	// replaying the record is a no-op
	_, err = RecordActivity(svc)(ctx, input)
	require.NoError(t, err)

	rec, err := l.Read("deluxe", domain.MustDate("2025-11-17"))
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Available())

	input, err = json.Marshal(TransitionInput{ReservationID: res.ID, Status: domain.ReservationStatusCancelled})
	require.NoError(t, err)
	out, err = TransitionActivity(svc)(ctx, input)
	require.NoError(t, err)
	var transition TransitionOutput
	require.NoError(t, json.Unmarshal(out, &transition))
	require.NotNil(t, transition.Reservation)
	assert.Equal(t, domain.ReservationStatusCancelled, transition.Reservation.Status)

	rec, err = l.Read("deluxe", domain.MustDate("2025-11-17"))
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Available())

	input, err = json.Marshal(TransitionInput{ReservationID: res.ID, Status: domain.ReservationStatusCheckedIn})
	require.NoError(t, err)
	out, err = TransitionActivity(svc)(ctx, input)
	require.NoError(t, err)
	transition = TransitionOutput{}
	require.NoError(t, json.Unmarshal(out, &transition))
	require.NotNil(t, transition.Rejection)
	assert.Equal(t, errors.CodeInvalidTransition, transition.Rejection.Code)
}

func TestRecordActivity_RequiresToken(t *testing.T) {
	svc, _ := newService(t)
	_, err := RecordActivity(svc)(context.Background(), []byte(`{"id":"r-1"}`))
	assert.Equal(t, "MISSING_RESERVATION_ID", errors.CodeOf(err))
}
