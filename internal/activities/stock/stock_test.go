package stock

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Youmanvi/roomledger/internal/batch"
	"github.com/Youmanvi/roomledger/internal/domain"
	"github.com/Youmanvi/roomledger/internal/ledger"
	"github.com/Youmanvi/roomledger/internal/pkg/errors"
)

type fakeHolder struct {
	reserveErr error
}

func (f *fakeHolder) ReserveHold(ctx context.Context, holdID, roomTypeID string, startDate time.Time, nights, qty int) (ledger.ReservationToken, error) {
	if f.reserveErr != nil {
		return ledger.ReservationToken{}, f.reserveErr
	}
	return ledger.ReservationToken{ID: holdID, RoomTypeID: roomTypeID, StartDate: startDate, Nights: nights, Quantity: qty}, nil
}

type fakeAbandoner struct {
	abandoned []string
}

func (f *fakeAbandoner) AbandonHold(ctx context.Context, token ledger.ReservationToken) error {
	f.abandoned = append(f.abandoned, token.ID)
	return nil
}

func reserveInput(t *testing.T) []byte {
	t.Helper()
	input, err := json.Marshal(ReserveInput{
		HoldID:     "tok-1",
		RoomTypeID: "deluxe",
		StartDate:  domain.MustDate("2025-11-17"),
		Nights:     3,
		Quantity:   1,
	})
	require.NoError(t, err)
	return input
}

func TestReserveActivity_ReturnsToken(t *testing.T) {
	out, err := ReserveActivity(&fakeHolder{})(context.Background(), reserveInput(t))
	require.NoError(t, err)

	var output ReserveOutput
	require.NoError(t, json.Unmarshal(out, &output))
	require.NotNil(t, output.Token)
	assert.Equal(t, "tok-1", output.Token.ID)
	assert.Equal(t, 3, output.Token.Nights)
	assert.Nil(t, output.Rejection)
}

func TestReserveActivity_SoldOutIsData(t *testing.T) {
	date := domain.MustDate("2025-11-18")
	holder := &fakeHolder{reserveErr: errors.InsufficientInventory("deluxe", date, 0, 1)}

	out, err := ReserveActivity(holder)(context.Background(), reserveInput(t))
	require.NoError(t, err)

	var output ReserveOutput
	require.NoError(t, json.Unmarshal(out, &output))
	assert.Nil(t, output.Token)
	require.NotNil(t, output.Rejection)
	assert.Equal(t, errors.CodeInsufficientInventory, output.Rejection.Code)
	require.NotNil(t, output.Rejection.Date)
	assert.True(t, date.Equal(*output.Rejection.Date))
}

func TestReserveActivity_LockTimeoutIsAnError(t *testing.T) {
	holder := &fakeHolder{reserveErr: errors.LockTimeout("deluxe", domain.MustDate("2025-11-18"), time.Second)}

	_, err := ReserveActivity(holder)(context.Background(), reserveInput(t))
	assert.ErrorIs(t, err, errors.ErrLockTimeout)
}

func TestReserveActivity_BadInput(t *testing.T) {
	_, err := ReserveActivity(&fakeHolder{})(context.Background(), []byte("{"))
	customErr, ok := errors.As(err)
	require.True(t, ok)
	assert.True(t, customErr.IsPermanent())
	assert.Equal(t, "INVALID_INPUT", customErr.Code)
}

func TestReserveActivity_RepeatWithSameHoldIDBooksOnce(t *testing.T) {
	ctx := context.Background()
	l := ledger.New()
	require.NoError(t, l.RegisterRoomType(domain.RoomType{ID: "deluxe", Capacity: 2}))
	activity := ReserveActivity(l)

	var tokens []string
	for i := 0; i < 2; i++ {
		out, err := activity(ctx, reserveInput(t))
		require.NoError(t, err)
		var output ReserveOutput
		require.NoError(t, json.Unmarshal(out, &output))
		require.NotNil(t, output.Token)
		tokens = append(tokens, output.Token.ID)
	}
	assert.Equal(t, []string{"tok-1", "tok-1"}, tokens)

	for _, date := range []string{"2025-11-17", "2025-11-18", "2025-11-19"} {
		rec, err := l.Read("deluxe", domain.MustDate(date))
		require.NoError(t, err)
		assert.Equal(t, 1, rec.BookedRooms, date)
	}
}

func TestReserveActivity_MissingHoldID(t *testing.T) {
	input, err := json.Marshal(ReserveInput{RoomTypeID: "deluxe", StartDate: domain.MustDate("2025-11-17"), Nights: 1, Quantity: 1})
	require.NoError(t, err)
	_, err = ReserveActivity(&fakeHolder{})(context.Background(), input)
	assert.Equal(t, "MISSING_HOLD_ID", errors.CodeOf(err))
}

func TestAbandonActivity(t *testing.T) {
	abandoner := &fakeAbandoner{}
	input, err := json.Marshal(ReleaseInput{Token: ledger.ReservationToken{ID: "tok-9"}})
	require.NoError(t, err)

	out, err := AbandonActivity(abandoner)(context.Background(), input)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"released"}`, string(out))
	assert.Equal(t, []string{"tok-9"}, abandoner.abandoned)

	_, err = AbandonActivity(abandoner)(context.Background(), []byte(`{"token":{}}`))
	assert.Equal(t, "MISSING_TOKEN_ID", errors.CodeOf(err))
}

type fakeApplier struct {
	result batch.Result
	err    error
}

func (f *fakeApplier) Apply(ctx context.Context, req batch.Request) (batch.Result, error) {
	return f.result, f.err
}

func TestBatchApplyActivity(t *testing.T) {
	input, err := json.Marshal(batch.Request{RoomTypeID: "deluxe", Filter: batch.FilterAll})
	require.NoError(t, err)

	applied := domain.MustDate("2025-12-05")
	out, err := BatchApplyActivity(&fakeApplier{result: batch.Result{Applied: []time.Time{applied}}})(context.Background(), input)
	require.NoError(t, err)
	var output BatchOutput
	require.NoError(t, json.Unmarshal(out, &output))
	require.NotNil(t, output.Result)
	require.Len(t, output.Result.Applied, 1)
	assert.True(t, applied.Equal(output.Result.Applied[0]))

	out, err = BatchApplyActivity(&fakeApplier{err: errors.UnknownRoomType("deluxe")})(context.Background(), input)
	require.NoError(t, err)
	output = BatchOutput{}
	require.NoError(t, json.Unmarshal(out, &output))
	assert.Nil(t, output.Result)
	require.NotNil(t, output.Rejection)
	assert.Equal(t, errors.CodeUnknownRoomType, output.Rejection.Code)
}

type fakeChanger struct {
	err     error
	changed map[string]int
}

func (f *fakeChanger) ChangeCapacity(ctx context.Context, roomTypeID string, capacity int) error {
	if f.err != nil {
		return f.err
	}
	if f.changed == nil {
		f.changed = make(map[string]int)
	}
	f.changed[roomTypeID] = capacity
	return nil
}

func TestChangeCapacityActivity(t *testing.T) {
	input, err := json.Marshal(CapacityInput{RoomTypeID: "deluxe", Capacity: 4})
	require.NoError(t, err)

	changer := &fakeChanger{}
	out, err := ChangeCapacityActivity(changer)(context.Background(), input)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(out))
	assert.Equal(t, 4, changer.changed["deluxe"])

	date := domain.MustDate("2025-11-18")
	out, err = ChangeCapacityActivity(&fakeChanger{err: errors.CapacityBelowBooked("deluxe", date, 4, 6)})(context.Background(), input)
	require.NoError(t, err)
	var output CapacityOutput
	require.NoError(t, json.Unmarshal(out, &output))
	require.NotNil(t, output.Rejection)
	assert.Equal(t, errors.CodeCapacityBelowBooked, output.Rejection.Code)
	require.NotNil(t, output.Rejection.Date)
	assert.True(t, date.Equal(*output.Rejection.Date))

	_, err = ChangeCapacityActivity(&fakeChanger{err: errors.NewTransientError(errors.CodeStorageUnavailable, "down", nil)})(context.Background(), input)
	assert.Equal(t, errors.CodeStorageUnavailable, errors.CodeOf(err))
}

func TestRejectionFrom(t *testing.T) {
	assert.Nil(t, RejectionFrom(nil))
	assert.Nil(t, RejectionFrom(errors.NewTransientError("DB_BUSY", "busy", nil)))
	assert.Nil(t, RejectionFrom(errors.NewTimeoutError("ACTIVITY_TIMEOUT", "slow")))

	r := RejectionFrom(errors.InvalidArgument("bad"))
	require.NotNil(t, r)
	assert.Equal(t, errors.CodeInvalidArgument, r.Code)
	assert.Nil(t, r.Date)
}
