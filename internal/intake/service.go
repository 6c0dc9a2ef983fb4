// Package intake turns external sales into reservations backed by ledger
// holds, and keeps the ledger informed of every status change that frees
// inventory.
package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Youmanvi/roomledger/internal/calendar"
	"github.com/Youmanvi/roomledger/internal/domain"
	"github.com/Youmanvi/roomledger/internal/infrastructure/observability"
	"github.com/Youmanvi/roomledger/internal/ledger"
	"github.com/Youmanvi/roomledger/internal/pkg/errors"
)

// Ledger is the part of the stock ledger intake drives.
type Ledger interface {
	ReserveHold(ctx context.Context, holdID, roomTypeID string, startDate time.Time, nights, qty int) (ledger.ReservationToken, error)
	Release(ctx context.Context, token ledger.ReservationToken) error
	RestoreHolds(ctx context.Context, holds []ledger.ReservationToken) error
}

// Repository persists reservations.
type Repository interface {
	Save(ctx context.Context, r *domain.Reservation) error
	Update(ctx context.Context, r *domain.Reservation) error
	Get(ctx context.Context, id string) (*domain.Reservation, error)
	ListIntersecting(ctx context.Context, roomTypeID string, from, to time.Time) ([]*domain.Reservation, error)
	ListHoldingInventory(ctx context.Context) ([]*domain.Reservation, error)
}

// Service is the ReservationIntake boundary
type Service struct {
	ledger    Ledger
	repo      Repository
	validator *RequestValidator
	logger    *observability.Logger
}

// NewService creates an intake service
func NewService(l Ledger, repo Repository, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Service{
		ledger:    l,
		repo:      repo,
		validator: NewRequestValidator(),
		logger:    logger.WithComponent("intake"),
	}
}

// Draft validates req and builds the pending reservation it describes. No
// ledger or storage call is made.
func (s *Service) Draft(req CreateRequest) (*domain.Reservation, error) {
	if err := s.validator.Validate(&req); err != nil {
		return nil, err
	}
	start, err := domain.ParseDate(req.StartDate)
	if err != nil {
		return nil, errors.NewPermanentError(errors.CodeInvalidArgument, "invalid start date", err)
	}

	id := req.ReservationID
	if id == "" {
		id = uuid.NewString()
	}
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}

	res, err := domain.NewReservation(id, req.RoomTypeID, req.GuestID, start, req.Nights, qty)
	if err != nil {
		return nil, errors.NewPermanentError(errors.CodeInvalidArgument, "invalid reservation", err)
	}
	return res, nil
}

// Hold reserves ledger rooms for a drafted reservation and records the token
// on it. The hold is keyed by the reservation id, so repeating it books
// nothing new.
func (s *Service) Hold(ctx context.Context, res *domain.Reservation) (ledger.ReservationToken, error) {
	token, err := s.ledger.ReserveHold(ctx, res.ID, res.RoomTypeID, res.StartDate, res.Nights, res.Quantity)
	if err != nil {
		return ledger.ReservationToken{}, err
	}
	res.TokenID = token.ID
	return token, nil
}

// Record stores a held reservation. Recording an id that already exists is
// a no-op so replays stay safe.
func (s *Service) Record(ctx context.Context, res *domain.Reservation) error {
	if existing, err := s.repo.Get(ctx, res.ID); err == nil {
		if existing.TokenID != res.TokenID {
			return errors.InvalidArgument(fmt.Sprintf("reservation %s already recorded with another hold", res.ID))
		}
		return nil
	} else if !isNotFound(err) {
		return err
	}
	return s.repo.Save(ctx, res)
}

// ReleaseHold returns the rooms of a token. It is safe to call repeatedly.
func (s *Service) ReleaseHold(ctx context.Context, token ledger.ReservationToken) error {
	return s.ledger.Release(ctx, token)
}

// AbandonHold returns the rooms of a hold whose reservation was never
// stored. A stored reservation keeps its rooms and an unknown hold is
// ignored, so compensation after an ambiguous failure is always safe.
func (s *Service) AbandonHold(ctx context.Context, token ledger.ReservationToken) error {
	if _, err := s.repo.Get(ctx, token.ID); err == nil {
		s.logger.WithReservationID(token.ID).Logger.Info().Msg("hold belongs to a stored reservation, keeping it")
		return nil
	} else if !isNotFound(err) {
		return err
	}
	if err := s.ledger.Release(ctx, token); err != nil && errors.CodeOf(err) != errors.CodeUnknownToken {
		return err
	}
	return nil
}

// Create maps one external sale into one ledger reserve call and a stored
// reservation. If storing fails the hold is released again.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Reservation, error) {
	res, err := s.Draft(req)
	if err != nil {
		s.logger.Logger.Warn().Err(err).Str("room_type_id", req.RoomTypeID).Msg("reservation request rejected")
		return nil, err
	}
	log := s.logger.WithReservationID(res.ID).WithRoomType(res.RoomTypeID)

	if req.ReservationID != "" {
		if existing, err := s.repo.Get(ctx, res.ID); err == nil {
			log.Logger.Info().Msg("reservation already exists, returning stored copy")
			return existing, nil
		} else if !isNotFound(err) {
			return nil, err
		}
	}

	token, err := s.Hold(ctx, res)
	if err != nil {
		log.Logger.Warn().Err(err).Msg("reservation hold rejected")
		return nil, err
	}

	if err := s.Record(ctx, res); err != nil {
		log.Logger.Error().Err(err).Str("token_id", token.ID).Msg("failed to record reservation, releasing hold")
		if relErr := s.ReleaseHold(ctx, token); relErr != nil {
			log.Logger.Error().Err(relErr).Str("token_id", token.ID).Msg("compensating release failed")
		}
		return nil, err
	}

	log.Logger.Info().
		Str("token_id", token.ID).
		Str("start_date", res.StartDate.Format(domain.DateLayout)).
		Int("nights", res.Nights).
		Int("quantity", res.Quantity).
		Msg("reservation created")
	return res, nil
}

// Get returns a stored reservation.
func (s *Service) Get(ctx context.Context, id string) (*domain.Reservation, error) {
	return s.repo.Get(ctx, id)
}

// Transition moves a reservation to a new status. Entering cancelled
// releases its ledger hold before the status is stored; replaying the
// transition after a failed store is safe since release is idempotent.
func (s *Service) Transition(ctx context.Context, id string, to domain.ReservationStatus) (*domain.Reservation, error) {
	res, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status == to {
		return res, nil
	}
	if !res.CanTransition(to) {
		return nil, errors.NewPermanentError(errors.CodeInvalidTransition,
			fmt.Sprintf("reservation %s cannot move from %s to %s", id, res.Status, to), nil)
	}

	log := s.logger.WithReservationID(id)
	if to.ReleasesInventory() && res.TokenID != "" {
		if err := s.ledger.Release(ctx, TokenFor(res)); err != nil {
			log.Logger.Error().Err(err).Msg("failed to release reservation hold")
			return nil, err
		}
	}

	from := res.Status
	if err := res.TransitionTo(to); err != nil {
		return nil, errors.NewPermanentError(errors.CodeInvalidTransition, "invalid transition", err)
	}
	if err := s.repo.Update(ctx, res); err != nil {
		return nil, err
	}

	log.Logger.Info().
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("reservation status changed")
	return res, nil
}

// ListForWindow returns the reservations of roomTypeID overlapping window,
// ready for the layout engine. An empty roomTypeID lists every room type.
func (s *Service) ListForWindow(ctx context.Context, roomTypeID string, window calendar.Window) ([]*domain.Reservation, error) {
	return s.repo.ListIntersecting(ctx, roomTypeID, window.Start, window.End())
}

// RestoreTokens rebuilds the ledger's booked rooms from the stored
// reservations that still hold inventory and re-registers their holds so
// they can be released. Day records are written behind, so the stored
// reservations are the record of what was sold. It returns the number of
// holds restored and must run before traffic is served.
func (s *Service) RestoreTokens(ctx context.Context) (int, error) {
	active, err := s.repo.ListHoldingInventory(ctx)
	if err != nil {
		return 0, err
	}
	holds := make([]ledger.ReservationToken, 0, len(active))
	for _, res := range active {
		holds = append(holds, TokenFor(res))
	}
	if err := s.ledger.RestoreHolds(ctx, holds); err != nil {
		return 0, fmt.Errorf("failed to restore ledger holds: %w", err)
	}
	s.logger.Logger.Info().Int("reservations", len(active)).Msg("ledger holds restored")
	return len(active), nil
}

// TokenFor rebuilds the ledger token backing res.
func TokenFor(res *domain.Reservation) ledger.ReservationToken {
	return ledger.ReservationToken{
		ID:         res.TokenID,
		RoomTypeID: res.RoomTypeID,
		StartDate:  res.StartDate,
		Nights:     res.Nights,
		Quantity:   res.Quantity,
	}
}

func isNotFound(err error) bool {
	return errors.CodeOf(err) == errors.CodeReservationNotFound
}
