package intake

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Youmanvi/roomledger/internal/pkg/errors"
)

// CreateRequest is an external sale to be turned into a reservation.
type CreateRequest struct {
	// ReservationID makes the request idempotent; a new id is generated when empty.
	ReservationID string `json:"reservation_id" validate:"omitempty,max=64"`
	RoomTypeID    string `json:"room_type_id" validate:"required,max=64"`
	GuestID       string `json:"guest_id" validate:"required,max=128"`
	StartDate     string `json:"start_date" validate:"required,datetime=2006-01-02"`
	Nights        int    `json:"nights" validate:"min=1,max=365"`
	// Quantity defaults to one room.
	Quantity int `json:"quantity" validate:"min=0,max=100"`
}

// RequestValidator checks intake requests before they reach the ledger.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates a request validator
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

// Validate returns InvalidReservationSpan for a bad night count and
// InvalidArgument for every other malformed field.
func (v *RequestValidator) Validate(req *CreateRequest) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !stderrors.As(err, &validationErrs) {
		return errors.NewPermanentError(errors.CodeInvalidArgument, "invalid reservation request", err)
	}

	messages := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		if fe.Field() == "Nights" && fe.Tag() == "min" {
			return errors.InvalidReservationSpan(req.Nights)
		}
		messages = append(messages, fieldMessage(fe))
	}
	return errors.InvalidArgument(fmt.Sprintf("validation failed: %d error(s): [%s]", len(messages), strings.Join(messages, "; ")))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + ": is required"
	case "datetime":
		return fmt.Sprintf("%s: must be a date in %s format", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s: must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s: must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s: failed %s validation", fe.Field(), fe.Tag())
	}
}
