package service

import (
	"errors"

	"connectrpc.com/connect"
	"github.com/go-playground/validator/v10"

	"github.com/mmynk/settlewise/internal/settlement"
	"github.com/mmynk/settlewise/internal/storage"
)

var (
	errPermissionDenied = errors.New("caller is not a member of this settlement")
	errTokenMismatch    = errors.New("idempotency token in body and Idempotency-Key header differ")
)

// validate checks struct tags on incoming messages.
var validate = validator.New(validator.WithRequiredStructEnabled())

func validateRequest(msg any) error {
	if err := validate.Struct(msg); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	return nil
}

// toConnectError maps domain and storage errors onto Connect codes.
func toConnectError(err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return err
	}

	code := connect.CodeInternal
	switch {
	case errors.Is(err, settlement.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, settlement.ErrAlreadyClosed), errors.Is(err, storage.ErrDuplicate):
		code = connect.CodeAlreadyExists
	case errors.Is(err, settlement.ErrNoParticipants),
		errors.Is(err, storage.ErrSettlementClosed),
		errors.Is(err, storage.ErrSettlementOpen):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, settlement.ErrDataUnavailable):
		code = connect.CodeUnavailable
	case errors.Is(err, settlement.ErrInvariantViolation):
		code = connect.CodeInternal
	}
	return connect.NewError(code, err)
}
