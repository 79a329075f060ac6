package service

import (
	"errors"
	"fmt"

	"go-pos-ledger/pkg/validator"
)

// Error classes. Specific errors wrap one of these so callers can map them
// to a response without listing every case.
var (
	ErrValidation = errors.New("Validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrStorage    = errors.New("failed to persist state")
)

// ErrNoMatchingRecords is returned by reports whose filters leave nothing.
var ErrNoMatchingRecords = errors.New("no matching records")

func validate(req any) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return fmt.Errorf("%w: Field '%s' failed on tag '%s'", ErrValidation, firstErr.FailedField, firstErr.Tag)
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
